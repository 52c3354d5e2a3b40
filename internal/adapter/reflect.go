package adapter

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

var (
	stringerType      = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// adaptReflect classifies plain Go values.
func adaptReflect(v any) Source {
	switch x := v.(type) {
	case string:
		return stringLeaf(x, "string")
	case bool:
		return primitiveLeaf(strconv.FormatBool(x), "bool")
	case json.Number:
		return primitiveLeaf(FormatNumber(x), "number")
	case float32:
		return primitiveLeaf(FormatFloat(float64(x), 32), "float32")
	case float64:
		return primitiveLeaf(FormatFloat(x, 64), "float64")
	case time.Time:
		return scalar{desc: Description{Kind: KindDateTime, Display: FormatTime(x), TypeName: "Time"}}
	case time.Duration:
		return scalar{desc: Description{Kind: KindTimeSpan, Display: x.String(), TypeName: "Duration"}}
	case uuid.UUID:
		return scalar{desc: Description{Kind: KindGUID, Display: x.String(), TypeName: "UUID"}}
	case toml.LocalDate:
		return scalar{desc: Description{Kind: KindDateTime, Display: x.String(), TypeName: "LocalDate"}}
	case toml.LocalTime:
		return scalar{desc: Description{Kind: KindDateTime, Display: x.String(), TypeName: "LocalTime"}}
	case toml.LocalDateTime:
		return scalar{desc: Description{Kind: KindDateTime, Display: x.String(), TypeName: "LocalDateTime"}}
	case []byte:
		return primitiveLeaf(fmt.Sprintf("byte[%d]", len(x)), "byte[]")
	case Introspectable:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Adapt(nil)
		}
		return introspected{v: x}
	}

	rv := reflect.ValueOf(v)
	var id Identity
	hasID := false
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Adapt(nil)
		}
		if rv.Kind() == reflect.Pointer && !hasID {
			id, hasID = Identity{typ: rv.Type(), ptr: rv.Pointer()}, true
		}
		rv = rv.Elem()
	}
	if rv.CanInterface() && rv.Type() != reflect.TypeOf(v) {
		// A pointer to a well known scalar is shown as the scalar.
		if src := adaptReflect(rv.Interface()); src.Representation() == RepScalar {
			return src
		}
	}

	typeName := TypeName(rv.Type())
	switch rv.Kind() {
	case reflect.Bool:
		return primitiveLeaf(strconv.FormatBool(rv.Bool()), typeName)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if s, ok := enumName(rv); ok {
			return scalar{desc: Description{Kind: KindEnum, Display: s, TypeName: typeName}}
		}
		return primitiveLeaf(strconv.FormatInt(rv.Int(), 10), typeName)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if s, ok := enumName(rv); ok {
			return scalar{desc: Description{Kind: KindEnum, Display: s, TypeName: typeName}}
		}
		return primitiveLeaf(strconv.FormatUint(rv.Uint(), 10), typeName)
	case reflect.Float32:
		return primitiveLeaf(FormatFloat(rv.Float(), 32), typeName)
	case reflect.Float64:
		return primitiveLeaf(FormatFloat(rv.Float(), 64), typeName)
	case reflect.Complex64, reflect.Complex128:
		return primitiveLeaf(strconv.FormatComplex(rv.Complex(), 'g', -1, rv.Type().Bits()), typeName)
	case reflect.String:
		return stringLeaf(rv.String(), typeName)
	case reflect.Slice, reflect.Array, reflect.Struct:
		if text, ok := marshalText(rv); ok {
			return primitiveLeaf(text, typeName)
		}
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return primitiveLeaf(typeName, typeName)
	}

	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return primitiveLeaf(fmt.Sprintf("byte[%d]", rv.Len()), typeName)
		}
		if rv.Len() > 0 {
			id, hasID = Identity{typ: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}, true
		}
		return sequence{rv: rv, typeName: typeName, id: id, hasID: hasID}
	case reflect.Array:
		return sequence{rv: rv, typeName: typeName, id: id, hasID: hasID}
	case reflect.Map:
		if rv.IsNil() {
			return Adapt(nil)
		}
		return dictionary{rv: rv, typeName: typeName, id: Identity{typ: rv.Type(), ptr: rv.Pointer()}}
	case reflect.Struct:
		return structure{rv: rv, typeName: typeName, id: id, hasID: hasID}
	}
	return primitiveLeaf(fmt.Sprint(rv), typeName)
}

func enumName(rv reflect.Value) (string, bool) {
	if rv.Type().PkgPath() == "" || !rv.Type().Implements(stringerType) || !rv.CanInterface() {
		return "", false
	}
	return rv.Interface().(fmt.Stringer).String(), true
}

func marshalText(rv reflect.Value) (string, bool) {
	if !rv.Type().Implements(textMarshalerType) || !rv.CanInterface() {
		return "", false
	}
	text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return "", false
	}
	return string(text), true
}

// sequence is a Go slice or array.
type sequence struct {
	rv       reflect.Value
	typeName string
	id       Identity
	hasID    bool
}

func (s sequence) Representation() Representation { return RepOrderedContainer }

func (s sequence) Describe() Description {
	n := s.rv.Len()
	return Description{Kind: KindCollection, Display: collectionDisplay(n), TypeName: s.typeName, HasChildren: n > 0}
}

func (s sequence) Children() []Child {
	children := make([]Child, s.rv.Len())
	for i := range children {
		children[i] = Child{Value: interfaceOf(s.rv.Index(i)), Name: indexName(i)}
	}
	return children
}

func (s sequence) Count() (int, bool)         { return s.rv.Len(), true }
func (s sequence) Identity() (Identity, bool) { return s.id, s.hasID }

// dictionary is a Go map. Entries are sorted by their stringified key.
type dictionary struct {
	rv       reflect.Value
	typeName string
	id       Identity
}

func (d dictionary) Representation() Representation { return RepKeyedContainer }

func (d dictionary) Describe() Description {
	n := d.rv.Len()
	return Description{Kind: KindDictionary, Display: dictionaryDisplay(n), TypeName: d.typeName, HasChildren: n > 0}
}

func (d dictionary) Children() []Child {
	children := make([]Child, 0, d.rv.Len())
	iter := d.rv.MapRange()
	for iter.Next() {
		children = append(children, Child{Value: interfaceOf(iter.Value()), Name: keyName(iter.Key())})
	}
	sort.SliceStable(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children
}

func (d dictionary) Count() (int, bool)         { return d.rv.Len(), true }
func (d dictionary) Identity() (Identity, bool) { return d.id, true }

func keyName(k reflect.Value) string {
	for k.Kind() == reflect.Interface || k.Kind() == reflect.Pointer {
		if k.IsNil() {
			return "null"
		}
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(interfaceOf(k))
}

// structure walks the exported fields of a Go struct.
type structure struct {
	rv       reflect.Value
	typeName string
	id       Identity
	hasID    bool
}

func (s structure) Representation() Representation { return RepStructuralObject }

func (s structure) Describe() Description {
	return Description{Kind: KindObject, TypeName: s.typeName, HasChildren: len(exportedFields(s.rv.Type())) > 0}
}

func (s structure) Children() []Child {
	fields := exportedFields(s.rv.Type())
	children := make([]Child, 0, len(fields))
	for _, f := range fields {
		children = append(children, Child{Value: readField(s.rv, f), Name: f.Name})
	}
	return children
}

func (s structure) Count() (int, bool)         { return len(exportedFields(s.rv.Type())), true }
func (s structure) Identity() (Identity, bool) { return s.id, s.hasID }

// exportedFields returns the readable fields of t sorted by name, including
// fields promoted from embedded structs.
func exportedFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || (f.Anonymous && indirectKind(f.Type) == reflect.Struct) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func indirectKind(t reflect.Type) reflect.Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind()
}

func readField(rv reflect.Value, f reflect.StructField) (v any) {
	defer func() {
		if r := recover(); r != nil {
			v = ReadError{Field: f.Name, Err: fmt.Errorf("%v", r)}
		}
	}()
	fv, err := rv.FieldByIndexErr(f.Index)
	if err != nil {
		return ReadError{Field: f.Name, Err: err}
	}
	return interfaceOf(fv)
}

// introspected exposes the members an Introspectable chooses.
type introspected struct {
	v Introspectable
}

func (s introspected) Representation() Representation { return RepStructuralObject }

func (s introspected) Describe() Description {
	return Description{Kind: KindObject, TypeName: TypeName(reflect.TypeOf(s.v)), HasChildren: len(s.fields()) > 0}
}

func (s introspected) Children() []Child {
	fields := s.fields()
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	children := make([]Child, 0, len(fields))
	for _, f := range fields {
		children = append(children, Child{Value: readIntrospected(f), Name: f.Name})
	}
	return children
}

func (s introspected) Count() (int, bool) { return 0, false }

func (s introspected) Identity() (Identity, bool) {
	if rv := reflect.ValueOf(s.v); rv.Kind() == reflect.Pointer {
		return Identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	}
	return Identity{}, false
}

func (s introspected) fields() (fields []Field) {
	defer func() {
		if recover() != nil {
			fields = nil
		}
	}()
	return s.v.Fields()
}

func readIntrospected(f Field) (v any) {
	defer func() {
		if r := recover(); r != nil {
			v = ReadError{Field: f.Name, Err: fmt.Errorf("%v", r)}
		}
	}()
	if f.Get == nil {
		return nil
	}
	v, err := f.Get()
	if err != nil {
		return ReadError{Field: f.Name, Err: err}
	}
	return v
}

// interfaceOf returns the value held by rv, or nil when it cannot be read.
func interfaceOf(rv reflect.Value) any {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}
