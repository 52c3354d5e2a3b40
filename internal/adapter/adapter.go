// Package adapter classifies values from every supported document format into
// one uniform shape: a kind, a display string, a type label, an optional
// source position and an ordered list of children.
//
// The tree package only talks to Source. Supporting a new format means adding
// a Source implementation and a case in Adapt; nothing above this package
// changes.
package adapter

import (
	"fmt"
	"reflect"

	"github.com/oakwood-commons/kvtree/internal/textpos"
)

// Kind is the display category a value falls into.
type Kind int

const (
	KindNull Kind = iota
	KindPrimitive
	KindString
	KindEnum
	KindDateTime
	KindTimeSpan
	KindGUID
	KindCollection
	KindDictionary
	KindObject
	KindCircularReference
	KindMaxDepthReached
)

var kindNames = [...]string{
	"Null",
	"Primitive",
	"String",
	"Enum",
	"DateTime",
	"TimeSpan",
	"Guid",
	"Collection",
	"Dictionary",
	"Object",
	"CircularReference",
	"MaxDepthReached",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsContainer reports whether values of this kind may have children.
func (k Kind) IsContainer() bool {
	return k == KindCollection || k == KindDictionary || k == KindObject
}

// Representation is the closed set of source shapes an adapter can expose.
type Representation int

const (
	RepScalar Representation = iota
	RepOrderedContainer
	RepKeyedContainer
	RepMarkupElement
	RepMarkupAttribute
	RepDynamicRecord
	RepStructuralObject
)

// Description is the classification of one value.
type Description struct {
	Kind        Kind
	Display     string
	TypeName    string
	HasChildren bool
	Position    textpos.Position
}

// Child is one entry produced when a container is expanded.
type Child struct {
	Value any
	Name  string
	// TypeName, when set, overrides the child's own type label.
	TypeName string
	// Line, when set, is a display line override for values that carry no
	// structural position of their own (CSV rows).
	Line int
}

// Identity is the reference identity of a container value. Two values with
// equal content but different storage have different identities.
type Identity struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// Source is the capability every adapter variant implements.
type Source interface {
	Representation() Representation
	Describe() Description
	// Children returns the entries in a deterministic order.
	Children() []Child
	// Count returns the number of children and whether it was cheap to get.
	Count() (n int, cheap bool)
	// Identity returns the reference identity used for cycle detection.
	Identity() (Identity, bool)
}

// Field is one readable member of an Introspectable value.
type Field struct {
	Name string
	Get  func() (any, error)
}

// Introspectable lets a Go type choose the members it exposes instead of
// having its exported struct fields walked by reflection.
type Introspectable interface {
	Fields() []Field
}

// ReadError stands in for a member whose value could not be read.
type ReadError struct {
	Field string
	Err   error
}

func (e ReadError) Error() string {
	return e.Err.Error()
}

// Adapt returns the Source for v.
func Adapt(v any) Source {
	switch x := v.(type) {
	case Source:
		return x
	case nil:
		return scalar{desc: Description{Kind: KindNull, Display: "null", TypeName: "null"}}
	case ReadError:
		return scalar{desc: Description{Kind: KindString, Display: "<error: " + x.Err.Error() + ">", TypeName: "error"}}
	}
	if src, ok := adaptDocument(v); ok {
		return src
	}
	return adaptReflect(v)
}

// scalar is a leaf whose description is fully known up front.
type scalar struct {
	desc Description
}

func (s scalar) Representation() Representation { return RepScalar }
func (s scalar) Describe() Description          { return s.desc }
func (s scalar) Children() []Child              { return nil }
func (s scalar) Count() (int, bool)             { return 0, true }
func (s scalar) Identity() (Identity, bool)     { return Identity{}, false }

// identityOf returns the pointer identity of p, typed so pointers of different
// types to the same address stay distinct.
func identityOf(p any) Identity {
	rv := reflect.ValueOf(p)
	return Identity{typ: rv.Type(), ptr: rv.Pointer()}
}

// itemTyped overrides the type label of every child of a sequence.
type itemTyped struct {
	Source
	item string
}

// WithItemTypeName labels the children of src with item unless they already
// carry a more specific name.
func WithItemTypeName(src Source, item string) Source {
	if item == "" {
		return src
	}
	return itemTyped{Source: src, item: item}
}

func (s itemTyped) Children() []Child {
	children := s.Source.Children()
	for i := range children {
		if children[i].TypeName == "" {
			children[i].TypeName = s.item
		}
	}
	return children
}

func collectionDisplay(n int) string {
	return fmt.Sprintf("(%d items)", n)
}

func dictionaryDisplay(n int) string {
	return fmt.Sprintf("(%d entries)", n)
}

func objectDisplay(n int) string {
	return fmt.Sprintf("(%d properties)", n)
}

func indexName(i int) string {
	return fmt.Sprintf("[%d]", i)
}
