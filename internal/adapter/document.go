package adapter

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/kvtree/pkg/loader"
)

func adaptDocument(v any) (Source, bool) {
	switch x := v.(type) {
	case *loader.JSONNode:
		if x == nil {
			return Adapt(nil), true
		}
		return jsonValue{n: x}, true
	case *yaml.Node:
		if x == nil {
			return Adapt(nil), true
		}
		return newYAMLValue(x, nil), true
	case *loader.XMLElement:
		if x == nil {
			return Adapt(nil), true
		}
		return xmlElement{el: x}, true
	case *loader.XMLAttr:
		if x == nil {
			return Adapt(nil), true
		}
		return xmlAttribute{attr: x}, true
	case *loader.CSVTable:
		if x == nil {
			return Adapt(nil), true
		}
		return csvTable{t: x}, true
	case *loader.CSVRow:
		if x == nil {
			return Adapt(nil), true
		}
		return csvRow{r: x}, true
	}
	return nil, false
}

// jsonValue adapts a positional JSON node.
type jsonValue struct {
	n *loader.JSONNode
}

func (j jsonValue) Representation() Representation {
	switch j.n.Kind {
	case loader.JSONObject:
		return RepKeyedContainer
	case loader.JSONArray:
		return RepOrderedContainer
	default:
		return RepScalar
	}
}

func (j jsonValue) Describe() Description {
	d := Description{TypeName: j.n.Kind.String(), Position: j.n.Pos}
	switch j.n.Kind {
	case loader.JSONNull:
		d.Kind, d.Display = KindNull, "null"
	case loader.JSONBool:
		b, _ := j.n.Value.(bool)
		d.Kind, d.Display = KindPrimitive, adaptReflect(b).Describe().Display
	case loader.JSONNumber:
		d.Kind, d.Display = KindPrimitive, adaptReflect(j.n.Value).Describe().Display
	case loader.JSONString:
		s, _ := j.n.Value.(string)
		d.Kind, d.Display = KindString, QuoteString(s)
	case loader.JSONObject:
		d.Kind, d.Display, d.HasChildren = KindObject, objectDisplay(len(j.n.Members)), len(j.n.Members) > 0
	case loader.JSONArray:
		d.Kind, d.Display, d.HasChildren = KindCollection, collectionDisplay(len(j.n.Items)), len(j.n.Items) > 0
	}
	return d
}

func (j jsonValue) Children() []Child {
	switch j.n.Kind {
	case loader.JSONObject:
		children := make([]Child, len(j.n.Members))
		for i, m := range j.n.Members {
			var v any = m.Value
			if m.Value != nil && m.Value.Kind == loader.JSONArray && homogeneousJSONObjects(m.Value.Items) {
				v = WithItemTypeName(jsonValue{n: m.Value}, Singularize(m.Key))
			}
			children[i] = Child{Value: v, Name: m.Key}
		}
		sortByName(children)
		return children
	case loader.JSONArray:
		children := make([]Child, len(j.n.Items))
		for i, it := range j.n.Items {
			children[i] = Child{Value: it, Name: indexName(i)}
		}
		return children
	}
	return nil
}

func (j jsonValue) Count() (int, bool) { return j.n.Len(), true }

func (j jsonValue) Identity() (Identity, bool) {
	return identityOf(j.n), j.n.Kind == loader.JSONObject || j.n.Kind == loader.JSONArray
}

func homogeneousJSONObjects(items []*loader.JSONNode) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if it == nil || it.Kind != loader.JSONObject {
			return false
		}
	}
	return true
}

func sortByName(children []Child) {
	sort.SliceStable(children, func(i, j int) bool { return children[i].Name < children[j].Name })
}

// xmlElement adapts one markup element.
type xmlElement struct {
	el *loader.XMLElement
}

func (x xmlElement) Representation() Representation { return RepMarkupElement }

func (x xmlElement) text() string {
	return strings.TrimSpace(x.el.Text)
}

func (x xmlElement) isLeaf() bool {
	return len(x.el.Children) == 0 && len(x.el.Attrs) == 0 && x.text() != ""
}

func (x xmlElement) isCollection() bool {
	if len(x.el.Children) < 2 {
		return false
	}
	name := x.el.Children[0].Name
	for _, c := range x.el.Children[1:] {
		if c.Name != name {
			return false
		}
	}
	return true
}

func (x xmlElement) Describe() Description {
	d := Description{TypeName: x.el.Name, Position: x.el.Pos}
	n, _ := x.Count()
	switch {
	case x.isLeaf():
		d.Kind, d.Display = KindString, QuoteString(x.text())
	case x.isCollection():
		d.Kind, d.Display, d.HasChildren = KindCollection, collectionDisplay(len(x.el.Children)), true
	default:
		d.Kind, d.HasChildren = KindObject, n > 0
		if n > 0 {
			d.Display = objectDisplay(n)
		}
	}
	return d
}

func (x xmlElement) Children() []Child {
	if x.isLeaf() {
		return nil
	}
	children := make([]Child, 0, len(x.el.Attrs)+len(x.el.Children)+1)
	for i := range x.el.Attrs {
		children = append(children, Child{Value: &x.el.Attrs[i], Name: "@" + x.el.Attrs[i].Name})
	}
	if x.isCollection() {
		item := Singularize(x.el.Name)
		for i, c := range x.el.Children {
			children = append(children, Child{Value: c, Name: indexName(i), TypeName: item})
		}
		return children
	}
	elems := make([]Child, 0, len(x.el.Children)+1)
	for _, c := range x.el.Children {
		elems = append(elems, Child{Value: c, Name: c.Name})
	}
	if t := x.text(); t != "" {
		elems = append(elems, Child{Value: t, Name: "#text", TypeName: "text"})
	}
	sortByName(elems)
	return append(children, elems...)
}

func (x xmlElement) Count() (int, bool) {
	if x.isLeaf() {
		return 0, true
	}
	n := len(x.el.Attrs) + len(x.el.Children)
	if !x.isCollection() && x.text() != "" {
		n++
	}
	return n, true
}

func (x xmlElement) Identity() (Identity, bool) { return identityOf(x.el), true }

// xmlAttribute adapts one attribute of a markup element.
type xmlAttribute struct {
	attr *loader.XMLAttr
}

func (x xmlAttribute) Representation() Representation { return RepMarkupAttribute }

func (x xmlAttribute) Describe() Description {
	return Description{Kind: KindString, Display: QuoteString(x.attr.Value), TypeName: "attribute", Position: x.attr.Pos}
}

func (x xmlAttribute) Children() []Child          { return nil }
func (x xmlAttribute) Count() (int, bool)         { return 0, true }
func (x xmlAttribute) Identity() (Identity, bool) { return Identity{}, false }

// csvRowType is the inferred type label of CSV records.
const csvRowType = "Row"

// csvTable adapts a CSV document as a sequence of records.
type csvTable struct {
	t *loader.CSVTable
}

func (c csvTable) Representation() Representation { return RepOrderedContainer }

func (c csvTable) Describe() Description {
	n := len(c.t.Rows)
	return Description{Kind: KindCollection, Display: collectionDisplay(n), TypeName: csvRowType + "[]", HasChildren: n > 0}
}

// Children puts record i on display line i+2: the header occupies line 1.
// Records containing quoted newlines drift from their physical lines.
func (c csvTable) Children() []Child {
	children := make([]Child, len(c.t.Rows))
	for i, r := range c.t.Rows {
		children[i] = Child{Value: r, Name: indexName(i), TypeName: csvRowType, Line: loader.DisplayLine(i)}
	}
	return children
}

func (c csvTable) Count() (int, bool)         { return len(c.t.Rows), true }
func (c csvTable) Identity() (Identity, bool) { return identityOf(c.t), true }

// csvRow adapts one record as a dynamic object.
type csvRow struct {
	r *loader.CSVRow
}

func (c csvRow) Representation() Representation { return RepDynamicRecord }

func (c csvRow) Describe() Description {
	n := len(c.fields())
	d := Description{Kind: KindObject, TypeName: csvRowType, HasChildren: n > 0}
	if n > 0 {
		d.Display = objectDisplay(n)
	}
	return d
}

// fields returns the distinct field names; a repeated header keeps its first
// column.
func (c csvRow) fields() []string {
	all := c.r.Fields()
	out := all[:0:0]
	seen := make(map[string]bool, len(all))
	for _, f := range all {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func (c csvRow) Children() []Child {
	fields := c.fields()
	children := make([]Child, 0, len(fields))
	for _, f := range fields {
		v, _ := c.r.Get(f)
		children = append(children, Child{Value: v, Name: f})
	}
	sortByName(children)
	return children
}

func (c csvRow) Count() (int, bool)         { return len(c.fields()), true }
func (c csvRow) Identity() (Identity, bool) { return identityOf(c.r), true }
