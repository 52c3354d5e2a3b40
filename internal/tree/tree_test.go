package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvtree/internal/adapter"
	"github.com/oakwood-commons/kvtree/pkg/loader"
)

type link struct {
	Name string
	Next *link
}

type lazyFields struct{}

func (lazyFields) Fields() []adapter.Field {
	return []adapter.Field{{Name: "a", Get: func() (any, error) { return 1, nil }}}
}

func parseJSON(t *testing.T, text string) *Node {
	t.Helper()
	roots, err := loader.ParseJSON(text)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	return NewRoot(roots[0])
}

func childNames(n *Node) []string {
	var out []string
	for _, c := range n.Children() {
		out = append(out, c.Name())
	}
	return out
}

func TestJSONExample(t *testing.T) {
	root := parseJSON(t, `{"a": [1,2,3], "b": {"c": "x"}}`)

	assert.Equal(t, adapter.KindObject, root.Kind())
	assert.True(t, root.Expanded(), "small roots start expanded")
	require.Equal(t, []string{"a", "b"}, childNames(root))

	a, b := root.Children()[0], root.Children()[1]
	assert.Equal(t, adapter.KindCollection, a.Kind())
	assert.Equal(t, "(3 items)", a.Display())
	assert.False(t, a.Expanded(), "non-root nodes start collapsed")
	assert.Equal(t, adapter.KindObject, b.Kind())

	require.Equal(t, []string{"[0]", "[1]", "[2]"}, childNames(a))
	for i, c := range a.Children() {
		assert.Equal(t, adapter.KindPrimitive, c.Kind())
		assert.Equal(t, []string{"1", "2", "3"}[i], c.Display())
		assert.Equal(t, 2, c.Depth())
	}
}

func TestChildrenIdempotent(t *testing.T) {
	root := parseJSON(t, `{"z": 1, "y": [true], "x": null}`)
	first := root.Children()
	second := root.Children()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
	assert.Equal(t, []string{"x", "y", "z"}, childNames(root))
}

func TestCycleIsCircularReference(t *testing.T) {
	m := map[string]any{"name": "self"}
	m["self"] = m

	root := NewRoot(m)
	var self *Node
	for _, c := range root.Children() {
		if c.Name() == "self" {
			self = c
		}
	}
	require.NotNil(t, self)
	assert.Equal(t, adapter.KindCircularReference, self.Kind())
	assert.False(t, self.HasChildren())
	assert.Equal(t, "<circular reference>", self.Display())
	assert.Empty(t, self.Children())
	assert.Equal(t, 0, self.ChildCount())
}

func TestPointerCycle(t *testing.T) {
	a := &link{Name: "a"}
	b := &link{Name: "b", Next: a}
	a.Next = b

	root := NewRoot(a)
	next := root.Children()[1]
	require.Equal(t, "Next", next.Name())
	assert.Equal(t, adapter.KindObject, next.Kind())
	back := next.Children()[1]
	assert.Equal(t, adapter.KindCircularReference, back.Kind())
}

func TestSharedValueIsNotCircular(t *testing.T) {
	shared := map[string]any{"v": 1}
	root := NewRoot(map[string]any{"left": shared, "right": shared})
	for _, c := range root.Children() {
		assert.Equal(t, adapter.KindDictionary, c.Kind(), c.Name())
		assert.True(t, c.HasChildren())
	}
}

func TestMaxDepth(t *testing.T) {
	root := parseJSON(t, `{"l1": {"l2": {"l3": {"l4": {"l5": 1}}}}}`)
	root = NewRoot(root.Value(), WithMaxDepth(2))

	l1 := root.Children()[0]
	require.Equal(t, 1, l1.Depth())
	assert.Equal(t, adapter.KindObject, l1.Kind())

	l2 := l1.Children()[0]
	assert.Equal(t, 2, l2.Depth())
	assert.Equal(t, adapter.KindMaxDepthReached, l2.Kind())
	assert.Equal(t, "<max depth reached>", l2.Display())
	assert.False(t, l2.HasChildren())
	assert.Empty(t, l2.Children())

	deepest := 0
	Walk([]*Node{root}, func(n *Node) bool {
		deepest = max(deepest, n.Depth())
		return true
	})
	assert.Equal(t, 2, deepest)
}

func TestAutoExpandLimit(t *testing.T) {
	big := make([]int, DefaultAutoExpandLimit+1)
	assert.False(t, NewRoot(big).Expanded())
	assert.False(t, NewRoot(big).Materialized(), "the limit check does not materialize")

	assert.True(t, NewRoot(big[:DefaultAutoExpandLimit]).Expanded())
	assert.True(t, NewRoot(big, WithAutoExpandLimit(500)).Expanded())
}

func TestChildCountDoesNotMaterialize(t *testing.T) {
	root := NewRoot([]string{"a", "b"})
	assert.Equal(t, 2, root.ChildCount())
	assert.False(t, root.Materialized())

	lazy := NewRoot(lazyFields{})
	n, exact := lazy.KnownChildCount()
	assert.Equal(t, 1, n)
	assert.False(t, exact)
	assert.False(t, lazy.Materialized())
	assert.Len(t, lazy.Children(), 1)
	n, exact = lazy.KnownChildCount()
	assert.Equal(t, 1, n)
	assert.True(t, exact)
}

func TestExpandState(t *testing.T) {
	leaf := NewRoot("x")
	leaf.SetExpanded(true)
	assert.False(t, leaf.Expanded(), "leaves never expand")

	root := NewRoot([]int{1})
	assert.True(t, root.Expanded())
	assert.False(t, root.Toggle())
	assert.True(t, root.Toggle())
}

func TestLineOverride(t *testing.T) {
	table, err := loader.ParseCSV("h\n1\n2\n3\n")
	require.NoError(t, err)
	root := NewRoot(table)
	require.Len(t, root.Children(), 3)
	for i, row := range root.Children() {
		assert.Equal(t, i+2, row.Line())
		assert.Equal(t, "Row", row.TypeName())
		assert.Equal(t, adapter.KindObject, row.Kind())
		assert.False(t, row.Position().IsSet())
	}
}

func TestPathToAndParent(t *testing.T) {
	root := parseJSON(t, `{"a": {"b": [10, 20]}}`)
	a := root.Children()[0]
	b := a.Children()[0]
	twenty := b.Children()[1]

	path := PathTo([]*Node{root}, twenty)
	assert.Equal(t, []*Node{root, a, b, twenty}, path)
	assert.Same(t, b, Parent([]*Node{root}, twenty))
	assert.Nil(t, Parent([]*Node{root}, root))

	other := NewRoot(1)
	assert.Nil(t, PathTo([]*Node{root}, other))
}

func TestWalkSkipsSubtrees(t *testing.T) {
	root := parseJSON(t, `{"a": {"x": 1}, "b": {"y": 2}}`)
	var seen []string
	Walk([]*Node{root}, func(n *Node) bool {
		seen = append(seen, n.Name())
		return n.Name() != "a"
	})
	assert.Equal(t, []string{"", "a", "b", "y"}, seen)
}

func TestLabel(t *testing.T) {
	root := NewRoot(map[string]any{"k": "v"}, WithName("doc"))
	assert.Equal(t, "doc: (1 entries)", root.Label())
	assert.Equal(t, `k: "v"`, root.Children()[0].Label())
	assert.Equal(t, "(2 items)", NewRoot([]int{1, 2}).Label())
}

func TestVisibleOrderHelpers(t *testing.T) {
	roots := []*Node{
		parseJSON(t, `{"a": {"x": 1}, "b": [1, 2]}`),
		NewRoot("second"),
	}
	root := roots[0]
	a, b := root.Children()[0], root.Children()[1]
	a.SetExpanded(true)

	var order []*Node
	for n := roots[0]; n != nil; n = NextVisible(roots, n) {
		order = append(order, n)
	}
	x := a.Children()[0]
	assert.Equal(t, []*Node{root, a, x, b, roots[1]}, order)

	for i := len(order) - 1; i > 0; i-- {
		assert.Same(t, order[i-1], PrevVisible(roots, order[i]))
	}
	assert.Nil(t, PrevVisible(roots, root))
	assert.Same(t, roots[1], LastVisible(roots[1]))
	assert.Same(t, b, LastVisible(root))
}
