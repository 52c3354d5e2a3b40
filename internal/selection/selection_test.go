package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvtree/internal/flatten"
	"github.com/oakwood-commons/kvtree/internal/navigator"
	"github.com/oakwood-commons/kvtree/internal/tree"
	"github.com/oakwood-commons/kvtree/pkg/loader"
)

const doc = `{
  "name": "kv",
  "list": [
    1,
    2
  ],
  "obj": {
    "deep": true
  }
}`

type recorder struct {
	events []Event
}

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func setup(t *testing.T, text string, withText bool) (*Controller, *recorder) {
	t.Helper()
	docs, err := loader.ParseJSON(text)
	require.NoError(t, err)
	roots := make([]*tree.Node, len(docs))
	for i, d := range docs {
		roots[i] = tree.NewRoot(d)
	}
	var opts []Option
	if withText {
		opts = append(opts, WithText(text))
	}
	c := New(flatten.New(roots), opts...)
	rec := &recorder{}
	c.Subscribe(func(e Event) { rec.events = append(rec.events, e) })
	return c, rec
}

func node(t *testing.T, c *Controller, path string) *tree.Node {
	t.Helper()
	n, err := navigator.Find(c.View().Roots(), path)
	require.NoError(t, err)
	return n
}

func TestSelectResolvesRange(t *testing.T) {
	c, rec := setup(t, doc, true)
	name := node(t, c, "name")

	c.Select(name)
	require.Equal(t, []EventKind{EventSelectedNode, EventSelectedRange}, rec.kinds())
	assert.Same(t, name, rec.events[0].Node)

	r, ok := c.Range()
	require.True(t, ok)
	assert.Equal(t, 2, r.StartLine)
	assert.Equal(t, 3, r.StartCol)
	assert.Equal(t, 15, r.EndCol)
	assert.Equal(t, 4, r.StartOffset)
	assert.Equal(t, 16, r.EndOffset)
	assert.Equal(t, `"name": "kv"`, string([]rune(doc)[r.StartOffset:r.EndOffset]))

	c.Select(name)
	assert.Equal(t, []EventKind{EventSelectedNode, EventSelectedRange, EventSelectedRange}, rec.kinds(),
		"reselecting only refreshes the range")
}

func TestTextArrivesLate(t *testing.T) {
	c, rec := setup(t, doc, false)
	c.Select(node(t, c, "obj"))
	require.Len(t, rec.events, 2)
	assert.False(t, rec.events[1].HasRange)

	c.SetText(doc)
	require.Len(t, rec.events, 3)
	last := rec.events[2]
	assert.Equal(t, EventSelectedRange, last.Kind)
	require.True(t, last.HasRange)
	assert.Equal(t, 7, last.Range.StartLine)
	assert.Equal(t, 9, last.Range.EndLine)
}

func TestStalePositionClearsRange(t *testing.T) {
	c, rec := setup(t, doc, true)
	c.Select(node(t, c, "obj"))
	_, ok := c.Range()
	require.True(t, ok)

	c.SetText("{}")
	_, ok = c.Range()
	assert.False(t, ok)
	assert.False(t, rec.events[len(rec.events)-1].HasRange)
}

func TestCaretMovedRevealsNode(t *testing.T) {
	c, rec := setup(t, doc, true)
	obj := node(t, c, "obj")
	require.False(t, obj.Expanded())

	resets := 0
	c.View().Subscribe(func(flatten.Event) { resets++ })

	c.CaretMoved(8)
	deep := c.Selected()
	require.NotNil(t, deep)
	assert.Equal(t, "deep", deep.Name())
	assert.True(t, obj.Expanded())
	assert.Equal(t, 1, resets, "ancestors are expanded with one invalidation")
	require.Equal(t, []EventKind{EventSelectedNode, EventSelectedRange}, rec.kinds())
	require.True(t, rec.events[1].HasRange)
	assert.Equal(t, 8, rec.events[1].Range.StartLine)
	assert.Same(t, deep, rec.events[1].Node)

	idx, ok := c.SelectedIndex()
	require.True(t, ok)
	it, err := c.View().At(idx)
	require.NoError(t, err)
	assert.Same(t, deep, it.Node)

	c.CaretMoved(8)
	assert.Len(t, rec.events, 2, "same node does not reselect")
}

func TestCaretAtOffset(t *testing.T) {
	c, _ := setup(t, doc, true)
	c.CaretAtOffset(len("{\n  \"name\": \"kv\",\n  \"li"))
	require.NotNil(t, c.Selected())
	assert.Equal(t, "list", c.Selected().Name())
}

func TestEchoesAreSuppressed(t *testing.T) {
	c, _ := setup(t, doc, true)
	list := node(t, c, "list")

	c.Subscribe(func(e Event) {
		if e.Kind == EventSelectedRange && e.HasRange {
			c.CaretMoved(5)
		}
	})
	c.Select(list)
	assert.Same(t, list, c.Selected(), "caret echo during tree-to-text is ignored")

	name := node(t, c, "name")
	c.Subscribe(func(e Event) {
		if e.Kind == EventSelectedNode && e.Node != list {
			c.Select(name)
		}
	})
	c.CaretMoved(8)
	assert.Equal(t, "deep", c.Selected().Name(), "selection echo during text-to-tree is ignored")
}

func TestNestedSelectKeepsSuppression(t *testing.T) {
	c, _ := setup(t, doc, true)
	list := node(t, c, "list")
	name := node(t, c, "name")

	c.Subscribe(func(e Event) {
		if e.Kind == EventSelectedNode && e.Node == list {
			c.Select(name)
		}
	})
	c.Subscribe(func(e Event) {
		if e.Kind == EventSelectedRange && e.HasRange {
			c.CaretMoved(8)
		}
	})
	c.Select(list)
	assert.Same(t, name, c.Selected(), "caret echo after a nested select is still ignored")

	c.CaretMoved(8)
	assert.Equal(t, "deep", c.Selected().Name(), "suppression is released afterwards")
}

func TestSelectionDroppedWhenForestReplaced(t *testing.T) {
	c, rec := setup(t, doc, true)
	v := c.View()
	require.NoError(t, c.SelectIndex(0))

	v.AddRoot(tree.NewRoot(map[string]any{"extra": true}))
	assert.Same(t, v.Roots()[0], c.Selected(), "adding a root keeps the selection")

	rec.events = nil
	replacement := tree.NewRoot(map[string]any{"z": 1})
	v.SetRoots([]*tree.Node{replacement})
	assert.Nil(t, c.Selected())
	_, ok := c.Range()
	assert.False(t, ok)
	require.Equal(t, []EventKind{EventSelectedNode, EventSelectedRange}, rec.kinds())
	assert.Nil(t, rec.events[0].Node)
	assert.False(t, rec.events[1].HasRange)

	assert.True(t, c.HandleKey(KeyDown))
	assert.Same(t, replacement, c.Selected())
	_, visible := c.SelectedIndex()
	assert.True(t, visible)

	v.Clear()
	assert.Nil(t, c.Selected())
}

func TestSuppressionReleasedAfterPanic(t *testing.T) {
	c, _ := setup(t, doc, true)
	unsubscribe := c.Subscribe(func(Event) { panic("observer failure") })

	assert.Panics(t, func() { c.Select(node(t, c, "name")) })
	unsubscribe()

	c.CaretMoved(8)
	assert.Equal(t, "deep", c.Selected().Name())
}

func TestKeyboardNavigation(t *testing.T) {
	c, _ := setup(t, doc, true)
	v := c.View()
	root := v.Roots()[0]

	assert.True(t, c.HandleKey(KeyDown), "first key selects the root")
	assert.Same(t, root, c.Selected())

	require.True(t, c.HandleKey(KeyDown))
	list := c.Selected()
	assert.Equal(t, "list", list.Name())

	assert.True(t, c.HandleKey(KeyRight))
	assert.True(t, list.Expanded())
	assert.Same(t, list, c.Selected())

	assert.True(t, c.HandleKey(KeyRight))
	assert.Equal(t, "[0]", c.Selected().Name())
	assert.False(t, c.HandleKey(KeyRight), "leaves do not expand")

	assert.True(t, c.HandleKey(KeyLeft))
	assert.Same(t, list, c.Selected())
	assert.True(t, c.HandleKey(KeyLeft))
	assert.False(t, list.Expanded())

	assert.True(t, c.HandleKey(KeyEnter))
	assert.True(t, list.Expanded())
	assert.True(t, c.HandleKey(KeySpace))
	assert.False(t, list.Expanded())

	assert.True(t, c.HandleKey(KeyEnd))
	assert.Equal(t, "obj", c.Selected().Name())
	assert.False(t, c.HandleKey(KeyDown))
	assert.True(t, c.HandleKey(KeyHome))
	assert.Same(t, root, c.Selected())
	assert.False(t, c.HandleKey(KeyUp))
}

func TestKeyOrderMatchesView(t *testing.T) {
	c, _ := setup(t, doc, true)
	v := c.View()
	tree.Walk(v.Roots(), func(n *tree.Node) bool {
		n.SetExpanded(true)
		return true
	})
	v.Invalidate()

	c.HandleKey(KeyHome)
	for i := 0; i < v.Count(); i++ {
		it, err := v.At(i)
		require.NoError(t, err)
		require.Same(t, it.Node, c.Selected(), "index %d", i)
		c.HandleKey(KeyDown)
	}
	for i := v.Count() - 1; i >= 0; i-- {
		it, _ := v.At(i)
		require.Same(t, it.Node, c.Selected(), "index %d", i)
		c.HandleKey(KeyUp)
	}
}

func TestSearchAndRevealPath(t *testing.T) {
	c, _ := setup(t, doc, true)

	n, err := c.Search(`kind == "Primitive" && display == "true"`)
	require.NoError(t, err)
	assert.Equal(t, "deep", n.Name())
	assert.Same(t, n, c.Selected())
	assert.True(t, node(t, c, "obj").Expanded())
	_, ok := c.SelectedIndex()
	assert.True(t, ok)

	_, err = c.Search(`depth > 100`)
	assert.Error(t, err)

	n, err = c.RevealPath("list[1]")
	require.NoError(t, err)
	assert.Equal(t, "2", n.Display())
	path, err := c.Path()
	require.NoError(t, err)
	assert.Equal(t, "list[1]", path)
	r, ok := c.Range()
	require.True(t, ok)
	assert.Equal(t, 5, r.StartLine)
}

func TestLineOverrideSelectsWholeLine(t *testing.T) {
	text := "id,name\n1,ann\n2,bob\n"
	table, err := loader.ParseCSV(text)
	require.NoError(t, err)
	c := New(flatten.New([]*tree.Node{tree.NewRoot(table)}), WithText(text))

	require.NoError(t, c.SelectIndex(2))
	r, ok := c.Range()
	require.True(t, ok)
	assert.Equal(t, 3, r.StartLine)
	assert.Equal(t, "2,bob", string([]rune(text)[r.StartOffset:r.EndOffset]))

	assert.Error(t, c.SelectIndex(10))
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("down")
	assert.True(t, ok)
	assert.Equal(t, KeyDown, k)
	_, ok = ParseKey("f13")
	assert.False(t, ok)
}
