package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oakwood-commons/kvtree/internal/tree"
)

func TestFormatAsTree(t *testing.T) {
	result := FormatAsTree(roots(t, example), TreeOptions{})

	if !strings.HasPrefix(result, ".") {
		t.Errorf("expected tree to start with root marker '.', got:\n%s", result)
	}
	for _, want := range []string{"(2 properties)", "a: (3 items)", "[2]: 3", `c: "x"`} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in output, got:\n%s", want, result)
		}
	}
}

func TestFormatAsTreeIgnoresExpandState(t *testing.T) {
	rs := roots(t, example)
	assert.False(t, rs[0].Children()[0].Expanded())

	full := FormatAsTree(rs, TreeOptions{})
	assert.Contains(t, full, "[0]: 1")

	visible := FormatAsTree(rs, TreeOptions{ExpandedOnly: true})
	assert.NotContains(t, visible, "[0]: 1")
	assert.Contains(t, visible, "a: (3 items)")
}

func TestFormatAsTreeNoValues(t *testing.T) {
	result := FormatAsTree(roots(t, example), TreeOptions{NoValues: true})
	assert.NotContains(t, result, `"x"`)
	assert.Contains(t, result, "c")
	assert.Contains(t, result, "object")
}

func TestFormatAsTreeMaxDepth(t *testing.T) {
	result := FormatAsTree(roots(t, example), TreeOptions{MaxDepth: 1})
	assert.Contains(t, result, "a: (3 items) ...")
	assert.NotContains(t, result, "[0]")
}

func TestFormatAsTreeCycle(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["self"] = m

	result := FormatAsTree([]*tree.Node{tree.NewRoot(m)}, TreeOptions{})
	assert.Contains(t, result, "self: <circular reference>")
	assert.Contains(t, result, `name: "loop"`)
}

func TestFormatAsTreeTruncatesLabels(t *testing.T) {
	result := FormatAsTree(roots(t, `{"k": "abcdefghijklmnop"}`), TreeOptions{MaxStringLen: 10})
	assert.Contains(t, result, `k: "abc...`)
	assert.NotContains(t, result, "mnop")
}

func TestFormatAsTreeMultipleRoots(t *testing.T) {
	rs := []*tree.Node{tree.NewRoot(1, tree.WithName("first")), tree.NewRoot("two", tree.WithName("second"))}
	result := FormatAsTree(rs, TreeOptions{})
	assert.Contains(t, result, "first: 1")
	assert.Contains(t, result, `second: "two"`)
}
