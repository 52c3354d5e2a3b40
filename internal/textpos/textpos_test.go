package textpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexLines(t *testing.T) {
	ix := NewIndex("ab\ncdé\r\n\nlast")
	assert.Equal(t, 4, ix.LineCount())
	assert.Equal(t, 13, ix.RuneCount())

	line, ok := ix.Line(2)
	require.True(t, ok)
	assert.Equal(t, "cdé", line)
	assert.Equal(t, 3, ix.LineLength(2))
	assert.Equal(t, 0, ix.LineLength(3))

	_, ok = ix.Line(5)
	assert.False(t, ok)
}

func TestEmptyText(t *testing.T) {
	ix := NewIndex("")
	assert.Equal(t, 1, ix.LineCount())
	off, ok := ix.Offset(1, 1)
	require.True(t, ok)
	assert.Equal(t, 0, off)
}

func TestLineCol(t *testing.T) {
	ix := NewIndex("é1\nxyz")
	tests := []struct {
		offset   int
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{2, 1, 2}, // after the two-byte rune
		{3, 1, 3},
		{4, 2, 1},
		{6, 2, 3},
		{100, 2, 4},
		{-5, 1, 1},
	}
	for _, tt := range tests {
		line, col := ix.LineCol(tt.offset)
		assert.Equal(t, tt.wantLine, line, "offset %d", tt.offset)
		assert.Equal(t, tt.wantCol, col, "offset %d", tt.offset)
	}
}

func TestOffset(t *testing.T) {
	ix := NewIndex("abc\nde")

	off, ok := ix.Offset(2, 1)
	require.True(t, ok)
	assert.Equal(t, 4, off)

	off, ok = ix.Offset(2, 3)
	require.True(t, ok, "end-of-line column is valid")
	assert.Equal(t, 6, off)

	_, ok = ix.Offset(2, 4)
	assert.False(t, ok)
	_, ok = ix.Offset(3, 1)
	assert.False(t, ok)
	_, ok = ix.Offset(0, 1)
	assert.False(t, ok)
}

func TestLineAtOffset(t *testing.T) {
	ix := NewIndex("abc\nde\nf")
	line, ok := ix.LineAtOffset(0)
	require.True(t, ok)
	assert.Equal(t, 1, line)

	line, ok = ix.LineAtOffset(4)
	require.True(t, ok)
	assert.Equal(t, 2, line)

	line, ok = ix.LineAtOffset(8)
	require.True(t, ok)
	assert.Equal(t, 3, line)

	_, ok = ix.LineAtOffset(9)
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	ix := NewIndex("{\n  \"a\": 1\n}")

	r, ok := ix.Resolve(Position{StartLine: 2, StartCol: 3, EndLine: 2, EndCol: 9})
	require.True(t, ok)
	assert.Equal(t, 4, r.StartOffset)
	assert.Equal(t, 10, r.EndOffset)
	assert.Equal(t, 6, r.Len())

	r, ok = ix.Resolve(Position{StartLine: 1, StartCol: 1})
	require.True(t, ok)
	assert.Equal(t, 0, r.Len(), "missing end resolves to a caret")

	_, ok = ix.Resolve(Position{})
	assert.False(t, ok)
	_, ok = ix.Resolve(Position{StartLine: 9, StartCol: 1})
	assert.False(t, ok, "stale position does not resolve")
	_, ok = ix.Resolve(Position{StartLine: 2, StartCol: 5, EndLine: 1, EndCol: 1})
	assert.False(t, ok, "end before start does not resolve")
}

func TestResolveLine(t *testing.T) {
	ix := NewIndex("name,age\nann,3\r\nbob,4")
	r, ok := ix.ResolveLine(2)
	require.True(t, ok)
	assert.Equal(t, 9, r.StartOffset)
	assert.Equal(t, 14, r.EndOffset)

	_, ok = ix.ResolveLine(4)
	assert.False(t, ok)
}
