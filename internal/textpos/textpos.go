// Package textpos maps between line/column positions and character offsets in
// raw document text.
//
// Lines and columns are 1-based. Columns and offsets count runes, not bytes,
// so they line up with what a text view shows.
package textpos

import (
	"sort"
	"unicode/utf8"
)

// Position is a source span reported by a parser. Zero fields mean unset.
// EndCol is exclusive: it points just past the last character.
type Position struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// IsSet reports whether the position carries at least a start line.
func (p Position) IsSet() bool {
	return p.StartLine > 0
}

// HasEnd reports whether the end of the span is known.
func (p Position) HasEnd() bool {
	return p.EndLine > 0
}

// Range is a Position resolved against a concrete text.
type Range struct {
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
	StartOffset int
	EndOffset   int
}

// Len returns the number of characters covered by the range.
func (r Range) Len() int {
	return r.EndOffset - r.StartOffset
}

// LineStart records where a line begins.
type LineStart struct {
	ByteOffset int
	RuneOffset int
}

// Index is a precomputed line table over one text snapshot.
type Index struct {
	text  string
	lines []LineStart
	runes int
}

// NewIndex scans text once and records every line start.
func NewIndex(text string) *Index {
	ix := &Index{text: text, lines: []LineStart{{}}}
	runeOffset := 0
	for i, r := range text {
		runeOffset++
		if r == '\n' {
			ix.lines = append(ix.lines, LineStart{ByteOffset: i + 1, RuneOffset: runeOffset})
		}
	}
	ix.runes = runeOffset
	return ix
}

// Text returns the indexed text.
func (ix *Index) Text() string {
	return ix.text
}

// LineCount returns the number of lines. An empty text has one empty line.
func (ix *Index) LineCount() int {
	return len(ix.lines)
}

// RuneCount returns the total number of characters.
func (ix *Index) RuneCount() int {
	return ix.runes
}

// Line returns the content of line (1-based) without its line terminator.
func (ix *Index) Line(line int) (string, bool) {
	if line < 1 || line > len(ix.lines) {
		return "", false
	}
	start := ix.lines[line-1].ByteOffset
	end := len(ix.text)
	if line < len(ix.lines) {
		end = ix.lines[line].ByteOffset - 1
	}
	s := ix.text[start:end]
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s, true
}

// LineStartAt returns where line (1-based) begins.
func (ix *Index) LineStartAt(line int) (LineStart, bool) {
	if line < 1 || line > len(ix.lines) {
		return LineStart{}, false
	}
	return ix.lines[line-1], true
}

// LineLength returns the number of characters on line, excluding the
// terminator.
func (ix *Index) LineLength(line int) int {
	s, ok := ix.Line(line)
	if !ok {
		return 0
	}
	return utf8.RuneCountInString(s)
}

// LineCol converts a byte offset into a 1-based line and rune column.
// Offsets past the end clamp to the end of the text.
func (ix *Index) LineCol(byteOffset int) (line, col int) {
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(ix.text) {
		byteOffset = len(ix.text)
	}
	i := sort.Search(len(ix.lines), func(i int) bool {
		return ix.lines[i].ByteOffset > byteOffset
	}) - 1
	ls := ix.lines[i]
	return i + 1, utf8.RuneCountInString(ix.text[ls.ByteOffset:byteOffset]) + 1
}

// Offset converts a line and column into a rune offset. The column may point
// one past the last character of the line (the end-of-line position).
func (ix *Index) Offset(line, col int) (int, bool) {
	if line < 1 || line > len(ix.lines) || col < 1 {
		return 0, false
	}
	if col > ix.LineLength(line)+1 {
		return 0, false
	}
	return ix.lines[line-1].RuneOffset + col - 1, true
}

// LineAtOffset returns the 1-based line containing the rune offset.
func (ix *Index) LineAtOffset(runeOffset int) (int, bool) {
	if runeOffset < 0 || runeOffset > ix.runes {
		return 0, false
	}
	i := sort.Search(len(ix.lines), func(i int) bool {
		return ix.lines[i].RuneOffset > runeOffset
	}) - 1
	return i + 1, true
}

// Resolve turns a parser position into a range over this text. A position
// without an end resolves to an empty range at its start. Positions that do
// not fit the text (stale or not yet loaded) do not resolve.
func (ix *Index) Resolve(p Position) (Range, bool) {
	if !p.IsSet() {
		return Range{}, false
	}
	startCol := p.StartCol
	if startCol < 1 {
		startCol = 1
	}
	start, ok := ix.Offset(p.StartLine, startCol)
	if !ok {
		return Range{}, false
	}
	r := Range{
		StartLine:   p.StartLine,
		StartCol:    startCol,
		EndLine:     p.StartLine,
		EndCol:      startCol,
		StartOffset: start,
		EndOffset:   start,
	}
	if !p.HasEnd() {
		return r, true
	}
	end, ok := ix.Offset(p.EndLine, p.EndCol)
	if !ok || end < start {
		return Range{}, false
	}
	r.EndLine = p.EndLine
	r.EndCol = p.EndCol
	r.EndOffset = end
	return r, true
}

// ResolveLine returns a range covering the whole of line.
func (ix *Index) ResolveLine(line int) (Range, bool) {
	if line < 1 || line > len(ix.lines) {
		return Range{}, false
	}
	return ix.Resolve(Position{
		StartLine: line,
		StartCol:  1,
		EndLine:   line,
		EndCol:    ix.LineLength(line) + 1,
	})
}
