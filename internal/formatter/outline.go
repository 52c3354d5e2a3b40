package formatter

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/kvtree/internal/flatten"
	"github.com/oakwood-commons/kvtree/internal/limiter"
	"github.com/oakwood-commons/kvtree/internal/tree"
)

const (
	markerExpanded  = "▾"
	markerCollapsed = "▸"
	markerLeaf      = "•"

	defaultIndent = 2
)

// OutlineOptions controls outline rendering.
type OutlineOptions struct {
	// Width truncates rows to this many terminal cells (0 = no truncation).
	Width int
	// Indent is the number of spaces per depth level (default 2).
	Indent int
	// NoColor disables lipgloss styling.
	NoColor bool
	// ShowTypes appends the type label to every row.
	ShowTypes bool
	// Window selects a limit/offset/tail range of rows.
	Window limiter.Config
}

// Marker returns the outline marker for a node.
func Marker(n *tree.Node) string {
	switch {
	case !n.HasChildren():
		return markerLeaf
	case n.Expanded():
		return markerExpanded
	default:
		return markerCollapsed
	}
}

type piece struct {
	text  string
	style *lipgloss.Style
}

// Row renders one visible item as a single outline line.
func Row(it flatten.Item, opts OutlineOptions) string {
	n := it.Node
	indent := opts.Indent
	if indent <= 0 {
		indent = defaultIndent
	}
	vs := valueStyle(n.Kind(), n.Display())
	pieces := []piece{
		{text: strings.Repeat(" ", it.Depth*indent)},
		{text: Marker(n) + " ", style: &markerStyle},
	}
	if n.Name() != "" {
		name := n.Name()
		if n.Display() != "" {
			name += ": "
		}
		pieces = append(pieces, piece{text: name, style: &nameStyle})
	}
	pieces = append(pieces, piece{text: n.Display(), style: &vs})
	if opts.ShowTypes && n.TypeName() != "" {
		pieces = append(pieces, piece{text: "  " + n.TypeName(), style: &typeStyle})
	}
	return render(pieces, opts.Width, opts.NoColor)
}

// render joins pieces, cutting the line at width cells. A cut line keeps a
// prefix of the plain text and ends in an ellipsis styled like the piece it
// interrupts.
func render(pieces []piece, width int, noColor bool) string {
	var plain strings.Builder
	for _, p := range pieces {
		plain.WriteString(p.text)
	}
	line := plain.String()
	keep, tail := len(line), ""
	if cut := truncate(line, width); cut != line {
		keep = len(strings.TrimSuffix(cut, ellipsis))
		tail = cut[keep:]
	}

	var b strings.Builder
	var last *lipgloss.Style
	for _, p := range pieces {
		if keep <= 0 {
			break
		}
		text := p.text
		if len(text) > keep {
			text = text[:keep]
		}
		keep -= len(text)
		last = p.style
		b.WriteString(styled(text, p.style, noColor))
	}
	b.WriteString(styled(tail, last, noColor))
	return b.String()
}

func styled(text string, style *lipgloss.Style, noColor bool) string {
	if noColor || style == nil || text == "" {
		return text
	}
	return style.Render(text)
}

// RenderOutline renders the rows of v selected by opts.Window, one per line.
// Hidden rows are summarized after the window.
func RenderOutline(v *flatten.View, opts OutlineOptions) (string, error) {
	if err := opts.Window.Validate(); err != nil {
		return "", err
	}
	total := v.Count()
	start, end := opts.Window.Window(total)
	var b strings.Builder
	for i := start; i < end; i++ {
		it, err := v.At(i)
		if err != nil {
			return "", fmt.Errorf("render row %d: %w", i, err)
		}
		b.WriteString(Row(it, opts))
		b.WriteByte('\n')
	}
	if before, after := opts.Window.Hidden(total); before+after > 0 {
		fmt.Fprintf(&b, "(showing rows %d-%d of %d)\n", start+1, end, total)
	}
	return b.String(), nil
}

// Highlight renders s with the selected-row style.
func Highlight(s string, noColor bool) string {
	if noColor {
		return s
	}
	return selectedStyle.Render(s)
}
