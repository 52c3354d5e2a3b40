package ui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/kvtree/internal/formatter"
)

var (
	borderColor      = lipgloss.Color("240")
	focusBorderColor = lipgloss.Color("12")
	gutterColor      = lipgloss.Color("244")
	rangeColor       = lipgloss.Color("11")
	statusColor      = lipgloss.Color("248")
	errorColor       = lipgloss.Color("9")
)

func paneStyle(focused, noColor bool) lipgloss.Style {
	s := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	if noColor {
		return s
	}
	if focused {
		return s.BorderForeground(focusBorderColor)
	}
	return s.BorderForeground(borderColor)
}

// Render draws the whole screen as a string.
func (m *Model) Render() string {
	h := m.bodyHeight()
	treeW, srcW := m.paneWidths()

	treePane := paneStyle(m.focus == PaneTree, m.NoColor).
		Render(strings.Join(m.treeLines(treeW-2, h), "\n"))
	body := treePane
	if srcW > 0 {
		srcPane := paneStyle(m.focus == PaneSource, m.NoColor).
			Render(strings.Join(m.sourceLines(srcW-2, h), "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, treePane, srcPane)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine())
}

// paneWidths splits the window between the panes. Without text the tree
// pane takes the full width.
func (m *Model) paneWidths() (int, int) {
	w := max(m.Width, 20)
	if !m.hasText() {
		return w, 0
	}
	tw := w / 2
	return tw, w - tw
}

func (m *Model) treeLines(width, height int) []string {
	view := m.ctrl.View()
	count := view.Count()
	sel, hasSel := m.ctrl.SelectedIndex()
	opts := formatter.OutlineOptions{Width: width, NoColor: m.NoColor}

	out := make([]string, 0, height)
	for i := m.top; i < count && len(out) < height; i++ {
		it, err := view.At(i)
		if err != nil {
			out = append(out, fmt.Sprintf("<%v>", err))
			break
		}
		row := formatter.Row(it, opts)
		if hasSel && i == sel {
			row = formatter.Highlight(pad(formatter.Row(it, formatter.OutlineOptions{Width: width, NoColor: true}), width), m.NoColor)
		}
		out = append(out, pad(row, width))
	}
	for len(out) < height {
		out = append(out, pad("", width))
	}
	return out
}

func (m *Model) sourceLines(width, height int) []string {
	ix := m.ctrl.Text()
	rng, hasRange := m.ctrl.Range()
	gutterW := len(fmt.Sprint(ix.LineCount()))
	gutter := lipgloss.NewStyle().Foreground(gutterColor)
	marker := lipgloss.NewStyle().Foreground(rangeColor)

	out := make([]string, 0, height)
	for line := m.srcTop + 1; line <= ix.LineCount() && len(out) < height; line++ {
		text, _ := ix.Line(line)
		text = strings.ReplaceAll(text, "\t", "    ")
		mark := " "
		if hasRange && line >= rng.StartLine && line <= rng.EndLine {
			mark = "▌"
		}
		num := fmt.Sprintf("%*d", gutterW, line)
		body := runewidth.Truncate(text, max(width-gutterW-2, 1), "")
		if line == m.caret {
			num = fmt.Sprintf("%*s", gutterW, ">")
		}
		if m.NoColor {
			out = append(out, pad(num+mark+" "+body, width))
			continue
		}
		row := gutter.Render(num) + marker.Render(mark) + " " + body
		if line == m.caret && m.focus == PaneSource {
			row = gutter.Render(num) + marker.Render(mark) + " " + formatter.Highlight(pad(body, width-gutterW-2), false)
		}
		out = append(out, pad(row, width))
	}
	for len(out) < height {
		out = append(out, pad("", width))
	}
	return out
}

func (m *Model) statusLine() string {
	if m.searching {
		return m.searchInput.View()
	}
	style := lipgloss.NewStyle().Foreground(statusColor)
	msg := m.status
	if m.err != nil {
		style = lipgloss.NewStyle().Foreground(errorColor)
		msg = "error: " + m.err.Error()
	}
	if msg == "" {
		msg = m.selectionSummary()
	}
	line := fmt.Sprintf("%s [%s] %s", m.AppName, m.focus, msg)
	line = runewidth.Truncate(line, max(m.Width, 20), "...")
	if m.NoColor {
		return line
	}
	return style.Render(line)
}

func (m *Model) selectionSummary() string {
	n := m.ctrl.Selected()
	if n == nil {
		return "tab: switch pane  /: search  q: quit"
	}
	path, err := m.ctrl.Path()
	if err != nil {
		path = n.Label()
	}
	s := fmt.Sprintf("%s  %s", path, n.Kind())
	if n.TypeName() != "" {
		s += " " + n.TypeName()
	}
	if line := n.Line(); line > 0 {
		s += fmt.Sprintf("  line %d", line)
	}
	return s
}

// pad fills s with spaces up to width cells, ignoring ANSI sequences.
func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
