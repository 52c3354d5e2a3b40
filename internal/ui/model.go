// Package ui is the interactive terminal host: a tree pane driven by the
// flattened view and a source pane showing the raw text, kept in step by the
// selection controller.
package ui

import (
	"errors"
	"fmt"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/kvtree/internal/search"
	"github.com/oakwood-commons/kvtree/internal/selection"
)

// Pane identifies which pane receives navigation keys.
type Pane int

const (
	PaneTree Pane = iota
	PaneSource
)

func (p Pane) String() string {
	if p == PaneSource {
		return "source"
	}
	return "tree"
}

const (
	defaultWidth  = 80
	defaultHeight = 24
	// chromeRows is the height taken by pane borders and the status line.
	chromeRows = 3
)

// Model is the Bubble Tea model. The controller and the view it drives are
// owned by the program goroutine once the model is running.
type Model struct {
	ctrl *selection.Controller

	Width   int
	Height  int
	NoColor bool
	AppName string

	focus Pane
	// top is the first visible tree row.
	top int
	// srcTop is the first visible source line; caret is the caret line.
	srcTop int
	caret  int
	// caretDriven is set while a caret move is reported to the controller;
	// the range it echoes back must not move the caret.
	caretDriven bool

	searchInput textinput.Model
	searching   bool
	lastSearch  string

	status string
	err    error

	unsubscribe func()
}

// Option configures a Model.
type Option func(*Model)

// WithSize sets the initial window size.
func WithSize(width, height int) Option {
	return func(m *Model) {
		m.Width, m.Height = width, height
	}
}

// WithNoColor disables styling.
func WithNoColor(noColor bool) Option {
	return func(m *Model) {
		m.NoColor = noColor
	}
}

// WithAppName sets the title shown in the status line.
func WithAppName(name string) Option {
	return func(m *Model) {
		m.AppName = name
	}
}

// New returns a model over ctrl. The first visible node is selected when the
// controller has no selection.
func New(ctrl *selection.Controller, opts ...Option) *Model {
	si := textinput.New()
	si.Placeholder = "name, text or CEL predicate (e.g. kind == 'String' && depth > 1)"
	si.CharLimit = 500
	si.Prompt = "/"

	m := &Model{
		ctrl:        ctrl,
		Width:       defaultWidth,
		Height:      defaultHeight,
		AppName:     "kvtree",
		caret:       1,
		searchInput: si,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = ctrl.Subscribe(m.onEvent)
	if ctrl.Selected() == nil && ctrl.View().Count() > 0 {
		_ = ctrl.SelectIndex(0)
	}
	return m
}

// Close detaches the model from the controller.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Focus returns the pane receiving navigation keys.
func (m *Model) Focus() Pane { return m.focus }

// Caret returns the source caret line.
func (m *Model) Caret() int { return m.caret }

// Status returns the status line message.
func (m *Model) Status() string { return m.status }

// onEvent follows the controller: a new text range moves the caret to its
// first line.
func (m *Model) onEvent(e selection.Event) {
	if e.Kind == selection.EventSelectedRange && e.HasRange && !m.caretDriven {
		m.caret = e.Range.StartLine
		m.scrollSourceTo(m.caret)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.searchInput.SetWidth(max(m.Width-4, 10))
		m.followSelection()
		return m, nil

	case tea.KeyMsg:
		keyStr := msg.String()
		if keyStr == "ctrl+c" {
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg, keyStr)
		}
		m.err, m.status = nil, ""
		switch keyStr {
		case "q":
			return m, tea.Quit
		case "tab":
			m.toggleFocus()
			return m, nil
		case "/":
			m.searching = true
			m.searchInput.SetValue("")
			return m, m.searchInput.Focus()
		case "n":
			m.runSearch(m.lastSearch)
			return m, nil
		}
		if m.focus == PaneSource {
			m.handleSourceKey(keyStr)
		} else {
			m.handleTreeKey(keyStr)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg, keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.runSearch(m.searchInput.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) runSearch(expr string) {
	if expr == "" {
		return
	}
	m.lastSearch = expr
	n, err := m.ctrl.Search(expr)
	switch {
	case errors.Is(err, search.ErrNoMatch):
		m.status = fmt.Sprintf("no match for %q", expr)
	case err != nil:
		m.err = err
	default:
		m.status = fmt.Sprintf("match: %s", n.Label())
		m.followSelection()
	}
}

func (m *Model) toggleFocus() {
	if m.focus == PaneTree && m.hasText() {
		m.focus = PaneSource
		return
	}
	m.focus = PaneTree
}

func (m *Model) handleTreeKey(keyStr string) {
	switch keyStr {
	case "pgdown", "ctrl+d":
		m.movePage(1)
		return
	case "pgup", "ctrl+u":
		m.movePage(-1)
		return
	}
	k, ok := selection.ParseKey(keyStr)
	if !ok {
		return
	}
	if m.ctrl.HandleKey(k) {
		m.followSelection()
	}
}

func (m *Model) movePage(dir int) {
	count := m.ctrl.View().Count()
	if count == 0 {
		return
	}
	i, _ := m.ctrl.SelectedIndex()
	i = min(max(i+dir*m.bodyHeight(), 0), count-1)
	if err := m.ctrl.SelectIndex(i); err != nil {
		m.err = err
		return
	}
	m.followSelection()
}

func (m *Model) handleSourceKey(keyStr string) {
	ix := m.ctrl.Text()
	if ix == nil {
		return
	}
	lines := ix.LineCount()
	caret := m.caret
	switch keyStr {
	case "down", "j":
		caret++
	case "up", "k":
		caret--
	case "pgdown", "ctrl+d":
		caret += m.bodyHeight()
	case "pgup", "ctrl+u":
		caret -= m.bodyHeight()
	case "home", "g":
		caret = 1
	case "end", "G":
		caret = lines
	default:
		return
	}
	caret = min(max(caret, 1), max(lines, 1))
	if caret == m.caret {
		return
	}
	m.caret = caret
	m.scrollSourceTo(caret)
	m.caretDriven = true
	m.ctrl.CaretMoved(caret)
	m.caretDriven = false
	m.followSelection()
}

func (m *Model) hasText() bool {
	ix := m.ctrl.Text()
	return ix != nil && ix.RuneCount() > 0
}

// bodyHeight is the number of content rows inside a pane.
func (m *Model) bodyHeight() int {
	return max(m.Height-chromeRows, 1)
}

// followSelection scrolls the tree pane so the selected row is visible.
func (m *Model) followSelection() {
	i, ok := m.ctrl.SelectedIndex()
	if !ok {
		return
	}
	h := m.bodyHeight()
	switch {
	case i < m.top:
		m.top = i
	case i >= m.top+h:
		m.top = i - h + 1
	}
	if count := m.ctrl.View().Count(); m.top > max(count-h, 0) {
		m.top = max(count-h, 0)
	}
}

func (m *Model) scrollSourceTo(line int) {
	h := m.bodyHeight()
	top := m.srcTop + 1
	switch {
	case line < top:
		m.srcTop = line - 1
	case line >= top+h:
		m.srcTop = line - h
	}
	m.srcTop = max(m.srcTop, 0)
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	return v
}
