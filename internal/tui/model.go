// Package tui provides an interactive address picker.
package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/search"
)

// headerFooterLines is the number of lines used by the input, status and
// help rows.
const headerFooterLines = 3

// Options configures the picker.
type Options struct {
	Query   search.Query // initial pattern and flags
	Version string
}

// Model is the bubbletea model for the picker.
type Model struct {
	input    textinput.Model
	records  []rank.Ranked
	filtered []rank.Ranked
	fuzzy    bool
	ignore   bool

	cursor int
	offset int // first visible row

	width    int
	height   int
	pageSize int

	chosen   *rank.Ranked
	quitting bool
	version  string
}

// New creates a picker over records, which must already be ranked.
func New(records []rank.Ranked, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type to filter"
	ti.SetValue(opts.Query.Pattern)
	ti.Focus()

	m := Model{
		input:    ti,
		records:  records,
		fuzzy:    opts.Query.Fuzzy,
		ignore:   opts.Query.IgnoreCase,
		pageSize: 10,
		version:  opts.Version,
	}
	m.refilter()
	return m
}

func (m Model) query() search.Query {
	return search.Query{Pattern: m.input.Value(), Fuzzy: m.fuzzy, IgnoreCase: m.ignore}
}

func (m *Model) refilter() {
	m.filtered = search.Filter(m.records, m.query())
	m.cursor = 0
	m.offset = 0
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = max(msg.Width, 0)
	m.height = max(msg.Height, 0)
	m.pageSize = max(m.height-headerFooterLines, 1)
	m.clampScroll()
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if len(m.filtered) > 0 {
			r := m.filtered[m.cursor]
			m.chosen = &r
		}
		m.quitting = true
		return m, tea.Quit
	case "up", "ctrl+p":
		m.moveCursor(-1)
		return m, nil
	case "down", "ctrl+n":
		m.moveCursor(1)
		return m, nil
	case "pgup":
		m.moveCursor(-m.pageSize)
		return m, nil
	case "pgdown":
		m.moveCursor(m.pageSize)
		return m, nil
	case "ctrl+f":
		m.fuzzy = !m.fuzzy
		m.refilter()
		return m, nil
	case "tab":
		m.ignore = !m.ignore
		m.refilter()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refilter()
	}
	return m, cmd
}

func (m *Model) moveCursor(delta int) {
	if len(m.filtered) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.filtered)-1)
	m.clampScroll()
}

// clampScroll keeps the cursor inside the visible window.
func (m *Model) clampScroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.pageSize {
		m.offset = m.cursor - m.pageSize + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// Selected returns the record chosen with enter, if any.
func (m Model) Selected() (rank.Ranked, bool) {
	if m.chosen == nil {
		return rank.Ranked{}, false
	}
	return *m.chosen, true
}

// Run starts the picker on the alternate screen, drawing to out, and
// returns the chosen record.
func Run(records []rank.Ranked, opts Options, in io.Reader, out io.Writer) (rank.Ranked, bool, error) {
	p := tea.NewProgram(New(records, opts),
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return rank.Ranked{}, false, fmt.Errorf("run picker: %w", err)
	}
	r, ok := final.(Model).Selected()
	return r, ok, nil
}
