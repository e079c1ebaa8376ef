package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/search"
)

const (
	maxNameWidth = 30
	ellipsis     = "…"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(ansi.Truncate(m.input.View(), m.width, ""))
	b.WriteByte('\n')
	b.WriteString(m.statusView())
	b.WriteByte('\n')
	b.WriteString(m.listView())
	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) statusView() string {
	mode := func(name string, on bool) string {
		if on {
			return modeOnStyle.Render(name)
		}
		return statusStyle.Render(name)
	}
	line := fmt.Sprintf("%s %s %s",
		statusStyle.Render(fmt.Sprintf("%d/%d", len(m.filtered), len(m.records))),
		mode("fuzzy", m.fuzzy),
		mode("ignore-case", m.ignore))
	return ansi.Truncate(line, m.width, ellipsis)
}

func (m Model) listView() string {
	if len(m.filtered) == 0 {
		return statusStyle.Render("  no matches") + "\n" + strings.Repeat("\n", m.pageSize-1)
	}

	countWidth := len(strconv.FormatUint(m.filtered[0].Total, 10))
	nameWidth := min(maxNameWidth, m.width/3)
	q := m.query()

	var b strings.Builder
	end := min(m.offset+m.pageSize, len(m.filtered))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.rowView(m.filtered[i], i == m.cursor, countWidth, nameWidth, q))
		b.WriteByte('\n')
	}
	for i := end - m.offset; i < m.pageSize; i++ {
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) rowView(r rank.Ranked, selected bool, countWidth, nameWidth int, q search.Query) string {
	prefix := "  "
	if selected {
		prefix = cursorStyle.Render("> ")
	}
	count := countStyle.Render(fmt.Sprintf("%*d", countWidth, r.Total))

	name := runewidth.Truncate(r.Name, nameWidth, ellipsis)
	pad := strings.Repeat(" ", max(nameWidth-runewidth.StringWidth(name), 0))

	row := prefix + count + "  " + applyHighlight(name, q) + pad + "  " + applyHighlight(r.Address, q)
	return ansi.Truncate(row, m.width, ellipsis)
}

func (m Model) helpView() string {
	help := "enter select · esc quit · ↑/↓ move · ctrl+f fuzzy · tab ignore-case"
	if m.version != "" {
		help += " · " + m.version
	}
	return helpStyle.Render(ansi.Truncate(help, m.width, ellipsis))
}

// applyHighlight renders the runes of text matched by q in the highlight
// style. Text without a match is returned unchanged.
func applyHighlight(text string, q search.Query) string {
	idx := search.MatchIndexes(text, q)
	if len(idx) == 0 {
		return text
	}

	matched := make(map[int]bool, len(idx))
	for _, i := range idx {
		matched[i] = true
	}

	var b, run strings.Builder
	inMatch := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if inMatch {
			b.WriteString(highlightStyle.Render(run.String()))
		} else {
			b.WriteString(run.String())
		}
		run.Reset()
	}
	i := 0
	for _, r := range text {
		if matched[i] != inMatch {
			flush()
			inMatch = matched[i]
		}
		run.WriteRune(r)
		i++
	}
	flush()
	return b.String()
}
