package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/wesm/mailaddrs/internal/search"
)

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It restores the original profile via t.Cleanup.
// WARNING: This mutates a global. Tests using this helper must NOT use t.Parallel().
func forceColorProfile(t *testing.T) {
	t.Helper()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() { lipgloss.SetColorProfile(orig) })
}

func stripANSI(s string) string {
	return ansi.Strip(s)
}

func TestApplyHighlight(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		query    search.Query
		wantText string // expected text content after stripping ANSI
		wantHas  string // substring that must appear in raw output (with ANSI)
	}{
		{
			name:     "empty pattern",
			text:     "hello world",
			wantText: "hello world",
		},
		{
			name:     "substring",
			text:     "hello world",
			query:    search.Query{Pattern: "world"},
			wantText: "hello world",
			wantHas:  "\x1b[",
		},
		{
			name:     "case insensitive",
			text:     "Hello World",
			query:    search.Query{Pattern: "hello", IgnoreCase: true},
			wantText: "Hello World",
			wantHas:  "\x1b[",
		},
		{
			name:     "case sensitive miss",
			text:     "Hello World",
			query:    search.Query{Pattern: "hello"},
			wantText: "Hello World",
		},
		{
			name:     "fuzzy scattered runes",
			text:     "jane@example.com",
			query:    search.Query{Pattern: "jxc", Fuzzy: true},
			wantText: "jane@example.com",
			wantHas:  "\x1b[",
		},
		{
			name:     "unicode text",
			text:     "café résumé",
			query:    search.Query{Pattern: "résumé"},
			wantText: "café résumé",
			wantHas:  "\x1b[",
		},
		{
			name:     "unicode case folding",
			text:     "Ünïcödé",
			query:    search.Query{Pattern: "ünïcödé", IgnoreCase: true},
			wantText: "Ünïcödé",
			wantHas:  "\x1b[",
		},
		{
			name:     "CJK characters",
			text:     "hello 世界 world",
			query:    search.Query{Pattern: "世界"},
			wantText: "hello 世界 world",
			wantHas:  "\x1b[",
		},
		{
			name:     "empty text",
			text:     "",
			query:    search.Query{Pattern: "hello"},
			wantText: "",
		},
		{
			name:     "no match",
			text:     "hello world",
			query:    search.Query{Pattern: "xyz", Fuzzy: true},
			wantText: "hello world",
		},
	}

	forceColorProfile(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := applyHighlight(tt.text, tt.query)
			stripped := stripANSI(result)
			if stripped != tt.wantText {
				t.Errorf("text content mismatch:\n  got:  %q\n  want: %q", stripped, tt.wantText)
			}
			if tt.wantHas != "" {
				if !strings.Contains(result, tt.wantHas) {
					t.Errorf("expected raw output to contain %q, got %q", tt.wantHas, result)
				}
			}
		})
	}
}

func TestApplyHighlightProducesOutput(t *testing.T) {
	forceColorProfile(t)

	result := applyHighlight("hello world", search.Query{Pattern: "world"})
	if result == "hello world" {
		t.Errorf("expected styled output to differ from input, got unchanged: %q", result)
	}
	if !strings.Contains(result, "world") {
		t.Errorf("highlighted output missing matched text: %q", result)
	}

	result = applyHighlight("hello world", search.Query{Pattern: "xyz"})
	if result != "hello world" {
		t.Errorf("expected unchanged output for no match, got: %q", result)
	}
}

func TestApplyHighlightFuzzyRuns(t *testing.T) {
	forceColorProfile(t)

	// "jxc" matches three separate runes, so three styled runs are emitted.
	result := applyHighlight("jane@example.com", search.Query{Pattern: "jxc", Fuzzy: true})
	if got := strings.Count(result, "\x1b[0m"); got != 3 {
		t.Errorf("got %d styled runs, want 3: %q", got, result)
	}
}

func TestView_RowsFitWidth(t *testing.T) {
	forceColorProfile(t)

	m := sized(t, New(testRecords, Options{}), 40, 8)
	for i, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > 40 {
			t.Errorf("line %d width %d > 40: %q", i, w, stripANSI(line))
		}
	}
}

func TestView_WideNamesAligned(t *testing.T) {
	m := sized(t, New(testRecords, Options{}), 120, 10)
	view := stripANSI(m.View())

	// Every row puts its address at the same display column.
	col := -1
	for _, line := range strings.Split(view, "\n") {
		at := strings.Index(line, "@")
		if at < 0 || strings.Contains(line, "/") {
			continue
		}
		start := strings.LastIndex(line[:at], " ") + 1
		w := ansi.StringWidth(line[:start])
		if col == -1 {
			col = w
		} else if w != col {
			t.Errorf("address column at %d, want %d in %q", w, col, line)
		}
	}
	if col == -1 {
		t.Fatalf("no rows rendered:\n%s", view)
	}
}

func TestView_Status(t *testing.T) {
	m := sized(t, New(testRecords, Options{Query: search.Query{Pattern: "example.com"}}), 80, 10)
	view := stripANSI(m.View())
	if !strings.Contains(view, "2/4") {
		t.Errorf("status missing 2/4:\n%s", view)
	}

	m = sized(t, New(testRecords, Options{Query: search.Query{Pattern: "zzz"}}), 80, 10)
	if view := stripANSI(m.View()); !strings.Contains(view, "no matches") {
		t.Errorf("expected no matches message:\n%s", view)
	}
}

func TestView_LoadingAndQuit(t *testing.T) {
	m := New(testRecords, Options{})
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() before size = %q, want Loading...", got)
	}
	m = sized(t, m, 80, 10)
	m = press(t, m, keyEsc())
	if got := m.View(); got != "" {
		t.Errorf("View() after quit = %q, want empty", got)
	}
}
