// Package search filters ranked addresses by exact or fuzzy patterns.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wesm/mailaddrs/internal/rank"
)

// Query is a search request. An empty Pattern matches everything.
type Query struct {
	Pattern    string `json:"pattern"`
	Fuzzy      bool   `json:"fuzzy"`
	IgnoreCase bool   `json:"ignore_case"`
}

// Matcher reports whether a candidate string matches a query.
type Matcher interface {
	Match(candidate string) bool
}

// NewMatcher compiles q. Exact matching looks for a contiguous substring;
// fuzzy matching looks for the pattern's runes in order, not necessarily
// adjacent. With IgnoreCase both sides are lower-cased first.
func NewMatcher(q Query) Matcher {
	pattern := q.Pattern
	if q.IgnoreCase {
		pattern = fold(pattern)
	}
	if q.Fuzzy {
		return subsequenceMatcher{pattern: []rune(pattern), fold: q.IgnoreCase}
	}
	return substringMatcher{pattern: pattern, fold: q.IgnoreCase}
}

type substringMatcher struct {
	pattern string
	fold    bool
}

func (m substringMatcher) Match(candidate string) bool {
	if m.fold {
		candidate = fold(candidate)
	}
	return strings.Contains(candidate, m.pattern)
}

type subsequenceMatcher struct {
	pattern []rune
	fold    bool
}

func (m subsequenceMatcher) Match(candidate string) bool {
	if len(m.pattern) == 0 {
		return true
	}
	if m.fold {
		candidate = fold(candidate)
	}
	pi := 0
	for _, r := range candidate {
		if r == m.pattern[pi] {
			pi++
			if pi == len(m.pattern) {
				return true
			}
		}
	}
	return false
}

// indexes returns the rune positions in candidate matched by the pattern,
// appended to dst, or nil when there is no match.
func (m subsequenceMatcher) indexes(candidate string, dst []int) []int {
	if m.fold {
		candidate = fold(candidate)
	}
	if len(m.pattern) == 0 {
		return dst
	}
	pi := 0
	pos := 0
	for _, r := range candidate {
		if r == m.pattern[pi] {
			dst = append(dst, pos)
			pi++
			if pi == len(m.pattern) {
				return dst
			}
		}
		pos++
	}
	return nil
}

// Filter returns the records whose address or display name matches q, in
// their original order.
func Filter(records []rank.Ranked, q Query) []rank.Ranked {
	if q.Pattern == "" {
		return records
	}
	m := NewMatcher(q)
	out := make([]rank.Ranked, 0, len(records))
	for _, r := range records {
		if m.Match(r.Address) || m.Match(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

// MatchIndexes returns the rune positions of candidate covered by the first
// match of q, for highlighting. It returns nil when q does not match or the
// pattern is empty.
func MatchIndexes(candidate string, q Query) []int {
	if q.Pattern == "" {
		return nil
	}
	switch m := NewMatcher(q).(type) {
	case subsequenceMatcher:
		return m.indexes(candidate, make([]int, 0, len(m.pattern)))
	case substringMatcher:
		hay := candidate
		if m.fold {
			hay = fold(hay)
		}
		byteIdx := strings.Index(hay, m.pattern)
		if byteIdx < 0 {
			return nil
		}
		start := utf8.RuneCountInString(hay[:byteIdx])
		n := utf8.RuneCountInString(m.pattern)
		idx := make([]int, n)
		for i := range idx {
			idx[i] = start + i
		}
		return idx
	}
	return nil
}

// fold lower-cases s rune by rune, so rune positions stay aligned with the
// original string.
func fold(s string) string {
	return strings.Map(unicode.ToLower, s)
}
