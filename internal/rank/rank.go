// Package rank orders aggregated addresses by frequency.
package rank

import (
	"cmp"
	"slices"
	"strings"

	"github.com/wesm/mailaddrs/internal/aggregate"
)

// Ranked is one address with its most frequent display name.
type Ranked struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Total   uint64 `json:"total"`
}

// Rank builds the ranked list from a frozen snapshot. Records are sorted by
// Total descending, then by address ascending.
func Rank(snap *aggregate.Snapshot) []Ranked {
	out := make([]Ranked, 0, snap.Len())
	snap.Range(func(addr string, rec *aggregate.Record) bool {
		out = append(out, Ranked{Address: addr, Name: BestName(rec.Names), Total: rec.Total})
		return true
	})
	slices.SortFunc(out, func(a, b Ranked) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Address, b.Address)
	})
	return out
}

// BestName picks the display name with the highest count. Ties prefer a
// non-empty name, then the lexically smallest.
func BestName(names map[string]uint64) string {
	var best string
	var bestN uint64
	found := false
	for name, n := range names {
		if !found || betterName(name, n, best, bestN) {
			best, bestN, found = name, n, true
		}
	}
	return best
}

func betterName(name string, n uint64, best string, bestN uint64) bool {
	if n != bestN {
		return n > bestN
	}
	if (name == "") != (best == "") {
		return best == ""
	}
	return name < best
}

// specials are the RFC 5322 characters that force a quoted display name.
const specials = `()<>[]:;@\,."`

// String formats the record as "Name <address>", or the bare address when
// there is no display name.
func (r Ranked) String() string {
	if r.Name == "" {
		return r.Address
	}
	return quoteName(r.Name) + " <" + r.Address + ">"
}

// Mutt formats the record as a mutt query_command line: address, tab, name.
func (r Ranked) Mutt() string {
	return r.Address + "\t" + r.Name
}

func quoteName(name string) string {
	if !strings.ContainsAny(name, specials) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte('"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' || name[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(name[i])
	}
	b.WriteByte('"')
	return b.String()
}
