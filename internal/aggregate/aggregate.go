// Package aggregate counts address occurrences and their display names
// across concurrent writers.
package aggregate

import (
	"errors"
	"hash/maphash"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

const shardCount = 64

var (
	// ErrEmptyAddress is returned for an address that is empty after
	// normalization.
	ErrEmptyAddress = errors.New("empty address")
	// ErrFrozen is returned by Record after Freeze.
	ErrFrozen = errors.New("aggregator is frozen")
)

// Record holds the counts for one normalized address. Total is always the
// sum of Names; a missing display name is counted under "".
type Record struct {
	Names map[string]uint64
	Total uint64
}

func (r *Record) clone() *Record {
	c := &Record{Names: make(map[string]uint64, len(r.Names)), Total: r.Total}
	for name, n := range r.Names {
		c.Names[name] = n
	}
	return c
}

type shard struct {
	mu      sync.Mutex
	records map[string]*Record
}

// Aggregator merges address entries from many goroutines. The zero value is
// not usable; call New.
type Aggregator struct {
	seed   maphash.Seed
	shards [shardCount]shard
	frozen atomic.Bool
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{seed: maphash.MakeSeed()}
}

// Normalize returns the aggregation key for an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Record counts one occurrence of address with the given display name.
func (a *Aggregator) Record(address, name string) error {
	key := Normalize(address)
	if key == "" {
		return ErrEmptyAddress
	}

	s := &a.shards[maphash.String(a.seed, key)%shardCount]
	s.mu.Lock()
	defer s.mu.Unlock()
	// Checked under the shard lock so Freeze never misses a write.
	if a.frozen.Load() {
		return ErrFrozen
	}
	if s.records == nil {
		s.records = make(map[string]*Record)
	}
	rec := s.records[key]
	if rec == nil {
		rec = &Record{Names: make(map[string]uint64, 1)}
		s.records[key] = rec
	}
	rec.Names[name]++
	rec.Total++
	return nil
}

// Freeze stops further recording and returns an immutable copy of the
// counts. Records in progress on other goroutines complete first. Calling
// Freeze again returns an equal snapshot.
func (a *Aggregator) Freeze() *Snapshot {
	a.frozen.Store(true)

	snap := &Snapshot{records: make(map[string]*Record)}
	for i := range a.shards {
		s := &a.shards[i]
		s.mu.Lock()
		for key, rec := range s.records {
			snap.records[key] = rec.clone()
		}
		s.mu.Unlock()
	}
	return snap
}

// Snapshot is the frozen result of an aggregation. It is safe for
// concurrent reads.
type Snapshot struct {
	records map[string]*Record
}

// Len returns the number of distinct addresses.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Get returns a copy of the record for address, which is normalized first.
func (s *Snapshot) Get(address string) (Record, bool) {
	rec, ok := s.records[Normalize(address)]
	if !ok {
		return Record{}, false
	}
	return *rec.clone(), true
}

// Addresses returns every normalized address in ascending order.
func (s *Snapshot) Addresses() []string {
	addrs := make([]string, 0, len(s.records))
	for addr := range s.records {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)
	return addrs
}

// Range calls fn for each address in unspecified order until fn returns
// false. fn must not modify rec.
func (s *Snapshot) Range(fn func(address string, rec *Record) bool) {
	for addr, rec := range s.records {
		if !fn(addr, rec) {
			return
		}
	}
}

// Entries returns the total number of occurrences recorded.
func (s *Snapshot) Entries() uint64 {
	var n uint64
	for _, rec := range s.records {
		n += rec.Total
	}
	return n
}
