package aggregate

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type entry struct{ addr, name string }

// snapshotMap flattens a snapshot for comparison.
func snapshotMap(s *Snapshot) map[string]Record {
	out := make(map[string]Record, s.Len())
	s.Range(func(addr string, rec *Record) bool {
		out[addr] = *rec
		return true
	})
	return out
}

func TestRecord_CountsAndNormalizes(t *testing.T) {
	a := New()
	for _, e := range []entry{
		{"jane@example.com", "Jane Doe"},
		{" Jane@Example.COM ", "Jane Doe"},
		{"jane@example.com", "J Doe"},
		{"jane@example.com", ""},
		{"bob@example.org", ""},
	} {
		if err := a.Record(e.addr, e.name); err != nil {
			t.Fatalf("Record(%q, %q) error = %v", e.addr, e.name, err)
		}
	}

	snap := a.Freeze()
	want := map[string]Record{
		"jane@example.com": {Names: map[string]uint64{"Jane Doe": 2, "J Doe": 1, "": 1}, Total: 4},
		"bob@example.org":  {Names: map[string]uint64{"": 1}, Total: 1},
	}
	if diff := cmp.Diff(want, snapshotMap(snap)); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if got := snap.Entries(); got != 5 {
		t.Errorf("Entries() = %d, want 5", got)
	}
}

func TestRecord_EmptyAddress(t *testing.T) {
	a := New()
	for _, addr := range []string{"", "   ", "\t"} {
		if err := a.Record(addr, "x"); !errors.Is(err, ErrEmptyAddress) {
			t.Errorf("Record(%q) error = %v, want ErrEmptyAddress", addr, err)
		}
	}
	if n := a.Freeze().Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestRecord_AfterFreeze(t *testing.T) {
	a := New()
	if err := a.Record("a@example.com", ""); err != nil {
		t.Fatal(err)
	}
	snap := a.Freeze()
	if err := a.Record("a@example.com", ""); !errors.Is(err, ErrFrozen) {
		t.Errorf("Record() after Freeze error = %v, want ErrFrozen", err)
	}
	rec, _ := snap.Get("a@example.com")
	if rec.Total != 1 {
		t.Errorf("Total = %d, want 1", rec.Total)
	}
	if diff := cmp.Diff(snapshotMap(snap), snapshotMap(a.Freeze())); diff != "" {
		t.Errorf("second Freeze differs (-first +second):\n%s", diff)
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	a := New()
	_ = a.Record("a@example.com", "A")
	snap := a.Freeze()

	rec, ok := snap.Get("A@EXAMPLE.COM")
	if !ok {
		t.Fatal("Get() did not normalize its argument")
	}
	rec.Names["A"] = 99
	again, _ := snap.Get("a@example.com")
	if again.Names["A"] != 1 {
		t.Errorf("Get() returned shared state: count = %d", again.Names["A"])
	}
	if _, ok := snap.Get("missing@example.com"); ok {
		t.Error("Get() found a missing address")
	}
}

func TestSnapshot_Addresses(t *testing.T) {
	a := New()
	for _, addr := range []string{"c@x", "a@x", "B@x", "a@x"} {
		_ = a.Record(addr, "")
	}
	got := a.Freeze().Addresses()
	want := []string{"a@x", "b@x", "c@x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Addresses() mismatch (-want +got):\n%s", diff)
	}
}

// TestRecord_OrderIndependence feeds the same multiset of entries in
// different interleavings and checks the snapshots are identical.
func TestRecord_OrderIndependence(t *testing.T) {
	var entries []entry
	for i := 0; i < 2000; i++ {
		addr := fmt.Sprintf("user%d@example.com", i%97)
		if i%3 == 0 {
			addr = fmt.Sprintf("USER%d@EXAMPLE.COM", i%97)
		}
		entries = append(entries, entry{addr, fmt.Sprintf("Name %d", i%5)})
	}

	sequential := New()
	for _, e := range entries {
		if err := sequential.Record(e.addr, e.name); err != nil {
			t.Fatal(err)
		}
	}
	want := snapshotMap(sequential.Freeze())

	for seed := int64(1); seed <= 3; seed++ {
		shuffled := append([]entry(nil), entries...)
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		a := New()
		var wg sync.WaitGroup
		const writers = 8
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := w; i < len(shuffled); i += writers {
					if err := a.Record(shuffled[i].addr, shuffled[i].name); err != nil {
						t.Errorf("Record() error = %v", err)
					}
				}
			}(w)
		}
		wg.Wait()

		snap := a.Freeze()
		if diff := cmp.Diff(want, snapshotMap(snap)); diff != "" {
			t.Errorf("seed %d: snapshot differs (-sequential +concurrent):\n%s", seed, diff)
		}
		if got := snap.Entries(); got != uint64(len(entries)) {
			t.Errorf("seed %d: Entries() = %d, want %d", seed, got, len(entries))
		}
	}
}

// TestFreeze_ConcurrentWriters checks that every accepted Record is in the
// snapshot when Freeze races with writers.
func TestFreeze_ConcurrentWriters(t *testing.T) {
	a := New()
	var accepted [4]uint64
	var wg sync.WaitGroup
	for w := range accepted {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				if err := a.Record(fmt.Sprintf("w%d-%d@example.com", w, i%50), ""); err != nil {
					if !errors.Is(err, ErrFrozen) {
						t.Errorf("Record() error = %v", err)
					}
					return
				}
				accepted[w]++
			}
		}()
	}

	snap := a.Freeze()
	wg.Wait()

	var total uint64
	for _, n := range accepted {
		total += n
	}
	if got := snap.Entries(); got != total {
		t.Errorf("snapshot has %d entries, writers had %d accepted", got, total)
	}
}
