package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/scan"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	agg := aggregate.New()
	add := func(addr, name string, n int) {
		for i := 0; i < n; i++ {
			if err := agg.Record(addr, name); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		}
	}
	add("jane@example.com", "Jane Doe", 3)
	add("jane@example.com", "J Doe", 1)
	add("bob@example.com", "Bob", 2)
	add("noreply@github.com", "", 5)

	snap := agg.Freeze()
	summary := &scan.Summary{
		Root:      "/mail",
		Backend:   "threaded",
		EndTime:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Files:     11,
		Entries:   11,
		Addresses: snap.Len(),
	}
	return NewIndex(snap, summary)
}

func callTool(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return v
}

func TestSearchAddresses(t *testing.T) {
	h := &handlers{idx: testIndex(t)}

	tests := []struct {
		name  string
		args  map[string]any
		total int
		want  []string
	}{
		{"empty query ranks all", map[string]any{}, 3, []string{"noreply@github.com", "jane@example.com", "bob@example.com"}},
		{"ignore case by default", map[string]any{"query": "DOE"}, 1, []string{"jane@example.com"}},
		{"case sensitive", map[string]any{"query": "DOE", "ignore_case": false}, 0, []string{}},
		{"fuzzy", map[string]any{"query": "jd", "fuzzy": true}, 1, []string{"jane@example.com"}},
		{"limit", map[string]any{"query": "example", "limit": float64(1)}, 2, []string{"jane@example.com"}},
		{"offset", map[string]any{"limit": float64(2), "offset": float64(1)}, 3, []string{"jane@example.com", "bob@example.com"}},
		{"offset past end", map[string]any{"offset": float64(10)}, 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeResult[searchResponse](t, callTool(t, h.searchAddresses, tt.args))
			if resp.Total != tt.total {
				t.Errorf("Total = %d, want %d", resp.Total, tt.total)
			}
			got := make([]string, 0, len(resp.Results))
			for _, r := range resp.Results {
				got = append(got, r.Address)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("results mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	h := &handlers{idx: testIndex(t)}

	got := decodeResult[addressDetail](t, callTool(t, h.getAddress, map[string]any{"address": " Jane@Example.COM "}))
	want := addressDetail{
		Address: "jane@example.com",
		Name:    "Jane Doe",
		Total:   4,
		Names:   []nameCount{{"Jane Doe", 3}, {"J Doe", 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("getAddress mismatch (-want +got):\n%s", diff)
	}

	for _, args := range []map[string]any{{}, {"address": "  "}, {"address": "nobody@example.com"}} {
		if res := callTool(t, h.getAddress, args); !res.IsError {
			t.Errorf("getAddress(%v) IsError = false", args)
		}
	}
}

func TestGetStats(t *testing.T) {
	h := &handlers{idx: testIndex(t)}
	got := decodeResult[statsResponse](t, callTool(t, h.getStats, nil))
	if got.Files != 11 || got.Addresses != 3 || got.Seconds != 1.5 || got.ScannedAt != "2024-05-01T12:00:00Z" {
		t.Errorf("getStats = %+v", got)
	}

	empty := &handlers{idx: &Index{}}
	if res := callTool(t, empty.getStats, nil); !res.IsError {
		t.Error("getStats without summary IsError = false")
	}
}

func TestTopDomains(t *testing.T) {
	h := &handlers{idx: testIndex(t)}
	got := decodeResult[[]domainRow](t, callTool(t, h.topDomains, map[string]any{"limit": float64(5)}))
	want := []domainRow{
		{Domain: "example.com", Total: 6, Addresses: 2},
		{Domain: "github.com", Total: 5, Addresses: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("topDomains mismatch (-want +got):\n%s", diff)
	}
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"neg": float64(-3), "big": float64(5000), "ok": float64(7), "str": "9"}
	tests := []struct {
		key  string
		want int
	}{
		{"neg", 0},
		{"big", maxLimit},
		{"ok", 7},
		{"str", 42},
		{"missing", 42},
	}
	for _, tt := range tests {
		if got := intArg(args, tt.key, 42); got != tt.want {
			t.Errorf("intArg(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestNewServer_ListsTools(t *testing.T) {
	s := NewServer(testIndex(t), "test")
	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{"search_addresses", "get_address", "get_stats", "top_domains"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tools/list response missing %s: %s", name, data)
		}
	}
}

func TestRankOrderPreserved(t *testing.T) {
	idx := testIndex(t)
	want := []rank.Ranked{
		{Address: "noreply@github.com", Total: 5},
		{Address: "jane@example.com", Name: "Jane Doe", Total: 4},
		{Address: "bob@example.com", Name: "Bob", Total: 2},
	}
	if diff := cmp.Diff(want, idx.Ranked); diff != "" {
		t.Errorf("NewIndex ranking mismatch (-want +got):\n%s", diff)
	}
}
