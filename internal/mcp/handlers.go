package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/search"
)

const maxLimit = 1000

type handlers struct {
	idx *Index
}

type searchResponse struct {
	Total   int           `json:"total"`
	Results []rank.Ranked `json:"results"`
}

func (h *handlers) searchAddresses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	q := search.Query{IgnoreCase: true}
	q.Pattern, _ = args["query"].(string)
	if v, ok := args["fuzzy"].(bool); ok {
		q.Fuzzy = v
	}
	if v, ok := args["ignore_case"].(bool); ok {
		q.IgnoreCase = v
	}

	limit := intArg(args, "limit", 20)
	offset := intArg(args, "offset", 0)

	matched := search.Filter(h.idx.Ranked, q)
	resp := searchResponse{Total: len(matched), Results: page(matched, offset, limit)}
	return jsonResult(resp)
}

type nameCount struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

type addressDetail struct {
	Address string      `json:"address"`
	Name    string      `json:"name"`
	Total   uint64      `json:"total"`
	Names   []nameCount `json:"names"`
}

func (h *handlers) getAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	addr, _ := args["address"].(string)
	if strings.TrimSpace(addr) == "" {
		return mcp.NewToolResultError("address parameter is required"), nil
	}

	rec, ok := h.idx.Snapshot.Get(addr)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("address not found: %s", addr)), nil
	}

	detail := addressDetail{
		Address: aggregate.Normalize(addr),
		Name:    rank.BestName(rec.Names),
		Total:   rec.Total,
		Names:   make([]nameCount, 0, len(rec.Names)),
	}
	for name, n := range rec.Names {
		detail.Names = append(detail.Names, nameCount{Name: name, Count: n})
	}
	slices.SortFunc(detail.Names, func(a, b nameCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	return jsonResult(detail)
}

type statsResponse struct {
	Root       string  `json:"root"`
	Backend    string  `json:"backend"`
	Files      int64   `json:"files"`
	Bytes      int64   `json:"bytes"`
	ReadErrors int64   `json:"read_errors"`
	WalkErrors int64   `json:"walk_errors"`
	Entries    int64   `json:"entries"`
	Addresses  int     `json:"addresses"`
	Seconds    float64 `json:"duration_seconds"`
	ScannedAt  string  `json:"scanned_at"`
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s := h.idx.Summary
	if s == nil {
		return mcp.NewToolResultError("no scan summary available"), nil
	}

	return jsonResult(statsResponse{
		Root:       s.Root,
		Backend:    s.Backend,
		Files:      s.Files,
		Bytes:      s.Bytes,
		ReadErrors: s.ReadErrors,
		WalkErrors: s.WalkErrors,
		Entries:    s.Entries,
		Addresses:  s.Addresses,
		Seconds:    s.Duration.Seconds(),
		ScannedAt:  s.EndTime.UTC().Format(time.RFC3339),
	})
}

type domainRow struct {
	Domain    string `json:"domain"`
	Total     uint64 `json:"total"`
	Addresses int    `json:"addresses"`
}

func (h *handlers) topDomains(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	limit := intArg(args, "limit", 50)

	byDomain := make(map[string]*domainRow)
	for _, r := range h.idx.Ranked {
		at := strings.LastIndexByte(r.Address, '@')
		if at < 0 {
			continue
		}
		d := r.Address[at+1:]
		row, ok := byDomain[d]
		if !ok {
			row = &domainRow{Domain: d}
			byDomain[d] = row
		}
		row.Total += r.Total
		row.Addresses++
	}

	rows := make([]domainRow, 0, len(byDomain))
	for _, row := range byDomain {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b domainRow) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Domain, b.Domain)
	})

	return jsonResult(page(rows, 0, limit))
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

// intArg extracts a non-negative integer from a map, with a default value.
// JSON numbers arrive as float64. Negative values are clamped to 0,
// and values above maxLimit are clamped to maxLimit.
func intArg(args map[string]any, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		n := int(v)
		if n < 0 {
			return 0
		}
		if n > maxLimit {
			return maxLimit
		}
		return n
	}
	return def
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
