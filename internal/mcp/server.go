// Package mcp exposes a scanned address index as Model Context Protocol tools.
package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/scan"
)

// Index is the read-only result of one scan.
type Index struct {
	Ranked   []rank.Ranked
	Snapshot *aggregate.Snapshot
	Summary  *scan.Summary
}

// NewIndex ranks snap and bundles it with the scan summary.
func NewIndex(snap *aggregate.Snapshot, summary *scan.Summary) *Index {
	return &Index{Ranked: rank.Rank(snap), Snapshot: snap, Summary: summary}
}

// NewServer builds an MCP server with the address tools registered.
func NewServer(idx *Index, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mailaddrs",
		version,
		server.WithToolCapabilities(false),
	)

	h := &handlers{idx: idx}

	s.AddTool(searchAddressesTool(), h.searchAddresses)
	s.AddTool(getAddressTool(), h.getAddress)
	s.AddTool(getStatsTool(), h.getStats)
	s.AddTool(topDomainsTool(), h.topDomains)
	return s
}

// Serve serves idx over stdio. It blocks until stdin is closed or the
// context is cancelled.
func Serve(ctx context.Context, idx *Index, version string) error {
	return serve(ctx, idx, version, os.Stdin, os.Stdout)
}

func serve(ctx context.Context, idx *Index, version string, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(NewServer(idx, version))
	return stdio.Listen(ctx, in, out)
}

func searchAddressesTool() mcp.Tool {
	return mcp.NewTool("search_addresses",
		mcp.WithDescription("Search mail addresses seen in the scanned tree, ranked by how often they occur. Matches against the address and the most frequent display name."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Text to match; empty returns the most frequent addresses"),
		),
		mcp.WithBoolean("fuzzy",
			mcp.Description("Match query characters in order but not necessarily adjacent (default false)"),
		),
		mcp.WithBoolean("ignore_case",
			mcp.Description("Case-insensitive matching (default true)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 20)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of results to skip for pagination (default 0)"),
		),
	)
}

func getAddressTool() mcp.Tool {
	return mcp.NewTool("get_address",
		mcp.WithDescription("Get every display name seen for one address, with per-name counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Mail address (case-insensitive)"),
		),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Get scan overview: files read, read errors, address entries and distinct addresses."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func topDomainsTool() mcp.Tool {
	return mcp.NewTool("top_domains",
		mcp.WithDescription("Get the most frequent address domains with total occurrences and distinct address counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("limit",
			mcp.Description("Maximum domains to return (default 50)"),
		),
	)
}
