package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wesm/mailaddrs/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <dir>",
	Short: "Scan a directory and serve the addresses over MCP (stdio)",
	Long: `Scan <dir> once and serve the result to an MCP client over stdin/stdout.

Tools: search_addresses, get_address, get_stats, top_domains.

Example client configuration:
  {"command": "mailaddrs", "args": ["mcp", "/home/me/Maildir"]}`,
	Args: cobra.ExactArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	snap, summary, err := scanDir(cmd, args[0])
	if err != nil {
		return err
	}
	logger.Info("serving MCP on stdio", "addresses", summary.Addresses)
	return mcp.Serve(cmd.Context(), mcp.NewIndex(snap, summary), Version)
}
