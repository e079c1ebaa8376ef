package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/mailaddrs/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Scan a directory and write the ranked addresses to a file",
	Long: `Scan <dir> and write the ranked, filtered address list to --out.

Formats:
  sqlite   addresses and per-name tables in a new SQLite database
  parquet  one Parquet file (address, display_name, total, rank)
  tsv      tab-separated address, display_name, total with a header row

Example:
  mailaddrs export --format sqlite --out addrs.db ~/Maildir`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatTSV,
		"output format: "+strings.Join(export.Formats, ", "))
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file path")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	snap, _, err := scanDir(cmd, args[0])
	if err != nil {
		return err
	}

	res, err := export.Write(cmd.Context(), exportFormat, exportOut, rankedMatches(snap), snap)
	if err != nil {
		return err
	}
	logger.Debug("export complete", "path", res.Path, "format", res.Format, "count", res.Addresses)
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d addresses to %s (%s)\n", res.Addresses, res.Path, formatBytes(res.Size))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
