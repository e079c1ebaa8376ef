package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/mailaddrs/tools/devdata/dataset"
)

var (
	subsetSrc   string
	subsetOut   string
	subsetCount int
)

var subsetCmd = &cobra.Command{
	Use:   "subset",
	Short: "Copy the first N messages of a mail tree into a new directory",
	Long:  "Copies up to --count regular files from --src into --out, keeping relative paths, so experiments never touch the original mail.",
	Args:  cobra.NoArgs,
	RunE:  runSubset,
}

func init() {
	subsetCmd.Flags().StringVar(&subsetSrc, "src", "", "source mail tree")
	subsetCmd.Flags().StringVarP(&subsetOut, "out", "o", "", "destination directory (must not exist)")
	subsetCmd.Flags().IntVarP(&subsetCount, "count", "n", 1000, "number of files to copy")
	_ = subsetCmd.MarkFlagRequired("src")
	_ = subsetCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(subsetCmd)
}

func runSubset(cmd *cobra.Command, args []string) error {
	if subsetCount <= 0 {
		return fmt.Errorf("--count must be positive, got %d", subsetCount)
	}
	res, err := dataset.CopySubset(cmd.Context(), subsetSrc, subsetOut, subsetCount)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Copied %d files (%d bytes) to %s in %s\n",
		res.Files, res.Bytes, subsetOut, res.Elapsed.Round(1e6))
	return nil
}
