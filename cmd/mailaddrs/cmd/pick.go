package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/tui"
)

var pickMutt bool

var errNotTerminal = errors.New("pick needs an interactive terminal on stdin and stderr")

var pickCmd = &cobra.Command{
	Use:   "pick <dir>",
	Short: "Interactively filter addresses and print the chosen one",
	Long: `Scan <dir> and open an interactive picker. Typing filters the list;
ctrl+f toggles fuzzy matching and tab toggles case folding. Enter prints the
selected address to stdout, so the command composes with $(...).

The picker draws on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runPick,
}

func init() {
	pickCmd.Flags().BoolVar(&pickMutt, "mutt", false, "print the selection as address<TAB>name")
	rootCmd.AddCommand(pickCmd)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runPick(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stderr) {
		return errNotTerminal
	}

	snap, _, err := scanDir(cmd, args[0])
	if err != nil {
		return err
	}

	chosen, ok, err := tui.Run(rank.Rank(snap), tui.Options{Query: currentQuery(), Version: Version}, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if pickMutt {
		fmt.Fprintln(cmd.OutOrStdout(), chosen.Mutt())
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), chosen.String())
	}
	return nil
}
