package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/config"
	"github.com/wesm/mailaddrs/internal/ioback"
	"github.com/wesm/mailaddrs/internal/rank"
	"github.com/wesm/mailaddrs/internal/scan"
	"github.com/wesm/mailaddrs/internal/search"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfgFile     string
	verbose     bool
	metricsFile string

	searchFlag     string
	fuzzyFlag      bool
	ignoreCaseFlag bool

	backendFlag string
	workersFlag int
	depthFlag   int
	batchFlag   int
	parsersFlag int
	hiddenFlag  bool

	limitFlag int
	muttFlag  bool
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mailaddrs [flags] <dir>",
	Short: "Collect and rank mail addresses from a directory of messages",
	Long: `mailaddrs reads every file below <dir>, extracts the addresses in the
From, To, Cc and Bcc headers and prints them ordered by how often they occur,
each with its most frequent display name.

Use -s to filter the list. Matching is a substring search by default; -f
switches to fuzzy (in-order subsequence) matching and -i ignores case.

Example:
  mailaddrs -i -s doe ~/Maildir
  mailaddrs --mutt -f -s jd ~/Maildir`,
	Args:              cobra.ExactArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "TOML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format to this path")

	pf.StringVarP(&searchFlag, "search", "s", "", "search string")
	pf.BoolVarP(&fuzzyFlag, "fuzzy", "f", false, "apply fuzzy matching (instead of substring)")
	pf.BoolVarP(&ignoreCaseFlag, "ignore-case", "i", false, "ignore case")

	pf.StringVar(&backendFlag, "backend", ioback.KindThreaded, "I/O backend: threaded or batched")
	pf.IntVar(&workersFlag, "workers", 0, "reader goroutines for the threaded backend (0 = GOMAXPROCS)")
	pf.IntVar(&depthFlag, "depth", ioback.DefaultDepth, "maximum reads in flight")
	pf.IntVar(&batchFlag, "batch", ioback.DefaultBatch, "reads per submission for the batched backend")
	pf.IntVar(&parsersFlag, "parsers", 0, "header parser goroutines (0 = GOMAXPROCS)")
	pf.BoolVar(&hiddenFlag, "skip-hidden", false, "skip dot-files")

	rootCmd.Flags().IntVar(&limitFlag, "limit", 0, "print at most N addresses (0 = all)")
	rootCmd.Flags().BoolVar(&muttFlag, "mutt", false, "mutt query_command output (address<TAB>name)")

	rootCmd.Version = Version
}

// Execute runs the root command with a context canceled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads the config file, applies flag overrides and installs the
// logger.
func setup(cmd *cobra.Command, args []string) error {
	c := config.Default()
	var warnings []string
	if cfgFile != "" {
		loaded, w, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		c, warnings = loaded, w
	}
	applyFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}

	level, _ := config.ParseLevel(c.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	for _, w := range warnings {
		logger.Warn(w, "path", cfgFile)
	}
	cfg = c
	return nil
}

// applyFlags copies explicitly set flags over config file values.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("backend") {
		c.Scan.Backend = backendFlag
	}
	if f.Changed("workers") {
		c.Scan.Workers = workersFlag
	}
	if f.Changed("depth") {
		c.Scan.Depth = depthFlag
	}
	if f.Changed("batch") {
		c.Scan.Batch = batchFlag
	}
	if f.Changed("parsers") {
		c.Scan.Parsers = parsersFlag
	}
	if f.Changed("skip-hidden") {
		c.Scan.SkipHidden = hiddenFlag
	}
	if f.Changed("fuzzy") {
		c.Search.Fuzzy = fuzzyFlag
	}
	if f.Changed("ignore-case") {
		c.Search.IgnoreCase = ignoreCaseFlag
	}
}

func currentQuery() search.Query {
	return search.Query{
		Pattern:    searchFlag,
		Fuzzy:      cfg.Search.Fuzzy,
		IgnoreCase: cfg.Search.IgnoreCase,
	}
}

// scanDir runs a scan of dir with the effective configuration.
func scanDir(cmd *cobra.Command, dir string) (*aggregate.Snapshot, *scan.Summary, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := scan.New(scan.Options{
		Backend:    cfg.Scan.Backend,
		Workers:    cfg.Scan.Workers,
		Depth:      cfg.Scan.Depth,
		Batch:      cfg.Scan.Batch,
		Parsers:    cfg.Scan.Parsers,
		SkipHidden: cfg.Scan.SkipHidden,
	}).WithLogger(logger)

	var metrics *scan.Metrics
	if metricsFile != "" {
		metrics = scan.NewMetrics(cfg.Scan.Backend)
		s.WithMetrics(metrics)
	}

	snap, summary, err := s.Run(ctx, dir)
	if err != nil {
		return nil, nil, err
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			logger.Warn("failed to write metrics", "path", metricsFile, "error", err)
		}
	}
	if skipped := summary.ReadErrors + summary.WalkErrors; skipped > 0 {
		logger.Warn("skipped unreadable entries", "count", skipped)
	}
	return snap, summary, nil
}

// rankedMatches ranks snap and applies the current search flags.
func rankedMatches(snap *aggregate.Snapshot) []rank.Ranked {
	return search.Filter(rank.Rank(snap), currentQuery())
}

func runRoot(cmd *cobra.Command, args []string) error {
	snap, _, err := scanDir(cmd, args[0])
	if err != nil {
		return err
	}

	records := rankedMatches(snap)
	if limitFlag > 0 && len(records) > limitFlag {
		records = records[:limitFlag]
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	if muttFlag {
		// mutt reads the first line as a status message.
		fmt.Fprintln(w)
	}
	for _, r := range records {
		if muttFlag {
			fmt.Fprintln(w, r.Mutt())
		} else {
			fmt.Fprintln(w, r.String())
		}
	}
	return w.Flush()
}
