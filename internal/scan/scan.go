// Package scan runs the extraction pipeline: walk a directory tree, read
// every file through an I/O backend, parse address headers and aggregate
// the results.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/ioback"
	"github.com/wesm/mailaddrs/internal/mime"
	"github.com/wesm/mailaddrs/internal/walk"
)

// Options configures a scan.
type Options struct {
	Backend    string // ioback.KindThreaded or ioback.KindBatched
	Workers    int    // threaded backend readers
	Depth      int    // maximum reads in flight
	Batch      int    // batched backend submission size
	Parsers    int    // header parser goroutines (default GOMAXPROCS)
	SkipHidden bool   // skip dot-files
}

// Summary contains statistics about a completed scan.
type Summary struct {
	Root       string
	Backend    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Files      int64 // files read successfully
	Bytes      int64
	ReadErrors int64
	WalkErrors int64
	Entries    int64 // address entries aggregated
	Addresses  int   // distinct normalized addresses
}

// Scanner runs scans with fixed options.
type Scanner struct {
	opts     Options
	logger   *slog.Logger
	progress Progress
	metrics  *Metrics
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.Backend == "" {
		opts.Backend = ioback.KindThreaded
	}
	if opts.Parsers <= 0 {
		opts.Parsers = runtime.GOMAXPROCS(0)
	}
	return &Scanner{
		opts:     opts,
		logger:   slog.Default(),
		progress: NullProgress{},
	}
}

// WithLogger sets the logger for the scanner.
func (s *Scanner) WithLogger(logger *slog.Logger) *Scanner {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithProgress sets the progress reporter.
func (s *Scanner) WithProgress(p Progress) *Scanner {
	if p != nil {
		s.progress = p
	}
	return s
}

// WithMetrics enables Prometheus metrics collection.
func (s *Scanner) WithMetrics(m *Metrics) *Scanner {
	s.metrics = m
	return s
}

// counters are updated concurrently by the pipeline stages.
type counters struct {
	files, bytes, readErrors, walkErrors, entries atomic.Int64
}

// Run scans root and returns the frozen aggregate. An invalid root is
// returned as an error wrapping walk.ErrInvalidRoot before any work starts.
// Unreadable files and directories are logged, counted and skipped.
func (s *Scanner) Run(ctx context.Context, root string) (*aggregate.Snapshot, *Summary, error) {
	resolved, err := walk.CheckRoot(root)
	if err != nil {
		return nil, nil, err
	}

	summary := &Summary{Root: resolved, Backend: s.opts.Backend, StartTime: time.Now()}
	agg := aggregate.New()
	var c counters

	g, gctx := errgroup.WithContext(ctx)
	backend, err := ioback.New(gctx, ioback.Options{
		Kind:    s.opts.Backend,
		Workers: s.opts.Workers,
		Depth:   s.opts.Depth,
		Batch:   s.opts.Batch,
		Logger:  s.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create backend: %w", err)
	}

	g.Go(func() error {
		defer backend.Finish()
		w := &walk.Walker{
			SkipHidden: s.opts.SkipHidden,
			OnError: func(path string, err error) {
				s.logger.Warn("failed to read directory entry", "path", path, "error", err)
				c.walkErrors.Add(1)
				if s.metrics != nil {
					s.metrics.walkErrors.Inc()
				}
				s.progress.OnError(path, err)
			},
		}
		if err := w.Walk(gctx, resolved, func(path string) error {
			return backend.Submit(gctx, path)
		}); err != nil {
			return fmt.Errorf("walk %s: %w", resolved, err)
		}
		return nil
	})

	for i := 0; i < s.opts.Parsers; i++ {
		g.Go(func() error {
			for res := range backend.Drain() {
				s.consume(agg, &c, res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	snap := agg.Freeze()

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	summary.Files = c.files.Load()
	summary.Bytes = c.bytes.Load()
	summary.ReadErrors = c.readErrors.Load()
	summary.WalkErrors = c.walkErrors.Load()
	summary.Entries = c.entries.Load()
	summary.Addresses = snap.Len()

	if s.metrics != nil {
		s.metrics.scanSeconds.Set(summary.Duration.Seconds())
		s.metrics.addresses.Set(float64(summary.Addresses))
	}
	s.logger.Debug("scan complete",
		"root", resolved,
		"backend", s.opts.Backend,
		"files", summary.Files,
		"entries", summary.Entries,
		"addresses", summary.Addresses,
		"read_errors", summary.ReadErrors,
		"duration", summary.Duration)
	s.progress.OnComplete(summary)
	return snap, summary, nil
}

// consume parses one read result into the aggregator.
func (s *Scanner) consume(agg *aggregate.Aggregator, c *counters, res ioback.Result) {
	if res.Err != nil {
		s.logger.Warn("failed to read message", "path", res.Path, "error", res.Err)
		c.readErrors.Add(1)
		if s.metrics != nil {
			s.metrics.readErrors.Inc()
		}
		s.progress.OnError(res.Path, res.Err)
		return
	}

	c.files.Add(1)
	c.bytes.Add(int64(len(res.Data)))
	if s.metrics != nil {
		s.metrics.files.Inc()
		s.metrics.bytesRead.Add(float64(len(res.Data)))
		s.metrics.fileSize.Observe(float64(len(res.Data)))
	}

	recorded := 0
	for _, e := range mime.ParseAddresses(res.Data) {
		if err := agg.Record(e.Address, e.Name); err != nil {
			s.logger.Debug("skipped address", "path", res.Path, "field", e.Field, "error", err)
			continue
		}
		recorded++
		if s.metrics != nil {
			s.metrics.entries.WithLabelValues(e.Field.String()).Inc()
		}
	}
	c.entries.Add(int64(recorded))
	s.progress.OnFile(res.Path, recorded)
}
