// Package ioback reads whole mail files through interchangeable I/O
// strategies: a blocking worker pool and a batched asynchronous ring.
package ioback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// Backend kinds accepted by New.
const (
	KindThreaded = "threaded"
	KindBatched  = "batched"
)

// Defaults used when an Options field is zero.
const (
	DefaultDepth = 64
	DefaultBatch = 16
)

// ErrUnknownBackend is returned by New for an unrecognized Kind.
var ErrUnknownBackend = errors.New("unknown I/O backend")

// Result is the outcome of reading one submitted path. Exactly one of Data
// and Err is meaningful; an empty file has a nil Err and empty Data.
type Result struct {
	Path string
	Data []byte
	Err  error
}

// Backend reads submitted files and delivers their contents. Submit may be
// called from one goroutine while another consumes Drain. Every submitted
// path appears exactly once on the Drain channel, which is closed after
// Finish has been called and all submissions are delivered.
type Backend interface {
	// Submit queues path for reading. It blocks while Depth reads are
	// outstanding and returns ctx.Err() if ctx is canceled first.
	Submit(ctx context.Context, path string) error
	// Finish signals that no more paths will be submitted.
	Finish()
	// Drain returns the result channel.
	Drain() <-chan Result
}

// Options configures a Backend.
type Options struct {
	Kind    string // KindThreaded or KindBatched
	Workers int    // threaded: reader goroutines (default GOMAXPROCS)
	Depth   int    // maximum reads in flight (default DefaultDepth)
	Batch   int    // batched: reads prepared per submission (default DefaultBatch)
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Kind == "" {
		o.Kind = KindThreaded
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	if o.Batch <= 0 {
		o.Batch = DefaultBatch
	}
	if o.Batch > o.Depth {
		o.Batch = o.Depth
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// New starts a backend of the requested kind. Its goroutines exit once
// Finish has been called and every result has been consumed, or when ctx is
// canceled.
func New(ctx context.Context, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	switch opts.Kind {
	case KindThreaded:
		return newThreaded(ctx, opts), nil
	case KindBatched:
		return newBatched(ctx, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Kind)
	}
}
