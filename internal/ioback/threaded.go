package ioback

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// threaded reads files with a fixed pool of goroutines doing blocking
// os.ReadFile calls.
type threaded struct {
	paths   chan string
	results chan Result
	once    sync.Once
	logger  *slog.Logger
}

func newThreaded(ctx context.Context, opts Options) *threaded {
	b := &threaded{
		paths:   make(chan string, opts.Depth),
		results: make(chan Result, opts.Depth),
		logger:  opts.Logger,
	}

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.work(ctx)
		}()
	}
	go func() {
		wg.Wait()
		close(b.results)
	}()
	return b
}

func (b *threaded) work(ctx context.Context) {
	for {
		var path string
		select {
		case p, ok := <-b.paths:
			if !ok {
				return
			}
			path = p
		case <-ctx.Done():
			return
		}

		data, err := os.ReadFile(path)
		if err != nil {
			data = nil
		}
		select {
		case b.results <- Result{Path: path, Data: data, Err: err}:
		case <-ctx.Done():
			b.logger.Debug("reader stopped", "error", ctx.Err())
			return
		}
	}
}

func (b *threaded) Submit(ctx context.Context, path string) error {
	select {
	case b.paths <- path:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *threaded) Finish() {
	b.once.Do(func() { close(b.paths) })
}

func (b *threaded) Drain() <-chan Result {
	return b.results
}
