package ioback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// op is one file moving through the batched backend.
type op struct {
	id   uint64
	path string
	f    *os.File
	buf  []byte
	off  int
}

// batched drives a submission/completion ring from a single control loop.
// Files are opened and their reads prepared in batches; completions are
// reaped as they arrive and the queue is refilled from Submit.
type batched struct {
	submitq chan string
	results chan Result
	once    sync.Once
	depth   int
	batch   int
	logger  *slog.Logger
}

func newBatched(ctx context.Context, opts Options) *batched {
	r, err := newRing(opts.Depth)
	if err != nil {
		opts.Logger.Debug("io_uring unavailable, using goroutine ring", "error", err)
	}
	return newBatchedWithRing(ctx, opts, r)
}

func newBatchedWithRing(ctx context.Context, opts Options, r ring) *batched {
	b := &batched{
		submitq: make(chan string, opts.Batch),
		results: make(chan Result, opts.Depth),
		depth:   opts.Depth,
		batch:   opts.Batch,
		logger:  opts.Logger,
	}
	go b.loop(ctx, r)
	return b
}

func (b *batched) Submit(ctx context.Context, path string) error {
	select {
	case b.submitq <- path:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *batched) Finish() {
	b.once.Do(func() { close(b.submitq) })
}

func (b *batched) Drain() <-chan Result {
	return b.results
}

// loopState is owned by the control loop goroutine.
type loopState struct {
	ops      map[uint64]*op
	queued   []*op // opened, waiting for a submission slot
	inflight int
	nextID   uint64
	inputEOF bool
}

func (b *batched) loop(ctx context.Context, r ring) {
	defer close(b.results)

	st := &loopState{ops: make(map[uint64]*op, b.depth)}
	defer func() {
		if err := r.close(); err != nil {
			b.logger.Warn("failed to close ring", "ring", r.name(), "error", err)
		}
		for _, o := range st.ops {
			o.f.Close()
		}
	}()

	comps := make([]completion, 0, b.depth)
	for {
		if !b.refill(ctx, st) {
			return
		}
		if st.inputEOF && len(st.ops) == 0 {
			return
		}

		for len(st.queued) > 0 {
			o := st.queued[0]
			if !r.prepRead(o.id, o.f, o.buf[o.off:], int64(o.off)) {
				break
			}
			st.queued = st.queued[1:]
			st.inflight++
		}
		if st.inflight == 0 {
			continue
		}

		if err := r.submit(1); err != nil {
			b.fail(ctx, st, fmt.Errorf("submit reads via %s: %w", r.name(), err))
			return
		}

		comps = r.reap(comps[:0])
		for _, c := range comps {
			st.inflight--
			if !b.complete(ctx, st, c) {
				return
			}
		}
	}
}

// refill opens up to one batch of newly submitted paths. It blocks for input
// only when nothing is outstanding. It returns false when ctx is canceled.
func (b *batched) refill(ctx context.Context, st *loopState) bool {
	for added := 0; !st.inputEOF && len(st.ops) < b.depth && added < b.batch; added++ {
		var path string
		var ok bool
		if len(st.ops) == 0 {
			select {
			case path, ok = <-b.submitq:
			case <-ctx.Done():
				return false
			}
		} else {
			select {
			case path, ok = <-b.submitq:
			case <-ctx.Done():
				return false
			default:
				return true
			}
		}
		if !ok {
			st.inputEOF = true
			break
		}
		if !b.open(ctx, st, path) {
			return false
		}
	}
	return ctx.Err() == nil
}

// open prepares path for reading. Files that fail to open and empty files
// are delivered immediately.
func (b *batched) open(ctx context.Context, st *loopState, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return b.deliver(ctx, Result{Path: path, Err: err})
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return b.deliver(ctx, Result{Path: path, Err: fmt.Errorf("stat: %w", err)})
	}
	if info.Size() == 0 {
		f.Close()
		return b.deliver(ctx, Result{Path: path, Data: []byte{}})
	}

	st.nextID++
	o := &op{id: st.nextID, path: path, f: f, buf: make([]byte, info.Size())}
	st.ops[o.id] = o
	st.queued = append(st.queued, o)
	return true
}

// complete applies one read completion. A short read is requeued at the new
// offset; EOF or a full buffer delivers the data.
func (b *batched) complete(ctx context.Context, st *loopState, c completion) bool {
	o, ok := st.ops[c.id]
	if !ok {
		b.logger.Warn("completion for unknown read", "id", c.id)
		return true
	}

	switch {
	case c.err != nil:
		return b.finishOp(ctx, st, o, Result{Path: o.path, Err: c.err})
	case c.n == 0:
		// The file shrank after Stat.
		return b.finishOp(ctx, st, o, Result{Path: o.path, Data: o.buf[:o.off]})
	}

	o.off += c.n
	if o.off >= len(o.buf) {
		return b.finishOp(ctx, st, o, Result{Path: o.path, Data: o.buf})
	}
	st.queued = append(st.queued, o)
	return true
}

func (b *batched) finishOp(ctx context.Context, st *loopState, o *op, res Result) bool {
	delete(st.ops, o.id)
	if err := o.f.Close(); err != nil && res.Err == nil {
		b.logger.Debug("failed to close file", "path", o.path, "error", err)
	}
	return b.deliver(ctx, res)
}

// fail reports err for every outstanding and future path after the ring
// has broken. Outstanding ops stay in st.ops so their buffers outlive the
// ring; the loop closes their files on exit.
func (b *batched) fail(ctx context.Context, st *loopState, err error) {
	b.logger.Warn("batched reader failed", "error", err)
	for _, o := range st.ops {
		if !b.deliver(ctx, Result{Path: o.path, Err: err}) {
			return
		}
	}
	st.queued = nil
	for !st.inputEOF {
		select {
		case path, ok := <-b.submitq:
			if !ok {
				st.inputEOF = true
				continue
			}
			if !b.deliver(ctx, Result{Path: path, Err: err}) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *batched) deliver(ctx context.Context, res Result) bool {
	select {
	case b.results <- res:
		return true
	case <-ctx.Done():
		return false
	}
}
