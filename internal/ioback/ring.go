package ioback

import (
	"errors"
	"io"
	"os"
)

// completion reports the outcome of one read prepared with prepRead.
type completion struct {
	id  uint64
	n   int
	err error
}

// ring is a submission/completion queue pair for positioned reads. It is
// driven by a single goroutine.
type ring interface {
	// name identifies the implementation in logs.
	name() string
	// prepRead queues a read into buf at offset off. It returns false when
	// the submission queue is full. buf must stay reachable until the
	// read's completion has been reaped.
	prepRead(id uint64, f *os.File, buf []byte, off int64) bool
	// submit hands prepared reads to the executor and blocks until at
	// least minComplete completions are available.
	submit(minComplete int) error
	// reap appends every available completion to dst.
	reap(dst []completion) []completion
	close() error
}

var errRingUnsupported = errors.New("io_uring not supported on this platform")

// newRing returns the platform ring, falling back to goRing when the kernel
// refuses to create one.
func newRing(entries int) (ring, error) {
	r, err := newURing(entries)
	if err != nil {
		return newGoRing(entries), err
	}
	return r, nil
}

type goRead struct {
	id  uint64
	f   *os.File
	buf []byte
	off int64
}

// goRing executes each read on its own goroutine with ReadAt. It is the
// portable stand-in for io_uring.
type goRing struct {
	entries  int
	prepared []goRead
	inflight int
	done     chan completion
	ready    []completion
}

func newGoRing(entries int) *goRing {
	if entries < 1 {
		entries = 1
	}
	return &goRing{
		entries: entries,
		done:    make(chan completion, entries),
	}
}

func (r *goRing) name() string { return "goroutine" }

func (r *goRing) prepRead(id uint64, f *os.File, buf []byte, off int64) bool {
	if len(r.prepared)+r.inflight >= r.entries {
		return false
	}
	r.prepared = append(r.prepared, goRead{id: id, f: f, buf: buf, off: off})
	return true
}

func (r *goRing) submit(minComplete int) error {
	for _, rd := range r.prepared {
		r.inflight++
		go func(rd goRead) {
			n, err := rd.f.ReadAt(rd.buf, rd.off)
			if errors.Is(err, io.EOF) {
				err = nil
			}
			r.done <- completion{id: rd.id, n: n, err: err}
		}(rd)
	}
	r.prepared = r.prepared[:0]

	for len(r.ready) < minComplete && len(r.ready) < r.inflight {
		r.ready = append(r.ready, <-r.done)
	}
	return nil
}

func (r *goRing) reap(dst []completion) []completion {
	for drained := false; !drained; {
		select {
		case c := <-r.done:
			r.ready = append(r.ready, c)
		default:
			drained = true
		}
	}
	dst = append(dst, r.ready...)
	r.inflight -= len(r.ready)
	r.ready = r.ready[:0]
	return dst
}

func (r *goRing) close() error {
	r.inflight -= len(r.ready)
	r.ready = nil
	for r.inflight > 0 {
		<-r.done
		r.inflight--
	}
	return nil
}
