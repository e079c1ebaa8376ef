// Package walk enumerates candidate mail files under a root directory.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidRoot is returned when the scan root is missing, not a directory
// or unreadable.
var ErrInvalidRoot = errors.New("invalid root directory")

// CheckRoot resolves symlinks on root and verifies that it is a readable
// directory. The returned path is the resolved one.
func CheckRoot(root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s: not a directory", ErrInvalidRoot, root)
	}
	f, err := os.Open(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	defer f.Close()
	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
	}
	return resolved, nil
}

// Walker performs the recursive descent. The zero value yields every regular
// file and silently drops traversal errors.
type Walker struct {
	// SkipHidden skips files whose name starts with a dot. Directories are
	// always descended, so Maildir++ folders like .Sent are still scanned.
	SkipHidden bool

	// OnError receives unreadable directories and entries. The walk
	// continues past them.
	OnError func(path string, err error)
}

// Walk calls fn for every regular file below root. Symlinks are never
// followed and other non-regular files are skipped. An error returned by fn,
// or cancellation of ctx, stops the walk and is returned.
func (w *Walker) Walk(ctx context.Context, root string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root && d == nil {
				return err
			}
			w.report(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if w.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		return fn(path)
	})
}

func (w *Walker) report(path string, err error) {
	if w.OnError != nil {
		w.OnError(path, err)
	}
}
