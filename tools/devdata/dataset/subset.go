package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wesm/mailaddrs/internal/walk"
)

// SubsetResult holds the summary of a subset copy.
type SubsetResult struct {
	Files   int
	Bytes   int64
	Elapsed time.Duration
}

var errSubsetFull = errors.New("subset full")

// CopySubset copies up to count regular files from srcDir into dstDir,
// preserving their relative paths. dstDir must not exist; it is removed
// again if the copy fails.
func CopySubset(ctx context.Context, srcDir, dstDir string, count int) (*SubsetResult, error) {
	start := time.Now()

	src, err := walk.CheckRoot(srcDir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dstDir); err == nil {
		return nil, fmt.Errorf("destination %s already exists", dstDir)
	}
	if err := os.MkdirAll(dstDir, 0o700); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}

	res := &SubsetResult{}
	w := &walk.Walker{SkipHidden: true}
	err = w.Walk(ctx, src, func(path string) error {
		if res.Files >= count {
			return errSubsetFull
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		dst := filepath.Join(dstDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
		}
		n, err := copyFile(path, dst)
		if err != nil {
			return err
		}
		res.Files++
		res.Bytes += n
		return nil
	})
	if err != nil && !errors.Is(err, errSubsetFull) {
		os.RemoveAll(dstDir)
		return nil, err
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// copyFile copies a single file from src to dst.
func copyFile(src, dst string) (int64, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source file %s: %w", src, err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create destination file %s: %w", dst, err)
	}
	defer dstFile.Close()

	n, err := io.Copy(dstFile, srcFile)
	if err != nil {
		return 0, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return n, nil
}
