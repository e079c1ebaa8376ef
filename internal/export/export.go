// Package export writes ranked address lists to SQLite, Parquet or TSV.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/fileutil"
	"github.com/wesm/mailaddrs/internal/rank"
)

// Supported formats.
const (
	FormatSQLite  = "sqlite"
	FormatParquet = "parquet"
	FormatTSV     = "tsv"
)

// Formats lists the accepted format names.
var Formats = []string{FormatSQLite, FormatParquet, FormatTSV}

// Exported files hold personal data and are readable by the owner only.
const (
	filePerm os.FileMode = 0o600
	dirPerm  os.FileMode = 0o700
)

// ErrUnknownFormat is returned for a format not in Formats.
var ErrUnknownFormat = errors.New("unknown export format")

// Result describes a finished export.
type Result struct {
	Path      string
	Format    string
	Addresses int
	Names     int // rows in the per-name table; zero for formats without one
	Size      int64
}

// Write exports records to path in the given format. snap supplies the
// per-name counts for the SQLite names table and may be nil. An existing
// file at path is replaced.
func Write(ctx context.Context, format, path string, records []rank.Ranked, snap *aggregate.Snapshot) (*Result, error) {
	format = strings.ToLower(format)
	if path == "" {
		return nil, fmt.Errorf("export %s: empty output path", format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fileutil.SecureMkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	res := &Result{Path: path, Format: format, Addresses: len(records)}
	var err error
	switch format {
	case FormatSQLite:
		if err = removeExisting(path); err == nil {
			res.Names, err = writeSQLite(ctx, path, records, snap)
		}
	case FormatParquet:
		if err = removeExisting(path); err == nil {
			err = writeParquet(ctx, path, records)
		}
	case FormatTSV:
		err = writeTSV(path, records)
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	// Database drivers create their files with the process umask.
	if err := fileutil.SecureChmod(path, filePerm); err != nil {
		return nil, fmt.Errorf("export %s: restrict permissions: %w", format, err)
	}

	if info, err := os.Stat(path); err == nil {
		res.Size = info.Size()
	}
	return res, nil
}

func removeExisting(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing %s: %w", path, err)
	}
	return nil
}
