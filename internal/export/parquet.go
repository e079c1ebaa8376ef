package export

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/wesm/mailaddrs/internal/rank"
)

// escapePath quotes a path for use inside a DuckDB string literal.
func escapePath(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "'", "''")
}

// writeParquet stages records in an in-memory DuckDB table and copies the
// table out as a single Parquet file.
func writeParquet(ctx context.Context, path string, records []rank.Ranked) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()
	// In-memory tables are per-database; keep every statement on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE addresses (
			address      VARCHAR NOT NULL,
			display_name VARCHAR NOT NULL,
			total        UBIGINT NOT NULL,
			rank         INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO addresses VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Address, r.Name, r.Total, int32(i+1)); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("insert address %s: %w", r.Address, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	copySQL := `COPY (SELECT * FROM addresses ORDER BY rank) TO '` + escapePath(path) + `' (FORMAT PARQUET)`
	if _, err := db.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}
