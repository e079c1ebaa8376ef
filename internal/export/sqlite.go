package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/wesm/mailaddrs/internal/aggregate"
	"github.com/wesm/mailaddrs/internal/rank"
)

const sqliteSchema = `
CREATE TABLE addresses (
	address      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	total        INTEGER NOT NULL,
	rank         INTEGER NOT NULL
);
CREATE TABLE names (
	address      TEXT NOT NULL REFERENCES addresses(address),
	display_name TEXT NOT NULL,
	count        INTEGER NOT NULL,
	PRIMARY KEY (address, display_name)
);
CREATE INDEX idx_addresses_rank ON addresses(rank);
`

// writeSQLite creates a fresh database holding one row per address and one
// row per (address, display name) pair.
func writeSQLite(ctx context.Context, path string, records []rank.Ranked, snap *aggregate.Snapshot) (int, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	names, err := insertSQLite(ctx, tx, records, snap)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return names, nil
}

func insertSQLite(ctx context.Context, tx *sql.Tx, records []rank.Ranked, snap *aggregate.Snapshot) (int, error) {
	addrStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO addresses (address, display_name, total, rank) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare addresses insert: %w", err)
	}
	defer addrStmt.Close()

	nameStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO names (address, display_name, count) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare names insert: %w", err)
	}
	defer nameStmt.Close()

	names := 0
	for i, r := range records {
		if _, err := addrStmt.ExecContext(ctx, r.Address, r.Name, int64(r.Total), i+1); err != nil {
			return 0, fmt.Errorf("insert address %s: %w", r.Address, err)
		}
		if snap == nil {
			continue
		}
		rec, ok := snap.Get(r.Address)
		if !ok {
			continue
		}
		for name, n := range rec.Names {
			if _, err := nameStmt.ExecContext(ctx, r.Address, name, int64(n)); err != nil {
				return 0, fmt.Errorf("insert name for %s: %w", r.Address, err)
			}
			names++
		}
	}
	return names, nil
}
