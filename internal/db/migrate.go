package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    id TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
);
`

// Migrate applies every embedded migration that has not been recorded yet.
// The SQL is kept to the subset Postgres and SQLite share.
func Migrate(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, schemaMigrations); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		id := migrationID(name, body)

		applied, err := isMigrationApplied(ctx, db, id)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, db, id, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationID(name string, body []byte) string {
	h := sha256.Sum256(body)
	return name + ":" + hex.EncodeToString(h[:8])
}

func isMigrationApplied(ctx context.Context, db *DB, id string) (bool, error) {
	var v string
	err := db.QueryRowContext(ctx, db.Rebind("SELECT id FROM schema_migrations WHERE id = ?"), id).Scan(&v)
	if err == nil {
		return true, nil
	}
	if err == sql.ErrNoRows {
		return false, nil
	}
	return false, err
}

func applyMigration(ctx context.Context, db *DB, id, sqlText string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqlText); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		db.Rebind("INSERT INTO schema_migrations (id, applied_at) VALUES (?, ?)"),
		id, time.Now().UnixMilli(),
	); err != nil {
		return err
	}
	return tx.Commit()
}
