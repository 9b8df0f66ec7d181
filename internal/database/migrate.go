package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Migrate executes every .sql file in migrationsFS in lexical order. The
// migration files are idempotent (CREATE TABLE IF NOT EXISTS), so running
// them on every startup is safe.
func Migrate(ctx context.Context, db *sqlx.DB, migrationsFS fs.FS) error {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("fs.Glob() > %w", err)
	}
	sort.Strings(entries)

	for _, entry := range entries {
		contents, err := fs.ReadFile(migrationsFS, entry)
		if err != nil {
			return fmt.Errorf("fs.ReadFile(%s) > %w", entry, err)
		}
		if _, err := db.ExecContext(ctx, string(contents)); err != nil {
			return fmt.Errorf("db.ExecContext(%s) > %w", entry, err)
		}
		slog.Default().Info("applied migration", "file", entry)
	}
	return nil
}
