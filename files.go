package multilogin

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// ApplyMigrations executes the embedded migrations in filename order.
// Statements are idempotent so running at every boot is safe.
func ApplyMigrations(ctx context.Context, db *bun.DB) error {
	entries, err := fs.Glob(migrationsFS, "data/sql/migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to enumerate migrations")
	}
	sort.Strings(entries)

	for _, name := range entries {
		raw, err := migrationsFS.ReadFile(name)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to read migration "+name)
		}
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to apply migration "+name)
		}
	}

	return nil
}
