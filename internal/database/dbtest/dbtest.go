// Package dbtest provides a migrated SQLite database for repository tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitdraft/internal/database"
)

// New returns a fresh, fully migrated SQLite database in t's temp dir
func New(t testing.TB) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(database.SQLite, path))

	db, err := database.NewSQLiteConnection(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// Exec runs fixture statements written with ? placeholders
func Exec(t testing.TB, db *database.DB, query string, args ...any) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), db.Rebind(query), args...)
	require.NoError(t, err)
}
