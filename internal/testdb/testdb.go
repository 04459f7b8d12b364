package testdb

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/e3sm/warehouse/pkg/results"
)

// CreateTestDB creates a migrated SQLite database in a temporary directory.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Give each test its own database file to avoid cross-test contention and
	// limit the connection pool to a single connection so modernc SQLite doesn't
	// deadlock waiting on internal locks.
	d := t.TempDir()
	dsn := fmt.Sprintf("file:%s/testdb_%d.db", d, time.Now().UnixNano())

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "failed to open SQLite database")
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	t.Cleanup(func() {
		db.Close()
	})

	require.NoError(t, results.Migrate(t.Context(), db, results.DialectSQLite), "failed to apply migrations")
	return db
}

// CreateTestRepo creates a results repo over a fresh test database.
func CreateTestRepo(t *testing.T) *results.Repo {
	t.Helper()
	repo, err := results.New(CreateTestDB(t), results.DialectSQLite)
	require.NoError(t, err)
	return repo
}
