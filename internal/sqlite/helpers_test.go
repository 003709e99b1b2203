package sqlite

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbswap/internal/schema"
)

// discard is a logger for tests that do not inspect log output.
var discard = zerolog.New(io.Discard)

// createDB creates a database at dir/name, runs the statements, and returns
// it open. The database is closed when the test ends.
func createDB(t *testing.T, dir, name string, stmts ...string) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(dir, name)
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return db, path
}

// prepareDest builds a destination from ddl and registers cleanup.
func prepareDest(t *testing.T, dir, ddl string) *sql.DB {
	t.Helper()
	db, err := Prepare(filepath.Join(dir, "dest.db"), schema.Batch{SQL: ddl})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// queryRows returns every row of query as a slice of values.
func queryRows(t *testing.T, db *sql.DB, query string) [][]any {
	t.Helper()
	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out [][]any
	for rows.Next() {
		row := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		out = append(out, row)
	}
	require.NoError(t, rows.Err())
	return out
}

// count returns SELECT COUNT(*) for table.
func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n))
	return n
}

// writeHotWAL writes a WAL-mode database to path whose rows live only in
// path-wal, as a writer that never checkpointed leaves it.
func writeHotWAL(t *testing.T, path string, stmts ...string) {
	t.Helper()
	live := filepath.Join(t.TempDir(), "live.db")
	db, err := Open(live)
	require.NoError(t, err)
	defer db.Close()
	for _, s := range append([]string{"PRAGMA journal_mode = WAL", "PRAGMA wal_autocheckpoint = 0"}, stmts...) {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	// Copied while the writer is open, so the log is not folded back.
	for _, suffix := range []string{"", "-wal"} {
		data, err := os.ReadFile(live + suffix)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path+suffix, data, 0o644))
	}
}

// holdReadLock opens a second connection to the database at path and keeps
// a read transaction open on it until the test ends.
func holdReadLock(t *testing.T, path string) *sql.Tx {
	t.Helper()
	db, err := Open(path)
	require.NoError(t, err)
	tx, err := db.Begin()
	require.NoError(t, err)
	t.Cleanup(func() {
		tx.Rollback()
		db.Close()
	})
	var n int
	require.NoError(t, tx.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&n))
	return tx
}
