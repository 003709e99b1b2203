// Package sqlite builds migrated SQLite databases and copies rows into them.
// The database/sql driver is modernc.org/sqlite unless the mattn build tag
// selects github.com/mattn/go-sqlite3.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Querier runs read queries. *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// Preparer prepares statements. *sql.DB and *sql.Tx satisfy it.
type Preparer interface {
	Prepare(query string) (*sql.Stmt, error)
}

// sidecarSuffixes name the files SQLite keeps next to a database.
var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// Open opens the database at path for reading and writing, creating it if
// needed. The pool is pinned to one connection so pragmas and transactions
// land on the same handle.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenReadOnly opens an existing database without write access. It fails if
// the file does not exist.
func OpenReadOnly(path string) (*sql.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, readOnlyDSN(abs))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// readOnlyDSN builds a SQLite URI filename for abs with mode=ro.
func readOnlyDSN(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths become /C:/...
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String()
}

// RemoveDatabase deletes the database file at path together with its
// journal and WAL sidecars. Missing files are not an error.
func RemoveDatabase(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return RemoveSidecars(path)
}

// Settle folds any write-ahead log or hot rollback journal next to the
// database at path back into the main file, so that the main file alone
// holds every committed row. It does nothing when no sidecar is present.
// A log that cannot be fully checkpointed because another connection is
// reading or writing is an error.
func Settle(path string) error {
	pending, err := PendingLog(path)
	if err != nil || !pending {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}

	db, err := Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	// Reading the catalog rolls back a hot journal.
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		return err
	}
	var busy, logFrames, checkpointed int
	if err := db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logFrames, &checkpointed); err != nil {
		return err
	}
	if busy != 0 {
		return fmt.Errorf("checkpoint %s: write-ahead log is in use (%d of %d frames copied)", path, checkpointed, logFrames)
	}
	return db.Close()
}

// PendingLog reports whether a non-empty write-ahead log or rollback
// journal sits next to the database at path. Such a file may hold
// committed pages the main file lacks.
func PendingLog(path string) (bool, error) {
	for _, p := range []string{path + "-wal", path + "-journal"} {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, err
		}
		if info.Size() > 0 {
			return true, nil
		}
	}
	return false, nil
}

// RemoveSidecars deletes the journal, WAL, and shared-memory files next to
// the database at path. Missing files are not an error.
func RemoveSidecars(path string) error {
	for _, p := range sidecars(path) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func sidecars(path string) []string {
	out := make([]string, len(sidecarSuffixes))
	for i, s := range sidecarSuffixes {
		out[i] = path + s
	}
	return out
}

// quoteIdent quotes a table or column name for use in SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// joinColumns joins column expressions with commas.
func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
