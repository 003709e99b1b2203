package sqlite

import (
	"database/sql"
	"os"

	"github.com/mesh-intelligence/dbswap/internal/schema"
	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// Prepare creates an empty database at path and applies batch to it as one
// transaction. Any file already at path, including sidecars left by an
// earlier run, is deleted first. When the script fails the error has kind
// types.ErrSchemaApply and the created file stays on disk for inspection.
func Prepare(path string, batch schema.Batch) (*sql.DB, error) {
	if err := RemoveDatabase(path); err != nil {
		return nil, types.NewError(types.ErrIO, "remove stale destination", path, err)
	}

	// A zero-length file is a valid empty database; creating it up front
	// keeps the file on disk even when the script writes nothing.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, types.NewError(types.ErrIO, "create destination", path, err)
	}
	f.Close()

	db, err := Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrIO, "create destination", path, err)
	}

	if err := applySchema(db, batch); err != nil {
		db.Close()
		return nil, types.NewError(types.ErrSchemaApply, "apply schema", path, err)
	}
	return db, nil
}

// applySchema runs batch in one transaction. A script that manages its own
// transaction runs on the bare connection; if it fails before its COMMIT
// the open transaction is rolled back when the caller closes db.
func applySchema(db *sql.DB, batch schema.Batch) error {
	if batch.ManagesTransaction() {
		_, err := db.Exec(batch.SQL)
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !batch.Empty() {
		if _, err := tx.Exec(batch.SQL); err != nil {
			return err
		}
	}
	return tx.Commit()
}
