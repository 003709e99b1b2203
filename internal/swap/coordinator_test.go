package swap

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbswap/internal/sqlite"
	"github.com/mesh-intelligence/dbswap/pkg/types"
)

const bibleSchema = `CREATE TABLE books (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    testament TEXT
);
CREATE TABLE verses (
    id INTEGER PRIMARY KEY,
    text TEXT NOT NULL
);`

// fixture lays out a schema script and a source database in a temp dir.
type fixture struct {
	dir string
	cfg types.Config
}

func newFixture(t *testing.T, schemaSQL string, sourceStmts ...string) fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := types.Config{
		SchemaPath: filepath.Join(dir, "schema.sql"),
		SourcePath: filepath.Join(dir, "bible.db"),
	}.WithDefaults()
	require.NoError(t, os.WriteFile(cfg.SchemaPath, []byte(schemaSQL), 0o644))

	db, err := sqlite.Open(cfg.SourcePath)
	require.NoError(t, err)
	for _, s := range sourceStmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	require.NoError(t, db.Close())
	return fixture{dir: dir, cfg: cfg}
}

func (f fixture) coordinator() *Coordinator {
	return New(f.cfg, zerolog.New(io.Discard))
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenReadOnly(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunAddsNullableColumn(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis')",
	)
	original, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)

	res, err := f.coordinator().Run()
	require.NoError(t, err)

	assert.Equal(t, types.StateSwapped, res.State)
	assert.Equal(t, types.OutcomeSuccess, res.Outcome)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, int64(len(original)), res.BackupBytes)
	assert.Empty(t, res.RecoveryPath)
	assert.NoFileExists(t, f.cfg.DestinationPath)

	db := openDB(t, f.cfg.SourcePath)
	var id int64
	var name string
	var testament sql.NullString
	require.NoError(t, db.QueryRow("SELECT id, name, testament FROM books").Scan(&id, &name, &testament))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Genesis", name)
	assert.False(t, testament.Valid)

	backup, err := os.ReadFile(f.cfg.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, original, backup)
}

func TestRunSkipsViolatingRows(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE verses (id INTEGER PRIMARY KEY, text TEXT)",
		"INSERT INTO verses VALUES (1, 'In the beginning'), (2, NULL), (3, 'And the earth')",
	)

	res, err := f.coordinator().Run()
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, res.Outcome)

	require.Len(t, res.Copy.Tables, 1)
	verses := res.Copy.Tables[0]
	assert.Equal(t, 2, verses.Succeeded)
	require.Len(t, verses.Failed, 1)
	assert.Equal(t, []any{int64(2), nil}, verses.Failed[0].Row)

	db := openDB(t, f.cfg.SourcePath)
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM verses").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRunRecoversFromInterruptedRun(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis'), (2, 'Exodus')",
	)

	// A killed run leaves a fully copied destination and its journal behind.
	stale, err := sqlite.Prepare(f.cfg.DestinationPath, mustLoad(t, f.cfg.SchemaPath))
	require.NoError(t, err)
	_, err = stale.Exec("INSERT INTO books VALUES (1, 'Genesis', NULL), (99, 'Stale', NULL)")
	require.NoError(t, err)
	require.NoError(t, stale.Close())
	require.NoError(t, os.WriteFile(f.cfg.DestinationPath+"-journal", []byte("torn"), 0o644))

	res, err := f.coordinator().Run()
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, res.Outcome)
	assert.True(t, res.Copy.Tables[0].OK())

	db := openDB(t, f.cfg.SourcePath)
	var ids []int64
	rows, err := db.Query("SELECT id FROM books ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoFileExists(t, f.cfg.DestinationPath+"-journal")
}

func TestRunOverwritesPreviousBackup(t *testing.T) {
	f := newFixture(t, bibleSchema, "CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, os.WriteFile(f.cfg.BackupPath, []byte("last run's backup"), 0o600))

	mtime := time.Date(2020, 5, 17, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(f.cfg.SourcePath, mtime, mtime))
	original, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)
	srcInfo, err := os.Stat(f.cfg.SourcePath)
	require.NoError(t, err)

	_, err = f.coordinator().Run()
	require.NoError(t, err)

	backup, err := os.ReadFile(f.cfg.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, original, backup)

	info, err := os.Stat(f.cfg.BackupPath)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime), "backup mtime %v", info.ModTime())
	assert.Equal(t, srcInfo.Mode().Perm(), info.Mode().Perm())
}

func TestRunLockedSource(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis')",
	)
	original, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)

	c := f.coordinator()
	c.fs.rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrPermission}
	}

	res, err := c.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSwapLocked)
	assert.Equal(t, types.OutcomePartial, res.Outcome)
	assert.Equal(t, types.StateSwapFailed, res.State)
	assert.Equal(t, f.cfg.DestinationPath, res.RecoveryPath)

	current, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, original, current, "source must be unchanged")

	db := openDB(t, f.cfg.DestinationPath)
	var testament sql.NullString
	require.NoError(t, db.QueryRow("SELECT testament FROM books WHERE id = 1").Scan(&testament))
	assert.False(t, testament.Valid)
}

func TestRunRenameFailureIsUnexpected(t *testing.T) {
	f := newFixture(t, bibleSchema, "CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)")

	c := f.coordinator()
	c.fs.rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errors.New("cross-device link")}
	}

	res, err := c.Run()
	assert.ErrorIs(t, err, types.ErrUnexpected)
	assert.Equal(t, types.OutcomeFailed, res.Outcome)
	assert.Equal(t, f.cfg.DestinationPath, res.RecoveryPath)
	assert.FileExists(t, f.cfg.SourcePath)
	assert.FileExists(t, f.cfg.BackupPath)
}

func TestRunPanicIsReported(t *testing.T) {
	f := newFixture(t, bibleSchema, "CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)")

	c := f.coordinator()
	c.fs.rename = func(string, string) error { panic("disk gremlin") }

	res, err := c.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnexpected)
	assert.Contains(t, res.Error, "disk gremlin")
	assert.Equal(t, f.cfg.DestinationPath, res.RecoveryPath)
	assert.FileExists(t, f.cfg.SourcePath)
}

func TestRunSchemaError(t *testing.T) {
	f := newFixture(t, "CREATE TABLE books (id INTEGER PRIMARY KEY;",
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
	)

	res, err := f.coordinator().Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSchemaApply)
	assert.Equal(t, types.StateBuildFailed, res.State)
	assert.Empty(t, res.RecoveryPath)
	assert.FileExists(t, f.cfg.DestinationPath, "left for inspection")
	assert.NoFileExists(t, f.cfg.BackupPath)
}

func TestRunMissingInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture)
	}{
		{
			name:   "schema",
			mutate: func(f *fixture) { require.NoError(t, os.Remove(f.cfg.SchemaPath)) },
		},
		{
			name:   "source",
			mutate: func(f *fixture) { require.NoError(t, os.Remove(f.cfg.SourcePath)) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, bibleSchema, "CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)")
			tt.mutate(&f)

			res, err := f.coordinator().Run()
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrIO)
			assert.Equal(t, types.StateStart, res.State)
			assert.NoFileExists(t, f.cfg.DestinationPath)
			assert.NoFileExists(t, f.cfg.BackupPath)
		})
	}
}

func TestRunNotADatabase(t *testing.T) {
	f := newFixture(t, bibleSchema)
	require.NoError(t, os.WriteFile(f.cfg.SourcePath, bytes.Repeat([]byte("not sqlite "), 200), 0o644))

	res, err := f.coordinator().Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.Equal(t, types.StateStart, res.State)
	assert.NoFileExists(t, f.cfg.DestinationPath)
}

func TestRunInvalidConfig(t *testing.T) {
	f := newFixture(t, bibleSchema)
	f.cfg.DestinationPath = f.cfg.SourcePath

	_, err := f.coordinator().Run()
	assert.ErrorIs(t, err, types.ErrConfigInvalid)
}

func TestRunFailureThreshold(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE verses (id INTEGER PRIMARY KEY, text TEXT)",
		"INSERT INTO verses VALUES (1, 'a'), (2, NULL), (3, NULL), (4, 'd')",
	)
	f.cfg.FailureThreshold = 0.25
	original, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)

	res, err := f.coordinator().Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrFailureThreshold)
	assert.Equal(t, types.StateCopyFailed, res.State)
	assert.Equal(t, f.cfg.DestinationPath, res.RecoveryPath)

	current, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, original, current)
	assert.NoFileExists(t, f.cfg.BackupPath)

	f.cfg.FailureThreshold = 0.5
	res, err = f.coordinator().Run()
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, res.Outcome)
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis')",
	)
	f.cfg.DryRun = true

	res, err := f.coordinator().Run()
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeDryRun, res.Outcome)
	assert.Equal(t, types.StateCopied, res.State)
	assert.FileExists(t, f.cfg.DestinationPath)
	assert.NoFileExists(t, f.cfg.BackupPath)

	src := openDB(t, f.cfg.SourcePath)
	cols, err := sqlite.DescribeColumns(src, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols.Columns)
}

func TestRunLogsOutcome(t *testing.T) {
	f := newFixture(t, bibleSchema, "CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)")

	var buf bytes.Buffer
	res, err := New(f.cfg, zerolog.New(&buf)).Run()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"run":"`+res.RunID+`"`)
	assert.Contains(t, out, "copying table")
	assert.Contains(t, out, "source backed up")
	assert.Contains(t, out, "migration completed successfully")
}

// writeHotWAL replaces the fixture's source with a WAL-mode database whose
// rows live only in its -wal file, as left by a writer that never
// checkpointed.
func (f fixture) writeHotWAL(t *testing.T, stmts ...string) {
	t.Helper()
	live := filepath.Join(t.TempDir(), "live.db")
	db, err := sqlite.Open(live)
	require.NoError(t, err)
	defer db.Close()
	for _, s := range append([]string{"PRAGMA journal_mode = WAL", "PRAGMA wal_autocheckpoint = 0"}, stmts...) {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	for _, suffix := range []string{"", "-wal"} {
		data, err := os.ReadFile(live + suffix)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(f.cfg.SourcePath+suffix, data, 0o644))
	}
}

func TestRunWALSource(t *testing.T) {
	f := newFixture(t, bibleSchema)
	f.writeHotWAL(t,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis'), (2, 'Exodus')",
	)

	res, err := f.coordinator().Run()
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Copy.Succeeded())
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		assert.NoFileExists(t, f.cfg.SourcePath+suffix)
	}

	db := openDB(t, f.cfg.SourcePath)
	desc, err := sqlite.DescribeColumns(db, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "testament"}, desc.Columns)
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM books").Scan(&n))
	assert.Equal(t, 2, n)

	// The backup file alone restores the old rows.
	data, err := os.ReadFile(f.cfg.BackupPath)
	require.NoError(t, err)
	restored := filepath.Join(f.dir, "restored.db")
	require.NoError(t, os.WriteFile(restored, data, 0o644))
	old := openDB(t, restored)
	desc, err = sqlite.DescribeColumns(old, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, desc.Columns)
	require.NoError(t, old.QueryRow("SELECT COUNT(*) FROM books").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRunSourceWrittenDuringRun(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis')",
	)
	original, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)

	c := f.coordinator()
	c.copyAll = func(src, dst *sql.DB, log zerolog.Logger) (types.CopyReport, error) {
		report, err := sqlite.CopyAll(src, dst, log)
		require.NoError(t, os.WriteFile(f.cfg.SourcePath+"-wal", []byte("frames from another writer"), 0o644))
		return report, err
	}

	res, err := c.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.Equal(t, types.StateSwapFailed, res.State)
	assert.Equal(t, f.cfg.DestinationPath, res.RecoveryPath)
	assert.NoFileExists(t, f.cfg.BackupPath)
	assert.FileExists(t, f.cfg.SourcePath+"-wal")

	current, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, original, current)
}

func TestRunCommitFailure(t *testing.T) {
	f := newFixture(t, bibleSchema,
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO books VALUES (1, 'Genesis')",
	)
	original, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)

	c := f.coordinator()
	c.copyAll = func(src, dst *sql.DB, log zerolog.Logger) (types.CopyReport, error) {
		// A reader on the destination keeps COMMIT from taking its write lock.
		reader, err := sqlite.Open(f.cfg.DestinationPath)
		require.NoError(t, err)
		defer reader.Close()
		tx, err := reader.Begin()
		require.NoError(t, err)
		defer tx.Rollback()
		var n int
		require.NoError(t, tx.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&n))

		return sqlite.CopyAll(src, dst, log)
	}

	res, err := c.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCommit)
	assert.Equal(t, types.StateCopyFailed, res.State)
	assert.Equal(t, types.OutcomeFailed, res.Outcome)
	assert.Empty(t, res.RecoveryPath, "an uncommitted destination is not offered as a replacement")
	assert.NoFileExists(t, f.cfg.BackupPath)

	current, err := os.ReadFile(f.cfg.SourcePath)
	require.NoError(t, err)
	assert.Equal(t, original, current)
}
