// Package swap runs a migration end to end: it builds the destination from
// the schema, copies the source into it, backs the source up, and renames
// the destination over the source.
//
// The source file is never deleted. Its write-ahead log is checkpointed
// before anything is read, and its sidecar files are removed just before
// it is replaced by a single rename. The rename happens only after the
// backup has been written and verified, so at every point either the old
// or the new database sits at a known path.
package swap

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/dbswap/internal/schema"
	"github.com/mesh-intelligence/dbswap/internal/sqlite"
	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// fileOps holds the file operations used for the swap; tests replace them
// to simulate a locked source.
type fileOps struct {
	rename func(oldpath, newpath string) error
	stat   func(name string) (fs.FileInfo, error)
}

// copyFunc copies every table of src into dst.
type copyFunc func(src, dst *sql.DB, log zerolog.Logger) (types.CopyReport, error)

// Coordinator sequences one migration run.
type Coordinator struct {
	cfg     types.Config
	log     zerolog.Logger
	fs      fileOps
	copyAll copyFunc

	// committed is set once the copy transaction has committed, so the
	// destination holds the migrated rows.
	committed bool
}

// New creates a Coordinator for cfg. Derived paths missing from cfg are
// filled in with Config.WithDefaults.
func New(cfg types.Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg: cfg.WithDefaults(),
		log: log,
		fs: fileOps{
			rename: os.Rename,
			stat:   os.Stat,
		},
		copyAll: sqlite.CopyAll,
	}
}

// Run performs the migration. The returned Result is never nil and
// describes how far the run got; the error, when non-nil, matches one of
// the types.Err* kinds. types.ErrSwapLocked marks the partial outcome: the
// migrated database is complete at DestinationPath and the source is
// untouched.
func (c *Coordinator) Run() (res *types.Result, err error) {
	res = &types.Result{
		RunID:           newRunID(),
		State:           types.StateStart,
		SchemaPath:      c.cfg.SchemaPath,
		SourcePath:      c.cfg.SourcePath,
		DestinationPath: c.cfg.DestinationPath,
		BackupPath:      c.cfg.BackupPath,
	}
	log := c.log.With().Str("run", res.RunID).Logger()
	c.committed = false

	defer func() {
		if p := recover(); p != nil {
			err = types.NewError(types.ErrUnexpected, "migrate", "", fmt.Errorf("panic: %v", p))
		}
		err = c.finish(res, err, log)
	}()

	return res, c.run(res, log)
}

func (c *Coordinator) run(res *types.Result, log zerolog.Logger) error {
	cfg := c.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Info().
		Str("source", cfg.SourcePath).
		Str("schema", cfg.SchemaPath).
		Msg("starting database migration")

	batch, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}
	if batch.Empty() {
		log.Warn().Str("schema", cfg.SchemaPath).Msg("schema script is empty")
	}

	if err := sqlite.Settle(cfg.SourcePath); err != nil {
		return types.NewError(types.ErrIO, "checkpoint source", cfg.SourcePath, err)
	}
	src, err := sqlite.OpenReadOnly(cfg.SourcePath)
	if err != nil {
		return types.NewError(types.ErrIO, "open source", cfg.SourcePath, err)
	}
	defer src.Close()

	tables, err := sqlite.ListUserTables(src)
	if err != nil {
		return types.NewError(types.ErrIO, "read source catalog", cfg.SourcePath, err)
	}
	log.Info().Int("tables", len(tables)).Msg("source opened")

	dst, err := sqlite.Prepare(cfg.DestinationPath, batch)
	if err != nil {
		res.State = types.StateBuildFailed
		return err
	}
	defer dst.Close()
	c.advance(res, types.StateBuilt, log)

	res.Copy, err = c.copyAll(src, dst, log)
	if err != nil {
		res.State = types.StateCopyFailed
		return err
	}
	c.committed = true
	// Both handles must be released before the files are touched.
	if err := errors.Join(src.Close(), dst.Close()); err != nil {
		res.State = types.StateCopyFailed
		return types.NewError(types.ErrUnexpected, "close databases", "", err)
	}
	c.advance(res, types.StateCopied, log)

	if t := cfg.FailureThreshold; t > 0 && res.Copy.FailureRate() > t {
		res.State = types.StateCopyFailed
		return types.NewError(types.ErrFailureThreshold, "check copy", "", fmt.Errorf(
			"%d of %d rows skipped (%.2f%% > %.2f%%)",
			res.Copy.FailedRows(), res.Copy.Attempted(), 100*res.Copy.FailureRate(), 100*t))
	}

	if cfg.DryRun {
		res.Outcome = types.OutcomeDryRun
		return nil
	}

	// The backup copies the main file only.
	pending, err := sqlite.PendingLog(cfg.SourcePath)
	if err != nil || pending {
		res.State = types.StateSwapFailed
		if err == nil {
			err = errors.New("source has a write-ahead log or journal written during the run")
		}
		return types.NewError(types.ErrIO, "check source", cfg.SourcePath, err)
	}

	n, err := copyFile(cfg.SourcePath, cfg.BackupPath)
	if err != nil {
		res.State = types.StateSwapFailed
		return types.NewError(types.ErrIO, "back up source", cfg.BackupPath, err)
	}
	if err := verifyCopy(cfg.SourcePath, cfg.BackupPath); err != nil {
		res.State = types.StateSwapFailed
		return types.NewError(types.ErrIO, "verify backup", cfg.BackupPath, err)
	}
	res.BackupBytes = n
	log.Info().
		Str("backup", cfg.BackupPath).
		Str("size", humanize.Bytes(uint64(n))).
		Msg("source backed up")
	c.advance(res, types.StateBackedUp, log)

	// A -wal left next to the source would be replayed over the new file.
	if err := sqlite.RemoveSidecars(cfg.SourcePath); err != nil {
		res.State = types.StateSwapFailed
		if isLocked(err) {
			return types.NewError(types.ErrSwapLocked, "remove source sidecars", cfg.SourcePath, err)
		}
		return types.NewError(types.ErrIO, "remove source sidecars", cfg.SourcePath, err)
	}
	if err := c.fs.rename(cfg.DestinationPath, cfg.SourcePath); err != nil {
		res.State = types.StateSwapFailed
		if isLocked(err) {
			return types.NewError(types.ErrSwapLocked, "replace source", cfg.SourcePath, err)
		}
		return types.NewError(types.ErrUnexpected, "replace source", cfg.SourcePath, err)
	}
	c.advance(res, types.StateSwapped, log)
	res.Outcome = types.OutcomeSuccess
	return nil
}

func (c *Coordinator) advance(res *types.Result, to types.State, log zerolog.Logger) {
	log.Debug().Str("from", string(res.State)).Str("to", string(to)).Msg("state")
	res.State = to
}

// finish records err on res, reports the outcome with next steps, and
// returns err wrapped as types.ErrUnexpected if it carried no kind.
func (c *Coordinator) finish(res *types.Result, err error, log zerolog.Logger) error {
	if err == nil {
		c.reportSuccess(res, log)
		return nil
	}

	var typed *types.Error
	if !errors.As(err, &typed) && !errors.Is(err, types.ErrConfigInvalid) {
		err = types.NewError(types.ErrUnexpected, "migrate", "", err)
	}
	res.Error = err.Error()
	res.Outcome = types.OutcomeFailed
	if c.committed && c.exists(res.DestinationPath) {
		res.RecoveryPath = res.DestinationPath
	}

	switch {
	case errors.Is(err, types.ErrSwapLocked):
		res.Outcome = types.OutcomePartial
		log.Warn().Err(err).Msg("could not replace the source database because another process is using it")
		log.Warn().
			Str("migrated", res.DestinationPath).
			Str("source", res.SourcePath).
			Msg("close any application using the database, then move the migrated file over the source")
	case errors.Is(err, types.ErrSchemaApply):
		log.Error().Err(err).Str("destination", res.DestinationPath).
			Msg("schema script failed; the partial database is left for inspection")
	default:
		log.Error().Err(err).Str("state", string(res.State)).Msg("migration failed")
		if res.RecoveryPath != "" {
			log.Warn().Str("migrated", res.RecoveryPath).
				Msg("a migrated database was left in place and can replace the source by hand")
		}
	}
	if res.State != types.StateSwapped {
		log.Info().Str("source", res.SourcePath).Msg("source database left unchanged")
	}
	return err
}

func (c *Coordinator) reportSuccess(res *types.Result, log zerolog.Logger) {
	ev := log.Info().
		Int("tables", len(res.Copy.Tables)).
		Int("rows", res.Copy.Succeeded()).
		Int("skipped_rows", res.Copy.FailedRows()).
		Strs("skipped_tables", res.Copy.FailedTables())
	if res.Outcome == types.OutcomeDryRun {
		ev.Str("migrated", res.DestinationPath).Msg("dry run complete; source left unchanged")
		return
	}
	ev.Str("backup", res.BackupPath).Str("database", res.SourcePath).Msg("migration completed successfully")
}

func (c *Coordinator) exists(path string) bool {
	_, err := c.fs.stat(path)
	return err == nil
}

// newRunID generates a UUID v7 identifying a run in logs and results.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
