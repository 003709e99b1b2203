package types

// State is a step of the migration state machine.
type State string

// Run states. StateSwapped is the only successful terminal state; the
// *Failed states are failure exits.
const (
	StateStart       State = "start"
	StateBuilt       State = "built"
	StateCopied      State = "copied"
	StateBackedUp    State = "backed_up"
	StateSwapped     State = "swapped"
	StateBuildFailed State = "build_failed"
	StateCopyFailed  State = "copy_failed"
	StateSwapFailed  State = "swap_failed"
)

// Outcome classifies how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial" // migrated file built, swap blocked by a lock
	OutcomeDryRun  Outcome = "dry_run"
	OutcomeFailed  Outcome = "failed"
)

// Result summarises a migration run.
type Result struct {
	RunID   string  `json:"run_id"`
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome"`

	SchemaPath      string `json:"schema_path"`
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
	BackupPath      string `json:"backup_path"`
	BackupBytes     int64  `json:"backup_bytes,omitempty"`

	Copy CopyReport `json:"copy"`

	// Error is the message of the error that ended the run, if any.
	Error string `json:"error,omitempty"`

	// RecoveryPath is set when a migrated database was left at its own path
	// for the operator to put in place by hand.
	RecoveryPath string `json:"recovery_path,omitempty"`
}
