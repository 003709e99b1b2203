package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config holds the file locations and policy for one migration run.
// The coordinator receives it by value; nothing in the engine reads paths
// from package state.
type Config struct {
	SchemaPath      string `json:"schema_path" yaml:"schema_path"`
	SourcePath      string `json:"source_path" yaml:"source_path"`
	DestinationPath string `json:"destination_path" yaml:"destination_path,omitempty"`
	BackupPath      string `json:"backup_path" yaml:"backup_path,omitempty"`

	// FailureThreshold is the largest tolerated fraction of failed row
	// inserts. Zero disables the check.
	FailureThreshold float64 `json:"failure_threshold" yaml:"failure_threshold"`

	// DryRun stops the run once the destination is committed.
	DryRun bool `json:"dry_run" yaml:"-"`
}

// Suffixes used to derive paths from SourcePath.
const (
	DestinationSuffix = "_new"
	BackupSuffix      = ".bak"
)

// DestinationFor returns the default destination path for source:
// "<dir>/<stem>_new<ext>".
func DestinationFor(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + DestinationSuffix + ext
}

// BackupFor returns the default backup path for source: "<source>.bak".
func BackupFor(source string) string {
	return source + BackupSuffix
}

// WithDefaults returns a copy of c with empty derived paths filled in from
// SourcePath.
func (c Config) WithDefaults() Config {
	if c.SourcePath == "" {
		return c
	}
	if c.DestinationPath == "" {
		c.DestinationPath = DestinationFor(c.SourcePath)
	}
	if c.BackupPath == "" {
		c.BackupPath = BackupFor(c.SourcePath)
	}
	return c
}

// Validate checks that every path is set, that no two database paths
// collide, and that FailureThreshold lies in [0, 1]. Failures wrap
// ErrConfigInvalid.
func (c Config) Validate() error {
	required := []struct {
		key, val string
	}{
		{"schema_path", c.SchemaPath},
		{"source_path", c.SourcePath},
		{"destination_path", c.DestinationPath},
		{"backup_path", c.BackupPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrConfigInvalid, r.key)
		}
	}

	src := filepath.Clean(c.SourcePath)
	if filepath.Clean(c.DestinationPath) == src {
		return fmt.Errorf("%w: destination_path must differ from source_path", ErrConfigInvalid)
	}
	if filepath.Clean(c.BackupPath) == src {
		return fmt.Errorf("%w: backup_path must differ from source_path", ErrConfigInvalid)
	}
	if filepath.Clean(c.BackupPath) == filepath.Clean(c.DestinationPath) {
		return fmt.Errorf("%w: backup_path must differ from destination_path", ErrConfigInvalid)
	}
	if c.FailureThreshold < 0 || c.FailureThreshold > 1 {
		return fmt.Errorf("%w: failure_threshold %v outside [0, 1]", ErrConfigInvalid, c.FailureThreshold)
	}
	return nil
}
