package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// printResult writes the run summary as text or, in JSON mode, as the
// Result document.
func printResult(w io.Writer, res *types.Result, jsonMode bool) error {
	if jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	switch res.Outcome {
	case types.OutcomeSuccess:
		fmt.Fprintln(w, "Migration completed successfully")
		printCopySummary(w, res)
		fmt.Fprintf(w, "  backup:   %s (%s)\n", res.BackupPath, humanize.Bytes(uint64(res.BackupBytes)))
		fmt.Fprintf(w, "  database: %s\n", res.SourcePath)
	case types.OutcomeDryRun:
		fmt.Fprintln(w, "Dry run completed; the source database was not changed")
		printCopySummary(w, res)
		fmt.Fprintf(w, "  migrated: %s\n", res.DestinationPath)
	case types.OutcomePartial:
		fmt.Fprintln(w, "Could not replace the source database because it is being used by another process.")
		fmt.Fprintln(w, "Close any application that might be using the database file.")
		printCopySummary(w, res)
		fmt.Fprintf(w, "  migrated: %s\n", res.DestinationPath)
		fmt.Fprintf(w, "  source:   %s (unchanged)\n", res.SourcePath)
		fmt.Fprintln(w, "Move the migrated file over the source once it is no longer in use.")
	default:
		fmt.Fprintf(w, "Migration failed: %s\n", res.Error)
		if res.SourcePath != "" {
			fmt.Fprintf(w, "  source:   %s (unchanged)\n", res.SourcePath)
		}
		if res.RecoveryPath != "" {
			fmt.Fprintf(w, "A migrated database was created at %s\n", res.RecoveryPath)
			fmt.Fprintln(w, "It can replace the source database by hand.")
		}
	}
	return nil
}

func printCopySummary(w io.Writer, res *types.Result) {
	c := res.Copy
	fmt.Fprintf(w, "  run:      %s\n", res.RunID)
	fmt.Fprintf(w, "  tables:   %d copied, %d skipped\n", len(c.Tables)-len(c.FailedTables()), len(c.FailedTables()))
	fmt.Fprintf(w, "  rows:     %d copied, %d skipped\n", c.Succeeded(), c.FailedRows())
	for _, t := range c.Tables {
		if t.Err != nil {
			fmt.Fprintf(w, "    %s: %s\n", t.Table, t.Reason)
			continue
		}
		if len(t.Failed) > 0 {
			fmt.Fprintf(w, "    %s: %d of %d rows skipped\n", t.Table, len(t.Failed), t.Attempted)
		}
	}
}
