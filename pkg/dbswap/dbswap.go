// Package dbswap is the public API of the dbswap migration engine.
//
// Example:
//
//	res, err := dbswap.Migrate(types.Config{
//	    SchemaPath: "schema.sql",
//	    SourcePath: "bible.db",
//	}, zerolog.New(os.Stderr))
//	if errors.Is(err, types.ErrSwapLocked) {
//	    // res.DestinationPath holds the migrated database.
//	}
package dbswap

import (
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/dbswap/internal/paths"
	"github.com/mesh-intelligence/dbswap/internal/swap"
	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// Version is the dbswap release version.
const Version = "0.1.0"

// ModulePath is the Go module path of dbswap.
const ModulePath = "github.com/mesh-intelligence/dbswap"

// Migrate rebuilds the database at cfg.SourcePath from the schema script at
// cfg.SchemaPath, copies its rows across, and swaps the result into place.
// Relative paths are resolved against the working directory and missing
// derived paths are filled in. The Result is never nil.
func Migrate(cfg types.Config, log zerolog.Logger) (*types.Result, error) {
	abs, err := paths.Absolute(cfg)
	if err != nil {
		return &types.Result{Outcome: types.OutcomeFailed, Error: err.Error()},
			types.NewError(types.ErrIO, "resolve paths", cfg.SourcePath, err)
	}
	return swap.New(abs, log).Run()
}
