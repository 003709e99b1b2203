package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbswap/internal/paths"
	"github.com/mesh-intelligence/dbswap/internal/sqlite"
	"github.com/mesh-intelligence/dbswap/pkg/types"
)

func newInspectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [database]",
		Short: "List the user tables and columns of a database",
		Long: `Print every user table of a database with its columns, in the order
migrate copies them. Without an argument the configured source is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				configDir, err := paths.ResolveConfigDir(flags.configDir)
				if err != nil {
					return err
				}
				v, err := loadConfig(configDir, cmd.Flags())
				if err != nil {
					return err
				}
				path = v.GetString(cfgKeySource)
			}

			tables, err := inspect(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tables)
			}
			for _, t := range tables {
				fmt.Fprintf(out, "%s (%s)\n", t.Name, strings.Join(t.Columns, ", "))
			}
			return nil
		},
	}
}

// inspect describes every user table of the database at path.
func inspect(path string) ([]types.TableDescriptor, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, types.NewError(types.ErrIO, "open database", path, err)
	}
	defer db.Close()

	names, err := sqlite.ListUserTables(db)
	if err != nil {
		return nil, types.NewError(types.ErrIO, "read catalog", path, err)
	}
	tables := make([]types.TableDescriptor, 0, len(names))
	for _, name := range names {
		desc, err := sqlite.DescribeColumns(db, name)
		if err != nil {
			return nil, types.NewError(types.ErrIO, "describe table", path, err)
		}
		tables = append(tables, desc)
	}
	return tables, nil
}

