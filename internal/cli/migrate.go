package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/dbswap/internal/paths"
	"github.com/mesh-intelligence/dbswap/pkg/dbswap"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rebuild the database from the schema script and swap it in",
		Long: `Build a new database from the schema script, copy every table of the
source database into it, back the source up, and replace the source with
the new file.

Rows the new schema rejects are skipped and reported. If the source file is
in use by another process the new database is left next to it and the
command exits with status 3.`,
		Example: `  dbswap migrate --schema create_bible_db.sql --source bible.db
  dbswap migrate --dry-run --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return err
			}
			v, err := loadConfig(configDir, cmd.Flags())
			if err != nil {
				return err
			}
			log, err := newLogger(cmd.ErrOrStderr(), v.GetString(cfgKeyLogLevel), v.GetString(cfgKeyLogFormat))
			if err != nil {
				return err
			}
			cfg, err := migrationConfig(v)
			if err != nil {
				return err
			}
			cfg.DryRun = dryRun

			res, runErr := dbswap.Migrate(cfg, log)
			if err := printResult(cmd.OutOrStdout(), res, flags.jsonMode); err != nil {
				return err
			}
			if runErr != nil {
				return &runError{err: runErr}
			}
			return nil
		},
	}

	cmd.Flags().String("schema", "", "schema script to build the new database from (default: schema.sql)")
	cmd.Flags().String("source", "", "database file to migrate (default: database.db)")
	cmd.Flags().String("destination", "", "path for the new database (default: <source stem>_new<ext>)")
	cmd.Flags().String("backup", "", "backup path for the source (default: <source>.bak)")
	cmd.Flags().Float64("failure-threshold", 0, "abort before the swap if more than this fraction of rows is skipped (0 disables)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "build and fill the new database but leave the source in place")

	return cmd
}
