package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/dbswap/internal/paths"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	SchemaPath       string  `yaml:"schema_path"`
	SourcePath       string  `yaml:"source_path"`
	DestinationPath  string  `yaml:"destination_path,omitempty"`
	BackupPath       string  `yaml:"backup_path,omitempty"`
	FailureThreshold float64 `yaml:"failure_threshold"`
	LogLevel         string  `yaml:"log_level"`
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	var schemaPath, sourcePath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration directory and a default config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return err
			}
			if err := ensureConfigDir(configDir); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			path := configPath(configDir)
			created, err := writeConfigIfMissing(path, configFile{
				SchemaPath: schemaPath,
				SourcePath: sourcePath,
				LogLevel:   defaultLogLevel,
			})
			if err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintln(out, "Configuration written to", path)
			} else {
				fmt.Fprintln(out, "Configuration already exists at", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", defaultSchemaPath, "schema script recorded in config.yaml")
	cmd.Flags().StringVar(&sourcePath, "source", defaultSourcePath, "database file recorded in config.yaml")
	return cmd
}

// writeConfigIfMissing creates config.yaml with cfg if the file does not
// exist. If it already exists, nothing is written (idempotent).
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# dbswap configuration\n# Relative paths are resolved against the working directory.\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
