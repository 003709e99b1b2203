package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/dbswap/internal/paths"
	"github.com/mesh-intelligence/dbswap/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "DBSWAP"

	// Config keys.
	cfgKeySchema      = "schema_path"
	cfgKeySource      = "source_path"
	cfgKeyDestination = "destination_path"
	cfgKeyBackup      = "backup_path"
	cfgKeyThreshold   = "failure_threshold"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"

	defaultSchemaPath = "schema.sql"
	defaultSourcePath = "database.db"
	defaultLogLevel   = "info"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"schema":            cfgKeySchema,
	"source":            cfgKeySource,
	"destination":       cfgKeyDestination,
	"backup":            cfgKeyBackup,
	"failure-threshold": cfgKeyThreshold,
	"log-level":         cfgKeyLogLevel,
	"log-format":        cfgKeyLogFormat,
}

// loadConfig reads config.yaml from configDir, DBSWAP_* environment
// variables, and the flags in fs that are registered in flagKeys. Precedence:
// flag > env > config.yaml > default. A missing config.yaml is not an error.
func loadConfig(configDir string, fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeySchema, defaultSchemaPath)
	v.SetDefault(cfgKeySource, defaultSourcePath)
	v.SetDefault(cfgKeyDestination, "")
	v.SetDefault(cfgKeyBackup, "")
	v.SetDefault(cfgKeyThreshold, 0.0)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, logFormatConsole)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// migrationConfig builds the run configuration from v.
func migrationConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.Config{
		SchemaPath:       v.GetString(cfgKeySchema),
		SourcePath:       v.GetString(cfgKeySource),
		DestinationPath:  v.GetString(cfgKeyDestination),
		BackupPath:       v.GetString(cfgKeyBackup),
		FailureThreshold: v.GetFloat64(cfgKeyThreshold),
	}
	cfg, err := paths.Absolute(cfg)
	if err != nil {
		return cfg, fmt.Errorf("resolve paths: %w", err)
	}
	return cfg, cfg.Validate()
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// configPath returns the config.yaml path inside configDir.
func configPath(configDir string) string {
	return filepath.Join(configDir, configFileExt)
}
