// Package config holds the viper-backed configuration singleton for the
// cohortc CLI. Precedence: flags > COHORTC_* environment variables >
// cohortc.yaml found walking up from the working directory > the user
// config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the configuration singleton. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// Walk up from the working directory looking for cohortc.yaml so
	// commands work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			path := filepath.Join(dir, "cohortc.yaml")
			if _, err := os.Stat(path); err == nil {
				v.SetConfigFile(path)
				configFileSet = true
				break
			}
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			path := filepath.Join(configDir, "cohortc", "cohortc.yaml")
			if _, err := os.Stat(path); err == nil {
				v.SetConfigFile(path)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("COHORTC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", "duckdb")
	v.SetDefault("dsn", "")
	v.SetDefault("cdm-schema", "")
	v.SetDefault("vocab-schema", "")
	v.SetDefault("result-schema", "")
	v.SetDefault("target-table", "cohort")
	v.SetDefault("temp-schema", "")
	v.SetDefault("cdm-version", "")
	v.SetDefault("materialize-stages", true)
	v.SetDefault("materialize-codesets", true)
	v.SetDefault("generate-stats", true)
	v.SetDefault("log-file", "")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func active() *viper.Viper {
	if v == nil {
		_ = Initialize()
	}
	return v
}

// GetString returns a string config value.
func GetString(key string) string { return active().GetString(key) }

// GetBool returns a boolean config value.
func GetBool(key string) bool { return active().GetBool(key) }

// Set overrides a value for the current process (flag binding).
func Set(key string, value any) { active().Set(key, value) }

// ConfigFileUsed reports the loaded config file, if any.
func ConfigFileUsed() string { return active().ConfigFileUsed() }
