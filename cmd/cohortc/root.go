package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opencohort/cohortc/internal/backend"
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/config"
	"github.com/opencohort/cohortc/internal/debug"
	"github.com/opencohort/cohortc/internal/ir"
)

var rootCmd = &cobra.Command{
	Use:   "cohortc",
	Short: "Compile and run OHDSI cohort definitions",
	Long: `cohortc compiles declarative cohort definitions (ATLAS JSON exports)
into SQL for DuckDB, Postgres, Databricks, or SQLite, and optionally runs
the generated plan and writes the cohort table.

Configuration comes from flags, COHORTC_* environment variables, or a
cohortc.yaml file found in the working directory tree.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		bindFlag(cmd, "backend")
		bindFlag(cmd, "dsn")
		bindFlag(cmd, "cdm-schema")
		bindFlag(cmd, "vocab-schema")
		bindFlag(cmd, "result-schema")
		bindFlag(cmd, "target-table")
		bindFlag(cmd, "temp-schema")
		if dbg, _ := cmd.Flags().GetBool("debug"); dbg {
			debug.Enable()
		}
		if logFile := config.GetString("log-file"); logFile != "" {
			debug.SetLogFile(logFile)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("backend", "", "backend kind: duckdb, postgres, spark, sqlite")
	pf.String("dsn", "", "backend connection string")
	pf.String("cdm-schema", "", "schema holding the CDM tables")
	pf.String("vocab-schema", "", "schema holding the vocabulary tables (defaults to the CDM schema)")
	pf.String("result-schema", "", "schema for the cohort results table")
	pf.String("target-table", "", "cohort results table name")
	pf.String("temp-schema", "", "schema for temp-table emulation")
	pf.Bool("debug", false, "enable debug logging")
}

// bindFlag copies an explicitly set flag into the config singleton so flag
// values win over file and environment values.
func bindFlag(cmd *cobra.Command, name string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		config.Set(name, f.Value.String())
	}
}

// loadExpression parses a cohort definition file.
func loadExpression(path string) (*ir.CohortExpression, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	expr, err := ir.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return expr, data, nil
}

// buildOptions assembles build options from configuration plus per-command
// overrides.
func buildOptions(cohortID string, captureSQL bool) (build.Options, error) {
	opts := build.DefaultOptions()
	opts.CDMSchema = config.GetString("cdm-schema")
	opts.VocabularySchema = config.GetString("vocab-schema")
	opts.ResultSchema = config.GetString("result-schema")
	opts.TargetTable = config.GetString("target-table")
	opts.TempEmulationSchema = config.GetString("temp-schema")
	opts.MaterializeStages = config.GetBool("materialize-stages")
	opts.MaterializeCodesets = config.GetBool("materialize-codesets")
	opts.GenerateStats = config.GetBool("generate-stats")
	opts.CaptureSQL = captureSQL
	if cohortID != "" {
		id, err := strconv.ParseInt(cohortID, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid cohort id %q: %w", cohortID, err)
		}
		opts.CohortID = &id
	}
	return opts, nil
}

// cmdContext is the root context for command execution.
func cmdContext() context.Context {
	return context.Background()
}

// openBackend connects to the configured backend.
func openBackend() (*backend.SQLBackend, error) {
	kind := config.GetString("backend")
	dsn := config.GetString("dsn")
	if kind == "" {
		return nil, fmt.Errorf("no backend configured (set --backend or run cohortc init)")
	}
	return backend.Open(kind, dsn)
}
