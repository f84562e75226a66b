package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a cohortc.yaml for this directory",
	Long: `Init asks for the backend connection and schema layout and writes
cohortc.yaml in the current directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat("cohortc.yaml"); err == nil {
			return fmt.Errorf("cohortc.yaml already exists")
		}

		backendKind := "duckdb"
		dsn := ""
		cdmSchema := "main"
		resultSchema := "results"
		targetTable := "cohort"

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Backend").
					Options(
						huh.NewOption("DuckDB", "duckdb"),
						huh.NewOption("Postgres", "postgres"),
						huh.NewOption("Databricks / Spark", "spark"),
						huh.NewOption("SQLite", "sqlite"),
					).
					Value(&backendKind),
				huh.NewInput().
					Title("Connection string").
					Description("Driver DSN; empty means in-memory for DuckDB/SQLite").
					Value(&dsn),
				huh.NewInput().
					Title("CDM schema").
					Value(&cdmSchema),
				huh.NewInput().
					Title("Results schema").
					Value(&resultSchema),
				huh.NewInput().
					Title("Cohort table").
					Value(&targetTable),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("init canceled: %w", err)
		}

		settings := map[string]any{
			"backend":       backendKind,
			"dsn":           dsn,
			"cdm-schema":    cdmSchema,
			"result-schema": resultSchema,
			"target-table":  targetTable,
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		if err := os.WriteFile("cohortc.yaml", data, 0o644); err != nil {
			return fmt.Errorf("failed to write cohortc.yaml: %w", err)
		}
		fmt.Println("wrote cohortc.yaml")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
