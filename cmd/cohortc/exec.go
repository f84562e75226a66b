package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencohort/cohortc/internal/sqlsplit"
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run a SQL script against the configured backend",
	Long: `Exec splits a SQL script into statements (comment- and
string-aware) and runs them in order. Useful for loading fixtures or
maintaining the results schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		script, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		statements := sqlsplit.Split(string(script))
		if len(statements) == 0 {
			return fmt.Errorf("script contains no statements")
		}
		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.Close()
		ctx := cmdContext()
		for i, stmt := range statements {
			if err := be.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d failed: %w", i+1, err)
			}
		}
		fmt.Printf("ran %d statements\n", len(statements))
		return nil
	},
}

func init() {
	execCmd.Flags().String("file", "", "SQL script to run")
	rootCmd.AddCommand(execCmd)
}
