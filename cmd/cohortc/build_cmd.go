package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/builders"
)

var buildCmd = &cobra.Command{
	Use:   "build <cohort.json>",
	Short: "Build a cohort against the configured backend",
	Long: `Build runs the full pipeline against the configured backend:
compiles the concept sets, stages the pipeline slices, and writes the
final cohort into the results table.

With --dry-run the pipeline compiles and stages but skips the write-back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cohortID, _ := cmd.Flags().GetString("cohort-id")
		captureSQL, _ := cmd.Flags().GetBool("capture-sql")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		appendRows, _ := cmd.Flags().GetBool("append")

		expr, _, err := loadExpression(args[0])
		if err != nil {
			return err
		}
		opts, err := buildOptions(cohortID, captureSQL)
		if err != nil {
			return err
		}
		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.Close()

		ctx := cmdContext()
		bctx, err := build.NewContext(ctx, be, opts, expr.ConceptSets)
		if err != nil {
			return err
		}
		defer bctx.Close(ctx)

		events, err := builders.BuildCohort(ctx, expr, bctx)
		if err != nil {
			return err
		}
		n, err := bctx.Count(ctx, events)
		if err != nil {
			return err
		}
		fmt.Printf("cohort events: %d\n", n)

		if captureSQL {
			for _, stmt := range bctx.CapturedSQL() {
				fmt.Fprintf(os.Stderr, "-- stage: %s\n%s\n;\n", stmt.Label, stmt.SQL)
			}
		}
		if dryRun {
			return nil
		}
		if err := bctx.WriteCohortTable(ctx, events, appendRows); err != nil {
			return err
		}
		fmt.Printf("wrote %s.%s\n", opts.ResultSchema, opts.TargetTable)
		return nil
	},
}

func init() {
	buildCmd.Flags().String("cohort-id", "", "cohort_definition_id for the results table")
	buildCmd.Flags().Bool("capture-sql", false, "print the SQL of each staged slice")
	buildCmd.Flags().Bool("dry-run", false, "compile and count without writing the cohort table")
	buildCmd.Flags().Bool("append", false, "keep existing rows in the cohort table")
	rootCmd.AddCommand(buildCmd)
}
