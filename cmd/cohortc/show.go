package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opencohort/cohortc/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <cohort.json>",
	Short: "Render a readable summary of a cohort definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		expr, _, err := loadExpression(args[0])
		if err != nil {
			return err
		}
		md := ui.ExpressionSummary(filepath.Base(args[0]), expr)
		if plain {
			fmt.Print(md)
			return nil
		}
		fmt.Print(ui.RenderMarkdown(md))
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("plain", false, "print raw markdown without terminal styling")
	rootCmd.AddCommand(showCmd)
}
