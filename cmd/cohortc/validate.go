package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/config"
	"github.com/opencohort/cohortc/internal/inventory"
)

var validateCmd = &cobra.Command{
	Use:   "validate <cohort.json>",
	Short: "Validate a cohort definition",
	Long: `Validate parses the definition, checks structural constraints
(declared codesets, strategy coherence), and verifies the CDM version range
against the configured cdm-version. With --strict every field the compiler
does not interpret is reported. With --check-tables the configured backend
is probed for the required CDM and vocabulary tables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		checkTables, _ := cmd.Flags().GetBool("check-tables")

		expr, raw, err := loadExpression(args[0])
		if err != nil {
			return err
		}
		if err := expr.Validate(); err != nil {
			return err
		}
		if cdmVersion := config.GetString("cdm-version"); cdmVersion != "" && expr.CDMVersionRange != "" {
			if !cdmVersionInRange(cdmVersion, expr.CDMVersionRange) {
				return fmt.Errorf("CDM version %s outside the definition's range %q", cdmVersion, expr.CDMVersionRange)
			}
		}
		if strict {
			findings, err := inventory.Scan(raw)
			if err != nil {
				return err
			}
			for _, f := range findings {
				fmt.Println(f)
			}
			if len(findings) > 0 {
				fmt.Printf("%d uninterpreted fields\n", len(findings))
			}
		}
		if checkTables {
			be, err := openBackend()
			if err != nil {
				return err
			}
			defer be.Close()
			opts, err := buildOptions("", false)
			if err != nil {
				return err
			}
			if err := build.CheckTables(cmdContext(), be, opts, build.RequiredTables); err != nil {
				return err
			}
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("strict", false, "report uninterpreted fields")
	validateCmd.Flags().Bool("check-tables", false, "probe the backend for required tables")
	rootCmd.AddCommand(validateCmd)
}

// cdmVersionInRange evaluates a space-separated list of simple constraints
// like ">=5.0.0 <6.0.0" against a version.
func cdmVersionInRange(version, versionRange string) bool {
	v := canonicalVersion(version)
	for _, constraint := range strings.Fields(versionRange) {
		op := ""
		rest := constraint
		for _, candidate := range []string{">=", "<=", ">", "<", "="} {
			if strings.HasPrefix(constraint, candidate) {
				op = candidate
				rest = strings.TrimPrefix(constraint, candidate)
				break
			}
		}
		cmp := semver.Compare(v, canonicalVersion(rest))
		switch op {
		case ">=":
			if cmp < 0 {
				return false
			}
		case "<=":
			if cmp > 0 {
				return false
			}
		case ">":
			if cmp <= 0 {
				return false
			}
		case "<":
			if cmp >= 0 {
				return false
			}
		default:
			if cmp != 0 {
				return false
			}
		}
	}
	return true
}

func canonicalVersion(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	for strings.Count(s, ".") < 2 {
		s += ".0"
	}
	return "v" + s
}
