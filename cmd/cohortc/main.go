// cohortc compiles OHDSI cohort definitions into SQL and runs them against
// DuckDB, Postgres, Databricks, or SQLite backends.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/opencohort/cohortc/internal/cohorterr"
)

// Exit codes, one per error kind, so scripted callers can branch on the
// failure class.
const (
	exitOK                   = 0
	exitGeneric              = 1
	exitParseError           = 2
	exitUnsupportedCriterion = 3
	exitMissingCodeset       = 4
	exitMissingTable         = 5
	exitBackendError         = 6
	exitInvalidExpression    = 7
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var (
		parseErr   *cohorterr.ParseError
		unsupErr   *cohorterr.UnsupportedCriterionError
		codesetErr *cohorterr.MissingCodesetError
		tableErr   *cohorterr.MissingTableError
		backendErr *cohorterr.BackendError
		invalidErr *cohorterr.InvalidExpressionError
	)
	switch {
	case errors.As(err, &parseErr):
		return exitParseError
	case errors.As(err, &unsupErr):
		return exitUnsupportedCriterion
	case errors.As(err, &codesetErr):
		return exitMissingCodeset
	case errors.As(err, &tableErr):
		return exitMissingTable
	case errors.As(err, &backendErr):
		return exitBackendError
	case errors.As(err, &invalidErr):
		return exitInvalidExpression
	}
	return exitGeneric
}
