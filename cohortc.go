// Package cohortc provides a minimal public API for embedding the cohort
// compiler: parse a cohort definition, compile it against a backend, and
// read back the generated plan or the final event relation.
//
// Most callers should use the cohortc CLI; this package exports only the
// types and functions needed to drive a build programmatically.
package cohortc

import (
	"context"

	"github.com/opencohort/cohortc/internal/backend"
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/builders"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
	"github.com/opencohort/cohortc/internal/vocab"
)

// Core IR types.
type (
	CohortExpression = ir.CohortExpression
	ConceptSet       = ir.ConceptSet
	Criterion        = ir.Criterion
	CriteriaGroup    = ir.CriteriaGroup
)

// Build plumbing.
type (
	Options  = build.Options
	Backend  = build.Backend
	Context  = build.Context
	Relation = sqlgen.Relation
	Dialect  = dialect.Dialect
)

// Parse deserializes a cohort definition JSON document.
func Parse(data []byte) (*CohortExpression, error) { return ir.Parse(data) }

// Serialize renders an expression back to wire JSON.
func Serialize(expr *CohortExpression) ([]byte, error) { return ir.Serialize(expr) }

// DefaultOptions returns the standard build options (materialization on).
func DefaultOptions() Options { return build.DefaultOptions() }

// OpenBackend connects to a backend by dialect name and DSN.
func OpenBackend(kind, dsn string) (*backend.SQLBackend, error) {
	return backend.Open(kind, dsn)
}

// DialectByName resolves a dialect ("duckdb", "postgres", "spark",
// "sqlite").
func DialectByName(name string) (Dialect, error) { return dialect.ForName(name) }

// NewContext compiles the expression's concept sets and prepares a build
// context. Close it to drop any staging tables it created.
func NewContext(ctx context.Context, be Backend, opts Options, sets []ConceptSet) (*Context, error) {
	return build.NewContext(ctx, be, opts, sets)
}

// BuildCohort compiles the full pipeline and returns the final event
// relation (person_id, event_id, start_date, end_date,
// visit_occurrence_id).
func BuildCohort(ctx context.Context, expr *CohortExpression, bctx *Context) (Relation, error) {
	return builders.BuildCohort(ctx, expr, bctx)
}

// CompileCodesets builds the codeset relation for a list of concept sets
// without a build context.
func CompileCodesets(d Dialect, tables vocab.Tables, sets []ConceptSet) Relation {
	return vocab.CompileCodesets(d, tables, sets)
}
