// Package build owns the shared state of one cohort build: the backend
// handle, the compiled codesets, staging-table lifecycle, and the slice
// cache. A Context is single-use and not safe for concurrent access;
// per-cohort builds run on their own contexts.
package build

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/opencohort/cohortc/internal/cohorterr"
	"github.com/opencohort/cohortc/internal/debug"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
	"github.com/opencohort/cohortc/internal/vocab"
)

// Options configures a cohort build.
type Options struct {
	CDMSchema           string
	VocabularySchema    string
	ResultSchema        string
	TargetTable         string
	CohortID            *int64
	TempEmulationSchema string
	MaterializeStages   bool
	MaterializeCodesets bool
	GenerateStats       bool
	CaptureSQL          bool
}

// DefaultOptions favors materialization: the codeset relation is referenced
// many times per build, and staged slices keep multi-stage plans shallow.
func DefaultOptions() Options {
	return Options{
		MaterializeStages:   true,
		MaterializeCodesets: true,
		GenerateStats:       true,
	}
}

// CapturedStatement is one materialization recorded when CaptureSQL is on.
type CapturedStatement struct {
	Label string
	SQL   string
}

// Context carries everything builders need while compiling one cohort.
type Context struct {
	backend  Backend
	opts     Options
	codesets sqlgen.Relation
	cleanups []func(ctx context.Context)
	slices   map[string]sqlgen.Relation
	captured []CapturedStatement
	closed   bool
}

// NewContext compiles the expression's concept sets and returns a ready
// build context. The caller must Close it; Close drops every staging table
// the context created, in reverse order.
func NewContext(ctx context.Context, backend Backend, opts Options, sets []ir.ConceptSet) (*Context, error) {
	c := &Context{
		backend: backend,
		opts:    opts,
		slices:  make(map[string]sqlgen.Relation),
	}
	rel := vocab.CompileCodesets(backend.Dialect(), c.VocabularyTables(), sets)
	if opts.MaterializeCodesets {
		materialized, err := c.Materialize(ctx, rel, "codesets")
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		rel = materialized
	}
	c.codesets = rel
	return c, nil
}

// Dialect returns the backend's dialect.
func (c *Context) Dialect() dialect.Dialect { return c.backend.Dialect() }

// Options returns the build options.
func (c *Context) Options() Options { return c.opts }

// Backend exposes the borrowed backend handle.
func (c *Context) Backend() Backend { return c.backend }

// Table returns the qualified name of a CDM table.
func (c *Context) Table(name string) string {
	return dialect.QualifyTable(c.Dialect(), c.opts.CDMSchema, name)
}

// VocabularyTable returns the qualified name of a vocabulary table, falling
// back to the CDM schema when no vocabulary schema is configured.
func (c *Context) VocabularyTable(name string) string {
	schema := c.opts.VocabularySchema
	if schema == "" {
		schema = c.opts.CDMSchema
	}
	return dialect.QualifyTable(c.Dialect(), schema, name)
}

// VocabularyTables bundles the qualified vocabulary table names.
func (c *Context) VocabularyTables() vocab.Tables {
	return vocab.Tables{
		Concept:             c.VocabularyTable("concept"),
		ConceptAncestor:     c.VocabularyTable("concept_ancestor"),
		ConceptRelationship: c.VocabularyTable("concept_relationship"),
	}
}

// Codesets returns the compiled codeset relation.
func (c *Context) Codesets() sqlgen.Relation { return c.codesets }

// CodesetFilter renders a membership predicate: expr belongs to the given
// codeset.
func (c *Context) CodesetFilter(expr string, codesetID int64) string {
	sub := sqlgen.FromRelation(c.codesets, "cs").
		Select("cs.concept_id").
		Where(fmt.Sprintf("cs.codeset_id = %d", codesetID)).
		Relation()
	return sqlgen.In(expr, sub)
}

// CodesetAntiFilter renders the negated membership predicate.
func (c *Context) CodesetAntiFilter(expr string, codesetID int64) string {
	sub := sqlgen.FromRelation(c.codesets, "cs").
		Select("cs.concept_id").
		Where(fmt.Sprintf("cs.codeset_id = %d", codesetID)).
		Relation()
	return sqlgen.NotIn(expr, sub)
}

// ShouldMaterializeStages reports the staging policy.
func (c *Context) ShouldMaterializeStages() bool { return c.opts.MaterializeStages }

// stagingTarget picks the schema and temp flag for a new staging table.
// Temp emulation means a real table in the configured schema; dialects
// without session temporaries always emulate.
func (c *Context) stagingTarget() (schema string, temp bool) {
	if c.opts.TempEmulationSchema != "" || !c.Dialect().SupportsTempTables() {
		return c.opts.TempEmulationSchema, false
	}
	return "", true
}

// Materialize runs CREATE TABLE AS over the relation, optionally ANALYZEs
// the result, registers the drop, and returns a relation reading the new
// table.
func (c *Context) Materialize(ctx context.Context, rel sqlgen.Relation, label string) (sqlgen.Relation, error) {
	name := fmt.Sprintf("_stage_%s_%s", label, uuid.NewString()[:8])
	schema, temp := c.stagingTarget()
	if err := c.backend.CreateTableAs(ctx, schema, name, rel.SQL(), temp); err != nil {
		return sqlgen.Relation{}, &cohorterr.BackendError{Stage: label, Cause: err}
	}
	if c.opts.CaptureSQL {
		c.captured = append(c.captured, CapturedStatement{Label: label, SQL: rel.SQL()})
	}
	qualified := dialect.QualifyTable(c.Dialect(), schema, name)
	if c.opts.GenerateStats {
		if stmt := c.Dialect().AnalyzeStatement(qualified); stmt != "" {
			if err := c.backend.Exec(ctx, stmt); err != nil {
				debug.Logf("could not analyze staging table %s: %v", qualified, err)
			}
		}
	}
	c.RegisterCleanup(func(ctx context.Context) {
		if err := c.backend.DropTable(ctx, schema, name, true); err != nil {
			debug.Logf("could not drop staging table %s: %v", qualified, err)
		}
	})
	return sqlgen.Raw("SELECT *\nFROM " + qualified), nil
}

// MaybeMaterialize materializes only when staging is enabled.
func (c *Context) MaybeMaterialize(ctx context.Context, rel sqlgen.Relation, label string) (sqlgen.Relation, error) {
	if !c.opts.MaterializeStages {
		return rel, nil
	}
	return c.Materialize(ctx, rel, label)
}

// GetOrMaterializeSlice materializes a criterion slice once per build and
// reuses it on later lookups. Keys come from CriterionCacheKey.
func (c *Context) GetOrMaterializeSlice(ctx context.Context, key, label string, rel sqlgen.Relation) (sqlgen.Relation, error) {
	if !c.opts.MaterializeStages {
		return rel, nil
	}
	if cached, ok := c.slices[key]; ok {
		return cached, nil
	}
	materialized, err := c.Materialize(ctx, rel, label)
	if err != nil {
		return sqlgen.Relation{}, err
	}
	c.slices[key] = materialized
	return materialized, nil
}

// Count executes SELECT COUNT(*) over a relation. Used by the zero-event
// short-circuit.
func (c *Context) Count(ctx context.Context, rel sqlgen.Relation) (int64, error) {
	n, err := c.backend.QueryCount(ctx, rel.SQL())
	if err != nil {
		return 0, &cohorterr.BackendError{Stage: "count", Cause: err}
	}
	return n, nil
}

// RegisterCleanup pushes a cleanup callback; Close pops in LIFO order.
func (c *Context) RegisterCleanup(fn func(ctx context.Context)) {
	c.cleanups = append(c.cleanups, fn)
}

// CapturedSQL returns the statements captured so far, in execution order.
func (c *Context) CapturedSQL() []CapturedStatement {
	out := make([]CapturedStatement, len(c.captured))
	copy(out, c.captured)
	return out
}

// Close drops all staging tables in reverse creation order. A failing
// cleanup is logged and does not prevent the rest from running.
func (c *Context) Close(ctx context.Context) {
	if c.closed {
		return
	}
	c.closed = true
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i](ctx)
	}
	c.cleanups = nil
	c.slices = nil
}

// CriterionCacheKey derives the slice-cache key for a criterion: its kind
// plus the SHA-1 of its canonical serialization.
func CriterionCacheKey(criterion ir.Criterion) (key, label string) {
	payload, err := json.Marshal(criterion)
	if err != nil {
		payload = []byte(fmt.Sprintf("%#v", criterion))
	}
	sum := sha1.Sum(append([]byte(criterion.Kind()+":"), payload...))
	digest := hex.EncodeToString(sum[:])[:8]
	return criterion.Kind() + ":" + hex.EncodeToString(sum[:]), strings.ToLower(criterion.Kind()) + "_" + digest
}
