package build

import (
	"context"
	"fmt"

	"github.com/opencohort/cohortc/internal/cohorterr"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// CohortRow is the OHDSI cohort-table shape produced by the write-back
// adapter.
type CohortRow struct {
	CohortDefinitionID *int64 `db:"cohort_definition_id"`
	SubjectID          int64  `db:"subject_id"`
	CohortStartDate    string `db:"cohort_start_date"`
	CohortEndDate      string `db:"cohort_end_date"`
}

// CohortTableRelation reshapes the final event relation to the OHDSI cohort
// table columns.
func (c *Context) CohortTableRelation(events sqlgen.Relation) sqlgen.Relation {
	d := c.Dialect()
	cohortID := d.CastBigInt("NULL")
	if c.opts.CohortID != nil {
		cohortID = d.CastBigInt(fmt.Sprintf("%d", *c.opts.CohortID))
	}
	return sqlgen.FromRelation(events, "e").
		Select(
			cohortID+" AS cohort_definition_id",
			d.CastBigInt("e.person_id")+" AS subject_id",
			d.CastDate("e.start_date")+" AS cohort_start_date",
			d.CastDate("e.end_date")+" AS cohort_end_date",
		).
		Relation()
}

// WriteCohortTable persists the final events into the configured results
// table. With appendRows set, existing rows for other cohorts are kept: the
// current table contents and the new rows are staged together before the
// target is dropped and rebuilt from the staged copy.
func (c *Context) WriteCohortTable(ctx context.Context, events sqlgen.Relation, appendRows bool) error {
	if c.opts.TargetTable == "" {
		return &cohorterr.InvalidExpressionError{Reason: "target table must be configured for write-back"}
	}
	if c.opts.ResultSchema == "" {
		return &cohorterr.InvalidExpressionError{Reason: "result schema must be configured for write-back"}
	}
	result := c.CohortTableRelation(events)
	if appendRows {
		existing, err := c.backend.HasTable(ctx, c.opts.ResultSchema, c.opts.TargetTable)
		if err != nil {
			return &cohorterr.BackendError{Stage: "write-back", Cause: err}
		}
		if existing {
			current := sqlgen.Raw("SELECT *\nFROM " +
				dialect.QualifyTable(c.Dialect(), c.opts.ResultSchema, c.opts.TargetTable))
			staged, err := c.Materialize(ctx, sqlgen.UnionAll(current, result), "cohort_append")
			if err != nil {
				return err
			}
			result = staged
		}
	}
	if err := c.backend.DropTable(ctx, c.opts.ResultSchema, c.opts.TargetTable, true); err != nil {
		return &cohorterr.BackendError{Stage: "write-back", Cause: err}
	}
	if err := c.backend.CreateTableAs(ctx, c.opts.ResultSchema, c.opts.TargetTable, result.SQL(), false); err != nil {
		return &cohorterr.BackendError{Stage: "write-back", Cause: err}
	}
	return nil
}

// RequiredTables lists every CDM table the builders may reference; the
// vocabulary tables are listed in VocabularyTableNames.
var RequiredTables = []string{
	"person", "observation_period", "visit_occurrence", "visit_detail",
	"condition_occurrence", "condition_era", "drug_exposure", "drug_era",
	"dose_era", "measurement", "observation", "procedure_occurrence",
	"device_exposure", "specimen", "death", "payer_plan_period",
	"provider", "care_site", "location", "location_history",
}

// VocabularyTableNames lists the vocabulary tables the codeset compiler
// requires.
var VocabularyTableNames = []string{"concept", "concept_ancestor", "concept_relationship"}

// CheckTables verifies that the vocabulary tables (always required) and any
// requested CDM tables resolve on the backend.
func CheckTables(ctx context.Context, backend Backend, opts Options, cdmTables []string) error {
	vocabSchema := opts.VocabularySchema
	if vocabSchema == "" {
		vocabSchema = opts.CDMSchema
	}
	for _, name := range VocabularyTableNames {
		ok, err := backend.HasTable(ctx, vocabSchema, name)
		if err != nil {
			return &cohorterr.BackendError{Stage: "table check", Cause: err}
		}
		if !ok {
			return &cohorterr.MissingTableError{Name: name, Schema: vocabSchema}
		}
	}
	for _, name := range cdmTables {
		ok, err := backend.HasTable(ctx, opts.CDMSchema, name)
		if err != nil {
			return &cohorterr.BackendError{Stage: "table check", Cause: err}
		}
		if !ok {
			return &cohorterr.MissingTableError{Name: name, Schema: opts.CDMSchema}
		}
	}
	return nil
}
