package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildConditionEra(c *ir.ConditionEra, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "condition_era")

	cq.codesetFilter("condition_concept_id", c.CodesetID)
	cq.dateRange("condition_era_start_date", c.EraStartDate)
	cq.dateRange("condition_era_end_date", c.EraEndDate)
	cq.numericRange("t.condition_occurrence_count", c.OccurrenceCount)
	cq.intervalRange("condition_era_start_date", "condition_era_end_date", c.EraLength)

	cq.ageFilter("condition_era_start_date", c.AgeAtStart)
	cq.ageFilter("condition_era_end_date", c.AgeAtEnd)
	cq.genderFilter(c.Gender, c.GenderCS)

	if c.First != nil && *c.First {
		cq.firstEvent("condition_era_start_date", "condition_era_id")
	}

	return cq.finish(output{
		primaryKey: "condition_era_id",
		startExpr:  "condition_era_start_date",
		endExpr:    "condition_era_end_date",
	})
}
