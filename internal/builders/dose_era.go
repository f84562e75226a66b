package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildDoseEra(c *ir.DoseEra, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "dose_era")

	cq.codesetFilter("drug_concept_id", c.CodesetID)
	cq.dateRange("dose_era_start_date", c.EraStartDate)
	cq.dateRange("dose_era_end_date", c.EraEndDate)
	cq.conceptFilter("unit_concept_id", c.Unit, false)
	cq.selectionFilter("unit_concept_id", c.UnitCS)
	cq.numericRange("t.dose_value", c.DoseValue)
	cq.intervalRange("dose_era_start_date", "dose_era_end_date", c.EraLength)

	cq.ageFilter("dose_era_start_date", c.AgeAtStart)
	cq.ageFilter("dose_era_end_date", c.AgeAtEnd)
	cq.genderFilter(c.Gender, c.GenderCS)

	if c.First != nil && *c.First {
		cq.firstEvent("dose_era_start_date", "dose_era_id")
	}

	return cq.finish(output{
		primaryKey: "dose_era_id",
		startExpr:  "dose_era_start_date",
		endExpr:    "dose_era_end_date",
	})
}
