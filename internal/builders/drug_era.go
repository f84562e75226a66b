package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildDrugEra(c *ir.DrugEra, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "drug_era")

	cq.codesetFilter("drug_concept_id", c.CodesetID)
	cq.dateRange("drug_era_start_date", c.EraStartDate)
	cq.dateRange("drug_era_end_date", c.EraEndDate)
	cq.numericRange("t.drug_exposure_count", c.OccurrenceCount)
	cq.numericRange("t.gap_days", c.GapDays)
	cq.intervalRange("drug_era_start_date", "drug_era_end_date", c.EraLength)

	cq.ageFilter("drug_era_start_date", c.AgeAtStart)
	cq.ageFilter("drug_era_end_date", c.AgeAtEnd)
	cq.genderFilter(c.Gender, c.GenderCS)

	if c.First != nil && *c.First {
		cq.firstEvent("drug_era_start_date", "drug_era_id")
	}

	return cq.finish(output{
		primaryKey: "drug_era_id",
		startExpr:  "drug_era_start_date",
		endExpr:    "drug_era_end_date",
	})
}
