package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildObservationPeriod(c *ir.ObservationPeriod, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "observation_period")

	cq.dateRange("observation_period_start_date", c.PeriodStartDate)
	cq.dateRange("observation_period_end_date", c.PeriodEndDate)
	cq.conceptFilter("period_type_concept_id", c.PeriodType, false)
	cq.selectionFilter("period_type_concept_id", c.PeriodTypeCS)
	cq.intervalRange("observation_period_start_date", "observation_period_end_date", c.PeriodLength)

	cq.ageFilter("observation_period_start_date", c.AgeAtStart)
	cq.ageFilter("observation_period_end_date", c.AgeAtEnd)

	startExpr, endExpr := cq.userDefinedPeriod(
		"observation_period_start_date", "observation_period_end_date", c.UserDefinedPeriod)

	if c.First != nil && *c.First {
		cq.firstEvent("observation_period_start_date", "observation_period_id")
	}

	return cq.finish(output{
		primaryKey: "observation_period_id",
		startExpr:  startExpr,
		endExpr:    endExpr,
	})
}
