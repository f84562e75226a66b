package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildPayerPlanPeriod(c *ir.PayerPlanPeriod, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "payer_plan_period")

	cq.dateRange("payer_plan_period_start_date", c.PeriodStartDate)
	cq.dateRange("payer_plan_period_end_date", c.PeriodEndDate)
	cq.intervalRange("payer_plan_period_start_date", "payer_plan_period_end_date", c.PeriodLength)

	cq.ageFilter("payer_plan_period_start_date", c.AgeAtStart)
	cq.ageFilter("payer_plan_period_end_date", c.AgeAtEnd)
	cq.genderFilter(c.Gender, c.GenderCS)

	cq.codesetFilter("payer_concept_id", c.PayerConcept)
	cq.codesetFilter("plan_concept_id", c.PlanConcept)
	cq.codesetFilter("sponsor_concept_id", c.SponsorConcept)
	cq.codesetFilter("stop_reason_concept_id", c.StopReasonConcept)
	cq.codesetFilter("payer_source_concept_id", c.PayerSourceConcept)
	cq.codesetFilter("plan_source_concept_id", c.PlanSourceConcept)
	cq.codesetFilter("sponsor_source_concept_id", c.SponsorSourceConcept)
	cq.codesetFilter("stop_reason_source_concept_id", c.StopReasonSourceConcept)

	startExpr, endExpr := cq.userDefinedPeriod(
		"payer_plan_period_start_date", "payer_plan_period_end_date", c.UserDefinedPeriod)

	if c.First != nil && *c.First {
		cq.firstEvent("payer_plan_period_start_date", "payer_plan_period_id")
	}

	return cq.finish(output{
		primaryKey: "payer_plan_period_id",
		startExpr:  startExpr,
		endExpr:    endExpr,
	})
}
