package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildConditionOccurrence(c *ir.ConditionOccurrence, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "condition_occurrence")

	cq.codesetFilter("condition_concept_id", c.CodesetID)
	cq.dateRange("condition_start_date", c.OccurrenceStartDate)
	cq.dateRange("condition_end_date", c.OccurrenceEndDate)

	exclude := c.ConditionTypeExclude != nil && *c.ConditionTypeExclude
	cq.conceptFilter("condition_type_concept_id", c.ConditionType, exclude)
	cq.selectionFilter("condition_type_concept_id", c.ConditionTypeCS)
	cq.conceptFilter("condition_status_concept_id", c.ConditionStatus, false)
	cq.selectionFilter("condition_status_concept_id", c.ConditionStatusCS)
	cq.textFilter("stop_reason", c.StopReason)
	cq.sourceConceptFilter("condition_source_concept_id", c.ConditionSourceConcept)

	cq.ageFilter("condition_start_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.visitFilter(c.VisitType, c.VisitTypeCS, c.VisitSourceConcept)

	if c.First != nil && *c.First {
		cq.firstEvent("condition_start_date", "condition_occurrence_id")
	}

	return cq.finish(output{
		primaryKey: "condition_occurrence_id",
		startExpr:  "condition_start_date",
		endExpr:    "condition_end_date",
		hasVisit:   true,
	})
}
