package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildVisitOccurrence(c *ir.VisitOccurrence, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "visit_occurrence")

	cq.codesetFilter("visit_concept_id", c.CodesetID)
	cq.dateRange("visit_start_date", c.OccurrenceStartDate)
	cq.dateRange("visit_end_date", c.OccurrenceEndDate)

	exclude := c.VisitTypeExclude != nil && *c.VisitTypeExclude
	cq.conceptFilter("visit_type_concept_id", c.VisitType, exclude)
	cq.selectionFilter("visit_type_concept_id", c.VisitTypeCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.careSiteFilter(c.PlaceOfService, c.PlaceOfServiceCS)
	cq.locationRegionFilter(c.PlaceOfServiceLocation, "visit_start_date", "visit_end_date")
	cq.intervalRange("visit_start_date", "visit_end_date", c.VisitLength)

	cq.ageFilter("visit_start_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)

	if c.VisitSourceConcept != nil {
		cq.codesetFilter("visit_source_concept_id", c.VisitSourceConcept)
	}

	if c.First != nil && *c.First {
		cq.firstEvent("visit_start_date", "visit_occurrence_id")
	}

	return cq.finish(output{
		primaryKey: "visit_occurrence_id",
		startExpr:  "visit_start_date",
		endExpr:    "visit_end_date",
		hasVisit:   true,
	})
}
