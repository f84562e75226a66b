package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildVisitDetail(c *ir.VisitDetail, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "visit_detail")

	cq.codesetFilter("visit_detail_concept_id", c.CodesetID)
	if c.First != nil && *c.First {
		cq.firstEvent("visit_detail_start_date", "visit_detail_id")
	}
	cq.dateRange("visit_detail_start_date", c.VisitDetailStartDate)
	cq.dateRange("visit_detail_end_date", c.VisitDetailEndDate)
	cq.selectionFilter("visit_detail_type_concept_id", c.VisitDetailTypeCS)
	if c.VisitDetailSourceConcept != nil {
		cq.codesetFilter("visit_detail_source_concept_id", c.VisitDetailSourceConcept)
	}
	cq.intervalRange("visit_detail_start_date", "visit_detail_end_date", c.VisitDetailLength)

	cq.ageFilter("visit_detail_start_date", c.Age)
	cq.personConceptFilter("gender_concept_id", nil, c.GenderCS)
	cq.providerSpecialtyFilterOn("provider_id", nil, c.ProviderSpecialtyCS)
	cq.careSiteFilter(nil, c.PlaceOfServiceCS)
	cq.locationRegionFilter(c.PlaceOfServiceLocation, "visit_detail_start_date", "visit_detail_end_date")

	return cq.finish(output{
		primaryKey: "visit_detail_id",
		startExpr:  "visit_detail_start_date",
		endExpr:    "visit_detail_end_date",
		hasVisit:   true,
	})
}
