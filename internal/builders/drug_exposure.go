package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildDrugExposure(c *ir.DrugExposure, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "drug_exposure")

	cq.codesetFilter("drug_concept_id", c.CodesetID)
	// First-exposure restriction runs against the codeset-matched rows
	// before the secondary filters, matching the reference ordering.
	if c.First != nil && *c.First {
		cq.firstEvent("drug_exposure_start_date", "drug_exposure_id")
	}

	cq.dateRange("drug_exposure_start_date", c.OccurrenceStartDate)
	cq.dateRange("drug_exposure_end_date", c.OccurrenceEndDate)

	exclude := c.DrugTypeExclude != nil && *c.DrugTypeExclude
	cq.conceptFilter("drug_type_concept_id", c.DrugType, exclude)
	cq.selectionFilter("drug_type_concept_id", c.DrugTypeCS)
	cq.conceptFilter("route_concept_id", c.RouteConcept, false)
	cq.selectionFilter("route_concept_id", c.RouteConceptCS)
	cq.conceptFilter("dose_unit_concept_id", c.DoseUnit, false)
	cq.selectionFilter("dose_unit_concept_id", c.DoseUnitCS)

	cq.numericRange("t.quantity", c.Quantity)
	cq.numericRange("t.days_supply", c.DaysSupply)
	cq.numericRange("t.refills", c.Refills)
	cq.textFilter("stop_reason", c.StopReason)
	cq.textFilter("lot_number", c.LotNumber)

	cq.ageFilter("drug_exposure_start_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.visitFilter(c.VisitType, c.VisitTypeCS, nil)
	cq.sourceConceptFilter("drug_source_concept_id", c.DrugSourceConcept)

	return cq.finish(output{
		primaryKey: "drug_exposure_id",
		startExpr:  "drug_exposure_start_date",
		endExpr:    "drug_exposure_end_date",
		hasVisit:   true,
	})
}
