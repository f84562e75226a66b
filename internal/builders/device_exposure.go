package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildDeviceExposure(c *ir.DeviceExposure, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "device_exposure")

	cq.codesetFilter("device_concept_id", c.CodesetID)
	cq.dateRange("device_exposure_start_date", c.OccurrenceStartDate)
	cq.dateRange("device_exposure_end_date", c.OccurrenceEndDate)

	cq.conceptFilter("device_type_concept_id", c.DeviceType, false)
	cq.selectionFilter("device_type_concept_id", c.DeviceTypeCS)
	if c.DeviceTypeExclude != nil && *c.DeviceTypeExclude {
		cq.conceptFilter("device_type_concept_id", c.DeviceType, true)
	}
	cq.numericRange("t.quantity", c.Quantity)
	cq.textFilter("unique_device_id", c.UniqueDeviceID)

	cq.ageFilter("device_exposure_start_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.visitFilter(c.VisitType, c.VisitTypeCS, nil)
	cq.literalConceptFilter("device_source_concept_id", c.DeviceSourceConcept)

	if c.First != nil && *c.First {
		cq.firstEvent("device_exposure_start_date", "device_exposure_id")
	}

	return cq.finish(output{
		primaryKey: "device_exposure_id",
		startExpr:  "device_exposure_start_date",
		endExpr:    "device_exposure_end_date",
		hasVisit:   true,
	})
}
