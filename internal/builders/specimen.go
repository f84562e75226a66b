package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildSpecimen(c *ir.Specimen, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "specimen")

	cq.codesetFilter("specimen_concept_id", c.CodesetID)
	cq.dateRange("specimen_date", c.OccurrenceStartDate)

	exclude := c.SpecimenTypeExclude != nil && *c.SpecimenTypeExclude
	cq.conceptFilter("specimen_type_concept_id", c.SpecimenType, exclude)
	cq.selectionFilter("specimen_type_concept_id", c.SpecimenTypeCS)
	cq.numericRange("t.quantity", c.Quantity)
	cq.conceptFilter("unit_concept_id", c.Unit, false)
	cq.selectionFilter("unit_concept_id", c.UnitCS)
	cq.conceptFilter("anatomic_site_concept_id", c.AnatomicSite, false)
	cq.selectionFilter("anatomic_site_concept_id", c.AnatomicSiteCS)
	cq.conceptFilter("disease_status_concept_id", c.DiseaseStatus, false)
	cq.selectionFilter("disease_status_concept_id", c.DiseaseStatusCS)
	cq.textFilter("specimen_source_id", c.SourceID)
	cq.literalConceptFilter("specimen_source_concept_id", c.SpecimenSourceConcept)

	cq.ageFilter("specimen_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)

	if c.First != nil && *c.First {
		cq.firstEvent("specimen_date", "specimen_id")
	}

	return cq.finish(output{
		primaryKey: "specimen_id",
		startExpr:  "specimen_date",
	})
}
