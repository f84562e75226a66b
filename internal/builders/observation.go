package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildObservation(c *ir.Observation, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "observation")

	cq.codesetFilter("observation_concept_id", c.CodesetID)
	cq.dateRange("observation_date", c.OccurrenceStartDate)
	cq.dateRange("observation_date", c.OccurrenceEndDate)

	cq.conceptFilter("observation_type_concept_id", c.ObservationType, false)
	cq.selectionFilter("observation_type_concept_id", c.ObservationTypeCS)
	if c.ObservationTypeExclude != nil && *c.ObservationTypeExclude {
		cq.conceptFilter("observation_type_concept_id", c.ObservationType, true)
	}
	cq.conceptFilter("qualifier_concept_id", c.Qualifier, false)
	cq.selectionFilter("qualifier_concept_id", c.QualifierCS)
	cq.conceptFilter("unit_concept_id", c.Unit, false)
	cq.selectionFilter("unit_concept_id", c.UnitCS)
	cq.conceptFilter("value_as_concept_id", c.ValueAsConcept, false)
	cq.selectionFilter("value_as_concept_id", c.ValueAsConceptCS)
	cq.numericRange("t.value_as_number", c.ValueAsNumber)
	cq.textFilter("value_as_string", c.ValueAsString)

	cq.ageFilter("observation_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.visitFilter(c.VisitType, c.VisitTypeCS, nil)
	cq.literalConceptFilter("observation_source_concept_id", c.ObservationSourceConcept)

	if c.First != nil && *c.First {
		cq.firstEvent("observation_date", "observation_id")
	}

	return cq.finish(output{
		primaryKey: "observation_id",
		startExpr:  "observation_date",
		hasVisit:   true,
	})
}
