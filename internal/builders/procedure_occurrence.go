package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildProcedureOccurrence(c *ir.ProcedureOccurrence, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "procedure_occurrence")

	cq.codesetFilter("procedure_concept_id", c.CodesetID)
	if c.First != nil && *c.First {
		cq.firstEvent("procedure_date", "procedure_occurrence_id")
	}

	cq.dateRange("procedure_date", c.OccurrenceStartDate)
	cq.dateRange("procedure_date", c.OccurrenceEndDate)

	cq.conceptFilter("procedure_type_concept_id", c.ProcedureType, false)
	cq.selectionFilter("procedure_type_concept_id", c.ProcedureTypeCS)
	if c.ProcedureTypeExclude != nil && *c.ProcedureTypeExclude {
		cq.conceptFilter("procedure_type_concept_id", c.ProcedureType, true)
	}
	cq.conceptFilter("modifier_concept_id", c.Modifier, false)
	cq.selectionFilter("modifier_concept_id", c.ModifierCS)
	cq.numericRange("t.quantity", c.Quantity)

	cq.ageFilter("procedure_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.visitFilter(c.VisitType, c.VisitTypeCS, nil)
	cq.sourceConceptFilter("procedure_source_concept_id", c.ProcedureSourceConcept)

	return cq.finish(output{
		primaryKey: "procedure_occurrence_id",
		startExpr:  "procedure_date",
		hasVisit:   true,
	})
}
