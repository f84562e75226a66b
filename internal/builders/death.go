package builders

import (
	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func buildDeath(c *ir.Death, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "death")

	cq.codesetFilter("cause_concept_id", c.CodesetID)
	cq.dateRange("death_date", c.OccurrenceStartDate)

	exclude := c.DeathTypeExclude != nil && *c.DeathTypeExclude
	cq.conceptFilter("death_type_concept_id", c.DeathType, exclude)
	cq.selectionFilter("death_type_concept_id", c.DeathTypeCS)
	cq.codesetFilter("cause_source_concept_id", c.DeathSourceConcept)

	cq.ageFilter("death_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)

	// death is keyed on person, so an ordinal row id is synthesized. The
	// window is partitioned by person to keep the plan distributable; the
	// table holds at most one row per person, so the ordinal is stable.
	return cq.finish(output{
		primaryKey: "ROW_NUMBER() OVER (PARTITION BY t.person_id ORDER BY t.death_date)",
		startExpr:  "death_date",
	})
}
