package builders

import (
	"context"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/cohorterr"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// Build compiles one criterion to its standardized event relation, applies
// its embedded correlated group, and runs the result through the context's
// slice cache so identical criteria materialize once per build.
func Build(gctx context.Context, criterion ir.Criterion, ctx *build.Context) (sqlgen.Relation, error) {
	rel, err := buildBare(criterion, ctx)
	if err != nil {
		return sqlgen.Relation{}, err
	}
	if group := criterion.Correlated(); !group.IsEmpty() {
		rel, err = ApplyCriteriaGroup(gctx, rel, indexRelation{Rel: rel}, group, ctx)
		if err != nil {
			return sqlgen.Relation{}, err
		}
	}
	key, label := build.CriterionCacheKey(criterion)
	return ctx.GetOrMaterializeSlice(gctx, key, label, rel)
}

// buildBare dispatches on the sealed criterion variants.
func buildBare(criterion ir.Criterion, ctx *build.Context) (sqlgen.Relation, error) {
	switch c := criterion.(type) {
	case *ir.ConditionOccurrence:
		return buildConditionOccurrence(c, ctx)
	case *ir.ConditionEra:
		return buildConditionEra(c, ctx)
	case *ir.DrugExposure:
		return buildDrugExposure(c, ctx)
	case *ir.DrugEra:
		return buildDrugEra(c, ctx)
	case *ir.DoseEra:
		return buildDoseEra(c, ctx)
	case *ir.VisitOccurrence:
		return buildVisitOccurrence(c, ctx)
	case *ir.VisitDetail:
		return buildVisitDetail(c, ctx)
	case *ir.Measurement:
		return buildMeasurement(c, ctx)
	case *ir.Observation:
		return buildObservation(c, ctx)
	case *ir.ObservationPeriod:
		return buildObservationPeriod(c, ctx)
	case *ir.ProcedureOccurrence:
		return buildProcedureOccurrence(c, ctx)
	case *ir.DeviceExposure:
		return buildDeviceExposure(c, ctx)
	case *ir.Death:
		return buildDeath(c, ctx)
	case *ir.Specimen:
		return buildSpecimen(c, ctx)
	case *ir.PayerPlanPeriod:
		return buildPayerPlanPeriod(c, ctx)
	}
	kind := "<nil>"
	if criterion != nil {
		kind = criterion.Kind()
	}
	return sqlgen.Relation{}, &cohorterr.UnsupportedCriterionError{Kind: kind}
}
