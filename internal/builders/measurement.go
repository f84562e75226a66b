package builders

import (
	"fmt"
	"strings"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// unitScale pairs a normalization group with the multiplier into the group's
// canonical unit. The whitelist mirrors the reference engine exactly;
// changing it is a conformance-visible behavior change.
type unitScale struct {
	group      string
	multiplier float64
}

var unitNormalization = map[int64]unitScale{
	// Mass
	9529:    {"mass_kg", 1.0},        // kilogram
	3195625: {"mass_kg", 0.45359237}, // pound
	// Cell counts per liter (expressed in 10^9/L)
	9444:     {"count_10e9_per_l", 1.0},
	44777588: {"count_10e9_per_l", 1.0},
	8848:     {"count_10e9_per_l", 1.0},   // thousand per microliter
	8816:     {"count_10e9_per_l", 1.0},   // million per milliliter
	8961:     {"count_10e9_per_l", 1.0},   // thousand per cubic millimeter
	8784:     {"count_10e9_per_l", 0.001}, // cells per microliter
	8647:     {"count_10e9_per_l", 0.001}, // per microliter
}

func buildMeasurement(c *ir.Measurement, ctx *build.Context) (sqlgen.Relation, error) {
	cq := newCriterionQuery(ctx, "measurement")

	cq.codesetFilter("measurement_concept_id", c.CodesetID)
	if c.First != nil && *c.First {
		cq.firstEvent("measurement_date", "measurement_id")
	}

	cq.dateRange("measurement_date", c.OccurrenceStartDate)
	cq.dateRange("measurement_date", c.OccurrenceEndDate)

	cq.conceptFilter("measurement_type_concept_id", c.MeasurementType, false)
	cq.selectionFilter("measurement_type_concept_id", c.MeasurementTypeCS)
	if c.MeasurementTypeExclude != nil && *c.MeasurementTypeExclude {
		cq.conceptFilter("measurement_type_concept_id", c.MeasurementType, true)
	}
	cq.conceptFilter("operator_concept_id", c.Operator, false)
	cq.selectionFilter("operator_concept_id", c.OperatorCS)

	valueExpr := "t.value_as_number"
	if units := ir.ConceptIDs(c.Unit); len(units) > 0 {
		cq.conceptFilter("unit_concept_id", c.Unit, false)
		if expr, ok := normalizedValueExpr(units); ok {
			valueExpr = expr
		}
	}
	cq.selectionFilter("unit_concept_id", c.UnitCS)

	cq.conceptFilter("value_as_concept_id", c.ValueAsConcept, false)
	cq.selectionFilter("value_as_concept_id", c.ValueAsConceptCS)

	cq.numericRange(valueExpr, c.ValueAsNumber)
	cq.numericRange("t.range_low", c.RangeLow)
	cq.numericRange("t.range_high", c.RangeHigh)
	cq.numericRange("(t.value_as_number / t.range_low)", c.RangeLowRatio)
	cq.numericRange("(t.value_as_number / t.range_high)", c.RangeHighRatio)
	if c.Abnormal != nil && *c.Abnormal {
		cq.q.Where("(t.value_as_number < t.range_low OR t.value_as_number > t.range_high)")
	}

	cq.ageFilter("measurement_date", c.Age)
	cq.genderFilter(c.Gender, c.GenderCS)
	cq.providerSpecialtyFilter(c.ProviderSpecialty, c.ProviderSpecialtyCS)
	cq.visitFilter(c.VisitType, c.VisitTypeCS, nil)

	if c.MeasurementSourceConcept != nil {
		sel := c.MeasurementSourceConcept.AsSelection()
		cq.selectionFilter("measurement_source_concept_id", &sel)
	}

	return cq.finish(output{
		primaryKey: "measurement_id",
		startExpr:  "measurement_date",
		hasVisit:   true,
	})
}

// normalizedValueExpr returns the scaled value expression when every
// referenced unit sits in one whitelisted scale group. Mixed or unknown
// units compare raw values.
func normalizedValueExpr(unitIDs []int64) (string, bool) {
	group := ""
	for _, id := range unitIDs {
		scale, ok := unitNormalization[id]
		if !ok {
			return "", false
		}
		if group == "" {
			group = scale.group
		} else if group != scale.group {
			return "", false
		}
	}
	var b strings.Builder
	b.WriteString("(t.value_as_number * CASE")
	for _, id := range unitIDs {
		fmt.Fprintf(&b, " WHEN t.unit_concept_id = %d THEN %v", id, unitNormalization[id].multiplier)
	}
	b.WriteString(" ELSE 1.0 END)")
	return b.String(), true
}
