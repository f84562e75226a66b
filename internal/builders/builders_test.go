package builders

import (
	"context"
	"strings"
	"testing"

	"github.com/opencohort/cohortc/internal/ir"
)

func TestConditionOccurrenceCodesetJoin(t *testing.T) {
	ctx := planContext(t, codeset(1, 1001))
	rel, err := buildConditionOccurrence(&ir.ConditionOccurrence{CodesetID: int64p(1)}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if !strings.Contains(sql, `"cdm"."condition_occurrence" AS t`) {
		t.Errorf("base table scan missing:\n%s", sql)
	}
	if !strings.Contains(sql, "t.condition_concept_id IN (") {
		t.Errorf("codeset membership missing:\n%s", sql)
	}
	if !strings.Contains(sql, "cs.codeset_id = 1") {
		t.Errorf("codeset id filter missing:\n%s", sql)
	}
}

func TestConditionOccurrenceWithoutCodesetScansWholeTable(t *testing.T) {
	ctx := planContext(t)
	rel, err := buildConditionOccurrence(&ir.ConditionOccurrence{}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	if strings.Contains(rel.SQL(), "codeset_id") {
		t.Errorf("no codeset filter expected:\n%s", rel.SQL())
	}
}

func TestOutputSchemaColumns(t *testing.T) {
	ctx := planContext(t)
	builds := map[string]func() (interface{ SQL() string }, error){
		"condition_occurrence": func() (interface{ SQL() string }, error) {
			return buildConditionOccurrence(&ir.ConditionOccurrence{}, ctx)
		},
		"drug_era": func() (interface{ SQL() string }, error) {
			return buildDrugEra(&ir.DrugEra{}, ctx)
		},
		"measurement": func() (interface{ SQL() string }, error) {
			return buildMeasurement(&ir.Measurement{}, ctx)
		},
		"death": func() (interface{ SQL() string }, error) {
			return buildDeath(&ir.Death{}, ctx)
		},
	}
	for name, buildFn := range builds {
		t.Run(name, func(t *testing.T) {
			rel, err := buildFn()
			if err != nil {
				t.Fatalf("build error = %v", err)
			}
			sql := rel.SQL()
			for _, col := range EventColumns {
				if !strings.Contains(sql, "AS "+col) {
					t.Errorf("column %s missing:\n%s", col, sql)
				}
			}
		})
	}
}

// Domains whose end column can be null substitute start + 1 day.
func TestEndDateFallback(t *testing.T) {
	ctx := planContext(t)
	rel, err := buildDrugExposure(&ir.DrugExposure{}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if !strings.Contains(sql, "CASE WHEN t.drug_exposure_end_date IS NULL THEN (t.drug_exposure_start_date + INTERVAL (1) DAY) ELSE t.drug_exposure_end_date END AS end_date") {
		t.Errorf("end-date fallback missing:\n%s", sql)
	}
}

// Domains with a single date column reuse it for both endpoints.
func TestSameDayDomainsShareDates(t *testing.T) {
	ctx := planContext(t)
	rel, err := buildMeasurement(&ir.Measurement{}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if !strings.Contains(sql, "t.measurement_date AS start_date") || !strings.Contains(sql, "t.measurement_date AS end_date") {
		t.Errorf("measurement should use its date for both endpoints:\n%s", sql)
	}
}

func TestDeathSynthesizesOrdinalEventID(t *testing.T) {
	ctx := planContext(t)
	rel, err := buildDeath(&ir.Death{}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	if !strings.Contains(rel.SQL(), "ROW_NUMBER() OVER (PARTITION BY t.person_id ORDER BY t.death_date)") {
		t.Errorf("ordinal event id missing:\n%s", rel.SQL())
	}
}

func TestFirstEventWindow(t *testing.T) {
	ctx := planContext(t, codeset(2, 2001))
	rel, err := buildDrugExposure(&ir.DrugExposure{CodesetID: int64p(2), First: boolp(true)}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if !strings.Contains(sql, "ROW_NUMBER() OVER (PARTITION BY b.person_id ORDER BY b.drug_exposure_start_date, b.drug_exposure_id)") {
		t.Errorf("first-event window missing:\n%s", sql)
	}
	if !strings.Contains(sql, "t._first_ord = 1") {
		t.Errorf("first-event filter missing:\n%s", sql)
	}
}

func TestDemographicsJoinPerson(t *testing.T) {
	ctx := planContext(t)
	rel, err := buildConditionOccurrence(&ir.ConditionOccurrence{
		Age:    &ir.NumericRange{Value: floatp(40), Op: ir.OpGTE},
		Gender: []ir.Concept{{ConceptID: int64p(8507)}},
	}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if strings.Count(sql, `"cdm"."person" AS p`) != 1 {
		t.Errorf("person should join exactly once:\n%s", sql)
	}
	if !strings.Contains(sql, "- p.year_of_birth) >= 40") {
		t.Errorf("age predicate missing:\n%s", sql)
	}
	if !strings.Contains(sql, "p.gender_concept_id IN (8507)") {
		t.Errorf("gender filter missing:\n%s", sql)
	}
}

func TestVisitTypeJoinsVisitOccurrence(t *testing.T) {
	ctx := planContext(t)
	rel, err := buildConditionOccurrence(&ir.ConditionOccurrence{
		VisitType: []ir.Concept{{ConceptID: int64p(9201)}},
	}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if !strings.Contains(sql, `"cdm"."visit_occurrence" AS v`) {
		t.Errorf("visit join missing:\n%s", sql)
	}
	if !strings.Contains(sql, "v.visit_concept_id IN (9201)") {
		t.Errorf("visit concept filter missing:\n%s", sql)
	}
}

func TestProviderSpecialtySemiJoin(t *testing.T) {
	ctx := planContext(t, codeset(3, 3001))
	rel, err := buildDrugExposure(&ir.DrugExposure{
		ProviderSpecialtyCS: &ir.ConceptSetSelection{CodesetID: int64p(3)},
	}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	sql := rel.SQL()
	if !strings.Contains(sql, "t.provider_id IN (") || !strings.Contains(sql, `"cdm"."provider" AS pr`) {
		t.Errorf("provider semi-join missing:\n%s", sql)
	}
}

func TestConceptSetSelectionExclusionAntiJoins(t *testing.T) {
	ctx := planContext(t, codeset(4, 4001))
	rel, err := buildConditionOccurrence(&ir.ConditionOccurrence{
		ConditionTypeCS: &ir.ConceptSetSelection{CodesetID: int64p(4), IsExclusion: true},
	}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	if !strings.Contains(rel.SQL(), "t.condition_type_concept_id NOT IN (") {
		t.Errorf("exclusion selection should anti-join:\n%s", rel.SQL())
	}
}

func TestSourceConceptScalarUsesCodesetSemantics(t *testing.T) {
	ctx := planContext(t, codeset(6, 6001))
	var f ir.SourceConceptFilter
	if err := f.UnmarshalJSON([]byte("6")); err != nil {
		t.Fatal(err)
	}
	rel, err := buildConditionOccurrence(&ir.ConditionOccurrence{ConditionSourceConcept: &f}, ctx)
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	if !strings.Contains(rel.SQL(), "t.condition_source_concept_id IN (") {
		t.Errorf("source concept codeset filter missing:\n%s", rel.SQL())
	}
}

func TestBuildDispatchesAllKinds(t *testing.T) {
	ctx := planContext(t)
	criteria := []ir.Criterion{
		&ir.ConditionOccurrence{}, &ir.ConditionEra{}, &ir.DrugExposure{},
		&ir.DrugEra{}, &ir.DoseEra{}, &ir.VisitOccurrence{}, &ir.VisitDetail{},
		&ir.Measurement{}, &ir.Observation{}, &ir.ObservationPeriod{},
		&ir.ProcedureOccurrence{}, &ir.DeviceExposure{}, &ir.Death{},
		&ir.Specimen{}, &ir.PayerPlanPeriod{},
	}
	for _, c := range criteria {
		t.Run(c.Kind(), func(t *testing.T) {
			rel, err := Build(context.Background(), c, ctx)
			if err != nil {
				t.Fatalf("Build(%s) error = %v", c.Kind(), err)
			}
			if rel.IsZero() {
				t.Fatalf("Build(%s) returned empty relation", c.Kind())
			}
		})
	}
}

func TestUnitNormalizationWhitelist(t *testing.T) {
	tests := []struct {
		name       string
		units      []int64
		normalized bool
	}{
		{"all kilograms", []int64{9529}, true},
		{"kg and lb", []int64{9529, 3195625}, true},
		{"cell counts", []int64{8848, 8784}, true},
		{"mixed groups", []int64{9529, 8848}, false},
		{"unknown unit", []int64{9529, 12345}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, ok := normalizedValueExpr(tt.units)
			if ok != tt.normalized {
				t.Fatalf("normalized = %v, want %v", ok, tt.normalized)
			}
			if ok && !strings.Contains(expr, "t.value_as_number * CASE") {
				t.Errorf("multiplier expression = %q", expr)
			}
		})
	}
}

func TestPoundMultiplier(t *testing.T) {
	expr, ok := normalizedValueExpr([]int64{3195625})
	if !ok {
		t.Fatal("pound should normalize")
	}
	if !strings.Contains(expr, "0.45359237") {
		t.Errorf("pound multiplier missing: %q", expr)
	}
}

func TestBuilderOutputIsDeterministic(t *testing.T) {
	ctx := planContext(t, codeset(1, 1001))
	c := &ir.ConditionOccurrence{CodesetID: int64p(1), First: boolp(true)}
	a, err := buildConditionOccurrence(c, ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := buildConditionOccurrence(c, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a.SQL() != b.SQL() {
		t.Error("builder output is not deterministic")
	}
}
