package builders

import (
	"context"
	"strings"
	"testing"

	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

func testIndex() indexRelation {
	return indexRelation{Rel: sqlgen.Raw("SELECT * FROM idx")}
}

func correlated(child ir.Criterion, mutate ...func(*ir.CorrelatedCriteria)) *ir.CorrelatedCriteria {
	cc := &ir.CorrelatedCriteria{
		Criteria: &ir.CriterionEnvelope{Criterion: child},
		StartWindow: &ir.Window{
			Start: &ir.Endpoint{Days: intp(0), Coeff: 1},
			End:   &ir.Endpoint{Days: intp(30), Coeff: 1},
		},
		Occurrence: &ir.Occurrence{Type: ir.OccurrenceAtLeast, Count: 1},
	}
	for _, fn := range mutate {
		fn(cc)
	}
	return cc
}

func TestWindowBoundsInclusive(t *testing.T) {
	d := dialect.DuckDB{}
	cc := correlated(&ir.ConditionOccurrence{})
	conds := windowConditions(d, cc)
	joined := strings.Join(conds, " AND ")
	if !strings.Contains(joined, "c.start_date >= e2.start_date") {
		t.Errorf("zero-day lower bound should anchor at the index start: %s", joined)
	}
	if !strings.Contains(joined, "c.start_date <= (e2.start_date + INTERVAL (30) DAY)") {
		t.Errorf("inclusive upper bound missing: %s", joined)
	}
}

func TestWindowOpenSide(t *testing.T) {
	cc := correlated(&ir.ConditionOccurrence{}, func(cc *ir.CorrelatedCriteria) {
		cc.StartWindow = &ir.Window{End: &ir.Endpoint{Days: intp(0), Coeff: -1}}
	})
	conds := windowConditions(dialect.DuckDB{}, cc)
	joined := strings.Join(conds, " AND ")
	if strings.Contains(joined, ">=") {
		t.Errorf("missing Days should leave the lower side open: %s", joined)
	}
	if !strings.Contains(joined, "c.start_date <= e2.start_date") {
		t.Errorf("upper bound missing: %s", joined)
	}
}

func TestWindowNegativeCoeff(t *testing.T) {
	// Washout lookback: [-365, 0] days before the index date; a child at
	// exactly -365 days is inside (inclusive lower bound).
	cc := correlated(&ir.ConditionOccurrence{}, func(cc *ir.CorrelatedCriteria) {
		cc.StartWindow = &ir.Window{
			Start: &ir.Endpoint{Days: intp(365), Coeff: -1},
			End:   &ir.Endpoint{Days: intp(0), Coeff: 1},
		}
	})
	conds := windowConditions(dialect.DuckDB{}, cc)
	joined := strings.Join(conds, " AND ")
	if !strings.Contains(joined, "c.start_date >= (e2.start_date + INTERVAL (-365) DAY)") {
		t.Errorf("negative coefficient bound wrong: %s", joined)
	}
}

func TestWindowAnchors(t *testing.T) {
	cc := correlated(&ir.ConditionOccurrence{}, func(cc *ir.CorrelatedCriteria) {
		cc.StartWindow.UseIndexEnd = boolp(true)
		cc.StartWindow.UseEventEnd = boolp(true)
	})
	joined := strings.Join(windowConditions(dialect.DuckDB{}, cc), " AND ")
	if !strings.Contains(joined, "c.end_date >= e2.end_date") {
		t.Errorf("anchors not honored: %s", joined)
	}
}

func TestEndWindowConstrainsChildEnd(t *testing.T) {
	cc := correlated(&ir.ConditionOccurrence{}, func(cc *ir.CorrelatedCriteria) {
		cc.EndWindow = &ir.Window{Start: &ir.Endpoint{Days: intp(0), Coeff: 1}}
	})
	joined := strings.Join(windowConditions(dialect.DuckDB{}, cc), " AND ")
	if !strings.Contains(joined, "c.end_date >= e2.start_date") {
		t.Errorf("end window should bound the child end date: %s", joined)
	}
}

func TestOccurrencePredicates(t *testing.T) {
	tests := []struct {
		name string
		occ  *ir.Occurrence
		want string
	}{
		{"exactly", &ir.Occurrence{Type: ir.OccurrenceExactly, Count: 2}, "COUNT(c.event_id) = 2"},
		{"at least", &ir.Occurrence{Type: ir.OccurrenceAtLeast, Count: 3}, "COUNT(c.event_id) >= 3"},
		{"at most", &ir.Occurrence{Type: ir.OccurrenceAtMost, Count: 1}, "COUNT(c.event_id) <= 1"},
		{"absence", &ir.Occurrence{Type: ir.OccurrenceAtMost, Count: 0}, "COUNT(c.event_id) <= 0"},
		{"default", nil, "COUNT(c.event_id) > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := occurrencePredicate("COUNT(c.event_id)", tt.occ); got != tt.want {
				t.Errorf("occurrencePredicate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDistinctVisitCount(t *testing.T) {
	ctx := planContext(t, codeset(2, 2001))
	col := ir.ColumnVisitID
	cc := correlated(&ir.ConditionOccurrence{CodesetID: int64p(2)}, func(cc *ir.CorrelatedCriteria) {
		cc.Occurrence = &ir.Occurrence{
			Type: ir.OccurrenceAtLeast, Count: 2,
			IsDistinct: boolp(true), CountColumn: &col,
		}
	})
	sat, err := correlatedSatisfiers(context.Background(), testIndex(), cc, ctx)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(sat.SQL(), "COUNT(DISTINCT c.visit_occurrence_id) >= 2") {
		t.Errorf("distinct visit count missing:\n%s", sat.SQL())
	}
}

func TestObservationPeriodContainmentDefault(t *testing.T) {
	ctx := planContext(t)
	cc := correlated(&ir.ConditionOccurrence{})
	sat, err := correlatedSatisfiers(context.Background(), testIndex(), cc, ctx)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(sat.SQL(), `"cdm"."observation_period" AS op`) {
		t.Errorf("child OP containment missing:\n%s", sat.SQL())
	}
}

func TestIgnoreObservationPeriod(t *testing.T) {
	ctx := planContext(t)
	cc := correlated(&ir.ConditionOccurrence{}, func(cc *ir.CorrelatedCriteria) {
		cc.IgnoreObservationPeriod = boolp(true)
	})
	sat, err := correlatedSatisfiers(context.Background(), testIndex(), cc, ctx)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if strings.Contains(sat.SQL(), "observation_period") {
		t.Errorf("OP containment should be skipped:\n%s", sat.SQL())
	}
}

func TestRestrictVisit(t *testing.T) {
	ctx := planContext(t)
	cc := correlated(&ir.ConditionOccurrence{}, func(cc *ir.CorrelatedCriteria) {
		cc.RestrictVisit = boolp(true)
	})
	sat, err := correlatedSatisfiers(context.Background(), testIndex(), cc, ctx)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(sat.SQL(), "e2.visit_occurrence_id = c.visit_occurrence_id") {
		t.Errorf("visit restriction missing:\n%s", sat.SQL())
	}
}

func TestVisitDetailChildRestrictsVisitByDefault(t *testing.T) {
	ctx := planContext(t)
	cc := correlated(&ir.VisitDetail{})
	sat, err := correlatedSatisfiers(context.Background(), testIndex(), cc, ctx)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(sat.SQL(), "e2.visit_occurrence_id = c.visit_occurrence_id") {
		t.Errorf("visit-detail child should restrict visits by default:\n%s", sat.SQL())
	}
}

func TestGroupCombinators(t *testing.T) {
	ctx := planContext(t)
	mkGroup := func(gt ir.GroupType, count *int) *ir.CriteriaGroup {
		return &ir.CriteriaGroup{
			Type:  gt,
			Count: count,
			CriteriaList: []ir.CorrelatedCriteria{
				*correlated(&ir.ConditionOccurrence{}),
				*correlated(&ir.DrugExposure{}),
			},
		}
	}
	t.Run("all", func(t *testing.T) {
		pred, err := groupPredicate(context.Background(), testIndex(), mkGroup(ir.GroupAll, nil), ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(pred, "\n  AND EXISTS") {
			t.Errorf("ALL should be a conjunction of EXISTS predicates:\n%s", pred)
		}
		if strings.Contains(pred, "CAST(CASE WHEN EXISTS") {
			t.Errorf("ALL should not sum indicators:\n%s", pred)
		}
	})
	t.Run("any", func(t *testing.T) {
		pred, err := groupPredicate(context.Background(), testIndex(), mkGroup(ir.GroupAny, nil), ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(pred, "OR") {
			t.Errorf("ANY should be a disjunction:\n%s", pred)
		}
	})
	t.Run("at least casts indicators", func(t *testing.T) {
		pred, err := groupPredicate(context.Background(), testIndex(), mkGroup(ir.GroupAtLeast, intp(2)), ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(pred, "CAST(CASE WHEN") || !strings.Contains(pred, ">= 2") {
			t.Errorf("AT_LEAST should sum cast indicators:\n%s", pred)
		}
	})
	t.Run("at most", func(t *testing.T) {
		pred, err := groupPredicate(context.Background(), testIndex(), mkGroup(ir.GroupAtMost, intp(1)), ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(pred, "<= 1") {
			t.Errorf("AT_MOST threshold missing:\n%s", pred)
		}
	})
}

func TestDemographicCriteria(t *testing.T) {
	ctx := planContext(t)
	group := &ir.CriteriaGroup{
		Type: ir.GroupAll,
		DemographicCriteriaList: []ir.DemographicCriteria{
			{
				Age:    &ir.NumericRange{Value: floatp(18), Op: ir.OpGTE},
				Gender: []ir.Concept{{ConceptID: int64p(8532)}},
			},
		},
	}
	pred, err := groupPredicate(context.Background(), testIndex(), group, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pred, "p.gender_concept_id IN (8532)") {
		t.Errorf("gender predicate missing:\n%s", pred)
	}
	if !strings.Contains(pred, "- p.year_of_birth) >= 18") {
		t.Errorf("age predicate missing:\n%s", pred)
	}
}

func TestEmptyDemographicCriteriaIgnored(t *testing.T) {
	ctx := planContext(t)
	group := &ir.CriteriaGroup{
		DemographicCriteriaList: []ir.DemographicCriteria{{}},
	}
	pred, err := groupPredicate(context.Background(), testIndex(), group, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pred != "" {
		t.Errorf("empty demographic criteria should produce no predicate:\n%s", pred)
	}
}

func TestNestedGroups(t *testing.T) {
	ctx := planContext(t)
	group := &ir.CriteriaGroup{
		Type: ir.GroupAll,
		CriteriaList: []ir.CorrelatedCriteria{
			*correlated(&ir.ConditionOccurrence{}),
		},
		Groups: []ir.CriteriaGroup{
			{
				Type: ir.GroupAny,
				CriteriaList: []ir.CorrelatedCriteria{
					*correlated(&ir.DrugExposure{}),
					*correlated(&ir.Measurement{}),
				},
			},
		},
	}
	pred, err := groupPredicate(context.Background(), testIndex(), group, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pred, "(") || !strings.Contains(pred, "OR") {
		t.Errorf("nested group should parenthesize its disjunction:\n%s", pred)
	}
}

func TestApplyCriteriaGroupEmptyIsIdentity(t *testing.T) {
	ctx := planContext(t)
	rel := sqlgen.Raw("SELECT * FROM idx")
	out, err := ApplyCriteriaGroup(context.Background(), rel, indexRelation{}, &ir.CriteriaGroup{}, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out.SQL() != rel.SQL() {
		t.Error("empty group should return the input unchanged")
	}
}
