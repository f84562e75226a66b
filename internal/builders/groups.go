package builders

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/cohorterr"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// indexRelation is the event relation a criteria group filters, plus the
// bookkeeping the evaluator needs: which columns to carry through and
// whether observation-period bounds ride along as auxiliary columns.
type indexRelation struct {
	Rel     sqlgen.Relation
	Columns []string
	HasOP   bool
}

func (ix indexRelation) columns() []string {
	if len(ix.Columns) == 0 {
		return EventColumns
	}
	return ix.Columns
}

// ApplyCriteriaGroup filters the index relation by a criteria group. An
// empty group is the identity.
func ApplyCriteriaGroup(gctx context.Context, rel sqlgen.Relation, index indexRelation, group *ir.CriteriaGroup, ctx *build.Context) (sqlgen.Relation, error) {
	if group.IsEmpty() {
		return rel, nil
	}
	index.Rel = rel
	pred, err := groupPredicate(gctx, index, group, ctx)
	if err != nil {
		return sqlgen.Relation{}, err
	}
	if pred == "" {
		return rel, nil
	}
	return sqlgen.FromRelation(rel, "e").
		Select(prefixed("e", index.columns())...).
		Where(pred).
		Relation(), nil
}

// groupPredicate renders the combinator over the per-child predicates. Each
// child predicate is an EXISTS over a satisfying-set subquery correlated to
// the outer alias e by (person_id, event_id) equality only, which keeps the
// plan valid on distributed dialects.
func groupPredicate(gctx context.Context, index indexRelation, group *ir.CriteriaGroup, ctx *build.Context) (string, error) {
	var preds []string
	for i := range group.CriteriaList {
		sat, err := correlatedSatisfiers(gctx, index, &group.CriteriaList[i], ctx)
		if err != nil {
			return "", err
		}
		preds = append(preds, membership(sat))
	}
	for i := range group.DemographicCriteriaList {
		sat, err := demographicSatisfiers(index, &group.DemographicCriteriaList[i], ctx)
		if err != nil {
			return "", err
		}
		if !sat.IsZero() {
			preds = append(preds, membership(sat))
		}
	}
	for i := range group.Groups {
		sub, err := groupPredicate(gctx, index, &group.Groups[i], ctx)
		if err != nil {
			return "", err
		}
		if sub != "" {
			preds = append(preds, "("+sub+")")
		}
	}
	if len(preds) == 0 {
		return "", nil
	}
	groupType := group.Type
	if groupType == "" {
		groupType = ir.GroupAll
	}
	switch groupType {
	case ir.GroupAny:
		return strings.Join(preds, "\n  OR "), nil
	case ir.GroupAtLeast, ir.GroupAtMost:
		// Indicator bits go through a bigint cast before summation so no
		// dialect promotes the sum to an unexpected type.
		d := ctx.Dialect()
		terms := make([]string, len(preds))
		for i, p := range preds {
			terms[i] = d.CastBigInt(fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", p))
		}
		total := "(" + strings.Join(terms, " + ") + ")"
		if groupType == ir.GroupAtLeast {
			n := 1
			if group.Count != nil {
				n = *group.Count
			}
			return fmt.Sprintf("%s >= %d", total, n), nil
		}
		n := 0
		if group.Count != nil {
			n = *group.Count
		}
		return fmt.Sprintf("%s <= %d", total, n), nil
	default:
		return strings.Join(preds, "\n  AND "), nil
	}
}

// membership renders the EXISTS predicate testing that the outer event
// belongs to a satisfying set.
func membership(sat sqlgen.Relation) string {
	probe := sqlgen.FromRelation(sat, "s").
		Select("1").
		Where("s.person_id = e.person_id", "s.event_id = e.event_id").
		Relation()
	return sqlgen.Exists(probe)
}

// correlatedSatisfiers computes the (person_id, event_id) pairs of index
// events whose windowed child-event count satisfies the occurrence
// predicate.
func correlatedSatisfiers(gctx context.Context, index indexRelation, cc *ir.CorrelatedCriteria, ctx *build.Context) (sqlgen.Relation, error) {
	if cc.Criteria == nil || cc.Criteria.Criterion == nil {
		return sqlgen.Relation{}, &cohorterr.InvalidExpressionError{Reason: "correlated criteria without a child criterion"}
	}
	child, err := Build(gctx, cc.Criteria.Criterion, ctx)
	if err != nil {
		return sqlgen.Relation{}, err
	}
	ignoreOP := cc.IgnoresObservationPeriod()
	if !ignoreOP {
		child = constrainToObservation(child, ctx)
	}

	conds := []string{"c.person_id = e2.person_id"}
	if !ignoreOP && index.HasOP {
		conds = append(conds,
			"c.start_date >= e2.observation_period_start_date",
			"c.start_date <= e2.observation_period_end_date",
			"c.end_date <= e2.observation_period_end_date",
		)
	}
	conds = append(conds, windowConditions(ctx.Dialect(), cc)...)

	restrictVisit := cc.RestrictVisit != nil && *cc.RestrictVisit
	if cc.RestrictVisit == nil {
		// Visit-detail children restrict to the shared visit by default.
		if _, ok := cc.Criteria.Criterion.(*ir.VisitDetail); ok {
			restrictVisit = true
		}
	}
	if restrictVisit {
		conds = append(conds,
			"e2.visit_occurrence_id IS NOT NULL",
			"c.visit_occurrence_id IS NOT NULL",
			"e2.visit_occurrence_id = c.visit_occurrence_id",
		)
	}

	countExpr := "c.event_id"
	if cc.Occurrence != nil && cc.Occurrence.CountColumn != nil {
		switch *cc.Occurrence.CountColumn {
		case ir.ColumnStartDate:
			countExpr = "c.start_date"
		case ir.ColumnEndDate:
			countExpr = "c.end_date"
		case ir.ColumnVisitID:
			countExpr = "c.visit_occurrence_id"
		}
	}
	agg := fmt.Sprintf("COUNT(%s)", countExpr)
	if cc.Occurrence.Distinct() {
		agg = fmt.Sprintf("COUNT(DISTINCT %s)", countExpr)
	}

	return sqlgen.FromRelation(index.Rel, "e2").
		LeftJoin(child.Sub("c"), strings.Join(conds, " AND ")).
		Select("e2.person_id", "e2.event_id").
		GroupBy("e2.person_id", "e2.event_id").
		Having(occurrencePredicate(agg, cc.Occurrence)).
		Relation(), nil
}

// constrainToObservation keeps child events whose start lies inside one of
// the person's observation periods.
func constrainToObservation(child sqlgen.Relation, ctx *build.Context) sqlgen.Relation {
	return sqlgen.FromRelation(child, "c").
		Join(ctx.Table("observation_period")+" AS op",
			"op.person_id = c.person_id"+
				" AND c.start_date >= op.observation_period_start_date"+
				" AND c.start_date <= op.observation_period_end_date").
		Select(prefixed("c", EventColumns)...).
		Relation()
}

// occurrencePredicate renders the count comparison; a missing occurrence
// defaults to "at least one".
func occurrencePredicate(countExpr string, occ *ir.Occurrence) string {
	if occ == nil {
		return countExpr + " > 0"
	}
	switch occ.Type {
	case ir.OccurrenceExactly:
		return fmt.Sprintf("%s = %d", countExpr, occ.Count)
	case ir.OccurrenceAtMost:
		return fmt.Sprintf("%s <= %d", countExpr, occ.Count)
	case ir.OccurrenceAtLeast:
		return fmt.Sprintf("%s >= %d", countExpr, occ.Count)
	}
	return countExpr + " > 0"
}

// windowConditions renders the start- and end-window bounds joining child
// rows (alias c) to index rows (alias e2). Bounds are inclusive; a missing
// day count leaves that side open.
func windowConditions(d dialect.Dialect, cc *ir.CorrelatedCriteria) []string {
	var conds []string
	if w := cc.StartWindow; w != nil {
		anchor := "c.start_date"
		if w.UseEventEnd != nil && *w.UseEventEnd {
			anchor = "c.end_date"
		}
		conds = append(conds, endpointBounds(d, w, anchor)...)
	}
	if w := cc.EndWindow; w != nil {
		// The end window always constrains the child's end anchor.
		conds = append(conds, endpointBounds(d, w, "c.end_date")...)
	}
	return conds
}

func endpointBounds(d dialect.Dialect, w *ir.Window, childAnchor string) []string {
	indexAnchor := "e2.start_date"
	if w.UseIndexEnd != nil && *w.UseIndexEnd {
		indexAnchor = "e2.end_date"
	}
	var conds []string
	if w.Start != nil && w.Start.Days != nil {
		lo := d.DateAdd(indexAnchor, *w.Start.Days*coeff(w.Start))
		conds = append(conds, fmt.Sprintf("%s >= %s", childAnchor, lo))
	}
	if w.End != nil && w.End.Days != nil {
		hi := d.DateAdd(indexAnchor, *w.End.Days*coeff(w.End))
		conds = append(conds, fmt.Sprintf("%s <= %s", childAnchor, hi))
	}
	return conds
}

func coeff(e *ir.Endpoint) int {
	if e.Coeff == 0 {
		return 1
	}
	return e.Coeff
}

// demographicSatisfiers computes the index events whose person passes the
// demographic predicates. Returns a zero relation when the criteria carry
// no effective conditions.
func demographicSatisfiers(index indexRelation, dc *ir.DemographicCriteria, ctx *build.Context) (sqlgen.Relation, error) {
	d := ctx.Dialect()
	q := sqlgen.FromRelation(index.Rel, "e2").
		Select("e2.person_id", "e2.event_id").
		Join(ctx.Table("person")+" AS p", "p.person_id = e2.person_id")
	applied := false

	if dc.Age != nil && dc.Age.Value != nil {
		ageExpr := fmt.Sprintf("(%s - p.year_of_birth)", d.YearOf("e2.start_date"))
		pred, err := numericPredicate(ageExpr, dc.Age)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		q.Where(pred)
		applied = true
	}
	applied = demographicConceptFilter(q, ctx, "p.gender_concept_id", dc.Gender, dc.GenderCS) || applied
	applied = demographicConceptFilter(q, ctx, "p.race_concept_id", dc.Race, dc.RaceCS) || applied
	applied = demographicConceptFilter(q, ctx, "p.ethnicity_concept_id", dc.Ethnicity, dc.EthnicityCS) || applied
	if dc.OccurrenceStartDate != nil {
		pred, err := dateRangePredicate(d, "e2.start_date", dc.OccurrenceStartDate)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		q.Where(pred)
		applied = true
	}
	if dc.OccurrenceEndDate != nil {
		pred, err := dateRangePredicate(d, "e2.end_date", dc.OccurrenceEndDate)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		q.Where(pred)
		applied = true
	}
	if !applied {
		return sqlgen.Relation{}, nil
	}
	return q.Relation(), nil
}

func demographicConceptFilter(q *sqlgen.Query, ctx *build.Context, column string, concepts []ir.Concept, sel *ir.ConceptSetSelection) bool {
	applied := false
	if ids := ir.ConceptIDs(concepts); len(ids) > 0 {
		q.Where(dialect.InBigintList(column, ids))
		applied = true
	}
	if sel != nil && sel.CodesetID != nil {
		if sel.IsExclusion {
			q.Where(ctx.CodesetAntiFilter(column, *sel.CodesetID))
		} else {
			q.Where(ctx.CodesetFilter(column, *sel.CodesetID))
		}
		applied = true
	}
	return applied
}

// dateRangePredicate renders a date-range comparison over an expression.
func dateRangePredicate(d dialect.Dialect, expr string, r *ir.DateRange) (string, error) {
	if r.Op.IsBetween() {
		if r.Extent == nil {
			return "", &cohorterr.InvalidExpressionError{Reason: "between operator requires an extent"}
		}
		pred := fmt.Sprintf("(%s >= %s AND %s <= %s)",
			expr, d.DateLiteral(r.Value), expr, d.DateLiteral(*r.Extent))
		if r.Op.Negated() {
			pred = "NOT " + pred
		}
		return pred, nil
	}
	cmp, err := comparison(r.Op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", expr, cmp, d.DateLiteral(r.Value)), nil
}
