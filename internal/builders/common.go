// Package builders translates domain criteria into relational sub-plans
// producing the uniform event schema (person_id, event_id, start_date,
// end_date, visit_occurrence_id), and evaluates correlated criteria groups
// and the cohort pipeline over them.
package builders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/cohorterr"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// EventColumns is the builder output contract, in order.
var EventColumns = []string{"person_id", "event_id", "start_date", "end_date", "visit_occurrence_id"}

// criterionQuery accumulates filters over one domain table scan. The base
// table is always aliased t; person, visit, and other supporting joins are
// added at most once. Errors from malformed ranges stick and surface when
// the query is finished.
type criterionQuery struct {
	ctx          *build.Context
	d            dialect.Dialect
	q            *sqlgen.Query
	personJoined bool
	visitJoined  bool
	err          error
}

func newCriterionQuery(ctx *build.Context, table string) *criterionQuery {
	return &criterionQuery{
		ctx: ctx,
		d:   ctx.Dialect(),
		q:   sqlgen.NewQuery(ctx.Table(table) + " AS t"),
	}
}

func (cq *criterionQuery) fail(err error) {
	if cq.err == nil {
		cq.err = err
	}
}

// codesetFilter restricts a concept column to a compiled codeset.
func (cq *criterionQuery) codesetFilter(column string, codesetID *int64) {
	if codesetID == nil {
		return
	}
	cq.q.Where(cq.ctx.CodesetFilter("t."+column, *codesetID))
}

// conceptFilter applies a discrete concept-id list, optionally negated.
func (cq *criterionQuery) conceptFilter(column string, concepts []ir.Concept, exclude bool) {
	ids := ir.ConceptIDs(concepts)
	if len(ids) == 0 {
		return
	}
	pred := dialect.InBigintList("t."+column, ids)
	if exclude {
		pred = "NOT (" + pred + ")"
	}
	cq.q.Where(pred)
}

// selectionFilter applies a concept-set selection as a semi- or anti-join.
func (cq *criterionQuery) selectionFilter(column string, sel *ir.ConceptSetSelection) {
	if sel == nil || sel.CodesetID == nil {
		return
	}
	if sel.IsExclusion {
		cq.q.Where(cq.ctx.CodesetAntiFilter("t."+column, *sel.CodesetID))
		return
	}
	cq.q.Where(cq.ctx.CodesetFilter("t."+column, *sel.CodesetID))
}

// sourceConceptFilter applies the scalar-or-selection source-concept form
// with codeset semantics for both shapes.
func (cq *criterionQuery) sourceConceptFilter(column string, f *ir.SourceConceptFilter) {
	if f == nil {
		return
	}
	sel := f.AsSelection()
	cq.selectionFilter(column, &sel)
}

// literalConceptFilter compares a concept column against a literal id.
func (cq *criterionQuery) literalConceptFilter(column string, id *int64) {
	if id == nil {
		return
	}
	cq.q.Where(fmt.Sprintf("t.%s = %d", column, *id))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// numericPredicate renders a numeric range predicate over an expression.
func numericPredicate(expr string, r *ir.NumericRange) (string, error) {
	if r == nil || r.Value == nil {
		return "", nil
	}
	if r.Op.IsBetween() {
		if r.Extent == nil {
			return "", &cohorterr.InvalidExpressionError{Reason: "between operator requires an extent"}
		}
		pred := fmt.Sprintf("%s >= %s AND %s <= %s", expr, formatNumber(*r.Value), expr, formatNumber(*r.Extent))
		if r.Op.Negated() {
			return "NOT (" + pred + ")", nil
		}
		return "(" + pred + ")", nil
	}
	cmp, err := comparison(r.Op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", expr, cmp, formatNumber(*r.Value)), nil
}

func (cq *criterionQuery) numericRange(expr string, r *ir.NumericRange) {
	pred, err := numericPredicate(expr, r)
	if err != nil {
		cq.fail(err)
		return
	}
	if pred != "" {
		cq.q.Where(pred)
	}
}

// dateRange filters a date column; between bounds are inclusive and compare
// literals cast to the row's date type.
func (cq *criterionQuery) dateRange(column string, r *ir.DateRange) {
	cq.dateRangeExpr("t."+column, r)
}

func (cq *criterionQuery) dateRangeExpr(expr string, r *ir.DateRange) {
	if r == nil {
		return
	}
	if r.Op.IsBetween() {
		if r.Extent == nil {
			cq.fail(&cohorterr.InvalidExpressionError{Reason: "between operator requires an extent"})
			return
		}
		pred := fmt.Sprintf("%s >= %s AND %s <= %s",
			expr, cq.d.DateLiteral(r.Value), expr, cq.d.DateLiteral(*r.Extent))
		if r.Op.Negated() {
			pred = "NOT (" + pred + ")"
		} else {
			pred = "(" + pred + ")"
		}
		cq.q.Where(pred)
		return
	}
	cmp, err := comparison(r.Op)
	if err != nil {
		cq.fail(err)
		return
	}
	cq.q.Where(fmt.Sprintf("%s %s %s", expr, cmp, cq.d.DateLiteral(r.Value)))
}

// textFilter translates startsWith/endsWith/contains and negations into
// anchored LIKE patterns.
func (cq *criterionQuery) textFilter(column string, f *ir.TextFilter) {
	pred := textPredicate("t."+column, f)
	if pred != "" {
		cq.q.Where(pred)
	}
}

func textPredicate(expr string, f *ir.TextFilter) string {
	if f == nil || f.Text == "" {
		return ""
	}
	op := f.Op
	if op == "" {
		op = "contains"
	}
	negate := strings.HasPrefix(op, "!")
	core := strings.ToLower(strings.TrimPrefix(op, "!"))
	prefix, suffix := "", ""
	if core == "endswith" || core == "contains" {
		prefix = "%"
	}
	if core == "startswith" || core == "contains" {
		suffix = "%"
	}
	pattern := prefix + f.Text + suffix
	like := fmt.Sprintf("%s LIKE '%s'", expr, strings.ReplaceAll(pattern, "'", "''"))
	if negate {
		return "NOT (" + like + ")"
	}
	return like
}

// intervalRange filters on end - start in days. Equality matches the whole
// target day: end in [start+v, start+v+1).
func (cq *criterionQuery) intervalRange(startCol, endCol string, r *ir.NumericRange) {
	if r == nil || r.Value == nil {
		return
	}
	d := cq.d
	start, end := "t."+startCol, "t."+endCol
	v := int(*r.Value)
	op := strings.ToLower(string(r.Op))
	if op == "" {
		op = "gte"
	}
	target := d.DateAdd(start, v)
	var pred string
	switch {
	case strings.HasSuffix(op, "bt"):
		if r.Extent == nil {
			cq.fail(&cohorterr.InvalidExpressionError{Reason: "between operator for interval range requires an extent"})
			return
		}
		pred = fmt.Sprintf("(%s >= %s AND %s <= %s)", end, target, end, d.DateAdd(start, int(*r.Extent)))
		if strings.HasPrefix(op, "!") {
			pred = "NOT " + pred
		}
	case op == "lt":
		pred = fmt.Sprintf("%s < %s", end, target)
	case op == "lte":
		pred = fmt.Sprintf("%s <= %s", end, target)
	case op == "gt":
		pred = fmt.Sprintf("%s > %s", end, target)
	case op == "gte":
		pred = fmt.Sprintf("%s >= %s", end, target)
	case op == "eq":
		pred = fmt.Sprintf("(%s >= %s AND %s < %s)", end, target, end, d.DateAdd(start, v+1))
	case op == "!eq":
		pred = fmt.Sprintf("NOT (%s >= %s AND %s < %s)", end, target, end, d.DateAdd(start, v+1))
	default:
		cq.fail(&cohorterr.InvalidExpressionError{Reason: "unsupported operator for interval range: " + op})
		return
	}
	cq.q.Where(pred)
}

func comparison(op ir.Op) (string, error) {
	switch op {
	case ir.OpLT:
		return "<", nil
	case ir.OpLTE:
		return "<=", nil
	case ir.OpEQ:
		return "=", nil
	case ir.OpNotEQ:
		return "<>", nil
	case ir.OpGT:
		return ">", nil
	case ir.OpGTE:
		return ">=", nil
	}
	return "", &cohorterr.InvalidExpressionError{Reason: fmt.Sprintf("operator %q not supported", op)}
}

// joinPerson adds the person join once.
func (cq *criterionQuery) joinPerson() {
	if cq.personJoined {
		return
	}
	cq.personJoined = true
	cq.q.Join(cq.ctx.Table("person")+" AS p", "p.person_id = t.person_id")
}

// ageFilter compares year(start) - year_of_birth under the given range.
func (cq *criterionQuery) ageFilter(startColumn string, r *ir.NumericRange) {
	if r == nil || r.Value == nil {
		return
	}
	cq.joinPerson()
	ageExpr := fmt.Sprintf("(%s - p.year_of_birth)", cq.d.YearOf("t."+startColumn))
	cq.numericRange(ageExpr, r)
}

// genderFilter joins person and applies the gender list and selection.
func (cq *criterionQuery) genderFilter(genders []ir.Concept, sel *ir.ConceptSetSelection) {
	cq.personConceptFilter("gender_concept_id", genders, sel)
}

func (cq *criterionQuery) personConceptFilter(column string, concepts []ir.Concept, sel *ir.ConceptSetSelection) {
	hasList := len(ir.ConceptIDs(concepts)) > 0
	if !hasList && (sel == nil || sel.CodesetID == nil) {
		return
	}
	cq.joinPerson()
	if hasList {
		cq.q.Where(dialect.InBigintList("p."+column, ir.ConceptIDs(concepts)))
	}
	if sel != nil && sel.CodesetID != nil {
		if sel.IsExclusion {
			cq.q.Where(cq.ctx.CodesetAntiFilter("p."+column, *sel.CodesetID))
		} else {
			cq.q.Where(cq.ctx.CodesetFilter("p."+column, *sel.CodesetID))
		}
	}
}

// joinVisit joins visit_occurrence on the row's visit id once. Used by
// domains whose visit-type filters live on the visit table.
func (cq *criterionQuery) joinVisit() {
	if cq.visitJoined {
		return
	}
	cq.visitJoined = true
	cq.q.Join(cq.ctx.Table("visit_occurrence")+" AS v", "v.visit_occurrence_id = t.visit_occurrence_id")
}

// visitFilter applies visit-kind filters through the visit join, plus an
// optional visit source concept equality.
func (cq *criterionQuery) visitFilter(visitTypes []ir.Concept, sel *ir.ConceptSetSelection, visitSource *int64) {
	hasList := len(ir.ConceptIDs(visitTypes)) > 0
	hasSel := sel != nil && sel.CodesetID != nil
	if !hasList && !hasSel && visitSource == nil {
		return
	}
	cq.joinVisit()
	if hasList {
		cq.q.Where(dialect.InBigintList("v.visit_concept_id", ir.ConceptIDs(visitTypes)))
	}
	if hasSel {
		if sel.IsExclusion {
			cq.q.Where(cq.ctx.CodesetAntiFilter("v.visit_concept_id", *sel.CodesetID))
		} else {
			cq.q.Where(cq.ctx.CodesetFilter("v.visit_concept_id", *sel.CodesetID))
		}
	}
	if visitSource != nil {
		cq.q.Where(fmt.Sprintf("v.visit_source_concept_id = %d", *visitSource))
	}
}

// providerSpecialtyFilter semi-joins provider on specialty.
func (cq *criterionQuery) providerSpecialtyFilter(concepts []ir.Concept, sel *ir.ConceptSetSelection) {
	cq.providerSpecialtyFilterOn("provider_id", concepts, sel)
}

func (cq *criterionQuery) providerSpecialtyFilterOn(providerColumn string, concepts []ir.Concept, sel *ir.ConceptSetSelection) {
	hasList := len(ir.ConceptIDs(concepts)) > 0
	hasSel := sel != nil && sel.CodesetID != nil
	if !hasList && !hasSel {
		return
	}
	sub := sqlgen.NewQuery(cq.ctx.Table("provider") + " AS pr").Select("pr.provider_id")
	if hasList {
		sub.Where(dialect.InBigintList("pr.specialty_concept_id", ir.ConceptIDs(concepts)))
	}
	if hasSel {
		if sel.IsExclusion {
			sub.Where(cq.ctx.CodesetAntiFilter("pr.specialty_concept_id", *sel.CodesetID))
		} else {
			sub.Where(cq.ctx.CodesetFilter("pr.specialty_concept_id", *sel.CodesetID))
		}
	}
	cq.q.Where(sqlgen.In("t."+providerColumn, sub.Relation()))
}

// careSiteFilter semi-joins care_site on place of service.
func (cq *criterionQuery) careSiteFilter(concepts []ir.Concept, sel *ir.ConceptSetSelection) {
	hasList := len(ir.ConceptIDs(concepts)) > 0
	hasSel := sel != nil && sel.CodesetID != nil
	if !hasList && !hasSel {
		return
	}
	sub := sqlgen.NewQuery(cq.ctx.Table("care_site") + " AS s").Select("s.care_site_id")
	if hasList {
		sub.Where(dialect.InBigintList("s.place_of_service_concept_id", ir.ConceptIDs(concepts)))
	}
	if hasSel {
		if sel.IsExclusion {
			sub.Where(cq.ctx.CodesetAntiFilter("s.place_of_service_concept_id", *sel.CodesetID))
		} else {
			sub.Where(cq.ctx.CodesetFilter("s.place_of_service_concept_id", *sel.CodesetID))
		}
	}
	cq.q.Where(sqlgen.In("t.care_site_id", sub.Relation()))
}

// locationRegionFilter constrains the row's care site to a location whose
// region concept belongs to the codeset, honoring the location history that
// covers the row's dates. Open-ended history rows carry the 2099-12-31
// sentinel.
func (cq *criterionQuery) locationRegionFilter(codesetID *int64, startCol, endCol string) {
	if codesetID == nil {
		return
	}
	d := cq.d
	sub := sqlgen.NewQuery(cq.ctx.Table("care_site")+" AS s").
		Join(cq.ctx.Table("location_history")+" AS lh",
			"lh.entity_id = s.care_site_id AND lh.domain_id = 'CARE_SITE'").
		Join(cq.ctx.Table("location")+" AS l", "l.location_id = lh.location_id").
		Select("1").
		Where(
			"s.care_site_id = t.care_site_id",
			fmt.Sprintf("t.%s >= lh.start_date", startCol),
			fmt.Sprintf("t.%s <= COALESCE(lh.end_date, %s)", endCol, d.DateLiteral("2099-12-31")),
			cq.ctx.CodesetFilter("l.region_concept_id", *codesetID),
		)
	cq.q.Where(sqlgen.Exists(sub.Relation()))
}

// userDefinedPeriod filters rows covering the literal date(s) and returns
// the select expressions to substitute for start and end.
func (cq *criterionQuery) userDefinedPeriod(startCol, endCol string, period *ir.UserDefinedPeriod) (startExpr, endExpr string) {
	startExpr, endExpr = "t."+startCol, "t."+endCol
	if period == nil {
		return startExpr, endExpr
	}
	if period.StartDate != nil {
		lit := cq.d.DateLiteral(*period.StartDate)
		cq.q.Where(
			fmt.Sprintf("t.%s <= %s", startCol, lit),
			fmt.Sprintf("t.%s >= %s", endCol, lit),
		)
		startExpr = lit
	}
	if period.EndDate != nil {
		lit := cq.d.DateLiteral(*period.EndDate)
		cq.q.Where(
			fmt.Sprintf("t.%s <= %s", startCol, lit),
			fmt.Sprintf("t.%s >= %s", endCol, lit),
		)
		endExpr = lit
	}
	return startExpr, endExpr
}

// firstEvent restricts the accumulated query to the earliest row per person
// ordered by the given start column with the primary key as tie-breaker.
// Callers place it where the domain demands: some domains take the first
// row before secondary filters, others after.
func (cq *criterionQuery) firstEvent(startCol, pkCol string) {
	cq.q.Select("t.*")
	inner := cq.q.Relation()
	ranked := sqlgen.FromRelation(inner, "b").
		Select("b.*",
			fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY b.person_id ORDER BY b.%s, b.%s) AS _first_ord", startCol, pkCol)).
		Relation()
	cq.q = sqlgen.FromRelation(ranked, "t").Where("t._first_ord = 1")
	cq.personJoined = false
	cq.visitJoined = false
}

// output finalizes a criterion query to the 5-column event schema.
type output struct {
	primaryKey string
	startExpr  string
	endExpr    string // empty when the domain reuses the start column
	hasVisit   bool
}

// finish renders the standardized event relation: end_date falls back to
// start_date plus one day when the source end is null, so downstream
// interval math always sees end >= start.
func (cq *criterionQuery) finish(out output) (sqlgen.Relation, error) {
	if cq.err != nil {
		return sqlgen.Relation{}, cq.err
	}
	d := cq.d
	startExpr := out.startExpr
	if !strings.ContainsAny(startExpr, ". '(") {
		startExpr = "t." + startExpr
	}
	var endExpr string
	if out.endExpr == "" || out.endExpr == out.startExpr {
		endExpr = startExpr
	} else {
		raw := out.endExpr
		if !strings.ContainsAny(raw, ". '(") {
			raw = "t." + raw
		}
		endExpr = fmt.Sprintf("CASE WHEN %s IS NULL THEN %s ELSE %s END",
			raw, d.DateAdd(startExpr, 1), raw)
	}
	visitExpr := d.CastBigInt("NULL")
	if out.hasVisit {
		visitExpr = d.CastBigInt("t.visit_occurrence_id")
	}
	pkExpr := out.primaryKey
	if !strings.ContainsAny(pkExpr, ". (") {
		pkExpr = "t." + pkExpr
	}
	cq.q.Select(
		d.CastBigInt("t.person_id")+" AS person_id",
		d.CastBigInt(pkExpr)+" AS event_id",
		startExpr+" AS start_date",
		endExpr+" AS end_date",
		visitExpr+" AS visit_occurrence_id",
	)
	return cq.q.Relation(), nil
}

// firstPerPerson keeps the earliest row per person ordered by
// (start_date, event_id), projecting the given columns.
func firstPerPerson(rel sqlgen.Relation, columns []string) sqlgen.Relation {
	ranked := sqlgen.FromRelation(rel, "t").
		Select("t.*",
			"ROW_NUMBER() OVER (PARTITION BY t.person_id ORDER BY t.start_date, t.event_id) AS _row_num").
		Relation()
	return sqlgen.FromRelation(ranked, "r").
		Select(prefixed("r", columns)...).
		Where("r._row_num = 1").
		Relation()
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
