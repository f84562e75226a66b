package builders

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/cohorterr"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// auxiliary column names threaded through the pipeline and projected out at
// the end.
const (
	colSourceEventID = "_source_event_id"
	colPersonOrdinal = "_person_ordinal"
	colOPStart       = "observation_period_start_date"
	colOPEnd         = "observation_period_end_date"
)

// BuildCohort compiles the full pipeline for an expression and returns the
// final event relation. Staging happens through the context according to its
// materialization options.
func BuildCohort(gctx context.Context, expr *ir.CohortExpression, ctx *build.Context) (sqlgen.Relation, error) {
	if err := expr.Validate(); err != nil {
		return sqlgen.Relation{}, err
	}
	primary := expr.PrimaryCriteria

	// Union of the primary criteria, each tagged with its source row id.
	var parts []sqlgen.Relation
	for i := range primary.CriteriaList {
		rel, err := Build(gctx, primary.CriteriaList[i].Criterion, ctx)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		parts = append(parts, sqlgen.FromRelation(rel, "b").
			Select(append(prefixed("b", EventColumns), "b.event_id AS "+colSourceEventID)...).
			Relation())
	}
	if len(parts) == 0 {
		return sqlgen.Relation{}, &cohorterr.InvalidExpressionError{Reason: "primary criteria produced no builders"}
	}
	events := sqlgen.UnionAll(parts...)
	cols := append(append([]string{}, EventColumns...), colSourceEventID)

	index := indexRelation{}
	if primary.ObservationWindow != nil {
		events = applyObservationWindow(events, cols, primary.ObservationWindow, ctx)
		cols = append(cols, colOPStart, colOPEnd)
		index.HasOP = true
	}

	events = assignEventIDs(ctx, events, cols)
	cols = append(cols, colPersonOrdinal)
	index.Columns = cols

	if primary.PrimaryLimit.IsFirst() {
		events = sqlgen.FromRelation(events, "r").
			Select(prefixed("r", cols)...).
			Where("r." + colPersonOrdinal + " = 1").
			Relation()
	}

	events, err := ctx.MaybeMaterialize(gctx, events, "primary_events")
	if err != nil {
		return sqlgen.Relation{}, err
	}

	// With the primary slice staged, an empty cohort can skip the rest of
	// the pipeline outright.
	if ctx.ShouldMaterializeStages() {
		n, err := ctx.Count(gctx, events)
		if err == nil && n == 0 {
			return emptyEvents(ctx), nil
		}
	}

	if !expr.AdditionalCriteria.IsEmpty() {
		events, err = ApplyCriteriaGroup(gctx, events, index, expr.AdditionalCriteria, ctx)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		events, err = ctx.MaybeMaterialize(gctx, events, "additional_criteria")
		if err != nil {
			return sqlgen.Relation{}, err
		}
	}

	if len(expr.InclusionRules) > 0 {
		events, err = applyInclusionRules(gctx, events, index, expr.InclusionRules, ctx)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		events, err = ctx.MaybeMaterialize(gctx, events, "inclusion")
		if err != nil {
			return sqlgen.Relation{}, err
		}
	}
	// QualifiedLimit is deliberately not applied, for parity with the
	// reference engine.

	if len(expr.CensoringCriteria) > 0 {
		events, err = applyCensoring(gctx, events, cols, expr.CensoringCriteria, ctx)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		events, err = ctx.MaybeMaterialize(gctx, events, "censoring")
		if err != nil {
			return sqlgen.Relation{}, err
		}
	}

	if expr.ExpressionLimit.IsFirst() {
		events = firstPerPerson(events, cols)
	}

	events = applyEndStrategy(events, cols, expr.EndStrategy, index.HasOP, ctx)
	if !expr.EndStrategy.IsEmpty() {
		events, err = ctx.MaybeMaterialize(gctx, events, "strategy_ends")
		if err != nil {
			return sqlgen.Relation{}, err
		}
	}

	events = applyCensorWindow(events, cols, expr.CensorWindow, ctx)

	// Project out the auxiliary columns before the final collapse.
	events = sqlgen.FromRelation(events, "e").
		Select(prefixed("e", EventColumns)...).
		Relation()

	if expr.CollapseSettings != nil && expr.CollapseSettings.CollapseType == ir.CollapseERA {
		events = CollapseEvents(events, expr.CollapseSettings.EraPad, ctx)
		events, err = ctx.MaybeMaterialize(gctx, events, "final_cohort")
		if err != nil {
			return sqlgen.Relation{}, err
		}
	}
	return events, nil
}

// emptyEvents renders a zero-row relation with the event schema.
func emptyEvents(ctx *build.Context) sqlgen.Relation {
	d := ctx.Dialect()
	return sqlgen.Raw(fmt.Sprintf(
		"SELECT %s AS person_id, %s AS event_id, %s AS start_date, %s AS end_date, %s AS visit_occurrence_id WHERE 1 = 0",
		d.CastBigInt("NULL"), d.CastBigInt("NULL"), d.CastDate("NULL"), d.CastDate("NULL"), d.CastBigInt("NULL")))
}

// applyObservationWindow joins each event to a containing observation period
// with the required prior and post margins, keeping the period bounds as
// auxiliary columns for later stages.
func applyObservationWindow(events sqlgen.Relation, cols []string, window *ir.ObservationFilter, ctx *build.Context) sqlgen.Relation {
	d := ctx.Dialect()
	lower := d.DateAdd("op."+colOPStart, window.PriorDays)
	upper := d.DateAdd("op."+colOPEnd, -window.PostDays)
	return sqlgen.FromRelation(events, "e").
		Join(ctx.Table("observation_period")+" AS op", "op.person_id = e.person_id").
		Select(append(prefixed("e", cols), "op."+colOPStart, "op."+colOPEnd)...).
		Where(
			fmt.Sprintf("e.start_date >= %s", lower),
			fmt.Sprintf("e.start_date <= %s", upper),
		).
		Relation()
}

// assignEventIDs computes the per-person ordinal and the deterministic
// global event id. The global id composes a per-person rank with a running
// offset over per-person counts, so no stage windows over a single
// unpartitioned partition.
func assignEventIDs(ctx *build.Context, events sqlgen.Relation, cols []string) sqlgen.Relation {
	d := ctx.Dialect()
	ranked := sqlgen.FromRelation(events, "r").
		Select("r.*",
			fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY r.person_id ORDER BY r.start_date, r.%s) AS %s",
				colSourceEventID, colPersonOrdinal)).
		Relation()
	counts := sqlgen.FromRelation(events, "p").
		Select("p.person_id", "COUNT(*) AS _person_total").
		GroupBy("p.person_id").
		Relation()
	offsets := sqlgen.FromRelation(counts, "pc").
		Select("pc.person_id",
			"COALESCE(SUM(pc._person_total) OVER (ORDER BY pc.person_id ROWS BETWEEN UNBOUNDED PRECEDING AND 1 PRECEDING), 0) AS _person_offset").
		Relation()

	selects := []string{"r.person_id"}
	selects = append(selects,
		d.CastBigInt("o._person_offset + r."+colPersonOrdinal)+" AS event_id")
	for _, c := range cols {
		if c == "person_id" || c == "event_id" {
			continue
		}
		selects = append(selects, "r."+c)
	}
	selects = append(selects, d.CastBigInt("r."+colPersonOrdinal)+" AS "+colPersonOrdinal)
	return sqlgen.FromRelation(ranked, "r").
		Join(offsets.Sub("o"), "o.person_id = r.person_id").
		Select(selects...).
		Relation()
}

// CollapseEvents merges per-person events whose padded intervals touch,
// renumbering event ids densely afterwards.
func CollapseEvents(events sqlgen.Relation, eraPad int, ctx *build.Context) sqlgen.Relation {
	d := ctx.Dialect()
	padded := sqlgen.FromRelation(events, "f").
		Select("f.*", d.DateAdd("f.end_date", eraPad)+" AS _extended_end").
		Relation()
	flagged := sqlgen.FromRelation(padded, "g").
		Select("g.*",
			"CASE WHEN MAX(g._extended_end) OVER (PARTITION BY g.person_id ORDER BY g.start_date, g.end_date, g.event_id ROWS BETWEEN UNBOUNDED PRECEDING AND 1 PRECEDING) >= g.start_date THEN 0 ELSE 1 END AS _is_start").
		Relation()
	numbered := sqlgen.FromRelation(flagged, "h").
		Select("h.*",
			"SUM(h._is_start) OVER (PARTITION BY h.person_id ORDER BY h.start_date, h._is_start DESC, h.end_date, h.event_id ROWS UNBOUNDED PRECEDING) AS _era_id").
		Relation()
	collapsed := sqlgen.FromRelation(numbered, "n").
		Select(
			"n.person_id",
			"MIN(n.start_date) AS start_date",
			d.DateAdd("MAX(n._extended_end)", -eraPad)+" AS end_date",
			"MAX(n.visit_occurrence_id) AS visit_occurrence_id",
		).
		GroupBy("n.person_id", "n._era_id").
		Relation()
	return sequentialEventIDs(ctx, collapsed,
		[]string{"start_date", "end_date"},
		[]string{"person_id", "start_date", "end_date", "visit_occurrence_id"})
}

// sequentialEventIDs assigns a dense 1-based global event id ordered by
// (person_id, orderBy...) using the same composed-rank construction as
// assignEventIDs.
func sequentialEventIDs(ctx *build.Context, rel sqlgen.Relation, orderBy, passCols []string) sqlgen.Relation {
	d := ctx.Dialect()
	order := make([]string, len(orderBy))
	for i, c := range orderBy {
		order[i] = "r." + c
	}
	ranked := sqlgen.FromRelation(rel, "r").
		Select("r.*",
			fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY r.person_id ORDER BY %s) AS _seq", strings.Join(order, ", "))).
		Relation()
	counts := sqlgen.FromRelation(rel, "p").
		Select("p.person_id", "COUNT(*) AS _person_total").
		GroupBy("p.person_id").
		Relation()
	offsets := sqlgen.FromRelation(counts, "pc").
		Select("pc.person_id",
			"COALESCE(SUM(pc._person_total) OVER (ORDER BY pc.person_id ROWS BETWEEN UNBOUNDED PRECEDING AND 1 PRECEDING), 0) AS _person_offset").
		Relation()
	selects := []string{}
	for _, c := range passCols {
		if c == "event_id" {
			continue
		}
		selects = append(selects, "r."+c)
		if c == "person_id" {
			selects = append(selects, d.CastBigInt("o._person_offset + r._seq")+" AS event_id")
		}
	}
	return sqlgen.FromRelation(ranked, "r").
		Join(offsets.Sub("o"), "o.person_id = r.person_id").
		Select(selects...).
		Relation()
}
