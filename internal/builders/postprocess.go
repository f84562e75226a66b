package builders

import (
	"context"
	"fmt"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// applyInclusionRules keeps events that satisfy every rule. Each rule's
// surviving (person_id, event_id) pairs get the rule's bit; the per-event
// bitmask must equal the full mask. Bit sums pass through the dialect's wide
// decimal cast before the bigint cast so no backend promotes them away from
// an exact integer.
func applyInclusionRules(gctx context.Context, events sqlgen.Relation, index indexRelation, rules []ir.InclusionRule, ctx *build.Context) (sqlgen.Relation, error) {
	d := ctx.Dialect()
	var hits []sqlgen.Relation
	for i := range rules {
		filtered := events
		if !rules[i].Expression.IsEmpty() {
			var err error
			filtered, err = ApplyCriteriaGroup(gctx, events, index, rules[i].Expression, ctx)
			if err != nil {
				return sqlgen.Relation{}, err
			}
		}
		bit := int64(1) << uint(i)
		hits = append(hits, sqlgen.FromRelation(filtered, "f").
			Select("f.person_id", "f.event_id",
				d.CastBigInt(fmt.Sprintf("%d", bit))+" AS _rule_bit").
			Distinct().
			Relation())
	}
	union, err := ctx.MaybeMaterialize(gctx, sqlgen.UnionAll(hits...), "inclusion_hits")
	if err != nil {
		return sqlgen.Relation{}, err
	}

	target := (int64(1) << uint(len(rules))) - 1
	mask := sqlgen.FromRelation(union, "u").
		Select("u.person_id", "u.event_id",
			d.CastBigInt(d.CastWideDecimal("SUM(u._rule_bit)"))+" AS _rule_mask").
		GroupBy("u.person_id", "u.event_id").
		Relation()
	passing := sqlgen.FromRelation(mask, "m").
		Select("m.person_id", "m.event_id").
		Where(fmt.Sprintf("m._rule_mask = %d", target)).
		Relation()

	return sqlgen.FromRelation(events, "e").
		Join(passing.Sub("ok"), "ok.person_id = e.person_id AND ok.event_id = e.event_id").
		Select(prefixed("e", index.columns())...).
		Relation(), nil
}

// applyCensoring shortens each event at the earliest matching censor event
// that starts on or after the event's start date.
func applyCensoring(gctx context.Context, events sqlgen.Relation, cols []string, criteria []ir.CriterionEnvelope, ctx *build.Context) (sqlgen.Relation, error) {
	var censorParts []sqlgen.Relation
	for i := range criteria {
		if criteria[i].Criterion == nil {
			continue
		}
		rel, err := Build(gctx, criteria[i].Criterion, ctx)
		if err != nil {
			return sqlgen.Relation{}, err
		}
		censorParts = append(censorParts, sqlgen.FromRelation(rel, "cc").
			Select("cc.person_id", "cc.start_date AS censor_start").
			Relation())
	}
	if len(censorParts) == 0 {
		return events, nil
	}
	censor := sqlgen.UnionDistinct(censorParts...)

	mins := sqlgen.FromRelation(events, "e").
		Join(censor.Sub("ce"),
			"ce.person_id = e.person_id AND ce.censor_start >= e.start_date").
		Select("e.person_id", "e.event_id", "MIN(ce.censor_start) AS _censor_date").
		GroupBy("e.person_id", "e.event_id").
		Relation()

	selects := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "end_date" {
			selects = append(selects,
				"CASE WHEN m._censor_date IS NOT NULL AND m._censor_date < e.end_date THEN m._censor_date ELSE e.end_date END AS end_date")
			continue
		}
		selects = append(selects, "e."+c)
	}
	return sqlgen.FromRelation(events, "e").
		LeftJoin(mins.Sub("m"), "m.person_id = e.person_id AND m.event_id = e.event_id").
		Select(selects...).
		Relation(), nil
}

// applyEndStrategy computes the final end date. Without a strategy the event
// runs to the end of its containing observation period; a date-offset
// strategy replaces the chosen endpoint clamped by the period bound; a
// custom era strategy snaps the end to the surrounding drug era.
func applyEndStrategy(events sqlgen.Relation, cols []string, strategy *ir.EndStrategy, hasOP bool, ctx *build.Context) sqlgen.Relation {
	d := ctx.Dialect()
	if strategy.IsEmpty() {
		if !hasOP {
			return events
		}
		return replaceColumn(events, cols, "end_date", "e."+colOPEnd)
	}
	result := events
	if strategy.CustomEra != nil {
		result = applyCustomEra(result, cols, strategy.CustomEra, ctx)
	}
	if off := strategy.DateOffset; off != nil {
		if off.DateField == ir.DateFieldStart {
			shifted := d.DateAdd("e.start_date", off.Offset)
			if hasOP {
				shifted = d.Greatest(shifted, "e."+colOPStart)
			}
			result = replaceColumn(result, cols, "start_date", shifted)
		} else {
			shifted := d.DateAdd("e.end_date", off.Offset)
			if hasOP {
				shifted = d.Least(shifted, "e."+colOPEnd)
			}
			result = replaceColumn(result, cols, "end_date", shifted)
		}
	}
	return result
}

// replaceColumn projects the same columns with one expression substituted.
func replaceColumn(rel sqlgen.Relation, cols []string, column, expr string) sqlgen.Relation {
	selects := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == column {
			selects = append(selects, expr+" AS "+column)
			continue
		}
		selects = append(selects, "e."+c)
	}
	return sqlgen.FromRelation(rel, "e").Select(selects...).Relation()
}

// applyCustomEra builds drug eras for the cohort's persons from exposures
// matching the strategy's codeset and snaps each event's end date to the
// containing era.
func applyCustomEra(events sqlgen.Relation, cols []string, strategy *ir.CustomEraStrategy, ctx *build.Context) sqlgen.Relation {
	d := ctx.Dialect()
	persons := sqlgen.FromRelation(events, "pe").
		Select("pe.person_id").
		Distinct().
		Relation()

	endExpr := func() string {
		start := "de.drug_exposure_start_date"
		if strategy.DaysSupplyOverride != nil {
			return d.DateAdd(start, *strategy.DaysSupplyOverride)
		}
		return fmt.Sprintf("COALESCE(de.drug_exposure_end_date, %s, %s)",
			d.DateAddExpr(start, d.CastBigInt("de.days_supply")),
			d.DateAdd(start, 1))
	}()

	exposure := func(conceptColumn string) sqlgen.Relation {
		return sqlgen.NewQuery(ctx.Table("drug_exposure")+" AS de").
			Join(persons.Sub("pe"), "pe.person_id = de.person_id").
			Select(
				"de.person_id",
				"de.drug_exposure_start_date AS start_date",
				endExpr+" AS end_date",
			).
			Where(ctx.CodesetFilter("de."+conceptColumn, *strategy.DrugCodesetID)).
			Relation()
	}
	exposures := sqlgen.UnionAll(exposure("drug_concept_id"), exposure("drug_source_concept_id"))

	gap := strategy.GapDays
	extended := sqlgen.FromRelation(exposures, "x").
		Select("x.person_id", "x.start_date",
			d.DateAdd("x.end_date", gap+strategy.Offset)+" AS _extended_end").
		Relation()
	flagged := sqlgen.FromRelation(extended, "g").
		Select("g.*",
			"CASE WHEN MAX(g._extended_end) OVER (PARTITION BY g.person_id ORDER BY g.start_date, g._extended_end ROWS BETWEEN UNBOUNDED PRECEDING AND 1 PRECEDING) >= g.start_date THEN 0 ELSE 1 END AS _is_start").
		Relation()
	numbered := sqlgen.FromRelation(flagged, "h").
		Select("h.*",
			"SUM(h._is_start) OVER (PARTITION BY h.person_id ORDER BY h.start_date, h._extended_end ROWS UNBOUNDED PRECEDING) AS _era_id").
		Relation()
	eras := sqlgen.FromRelation(numbered, "n").
		Select(
			"n.person_id",
			"MIN(n.start_date) AS era_start",
			d.DateAdd("MAX(n._extended_end)", -gap)+" AS era_end",
		).
		GroupBy("n.person_id", "n._era_id").
		Relation()

	selects := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "end_date" {
			selects = append(selects, "er.era_end AS end_date")
			continue
		}
		selects = append(selects, "e."+c)
	}
	return sqlgen.FromRelation(events, "e").
		Join(eras.Sub("er"),
			"er.person_id = e.person_id AND e.start_date >= er.era_start AND e.start_date <= er.era_end").
		Select(selects...).
		Relation()
}

// applyCensorWindow clamps events into the absolute window and drops rows
// the clamp inverts.
func applyCensorWindow(events sqlgen.Relation, cols []string, window *ir.Period, ctx *build.Context) sqlgen.Relation {
	if window == nil || (window.StartDate == nil && window.EndDate == nil) {
		return events
	}
	d := ctx.Dialect()
	selects := make([]string, 0, len(cols))
	for _, c := range cols {
		switch {
		case c == "start_date" && window.StartDate != nil:
			selects = append(selects,
				d.Greatest("e.start_date", d.DateLiteral(*window.StartDate))+" AS start_date")
		case c == "end_date" && window.EndDate != nil:
			selects = append(selects,
				d.Least("e.end_date", d.DateLiteral(*window.EndDate))+" AS end_date")
		default:
			selects = append(selects, "e."+c)
		}
	}
	clamped := sqlgen.FromRelation(events, "e").Select(selects...).Relation()
	return sqlgen.FromRelation(clamped, "e").
		Select(prefixed("e", cols)...).
		Where("e.start_date <= e.end_date").
		Relation()
}
