// Package vocab compiles authored concept sets into the codeset relation
// (codeset_id, concept_id) by traversing the OMOP vocabulary tables.
package vocab

import (
	"fmt"

	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
	"github.com/opencohort/cohortc/internal/sqlgen"
)

// Tables holds the qualified names of the vocabulary tables.
type Tables struct {
	Concept             string
	ConceptAncestor     string
	ConceptRelationship string
}

// buckets partitions one side (include or exclude) of a concept set.
type buckets struct {
	literal           []int64
	descendants       []int64
	mapped            []int64
	mappedDescendants []int64
}

func (b *buckets) add(item *ir.ConceptSetItem) {
	id := *item.Concept.ConceptID
	b.literal = append(b.literal, id)
	if item.Descendants() {
		b.descendants = append(b.descendants, id)
	}
	if item.Mapped() {
		b.mapped = append(b.mapped, id)
		if item.Descendants() {
			b.mappedDescendants = append(b.mappedDescendants, id)
		}
	}
}

func (b *buckets) empty() bool { return len(b.literal) == 0 }

// CompileCodesets builds the full codeset relation for a list of concept
// sets. Sets with no items contribute nothing; an empty input yields a
// schema-correct zero-row relation. Construction performs no IO.
func CompileCodesets(d dialect.Dialect, t Tables, sets []ir.ConceptSet) sqlgen.Relation {
	var compiled []sqlgen.Relation
	for i := range sets {
		if rel, ok := compileSingle(d, t, &sets[i]); ok {
			compiled = append(compiled, rel)
		}
	}
	if len(compiled) == 0 {
		return EmptyCodesets(d)
	}
	// Distinct across the union keeps the (codeset_id, concept_id) pair unique.
	return sqlgen.FromRelation(sqlgen.UnionAll(compiled...), "cs").
		Select("cs.codeset_id", "cs.concept_id").
		Distinct().
		Relation()
}

// EmptyCodesets renders a zero-row relation with the codeset schema.
func EmptyCodesets(d dialect.Dialect) sqlgen.Relation {
	return sqlgen.Raw(fmt.Sprintf(
		"SELECT %s AS codeset_id, %s AS concept_id WHERE 1 = 0",
		d.CastBigInt("NULL"), d.CastBigInt("NULL")))
}

func compileSingle(d dialect.Dialect, t Tables, set *ir.ConceptSet) (sqlgen.Relation, bool) {
	if set.IsEmpty() {
		return sqlgen.Relation{}, false
	}
	var include, exclude buckets
	for i := range set.Expression.Items {
		item := &set.Expression.Items[i]
		if item.Concept.ConceptID == nil {
			continue
		}
		if item.Excluded() {
			exclude.add(item)
		} else {
			include.add(item)
		}
	}
	includeRel, ok := expandSide(d, t, &include)
	if !ok {
		return sqlgen.Relation{}, false
	}
	q := sqlgen.FromRelation(includeRel, "inc").
		Select(fmt.Sprintf("%s AS codeset_id", d.CastBigInt(fmt.Sprintf("%d", set.ID))), "inc.concept_id")
	if excludeRel, hasExclude := expandSide(d, t, &exclude); hasExclude {
		// An explicit exclusion outranks any include, so the anti-join runs
		// after both sides are fully expanded.
		q.Where(sqlgen.NotIn("inc.concept_id", excludeRel))
	}
	return q.Relation(), true
}

// expandSide renders the distinct union of the literal ids, the descendant
// expansion, and the mapped expansion for one side of a set.
func expandSide(d dialect.Dialect, t Tables, b *buckets) (sqlgen.Relation, bool) {
	if b.empty() {
		return sqlgen.Relation{}, false
	}
	parts := []sqlgen.Relation{
		sqlgen.Raw(dialect.InlineBigintRelation(d, "concept_id", b.literal)),
	}
	if len(b.descendants) > 0 {
		parts = append(parts, descendantsOf(d, t, b.descendants))
	}
	if mapped, ok := mappedFrom(d, t, b); ok {
		parts = append(parts, mapped)
	}
	if len(parts) == 1 {
		return parts[0], true
	}
	return sqlgen.UnionDistinct(parts...), true
}

// descendantsOf expands ancestor ids through concept_ancestor, keeping only
// valid concepts.
func descendantsOf(d dialect.Dialect, t Tables, ancestorIDs []int64) sqlgen.Relation {
	return sqlgen.NewQuery(t.ConceptAncestor + " AS ca").
		Join(t.Concept+" AS c", "ca.descendant_concept_id = c.concept_id").
		Where(
			dialect.InBigintList("ca.ancestor_concept_id", ancestorIDs),
			"c.invalid_reason IS NULL",
		).
		Select(d.CastBigInt("c.concept_id") + " AS concept_id").
		Distinct().
		Relation()
}

// mappedFrom projects source concepts onto their standard forms through the
// active "Maps to" relationships. The source side is the union of the
// literal mapped ids and, where requested, their descendants.
func mappedFrom(d dialect.Dialect, t Tables, b *buckets) (sqlgen.Relation, bool) {
	if len(b.mapped) == 0 {
		return sqlgen.Relation{}, false
	}
	sources := []sqlgen.Relation{
		sqlgen.Raw(dialect.InlineBigintRelation(d, "concept_id", b.mapped)),
	}
	if len(b.mappedDescendants) > 0 {
		sources = append(sources, descendantsOf(d, t, b.mappedDescendants))
	}
	sourceRel := sources[0]
	if len(sources) > 1 {
		sourceRel = sqlgen.UnionDistinct(sources...)
	}
	return sqlgen.FromRelation(sourceRel, "src").
		Join(t.ConceptRelationship+" AS cr", "cr.concept_id_2 = src.concept_id").
		Where(
			"cr.relationship_id = 'Maps to'",
			"cr.invalid_reason IS NULL",
		).
		Select(d.CastBigInt("cr.concept_id_1") + " AS concept_id").
		Distinct().
		Relation(), true
}
