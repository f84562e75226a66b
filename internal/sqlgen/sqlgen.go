// Package sqlgen composes relational plans as SQL text. A Relation is a
// complete SELECT statement; Query is the builder used to assemble one from
// a FROM item, joins, predicates, and window/aggregate projections.
//
// Rendering is eager and purely textual: given the same inputs the output is
// byte-identical, which is what makes plan construction deterministic per
// dialect. Anything dialect-specific is delegated to the dialect package.
package sqlgen

import "strings"

// Relation is a composed SELECT statement. The zero value is invalid; use
// Raw or Query.Relation.
type Relation struct {
	sql string
}

// Raw wraps an already-rendered SELECT statement.
func Raw(sql string) Relation { return Relation{sql: sql} }

// SQL returns the rendered SELECT.
func (r Relation) SQL() string { return r.sql }

// IsZero reports whether the relation is unset.
func (r Relation) IsZero() bool { return r.sql == "" }

// Sub renders the relation as a parenthesized FROM item with an alias.
func (r Relation) Sub(alias string) string {
	return "(\n" + indent(r.sql, "  ") + "\n) AS " + alias
}

// Query assembles a single SELECT. Fields are rendered in the conventional
// clause order; join and predicate order is preserved as added.
type Query struct {
	distinct bool
	selects  []string
	from     string
	joins    []string
	wheres   []string
	groupBys []string
	havings  []string
	orderBys []string
	limit    string
}

// NewQuery starts a query over the given FROM item (a qualified table name
// with alias, or a Relation.Sub rendering).
func NewQuery(from string) *Query {
	return &Query{from: from}
}

// FromRelation starts a query over a subquery aliased as alias.
func FromRelation(r Relation, alias string) *Query {
	return &Query{from: r.Sub(alias)}
}

// Select appends projection items. If none are added the query renders
// SELECT *.
func (q *Query) Select(items ...string) *Query {
	q.selects = append(q.selects, items...)
	return q
}

// Distinct marks the projection DISTINCT.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// Join appends an inner join clause ("JOIN x AS a ON ...").
func (q *Query) Join(table, on string) *Query {
	q.joins = append(q.joins, "JOIN "+table+" ON "+on)
	return q
}

// LeftJoin appends a left outer join clause.
func (q *Query) LeftJoin(table, on string) *Query {
	q.joins = append(q.joins, "LEFT JOIN "+table+" ON "+on)
	return q
}

// Where appends predicates, combined with AND.
func (q *Query) Where(preds ...string) *Query {
	q.wheres = append(q.wheres, preds...)
	return q
}

// GroupBy appends grouping keys.
func (q *Query) GroupBy(keys ...string) *Query {
	q.groupBys = append(q.groupBys, keys...)
	return q
}

// Having appends aggregate predicates, combined with AND.
func (q *Query) Having(preds ...string) *Query {
	q.havings = append(q.havings, preds...)
	return q
}

// OrderBy appends ordering keys.
func (q *Query) OrderBy(keys ...string) *Query {
	q.orderBys = append(q.orderBys, keys...)
	return q
}

// Limit sets a literal LIMIT clause.
func (q *Query) Limit(n string) *Query {
	q.limit = n
	return q
}

// Relation renders the query.
func (q *Query) Relation() Relation {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.selects) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.selects, ",\n       "))
	}
	b.WriteString("\nFROM ")
	b.WriteString(q.from)
	for _, j := range q.joins {
		b.WriteString("\n")
		b.WriteString(j)
	}
	if len(q.wheres) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(q.wheres, "\n  AND "))
	}
	if len(q.groupBys) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(q.groupBys, ", "))
	}
	if len(q.havings) > 0 {
		b.WriteString("\nHAVING ")
		b.WriteString(strings.Join(q.havings, "\n  AND "))
	}
	if len(q.orderBys) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(q.orderBys, ", "))
	}
	if q.limit != "" {
		b.WriteString("\nLIMIT ")
		b.WriteString(q.limit)
	}
	return Relation{sql: b.String()}
}

// UnionAll chains relations with UNION ALL. Panics on an empty slice; callers
// decide how to represent empty unions.
func UnionAll(rels ...Relation) Relation {
	return unionWith("UNION ALL", rels)
}

// UnionDistinct chains relations with UNION (set semantics).
func UnionDistinct(rels ...Relation) Relation {
	return unionWith("UNION", rels)
}

func unionWith(op string, rels []Relation) Relation {
	if len(rels) == 0 {
		panic("sqlgen: union of zero relations")
	}
	if len(rels) == 1 {
		return rels[0]
	}
	parts := make([]string, len(rels))
	for i, r := range rels {
		parts[i] = r.sql
	}
	return Relation{sql: strings.Join(parts, "\n"+op+"\n")}
}

// Exists renders an EXISTS predicate over a relation.
func Exists(r Relation) string {
	return "EXISTS (\n" + indent(r.sql, "  ") + "\n)"
}

// NotExists renders a NOT EXISTS predicate over a relation.
func NotExists(r Relation) string {
	return "NOT EXISTS (\n" + indent(r.sql, "  ") + "\n)"
}

// In renders "expr IN (subquery)".
func In(expr string, r Relation) string {
	return expr + " IN (\n" + indent(r.sql, "  ") + "\n)"
}

// NotIn renders "expr NOT IN (subquery)".
func NotIn(expr string, r Relation) string {
	return expr + " NOT IN (\n" + indent(r.sql, "  ") + "\n)"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
