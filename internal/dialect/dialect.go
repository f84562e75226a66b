// Package dialect confines backend-specific SQL text to a small adapter
// layer: identifier quoting, date arithmetic, statistics statements, and the
// handful of constructs that do not render identically everywhere.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect renders the backend-specific fragments of a relational plan.
// Implementations must be stateless; the same input always yields the same
// text so that plan construction stays deterministic.
type Dialect interface {
	// Name is the stable dialect identifier ("duckdb", "postgres", "spark",
	// "sqlite").
	Name() string

	// QuoteIdent quotes a single identifier.
	QuoteIdent(name string) string

	// DateAdd shifts a date/timestamp expression by a literal number of days.
	DateAdd(expr string, days int) string

	// DateAddExpr shifts a date/timestamp expression by a day count computed
	// from another expression (e.g. days_supply).
	DateAddExpr(expr, daysExpr string) string

	// DateDiffDays renders the whole-day difference end - start.
	DateDiffDays(start, end string) string

	// DateLiteral renders an ISO yyyy-MM-dd literal as a date value.
	DateLiteral(iso string) string

	// CastBigInt casts an expression to a 64-bit integer.
	CastBigInt(expr string) string

	// CastDate casts a timestamp expression to a date value.
	CastDate(expr string) string

	// YearOf extracts the calendar year of a date expression as an integer.
	YearOf(expr string) string

	// Greatest renders the two-argument maximum.
	Greatest(a, b string) string

	// Least renders the two-argument minimum.
	Least(a, b string) string

	// CastWideDecimal casts through a wide exact numeric. Summed indicator
	// bits pass through this before the final bigint cast so that dialects
	// which promote integer sums (Postgres promotes SUM(BIGINT) to NUMERIC)
	// keep bitwise-safe values.
	CastWideDecimal(expr string) string

	// EmptyBigintRelation renders a zero-row relation with a single bigint
	// column. Used instead of empty literal arrays, which Postgres rejects
	// without an explicit element type.
	EmptyBigintRelation(column string) string

	// AnalyzeStatement returns the statistics statement for a table, or ""
	// when the dialect has none.
	AnalyzeStatement(qualified string) string

	// SupportsTempTables reports whether session-scoped temporary tables
	// exist; when false the caller falls back to real tables in a temp
	// emulation schema.
	SupportsTempTables() bool

	// CreateTableAs renders CREATE TABLE ... AS for a rendered SELECT.
	CreateTableAs(qualified, selectSQL string, temp bool) string

	// DropTable renders the drop statement.
	DropTable(qualified string, force bool) string
}

// QualifyTable joins an optional schema and a table name with dialect
// quoting applied to each part.
func QualifyTable(d Dialect, schema, name string) string {
	if schema == "" {
		return d.QuoteIdent(name)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(name)
}

// InBigintList renders "expr IN (...)" over literal ids. The caller must
// guarantee a non-empty list; empty membership tests are expressed against
// EmptyBigintRelation instead.
func InBigintList(expr string, ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(parts, ", "))
}

// InlineBigintRelation renders a one-column relation holding the given ids.
// Rendered as a UNION ALL chain, which every supported dialect accepts, with
// the first element carrying the bigint cast. An empty list renders as the
// dialect's empty relation.
func InlineBigintRelation(d Dialect, column string, ids []int64) string {
	if len(ids) == 0 {
		return d.EmptyBigintRelation(column)
	}
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteString("\nUNION ALL\n")
			fmt.Fprintf(&b, "SELECT %d", id)
			continue
		}
		fmt.Fprintf(&b, "SELECT %s AS %s", d.CastBigInt(fmt.Sprintf("%d", id)), d.QuoteIdent(column))
	}
	return b.String()
}

// doubleQuote implements standard SQL identifier quoting: double quotes with
// internal quotes doubled.
func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ForName returns the dialect registered under the given name.
func ForName(name string) (Dialect, error) {
	switch name {
	case "duckdb":
		return DuckDB{}, nil
	case "postgres":
		return Postgres{}, nil
	case "spark", "databricks":
		return Spark{}, nil
	case "sqlite":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unknown dialect: %s", name)
}
