package dialect

import "fmt"

// SQLite backs hermetic local runs and the test suite. Dates are stored in
// ISO-8601 text; arithmetic goes through the date/julianday builtins.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdent(name string) string { return doubleQuote(name) }

func (SQLite) DateAdd(expr string, days int) string {
	if days == 0 {
		return expr
	}
	return fmt.Sprintf("DATETIME(%s, '%+d days')", expr, days)
}

func (SQLite) DateAddExpr(expr, daysExpr string) string {
	return fmt.Sprintf("DATETIME(%s, '+' || CAST(%s AS TEXT) || ' days')", expr, daysExpr)
}

func (SQLite) DateDiffDays(start, end string) string {
	return fmt.Sprintf("CAST(JULIANDAY(DATE(%s)) - JULIANDAY(DATE(%s)) AS INTEGER)", end, start)
}

func (SQLite) DateLiteral(iso string) string {
	return fmt.Sprintf("DATETIME('%s')", iso)
}

func (SQLite) CastBigInt(expr string) string {
	return fmt.Sprintf("CAST(%s AS INTEGER)", expr)
}

func (SQLite) CastDate(expr string) string {
	return fmt.Sprintf("DATE(%s)", expr)
}

func (SQLite) YearOf(expr string) string {
	return fmt.Sprintf("CAST(STRFTIME('%%Y', %s) AS INTEGER)", expr)
}

func (SQLite) Greatest(a, b string) string {
	return fmt.Sprintf("MAX(%s, %s)", a, b)
}

func (SQLite) Least(a, b string) string {
	return fmt.Sprintf("MIN(%s, %s)", a, b)
}

func (SQLite) CastWideDecimal(expr string) string {
	// SQLite integers are already 64-bit and sums never promote.
	return expr
}

func (SQLite) EmptyBigintRelation(column string) string {
	return fmt.Sprintf("SELECT CAST(NULL AS INTEGER) AS %s WHERE 1 = 0", doubleQuote(column))
}

func (SQLite) AnalyzeStatement(qualified string) string {
	return "ANALYZE " + qualified
}

func (SQLite) SupportsTempTables() bool { return true }

func (SQLite) CreateTableAs(qualified, selectSQL string, temp bool) string {
	kw := "TABLE"
	if temp {
		kw = "TEMPORARY TABLE"
	}
	return fmt.Sprintf("CREATE %s %s AS\n%s", kw, qualified, selectSQL)
}

func (SQLite) DropTable(qualified string, force bool) string {
	if force {
		return "DROP TABLE IF EXISTS " + qualified
	}
	return "DROP TABLE " + qualified
}
