package dialect

import "fmt"

// Postgres targets PostgreSQL 12+.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(name string) string { return doubleQuote(name) }

func (Postgres) DateAdd(expr string, days int) string {
	if days == 0 {
		return expr
	}
	return fmt.Sprintf("(%s + (%d) * INTERVAL '1 day')", expr, days)
}

func (Postgres) DateAddExpr(expr, daysExpr string) string {
	return fmt.Sprintf("(%s + (%s) * INTERVAL '1 day')", expr, daysExpr)
}

func (Postgres) DateDiffDays(start, end string) string {
	return fmt.Sprintf("(CAST(%s AS DATE) - CAST(%s AS DATE))", end, start)
}

func (Postgres) DateLiteral(iso string) string {
	return fmt.Sprintf("DATE '%s'", iso)
}

func (Postgres) CastBigInt(expr string) string {
	return fmt.Sprintf("CAST(%s AS BIGINT)", expr)
}

func (Postgres) CastDate(expr string) string {
	return fmt.Sprintf("CAST(%s AS DATE)", expr)
}

func (Postgres) YearOf(expr string) string {
	return fmt.Sprintf("CAST(EXTRACT(YEAR FROM %s) AS BIGINT)", expr)
}

func (Postgres) Greatest(a, b string) string {
	return fmt.Sprintf("GREATEST(%s, %s)", a, b)
}

func (Postgres) Least(a, b string) string {
	return fmt.Sprintf("LEAST(%s, %s)", a, b)
}

func (Postgres) CastWideDecimal(expr string) string {
	return fmt.Sprintf("CAST(%s AS NUMERIC(38,0))", expr)
}

func (Postgres) EmptyBigintRelation(column string) string {
	return fmt.Sprintf("SELECT CAST(NULL AS BIGINT) AS %s WHERE 1 = 0", doubleQuote(column))
}

func (Postgres) AnalyzeStatement(qualified string) string {
	return "ANALYZE " + qualified
}

func (Postgres) SupportsTempTables() bool { return true }

func (Postgres) CreateTableAs(qualified, selectSQL string, temp bool) string {
	kw := "TABLE"
	if temp {
		kw = "TEMPORARY TABLE"
	}
	return fmt.Sprintf("CREATE %s %s AS\n%s", kw, qualified, selectSQL)
}

func (Postgres) DropTable(qualified string, force bool) string {
	if force {
		return "DROP TABLE IF EXISTS " + qualified
	}
	return "DROP TABLE " + qualified
}
