package dialect

import "fmt"

// DuckDB is the dialect used for local and in-memory builds.
type DuckDB struct{}

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) QuoteIdent(name string) string { return doubleQuote(name) }

func (DuckDB) DateAdd(expr string, days int) string {
	if days == 0 {
		return expr
	}
	return fmt.Sprintf("(%s + INTERVAL (%d) DAY)", expr, days)
}

func (DuckDB) DateAddExpr(expr, daysExpr string) string {
	return fmt.Sprintf("(%s + INTERVAL (%s) DAY)", expr, daysExpr)
}

func (DuckDB) DateDiffDays(start, end string) string {
	return fmt.Sprintf("DATE_DIFF('day', %s, %s)", start, end)
}

func (DuckDB) DateLiteral(iso string) string {
	return fmt.Sprintf("DATE '%s'", iso)
}

func (DuckDB) CastBigInt(expr string) string {
	return fmt.Sprintf("CAST(%s AS BIGINT)", expr)
}

func (DuckDB) CastDate(expr string) string {
	return fmt.Sprintf("CAST(%s AS DATE)", expr)
}

func (DuckDB) YearOf(expr string) string {
	return fmt.Sprintf("CAST(EXTRACT(YEAR FROM %s) AS BIGINT)", expr)
}

func (DuckDB) Greatest(a, b string) string {
	return fmt.Sprintf("GREATEST(%s, %s)", a, b)
}

func (DuckDB) Least(a, b string) string {
	return fmt.Sprintf("LEAST(%s, %s)", a, b)
}

func (DuckDB) CastWideDecimal(expr string) string {
	return fmt.Sprintf("CAST(%s AS DECIMAL(38,0))", expr)
}

func (DuckDB) EmptyBigintRelation(column string) string {
	return fmt.Sprintf("SELECT CAST(NULL AS BIGINT) AS %s WHERE 1 = 0", doubleQuote(column))
}

func (DuckDB) AnalyzeStatement(qualified string) string {
	return "ANALYZE " + qualified
}

func (DuckDB) SupportsTempTables() bool { return true }

func (DuckDB) CreateTableAs(qualified, selectSQL string, temp bool) string {
	kw := "TABLE"
	if temp {
		kw = "TEMPORARY TABLE"
	}
	return fmt.Sprintf("CREATE %s %s AS\n%s", kw, qualified, selectSQL)
}

func (DuckDB) DropTable(qualified string, force bool) string {
	if force {
		return "DROP TABLE IF EXISTS " + qualified
	}
	return "DROP TABLE " + qualified
}
