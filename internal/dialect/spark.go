package dialect

import (
	"fmt"
	"strings"
)

// Spark targets Databricks SQL and open-source Spark 3.x. Spark has no
// session temporary tables that survive a CTAS round trip, so staging slices
// always land in the temp emulation schema.
type Spark struct{}

func (Spark) Name() string { return "spark" }

func (Spark) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (Spark) DateAdd(expr string, days int) string {
	if days == 0 {
		return expr
	}
	return fmt.Sprintf("(%s + INTERVAL '%d' DAY)", expr, days)
}

func (Spark) DateAddExpr(expr, daysExpr string) string {
	return fmt.Sprintf("(%s + MAKE_INTERVAL(0, 0, 0, CAST(%s AS INT), 0, 0, 0))", expr, daysExpr)
}

func (Spark) DateDiffDays(start, end string) string {
	return fmt.Sprintf("DATEDIFF(%s, %s)", end, start)
}

func (Spark) DateLiteral(iso string) string {
	return fmt.Sprintf("DATE '%s'", iso)
}

func (Spark) CastBigInt(expr string) string {
	return fmt.Sprintf("CAST(%s AS BIGINT)", expr)
}

func (Spark) CastDate(expr string) string {
	return fmt.Sprintf("CAST(%s AS DATE)", expr)
}

func (Spark) YearOf(expr string) string {
	return fmt.Sprintf("CAST(YEAR(%s) AS BIGINT)", expr)
}

func (Spark) Greatest(a, b string) string {
	return fmt.Sprintf("GREATEST(%s, %s)", a, b)
}

func (Spark) Least(a, b string) string {
	return fmt.Sprintf("LEAST(%s, %s)", a, b)
}

func (Spark) CastWideDecimal(expr string) string {
	return fmt.Sprintf("CAST(%s AS DECIMAL(38,0))", expr)
}

func (Spark) EmptyBigintRelation(column string) string {
	return fmt.Sprintf("SELECT CAST(NULL AS BIGINT) AS `%s` WHERE 1 = 0", column)
}

func (Spark) AnalyzeStatement(qualified string) string {
	return "ANALYZE TABLE " + qualified + " COMPUTE STATISTICS"
}

func (Spark) SupportsTempTables() bool { return false }

func (Spark) CreateTableAs(qualified, selectSQL string, temp bool) string {
	// temp is ignored; callers route temporaries through the emulation schema.
	return fmt.Sprintf("CREATE TABLE %s AS\n%s", qualified, selectSQL)
}

func (Spark) DropTable(qualified string, force bool) string {
	if force {
		return "DROP TABLE IF EXISTS " + qualified
	}
	return "DROP TABLE " + qualified
}
