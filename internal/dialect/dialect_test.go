package dialect

import (
	"strings"
	"testing"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		d    Dialect
		in   string
		want string
	}{
		{DuckDB{}, "person", `"person"`},
		{Postgres{}, `odd"name`, `"odd""name"`},
		{SQLite{}, "cohort", `"cohort"`},
		{Spark{}, "person", "`person`"},
		{Spark{}, "odd`name", "`odd``name`"},
	}
	for _, tt := range tests {
		if got := tt.d.QuoteIdent(tt.in); got != tt.want {
			t.Errorf("%s.QuoteIdent(%q) = %q, want %q", tt.d.Name(), tt.in, got, tt.want)
		}
	}
}

func TestQualifyTable(t *testing.T) {
	if got := QualifyTable(Postgres{}, "cdm", "person"); got != `"cdm"."person"` {
		t.Errorf("QualifyTable = %q", got)
	}
	if got := QualifyTable(DuckDB{}, "", "person"); got != `"person"` {
		t.Errorf("QualifyTable without schema = %q", got)
	}
}

func TestDateAdd(t *testing.T) {
	tests := []struct {
		d    Dialect
		days int
		want string
	}{
		{DuckDB{}, 30, "(x + INTERVAL (30) DAY)"},
		{DuckDB{}, -7, "(x + INTERVAL (-7) DAY)"},
		{Postgres{}, 30, "(x + (30) * INTERVAL '1 day')"},
		{Spark{}, 30, "(x + INTERVAL '30' DAY)"},
		{SQLite{}, 30, "DATETIME(x, '+30 days')"},
		{SQLite{}, -7, "DATETIME(x, '-7 days')"},
	}
	for _, tt := range tests {
		if got := tt.d.DateAdd("x", tt.days); got != tt.want {
			t.Errorf("%s.DateAdd(x, %d) = %q, want %q", tt.d.Name(), tt.days, got, tt.want)
		}
	}
}

func TestDateAddZeroIsIdentity(t *testing.T) {
	for _, d := range []Dialect{DuckDB{}, Postgres{}, Spark{}, SQLite{}} {
		if got := d.DateAdd("x", 0); got != "x" {
			t.Errorf("%s.DateAdd(x, 0) = %q, want x", d.Name(), got)
		}
	}
}

func TestAnalyzeStatement(t *testing.T) {
	tests := []struct {
		d    Dialect
		want string
	}{
		{DuckDB{}, "ANALYZE t"},
		{Postgres{}, "ANALYZE t"},
		{SQLite{}, "ANALYZE t"},
		{Spark{}, "ANALYZE TABLE t COMPUTE STATISTICS"},
	}
	for _, tt := range tests {
		if got := tt.d.AnalyzeStatement("t"); got != tt.want {
			t.Errorf("%s.AnalyzeStatement = %q, want %q", tt.d.Name(), got, tt.want)
		}
	}
}

// Summed indicator bits must pass through a wide exact numeric on dialects
// that promote integer sums; Postgres promotes SUM(BIGINT) to NUMERIC,
// which breaks bitwise use downstream without the cast.
func TestWideDecimalCast(t *testing.T) {
	if got := (Postgres{}).CastWideDecimal("SUM(b)"); got != "CAST(SUM(b) AS NUMERIC(38,0))" {
		t.Errorf("postgres cast = %q", got)
	}
	if got := (DuckDB{}).CastWideDecimal("SUM(b)"); got != "CAST(SUM(b) AS DECIMAL(38,0))" {
		t.Errorf("duckdb cast = %q", got)
	}
	if got := (Spark{}).CastWideDecimal("SUM(b)"); got != "CAST(SUM(b) AS DECIMAL(38,0))" {
		t.Errorf("spark cast = %q", got)
	}
	// SQLite keeps 64-bit integer sums exact.
	if got := (SQLite{}).CastWideDecimal("SUM(b)"); got != "SUM(b)" {
		t.Errorf("sqlite cast = %q", got)
	}
}

// Empty literal relations must never render as empty arrays or empty IN
// lists; Postgres rejects ARRAY[] without an element type.
func TestEmptyBigintRelation(t *testing.T) {
	for _, d := range []Dialect{DuckDB{}, Postgres{}, Spark{}, SQLite{}} {
		got := d.EmptyBigintRelation("concept_id")
		if !strings.Contains(got, "WHERE 1 = 0") {
			t.Errorf("%s empty relation missing guard: %q", d.Name(), got)
		}
		if strings.Contains(got, "ARRAY") {
			t.Errorf("%s empty relation uses an array literal: %q", d.Name(), got)
		}
	}
}

func TestInlineBigintRelation(t *testing.T) {
	got := InlineBigintRelation(DuckDB{}, "concept_id", []int64{1, 2, 3})
	want := "SELECT CAST(1 AS BIGINT) AS \"concept_id\"\nUNION ALL\nSELECT 2\nUNION ALL\nSELECT 3"
	if got != want {
		t.Errorf("InlineBigintRelation = %q, want %q", got, want)
	}
	empty := InlineBigintRelation(DuckDB{}, "concept_id", nil)
	if !strings.Contains(empty, "WHERE 1 = 0") {
		t.Errorf("empty list should render the empty relation, got %q", empty)
	}
}

func TestInBigintList(t *testing.T) {
	if got := InBigintList("t.concept_id", []int64{10, 20}); got != "t.concept_id IN (10, 20)" {
		t.Errorf("InBigintList = %q", got)
	}
}

func TestForName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"duckdb", "duckdb", false},
		{"postgres", "postgres", false},
		{"spark", "spark", false},
		{"databricks", "spark", false},
		{"sqlite", "sqlite", false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		d, err := ForName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ForName(%q) error = %v", tt.in, err)
		}
		if err == nil && d.Name() != tt.want {
			t.Errorf("ForName(%q).Name() = %q, want %q", tt.in, d.Name(), tt.want)
		}
	}
}

func TestDateDiffDays(t *testing.T) {
	tests := []struct {
		d    Dialect
		want string
	}{
		{DuckDB{}, "DATE_DIFF('day', s, e)"},
		{Postgres{}, "(CAST(e AS DATE) - CAST(s AS DATE))"},
		{Spark{}, "DATEDIFF(e, s)"},
	}
	for _, tt := range tests {
		if got := tt.d.DateDiffDays("s", "e"); got != tt.want {
			t.Errorf("%s.DateDiffDays = %q, want %q", tt.d.Name(), got, tt.want)
		}
	}
}
