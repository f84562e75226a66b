package builders

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
)

// loadFixture parses the statin phenotype used across the dialect tests.
func loadFixture(t *testing.T) *ir.CohortExpression {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "statin_new_users.json"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	expr, err := ir.Parse(data)
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return expr
}

func dialectContext(t *testing.T, d dialect.Dialect, sets []ir.ConceptSet) *build.Context {
	t.Helper()
	opts := build.DefaultOptions()
	opts.CDMSchema = "cdm"
	opts.MaterializeStages = false
	opts.MaterializeCodesets = false
	ctx, err := build.NewContext(context.Background(), newStubBackend(d), opts, sets)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { ctx.Close(context.Background()) })
	return ctx
}

func TestFixtureCompilesOnEveryDialect(t *testing.T) {
	expr := loadFixture(t)
	for _, d := range []dialect.Dialect{dialect.DuckDB{}, dialect.Postgres{}, dialect.Spark{}, dialect.SQLite{}} {
		t.Run(d.Name(), func(t *testing.T) {
			ctx := dialectContext(t, d, expr.ConceptSets)
			rel, err := BuildCohort(context.Background(), expr, ctx)
			if err != nil {
				t.Fatalf("BuildCohort() error = %v", err)
			}
			sql := rel.SQL()
			for _, col := range EventColumns {
				if !strings.Contains(sql, col) {
					t.Errorf("column %s missing from %s plan", col, d.Name())
				}
			}
		})
	}
}

func TestFixtureDialectSpecificDateArithmetic(t *testing.T) {
	expr := loadFixture(t)

	t.Run("duckdb", func(t *testing.T) {
		ctx := dialectContext(t, dialect.DuckDB{}, expr.ConceptSets)
		rel, err := BuildCohort(context.Background(), expr, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(rel.SQL(), "INTERVAL (-365) DAY") {
			t.Errorf("washout window should use interval arithmetic:\n%.2000s", rel.SQL())
		}
	})
	t.Run("postgres", func(t *testing.T) {
		ctx := dialectContext(t, dialect.Postgres{}, expr.ConceptSets)
		rel, err := BuildCohort(context.Background(), expr, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(rel.SQL(), "(-365) * INTERVAL '1 day'") {
			t.Errorf("postgres interval form missing")
		}
		if !strings.Contains(rel.SQL(), "NUMERIC(38,0)") {
			t.Errorf("postgres bit sums must cast through NUMERIC(38,0)")
		}
	})
	t.Run("spark", func(t *testing.T) {
		ctx := dialectContext(t, dialect.Spark{}, expr.ConceptSets)
		rel, err := BuildCohort(context.Background(), expr, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(rel.SQL(), "INTERVAL '-365' DAY") {
			t.Errorf("spark interval form missing")
		}
		if !strings.Contains(rel.SQL(), "`cdm`.`drug_exposure`") {
			t.Errorf("spark identifier quoting missing")
		}
	})
	t.Run("sqlite", func(t *testing.T) {
		ctx := dialectContext(t, dialect.SQLite{}, expr.ConceptSets)
		rel, err := BuildCohort(context.Background(), expr, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(rel.SQL(), "DATETIME(") {
			t.Errorf("sqlite date arithmetic missing")
		}
	})
}

func TestFixtureUsesEveryPipelineStage(t *testing.T) {
	expr := loadFixture(t)
	ctx := dialectContext(t, dialect.DuckDB{}, expr.ConceptSets)
	rel, err := BuildCohort(context.Background(), expr, ctx)
	if err != nil {
		t.Fatal(err)
	}
	sql := rel.SQL()
	checks := map[string]string{
		"observation window":   "observation_period_start_date",
		"washout rule":         "INTERVAL (-365) DAY",
		"inclusion mask":       "m._rule_mask = 7",
		"absence rule":         "<= 0",
		"demographic rule":     "p.year_of_birth",
		"custom era gap":       "INTERVAL (30) DAY",
		"censoring":            "censor_start",
		"censor window":        "DATE '2019-12-31'",
		"mapped concepts":      "'Maps to'",
		"excluded concept":     "NOT IN (",
		"first exposure":       "_first_ord = 1",
		"primary limit":        "_person_ordinal = 1",
	}
	for name, fragment := range checks {
		if !strings.Contains(sql, fragment) {
			t.Errorf("%s: fragment %q missing from plan", name, fragment)
		}
	}
}

func TestFixtureIsDeterministicPerDialect(t *testing.T) {
	expr := loadFixture(t)
	for _, d := range []dialect.Dialect{dialect.DuckDB{}, dialect.Postgres{}} {
		first := func() string {
			ctx := dialectContext(t, d, expr.ConceptSets)
			rel, err := BuildCohort(context.Background(), expr, ctx)
			if err != nil {
				t.Fatal(err)
			}
			return rel.SQL()
		}
		if first() != first() {
			t.Errorf("%s plan is not byte-identical across runs", d.Name())
		}
	}
}
