package vocab

import (
	"strings"
	"testing"

	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
)

var testTables = Tables{
	Concept:             `"vocab"."concept"`,
	ConceptAncestor:     `"vocab"."concept_ancestor"`,
	ConceptRelationship: `"vocab"."concept_relationship"`,
}

func boolp(v bool) *bool    { return &v }
func int64p(v int64) *int64 { return &v }

func set(id int64, items ...ir.ConceptSetItem) ir.ConceptSet {
	return ir.ConceptSet{
		ID:         id,
		Name:       "test",
		Expression: &ir.ConceptSetExpression{Items: items},
	}
}

func item(conceptID int64, excluded, descendants, mapped bool) ir.ConceptSetItem {
	it := ir.ConceptSetItem{Concept: ir.Concept{ConceptID: int64p(conceptID)}}
	if excluded {
		it.IsExcluded = boolp(true)
	}
	if descendants {
		it.IncludeDescendants = boolp(true)
	}
	if mapped {
		it.IncludeMapped = boolp(true)
	}
	return it
}

func TestLiteralOnlySet(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1, item(1001, false, false, false)),
	})
	sql := rel.SQL()
	if !strings.Contains(sql, "SELECT CAST(1001 AS BIGINT)") {
		t.Errorf("literal id missing:\n%s", sql)
	}
	if strings.Contains(sql, "concept_ancestor") {
		t.Errorf("descendants should not be expanded:\n%s", sql)
	}
	if strings.Contains(sql, "concept_relationship") {
		t.Errorf("mapped should not be expanded:\n%s", sql)
	}
	if !strings.Contains(sql, "AS codeset_id") {
		t.Errorf("codeset tag missing:\n%s", sql)
	}
}

func TestDescendantExpansion(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1, item(1001, false, true, false)),
	})
	sql := rel.SQL()
	if !strings.Contains(sql, `"vocab"."concept_ancestor"`) {
		t.Errorf("ancestor join missing:\n%s", sql)
	}
	if !strings.Contains(sql, "ca.ancestor_concept_id IN (1001)") {
		t.Errorf("ancestor filter missing:\n%s", sql)
	}
	if !strings.Contains(sql, "c.invalid_reason IS NULL") {
		t.Errorf("invalid-reason filter missing:\n%s", sql)
	}
}

func TestMappedExpansion(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1, item(1001, false, false, true)),
	})
	sql := rel.SQL()
	if !strings.Contains(sql, "'Maps to'") {
		t.Errorf("maps-to filter missing:\n%s", sql)
	}
	if !strings.Contains(sql, "cr.concept_id_2 = src.concept_id") {
		t.Errorf("mapping join missing:\n%s", sql)
	}
	if !strings.Contains(sql, "cr.concept_id_1") {
		t.Errorf("mapped projection missing:\n%s", sql)
	}
}

func TestMappedDescendantsFeedTheSourceSide(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1, item(1001, false, true, true)),
	})
	sql := rel.SQL()
	// Descendants appear twice: once in the include union and once as the
	// source relation of the mapping.
	if strings.Count(sql, "ca.ancestor_concept_id IN (1001)") != 2 {
		t.Errorf("mapped descendants not expanded on the source side:\n%s", sql)
	}
}

// An explicit exclusion outranks an include, and the exclusion is expanded
// before it is applied.
func TestExclusionOutranksInclude(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1,
			item(1001, false, true, false),
			item(1002, true, true, false),
		),
	})
	sql := rel.SQL()
	if !strings.Contains(sql, "NOT IN (") {
		t.Errorf("exclusion anti-join missing:\n%s", sql)
	}
	if !strings.Contains(sql, "ca.ancestor_concept_id IN (1002)") {
		t.Errorf("exclusion side not expanded:\n%s", sql)
	}
}

func TestEmptySetContributesNothing(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		{ID: 1, Name: "empty"},
		set(2, item(2001, false, false, false)),
	})
	sql := rel.SQL()
	if !strings.Contains(sql, "2001") {
		t.Errorf("non-empty set missing:\n%s", sql)
	}
	if strings.Contains(sql, "AS codeset_id, inc.concept_id\nUNION") && strings.Contains(sql, "CAST(1 AS BIGINT) AS codeset_id") {
		t.Errorf("empty set should not contribute rows:\n%s", sql)
	}
}

func TestNoSetsYieldsSchemaCorrectEmptyRelation(t *testing.T) {
	rel := CompileCodesets(dialect.Postgres{}, testTables, nil)
	sql := rel.SQL()
	if !strings.Contains(sql, "codeset_id") || !strings.Contains(sql, "concept_id") {
		t.Errorf("empty relation missing schema:\n%s", sql)
	}
	if !strings.Contains(sql, "WHERE 1 = 0") {
		t.Errorf("empty relation should have zero rows:\n%s", sql)
	}
}

func TestExcludeOnlySetContributesNothing(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1, item(1001, true, false, false)),
	})
	if !strings.Contains(rel.SQL(), "WHERE 1 = 0") {
		t.Errorf("exclude-only set should compile to the empty relation:\n%s", rel.SQL())
	}
}

func TestCompilationIsIdempotent(t *testing.T) {
	sets := []ir.ConceptSet{
		set(1, item(1001, false, true, true), item(1002, true, false, false)),
		set(2, item(2001, false, false, false)),
	}
	first := CompileCodesets(dialect.DuckDB{}, testTables, sets).SQL()
	second := CompileCodesets(dialect.DuckDB{}, testTables, sets).SQL()
	if first != second {
		t.Error("codeset compilation is not deterministic")
	}
}

func TestDistinctOverUnion(t *testing.T) {
	rel := CompileCodesets(dialect.DuckDB{}, testTables, []ir.ConceptSet{
		set(1, item(1001, false, false, false)),
		set(2, item(1001, false, false, false)),
	})
	if !strings.Contains(rel.SQL(), "SELECT DISTINCT") {
		t.Errorf("pair uniqueness requires a distinct projection:\n%s", rel.SQL())
	}
}
