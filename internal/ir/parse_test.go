package ir

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opencohort/cohortc/internal/cohorterr"
)

const trivialDefinition = `{
  "ConceptSets": [
    {
      "id": 1,
      "name": "Target condition",
      "expression": {
        "items": [
          {"concept": {"CONCEPT_ID": 1001, "CONCEPT_NAME": "Example"}, "includeDescendants": true}
        ]
      }
    }
  ],
  "PrimaryCriteria": {
    "CriteriaList": [
      {"ConditionOccurrence": {"CodesetId": 1}}
    ],
    "ObservationWindow": {"PriorDays": 0, "PostDays": 0},
    "PrimaryCriteriaLimit": {"Type": "First"}
  },
  "QualifiedLimit": {"Type": "First"},
  "ExpressionLimit": {"Type": "All"},
  "InclusionRules": [],
  "CollapseSettings": {"CollapseType": "ERA", "EraPad": 0},
  "CensorWindow": {}
}`

func TestParseTrivialDefinition(t *testing.T) {
	expr, err := Parse([]byte(trivialDefinition))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(expr.ConceptSets) != 1 {
		t.Fatalf("concept sets = %d, want 1", len(expr.ConceptSets))
	}
	cs := expr.ConceptSets[0]
	if cs.ID != 1 || cs.Name != "Target condition" {
		t.Errorf("concept set = %+v", cs)
	}
	if !cs.Expression.Items[0].Descendants() {
		t.Error("includeDescendants not parsed")
	}
	if len(expr.PrimaryCriteria.CriteriaList) != 1 {
		t.Fatalf("primary criteria = %d, want 1", len(expr.PrimaryCriteria.CriteriaList))
	}
	co, ok := expr.PrimaryCriteria.CriteriaList[0].Criterion.(*ConditionOccurrence)
	if !ok {
		t.Fatalf("criterion type = %T, want *ConditionOccurrence", expr.PrimaryCriteria.CriteriaList[0].Criterion)
	}
	if co.CodesetID == nil || *co.CodesetID != 1 {
		t.Errorf("CodesetId = %v, want 1", co.CodesetID)
	}
	if !expr.PrimaryCriteria.PrimaryLimit.IsFirst() {
		t.Error("primary limit should be First")
	}
	if expr.ExpressionLimit.IsFirst() {
		t.Error("expression limit should be All")
	}
}

func TestParseMissingPrimaryCriteria(t *testing.T) {
	_, err := Parse([]byte(`{"ConceptSets": []}`))
	var pe *cohorterr.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestParseUnknownCriterionKind(t *testing.T) {
	doc := `{"PrimaryCriteria": {"CriteriaList": [{"NotADomain": {}}]}}`
	_, err := Parse([]byte(doc))
	var pe *cohorterr.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestRoundTripShapePreserving(t *testing.T) {
	expr, err := Parse([]byte(trivialDefinition))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out, err := Serialize(expr)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse error = %v", err)
	}
	out2, err := Serialize(reparsed)
	if err != nil {
		t.Fatalf("second Serialize() error = %v", err)
	}
	var a, b any
	if err := json.Unmarshal(out, &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out2, &b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("serialize/parse/serialize not stable (-first +second):\n%s", diff)
	}
}

func TestOccurrenceTypeMapping(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    OccurrenceType
		wantErr bool
	}{
		{"exactly", `{"Type": 0, "Count": 1}`, OccurrenceExactly, false},
		{"at most", `{"Type": 1, "Count": 0}`, OccurrenceAtMost, false},
		{"at least", `{"Type": 2, "Count": 2}`, OccurrenceAtLeast, false},
		{"out of range", `{"Type": 9, "Count": 1}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var occ Occurrence
			err := json.Unmarshal([]byte(tt.raw), &occ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && occ.Type != tt.want {
				t.Errorf("Type = %v, want %v", occ.Type, tt.want)
			}
		})
	}
}

func TestOccurrenceRoundTripKeepsIntegerType(t *testing.T) {
	var occ Occurrence
	if err := json.Unmarshal([]byte(`{"Type": 2, "Count": 3}`), &occ); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(occ)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["Type"] != float64(2) {
		t.Errorf("serialized Type = %v, want 2", raw["Type"])
	}
}

func TestNormalizeCriteriaColumn(t *testing.T) {
	tests := []struct {
		in      string
		want    CriteriaColumn
		wantErr bool
	}{
		{"VISIT_ID", ColumnVisitID, false},
		{"visit_occurrence_id", ColumnVisitID, false},
		{"START_DATE", ColumnStartDate, false},
		{"start_date", ColumnStartDate, false},
		{"DOMAIN_CONCEPT", ColumnDomainConcept, false},
		{"domain_concept_id", ColumnDomainConcept, false},
		{"nonsense", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeCriteriaColumn(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeCriteriaColumn(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSourceConceptFilterScalarOrObject(t *testing.T) {
	var scalar SourceConceptFilter
	if err := json.Unmarshal([]byte(`4`), &scalar); err != nil {
		t.Fatalf("scalar form: %v", err)
	}
	if scalar.Selection.CodesetID == nil || *scalar.Selection.CodesetID != 4 {
		t.Errorf("scalar CodesetID = %v, want 4", scalar.Selection.CodesetID)
	}
	out, _ := json.Marshal(scalar)
	if string(out) != "4" {
		t.Errorf("scalar round-trip = %s, want 4", out)
	}

	var obj SourceConceptFilter
	if err := json.Unmarshal([]byte(`{"CodesetId": 7, "IsExclusion": true}`), &obj); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if !obj.Selection.IsExclusion || *obj.Selection.CodesetID != 7 {
		t.Errorf("object selection = %+v", obj.Selection)
	}
	out, _ = json.Marshal(obj)
	var raw map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["CodesetId"] != float64(7) {
		t.Errorf("object round-trip = %s", out)
	}
}

func TestMeasurementOperatorAliases(t *testing.T) {
	var m Measurement
	doc := `{"OperatorConcept": [{"CONCEPT_ID": 10}], "OperatorConceptCS": {"CodesetId": 3}}`
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Operator) != 1 || *m.Operator[0].ConceptID != 10 {
		t.Errorf("Operator = %+v", m.Operator)
	}
	if m.OperatorCS == nil || *m.OperatorCS.CodesetID != 3 {
		t.Errorf("OperatorCS = %+v", m.OperatorCS)
	}
}

func TestCriterionEnvelopeRoundTrip(t *testing.T) {
	doc := `{"DrugExposure": {"CodesetId": 2, "First": true}}`
	var env CriterionEnvelope
	if err := json.Unmarshal([]byte(doc), &env); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	var a, b any
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &b); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("envelope round-trip mismatch (-in +out):\n%s", diff)
	}
}
