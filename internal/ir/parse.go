package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/opencohort/cohortc/internal/cohorterr"
)

// Parse deserializes a cohort-definition JSON document. Unknown fields are
// ignored, matching the reference engine; strict-mode diagnostics run as a
// separate pass over the raw document (see the inventory package).
func Parse(data []byte) (*CohortExpression, error) {
	var expr CohortExpression
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&expr); err != nil {
		if pe, ok := err.(*cohorterr.ParseError); ok {
			return nil, pe
		}
		return nil, &cohorterr.ParseError{Path: "$", Expected: fmt.Sprintf("valid cohort definition JSON (%v)", err)}
	}
	if expr.PrimaryCriteria == nil {
		return nil, &cohorterr.ParseError{Path: "$.PrimaryCriteria", Expected: "required object"}
	}
	return &expr, nil
}

// Serialize renders the expression back to JSON with wire aliases, eliding
// unset fields so that parse followed by serialize is shape-preserving.
func Serialize(expr *CohortExpression) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(expr); err != nil {
		return nil, fmt.Errorf("failed to serialize cohort expression: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
