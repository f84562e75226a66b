package ir

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opencohort/cohortc/internal/cohorterr"
)

// Op is a comparison operator as it appears on the wire:
// lt, lte, eq, !eq, gt, gte, bt, !bt.
type Op string

const (
	OpLT         Op = "lt"
	OpLTE        Op = "lte"
	OpEQ         Op = "eq"
	OpNotEQ      Op = "!eq"
	OpGT         Op = "gt"
	OpGTE        Op = "gte"
	OpBetween    Op = "bt"
	OpNotBetween Op = "!bt"
)

// IsBetween reports whether the operator is bt or !bt.
func (o Op) IsBetween() bool { return strings.HasSuffix(string(o), "bt") }

// Negated reports whether the operator starts with "!".
func (o Op) Negated() bool { return strings.HasPrefix(string(o), "!") }

// NumericRange filters a numeric column. Extent is only meaningful for the
// between operators.
type NumericRange struct {
	Value  *float64 `json:"Value,omitempty"`
	Op     Op       `json:"Op,omitempty"`
	Extent *float64 `json:"Extent,omitempty"`
}

// DateRange filters a date column; values are ISO yyyy-MM-dd strings.
type DateRange struct {
	Value  string  `json:"Value"`
	Op     Op      `json:"Op"`
	Extent *string `json:"Extent,omitempty"`
}

// TextFilter matches a text column with startsWith/endsWith/contains or
// their negations.
type TextFilter struct {
	Text string `json:"Text,omitempty"`
	Op   string `json:"Op,omitempty"`
}

// Concept is a vocabulary concept reference as authored in ATLAS exports.
// Field names are upper-cased on the wire.
type Concept struct {
	ConceptID              *int64  `json:"CONCEPT_ID,omitempty"`
	ConceptName            *string `json:"CONCEPT_NAME,omitempty"`
	StandardConcept        *string `json:"STANDARD_CONCEPT,omitempty"`
	StandardConceptCaption *string `json:"STANDARD_CONCEPT_CAPTION,omitempty"`
	InvalidReason          *string `json:"INVALID_REASON,omitempty"`
	InvalidReasonCaption   *string `json:"INVALID_REASON_CAPTION,omitempty"`
	ConceptCode            *string `json:"CONCEPT_CODE,omitempty"`
	DomainID               *string `json:"DOMAIN_ID,omitempty"`
	VocabularyID           *string `json:"VOCABULARY_ID,omitempty"`
	ConceptClassID         *string `json:"CONCEPT_CLASS_ID,omitempty"`
}

// ConceptIDs extracts the non-nil ids from a concept list.
func ConceptIDs(concepts []Concept) []int64 {
	ids := make([]int64, 0, len(concepts))
	for _, c := range concepts {
		if c.ConceptID != nil {
			ids = append(ids, *c.ConceptID)
		}
	}
	return ids
}

// ConceptSetSelection points a filter at a compiled codeset, optionally as
// an exclusion (anti-join instead of semi-join).
type ConceptSetSelection struct {
	CodesetID   *int64 `json:"CodesetId,omitempty"`
	IsExclusion bool   `json:"IsExclusion,omitempty"`
}

// SourceConceptFilter accepts either a bare integer (a codeset id) or a
// ConceptSetSelection object on the wire. The scalar form is remembered so
// round-trip serialization emits the same literal shape.
type SourceConceptFilter struct {
	Selection ConceptSetSelection
	scalar    bool
}

// AsSelection returns the normalized selection.
func (f *SourceConceptFilter) AsSelection() ConceptSetSelection { return f.Selection }

func (f *SourceConceptFilter) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		var id int64
		if err := json.Unmarshal(b, &id); err != nil {
			return &cohorterr.ParseError{Path: "SourceConcept", Expected: "integer codeset id or selection object"}
		}
		f.Selection = ConceptSetSelection{CodesetID: &id}
		f.scalar = true
		return nil
	}
	if err := json.Unmarshal(b, &f.Selection); err != nil {
		return &cohorterr.ParseError{Path: "SourceConcept", Expected: "selection object"}
	}
	return nil
}

func (f SourceConceptFilter) MarshalJSON() ([]byte, error) {
	if f.scalar && f.Selection.CodesetID != nil && !f.Selection.IsExclusion {
		return json.Marshal(*f.Selection.CodesetID)
	}
	return json.Marshal(f.Selection)
}

// Endpoint is one side of a temporal window: a day count and a sign
// coefficient. A nil Days means the window is open on that side.
type Endpoint struct {
	Days  *int `json:"Days,omitempty"`
	Coeff int  `json:"Coeff"`
}

// Window bounds a correlated event's anchor date relative to an index event.
type Window struct {
	Start       *Endpoint `json:"Start,omitempty"`
	End         *Endpoint `json:"End,omitempty"`
	UseIndexEnd *bool     `json:"UseIndexEnd,omitempty"`
	UseEventEnd *bool     `json:"UseEventEnd,omitempty"`
}

// OccurrenceType selects the count predicate; wire values are the integers
// 0 (exactly), 1 (at most), 2 (at least).
type OccurrenceType int

const (
	OccurrenceExactly OccurrenceType = 0
	OccurrenceAtMost  OccurrenceType = 1
	OccurrenceAtLeast OccurrenceType = 2
)

func (t *OccurrenceType) UnmarshalJSON(b []byte) error {
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return &cohorterr.ParseError{Path: "Occurrence.Type", Expected: "integer 0, 1 or 2"}
	}
	switch OccurrenceType(v) {
	case OccurrenceExactly, OccurrenceAtMost, OccurrenceAtLeast:
		*t = OccurrenceType(v)
		return nil
	}
	return &cohorterr.ParseError{Path: "Occurrence.Type", Expected: "integer 0, 1 or 2"}
}

// CriteriaColumn names the column counted by a correlated occurrence.
type CriteriaColumn string

const (
	ColumnDaysSupply          CriteriaColumn = "days_supply"
	ColumnDomainConcept       CriteriaColumn = "domain_concept_id"
	ColumnDomainSourceConcept CriteriaColumn = "domain_source_concept_id"
	ColumnDuration            CriteriaColumn = "duration"
	ColumnEndDate             CriteriaColumn = "end_date"
	ColumnEraOccurrences      CriteriaColumn = "occurrence_count"
	ColumnGapDays             CriteriaColumn = "gap_days"
	ColumnQuantity            CriteriaColumn = "quantity"
	ColumnRangeHigh           CriteriaColumn = "range_high"
	ColumnRangeLow            CriteriaColumn = "range_low"
	ColumnRefills             CriteriaColumn = "refills"
	ColumnStartDate           CriteriaColumn = "start_date"
	ColumnUnit                CriteriaColumn = "unit_concept_id"
	ColumnValueAsNumber       CriteriaColumn = "value_as_number"
	ColumnVisitID             CriteriaColumn = "visit_occurrence_id"
	ColumnVisitDetailID       CriteriaColumn = "visit_detail_id"
)

// columnNames maps the wire spellings (enum names, lower-case column names,
// and _id-suffix variants) onto canonical columns.
var columnNames = map[string]CriteriaColumn{
	"DAYS_SUPPLY":           ColumnDaysSupply,
	"DOMAIN_CONCEPT":        ColumnDomainConcept,
	"DOMAIN_SOURCE_CONCEPT": ColumnDomainSourceConcept,
	"DURATION":              ColumnDuration,
	"END_DATE":              ColumnEndDate,
	"ERA_OCCURRENCES":       ColumnEraOccurrences,
	"GAP_DAYS":              ColumnGapDays,
	"QUANTITY":              ColumnQuantity,
	"RANGE_HIGH":            ColumnRangeHigh,
	"RANGE_LOW":             ColumnRangeLow,
	"REFILLS":               ColumnRefills,
	"START_DATE":            ColumnStartDate,
	"UNIT":                  ColumnUnit,
	"VALUE_AS_NUMBER":       ColumnValueAsNumber,
	"VISIT_ID":              ColumnVisitID,
	"VISIT_DETAIL_ID":       ColumnVisitDetailID,
}

var columnEnumNames = map[CriteriaColumn]string{
	ColumnDaysSupply:          "DAYS_SUPPLY",
	ColumnDomainConcept:       "DOMAIN_CONCEPT",
	ColumnDomainSourceConcept: "DOMAIN_SOURCE_CONCEPT",
	ColumnDuration:            "DURATION",
	ColumnEndDate:             "END_DATE",
	ColumnEraOccurrences:      "ERA_OCCURRENCES",
	ColumnGapDays:             "GAP_DAYS",
	ColumnQuantity:            "QUANTITY",
	ColumnRangeHigh:           "RANGE_HIGH",
	ColumnRangeLow:            "RANGE_LOW",
	ColumnRefills:             "REFILLS",
	ColumnStartDate:           "START_DATE",
	ColumnUnit:                "UNIT",
	ColumnValueAsNumber:       "VALUE_AS_NUMBER",
	ColumnVisitID:             "VISIT_ID",
	ColumnVisitDetailID:       "VISIT_DETAIL_ID",
}

// NormalizeCriteriaColumn resolves any accepted wire spelling.
func NormalizeCriteriaColumn(value string) (CriteriaColumn, error) {
	upper := strings.ToUpper(value)
	if col, ok := columnNames[upper]; ok {
		return col, nil
	}
	lower := strings.ToLower(value)
	for _, col := range columnNames {
		if string(col) == lower {
			return col, nil
		}
	}
	// Accept _id-suffix aliases like VISIT_OCCURRENCE_ID for VISIT_ID.
	if trimmed, ok := strings.CutSuffix(lower, "_id"); ok {
		for _, col := range columnNames {
			if base, isID := strings.CutSuffix(string(col), "_id"); isID && base == trimmed {
				return col, nil
			}
		}
	}
	return "", fmt.Errorf("unsupported occurrence count column: %s", value)
}

func (c *CriteriaColumn) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &cohorterr.ParseError{Path: "Occurrence.CountColumn", Expected: "column name string"}
	}
	col, err := NormalizeCriteriaColumn(s)
	if err != nil {
		return &cohorterr.ParseError{Path: "Occurrence.CountColumn", Expected: "known count column"}
	}
	*c = col
	return nil
}

func (c CriteriaColumn) MarshalJSON() ([]byte, error) {
	if name, ok := columnEnumNames[c]; ok {
		return json.Marshal(name)
	}
	return json.Marshal(string(c))
}

// Occurrence is the count predicate of a correlated criterion.
type Occurrence struct {
	Type        OccurrenceType  `json:"Type"`
	Count       int             `json:"Count"`
	IsDistinct  *bool           `json:"IsDistinct,omitempty"`
	CountColumn *CriteriaColumn `json:"CountColumn,omitempty"`
}

// Distinct reports whether the count is over distinct values.
func (o *Occurrence) Distinct() bool {
	return o != nil && o.IsDistinct != nil && *o.IsDistinct
}

// DateType selects a row's start or end date.
type DateType string

const (
	DateTypeStart DateType = "StartDate"
	DateTypeEnd   DateType = "EndDate"
)

// DateAdjustment shifts a criterion's dates. Parsed and round-tripped; not
// yet interpreted by the builders (tracked by the field inventory).
type DateAdjustment struct {
	StartWith   DateType `json:"StartWith,omitempty"`
	StartOffset int      `json:"StartOffset,omitempty"`
	EndWith     DateType `json:"EndWith,omitempty"`
	EndOffset   int      `json:"EndOffset,omitempty"`
}

// UserDefinedPeriod pins a period criterion to literal dates.
type UserDefinedPeriod struct {
	StartDate *string `json:"StartDate,omitempty"`
	EndDate   *string `json:"EndDate,omitempty"`
}
