package ir

import (
	"encoding/json"
	"strings"

	"github.com/opencohort/cohortc/internal/cohorterr"
)

// Criterion is the sealed interface over the fifteen domain criterion kinds.
// Builders dispatch on the concrete type; Kind returns the wire tag.
type Criterion interface {
	Kind() string
	// Correlated returns the nested criteria group applied to the builder's
	// standardized output, or nil.
	Correlated() *CriteriaGroup
}

// CriterionEnvelope carries one tagged criterion. On the wire it is a
// single-key object: {"ConditionOccurrence": {...}}.
type CriterionEnvelope struct {
	Criterion Criterion
}

func (e *CriterionEnvelope) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return &cohorterr.ParseError{Path: "Criteria", Expected: "object keyed by criterion kind"}
	}
	for kind, payload := range raw {
		c, err := newCriterion(kind)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(payload, c); err != nil {
			return &cohorterr.ParseError{Path: kind, Expected: "criterion body"}
		}
		e.Criterion = c
		return nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	return &cohorterr.ParseError{
		Path:     strings.Join(keys, ","),
		Expected: "a known criterion kind",
	}
}

func (e CriterionEnvelope) MarshalJSON() ([]byte, error) {
	if e.Criterion == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]Criterion{e.Criterion.Kind(): e.Criterion})
}

// newCriterion allocates the concrete type for a wire tag.
func newCriterion(kind string) (Criterion, error) {
	switch kind {
	case "ConditionOccurrence":
		return &ConditionOccurrence{}, nil
	case "ConditionEra":
		return &ConditionEra{}, nil
	case "DrugExposure":
		return &DrugExposure{}, nil
	case "DrugEra":
		return &DrugEra{}, nil
	case "DoseEra":
		return &DoseEra{}, nil
	case "VisitOccurrence":
		return &VisitOccurrence{}, nil
	case "VisitDetail":
		return &VisitDetail{}, nil
	case "Measurement":
		return &Measurement{}, nil
	case "Observation":
		return &Observation{}, nil
	case "ObservationPeriod":
		return &ObservationPeriod{}, nil
	case "ProcedureOccurrence":
		return &ProcedureOccurrence{}, nil
	case "DeviceExposure":
		return &DeviceExposure{}, nil
	case "Death":
		return &Death{}, nil
	case "Specimen":
		return &Specimen{}, nil
	case "PayerPlanPeriod":
		return &PayerPlanPeriod{}, nil
	}
	return nil, &cohorterr.UnsupportedCriterionError{Kind: kind}
}

// GroupType is a criteria group combinator.
type GroupType string

const (
	GroupAll     GroupType = "ALL"
	GroupAny     GroupType = "ANY"
	GroupAtLeast GroupType = "AT_LEAST"
	GroupAtMost  GroupType = "AT_MOST"
)

// CriteriaGroup combines correlated criteria, demographic criteria, and
// nested subgroups under one combinator.
type CriteriaGroup struct {
	Type                    GroupType             `json:"Type,omitempty"`
	Count                   *int                  `json:"Count,omitempty"`
	CriteriaList            []CorrelatedCriteria  `json:"CriteriaList,omitempty"`
	DemographicCriteriaList []DemographicCriteria `json:"DemographicCriteriaList,omitempty"`
	Groups                  []CriteriaGroup       `json:"Groups,omitempty"`
}

// IsEmpty reports whether the group has no children of any kind.
func (g *CriteriaGroup) IsEmpty() bool {
	return g == nil ||
		(len(g.CriteriaList) == 0 && len(g.DemographicCriteriaList) == 0 && len(g.Groups) == 0)
}

// CorrelatedCriteria evaluates a child criterion in a temporal window
// relative to each index event.
type CorrelatedCriteria struct {
	Criteria                *CriterionEnvelope `json:"Criteria,omitempty"`
	StartWindow             *Window            `json:"StartWindow,omitempty"`
	EndWindow               *Window            `json:"EndWindow,omitempty"`
	Occurrence              *Occurrence        `json:"Occurrence,omitempty"`
	RestrictVisit           *bool              `json:"RestrictVisit,omitempty"`
	IgnoreObservationPeriod *bool              `json:"IgnoreObservationPeriod,omitempty"`
}

// IgnoresObservationPeriod reports the effective flag.
func (c *CorrelatedCriteria) IgnoresObservationPeriod() bool {
	return c.IgnoreObservationPeriod != nil && *c.IgnoreObservationPeriod
}

// DemographicCriteria is a predicate on the index event's person.
type DemographicCriteria struct {
	Age                 *NumericRange        `json:"Age,omitempty"`
	Gender              []Concept            `json:"Gender,omitempty"`
	GenderCS            *ConceptSetSelection `json:"GenderCS,omitempty"`
	Race                []Concept            `json:"Race,omitempty"`
	RaceCS              *ConceptSetSelection `json:"RaceCS,omitempty"`
	Ethnicity           []Concept            `json:"Ethnicity,omitempty"`
	EthnicityCS         *ConceptSetSelection `json:"EthnicityCS,omitempty"`
	OccurrenceStartDate *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate   *DateRange           `json:"OccurrenceEndDate,omitempty"`
}
