package ir

import (
	"github.com/opencohort/cohortc/internal/cohorterr"
)

// ResultLimit selects all events or the first per person.
type ResultLimit struct {
	Type string `json:"Type,omitempty"`
}

// IsFirst reports whether the limit keeps only the earliest event per person.
func (l *ResultLimit) IsFirst() bool {
	return l != nil && l.Type != "" && l.Type != "All" && l.Type != "all" && l.Type != "ALL"
}

// ObservationFilter requires the index date to fall at least PriorDays after
// the start and PostDays before the end of a containing observation period.
type ObservationFilter struct {
	PriorDays int `json:"PriorDays,omitempty"`
	PostDays  int `json:"PostDays,omitempty"`
}

// PrimaryCriteria is the index-event source of a cohort expression.
type PrimaryCriteria struct {
	CriteriaList      []CriterionEnvelope `json:"CriteriaList"`
	ObservationWindow *ObservationFilter  `json:"ObservationWindow,omitempty"`
	PrimaryLimit      *ResultLimit        `json:"PrimaryCriteriaLimit,omitempty"`
}

// InclusionRule is a named gate applied after additional criteria; all rules
// must hold for an event to survive.
type InclusionRule struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Expression  *CriteriaGroup `json:"expression,omitempty"`
}

// CollapseType names the era-collapse algorithm; ERA is the only variant.
type CollapseType string

// CollapseERA merges overlapping padded intervals per person.
const CollapseERA CollapseType = "ERA"

// CollapseSettings configures the final interval merge.
type CollapseSettings struct {
	CollapseType CollapseType `json:"CollapseType,omitempty"`
	EraPad       int          `json:"EraPad,omitempty"`
}

// Period is an absolute date window; either bound may be open.
type Period struct {
	StartDate *string `json:"StartDate,omitempty"`
	EndDate   *string `json:"EndDate,omitempty"`
}

// DateField selects which endpoint a date-offset strategy moves.
type DateField string

const (
	DateFieldStart DateField = "StartDate"
	DateFieldEnd   DateField = "EndDate"
)

// DateOffsetStrategy shifts the chosen endpoint of each event by Offset days:
// a moved start date is floored at the containing observation period's
// start, a moved end date is capped at its end.
type DateOffsetStrategy struct {
	DateField DateField `json:"DateField,omitempty"`
	Offset    int       `json:"Offset,omitempty"`
}

// CustomEraStrategy ends events with eras built from drug exposures matching
// a codeset.
type CustomEraStrategy struct {
	DrugCodesetID      *int64 `json:"DrugCodesetId,omitempty"`
	GapDays            int    `json:"GapDays,omitempty"`
	Offset             int    `json:"Offset,omitempty"`
	DaysSupplyOverride *int   `json:"DaysSupplyOverride,omitempty"`
}

// EndStrategy is the sum of the two end-date strategies; at most one branch
// is set.
type EndStrategy struct {
	DateOffset *DateOffsetStrategy `json:"DateOffset,omitempty"`
	CustomEra  *CustomEraStrategy  `json:"CustomEra,omitempty"`
}

// IsEmpty reports whether neither branch is present.
func (s *EndStrategy) IsEmpty() bool {
	return s == nil || (s.DateOffset == nil && s.CustomEra == nil)
}

// CohortExpression is the root of the cohort-definition IR.
type CohortExpression struct {
	CDMVersionRange    string              `json:"cdmVersionRange,omitempty"`
	Title              string              `json:"Title,omitempty"`
	PrimaryCriteria    *PrimaryCriteria    `json:"PrimaryCriteria"`
	AdditionalCriteria *CriteriaGroup      `json:"AdditionalCriteria,omitempty"`
	ConceptSets        []ConceptSet        `json:"ConceptSets"`
	QualifiedLimit     *ResultLimit        `json:"QualifiedLimit,omitempty"`
	ExpressionLimit    *ResultLimit        `json:"ExpressionLimit,omitempty"`
	InclusionRules     []InclusionRule     `json:"InclusionRules,omitempty"`
	EndStrategy        *EndStrategy        `json:"EndStrategy,omitempty"`
	CensoringCriteria  []CriterionEnvelope `json:"CensoringCriteria,omitempty"`
	CollapseSettings   *CollapseSettings   `json:"CollapseSettings,omitempty"`
	CensorWindow       *Period             `json:"CensorWindow,omitempty"`
}

// DeclaredCodesets returns the set of concept-set ids declared by the
// expression.
func (e *CohortExpression) DeclaredCodesets() map[int64]bool {
	declared := make(map[int64]bool, len(e.ConceptSets))
	for _, cs := range e.ConceptSets {
		declared[cs.ID] = true
	}
	return declared
}

// Validate checks structural constraints that the type system cannot
// express: a primary criteria block must exist, every referenced codeset
// must be declared, and a custom era strategy must name a drug codeset.
// Operator checks (a between operator without an extent) happen in the
// builders.
func (e *CohortExpression) Validate() error {
	if e.PrimaryCriteria == nil || len(e.PrimaryCriteria.CriteriaList) == 0 {
		return &cohorterr.InvalidExpressionError{Reason: "PrimaryCriteria with at least one criterion is required"}
	}
	if e.EndStrategy != nil && e.EndStrategy.CustomEra != nil && e.EndStrategy.CustomEra.DrugCodesetID == nil {
		return &cohorterr.InvalidExpressionError{Reason: "custom era strategy requires a drug codeset id"}
	}
	declared := e.DeclaredCodesets()
	for _, id := range e.referencedCodesets() {
		if !declared[id] {
			return &cohorterr.MissingCodesetError{CodesetID: id}
		}
	}
	return nil
}

// referencedCodesets walks every criterion reachable from the expression and
// collects primary codeset references.
func (e *CohortExpression) referencedCodesets() []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	add := func(id *int64) {
		if id != nil && !seen[*id] {
			seen[*id] = true
			ids = append(ids, *id)
		}
	}
	var walkGroup func(g *CriteriaGroup)
	walkCriterion := func(c Criterion) {
		if c == nil {
			return
		}
		switch v := c.(type) {
		case *ConditionOccurrence:
			add(v.CodesetID)
		case *ConditionEra:
			add(v.CodesetID)
		case *DrugExposure:
			add(v.CodesetID)
		case *DrugEra:
			add(v.CodesetID)
		case *DoseEra:
			add(v.CodesetID)
		case *VisitOccurrence:
			add(v.CodesetID)
		case *VisitDetail:
			add(v.CodesetID)
		case *Measurement:
			add(v.CodesetID)
		case *Observation:
			add(v.CodesetID)
		case *ProcedureOccurrence:
			add(v.CodesetID)
		case *DeviceExposure:
			add(v.CodesetID)
		case *Death:
			add(v.CodesetID)
		case *Specimen:
			add(v.CodesetID)
		}
		walkGroup(c.Correlated())
	}
	walkGroup = func(g *CriteriaGroup) {
		if g == nil {
			return
		}
		for i := range g.CriteriaList {
			if g.CriteriaList[i].Criteria != nil {
				walkCriterion(g.CriteriaList[i].Criteria.Criterion)
			}
		}
		for i := range g.Groups {
			walkGroup(&g.Groups[i])
		}
	}
	if e.PrimaryCriteria != nil {
		for i := range e.PrimaryCriteria.CriteriaList {
			walkCriterion(e.PrimaryCriteria.CriteriaList[i].Criterion)
		}
	}
	walkGroup(e.AdditionalCriteria)
	for i := range e.InclusionRules {
		walkGroup(e.InclusionRules[i].Expression)
	}
	for i := range e.CensoringCriteria {
		walkCriterion(e.CensoringCriteria[i].Criterion)
	}
	if e.EndStrategy != nil && e.EndStrategy.CustomEra != nil {
		add(e.EndStrategy.CustomEra.DrugCodesetID)
	}
	return ids
}
