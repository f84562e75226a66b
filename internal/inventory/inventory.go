// Package inventory tracks the wire properties the compiler interprets for
// each IR entity. Strict validation walks a raw cohort JSON document against
// this map and reports fields the compiler would silently ignore.
package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Finding is one uninterpreted field discovered in a document.
type Finding struct {
	Path   string
	Entity string
	Field  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: field %q not interpreted (entity %s)", f.Path, f.Field, f.Entity)
}

// field describes one known property and, when the value is structured, the
// entity of the value (or of the list elements).
type field struct {
	entity string
	list   bool
}

var scalar = field{}

// criterionKinds names the tagged criterion variants.
var criterionKinds = map[string]bool{
	"ConditionOccurrence": true, "ConditionEra": true, "DrugExposure": true,
	"DrugEra": true, "DoseEra": true, "VisitOccurrence": true, "VisitDetail": true,
	"Measurement": true, "Observation": true, "ObservationPeriod": true,
	"ProcedureOccurrence": true, "DeviceExposure": true, "Death": true,
	"Specimen": true, "PayerPlanPeriod": true,
}

// entities maps entity name to its known wire properties.
var entities = map[string]map[string]field{
	"CohortExpression": {
		"cdmVersionRange":    scalar,
		"Title":              scalar,
		"PrimaryCriteria":    {entity: "PrimaryCriteria"},
		"AdditionalCriteria": {entity: "CriteriaGroup"},
		"ConceptSets":        {entity: "ConceptSet", list: true},
		"QualifiedLimit":     {entity: "ResultLimit"},
		"ExpressionLimit":    {entity: "ResultLimit"},
		"InclusionRules":     {entity: "InclusionRule", list: true},
		"EndStrategy":        {entity: "EndStrategy"},
		"CensoringCriteria":  {entity: "CriterionEnvelope", list: true},
		"CollapseSettings":   {entity: "CollapseSettings"},
		"CensorWindow":       {entity: "Period"},
	},
	"PrimaryCriteria": {
		"CriteriaList":         {entity: "CriterionEnvelope", list: true},
		"ObservationWindow":    {entity: "ObservationFilter"},
		"PrimaryCriteriaLimit": {entity: "ResultLimit"},
	},
	"ResultLimit":       {"Type": scalar},
	"ObservationFilter": {"PriorDays": scalar, "PostDays": scalar},
	"InclusionRule": {
		"name": scalar, "Name": scalar,
		"description": scalar, "Description": scalar,
		"expression": {entity: "CriteriaGroup"}, "Expression": {entity: "CriteriaGroup"},
	},
	"CriteriaGroup": {
		"Type":                    scalar,
		"Count":                   scalar,
		"CriteriaList":            {entity: "CorrelatedCriteria", list: true},
		"DemographicCriteriaList": {entity: "DemographicCriteria", list: true},
		"Groups":                  {entity: "CriteriaGroup", list: true},
	},
	"CorrelatedCriteria": {
		"Criteria":                {entity: "CriterionEnvelope"},
		"StartWindow":             {entity: "Window"},
		"EndWindow":               {entity: "Window"},
		"Occurrence":              {entity: "Occurrence"},
		"RestrictVisit":           scalar,
		"IgnoreObservationPeriod": scalar,
	},
	"Window": {
		"Start":       {entity: "Endpoint"},
		"End":         {entity: "Endpoint"},
		"UseIndexEnd": scalar,
		"UseEventEnd": scalar,
	},
	"Endpoint":   {"Days": scalar, "Coeff": scalar},
	"Occurrence": {"Type": scalar, "Count": scalar, "IsDistinct": scalar, "CountColumn": scalar},
	"DemographicCriteria": {
		"Age":                 {entity: "NumericRange"},
		"Gender":              {entity: "Concept", list: true},
		"GenderCS":            {entity: "ConceptSetSelection"},
		"Race":                {entity: "Concept", list: true},
		"RaceCS":              {entity: "ConceptSetSelection"},
		"Ethnicity":           {entity: "Concept", list: true},
		"EthnicityCS":         {entity: "ConceptSetSelection"},
		"OccurrenceStartDate": {entity: "DateRange"},
		"OccurrenceEndDate":   {entity: "DateRange"},
	},
	"EndStrategy": {
		"DateOffset": {entity: "DateOffsetStrategy"},
		"CustomEra":  {entity: "CustomEraStrategy"},
	},
	"DateOffsetStrategy": {"DateField": scalar, "Offset": scalar},
	"CustomEraStrategy": {
		"DrugCodesetId": scalar, "GapDays": scalar, "Offset": scalar, "DaysSupplyOverride": scalar,
	},
	"CollapseSettings":    {"CollapseType": scalar, "EraPad": scalar},
	"Period":              {"StartDate": scalar, "EndDate": scalar},
	"NumericRange":        {"Value": scalar, "Op": scalar, "Extent": scalar},
	"DateRange":           {"Value": scalar, "Op": scalar, "Extent": scalar},
	"TextFilter":          {"Text": scalar, "Op": scalar},
	"ConceptSetSelection": {"CodesetId": scalar, "IsExclusion": scalar},
	"DateAdjustment":      {"StartWith": scalar, "StartOffset": scalar, "EndWith": scalar, "EndOffset": scalar},
	"UserDefinedPeriod":   {"StartDate": scalar, "EndDate": scalar},
	"Concept": {
		"CONCEPT_ID": scalar, "CONCEPT_NAME": scalar, "STANDARD_CONCEPT": scalar,
		"STANDARD_CONCEPT_CAPTION": scalar, "INVALID_REASON": scalar,
		"INVALID_REASON_CAPTION": scalar, "CONCEPT_CODE": scalar, "DOMAIN_ID": scalar,
		"VOCABULARY_ID": scalar, "CONCEPT_CLASS_ID": scalar,
	},
	"ConceptSet": {
		"id": scalar, "name": scalar,
		"expression": {entity: "ConceptSetExpression"},
	},
	"ConceptSetExpression": {
		"items": {entity: "ConceptSetItem", list: true},
	},
	"ConceptSetItem": {
		"concept":            {entity: "Concept"},
		"isExcluded":         scalar,
		"includeDescendants": scalar,
		"includeMapped":      scalar,
	},
}

// criterionFields collects the shared and per-kind criterion properties.
// All kinds share the base plus their own fields; keeping one map per kind
// would restate the base fifteen times.
var criterionBase = map[string]field{
	"CorrelatedCriteria": {entity: "CriteriaGroup"},
	"DateAdjustment":     {entity: "DateAdjustment"},
	"CodesetId":          scalar,
	"First":              scalar,
}

var criterionFields = map[string]map[string]field{
	"ConditionOccurrence": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"ConditionType": {entity: "Concept", list: true}, "ConditionTypeCS": {entity: "ConceptSetSelection"},
		"ConditionTypeExclude": scalar, "StopReason": {entity: "TextFilter"},
		"ConditionSourceConcept": scalar,
		"Age":                    {entity: "NumericRange"},
		"Gender":                 {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"VisitSourceConcept": scalar,
		"ConditionStatus":    {entity: "Concept", list: true}, "ConditionStatusCS": {entity: "ConceptSetSelection"},
	},
	"ConditionEra": {
		"EraStartDate": {entity: "DateRange"}, "EraEndDate": {entity: "DateRange"},
		"OccurrenceCount": {entity: "NumericRange"}, "EraLength": {entity: "NumericRange"},
		"AgeAtStart": {entity: "NumericRange"}, "AgeAtEnd": {entity: "NumericRange"},
		"Gender": {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
	},
	"DrugExposure": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"DrugType": {entity: "Concept", list: true}, "DrugTypeCS": {entity: "ConceptSetSelection"},
		"DrugTypeExclude": scalar,
		"RouteConcept":    {entity: "Concept", list: true}, "RouteConceptCS": {entity: "ConceptSetSelection"},
		"EffectiveDrugDose": {entity: "NumericRange"},
		"DoseUnit":          {entity: "Concept", list: true}, "DoseUnitCS": {entity: "ConceptSetSelection"},
		"Quantity": {entity: "NumericRange"}, "DaysSupply": {entity: "NumericRange"},
		"Refills":    {entity: "NumericRange"},
		"StopReason": {entity: "TextFilter"}, "LotNumber": {entity: "TextFilter"},
		"Age":    {entity: "NumericRange"},
		"Gender": {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"DrugSourceConcept": scalar,
	},
	"DrugEra": {
		"EraStartDate": {entity: "DateRange"}, "EraEndDate": {entity: "DateRange"},
		"OccurrenceCount": {entity: "NumericRange"}, "EraLength": {entity: "NumericRange"},
		"GapDays":    {entity: "NumericRange"},
		"AgeAtStart": {entity: "NumericRange"}, "AgeAtEnd": {entity: "NumericRange"},
		"Gender": {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
	},
	"DoseEra": {
		"EraStartDate": {entity: "DateRange"}, "EraEndDate": {entity: "DateRange"},
		"Unit": {entity: "Concept", list: true}, "UnitCS": {entity: "ConceptSetSelection"},
		"DoseValue": {entity: "NumericRange"}, "EraLength": {entity: "NumericRange"},
		"AgeAtStart": {entity: "NumericRange"}, "AgeAtEnd": {entity: "NumericRange"},
		"Gender": {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
	},
	"VisitOccurrence": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"VisitTypeExclude":   scalar,
		"VisitSourceConcept": scalar,
		"VisitLength":        {entity: "NumericRange"},
		"Age":                {entity: "NumericRange"},
		"Gender":             {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"PlaceOfService": {entity: "Concept", list: true}, "PlaceOfServiceCS": {entity: "ConceptSetSelection"},
		"PlaceOfServiceLocation": scalar,
	},
	"VisitDetail": {
		"VisitDetailStartDate": {entity: "DateRange"}, "VisitDetailEndDate": {entity: "DateRange"},
		"VisitDetailTypeCS":        {entity: "ConceptSetSelection"},
		"VisitDetailSourceConcept": scalar,
		"VisitDetailLength":        {entity: "NumericRange"},
		"Age":                      {entity: "NumericRange"},
		"GenderCS":                 {entity: "ConceptSetSelection"},
		"ProviderSpecialtyCS":      {entity: "ConceptSetSelection"},
		"PlaceOfServiceCS":         {entity: "ConceptSetSelection"},
		"PlaceOfServiceLocation":   scalar,
	},
	"Measurement": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"MeasurementType": {entity: "Concept", list: true}, "MeasurementTypeCS": {entity: "ConceptSetSelection"},
		"MeasurementTypeExclude": scalar,
		"Operator":               {entity: "Concept", list: true}, "OperatorCS": {entity: "ConceptSetSelection"},
		"OperatorConcept": {entity: "Concept", list: true}, "OperatorConceptCS": {entity: "ConceptSetSelection"},
		"ValueAsNumber":  {entity: "NumericRange"},
		"ValueAsConcept": {entity: "Concept", list: true}, "ValueAsConceptCS": {entity: "ConceptSetSelection"},
		"Unit": {entity: "Concept", list: true}, "UnitCS": {entity: "ConceptSetSelection"},
		"RangeLow": {entity: "NumericRange"}, "RangeHigh": {entity: "NumericRange"},
		"RangeLowRatio": {entity: "NumericRange"}, "RangeHighRatio": {entity: "NumericRange"},
		"Abnormal": scalar,
		"Age":      {entity: "NumericRange"},
		"Gender":   {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"MeasurementSourceConcept": scalar,
	},
	"Observation": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"ObservationType": {entity: "Concept", list: true}, "ObservationTypeCS": {entity: "ConceptSetSelection"},
		"ObservationTypeExclude": scalar,
		"Qualifier":              {entity: "Concept", list: true}, "QualifierCS": {entity: "ConceptSetSelection"},
		"Unit": {entity: "Concept", list: true}, "UnitCS": {entity: "ConceptSetSelection"},
		"ValueAsNumber":  {entity: "NumericRange"},
		"ValueAsConcept": {entity: "Concept", list: true}, "ValueAsConceptCS": {entity: "ConceptSetSelection"},
		"ValueAsString": {entity: "TextFilter"},
		"Age":           {entity: "NumericRange"},
		"Gender":        {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"ObservationSourceConcept": scalar,
	},
	"ObservationPeriod": {
		"PeriodStartDate": {entity: "DateRange"}, "PeriodEndDate": {entity: "DateRange"},
		"UserDefinedPeriod": {entity: "UserDefinedPeriod"},
		"PeriodType":        {entity: "Concept", list: true}, "PeriodTypeCS": {entity: "ConceptSetSelection"},
		"PeriodLength": {entity: "NumericRange"},
		"AgeAtStart":   {entity: "NumericRange"}, "AgeAtEnd": {entity: "NumericRange"},
	},
	"ProcedureOccurrence": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"ProcedureType": {entity: "Concept", list: true}, "ProcedureTypeCS": {entity: "ConceptSetSelection"},
		"ProcedureTypeExclude": scalar,
		"Modifier":             {entity: "Concept", list: true}, "ModifierCS": {entity: "ConceptSetSelection"},
		"Quantity": {entity: "NumericRange"},
		"Age":      {entity: "NumericRange"},
		"Gender":   {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"ProcedureSourceConcept": scalar,
	},
	"DeviceExposure": {
		"OccurrenceStartDate": {entity: "DateRange"}, "OccurrenceEndDate": {entity: "DateRange"},
		"DeviceType": {entity: "Concept", list: true}, "DeviceTypeCS": {entity: "ConceptSetSelection"},
		"DeviceTypeExclude": scalar,
		"Quantity":          {entity: "NumericRange"},
		"UniqueDeviceId":    {entity: "TextFilter"},
		"Age":               {entity: "NumericRange"},
		"Gender":            {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"ProviderSpecialty": {entity: "Concept", list: true}, "ProviderSpecialtyCS": {entity: "ConceptSetSelection"},
		"VisitType": {entity: "Concept", list: true}, "VisitTypeCS": {entity: "ConceptSetSelection"},
		"DeviceSourceConcept": scalar,
	},
	"Death": {
		"OccurrenceStartDate": {entity: "DateRange"},
		"DeathType":           {entity: "Concept", list: true}, "DeathTypeCS": {entity: "ConceptSetSelection"},
		"DeathTypeExclude":   scalar,
		"DeathSourceConcept": scalar,
		"Age":                {entity: "NumericRange"},
		"Gender":             {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
	},
	"Specimen": {
		"OccurrenceStartDate": {entity: "DateRange"},
		"SpecimenType":        {entity: "Concept", list: true}, "SpecimenTypeCS": {entity: "ConceptSetSelection"},
		"SpecimenTypeExclude": scalar,
		"Quantity":            {entity: "NumericRange"},
		"Unit":                {entity: "Concept", list: true}, "UnitCS": {entity: "ConceptSetSelection"},
		"AnatomicSite": {entity: "Concept", list: true}, "AnatomicSiteCS": {entity: "ConceptSetSelection"},
		"DiseaseStatus": {entity: "Concept", list: true}, "DiseaseStatusCS": {entity: "ConceptSetSelection"},
		"SourceId":              {entity: "TextFilter"},
		"SpecimenSourceConcept": scalar,
		"Age":                   {entity: "NumericRange"},
		"Gender":                {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
	},
	"PayerPlanPeriod": {
		"PeriodStartDate": {entity: "DateRange"}, "PeriodEndDate": {entity: "DateRange"},
		"UserDefinedPeriod": {entity: "UserDefinedPeriod"},
		"PeriodLength":      {entity: "NumericRange"},
		"AgeAtStart":        {entity: "NumericRange"}, "AgeAtEnd": {entity: "NumericRange"},
		"Gender": {entity: "Concept", list: true}, "GenderCS": {entity: "ConceptSetSelection"},
		"PayerConcept": scalar, "PlanConcept": scalar, "SponsorConcept": scalar,
		"StopReasonConcept": scalar, "PayerSourceConcept": scalar, "PlanSourceConcept": scalar,
		"SponsorSourceConcept": scalar, "StopReasonSourceConcept": scalar,
	},
}

// lookup returns the field map for an entity, composing criterion kinds
// from the shared base.
func lookup(entity string) (map[string]field, bool) {
	if criterionKinds[entity] {
		merged := make(map[string]field, len(criterionBase)+len(criterionFields[entity]))
		for k, v := range criterionBase {
			merged[k] = v
		}
		for k, v := range criterionFields[entity] {
			merged[k] = v
		}
		return merged, true
	}
	m, ok := entities[entity]
	return m, ok
}

// Scan parses a raw cohort JSON document and reports every field the
// compiler does not interpret, sorted by path.
func Scan(doc []byte) ([]Finding, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	var findings []Finding
	walkObject("$", "CohortExpression", root, &findings)
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Field < findings[j].Field
	})
	return findings, nil
}

func walkObject(path, entity string, obj map[string]json.RawMessage, findings *[]Finding) {
	fields, known := lookup(entity)
	if !known {
		return
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		spec, ok := fields[key]
		if !ok {
			*findings = append(*findings, Finding{Path: path, Entity: entity, Field: key})
			continue
		}
		if spec.entity == "" {
			continue
		}
		walkValue(path+"."+key, spec, obj[key], findings)
	}
}

func walkValue(path string, spec field, raw json.RawMessage, findings *[]Finding) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" || trimmed == "" {
		return
	}
	if spec.list {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return
		}
		elem := field{entity: spec.entity}
		for i, item := range items {
			walkValue(fmt.Sprintf("%s[%d]", path, i), elem, item, findings)
		}
		return
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return
	}
	if spec.entity == "CriterionEnvelope" {
		for kind, body := range obj {
			if !criterionKinds[kind] {
				*findings = append(*findings, Finding{Path: path, Entity: "CriterionEnvelope", Field: kind})
				continue
			}
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(body, &inner); err != nil {
				continue
			}
			walkObject(path+"."+kind, kind, inner, findings)
		}
		return
	}
	walkObject(path, spec.entity, obj, findings)
}
