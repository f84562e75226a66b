package ir

import "encoding/json"

// criterionBase carries the fields shared by every domain criterion.
type criterionBase struct {
	CorrelatedCriteria *CriteriaGroup  `json:"CorrelatedCriteria,omitempty"`
	DateAdjustment     *DateAdjustment `json:"DateAdjustment,omitempty"`
}

func (b *criterionBase) Correlated() *CriteriaGroup { return b.CorrelatedCriteria }

// ConditionOccurrence matches rows of the condition_occurrence table.
type ConditionOccurrence struct {
	criterionBase
	CodesetID              *int64               `json:"CodesetId,omitempty"`
	First                  *bool                `json:"First,omitempty"`
	OccurrenceStartDate    *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate      *DateRange           `json:"OccurrenceEndDate,omitempty"`
	ConditionType          []Concept            `json:"ConditionType,omitempty"`
	ConditionTypeCS        *ConceptSetSelection `json:"ConditionTypeCS,omitempty"`
	ConditionTypeExclude   *bool                `json:"ConditionTypeExclude,omitempty"`
	StopReason             *TextFilter          `json:"StopReason,omitempty"`
	ConditionSourceConcept *SourceConceptFilter `json:"ConditionSourceConcept,omitempty"`
	Age                    *NumericRange        `json:"Age,omitempty"`
	Gender                 []Concept            `json:"Gender,omitempty"`
	GenderCS               *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty      []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS    *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	VisitType              []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS            *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	VisitSourceConcept     *int64               `json:"VisitSourceConcept,omitempty"`
	ConditionStatus        []Concept            `json:"ConditionStatus,omitempty"`
	ConditionStatusCS      *ConceptSetSelection `json:"ConditionStatusCS,omitempty"`
}

func (*ConditionOccurrence) Kind() string { return "ConditionOccurrence" }

// ConditionEra matches rows of the condition_era table.
type ConditionEra struct {
	criterionBase
	CodesetID       *int64               `json:"CodesetId,omitempty"`
	First           *bool                `json:"First,omitempty"`
	EraStartDate    *DateRange           `json:"EraStartDate,omitempty"`
	EraEndDate      *DateRange           `json:"EraEndDate,omitempty"`
	OccurrenceCount *NumericRange        `json:"OccurrenceCount,omitempty"`
	EraLength       *NumericRange        `json:"EraLength,omitempty"`
	AgeAtStart      *NumericRange        `json:"AgeAtStart,omitempty"`
	AgeAtEnd        *NumericRange        `json:"AgeAtEnd,omitempty"`
	Gender          []Concept            `json:"Gender,omitempty"`
	GenderCS        *ConceptSetSelection `json:"GenderCS,omitempty"`
}

func (*ConditionEra) Kind() string { return "ConditionEra" }

// DrugExposure matches rows of the drug_exposure table.
type DrugExposure struct {
	criterionBase
	CodesetID           *int64               `json:"CodesetId,omitempty"`
	First               *bool                `json:"First,omitempty"`
	OccurrenceStartDate *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate   *DateRange           `json:"OccurrenceEndDate,omitempty"`
	DrugType            []Concept            `json:"DrugType,omitempty"`
	DrugTypeCS          *ConceptSetSelection `json:"DrugTypeCS,omitempty"`
	DrugTypeExclude     *bool                `json:"DrugTypeExclude,omitempty"`
	RouteConcept        []Concept            `json:"RouteConcept,omitempty"`
	RouteConceptCS      *ConceptSetSelection `json:"RouteConceptCS,omitempty"`
	EffectiveDrugDose   *NumericRange        `json:"EffectiveDrugDose,omitempty"`
	DoseUnit            []Concept            `json:"DoseUnit,omitempty"`
	DoseUnitCS          *ConceptSetSelection `json:"DoseUnitCS,omitempty"`
	Quantity            *NumericRange        `json:"Quantity,omitempty"`
	DaysSupply          *NumericRange        `json:"DaysSupply,omitempty"`
	Refills             *NumericRange        `json:"Refills,omitempty"`
	StopReason          *TextFilter          `json:"StopReason,omitempty"`
	LotNumber           *TextFilter          `json:"LotNumber,omitempty"`
	Age                 *NumericRange        `json:"Age,omitempty"`
	Gender              []Concept            `json:"Gender,omitempty"`
	GenderCS            *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty   []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	VisitType           []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS         *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	DrugSourceConcept   *SourceConceptFilter `json:"DrugSourceConcept,omitempty"`
}

func (*DrugExposure) Kind() string { return "DrugExposure" }

// DrugEra matches rows of the drug_era table.
type DrugEra struct {
	criterionBase
	CodesetID       *int64               `json:"CodesetId,omitempty"`
	First           *bool                `json:"First,omitempty"`
	EraStartDate    *DateRange           `json:"EraStartDate,omitempty"`
	EraEndDate      *DateRange           `json:"EraEndDate,omitempty"`
	OccurrenceCount *NumericRange        `json:"OccurrenceCount,omitempty"`
	EraLength       *NumericRange        `json:"EraLength,omitempty"`
	GapDays         *NumericRange        `json:"GapDays,omitempty"`
	AgeAtStart      *NumericRange        `json:"AgeAtStart,omitempty"`
	AgeAtEnd        *NumericRange        `json:"AgeAtEnd,omitempty"`
	Gender          []Concept            `json:"Gender,omitempty"`
	GenderCS        *ConceptSetSelection `json:"GenderCS,omitempty"`
}

func (*DrugEra) Kind() string { return "DrugEra" }

// DoseEra matches rows of the dose_era table.
type DoseEra struct {
	criterionBase
	CodesetID    *int64               `json:"CodesetId,omitempty"`
	First        *bool                `json:"First,omitempty"`
	EraStartDate *DateRange           `json:"EraStartDate,omitempty"`
	EraEndDate   *DateRange           `json:"EraEndDate,omitempty"`
	Unit         []Concept            `json:"Unit,omitempty"`
	UnitCS       *ConceptSetSelection `json:"UnitCS,omitempty"`
	DoseValue    *NumericRange        `json:"DoseValue,omitempty"`
	EraLength    *NumericRange        `json:"EraLength,omitempty"`
	AgeAtStart   *NumericRange        `json:"AgeAtStart,omitempty"`
	AgeAtEnd     *NumericRange        `json:"AgeAtEnd,omitempty"`
	Gender       []Concept            `json:"Gender,omitempty"`
	GenderCS     *ConceptSetSelection `json:"GenderCS,omitempty"`
}

func (*DoseEra) Kind() string { return "DoseEra" }

// VisitOccurrence matches rows of the visit_occurrence table.
type VisitOccurrence struct {
	criterionBase
	CodesetID              *int64               `json:"CodesetId,omitempty"`
	First                  *bool                `json:"First,omitempty"`
	OccurrenceStartDate    *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate      *DateRange           `json:"OccurrenceEndDate,omitempty"`
	VisitType              []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS            *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	VisitTypeExclude       *bool                `json:"VisitTypeExclude,omitempty"`
	VisitSourceConcept     *int64               `json:"VisitSourceConcept,omitempty"`
	VisitLength            *NumericRange        `json:"VisitLength,omitempty"`
	Age                    *NumericRange        `json:"Age,omitempty"`
	Gender                 []Concept            `json:"Gender,omitempty"`
	GenderCS               *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty      []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS    *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	PlaceOfService         []Concept            `json:"PlaceOfService,omitempty"`
	PlaceOfServiceCS       *ConceptSetSelection `json:"PlaceOfServiceCS,omitempty"`
	PlaceOfServiceLocation *int64               `json:"PlaceOfServiceLocation,omitempty"`
}

func (*VisitOccurrence) Kind() string { return "VisitOccurrence" }

// VisitDetail matches rows of the visit_detail table.
type VisitDetail struct {
	criterionBase
	CodesetID                *int64               `json:"CodesetId,omitempty"`
	First                    *bool                `json:"First,omitempty"`
	VisitDetailStartDate     *DateRange           `json:"VisitDetailStartDate,omitempty"`
	VisitDetailEndDate       *DateRange           `json:"VisitDetailEndDate,omitempty"`
	VisitDetailTypeCS        *ConceptSetSelection `json:"VisitDetailTypeCS,omitempty"`
	VisitDetailSourceConcept *int64               `json:"VisitDetailSourceConcept,omitempty"`
	VisitDetailLength        *NumericRange        `json:"VisitDetailLength,omitempty"`
	Age                      *NumericRange        `json:"Age,omitempty"`
	GenderCS                 *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialtyCS      *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	PlaceOfServiceCS         *ConceptSetSelection `json:"PlaceOfServiceCS,omitempty"`
	PlaceOfServiceLocation   *int64               `json:"PlaceOfServiceLocation,omitempty"`
}

func (*VisitDetail) Kind() string { return "VisitDetail" }

// Measurement matches rows of the measurement table.
type Measurement struct {
	criterionBase
	CodesetID                *int64               `json:"CodesetId,omitempty"`
	First                    *bool                `json:"First,omitempty"`
	OccurrenceStartDate      *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate        *DateRange           `json:"OccurrenceEndDate,omitempty"`
	MeasurementType          []Concept            `json:"MeasurementType,omitempty"`
	MeasurementTypeCS        *ConceptSetSelection `json:"MeasurementTypeCS,omitempty"`
	MeasurementTypeExclude   *bool                `json:"MeasurementTypeExclude,omitempty"`
	Operator                 []Concept            `json:"Operator,omitempty"`
	OperatorCS               *ConceptSetSelection `json:"OperatorCS,omitempty"`
	ValueAsNumber            *NumericRange        `json:"ValueAsNumber,omitempty"`
	ValueAsConcept           []Concept            `json:"ValueAsConcept,omitempty"`
	ValueAsConceptCS         *ConceptSetSelection `json:"ValueAsConceptCS,omitempty"`
	Unit                     []Concept            `json:"Unit,omitempty"`
	UnitCS                   *ConceptSetSelection `json:"UnitCS,omitempty"`
	RangeLow                 *NumericRange        `json:"RangeLow,omitempty"`
	RangeHigh                *NumericRange        `json:"RangeHigh,omitempty"`
	RangeLowRatio            *NumericRange        `json:"RangeLowRatio,omitempty"`
	RangeHighRatio           *NumericRange        `json:"RangeHighRatio,omitempty"`
	Abnormal                 *bool                `json:"Abnormal,omitempty"`
	Age                      *NumericRange        `json:"Age,omitempty"`
	Gender                   []Concept            `json:"Gender,omitempty"`
	GenderCS                 *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty        []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS      *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	VisitType                []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS              *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	MeasurementSourceConcept *SourceConceptFilter `json:"MeasurementSourceConcept,omitempty"`
}

func (*Measurement) Kind() string { return "Measurement" }

// UnmarshalJSON accepts the historical OperatorConcept/OperatorConceptCS
// aliases alongside the serialized Operator/OperatorCS spellings.
func (m *Measurement) UnmarshalJSON(b []byte) error {
	type alias Measurement
	aux := struct {
		*alias
		OperatorConcept   []Concept            `json:"OperatorConcept"`
		OperatorConceptCS *ConceptSetSelection `json:"OperatorConceptCS"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if len(m.Operator) == 0 && len(aux.OperatorConcept) > 0 {
		m.Operator = aux.OperatorConcept
	}
	if m.OperatorCS == nil && aux.OperatorConceptCS != nil {
		m.OperatorCS = aux.OperatorConceptCS
	}
	return nil
}

// Observation matches rows of the observation table.
type Observation struct {
	criterionBase
	CodesetID                *int64               `json:"CodesetId,omitempty"`
	First                    *bool                `json:"First,omitempty"`
	OccurrenceStartDate      *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate        *DateRange           `json:"OccurrenceEndDate,omitempty"`
	ObservationType          []Concept            `json:"ObservationType,omitempty"`
	ObservationTypeCS        *ConceptSetSelection `json:"ObservationTypeCS,omitempty"`
	ObservationTypeExclude   *bool                `json:"ObservationTypeExclude,omitempty"`
	Qualifier                []Concept            `json:"Qualifier,omitempty"`
	QualifierCS              *ConceptSetSelection `json:"QualifierCS,omitempty"`
	Unit                     []Concept            `json:"Unit,omitempty"`
	UnitCS                   *ConceptSetSelection `json:"UnitCS,omitempty"`
	ValueAsNumber            *NumericRange        `json:"ValueAsNumber,omitempty"`
	ValueAsConcept           []Concept            `json:"ValueAsConcept,omitempty"`
	ValueAsConceptCS         *ConceptSetSelection `json:"ValueAsConceptCS,omitempty"`
	ValueAsString            *TextFilter          `json:"ValueAsString,omitempty"`
	Age                      *NumericRange        `json:"Age,omitempty"`
	Gender                   []Concept            `json:"Gender,omitempty"`
	GenderCS                 *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty        []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS      *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	VisitType                []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS              *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	ObservationSourceConcept *int64               `json:"ObservationSourceConcept,omitempty"`
}

func (*Observation) Kind() string { return "Observation" }

// ObservationPeriod matches rows of the observation_period table.
type ObservationPeriod struct {
	criterionBase
	First             *bool                `json:"First,omitempty"`
	PeriodStartDate   *DateRange           `json:"PeriodStartDate,omitempty"`
	PeriodEndDate     *DateRange           `json:"PeriodEndDate,omitempty"`
	UserDefinedPeriod *UserDefinedPeriod   `json:"UserDefinedPeriod,omitempty"`
	PeriodType        []Concept            `json:"PeriodType,omitempty"`
	PeriodTypeCS      *ConceptSetSelection `json:"PeriodTypeCS,omitempty"`
	PeriodLength      *NumericRange        `json:"PeriodLength,omitempty"`
	AgeAtStart        *NumericRange        `json:"AgeAtStart,omitempty"`
	AgeAtEnd          *NumericRange        `json:"AgeAtEnd,omitempty"`
}

func (*ObservationPeriod) Kind() string { return "ObservationPeriod" }

// ProcedureOccurrence matches rows of the procedure_occurrence table.
type ProcedureOccurrence struct {
	criterionBase
	CodesetID              *int64               `json:"CodesetId,omitempty"`
	First                  *bool                `json:"First,omitempty"`
	OccurrenceStartDate    *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate      *DateRange           `json:"OccurrenceEndDate,omitempty"`
	ProcedureType          []Concept            `json:"ProcedureType,omitempty"`
	ProcedureTypeCS        *ConceptSetSelection `json:"ProcedureTypeCS,omitempty"`
	ProcedureTypeExclude   *bool                `json:"ProcedureTypeExclude,omitempty"`
	Modifier               []Concept            `json:"Modifier,omitempty"`
	ModifierCS             *ConceptSetSelection `json:"ModifierCS,omitempty"`
	Quantity               *NumericRange        `json:"Quantity,omitempty"`
	Age                    *NumericRange        `json:"Age,omitempty"`
	Gender                 []Concept            `json:"Gender,omitempty"`
	GenderCS               *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty      []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS    *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	VisitType              []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS            *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	ProcedureSourceConcept *SourceConceptFilter `json:"ProcedureSourceConcept,omitempty"`
}

func (*ProcedureOccurrence) Kind() string { return "ProcedureOccurrence" }

// DeviceExposure matches rows of the device_exposure table.
type DeviceExposure struct {
	criterionBase
	CodesetID           *int64               `json:"CodesetId,omitempty"`
	First               *bool                `json:"First,omitempty"`
	OccurrenceStartDate *DateRange           `json:"OccurrenceStartDate,omitempty"`
	OccurrenceEndDate   *DateRange           `json:"OccurrenceEndDate,omitempty"`
	DeviceType          []Concept            `json:"DeviceType,omitempty"`
	DeviceTypeCS        *ConceptSetSelection `json:"DeviceTypeCS,omitempty"`
	DeviceTypeExclude   *bool                `json:"DeviceTypeExclude,omitempty"`
	Quantity            *NumericRange        `json:"Quantity,omitempty"`
	UniqueDeviceID      *TextFilter          `json:"UniqueDeviceId,omitempty"`
	Age                 *NumericRange        `json:"Age,omitempty"`
	Gender              []Concept            `json:"Gender,omitempty"`
	GenderCS            *ConceptSetSelection `json:"GenderCS,omitempty"`
	ProviderSpecialty   []Concept            `json:"ProviderSpecialty,omitempty"`
	ProviderSpecialtyCS *ConceptSetSelection `json:"ProviderSpecialtyCS,omitempty"`
	VisitType           []Concept            `json:"VisitType,omitempty"`
	VisitTypeCS         *ConceptSetSelection `json:"VisitTypeCS,omitempty"`
	DeviceSourceConcept *int64               `json:"DeviceSourceConcept,omitempty"`
}

func (*DeviceExposure) Kind() string { return "DeviceExposure" }

// Death matches rows of the death table. The table is keyed on person, so
// the builder synthesizes an ordinal event id.
type Death struct {
	criterionBase
	CodesetID           *int64               `json:"CodesetId,omitempty"`
	OccurrenceStartDate *DateRange           `json:"OccurrenceStartDate,omitempty"`
	DeathType           []Concept            `json:"DeathType,omitempty"`
	DeathTypeCS         *ConceptSetSelection `json:"DeathTypeCS,omitempty"`
	DeathTypeExclude    *bool                `json:"DeathTypeExclude,omitempty"`
	DeathSourceConcept  *int64               `json:"DeathSourceConcept,omitempty"`
	Age                 *NumericRange        `json:"Age,omitempty"`
	Gender              []Concept            `json:"Gender,omitempty"`
	GenderCS            *ConceptSetSelection `json:"GenderCS,omitempty"`
}

func (*Death) Kind() string { return "Death" }

// Specimen matches rows of the specimen table.
type Specimen struct {
	criterionBase
	CodesetID             *int64               `json:"CodesetId,omitempty"`
	First                 *bool                `json:"First,omitempty"`
	OccurrenceStartDate   *DateRange           `json:"OccurrenceStartDate,omitempty"`
	SpecimenType          []Concept            `json:"SpecimenType,omitempty"`
	SpecimenTypeCS        *ConceptSetSelection `json:"SpecimenTypeCS,omitempty"`
	SpecimenTypeExclude   *bool                `json:"SpecimenTypeExclude,omitempty"`
	Quantity              *NumericRange        `json:"Quantity,omitempty"`
	Unit                  []Concept            `json:"Unit,omitempty"`
	UnitCS                *ConceptSetSelection `json:"UnitCS,omitempty"`
	AnatomicSite          []Concept            `json:"AnatomicSite,omitempty"`
	AnatomicSiteCS        *ConceptSetSelection `json:"AnatomicSiteCS,omitempty"`
	DiseaseStatus         []Concept            `json:"DiseaseStatus,omitempty"`
	DiseaseStatusCS       *ConceptSetSelection `json:"DiseaseStatusCS,omitempty"`
	SourceID              *TextFilter          `json:"SourceId,omitempty"`
	SpecimenSourceConcept *int64               `json:"SpecimenSourceConcept,omitempty"`
	Age                   *NumericRange        `json:"Age,omitempty"`
	Gender                []Concept            `json:"Gender,omitempty"`
	GenderCS              *ConceptSetSelection `json:"GenderCS,omitempty"`
}

func (*Specimen) Kind() string { return "Specimen" }

// PayerPlanPeriod matches rows of the payer_plan_period table. The concept
// fields hold codeset ids.
type PayerPlanPeriod struct {
	criterionBase
	First                   *bool                `json:"First,omitempty"`
	PeriodStartDate         *DateRange           `json:"PeriodStartDate,omitempty"`
	PeriodEndDate           *DateRange           `json:"PeriodEndDate,omitempty"`
	UserDefinedPeriod       *UserDefinedPeriod   `json:"UserDefinedPeriod,omitempty"`
	PeriodLength            *NumericRange        `json:"PeriodLength,omitempty"`
	AgeAtStart              *NumericRange        `json:"AgeAtStart,omitempty"`
	AgeAtEnd                *NumericRange        `json:"AgeAtEnd,omitempty"`
	Gender                  []Concept            `json:"Gender,omitempty"`
	GenderCS                *ConceptSetSelection `json:"GenderCS,omitempty"`
	PayerConcept            *int64               `json:"PayerConcept,omitempty"`
	PlanConcept             *int64               `json:"PlanConcept,omitempty"`
	SponsorConcept          *int64               `json:"SponsorConcept,omitempty"`
	StopReasonConcept       *int64               `json:"StopReasonConcept,omitempty"`
	PayerSourceConcept      *int64               `json:"PayerSourceConcept,omitempty"`
	PlanSourceConcept       *int64               `json:"PlanSourceConcept,omitempty"`
	SponsorSourceConcept    *int64               `json:"SponsorSourceConcept,omitempty"`
	StopReasonSourceConcept *int64               `json:"StopReasonSourceConcept,omitempty"`
}

func (*PayerPlanPeriod) Kind() string { return "PayerPlanPeriod" }
