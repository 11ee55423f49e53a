package nart

import (
	"time"
)

// ValueKind identifies which of an observation's value variants is set.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueCoded
	ValueNumeric
	ValueText
	ValueDatetime
)

// Value holds exactly one of coded, numeric, text or datetime.
type Value struct {
	Kind     ValueKind `json:"kind"`
	Coded    int       `json:"coded,omitempty"`
	Numeric  float64   `json:"numeric,omitempty"`
	Text     string    `json:"text,omitempty"`
	Datetime time.Time `json:"datetime,omitempty"`
}

func Coded(conceptID int) Value  { return Value{Kind: ValueCoded, Coded: conceptID} }
func Numeric(n float64) Value    { return Value{Kind: ValueNumeric, Numeric: n} }
func Text(s string) Value        { return Value{Kind: ValueText, Text: s} }
func Datetime(t time.Time) Value { return Value{Kind: ValueDatetime, Datetime: t} }

// Observation maps to the obs table. Children become rows whose
// obs_group_id points at the parent.
type Observation struct {
	ConceptID     int           `json:"concept_id"`
	ObsDatetime   time.Time     `json:"obs_datetime"`
	Value         Value         `json:"value"`
	ValueDrug     *int          `json:"value_drug,omitempty"`
	ValueModifier string        `json:"value_modifier,omitempty"`
	Comments      string        `json:"comments,omitempty"`
	Children      []Observation `json:"children,omitempty"`
}

// DrugOrder maps to the drug_order table.
type DrugOrder struct {
	DrugInventoryID     int      `json:"drug_inventory_id"`
	Dose                *float64 `json:"dose,omitempty"`
	Frequency           string   `json:"frequency,omitempty"`
	EquivalentDailyDose *float64 `json:"equivalent_daily_dose,omitempty"`
	Quantity            *float64 `json:"quantity,omitempty"`
}

// Order maps to the orders table.
type Order struct {
	OrderTypeID     int          `json:"order_type_id"`
	ConceptID       int          `json:"concept_id"`
	StartDate       time.Time    `json:"start_date"`
	AutoExpireDate  *time.Time   `json:"auto_expire_date,omitempty"`
	AccessionNumber string       `json:"accession_number,omitempty"`
	DrugOrder       *DrugOrder   `json:"drug_order,omitempty"`
	Observation     *Observation `json:"observation,omitempty"`
}

// Encounter groups observations and orders.
type Encounter struct {
	EncounterTypeID   int           `json:"encounter_type_id"`
	EncounterDatetime time.Time     `json:"encounter_datetime"`
	Observations      []Observation `json:"observations,omitempty"`
	Orders            []Order       `json:"orders,omitempty"`
}

// Empty reports whether the encounter carries nothing worth saving.
func (e *Encounter) Empty() bool {
	return len(e.Observations) == 0 && len(e.Orders) == 0
}

// Find returns the first top-level observation for conceptID.
func (e *Encounter) Find(conceptID int) (*Observation, bool) {
	for i := range e.Observations {
		if e.Observations[i].ConceptID == conceptID {
			return &e.Observations[i], true
		}
	}
	return nil, false
}

// PatientState is one segment of a program timeline. A nil EndDate marks
// the current state.
type PatientState struct {
	State     int        `json:"state"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// PatientProgram maps to patient_program with its states.
type PatientProgram struct {
	ProgramID    int            `json:"program_id"`
	DateEnrolled time.Time      `json:"date_enrolled"`
	States       []PatientState `json:"states"`
}

type PersonName struct {
	GivenName  string  `json:"given_name"`
	FamilyName string  `json:"family_name"`
	MiddleName *string `json:"middle_name,omitempty"`
}

type PersonAttribute struct {
	AttributeTypeID int    `json:"person_attribute_type_id"`
	Value           string `json:"value"`
}

// Relationship links the patient (person a) to a newly created person b.
type Relationship struct {
	RelationshipTypeID int    `json:"relationship_type_id"`
	PersonB            Person `json:"person_b"`
}

type Person struct {
	Gender             *string           `json:"gender,omitempty"`
	Birthdate          *time.Time        `json:"birthdate,omitempty"`
	BirthdateEstimated bool              `json:"birthdate_estimated"`
	Names              []PersonName      `json:"names,omitempty"`
	Attributes         []PersonAttribute `json:"attributes,omitempty"`
	Relationships      []Relationship    `json:"relationships,omitempty"`
}

type Identifier struct {
	IdentifierTypeID int    `json:"identifier_type"`
	Identifier       string `json:"identifier"`
}

// Patient is the root aggregate handed to the loader.
type Patient struct {
	SourceID    int64            `json:"source_id"`
	Person      Person           `json:"person"`
	Identifiers []Identifier     `json:"identifiers"`
	Encounters  []Encounter      `json:"encounters"`
	Programs    []PatientProgram `json:"programs"`
	VisitCount  int              `json:"visit_count"`
	Errors      []string         `json:"errors,omitempty"`
}

// Tag identifies the patient in reports: "<ARV number> - <given> <family>".
func (p *Patient) Tag() string {
	var arv, given, family string
	if len(p.Identifiers) > 0 {
		arv = p.Identifiers[0].Identifier
	}
	if len(p.Person.Names) > 0 {
		given = p.Person.Names[0].GivenName
		family = p.Person.Names[0].FamilyName
	}
	return arv + " - " + given + " " + family
}

// MissingVisits reports whether the source had no clinical visits for this
// patient, ie everything was built from registration data alone.
func (p *Patient) MissingVisits() bool {
	return p.VisitCount == 0
}
