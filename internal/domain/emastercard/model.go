package emastercard

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// PatientRow maps to the eMastercard patient table.
type PatientRow struct {
	PatientID     int64      `db:"patient_id" json:"patient_id"`
	GuardianName  *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone *string    `db:"guardian_phone" json:"guardian_phone,omitempty"`
	PatientPhone  *string    `db:"patient_phone" json:"patient_phone,omitempty"`
	FollowUp      *string    `db:"follow_up" json:"follow_up,omitempty"`
	DateCreated   *time.Time `db:"date_created" json:"date_created,omitempty"`
}

// Person maps to the eMastercard person table.
type Person struct {
	Gender             *string    `db:"gender" json:"gender,omitempty"`
	Birthdate          *time.Time `db:"birthdate" json:"birthdate,omitempty"`
	BirthdateEstimated bool       `db:"birthdate_estimated" json:"birthdate_estimated"`
}

// IsFemale reports whether the recorded sex is female.
func (p *Person) IsFemale() bool {
	if p.Gender == nil {
		return false
	}
	g := strings.ToUpper(strings.TrimSpace(*p.Gender))
	return g == "F" || g == "FEMALE"
}

// PersonName maps to person_name.
type PersonName struct {
	GivenName  *string `db:"given_name" json:"given_name,omitempty"`
	FamilyName *string `db:"family_name" json:"family_name,omitempty"`
	MiddleName *string `db:"middle_name" json:"middle_name,omitempty"`
}

// Visit is one row of visit_outcome_event for a clinical visit.
type Visit struct {
	PersonID            int64      `db:"person_id" json:"person_id"`
	EncounterDatetime   time.Time  `db:"encounter_datetime" json:"encounter_datetime"`
	Weight              *float64   `db:"weight" json:"weight,omitempty"`
	Height              *float64   `db:"height" json:"height,omitempty"`
	ARTRegimen          *string    `db:"art_regimen" json:"art_regimen,omitempty"`
	PillCount           *float64   `db:"pill_count" json:"pill_count,omitempty"`
	ARVsGivenTo         *string    `db:"arvs_given_to" json:"arvs_given_to,omitempty"`
	CPTIPTGiven         *string    `db:"cpt_ipt_given_options" json:"cpt_ipt_given_options,omitempty"`
	SideEffects         *string    `db:"side_effects" json:"side_effects,omitempty"`
	TBStatus            *string    `db:"tb_status" json:"tb_status,omitempty"`
	ViralLoadResult     *string    `db:"viral_load_result" json:"viral_load_result,omitempty"`
	ViralLoadSymbol     *string    `db:"viral_load_result_symbol" json:"viral_load_result_symbol,omitempty"`
	NextAppointmentDate *time.Time `db:"next_appointment_date" json:"next_appointment_date,omitempty"`
}

// CPTGiven reports whether the visit flags CPT/IPT as given.
func (v *Visit) CPTGiven() bool {
	return v.CPTIPTGiven != nil && strings.EqualFold(strings.TrimSpace(*v.CPTIPTGiven), "yes")
}

// Observation is an obs row joined with its encounter.
type Observation struct {
	EncounterType     int        `db:"encounter_type" json:"encounter_type"`
	EncounterDatetime time.Time  `db:"encounter_datetime" json:"encounter_datetime"`
	ConceptID         int        `db:"concept_id" json:"concept_id"`
	ValueText         *string    `db:"value_text" json:"value_text,omitempty"`
	ValueNumeric      *float64   `db:"value_numeric" json:"value_numeric,omitempty"`
	ValueDatetime     *time.Time `db:"value_datetime" json:"value_datetime,omitempty"`
}

// HasValue reports whether the observation carries a text or numeric value.
func (o *Observation) HasValue() bool {
	return o.ValueText != nil || o.ValueNumeric != nil
}

// Text returns the trimmed text value or "".
func (o *Observation) Text() string {
	if o.ValueText == nil {
		return ""
	}
	return strings.TrimSpace(*o.ValueText)
}

// Number returns the numeric value, falling back to the leading integer of
// the text value the way eMastercard's free-text amount fields are read.
func (o *Observation) Number() (float64, bool) {
	if o.ValueNumeric != nil {
		return *o.ValueNumeric, true
	}
	text := o.Text()
	end := strings.IndexFunc(text, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == 0 {
		return 0, false
	}
	if end > 0 {
		text = text[:end]
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

// Patient is everything the transformation needs for one source patient.
// It is read once and never mutated afterwards.
type Patient struct {
	Row          PatientRow
	Person       Person
	Names        []PersonName
	Addresses    []*string
	ARVNumber    *string
	Visits       []Visit
	Observations Observations
}

// ID returns the source patient id.
func (p *Patient) ID() int64 { return p.Row.PatientID }

// Observations indexes a patient's obs rows in encounter_datetime order.
type Observations struct {
	rows []Observation
}

// NewObservations sorts rows by encounter datetime (stable) and indexes them.
func NewObservations(rows []Observation) Observations {
	sorted := make([]Observation, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EncounterDatetime.Before(sorted[j].EncounterDatetime)
	})
	return Observations{rows: sorted}
}

// All returns every observation for conceptID in chronological order.
func (o Observations) All(conceptID int) []Observation {
	var out []Observation
	for _, r := range o.rows {
		if r.ConceptID == conceptID {
			out = append(out, r)
		}
	}
	return out
}

// First returns the earliest observation for conceptID within encounterType.
func (o Observations) First(conceptID, encounterType int) (*Observation, bool) {
	for i := range o.rows {
		if o.rows[i].ConceptID == conceptID && o.rows[i].EncounterType == encounterType {
			return &o.rows[i], true
		}
	}
	return nil, false
}

// Find returns the first observation for conceptID that carries any value,
// whatever encounter it was recorded in.
func (o Observations) Find(conceptID int) (*Observation, bool) {
	for i := range o.rows {
		r := &o.rows[i]
		if r.ConceptID == conceptID && (r.HasValue() || r.ValueDatetime != nil) {
			return r, true
		}
	}
	return nil, false
}

// FirstNumeric returns the first numeric value recorded under any of
// conceptIDs within encounterType.
func (o Observations) FirstNumeric(encounterType int, conceptIDs ...int) (float64, bool) {
	for i := range o.rows {
		r := &o.rows[i]
		if r.EncounterType != encounterType || r.ValueNumeric == nil {
			continue
		}
		for _, c := range conceptIDs {
			if r.ConceptID == c {
				return *r.ValueNumeric, true
			}
		}
	}
	return 0, false
}

// InVisits returns the ART visit observations for conceptID that carry a
// value, in chronological order.
func (o Observations) InVisits(conceptID int) []Observation {
	var out []Observation
	for _, r := range o.rows {
		if r.ConceptID == conceptID && r.EncounterType == EncounterARTVisit && r.HasValue() {
			out = append(out, r)
		}
	}
	return out
}

// OnDate returns the first valued ART visit observation for conceptID
// recorded on the same calendar day as date.
func (o Observations) OnDate(conceptID int, date time.Time) (*Observation, bool) {
	for i := range o.rows {
		r := &o.rows[i]
		if r.ConceptID != conceptID || r.EncounterType != EncounterARTVisit || !r.HasValue() && r.ValueDatetime == nil {
			continue
		}
		if SameDay(r.EncounterDatetime, date) {
			return r, true
		}
	}
	return nil, false
}

// Earliest returns the datetime of the first encounter of any kind.
func (o Observations) Earliest() (time.Time, bool) {
	if len(o.rows) == 0 {
		return time.Time{}, false
	}
	return o.rows[0].EncounterDatetime, true
}

// SameDay compares calendar days.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
