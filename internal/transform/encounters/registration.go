package encounters

import (
	"strings"
	"time"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

const (
	daysInYear   = 365
	monthsInYear = 12

	estimatedARTStartComment = "Estimated from eMastercard Clinical Registration ART Initiation Age"
)

// RegistrationDate picks the patient's registration date: the recorded
// clinical registration date, then the first visit, then the earliest
// source encounter, then the patient record's creation date.
func RegistrationDate(src *emastercard.Patient) (time.Time, bool) {
	if o, ok := src.Observations.First(emastercard.ConceptClinicalRegistrationDate, emastercard.EncounterARTRegistration); ok && o.ValueDatetime != nil {
		return *o.ValueDatetime, true
	}
	if len(src.Visits) > 0 {
		return src.Visits[0].EncounterDatetime, true
	}
	if t, ok := src.Observations.Earliest(); ok {
		return t, true
	}
	if src.Row.DateCreated != nil {
		return *src.Row.DateCreated, true
	}
	return time.Time{}, false
}

// Registration marks the patient as new at the registration date.
func (s *Session) Registration(src *emastercard.Patient, errs *errlog.Log) nart.Encounter {
	date, ok := RegistrationDate(src)
	if !ok {
		errs.Add("Missing registration date")
	}
	date = retro(date)

	return nart.Encounter{
		EncounterTypeID:   nart.EncounterRegistration,
		EncounterDatetime: date,
		Observations: []nart.Observation{
			coded(nart.ConceptTypeOfPatient, date, nart.ConceptNewPatient),
		},
	}
}

// ClinicRegistration builds the HIV clinic registration recorded alongside
// registration.
func (s *Session) ClinicRegistration(src *emastercard.Patient, errs *errlog.Log, registration nart.Encounter) nart.Encounter {
	date := retro(registration.EncounterDatetime)
	enc := nart.Encounter{
		EncounterTypeID:   nart.EncounterHIVClinicRegistration,
		EncounterDatetime: date,
	}

	enc.Observations = append(enc.Observations, everRegistered(src, errs, date))
	if o, ok := everReceivedART(src, errs, date); ok {
		enc.Observations = append(enc.Observations, o)
	}
	if o, ok := artStartDate(src, errs, date); ok {
		enc.Observations = append(enc.Observations, o)
	}
	if o, ok := followUpAgreement(src, errs, date); ok {
		enc.Observations = append(enc.Observations, o)
	}
	if o, ok := confirmatoryTest(src, errs, date); ok {
		enc.Observations = append(enc.Observations, o)
	}
	return enc
}

// everRegistered is yes for re-initiations and transfers in. A missing
// registration type is reported but still recorded as no.
func everRegistered(src *emastercard.Patient, errs *errlog.Log, date time.Time) nart.Observation {
	o, ok := src.Observations.First(emastercard.ConceptClinicalRegistrationType, emastercard.EncounterARTRegistration)
	if !ok || o.Text() == "" {
		errs.Missing("clinical_registration_type", date)
		return coded(nart.ConceptEverRegisteredAtARTClinic, date, nart.ConceptNo)
	}
	switch strings.ToLower(o.Text()) {
	case "reinitiation", "transfer in":
		return coded(nart.ConceptEverRegisteredAtARTClinic, date, nart.ConceptYes)
	}
	return coded(nart.ConceptEverRegisteredAtARTClinic, date, nart.ConceptNo)
}

func everReceivedART(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	o, ok := src.Observations.First(emastercard.ConceptEverTakenARVs, emastercard.EncounterARTStatusAtInitiation)
	if !ok || o.Text() == "" {
		errs.Missing("ever_received_art", date)
		return nart.Observation{}, false
	}
	switch strings.ToUpper(o.Text()) {
	case "Y", "YES":
		return coded(nart.ConceptEverReceivedART, date, nart.ConceptYes), true
	case "N", "NO":
		return coded(nart.ConceptEverReceivedART, date, nart.ConceptNo), true
	}
	errs.Invalid("ever_received_art", o.Text(), date)
	return nart.Observation{}, false
}

// artStartDate prefers the recorded start date and otherwise estimates it
// from the age at initiation.
func artStartDate(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	if o, ok := src.Observations.First(emastercard.ConceptClinicalRegistrationARTStart, emastercard.EncounterARTRegistration); ok && o.ValueDatetime != nil {
		return datetime(nart.ConceptDateAntiretroviralsStarted, date, *o.ValueDatetime), true
	}
	if src.Person.Birthdate == nil {
		errs.Addf("Can't estimate art_start_date due to missing birthdate on %s", errlog.FormatDate(date))
		return nart.Observation{}, false
	}

	age, ok := src.Observations.First(emastercard.ConceptARTInitiationAge, emastercard.EncounterARTRegistration)
	if !ok || age.ValueNumeric == nil {
		errs.Missing("art_start_date and initiation_age", date)
		return nart.Observation{}, false
	}
	unit, ok := src.Observations.First(emastercard.ConceptARTInitiationAgeType, emastercard.EncounterARTRegistration)
	if !ok || unit.Text() == "" {
		errs.Missing("initiation_age_type", date)
		return nart.Observation{}, false
	}

	var days float64
	switch strings.ToLower(unit.Text()) {
	case "years":
		days = *age.ValueNumeric * daysInYear
	case "months":
		days = *age.ValueNumeric * daysInYear / monthsInYear
	default:
		errs.Invalid("initiation_age_type", unit.Text(), date)
		return nart.Observation{}, false
	}

	started := retro(*src.Person.Birthdate).AddDate(0, 0, int(days))
	o := datetime(nart.ConceptDateAntiretroviralsStarted, date, started)
	o.Comments = estimatedARTStartComment
	return o, true
}

func followUpAgreement(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	if src.Row.FollowUp == nil || strings.TrimSpace(*src.Row.FollowUp) == "" {
		errs.Missing("follow_up_agreement", date)
		return nart.Observation{}, false
	}
	value := strings.TrimSpace(*src.Row.FollowUp)
	switch strings.ToUpper(value) {
	case "TRUE":
		return coded(nart.ConceptAgreesToFollowUp, date, nart.ConceptYes), true
	case "FALSE":
		return coded(nart.ConceptAgreesToFollowUp, date, nart.ConceptNo), true
	}
	errs.Invalid("follow_up_agreement", value, date)
	return nart.Observation{}, false
}

func confirmatoryTest(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	o, ok := src.Observations.First(emastercard.ConceptConfirmatoryHIVTest, emastercard.EncounterARTConfirmatoryTest)
	if !ok || o.Text() == "" {
		errs.Missing("confirmatory_hiv_test_type", date)
		return nart.Observation{}, false
	}
	text := strings.ToLower(o.Text())
	switch {
	case strings.Contains(text, "pcr"):
		return coded(nart.ConceptConfirmatoryHIVTestType, date, nart.ConceptDNAPCR), true
	case strings.Contains(text, "rapid"):
		return coded(nart.ConceptConfirmatoryHIVTestType, date, nart.ConceptHIVRapidTest), true
	}
	errs.Invalid("confirmatory_hiv_test_type", o.Text(), date)
	return nart.Observation{}, false
}
