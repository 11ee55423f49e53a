package encounters

import (
	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

// InitialVitals records the height and weight taken at ART initiation, dated
// on the ART start date when clinic registration has one.
func (s *Session) InitialVitals(src *emastercard.Patient, errs *errlog.Log, clinicRegistration nart.Encounter) nart.Encounter {
	date := clinicRegistration.EncounterDatetime
	if o, ok := clinicRegistration.Find(nart.ConceptDateAntiretroviralsStarted); ok && o.Value.Kind == nart.ValueDatetime {
		date = o.Value.Datetime
	}
	date = retro(date)

	enc := nart.Encounter{EncounterTypeID: nart.EncounterVitals, EncounterDatetime: date}

	obs := src.Observations
	if h, ok := obs.FirstNumeric(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptHeight1, emastercard.ConceptHeight2); ok {
		enc.Observations = append(enc.Observations, numeric(nart.ConceptHeight, date, h))
	} else {
		errs.Missing("initial height", date)
	}
	if w, ok := obs.FirstNumeric(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWeight1, emastercard.ConceptWeight2); ok {
		enc.Observations = append(enc.Observations, numeric(nart.ConceptWeight, date, w))
	} else {
		errs.Missing("initial weight", date)
	}
	return enc
}

// Vitals records the visit's weight and, on the initial visit or for
// adults, its height.
func (s *Session) Vitals(src *emastercard.Patient, errs *errlog.Log, visit *emastercard.Visit, initial bool) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	enc := nart.Encounter{EncounterTypeID: nart.EncounterVitals, EncounterDatetime: date}

	if visit.Weight != nil {
		enc.Observations = append(enc.Observations, numeric(nart.ConceptWeight, date, *visit.Weight))
	} else {
		errs.Missing("weight", date)
	}

	switch {
	case visit.Height == nil:
		if initial {
			errs.Missing("height", date)
		}
	case initial || s.Ages.IsAdult(src.Person.Birthdate, visit.EncounterDatetime):
		enc.Observations = append(enc.Observations, numeric(nart.ConceptHeight, date, *visit.Height))
	}
	return enc
}
