// Package patient drives one source patient through the encounter
// transformers and the program reconstructor and assembles the NART record
// handed to the loader.
package patient

import (
	"fmt"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/encounters"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
	"github.com/ehr/emastercard-migration/internal/transform/program"
)

// phase tracks where the assembler is in a patient's visit sequence.
type phase int

const (
	// initialVisit emits the one-off registration, staging and initial
	// vitals encounters before the first visit.
	initialVisit phase = iota
	// followUp adds adherence against the previous visit.
	followUp
)

type Assembler struct {
	session *encounters.Session
}

func NewAssembler(session *encounters.Session) *Assembler {
	return &Assembler{session: session}
}

// Assemble transforms src. Data problems are collected on the returned
// patient's Errors; a returned error means the patient could not be
// transformed at all and nothing should be loaded for it.
func (a *Assembler) Assemble(src *emastercard.Patient) (*nart.Patient, error) {
	a.session.Logger.Debug().Int64("patient_id", src.ID()).Int("visits", len(src.Visits)).Msg("transforming patient")

	errs := errlog.New()
	out := &nart.Patient{
		SourceID:    src.ID(),
		Person:      Person(src, errs),
		Identifiers: Identifiers(src, a.session.SiteCode),
		VisitCount:  len(src.Visits),
	}

	encs, err := a.Encounters(src, errs)
	if err != nil {
		return nil, fmt.Errorf("patient %d: %w", src.ID(), err)
	}
	out.Encounters = encs

	if prog, ok := program.Reconstruct(src, errs); ok {
		out.Programs = []nart.PatientProgram{prog}
	}
	if !errs.Empty() {
		a.session.Logger.Debug().Int64("patient_id", src.ID()).Int("errors", errs.Len()).Msg("patient has data errors")
		out.Errors = errs.Entries()
	}
	return out, nil
}

// Tag identifies src in reports even when it could not be assembled.
func (a *Assembler) Tag(src *emastercard.Patient) string {
	p := nart.Patient{
		Person:      nart.Person{Names: names(src.Names)},
		Identifiers: Identifiers(src, a.session.SiteCode),
	}
	return p.Tag()
}

// Encounters walks the visits in order. The initial step always runs, so a
// patient without visits still gets registration, staging and initial
// vitals from the registration data.
func (a *Assembler) Encounters(src *emastercard.Patient, errs *errlog.Log) ([]nart.Encounter, error) {
	s := a.session

	registration := s.Registration(src, errs)
	clinic := s.ClinicRegistration(src, errs, registration)
	staging, err := s.HIVStaging(src, errs, registration)
	if err != nil {
		return nil, fmt.Errorf("hiv staging: %w", err)
	}
	out := []nart.Encounter{registration, clinic, staging, s.InitialVitals(src, errs, clinic)}

	if a.initialRegimenPrecedesVisits(src) {
		if treatment, ok := s.InitialTreatment(src, errs); ok {
			out = append(out, treatment)
		}
	}

	var (
		previous          *emastercard.Visit
		previousTreatment *nart.Encounter
		step              = initialVisit
	)
	for i := range src.Visits {
		visit := &src.Visits[i]

		if step == followUp {
			out = append(out, s.ARTAdherence(src, errs, visit, previous, previousTreatment))
		}
		out = append(out,
			s.HIVReception(src, errs, visit),
			s.Vitals(src, errs, visit, step == initialVisit),
			s.HIVClinicConsultation(src, errs, visit),
		)

		treatment := s.Treatment(src, errs, visit)
		dispensing := s.Dispensing(src, errs, visit, &treatment)
		out = append(out, treatment, dispensing, s.Appointment(src, errs, visit))

		previous, previousTreatment = visit, &treatment
		step = followUp
	}
	return out, nil
}

func (a *Assembler) initialRegimenPrecedesVisits(src *emastercard.Patient) bool {
	started, ok := encounters.InitialRegimenDate(src)
	if !ok {
		return false
	}
	if len(src.Visits) == 0 {
		return true
	}
	return started.Before(src.Visits[0].EncounterDatetime) && !emastercard.SameDay(started, src.Visits[0].EncounterDatetime)
}
