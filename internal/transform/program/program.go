// Package program rebuilds a patient's HIV program timeline from the
// dispensations and outcomes scattered across eMastercard visits.
package program

import (
	"sort"
	"strings"
	"time"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

// Signal is a dated claim that the patient entered a state.
type Signal struct {
	Date  time.Time
	State int
}

var outcomeStates = map[string]int{
	"D":    nart.StateDied,
	"TO":   nart.StateTransferredOut,
	"STOP": nart.StateTreatmentStopped,
	"DEF":  nart.StateDefaulted,
	"OT":   nart.StateOnTreatment,
	"PT":   nart.StatePreART,
}

// OutcomeState maps an eMastercard outcome code onto a NART state.
func OutcomeState(code string) (int, bool) {
	s, ok := outcomeStates[strings.ToUpper(strings.TrimSpace(code))]
	return s, ok
}

// ImplicitSignals infers states from dispensing: every ARV dispensation
// means on treatment, and CPT given before the first ARV dispensation
// means pre-ART from the earliest such date.
func ImplicitSignals(src *emastercard.Patient) []Signal {
	arvs := src.Observations.InVisits(emastercard.ConceptARVsDispensed)

	var signals []Signal
	for _, o := range arvs {
		signals = append(signals, Signal{Date: day(o.EncounterDatetime), State: nart.StateOnTreatment})
	}

	cpt := src.Observations.InVisits(emastercard.ConceptCPTDispensed)
	if len(cpt) > 0 && (len(arvs) == 0 || cpt[0].EncounterDatetime.Before(arvs[0].EncounterDatetime)) {
		preART := Signal{Date: day(cpt[0].EncounterDatetime), State: nart.StatePreART}
		signals = append([]Signal{preART}, signals...)
	}
	return signals
}

// ExplicitSignals reads the recorded outcomes. Unknown codes are reported
// and dropped.
func ExplicitSignals(src *emastercard.Patient, errs *errlog.Log) []Signal {
	var signals []Signal
	for _, o := range src.Observations.All(emastercard.ConceptOutcome) {
		if !o.HasValue() {
			continue
		}
		code := o.Text()
		state, ok := OutcomeState(code)
		if !ok {
			errs.Addf("Invalid outcome '%s' on %s", code, errlog.FormatDate(o.EncounterDatetime))
			continue
		}
		signals = append(signals, Signal{Date: day(o.EncounterDatetime), State: state})
	}
	return signals
}

// Fold orders signals by date, keeping the given order on ties, and turns
// them into consecutive non-overlapping states. A state ends where the next
// one starts; the last one stays open. Repeats of the current state are
// absorbed, and a later signal on a segment's start date replaces it.
func Fold(signals []Signal) []nart.PatientState {
	sorted := append([]Signal(nil), signals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var states []nart.PatientState
	for _, sig := range sorted {
		n := len(states)
		switch {
		case n == 0:
			states = append(states, nart.PatientState{State: sig.State, StartDate: sig.Date})
		case states[n-1].State == sig.State:
			// still in the same state
		case states[n-1].StartDate.Equal(sig.Date):
			states[n-1].State = sig.State
			if n > 1 && states[n-2].State == sig.State {
				states = states[:n-1]
				states[n-2].EndDate = nil
			}
		default:
			end := sig.Date
			states[n-1].EndDate = &end
			states = append(states, nart.PatientState{State: sig.State, StartDate: sig.Date})
		}
	}
	return states
}

// Reconstruct builds the HIV program. Enrollment is the first visit, or the
// first state when there are no visits; without either there is nothing to
// enroll and ok is false.
func Reconstruct(src *emastercard.Patient, errs *errlog.Log) (nart.PatientProgram, bool) {
	signals := append(ImplicitSignals(src), ExplicitSignals(src, errs)...)
	states := Fold(signals)

	var enrolled time.Time
	switch {
	case len(src.Visits) > 0:
		enrolled = day(src.Visits[0].EncounterDatetime)
	case len(states) > 0:
		enrolled = states[0].StartDate
	default:
		return nart.PatientProgram{}, false
	}

	return nart.PatientProgram{
		ProgramID:    nart.ProgramHIV,
		DateEnrolled: enrolled,
		States:       states,
	}, true
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
