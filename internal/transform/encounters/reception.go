package encounters

import (
	"strings"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

// HIVReception records who collected the ARVs: the patient (P) or a
// guardian (G). The two flags are always opposite.
func (s *Session) HIVReception(src *emastercard.Patient, errs *errlog.Log, visit *emastercard.Visit) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	enc := nart.Encounter{EncounterTypeID: nart.EncounterHIVReception, EncounterDatetime: date}

	if visit.ARVsGivenTo == nil || strings.TrimSpace(*visit.ARVsGivenTo) == "" {
		errs.Missing("arvs_given_to", date)
		return enc
	}

	var patientPresent bool
	switch value := strings.TrimSpace(*visit.ARVsGivenTo); strings.ToUpper(value) {
	case "P":
		patientPresent = true
	case "G":
		patientPresent = false
	default:
		errs.Invalid("arvs_given_to", value, date)
		return enc
	}

	enc.Observations = []nart.Observation{
		coded(nart.ConceptPatientPresent, date, yesNo(patientPresent)),
		coded(nart.ConceptGuardianPresent, date, yesNo(!patientPresent)),
	}
	return enc
}
