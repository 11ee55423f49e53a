package encounters

import (
	"strconv"
	"strings"
	"time"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

const sideEffectsComment = "Migrated from eMastercard 1.0"

var tbStatuses = map[string]int{
	"RX": nart.ConceptOnTBTreatment,
	"Y":  nart.ConceptTBSuspected,
	"N":  nart.ConceptTBNotSuspected,
	"C":  nart.ConceptTBConfirmedNotOnTreatment,
}

// HIVClinicConsultation records side effects, TB status and, when the visit
// has a viral load result, a lab order carrying it.
func (s *Session) HIVClinicConsultation(src *emastercard.Patient, errs *errlog.Log, visit *emastercard.Visit) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	enc := nart.Encounter{EncounterTypeID: nart.EncounterHIVClinicConsultation, EncounterDatetime: date}

	if o, ok := sideEffects(errs, visit, date); ok {
		enc.Observations = append(enc.Observations, o)
	}
	if o, ok := tbStatus(errs, visit, date); ok {
		enc.Observations = append(enc.Observations, o)
	}
	if order, ok := s.viralLoad(errs, visit, date); ok {
		enc.Orders = append(enc.Orders, order)
	}
	return enc
}

// sideEffects nests the Y/N answer under a side effects group; eMastercard
// does not say which side effect was seen.
func sideEffects(errs *errlog.Log, visit *emastercard.Visit, date time.Time) (nart.Observation, bool) {
	if visit.SideEffects == nil || strings.TrimSpace(*visit.SideEffects) == "" {
		errs.Missing("side_effects", date)
		return nart.Observation{}, false
	}
	value := strings.TrimSpace(*visit.SideEffects)

	var answer int
	switch strings.ToUpper(value) {
	case "Y":
		answer = nart.ConceptYes
	case "N":
		answer = nart.ConceptNo
	default:
		errs.Invalid("side_effects", value, date)
		return nart.Observation{}, false
	}

	child := coded(nart.ConceptUnknown, date, answer)
	child.Comments = sideEffectsComment
	parent := coded(nart.ConceptARTSideEffects, date, nart.ConceptUnknown)
	parent.Children = []nart.Observation{child}
	return parent, true
}

func tbStatus(errs *errlog.Log, visit *emastercard.Visit, date time.Time) (nart.Observation, bool) {
	if visit.TBStatus == nil || strings.TrimSpace(*visit.TBStatus) == "" {
		errs.Missing("tb_status", date)
		return nart.Observation{}, false
	}
	value := strings.TrimSpace(*visit.TBStatus)
	status, ok := tbStatuses[strings.ToUpper(value)]
	if !ok {
		errs.Invalid("tb_status", value, date)
		return nart.Observation{}, false
	}
	return coded(nart.ConceptTBStatus, date, status), true
}

// viralLoad turns a recorded result into a lab order with the result
// attached. LDL (lower than detectable) is kept as text.
func (s *Session) viralLoad(errs *errlog.Log, visit *emastercard.Visit, date time.Time) (nart.Order, bool) {
	if visit.ViralLoadResult == nil || strings.TrimSpace(*visit.ViralLoadResult) == "" {
		return nart.Order{}, false
	}
	raw := strings.TrimSpace(*visit.ViralLoadResult)

	result := nart.Observation{ConceptID: nart.ConceptViralLoad, ObsDatetime: date, ValueModifier: "="}
	if visit.ViralLoadSymbol != nil {
		switch sym := strings.TrimSpace(*visit.ViralLoadSymbol); sym {
		case "<", "=", ">":
			result.ValueModifier = sym
		case "":
		default:
			errs.Invalid("viral_load_result_symbol", sym, date)
		}
	}

	if strings.EqualFold(raw, "LDL") {
		result.Value = nart.Text("LDL")
		result.ValueModifier = "<"
	} else {
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			errs.Invalid("viral_load_result", raw, date)
			return nart.Order{}, false
		}
		result.Value = nart.Numeric(n)
	}

	return nart.Order{
		OrderTypeID:     nart.OrderTypeLab,
		ConceptID:       nart.ConceptViralLoad,
		StartDate:       date,
		AccessionNumber: s.Accessions.Next(s.SiteCode),
		Observation:     &result,
	}, true
}
