package encounters

import (
	"strings"
	"time"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/domain/reference"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

// Treatment prescribes the visit's regimen and, when CPT/IPT was given,
// cotrimoxazole. Each drug becomes one drug order with its weight banded
// dose.
func (s *Session) Treatment(src *emastercard.Patient, errs *errlog.Log, visit *emastercard.Visit) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	drugs := s.Regimens.ARVs(visit.ARTRegimen, visit.Weight, date, errs)
	if visit.CPTGiven() {
		if cpt, ok := s.Regimens.CPT(visit.Weight, date, errs); ok {
			drugs = append(drugs, cpt)
		}
	}
	return s.treatment(visit.ARTRegimen, drugs, visit.Weight, date)
}

// InitialTreatment prescribes the initial regimen recorded with the
// confirmatory test. It reports false when the regimen or its start date is
// missing.
func (s *Session) InitialTreatment(src *emastercard.Patient, errs *errlog.Log) (nart.Encounter, bool) {
	code, ok := src.Observations.First(emastercard.ConceptInitialARTRegimen, emastercard.EncounterARTConfirmatoryTest)
	if !ok || code.Text() == "" {
		return nart.Encounter{}, false
	}
	date, ok := InitialRegimenDate(src)
	if !ok {
		return nart.Encounter{}, false
	}

	regimen := code.Text()
	drugs := s.Regimens.ARVs(&regimen, nil, date, errs)
	return s.treatment(&regimen, drugs, nil, date), true
}

// InitialRegimenDate returns the recorded start date of the initial
// regimen, truncated to the day.
func InitialRegimenDate(src *emastercard.Patient) (time.Time, bool) {
	started, ok := src.Observations.First(emastercard.ConceptInitialARTRegimenStartDate, emastercard.EncounterARTConfirmatoryTest)
	if !ok || started.ValueDatetime == nil {
		return time.Time{}, false
	}
	return retro(*started.ValueDatetime), true
}

func (s *Session) treatment(regimen *string, drugs []int, weight *float64, date time.Time) nart.Encounter {
	enc := nart.Encounter{EncounterTypeID: nart.EncounterTreatment, EncounterDatetime: date}

	if regimen != nil && strings.TrimSpace(*regimen) != "" {
		enc.Observations = append(enc.Observations, nart.Observation{
			ConceptID:   nart.ConceptARVRegimen,
			ObsDatetime: date,
			Value:       nart.Text(strings.TrimSpace(*regimen)),
		})
	}

	for _, drug := range drugs {
		detail := &nart.DrugOrder{DrugInventoryID: drug}
		if dose, ok := s.Regimens.Dose(drug, weight); ok {
			setDose(detail, dose)
		}
		enc.Orders = append(enc.Orders, nart.Order{
			OrderTypeID: nart.OrderTypeDrug,
			ConceptID:   s.Regimens.DrugConcept(drug),
			StartDate:   date,
			DrugOrder:   detail,
		})
	}
	return enc
}

// Dispensing records the amount dispensed for every order of treatment and
// completes those orders with the quantity and, given a daily dose, the
// date the pills run out. Orders without a recorded amount are reported and
// left without a dispensation.
func (s *Session) Dispensing(src *emastercard.Patient, errs *errlog.Log, visit *emastercard.Visit, treatment *nart.Encounter) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	enc := nart.Encounter{EncounterTypeID: nart.EncounterDispensing, EncounterDatetime: date}

	for i := range treatment.Orders {
		order := &treatment.Orders[i]
		if order.DrugOrder == nil {
			continue
		}
		drug := order.DrugOrder.DrugInventoryID

		concept := emastercard.ConceptARVsDispensed
		if s.Regimens.IsCPT(drug) {
			concept = emastercard.ConceptCPTDispensed
		}

		var amount float64
		var found bool
		if o, ok := src.Observations.OnDate(concept, visit.EncounterDatetime); ok {
			amount, found = o.Number()
		}
		if !found {
			errs.Addf("Missing amount dispensed for drug #%d on %s", drug, errlog.FormatDate(date))
			continue
		}

		quantity := amount
		order.DrugOrder.Quantity = &quantity
		if daily := order.DrugOrder.EquivalentDailyDose; daily != nil && *daily > 0 {
			expires := order.StartDate.AddDate(0, 0, int(amount / *daily))
			order.AutoExpireDate = &expires
		}

		valueDrug := drug
		enc.Observations = append(enc.Observations, nart.Observation{
			ConceptID:   nart.ConceptAmountDispensed,
			ObsDatetime: date,
			Value:       nart.Numeric(amount),
			ValueDrug:   &valueDrug,
		})
	}
	return enc
}

// Appointment copies the next appointment date. Visits without one simply
// produce an empty encounter.
func (s *Session) Appointment(src *emastercard.Patient, errs *errlog.Log, visit *emastercard.Visit) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	enc := nart.Encounter{EncounterTypeID: nart.EncounterAppointment, EncounterDatetime: date}

	next := visit.NextAppointmentDate
	if next == nil {
		if o, ok := src.Observations.OnDate(emastercard.ConceptNextAppointmentDate, visit.EncounterDatetime); ok {
			next = o.ValueDatetime
		}
	}
	if next != nil {
		enc.Observations = append(enc.Observations, datetime(nart.ConceptNextAppointmentDate, date, *next))
	}
	return enc
}

// setDose records one administration and how often it is taken; morning and
// evening doses that differ keep the larger as the single dose.
func setDose(d *nart.DrugOrder, dose reference.Dose) {
	single := dose.AM
	if dose.PM > single {
		single = dose.PM
	}
	daily := dose.Daily()
	d.Dose = &single
	d.EquivalentDailyDose = &daily
	switch {
	case dose.AM > 0 && dose.PM > 0:
		d.Frequency = nart.FrequencyTwiceADay
	case daily > 0:
		d.Frequency = nart.FrequencyOnceADay
	}
}
