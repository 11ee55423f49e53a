package encounters

import (
	"github.com/shopspring/decimal"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

// ARTAdherence estimates, per drug dispensed at the previous visit, how
// many of the expected pills were taken:
//
//	rate = (dispensed - pill_count) / (daily_dose * days) * 100
//
// where days is the whole number of days since the previous visit.
// previousTreatment is the treatment encounter built for previous; its
// orders carry the quantities and daily doses.
func (s *Session) ARTAdherence(src *emastercard.Patient, errs *errlog.Log, visit, previous *emastercard.Visit, previousTreatment *nart.Encounter) nart.Encounter {
	date := retro(visit.EncounterDatetime)
	enc := nart.Encounter{EncounterTypeID: nart.EncounterARTAdherence, EncounterDatetime: date}

	if visit.PillCount == nil {
		errs.Missing("pill_count", date)
		return enc
	}
	if previous == nil || previousTreatment == nil {
		return enc
	}
	if previous.Weight == nil {
		errs.Addf("Can't calculate adherence due to missing weight on %s", errlog.FormatDate(previous.EncounterDatetime))
		return enc
	}

	days := int(retro(visit.EncounterDatetime).Sub(retro(previous.EncounterDatetime)).Hours() / 24)
	remaining := *visit.PillCount

	for _, order := range previousTreatment.Orders {
		d := order.DrugOrder
		if d == nil || d.Quantity == nil || d.EquivalentDailyDose == nil {
			continue
		}
		rate, ok := AdherenceRate(*d.Quantity, remaining, *d.EquivalentDailyDose, days)
		if !ok {
			errs.Addf("Can't calculate adherence for drug #%d on %s", d.DrugInventoryID, errlog.FormatDate(date))
			continue
		}
		drug := d.DrugInventoryID
		enc.Observations = append(enc.Observations, nart.Observation{
			ConceptID:   nart.ConceptDrugOrderAdherence,
			ObsDatetime: date,
			Value:       nart.Numeric(rate),
			ValueDrug:   &drug,
		})
	}
	return enc
}

// AdherenceRate returns the percentage of expected pills consumed, rounded
// to two decimals. With nothing expected to be consumed (same day or zero
// dose) the rate is 100 only if nothing was consumed either.
func AdherenceRate(dispensed, remaining, dailyDose float64, days int) (float64, bool) {
	consumed := decimal.NewFromFloat(dispensed).Sub(decimal.NewFromFloat(remaining))
	expected := decimal.NewFromFloat(dailyDose).Mul(decimal.NewFromInt(int64(days)))

	if expected.IsZero() {
		if consumed.IsZero() {
			return 100, true
		}
		return 0, false
	}
	rate := consumed.Div(expected).Mul(decimal.NewFromInt(100)).Round(2)
	return rate.InexactFloat64(), true
}
