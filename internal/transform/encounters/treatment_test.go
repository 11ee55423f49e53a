package encounters

import (
	"strings"
	"testing"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/domain/reference"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

func TestTreatment_Regimen4A(t *testing.T) {
	s := newSession(defaultLookup())
	errs := errlog.New()
	visit := &emastercard.Visit{EncounterDatetime: day("2015-06-01"), ARTRegimen: strPtr("4A"), Weight: floatPtr(25)}

	enc := s.Treatment(newPatient(), errs, visit)

	if len(enc.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(enc.Orders))
	}
	drugs := []int{enc.Orders[0].DrugOrder.DrugInventoryID, enc.Orders[1].DrugOrder.DrugInventoryID}
	if drugs[0] != 736 || drugs[1] != 30 {
		t.Errorf("expected [736 30], got %v", drugs)
	}
	if enc.Orders[0].ConceptID != 10736 {
		t.Errorf("expected drug concept, got %d", enc.Orders[0].ConceptID)
	}
	if d := enc.Orders[0].DrugOrder.EquivalentDailyDose; d == nil || *d != 2 {
		t.Errorf("expected daily dose 2, got %v", d)
	}
	if d := enc.Orders[0].DrugOrder; d.Dose == nil || *d.Dose != 1 || d.Frequency != nart.FrequencyTwiceADay {
		t.Errorf("expected 1 twice a day, got %v %q", d.Dose, d.Frequency)
	}
	if d := enc.Orders[1].DrugOrder; d.Dose == nil || *d.Dose != 1 || d.Frequency != nart.FrequencyOnceADay {
		t.Errorf("expected an evening-only dose to be 1 once a day, got %v %q", d.Dose, d.Frequency)
	}
	if o, _ := findConcept(enc.Observations, nart.ConceptARVRegimen); o.Value.Text != "4A" {
		t.Errorf("expected regimen observation, got %+v", o)
	}
	if !errs.Empty() {
		t.Errorf("unexpected errors: %v", errs.Entries())
	}
}

func TestTreatment_InvalidRegimen(t *testing.T) {
	s := newSession(defaultLookup())
	errs := errlog.New()
	visit := &emastercard.Visit{EncounterDatetime: day("2015-06-01"), ARTRegimen: strPtr("XYZ"), Weight: floatPtr(25)}

	enc := s.Treatment(newPatient(), errs, visit)

	if len(enc.Orders) != 0 {
		t.Errorf("expected no orders, got %d", len(enc.Orders))
	}
	if errs.Len() != 1 || !strings.Contains(errs.Entries()[0], "XYZ") {
		t.Errorf("expected one error naming the regimen, got %v", errs.Entries())
	}
}

func TestTreatment_WithCPT(t *testing.T) {
	s := newSession(defaultLookup())
	visit := &emastercard.Visit{EncounterDatetime: day("2015-06-01"), ARTRegimen: strPtr("4A"), Weight: floatPtr(25), CPTIPTGiven: strPtr("Yes")}

	enc := s.Treatment(newPatient(), errlog.New(), visit)

	if len(enc.Orders) != 3 || enc.Orders[2].DrugOrder.DrugInventoryID != 576 {
		t.Errorf("expected CPT appended to the ARVs, got %+v", enc.Orders)
	}
}

func TestInitialTreatment(t *testing.T) {
	s := newSession(defaultLookup())
	at := day("2014-01-01")
	p := newPatient(
		textObs(emastercard.EncounterARTConfirmatoryTest, emastercard.ConceptInitialARTRegimen, at, "5A"),
		dateObs(emastercard.EncounterARTConfirmatoryTest, emastercard.ConceptInitialARTRegimenStartDate, at, day("2014-02-01")),
	)

	enc, ok := s.InitialTreatment(p, errlog.New())
	if !ok {
		t.Fatal("expected an initial treatment")
	}
	if !enc.EncounterDatetime.Equal(day("2014-02-01")) {
		t.Errorf("expected regimen start date, got %v", enc.EncounterDatetime)
	}
	if len(enc.Orders) != 1 || enc.Orders[0].DrugOrder.DrugInventoryID != 735 {
		t.Errorf("expected first 5A combination, got %+v", enc.Orders)
	}

	if _, ok := s.InitialTreatment(newPatient(), errlog.New()); ok {
		t.Error("expected no initial treatment without a regimen")
	}
}

func TestDispensing_CompletesOrders(t *testing.T) {
	s := newSession(defaultLookup())
	at := day("2015-06-01")
	p := newPatient(
		numObs(emastercard.EncounterARTVisit, emastercard.ConceptARVsDispensed, at, 60),
		textObs(emastercard.EncounterARTVisit, emastercard.ConceptCPTDispensed, at, "30"),
	)
	visit := &emastercard.Visit{EncounterDatetime: at, ARTRegimen: strPtr("4A"), Weight: floatPtr(25), CPTIPTGiven: strPtr("yes")}
	errs := errlog.New()

	treatment := s.Treatment(p, errs, visit)
	enc := s.Dispensing(p, errs, visit, &treatment)

	if len(enc.Observations) != 3 {
		t.Fatalf("expected 3 dispensations, got %d (%v)", len(enc.Observations), errs.Entries())
	}
	abc := treatment.Orders[0]
	if abc.DrugOrder.Quantity == nil || *abc.DrugOrder.Quantity != 60 {
		t.Errorf("expected quantity 60, got %v", abc.DrugOrder.Quantity)
	}
	if abc.AutoExpireDate == nil || !abc.AutoExpireDate.Equal(day("2015-07-01")) {
		t.Errorf("expected expiry after 30 days, got %v", abc.AutoExpireDate)
	}
	cpt := treatment.Orders[2]
	if cpt.DrugOrder.Quantity == nil || *cpt.DrugOrder.Quantity != 30 {
		t.Errorf("expected CPT quantity from the CPT concept, got %v", cpt.DrugOrder.Quantity)
	}
	o := enc.Observations[0]
	if o.ConceptID != nart.ConceptAmountDispensed || o.ValueDrug == nil || *o.ValueDrug != 736 {
		t.Errorf("unexpected dispensation: %+v", o)
	}
	if !errs.Empty() {
		t.Errorf("unexpected errors: %v", errs.Entries())
	}
}

func TestDispensing_MissingAmount(t *testing.T) {
	s := newSession(defaultLookup())
	at := day("2015-06-01")
	visit := &emastercard.Visit{EncounterDatetime: at, ARTRegimen: strPtr("4A"), Weight: floatPtr(25)}
	errs := errlog.New()

	treatment := s.Treatment(newPatient(), errs, visit)
	enc := s.Dispensing(newPatient(), errs, visit, &treatment)

	if len(enc.Observations) != 0 {
		t.Errorf("expected no dispensations, got %v", enc.Observations)
	}
	if errs.Len() != 2 {
		t.Errorf("expected one error per drug, got %v", errs.Entries())
	}
	if treatment.Orders[0].AutoExpireDate != nil {
		t.Error("expected no expiry without a dispensation")
	}
}

func TestDispensing_SkipsBlankSameDayAmount(t *testing.T) {
	s := newSession(defaultLookup())
	at := day("2015-06-01")
	p := newPatient(
		emastercard.Observation{EncounterType: emastercard.EncounterARTVisit, EncounterDatetime: at, ConceptID: emastercard.ConceptARVsDispensed},
		numObs(emastercard.EncounterARTVisit, emastercard.ConceptARVsDispensed, at, 60),
	)
	visit := &emastercard.Visit{EncounterDatetime: at, ARTRegimen: strPtr("4A"), Weight: floatPtr(25)}
	errs := errlog.New()

	treatment := s.Treatment(p, errs, visit)
	enc := s.Dispensing(p, errs, visit, &treatment)

	if len(enc.Observations) != 2 {
		t.Fatalf("expected both ARVs dispensed, got %d (%v)", len(enc.Observations), errs.Entries())
	}
	if !errs.Empty() {
		t.Errorf("unexpected errors: %v", errs.Entries())
	}
}

func TestSetDose(t *testing.T) {
	tests := []struct {
		name      string
		dose      reference.Dose
		single    float64
		daily     float64
		frequency string
	}{
		{"twice a day", reference.Dose{AM: 1, PM: 1}, 1, 2, nart.FrequencyTwiceADay},
		{"uneven", reference.Dose{AM: 1, PM: 2}, 2, 3, nart.FrequencyTwiceADay},
		{"evening only", reference.Dose{PM: 1.5}, 1.5, 1.5, nart.FrequencyOnceADay},
		{"no dose", reference.Dose{}, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &nart.DrugOrder{}
			setDose(d, tt.dose)
			if *d.Dose != tt.single || *d.EquivalentDailyDose != tt.daily || d.Frequency != tt.frequency {
				t.Errorf("got dose %v daily %v frequency %q", *d.Dose, *d.EquivalentDailyDose, d.Frequency)
			}
		})
	}
}
