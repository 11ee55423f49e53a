package encounters

import (
	"strings"
	"testing"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

var stagingDate = day("2015-01-10")

func stagingPatient(extra ...emastercard.Observation) *emastercard.Patient {
	at := stagingDate
	obs := []emastercard.Observation{
		textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptInitialTBStatus, at, "Never > 2years"),
		textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptKS, at, "N"),
		textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptPregnantOrBreastfeeding, at, "Preg"),
	}
	return newPatient(append(obs, extra...)...)
}

func staging(t *testing.T, s *Session, p *emastercard.Patient, errs *errlog.Log) nart.Encounter {
	t.Helper()
	enc, err := s.HIVStaging(p, errs, nart.Encounter{EncounterDatetime: stagingDate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return enc
}

func TestHIVStaging_CD4At250(t *testing.T) {
	s := newSession(defaultLookup())
	errs := errlog.New()
	p := stagingPatient(
		textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWHOStage, stagingDate, "2"),
		numObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptCD4Count, stagingDate, 250),
		dateObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptCD4Date, stagingDate, day("2015-01-02")),
	)

	enc := staging(t, s, p, errs)

	if n := countConcept(enc.Observations, nart.ConceptReasonForARTEligibility); n != 1 {
		t.Fatalf("expected exactly one reason for eligibility, got %d", n)
	}
	reason, _ := findConcept(enc.Observations, nart.ConceptReasonForARTEligibility)
	if reason.Value.Coded != nart.ConceptCD4LE250 {
		t.Errorf("expected CD4 <= 250 as reason, got %d", reason.Value.Coded)
	}
	for _, c := range []int{nart.ConceptCD4LE250, nart.ConceptCD4LE350, nart.ConceptCD4LE500, nart.ConceptCD4LE750} {
		o, ok := findConcept(enc.Observations, c)
		if !ok || o.Value.Coded != nart.ConceptYes {
			t.Errorf("threshold %d: expected yes, got %+v", c, o)
		}
	}
	if _, ok := findConcept(enc.Observations, nart.ConceptCD4Datetime); !ok {
		t.Error("expected CD4 date observation")
	}
	if !errs.Empty() {
		t.Errorf("unexpected errors: %v", errs.Entries())
	}
}

func TestHIVStaging_CD4ThresholdFlags(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(numObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptCD4Count, stagingDate, 400))

	enc := staging(t, s, p, errlog.New())

	want := map[int]int{
		nart.ConceptCD4LE250: nart.ConceptNo,
		nart.ConceptCD4LE350: nart.ConceptNo,
		nart.ConceptCD4LE500: nart.ConceptYes,
		nart.ConceptCD4LE750: nart.ConceptYes,
	}
	for c, v := range want {
		if o, _ := findConcept(enc.Observations, c); o.Value.Coded != v {
			t.Errorf("threshold %d: expected %d, got %d", c, v, o.Value.Coded)
		}
	}
	reason, _ := findConcept(enc.Observations, nart.ConceptReasonForARTEligibility)
	if reason.Value.Coded != nart.ConceptCD4LE500 {
		t.Errorf("expected CD4 <= 500 as reason, got %d", reason.Value.Coded)
	}
}

func TestHIVStaging_Stage3TakesPrecedenceOverCD4(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(
		textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWHOStage, stagingDate, "Stage III"),
		numObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptCD4Count, stagingDate, 100),
	)

	enc := staging(t, s, p, errlog.New())

	reason, _ := findConcept(enc.Observations, nart.ConceptReasonForARTEligibility)
	if reason.Value.Coded != nart.ConceptWHOStage3 {
		t.Errorf("expected adult stage 3 reason, got %d", reason.Value.Coded)
	}
	if n := countConcept(enc.Observations, nart.ConceptReasonForARTEligibility); n != 1 {
		t.Errorf("expected one reason, got %d", n)
	}
}

func TestHIVStaging_PediatricStage3(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWHOStage, stagingDate, "3"))
	p.Person.Birthdate = timePtr(day("2010-01-01"))

	enc := staging(t, s, p, errlog.New())

	reason, _ := findConcept(enc.Observations, nart.ConceptReasonForARTEligibility)
	if reason.Value.Coded != nart.ConceptWHOStage3Peds {
		t.Errorf("expected pediatric stage 3, got %d", reason.Value.Coded)
	}
}

func TestHIVStaging_Stage2WithoutCD4(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWHOStage, stagingDate, "2"))

	enc := staging(t, s, p, errlog.New())

	reason, _ := findConcept(enc.Observations, nart.ConceptReasonForARTEligibility)
	if reason.Value.Coded != nart.ConceptWHOStage2 {
		t.Errorf("expected stage 2 reason, got %d", reason.Value.Coded)
	}
}

func TestHIVStaging_UnknownReason(t *testing.T) {
	s := newSession(defaultLookup())
	errs := errlog.New()

	enc := staging(t, s, stagingPatient(), errs)

	reason, ok := findConcept(enc.Observations, nart.ConceptReasonForARTEligibility)
	if !ok || reason.Value.Coded != nart.ConceptUnknown || reason.Comments == "" {
		t.Errorf("expected commented unknown reason, got %+v", reason)
	}
	if want := "Missing who_stage on 2015-01-10"; errs.Len() != 1 || errs.Entries()[0] != want {
		t.Errorf("expected %q, got %v", want, errs.Entries())
	}
}

func TestHIVStaging_Criteria(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptHIVRelatedDiseases, stagingDate,
		`["Oral candidiasis", "Kaposi's sarcoma", "Something rare", ""]`))

	enc := staging(t, s, p, errlog.New())

	var got []int
	for _, o := range enc.Observations {
		if o.ConceptID == nart.ConceptWHOStagesCriteria {
			got = append(got, o.Value.Coded)
		}
	}
	if len(got) != 3 || got[0] != 5334 || got[1] != nart.ConceptKaposisSarcoma || got[2] != nart.ConceptOther {
		t.Errorf("unexpected criteria: %v", got)
	}
}

func TestHIVStaging_MalformedCriteria(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptHIVRelatedDiseases, stagingDate, `["Oral candidiasis"`))

	_, err := s.HIVStaging(p, errlog.New(), nart.Encounter{EncounterDatetime: stagingDate})
	if err == nil || !strings.Contains(err.Error(), "who staging criteria") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestHIVStaging_TBKSAndPregnancy(t *testing.T) {
	s := newSession(defaultLookup())
	errs := errlog.New()
	p := stagingPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWHOStage, stagingDate, "1"))

	enc := staging(t, s, p, errs)

	if o, _ := findConcept(enc.Observations, nart.ConceptPTBWithinLast2Years); o.Value.Coded != nart.ConceptNo {
		t.Errorf("expected PTB within 2 years = no, got %+v", o)
	}
	if o, _ := findConcept(enc.Observations, nart.ConceptKaposisSarcoma); o.Value.Coded != nart.ConceptNo {
		t.Errorf("expected KS = no, got %+v", o)
	}
	if o, _ := findConcept(enc.Observations, nart.ConceptPatientPregnant); o.Value.Coded != nart.ConceptYes {
		t.Errorf("expected pregnant = yes, got %+v", o)
	}
}

func TestHIVStaging_MaleSkipsPregnancy(t *testing.T) {
	s := newSession(defaultLookup())
	p := stagingPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptWHOStage, stagingDate, "1"))
	p.Person.Gender = strPtr("M")

	enc := staging(t, s, p, errlog.New())

	if countConcept(enc.Observations, nart.ConceptPatientPregnant)+countConcept(enc.Observations, nart.ConceptBreastFeeding) != 0 {
		t.Error("expected no pregnancy observations for a male patient")
	}
}

func TestPregnantOrBreastfeeding(t *testing.T) {
	tests := []struct {
		value   string
		concept int
		coded   int
	}{
		{"BF", nart.ConceptBreastFeeding, nart.ConceptYes},
		{"Preg", nart.ConceptPatientPregnant, nart.ConceptYes},
		{"N", nart.ConceptPatientPregnant, nart.ConceptNo},
		{"blank", nart.ConceptPatientPregnant, nart.ConceptNo},
	}
	for _, tt := range tests {
		p := newPatient(textObs(emastercard.EncounterARTStatusAtInitiation, emastercard.ConceptPregnantOrBreastfeeding, stagingDate, tt.value))
		o, ok := pregnantOrBreastfeeding(p, errlog.New(), stagingDate)
		if !ok || o.ConceptID != tt.concept || o.Value.Coded != tt.coded {
			t.Errorf("%s: unexpected observation %+v", tt.value, o)
		}
	}
}

func TestParseStage(t *testing.T) {
	tests := map[string]int{"1": 1, "Stage 2": 2, "III": 3, "stage iv": 4, "WHO Stage 3": 3}
	for in, want := range tests {
		if got, ok := ParseStage(in); !ok || got != want {
			t.Errorf("ParseStage(%q) = %d, %v; want %d", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "5", "V", "unknown"} {
		if _, ok := ParseStage(in); ok {
			t.Errorf("ParseStage(%q) should fail", in)
		}
	}
}
