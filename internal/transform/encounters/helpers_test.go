package encounters

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/domain/reference"
	"github.com/ehr/emastercard-migration/internal/transform/regimen"
)

type mockLookup struct {
	ingredients map[int][]int
	doses       map[int]reference.Dose
	cpt         []int
}

func (m *mockLookup) RegimenIngredients(idx int, _ float64) []int { return m.ingredients[idx] }
func (m *mockLookup) Dose(drug int, _ float64) (reference.Dose, bool) {
	d, ok := m.doses[drug]
	return d, ok
}
func (m *mockLookup) DrugConcept(drug int) (int, bool) { return drug + 10000, true }
func (m *mockLookup) CPTDrugIDs() []int                { return m.cpt }
func (m *mockLookup) CPTDrug(_ float64) (int, bool) {
	if len(m.cpt) == 0 {
		return 0, false
	}
	return m.cpt[0], true
}
func (m *mockLookup) IsCPT(drug int) bool {
	for _, id := range m.cpt {
		if id == drug {
			return true
		}
	}
	return false
}

func defaultLookup() *mockLookup {
	return &mockLookup{
		ingredients: map[int][]int{4: {736, 30}},
		doses: map[int]reference.Dose{
			736: {AM: 1, PM: 1},
			30:  {AM: 0, PM: 1},
			576: {AM: 1, PM: 0},
		},
		cpt: []int{576},
	}
}

func newSession(l reference.Lookup) *Session {
	return &Session{
		Regimens:   regimen.NewEngine(l, zerolog.Nop()),
		Accessions: NewAccessions(0),
		SiteCode:   "MPC",
		Ages:       DefaultAgePolicy(),
		Logger:     zerolog.Nop(),
	}
}

func strPtr(s string) *string        { return &s }
func floatPtr(f float64) *float64    { return &f }
func timePtr(t time.Time) *time.Time { return &t }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func textObs(enc, concept int, at time.Time, value string) emastercard.Observation {
	return emastercard.Observation{EncounterType: enc, EncounterDatetime: at, ConceptID: concept, ValueText: &value}
}

func numObs(enc, concept int, at time.Time, value float64) emastercard.Observation {
	return emastercard.Observation{EncounterType: enc, EncounterDatetime: at, ConceptID: concept, ValueNumeric: &value}
}

func dateObs(enc, concept int, at, value time.Time) emastercard.Observation {
	return emastercard.Observation{EncounterType: enc, EncounterDatetime: at, ConceptID: concept, ValueDatetime: &value}
}

func newPatient(obs ...emastercard.Observation) *emastercard.Patient {
	return &emastercard.Patient{
		Row:          emastercard.PatientRow{PatientID: 1, FollowUp: strPtr("TRUE")},
		Person:       emastercard.Person{Gender: strPtr("F"), Birthdate: timePtr(day("1990-06-15"))},
		Observations: emastercard.NewObservations(obs),
	}
}

func countConcept(obs []nart.Observation, concept int) int {
	n := 0
	for _, o := range obs {
		if o.ConceptID == concept {
			n++
		}
	}
	return n
}

func findConcept(obs []nart.Observation, concept int) (nart.Observation, bool) {
	for _, o := range obs {
		if o.ConceptID == concept {
			return o, true
		}
	}
	return nart.Observation{}, false
}
