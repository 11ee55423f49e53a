package emastercard

import (
	"context"
	"errors"
	"testing"

	"github.com/ehr/emastercard-migration/pkg/pagination"
)

type mockReader struct {
	person    *Person
	names     []PersonName
	addresses []*string
	arv       *string
	visits    []Visit
	obs       []Observation
	visitsErr error
}

func (m *mockReader) ReadPatients(_ context.Context, _ pagination.Params) ([]PatientRow, error) {
	return nil, nil
}
func (m *mockReader) CountPatients(_ context.Context) (int, error) { return 0, nil }
func (m *mockReader) ReadPerson(_ context.Context, _ int64) (*Person, error) {
	return m.person, nil
}
func (m *mockReader) ReadNames(_ context.Context, _ int64) ([]PersonName, error) {
	return m.names, nil
}
func (m *mockReader) ReadAddresses(_ context.Context, _ int64) ([]*string, error) {
	return m.addresses, nil
}
func (m *mockReader) ReadARVNumber(_ context.Context, _ int64) (*string, error) {
	return m.arv, nil
}
func (m *mockReader) ReadVisits(_ context.Context, _ int64) ([]Visit, error) {
	return m.visits, m.visitsErr
}
func (m *mockReader) ReadObservations(_ context.Context, _ int64) ([]Observation, error) {
	return m.obs, nil
}

func TestLoad_ComposesPatient(t *testing.T) {
	r := &mockReader{
		person: &Person{Gender: ptr("F"), Birthdate: ptr(day("1990-01-01"))},
		names:  []PersonName{{GivenName: ptr("Mary"), FamilyName: ptr("Banda")}},
		arv:    ptr("123"),
		visits: []Visit{{PersonID: 7, EncounterDatetime: day("2020-01-01")}},
		obs: []Observation{
			{EncounterType: EncounterARTVisit, EncounterDatetime: day("2020-01-01"), ConceptID: ConceptOutcome, ValueText: ptr("OT")},
		},
	}

	p, err := Load(context.Background(), r, PatientRow{PatientID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != 7 {
		t.Errorf("expected patient 7, got %d", p.ID())
	}
	if !p.Person.IsFemale() {
		t.Error("expected person to be carried over")
	}
	if len(p.Visits) != 1 || len(p.Observations.All(ConceptOutcome)) != 1 {
		t.Errorf("unexpected visits/observations: %+v", p)
	}
	if p.ARVNumber == nil || *p.ARVNumber != "123" {
		t.Errorf("unexpected ARV number: %v", p.ARVNumber)
	}
}

func TestLoad_MissingPerson(t *testing.T) {
	p, err := Load(context.Background(), &mockReader{}, PatientRow{PatientID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Person.Gender != nil || p.Person.Birthdate != nil {
		t.Errorf("expected empty person, got %+v", p.Person)
	}
}

func TestLoad_ReaderError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := Load(context.Background(), &mockReader{visitsErr: boom}, PatientRow{PatientID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped reader error, got %v", err)
	}
}
