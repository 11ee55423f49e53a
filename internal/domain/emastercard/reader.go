package emastercard

import (
	"context"
	"fmt"

	"github.com/ehr/emastercard-migration/pkg/pagination"
)

// Reader defines the read side of the eMastercard database.
type Reader interface {
	// ReadPatients returns one page of patient rows ordered by patient_id.
	ReadPatients(ctx context.Context, page pagination.Params) ([]PatientRow, error)
	CountPatients(ctx context.Context) (int, error)
	ReadPerson(ctx context.Context, patientID int64) (*Person, error)
	ReadNames(ctx context.Context, patientID int64) ([]PersonName, error)
	ReadAddresses(ctx context.Context, patientID int64) ([]*string, error)
	ReadARVNumber(ctx context.Context, patientID int64) (*string, error)
	// ReadVisits returns the patient's clinical visits in ascending date order.
	ReadVisits(ctx context.Context, patientID int64) ([]Visit, error)
	ReadObservations(ctx context.Context, patientID int64) ([]Observation, error)
}

// Load reads everything the transformation needs for row into memory.
// A patient without a person record is returned with an empty Person; the
// transformation reports the missing demographics.
func Load(ctx context.Context, r Reader, row PatientRow) (*Patient, error) {
	id := row.PatientID

	person, err := r.ReadPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read person %d: %w", id, err)
	}
	if person == nil {
		person = &Person{}
	}

	names, err := r.ReadNames(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read names %d: %w", id, err)
	}

	addresses, err := r.ReadAddresses(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read addresses %d: %w", id, err)
	}

	arv, err := r.ReadARVNumber(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read arv number %d: %w", id, err)
	}

	visits, err := r.ReadVisits(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read visits %d: %w", id, err)
	}

	obs, err := r.ReadObservations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read observations %d: %w", id, err)
	}

	return &Patient{
		Row:          row,
		Person:       *person,
		Names:        names,
		Addresses:    addresses,
		ARVNumber:    arv,
		Visits:       visits,
		Observations: NewObservations(obs),
	}, nil
}
