package emastercard

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/emastercard-migration/internal/platform/db"
	"github.com/ehr/emastercard-migration/pkg/pagination"
)

type readerPG struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) Reader {
	return &readerPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *readerPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `patient_id, guardian_name, guardian_phone, patient_phone, follow_up, date_created`

func (r *readerPG) ReadPatients(ctx context.Context, page pagination.Params) ([]PatientRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient
		WHERE voided = 0
		ORDER BY patient_id `+page.SQL())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PatientRow
	for rows.Next() {
		var p PatientRow
		if err := rows.Scan(&p.PatientID, &p.GuardianName, &p.GuardianPhone,
			&p.PatientPhone, &p.FollowUp, &p.DateCreated); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *readerPG) CountPatients(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE voided = 0`).Scan(&total)
	return total, err
}

func (r *readerPG) ReadPerson(ctx context.Context, patientID int64) (*Person, error) {
	var p Person
	var estimated *int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT gender, birthdate, birthdate_estimated FROM person
		WHERE person_id = $1`, patientID).Scan(&p.Gender, &p.Birthdate, &estimated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.BirthdateEstimated = estimated != nil && *estimated != 0
	return &p, nil
}

func (r *readerPG) ReadNames(ctx context.Context, patientID int64) ([]PersonName, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT given_name, family_name, middle_name FROM person_name
		WHERE person_id = $1 AND voided = 0
		ORDER BY person_name_id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PersonName
	for rows.Next() {
		var n PersonName
		if err := rows.Scan(&n.GivenName, &n.FamilyName, &n.MiddleName); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *readerPG) ReadAddresses(ctx context.Context, patientID int64) ([]*string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT city_village FROM person_address
		WHERE person_id = $1
		ORDER BY person_address_id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*string
	for rows.Next() {
		var landmark *string
		if err := rows.Scan(&landmark); err != nil {
			return nil, err
		}
		items = append(items, landmark)
	}
	return items, rows.Err()
}

func (r *readerPG) ReadARVNumber(ctx context.Context, patientID int64) (*string, error) {
	var identifier string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT identifier FROM patient_identifier
		WHERE patient_id = $1 AND identifier_type = $2 AND voided = 0
		ORDER BY patient_identifier_id
		LIMIT 1`, patientID, IdentifierTypeARVNumber).Scan(&identifier)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identifier, nil
}

// visit_outcome_event keeps the eMastercard column names, including the
// space in "side effects" and the misspelt tb_tatus.
const visitCols = `person_id, encounter_datetime, weight, height, art_regimen, pill_count,
	arvs_given_to, cpt_ipt_given_options, "side effects", tb_tatus,
	viral_load_result, viral_load_result_symbol, next_appointment_date`

func (r *readerPG) ReadVisits(ctx context.Context, patientID int64) ([]Visit, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+visitCols+` FROM visit_outcome_event
		WHERE person_id = $1 AND event_type = $2
		ORDER BY encounter_datetime`, patientID, VisitEventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.PersonID, &v.EncounterDatetime, &v.Weight, &v.Height,
			&v.ARTRegimen, &v.PillCount, &v.ARVsGivenTo, &v.CPTIPTGiven,
			&v.SideEffects, &v.TBStatus, &v.ViralLoadResult, &v.ViralLoadSymbol,
			&v.NextAppointmentDate); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *readerPG) ReadObservations(ctx context.Context, patientID int64) ([]Observation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT e.encounter_type, e.encounter_datetime, o.concept_id,
			o.value_text, o.value_numeric, o.value_datetime
		FROM obs o
		JOIN encounter e ON e.encounter_id = o.encounter_id
		WHERE o.person_id = $1 AND o.voided = 0
		ORDER BY e.encounter_datetime, o.obs_id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.EncounterType, &o.EncounterDatetime, &o.ConceptID,
			&o.ValueText, &o.ValueNumeric, &o.ValueDatetime); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
