package nart

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/emastercard-migration/internal/platform/db"
)

// MigratedComment is stored on observations that carry no comment of their
// own.
const MigratedComment = "Migrated from eMastercard"

type loaderPG struct {
	pool   *pgxpool.Pool
	actor  Actor
	logger zerolog.Logger
	now    func() time.Time
}

func NewLoader(pool *pgxpool.Pool, actor Actor, logger zerolog.Logger) Loader {
	return &loaderPG{pool: pool, actor: actor, logger: logger, now: time.Now}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (l *loaderPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return l.pool
}

func (l *loaderPG) Load(ctx context.Context, p *Patient) error {
	return db.WithTx(ctx, l.pool, func(ctx context.Context) error {
		personID, err := l.insertPerson(ctx, &p.Person)
		if err != nil {
			return fmt.Errorf("person: %w", err)
		}
		if err := l.insertPatient(ctx, personID, p.Identifiers); err != nil {
			return fmt.Errorf("patient %d: %w", personID, err)
		}
		for i := range p.Encounters {
			if err := l.insertEncounter(ctx, personID, &p.Encounters[i]); err != nil {
				return fmt.Errorf("encounter %s: %w", EncounterTypeName(p.Encounters[i].EncounterTypeID), err)
			}
		}
		for i := range p.Programs {
			if err := l.insertProgram(ctx, personID, &p.Programs[i]); err != nil {
				return fmt.Errorf("program: %w", err)
			}
		}
		l.logger.Debug().Int64("source_id", p.SourceID).Int64("patient_id", personID).Msg("patient loaded")
		return nil
	})
}

func (l *loaderPG) insertPerson(ctx context.Context, p *Person) (int64, error) {
	var id int64
	err := l.conn(ctx).QueryRow(ctx, `
		INSERT INTO person (gender, birthdate, birthdate_estimated, creator, date_created, uuid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING person_id`,
		p.Gender, p.Birthdate, boolInt(p.BirthdateEstimated), l.actor.UserID, l.now(), uuid.New(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	for _, n := range p.Names {
		if _, err := l.conn(ctx).Exec(ctx, `
			INSERT INTO person_name (person_id, given_name, family_name, middle_name, preferred, creator, date_created, uuid)
			VALUES ($1, $2, $3, $4, 1, $5, $6, $7)`,
			id, n.GivenName, n.FamilyName, n.MiddleName, l.actor.UserID, l.now(), uuid.New(),
		); err != nil {
			return 0, fmt.Errorf("name: %w", err)
		}
	}

	for _, a := range p.Attributes {
		if a.Value == "" {
			l.logger.Warn().Int64("person_id", id).Int("attribute_type", a.AttributeTypeID).Msg("skipping empty person attribute")
			continue
		}
		if _, err := l.conn(ctx).Exec(ctx, `
			INSERT INTO person_attribute (person_id, person_attribute_type_id, value, creator, date_created, uuid)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, a.AttributeTypeID, a.Value, l.actor.UserID, l.now(), uuid.New(),
		); err != nil {
			return 0, fmt.Errorf("attribute: %w", err)
		}
	}

	for i := range p.Relationships {
		r := &p.Relationships[i]
		related, err := l.insertPerson(ctx, &r.PersonB)
		if err != nil {
			return 0, fmt.Errorf("related person: %w", err)
		}
		if _, err := l.conn(ctx).Exec(ctx, `
			INSERT INTO relationship (person_a, relationship, person_b, creator, date_created, uuid)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, r.RelationshipTypeID, related, l.actor.UserID, l.now(), uuid.New(),
		); err != nil {
			return 0, fmt.Errorf("relationship: %w", err)
		}
	}
	return id, nil
}

func (l *loaderPG) insertPatient(ctx context.Context, personID int64, identifiers []Identifier) error {
	if _, err := l.conn(ctx).Exec(ctx, `
		INSERT INTO patient (patient_id, creator, date_created) VALUES ($1, $2, $3)`,
		personID, l.actor.UserID, l.now(),
	); err != nil {
		return err
	}
	for _, ident := range identifiers {
		if _, err := l.conn(ctx).Exec(ctx, `
			INSERT INTO patient_identifier (patient_id, identifier, identifier_type, preferred, location_id, creator, date_created, uuid)
			VALUES ($1, $2, $3, 1, $4, $5, $6, $7)`,
			personID, ident.Identifier, ident.IdentifierTypeID, l.actor.LocationID, l.actor.UserID, l.now(), uuid.New(),
		); err != nil {
			return fmt.Errorf("identifier: %w", err)
		}
	}
	return nil
}

func (l *loaderPG) insertEncounter(ctx context.Context, patientID int64, e *Encounter) error {
	if e.Empty() {
		l.logger.Warn().Int64("patient_id", patientID).
			Str("encounter_type", EncounterTypeName(e.EncounterTypeID)).
			Time("encounter_datetime", e.EncounterDatetime).
			Msg("skipping empty encounter")
		return nil
	}

	var encounterID int64
	err := l.conn(ctx).QueryRow(ctx, `
		INSERT INTO encounter (encounter_type, patient_id, program_id, provider_id, location_id,
			encounter_datetime, creator, date_created, uuid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING encounter_id`,
		e.EncounterTypeID, patientID, ProgramHIV, l.actor.UserID, l.actor.LocationID,
		e.EncounterDatetime, l.actor.UserID, l.now(), uuid.New(),
	).Scan(&encounterID)
	if err != nil {
		return err
	}

	for i := range e.Observations {
		if err := l.insertObservation(ctx, patientID, encounterID, nil, nil, &e.Observations[i]); err != nil {
			return fmt.Errorf("obs %d: %w", e.Observations[i].ConceptID, err)
		}
	}
	for i := range e.Orders {
		if err := l.insertOrder(ctx, patientID, encounterID, &e.Orders[i]); err != nil {
			return fmt.Errorf("order %d: %w", e.Orders[i].ConceptID, err)
		}
	}
	return nil
}

// obsValues splits an observation value into the obs table's value_coded,
// value_numeric, value_text and value_datetime columns.
func obsValues(v Value) (coded *int, numeric *float64, text *string, datetime *time.Time) {
	switch v.Kind {
	case ValueCoded:
		coded = &v.Coded
	case ValueNumeric:
		numeric = &v.Numeric
	case ValueText:
		text = &v.Text
	case ValueDatetime:
		datetime = &v.Datetime
	}
	return
}

func obsComment(o *Observation) string {
	if o.Comments == "" {
		return MigratedComment
	}
	return o.Comments
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (l *loaderPG) insertObservation(ctx context.Context, patientID, encounterID int64, groupID, orderID *int64, o *Observation) error {
	coded, numeric, text, datetime := obsValues(o.Value)

	var obsID int64
	err := l.conn(ctx).QueryRow(ctx, `
		INSERT INTO obs (person_id, encounter_id, order_id, obs_group_id, concept_id, obs_datetime, location_id,
			value_coded, value_numeric, value_text, value_datetime, value_drug, value_modifier,
			comments, creator, date_created, uuid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING obs_id`,
		patientID, encounterID, orderID, groupID, o.ConceptID, o.ObsDatetime, l.actor.LocationID,
		coded, numeric, text, datetime, o.ValueDrug, nullable(o.ValueModifier),
		obsComment(o), l.actor.UserID, l.now(), uuid.New(),
	).Scan(&obsID)
	if err != nil {
		return err
	}

	for i := range o.Children {
		if err := l.insertObservation(ctx, patientID, encounterID, &obsID, orderID, &o.Children[i]); err != nil {
			return fmt.Errorf("child obs %d: %w", o.Children[i].ConceptID, err)
		}
	}
	return nil
}

func (l *loaderPG) insertOrder(ctx context.Context, patientID, encounterID int64, o *Order) error {
	var orderID int64
	err := l.conn(ctx).QueryRow(ctx, `
		INSERT INTO orders (order_type_id, concept_id, orderer, encounter_id, patient_id, start_date,
			auto_expire_date, accession_number, creator, date_created, uuid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING order_id`,
		o.OrderTypeID, o.ConceptID, l.actor.UserID, encounterID, patientID, o.StartDate,
		o.AutoExpireDate, nullable(o.AccessionNumber), l.actor.UserID, l.now(), uuid.New(),
	).Scan(&orderID)
	if err != nil {
		return err
	}

	if d := o.DrugOrder; d != nil {
		if _, err := l.conn(ctx).Exec(ctx, `
			INSERT INTO drug_order (order_id, drug_inventory_id, dose, frequency, equivalent_daily_dose, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, d.DrugInventoryID, d.Dose, nullable(d.Frequency), d.EquivalentDailyDose, d.Quantity,
		); err != nil {
			return fmt.Errorf("drug order: %w", err)
		}
	}
	if o.Observation != nil {
		if err := l.insertObservation(ctx, patientID, encounterID, nil, &orderID, o.Observation); err != nil {
			return fmt.Errorf("order obs: %w", err)
		}
	}
	return nil
}

func (l *loaderPG) insertProgram(ctx context.Context, patientID int64, p *PatientProgram) error {
	var programID int64
	err := l.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_program (patient_id, program_id, date_enrolled, creator, date_created, uuid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING patient_program_id`,
		patientID, p.ProgramID, p.DateEnrolled, l.actor.UserID, l.now(), uuid.New(),
	).Scan(&programID)
	if err != nil {
		return err
	}

	for _, s := range p.States {
		if _, err := l.conn(ctx).Exec(ctx, `
			INSERT INTO patient_state (patient_program_id, state, start_date, end_date, creator, date_created, uuid)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			programID, s.State, s.StartDate, s.EndDate, l.actor.UserID, l.now(), uuid.New(),
		); err != nil {
			return fmt.Errorf("state %d: %w", s.State, err)
		}
	}
	return nil
}

func (l *loaderPG) SaveSitePrefix(ctx context.Context, prefix string) error {
	_, err := l.conn(ctx).Exec(ctx, `
		INSERT INTO global_property (property, property_value, uuid)
		SELECT 'site_prefix', $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM global_property WHERE property = 'site_prefix')`,
		prefix, uuid.New(),
	)
	return err
}

// AccessionPattern matches "<site>-<n>" and captures n.
func AccessionPattern(site string) string {
	return `^` + regexp.QuoteMeta(site) + `-([0-9]+)$`
}

func (l *loaderPG) MaxAccession(ctx context.Context, site string) (int64, error) {
	var last int64
	pattern := AccessionPattern(site)
	err := l.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(accession_number FROM $1) AS BIGINT)), 0)
		FROM orders WHERE accession_number ~ $1`, pattern).Scan(&last)
	return last, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
