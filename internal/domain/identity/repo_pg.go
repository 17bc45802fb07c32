package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool db.DBTX
}

func NewPatientRepo(pool db.DBTX) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.pool)
}

const patientCols = `cin, last_name, first_name, age, sex, address, phone, email, created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (cin, last_name, first_name, age, sex, address, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.CIN, p.LastName, p.FirstName, p.Age, p.Sex, p.Address, p.Phone, p.Email,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByCIN(ctx context.Context, cin string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE cin = $1`, cin))
}

func (r *patientRepoPG) Update(ctx context.Context, cin string, patch *PatientPatch) error {
	var p db.Patch
	p.SetOptional("last_name", patch.LastName)
	p.SetOptional("first_name", patch.FirstName)
	p.SetOptional("age", patch.Age)
	p.SetOptional("sex", patch.Sex)
	p.SetOptional("address", patch.Address)
	p.SetOptional("phone", patch.Phone)
	p.SetOptional("email", patch.Email)

	sql, args := p.Statement("patients", "cin", cin)
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, cin string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE cin = $1`, cin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, pg pagination.Params) ([]*Patient, error) {
	return r.query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY last_name, first_name`+pg.SQL())
}

func (r *patientRepoPG) Search(ctx context.Context, q string) ([]*Patient, error) {
	return r.query(ctx, `SELECT `+patientCols+` FROM patients
		WHERE cin ILIKE $1 OR last_name ILIKE $1 OR first_name ILIKE $1
		ORDER BY last_name, first_name`, "%"+q+"%")
}

func (r *patientRepoPG) query(ctx context.Context, sql string, args ...any) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.CIN, &p.LastName, &p.FirstName, &p.Age, &p.Sex,
		&p.Address, &p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Practitioner Repository --

type practitionerRepoPG struct {
	pool db.DBTX
}

func NewPractitionerRepo(pool db.DBTX) PractitionerRepository {
	return &practitionerRepoPG{pool: pool}
}

func (r *practitionerRepoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.pool)
}

const practitionerCols = `cin, last_name, first_name, phone, email, specialty, created_at, updated_at`

func (r *practitionerRepoPG) Create(ctx context.Context, p *Practitioner) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO practitioners (cin, last_name, first_name, phone, email, specialty)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.CIN, p.LastName, p.FirstName, p.Phone, p.Email, p.Specialty,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *practitionerRepoPG) GetByCIN(ctx context.Context, cin string) (*Practitioner, error) {
	return scanPractitioner(r.conn(ctx).QueryRow(ctx, `SELECT `+practitionerCols+` FROM practitioners WHERE cin = $1`, cin))
}

func (r *practitionerRepoPG) Update(ctx context.Context, cin string, patch *PractitionerPatch) error {
	var p db.Patch
	p.SetOptional("last_name", patch.LastName)
	p.SetOptional("first_name", patch.FirstName)
	p.SetOptional("phone", patch.Phone)
	p.SetOptional("email", patch.Email)
	p.SetOptional("specialty", patch.Specialty)

	sql, args := p.Statement("practitioners", "cin", cin)
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *practitionerRepoPG) Delete(ctx context.Context, cin string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM practitioners WHERE cin = $1`, cin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *practitionerRepoPG) List(ctx context.Context, pg pagination.Params) ([]*Practitioner, error) {
	return r.query(ctx, `SELECT `+practitionerCols+` FROM practitioners ORDER BY last_name, first_name`+pg.SQL())
}

func (r *practitionerRepoPG) Search(ctx context.Context, q string) ([]*Practitioner, error) {
	return r.query(ctx, `SELECT `+practitionerCols+` FROM practitioners
		WHERE cin ILIKE $1 OR last_name ILIKE $1 OR first_name ILIKE $1 OR specialty ILIKE $1
		ORDER BY last_name, first_name`, "%"+q+"%")
}

func (r *practitionerRepoPG) query(ctx context.Context, sql string, args ...any) ([]*Practitioner, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var practitioners []*Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan practitioner: %w", err)
		}
		practitioners = append(practitioners, p)
	}
	return practitioners, rows.Err()
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(
		&p.CIN, &p.LastName, &p.FirstName, &p.Phone, &p.Email, &p.Specialty,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
