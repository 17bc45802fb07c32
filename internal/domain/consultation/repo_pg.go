package consultation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct {
	pool db.DBTX
}

func NewRepo(pool db.DBTX) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.pool)
}

const consultationSelect = `
	SELECT c.id, c.appointment_id, c.consulted_at, c.report, c.created_at, c.updated_at,
		a.date_time, a.patient_cin, a.practitioner_cin,
		COALESCE(pat.first_name, ''), COALESCE(pr.first_name, '')
	FROM consultations c
	JOIN appointments a ON a.id = c.appointment_id
	LEFT JOIN patients pat ON pat.cin = a.patient_cin
	LEFT JOIN practitioners pr ON pr.cin = a.practitioner_cin`

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (appointment_id, consulted_at, report)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		c.AppointmentID, c.ConsultedAt, c.Report,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx, consultationSelect+` WHERE c.id = $1`, id))
}

func (r *repoPG) Lock(ctx context.Context, id int64) (int64, time.Time, error) {
	var (
		appointmentID int64
		at            time.Time
	)
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT appointment_id, consulted_at FROM consultations WHERE id = $1 FOR UPDATE`, id,
	).Scan(&appointmentID, &at)
	return appointmentID, at, err
}

func (r *repoPG) Update(ctx context.Context, id int64, patch *Patch) error {
	var p db.Patch
	p.SetOptional("report", patch.Report)
	p.SetOptional("appointment_id", patch.AppointmentID)
	if patch.ConsultedAt.Set {
		p.Set("consulted_at", patch.ConsultedAt.Value.Time)
	}

	sql, args := p.Statement("consultations", "id", id)
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Consultation, error) {
	var (
		where []string
		args  []any
	)
	if f.PatientCIN != "" {
		args = append(args, f.PatientCIN)
		where = append(where, fmt.Sprintf("a.patient_cin = $%d", len(args)))
	}
	if f.PractitionerCIN != "" {
		args = append(args, f.PractitionerCIN)
		where = append(where, fmt.Sprintf("a.practitioner_cin = $%d", len(args)))
	}
	if f.AppointmentID != 0 {
		args = append(args, f.AppointmentID)
		where = append(where, fmt.Sprintf("c.appointment_id = $%d", len(args)))
	}

	q := consultationSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return r.query(ctx, q+" ORDER BY c.consulted_at DESC", args...)
}

func (r *repoPG) ListWithoutPrescription(ctx context.Context) ([]*Consultation, error) {
	return r.query(ctx, consultationSelect+`
		WHERE NOT EXISTS (SELECT 1 FROM prescriptions p WHERE p.consultation_id = c.id)
		ORDER BY c.consulted_at DESC`)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...any) ([]*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.AppointmentID, &c.ConsultedAt, &c.Report, &c.CreatedAt, &c.UpdatedAt,
		&c.AppointmentAt, &c.PatientCIN, &c.PractitionerCIN,
		&c.PatientFirstName, &c.PractitionerFirstName,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
