package prescription

import (
	"context"
	"fmt"

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

const prescriptionSelect = `
	SELECT p.id, p.consultation_id, p.kind, p.dosage, p.prescribed_at, p.created_at, p.updated_at,
		c.consulted_at, pat.last_name, pat.first_name, pat.age, pr.first_name
	FROM prescriptions p
	JOIN consultations c ON c.id = p.consultation_id
	JOIN appointments a ON a.id = c.appointment_id
	JOIN patients pat ON pat.cin = a.patient_cin
	JOIN practitioners pr ON pr.cin = a.practitioner_cin`

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (consultation_id, kind, dosage, prescribed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		p.ConsultationID, p.Kind, p.Dosage, p.PrescribedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, prescriptionSelect+` WHERE p.id = $1`, id))
}

func (r *repoPG) Lock(ctx context.Context, id int64) (int64, error) {
	var consultationID int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT consultation_id FROM prescriptions WHERE id = $1 FOR UPDATE`, id,
	).Scan(&consultationID)
	return consultationID, err
}

func (r *repoPG) Update(ctx context.Context, id int64, patch *Patch) error {
	var p db.Patch
	p.SetOptional("kind", patch.Kind)
	p.SetOptional("dosage", patch.Dosage)
	if patch.PrescribedAt.Set {
		p.Set("prescribed_at", patch.PrescribedAt.Value.Time)
	}

	sql, args := p.Statement("prescriptions", "id", id)
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
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, consultationID int64) ([]*Prescription, error) {
	q := prescriptionSelect
	var args []any
	if consultationID != 0 {
		q += ` WHERE p.consultation_id = $1`
		args = append(args, consultationID)
	}

	rows, err := r.conn(ctx).Query(ctx, q+` ORDER BY p.prescribed_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(
		&p.ID, &p.ConsultationID, &p.Kind, &p.Dosage, &p.PrescribedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.ConsultedAt, &p.PatientLastName, &p.PatientFirstName, &p.PatientAge, &p.PractitionerFirstName,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
