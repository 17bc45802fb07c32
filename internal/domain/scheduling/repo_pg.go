package scheduling

import (
	"context"
	"fmt"
	"strings"

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

const appointmentSelect = `
	SELECT a.id, a.patient_cin, a.practitioner_cin, a.date_time, a.status, a.referrer_cin,
		a.created_at, a.updated_at,
		COALESCE(pat.first_name, ''), COALESCE(pat.last_name, ''),
		COALESCE(pr.first_name, ''), COALESCE(pr.last_name, '')
	FROM appointments a
	LEFT JOIN patients pat ON pat.cin = a.patient_cin
	LEFT JOIN practitioners pr ON pr.cin = a.practitioner_cin`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_cin, practitioner_cin, date_time, status, referrer_cin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.PatientCIN, a.PractitionerCIN, a.DateTime, a.Status, a.ReferrerCIN,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, id int64, patch *Patch) error {
	var p db.Patch
	if patch.DateTime.Set {
		p.Set("date_time", patch.DateTime.Value.Time)
	}
	p.SetOptional("status", patch.Status)
	p.SetOptional("patient_cin", patch.PatientCIN)
	p.SetOptional("practitioner_cin", patch.PractitionerCIN)
	p.SetOptional("referrer_cin", patch.ReferrerCIN)

	sql, args := p.Statement("appointments", "id", id)
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
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	add("a.patient_cin = $%d", f.PatientCIN)
	add("a.practitioner_cin = $%d", f.PractitionerCIN)
	add("a.status = $%d", f.Status)

	q := appointmentSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return r.query(ctx, q+" ORDER BY a.date_time DESC", args...)
}

func (r *repoPG) ListWithoutConsultation(ctx context.Context) ([]*Appointment, error) {
	return r.query(ctx, appointmentSelect+`
		WHERE NOT EXISTS (SELECT 1 FROM consultations c WHERE c.appointment_id = a.id)
		ORDER BY a.date_time DESC`)
}

func (r *repoPG) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE status = $1`, status).Scan(&n)
	return n, err
}

func (r *repoPG) ListReferrals(ctx context.Context) ([]*Referral, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.date_time, a.status,
			pat.cin, pat.last_name, pat.first_name, pat.phone,
			pr.cin, pr.last_name, pr.first_name, pr.specialty,
			ref.cin, ref.last_name, ref.first_name, ref.specialty
		FROM appointments a
		JOIN patients pat ON pat.cin = a.patient_cin
		JOIN practitioners pr ON pr.cin = a.practitioner_cin
		JOIN practitioners ref ON ref.cin = a.referrer_cin
		WHERE a.referrer_cin IS NOT NULL
		ORDER BY a.date_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(
			&ref.ID, &ref.DateTime, &ref.Status,
			&ref.PatientCIN, &ref.PatientLastName, &ref.PatientFirstName, &ref.PatientPhone,
			&ref.PractitionerCIN, &ref.PractitionerLastName, &ref.PractitionerFirstName, &ref.Specialty,
			&ref.ReferrerCIN, &ref.ReferrerLastName, &ref.ReferrerFirstName, &ref.ReferrerSpecialty,
		); err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		out = append(out, &ref)
	}
	return out, rows.Err()
}

// examKindPatterns select prescriptions that order an exam.
var examKindPatterns = []string{"%examen%", "%analyse%", "%radiologie%"}

func (r *repoPG) ListExamAppointments(ctx context.Context, patientCIN string) ([]*ExamAppointment, error) {
	q := `
		SELECT DISTINCT a.id, a.patient_cin, pat.last_name, pat.first_name,
			a.practitioner_cin, pr.last_name, pr.first_name, pr.specialty,
			a.date_time, p.kind, e.kind, e.status
		FROM appointments a
		JOIN patients pat ON pat.cin = a.patient_cin
		JOIN practitioners pr ON pr.cin = a.practitioner_cin
		JOIN consultations c ON c.appointment_id = a.id
		JOIN prescriptions p ON p.consultation_id = c.id
		JOIN exams e ON e.prescription_id = p.id
		WHERE p.kind ILIKE ANY($1)`
	args := []any{examKindPatterns}
	if patientCIN != "" {
		q += ` AND a.patient_cin = $2`
		args = append(args, patientCIN)
	}
	q += ` ORDER BY a.date_time DESC`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ExamAppointment
	for rows.Next() {
		var ea ExamAppointment
		if err := rows.Scan(
			&ea.ID, &ea.PatientCIN, &ea.PatientLastName, &ea.PatientFirstName,
			&ea.PractitionerCIN, &ea.PractitionerLastName, &ea.PractitionerFirstName, &ea.Specialty,
			&ea.DateTime, &ea.PrescriptionKind, &ea.ExamKind, &ea.ExamStatus,
		); err != nil {
			return nil, fmt.Errorf("scan exam appointment: %w", err)
		}
		out = append(out, &ea)
	}
	return out, rows.Err()
}

func (r *repoPG) query(ctx context.Context, sql string, args ...any) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.PatientCIN, &a.PractitionerCIN, &a.DateTime, &a.Status, &a.ReferrerCIN,
		&a.CreatedAt, &a.UpdatedAt,
		&a.PatientFirstName, &a.PatientLastName,
		&a.PractitionerFirstName, &a.PractitionerLastName,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
