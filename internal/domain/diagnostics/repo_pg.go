package diagnostics

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

// examSelect takes the image column expression, e.image or NULL::bytea.
const examSelect = `
	SELECT e.id, e.prescription_id, e.kind, e.performed_at, e.status, e.result, e.laboratory,
		%s, e.image IS NOT NULL, e.created_at, e.updated_at,
		p.kind, p.prescribed_at, p.dosage, pat.last_name, pat.first_name
	FROM exams e
	JOIN prescriptions p ON p.id = e.prescription_id
	JOIN consultations c ON c.id = p.consultation_id
	JOIN appointments a ON a.id = c.appointment_id
	JOIN patients pat ON pat.cin = a.patient_cin`

func selectExams(withImages bool) string {
	if withImages {
		return fmt.Sprintf(examSelect, "e.image")
	}
	return fmt.Sprintf(examSelect, "NULL::bytea")
}

func (r *repoPG) Create(ctx context.Context, e *Exam, img *Image) error {
	var (
		data        []byte
		contentType *string
	)
	if img != nil {
		data = img.Data
		contentType = &img.ContentType
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO exams (prescription_id, kind, performed_at, status, result, laboratory, image, image_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		e.PrescriptionID, e.Kind, e.PerformedAt, e.Status, e.Result, e.Laboratory, data, contentType,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}
	e.HasImage = img != nil
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Exam, error) {
	return scanExam(r.conn(ctx).QueryRow(ctx, selectExams(false)+` WHERE e.id = $1`, id))
}

func (r *repoPG) Lock(ctx context.Context, id int64) (int64, *time.Time, error) {
	var (
		prescriptionID int64
		performedAt    *time.Time
	)
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT prescription_id, performed_at FROM exams WHERE id = $1 FOR UPDATE`, id,
	).Scan(&prescriptionID, &performedAt)
	return prescriptionID, performedAt, err
}

func (r *repoPG) Update(ctx context.Context, id int64, patch *Patch) error {
	var p db.Patch
	p.SetOptional("prescription_id", patch.PrescriptionID)
	p.SetOptional("kind", patch.Kind)
	switch {
	case !patch.PerformedAt.Set:
	case patch.PerformedAt.Null:
		p.SetNull("performed_at")
	default:
		p.Set("performed_at", patch.PerformedAt.Value.Time)
	}
	p.SetOptional("status", patch.Status)
	p.SetOptional("result", patch.Result)
	p.SetOptional("laboratory", patch.Laboratory)
	switch {
	case patch.Image != nil:
		p.Set("image", patch.Image.Data)
		p.Set("image_type", patch.Image.ContentType)
	case patch.RemoveImage:
		p.SetNull("image")
		p.SetNull("image_type")
	}

	sql, args := p.Statement("exams", "id", id)
	return r.exec(ctx, sql, args...)
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
}

func (r *repoPG) List(ctx context.Context, f Filter, withImages bool) ([]*Exam, error) {
	var (
		where []string
		args  []any
	)
	if f.PrescriptionID != 0 {
		args = append(args, f.PrescriptionID)
		where = append(where, fmt.Sprintf("e.prescription_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}

	q := selectExams(withImages)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.conn(ctx).Query(ctx, q+" ORDER BY e.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repoPG) Image(ctx context.Context, id int64) (*Image, error) {
	var (
		data        []byte
		contentType *string
	)
	err := r.conn(ctx).QueryRow(ctx, `SELECT image, image_type FROM exams WHERE id = $1`, id).
		Scan(&data, &contentType)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	img := &Image{Data: data, ContentType: "application/octet-stream"}
	if contentType != nil {
		img.ContentType = *contentType
	}
	return img, nil
}

func (r *repoPG) SetImage(ctx context.Context, id int64, img *Image) error {
	var p db.Patch
	if img != nil {
		p.Set("image", img.Data)
		p.Set("image_type", img.ContentType)
	} else {
		p.SetNull("image")
		p.SetNull("image_type")
	}
	sql, args := p.Statement("exams", "id", id)
	return r.exec(ctx, sql, args...)
}

func (r *repoPG) UsedPrescriptions(ctx context.Context) ([]int64, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT DISTINCT prescription_id FROM exams ORDER BY prescription_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan prescription id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanExam(row pgx.Row) (*Exam, error) {
	var e Exam
	err := row.Scan(
		&e.ID, &e.PrescriptionID, &e.Kind, &e.PerformedAt, &e.Status, &e.Result, &e.Laboratory,
		&e.Image, &e.HasImage, &e.CreatedAt, &e.UpdatedAt,
		&e.PrescriptionKind, &e.PrescribedAt, &e.Dosage, &e.PatientLastName, &e.PatientFirstName,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
