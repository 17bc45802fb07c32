package diagnostics

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinic/clinic/internal/domain/timeline"
	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

var tracer = otel.Tracer("clinic/diagnostics")

const (
	msgNotFound             = "Examen non trouvé"
	msgPrescriptionNotFound = "Prescription non trouvée"
	msgImageNotFound        = "Image non trouvée"
	msgNoImage              = "Aucune image fournie"
	msgRequired             = "idPrescrire et typeExamen sont obligatoires"
	msgInvalidStatus        = "Statut invalide. Valeurs acceptées: prescrit, en_cours, termine, annule"
	msgNoFields             = "Aucun champ à mettre à jour"
	msgEmptyKind            = "Le type d'examen ne peut pas être vide"
)

type Service struct {
	repo  Repository
	tx    db.TxRunner
	after timeline.Rule
}

// NewService wires the exam store. after keeps a realization date from
// predating the prescription.
func NewService(repo Repository, tx db.TxRunner, after timeline.Rule) *Service {
	return &Service{repo: repo, tx: tx, after: after}
}

func (s *Service) Create(ctx context.Context, in *CreateInput) (*Exam, error) {
	ctx, span := tracer.Start(ctx, "exam.create")
	defer span.End()

	in.Kind = strings.TrimSpace(in.Kind)
	if in.PrescriptionID <= 0 || in.Kind == "" {
		return nil, apperr.Invalid(msgRequired)
	}
	if in.Status == "" {
		in.Status = StatusPrescribed
	}
	if !validate.OneOf(in.Status, statuses...) {
		return nil, apperr.Invalid(msgInvalidStatus)
	}
	span.SetAttributes(attribute.Int64("prescription.id", in.PrescriptionID))

	e := &Exam{
		PrescriptionID: in.PrescriptionID,
		Kind:           in.Kind,
		Status:         in.Status,
		Result:         blankToNil(in.Result),
		Laboratory:     blankToNil(in.Laboratory),
	}
	if in.PerformedAt != nil && !in.PerformedAt.IsZero() {
		t := in.PerformedAt.Time
		e.PerformedAt = &t
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if e.PerformedAt != nil {
			if err := s.after.Check(ctx, e.PrescriptionID, *e.PerformedAt); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, e, in.Image)
	})
	if err != nil {
		return nil, mapWriteError(err, "create exam")
	}
	span.SetAttributes(attribute.Int64("exam.id", e.ID))
	return s.Get(ctx, e.ID)
}

// Get returns the exam without its image bytes.
func (s *Service) Get(ctx context.Context, id int64) (*Exam, error) {
	e, err := s.repo.GetByID(ctx, id)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// Update writes the supplied fields. When the prescription or the
// realization date changes, the effective pair is checked again.
func (s *Service) Update(ctx context.Context, id int64, patch *Patch) (*Exam, error) {
	ctx, span := tracer.Start(ctx, "exam.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("exam.id", id))

	if patch.Empty() {
		return nil, apperr.Invalid(msgNoFields)
	}
	if patch.Kind.Set {
		if patch.Kind.Null || validate.Blank(patch.Kind.Value) {
			return nil, apperr.Invalid(msgEmptyKind)
		}
		patch.Kind.Value = strings.TrimSpace(patch.Kind.Value)
	}
	if patch.Status.Set && (patch.Status.Null || !validate.OneOf(patch.Status.Value, statuses...)) {
		return nil, apperr.Invalid(msgInvalidStatus)
	}
	if patch.PrescriptionID.Set && (patch.PrescriptionID.Null || patch.PrescriptionID.Value <= 0) {
		return nil, apperr.Invalid(msgRequired)
	}
	if patch.PerformedAt.Set && !patch.PerformedAt.Null && patch.PerformedAt.Value.IsZero() {
		return nil, apperr.Invalid(validate.MsgDateTime)
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if patch.PrescriptionID.Set || patch.PerformedAt.Set {
			prescriptionID, performedAt, err := s.repo.Lock(ctx, id)
			if err != nil {
				return err
			}
			if patch.PrescriptionID.Set {
				prescriptionID = patch.PrescriptionID.Value
			}
			if patch.PerformedAt.Set {
				performedAt = nil
				if !patch.PerformedAt.Null {
					t := patch.PerformedAt.Value.Time
					performedAt = &t
				}
			}
			if performedAt != nil {
				if err := s.after.Check(ctx, prescriptionID, *performedAt); err != nil {
					return err
				}
			}
		}
		return s.repo.Update(ctx, id, patch)
	})
	if err != nil {
		return nil, mapWriteError(err, "update exam")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgNotFound)
		}
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

// List returns every exam with its image.
func (s *Service) List(ctx context.Context) ([]*Exam, error) {
	out, err := s.repo.List(ctx, Filter{}, true)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return out, nil
}

func (s *Service) ByPrescription(ctx context.Context, prescriptionID int64) ([]*Exam, error) {
	out, err := s.repo.List(ctx, Filter{PrescriptionID: prescriptionID}, false)
	if err != nil {
		return nil, fmt.Errorf("list exams of prescription: %w", err)
	}
	return out, nil
}

func (s *Service) ByStatus(ctx context.Context, status string) ([]*Exam, error) {
	if !validate.OneOf(status, statuses...) {
		return nil, apperr.Invalid(msgInvalidStatus)
	}
	out, err := s.repo.List(ctx, Filter{Status: status}, false)
	if err != nil {
		return nil, fmt.Errorf("list exams by status: %w", err)
	}
	return out, nil
}

// UsedPrescriptions lists the prescriptions that already ordered an exam.
func (s *Service) UsedPrescriptions(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.UsedPrescriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list used prescriptions: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func (s *Service) Image(ctx context.Context, id int64) (*Image, error) {
	img, err := s.repo.Image(ctx, id)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exam image: %w", err)
	}
	if img == nil {
		return nil, apperr.NotFound(msgImageNotFound)
	}
	return img, nil
}

func (s *Service) UploadImage(ctx context.Context, id int64, img *Image) error {
	if img == nil || len(img.Data) == 0 {
		return apperr.Invalid(msgNoImage)
	}
	return s.setImage(ctx, id, img)
}

func (s *Service) DeleteImage(ctx context.Context, id int64) error {
	return s.setImage(ctx, id, nil)
}

func (s *Service) setImage(ctx context.Context, id int64, img *Image) error {
	if err := s.repo.SetImage(ctx, id, img); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgNotFound)
		}
		return fmt.Errorf("set exam image: %w", err)
	}
	return nil
}

func mapWriteError(err error, op string) error {
	switch {
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case db.IsNoRows(err):
		return apperr.NotFound(msgNotFound)
	case db.IsForeignKeyViolation(err):
		return apperr.NotFound(msgPrescriptionNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func blankToNil(s *string) *string {
	if s == nil || validate.Blank(*s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
