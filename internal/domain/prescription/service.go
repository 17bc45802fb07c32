package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinic/clinic/internal/domain/timeline"
	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

var tracer = otel.Tracer("clinic/prescription")

const (
	msgNotFound             = "Prescription non trouvée"
	msgConsultationNotFound = "Consultation non trouvée"
	msgRequired             = "idConsult, typePrescrire sont obligatoires"
	msgNoFields             = "Au moins un champ à modifier est requis (typePrescrire, posologie ou datePrescrire)"
	msgEmptyKind            = "Le type de prescription ne peut pas être vide"
)

type Service struct {
	repo  Repository
	tx    db.TxRunner
	after timeline.Rule
	moves timeline.Ceiling
	now   func() time.Time
}

// NewService wires the prescription store. after keeps a prescription from
// predating its consultation; moves keeps it from landing after the exams
// it ordered.
func NewService(repo Repository, tx db.TxRunner, after timeline.Rule, moves timeline.Ceiling) *Service {
	return &Service{repo: repo, tx: tx, after: after, moves: moves, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in *CreateInput) (*Prescription, error) {
	ctx, span := tracer.Start(ctx, "prescription.create")
	defer span.End()

	in.Kind = strings.TrimSpace(in.Kind)
	if in.ConsultationID <= 0 || in.Kind == "" {
		return nil, apperr.Invalid(msgRequired)
	}
	span.SetAttributes(attribute.Int64("consultation.id", in.ConsultationID))

	p := &Prescription{
		ConsultationID: in.ConsultationID,
		Kind:           in.Kind,
		Dosage:         blankToNil(in.Dosage),
		PrescribedAt:   s.now().UTC().Truncate(time.Second),
	}
	if in.PrescribedAt != nil && !in.PrescribedAt.IsZero() {
		p.PrescribedAt = in.PrescribedAt.Time
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.after.Check(ctx, p.ConsultationID, p.PrescribedAt); err != nil {
			return err
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, mapWriteError(err, "create prescription")
	}
	span.SetAttributes(attribute.Int64("prescription.id", p.ID))
	return s.Get(ctx, p.ID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prescription: %w", err)
	}
	return p, nil
}

// Update writes the supplied fields and returns the updated prescription.
// A new date is checked against the consultation and against the exams
// already performed.
func (s *Service) Update(ctx context.Context, id int64, patch *Patch) (*Prescription, error) {
	ctx, span := tracer.Start(ctx, "prescription.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("prescription.id", id))

	if patch.Empty() {
		return nil, apperr.Invalid(msgNoFields)
	}
	if patch.Kind.Set && (patch.Kind.Null || validate.Blank(patch.Kind.Value)) {
		return nil, apperr.Invalid(msgEmptyKind)
	}
	if patch.PrescribedAt.Set && (patch.PrescribedAt.Null || patch.PrescribedAt.Value.IsZero()) {
		return nil, apperr.Invalid(validate.MsgDateTime)
	}
	if patch.Kind.Set {
		patch.Kind.Value = strings.TrimSpace(patch.Kind.Value)
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if patch.PrescribedAt.Set {
			consultationID, err := s.repo.Lock(ctx, id)
			if err != nil {
				return err
			}
			if err := s.after.Check(ctx, consultationID, patch.PrescribedAt.Value.Time); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, id, patch); err != nil {
			return err
		}
		if patch.PrescribedAt.Set {
			return s.moves.Check(ctx, id, patch.PrescribedAt.Value.Time)
		}
		return nil
	})
	if err != nil {
		return nil, mapWriteError(err, "update prescription")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgNotFound)
		}
		return fmt.Errorf("delete prescription: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Prescription, error) {
	out, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return out, nil
}

func (s *Service) ByConsultation(ctx context.Context, consultationID int64) ([]*Prescription, error) {
	out, err := s.repo.List(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions of consultation: %w", err)
	}
	return out, nil
}

func mapWriteError(err error, op string) error {
	switch {
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case db.IsNoRows(err):
		return apperr.NotFound(msgNotFound)
	case db.IsForeignKeyViolation(err):
		return apperr.NotFound(msgConsultationNotFound)
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
