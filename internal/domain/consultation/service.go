package consultation

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

var tracer = otel.Tracer("clinic/consultation")

const (
	msgNotFound            = "Consultation non trouvée"
	msgAppointmentNotFound = "Rendez-vous non trouvé"
	msgRequired            = "ID du rendez-vous et date de consultation sont obligatoires"
	msgDuplicate           = "Une consultation existe déjà pour ce rendez-vous"
	msgNoFields            = "Au moins un champ à modifier est requis"
	msgBadAppointment      = "ID du rendez-vous invalide"
)

type Service struct {
	repo  Repository
	tx    db.TxRunner
	after timeline.Rule
	moves timeline.Ceiling
}

// NewService wires the consultation store. after keeps a consultation from
// predating its appointment; moves keeps it from landing after its
// prescriptions when it is rescheduled.
func NewService(repo Repository, tx db.TxRunner, after timeline.Rule, moves timeline.Ceiling) *Service {
	return &Service{repo: repo, tx: tx, after: after, moves: moves}
}

// Create checks the appointment date and inserts in one transaction, with
// the appointment row locked until commit.
func (s *Service) Create(ctx context.Context, in *CreateInput) (*Consultation, error) {
	ctx, span := tracer.Start(ctx, "consultation.create")
	defer span.End()

	if in.AppointmentID <= 0 || in.ConsultedAt == nil || in.ConsultedAt.IsZero() {
		return nil, apperr.Invalid(msgRequired)
	}
	span.SetAttributes(attribute.Int64("appointment.id", in.AppointmentID))

	c := &Consultation{
		AppointmentID: in.AppointmentID,
		ConsultedAt:   in.ConsultedAt.Time,
		Report:        blankToNil(in.Report),
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.after.Check(ctx, c.AppointmentID, c.ConsultedAt); err != nil {
			return err
		}
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		return nil, mapWriteError(err, "create consultation")
	}
	span.SetAttributes(attribute.Int64("consultation.id", c.ID))
	return s.Get(ctx, c.ID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get consultation: %w", err)
	}
	return c, nil
}

// Update writes the supplied fields. When the date or the appointment
// changes, the effective pair is checked again inside the transaction.
func (s *Service) Update(ctx context.Context, id int64, patch *Patch) (*Consultation, error) {
	ctx, span := tracer.Start(ctx, "consultation.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("consultation.id", id))

	if patch.Empty() {
		return nil, apperr.Invalid(msgNoFields)
	}
	if patch.AppointmentID.Set && (patch.AppointmentID.Null || patch.AppointmentID.Value <= 0) {
		return nil, apperr.Invalid(msgBadAppointment)
	}
	if patch.ConsultedAt.Set && (patch.ConsultedAt.Null || patch.ConsultedAt.Value.IsZero()) {
		return nil, apperr.Invalid(validate.MsgDateTime)
	}
	if patch.Report.Set && !patch.Report.Null && validate.Blank(patch.Report.Value) {
		patch.Report.Null = true
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if patch.MovesDate() {
			appointmentID, at, err := s.repo.Lock(ctx, id)
			if err != nil {
				return err
			}
			if patch.AppointmentID.Set {
				appointmentID = patch.AppointmentID.Value
			}
			if patch.ConsultedAt.Set {
				at = patch.ConsultedAt.Value.Time
			}
			if err := s.after.Check(ctx, appointmentID, at); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, id, patch); err != nil {
			return err
		}
		if patch.ConsultedAt.Set {
			return s.moves.Check(ctx, id, patch.ConsultedAt.Value.Time)
		}
		return nil
	})
	if err != nil {
		return nil, mapWriteError(err, "update consultation")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgNotFound)
		}
		return fmt.Errorf("delete consultation: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Consultation, error) {
	return s.list(ctx, Filter{})
}

func (s *Service) ByPatient(ctx context.Context, cin string) ([]*Consultation, error) {
	cin = strings.TrimSpace(cin)
	if !validate.CIN(cin) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	return s.list(ctx, Filter{PatientCIN: cin})
}

func (s *Service) ByPractitioner(ctx context.Context, cin string) ([]*Consultation, error) {
	cin = strings.TrimSpace(cin)
	if !validate.CIN(cin) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	return s.list(ctx, Filter{PractitionerCIN: cin})
}

func (s *Service) ByAppointment(ctx context.Context, appointmentID int64) ([]*Consultation, error) {
	return s.list(ctx, Filter{AppointmentID: appointmentID})
}

// AvailableForPrescription lists consultations with no prescription yet.
func (s *Service) AvailableForPrescription(ctx context.Context) ([]*Consultation, error) {
	out, err := s.repo.ListWithoutPrescription(ctx)
	if err != nil {
		return nil, fmt.Errorf("list consultations without prescription: %w", err)
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, f Filter) ([]*Consultation, error) {
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return out, nil
}

// mapWriteError keeps client errors raised inside a transaction and turns
// constraint failures into client errors.
func mapWriteError(err error, op string) error {
	switch {
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case db.IsNoRows(err):
		return apperr.NotFound(msgNotFound)
	case db.IsUniqueViolation(err):
		return apperr.Invalid(msgDuplicate)
	case db.IsForeignKeyViolation(err):
		return apperr.NotFound(msgAppointmentNotFound)
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
