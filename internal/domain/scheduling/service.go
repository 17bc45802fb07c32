package scheduling

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

var tracer = otel.Tracer("clinic/scheduling")

const (
	msgNotFound        = "Rendez-vous non trouvé"
	msgRequired        = "Les champs CIN patient, CIN praticien et date/heure sont obligatoires"
	msgInvalidStatus   = "Statut invalide. Valeurs autorisées: en_attente, confirme, annule"
	msgInvalidReferrer = "Le CIN du praticien référent doit être au format XXXX XXXX XXXX"
	msgMissingParty    = "Patient ou praticien non trouvé"
	msgMissingReferrer = "Praticien référent non trouvé"
	msgNoFields        = "Au moins un champ à modifier est requis"
	referrerForeignKey = "appointments_referrer_cin_fkey"
)

type Service struct {
	repo  Repository
	tx    db.TxRunner
	moves timeline.Ceiling
}

// NewService wires the appointment store. moves keeps a rescheduled
// appointment from landing after its consultation.
func NewService(repo Repository, tx db.TxRunner, moves timeline.Ceiling) *Service {
	return &Service{repo: repo, tx: tx, moves: moves}
}

// Create books a new appointment. Its status always starts as en_attente.
func (s *Service) Create(ctx context.Context, in *CreateInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.create")
	defer span.End()

	in.PatientCIN = strings.TrimSpace(in.PatientCIN)
	in.PractitionerCIN = strings.TrimSpace(in.PractitionerCIN)
	if in.PatientCIN == "" || in.PractitionerCIN == "" || in.DateTime == nil || in.DateTime.IsZero() {
		return nil, apperr.Invalid(msgRequired)
	}
	if !validate.CIN(in.PatientCIN) || !validate.CIN(in.PractitionerCIN) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	referrer := blankToNil(in.ReferrerCIN)
	if referrer != nil && !validate.CIN(*referrer) {
		return nil, apperr.Invalid(msgInvalidReferrer)
	}
	span.SetAttributes(
		attribute.String("patient.cin", in.PatientCIN),
		attribute.String("practitioner.cin", in.PractitionerCIN),
	)

	a := &Appointment{
		PatientCIN:      in.PatientCIN,
		PractitionerCIN: in.PractitionerCIN,
		DateTime:        in.DateTime.Time,
		Status:          StatusPending,
		ReferrerCIN:     referrer,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if mapped := mapWriteError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	span.SetAttributes(attribute.Int64("appointment.id", a.ID))
	return a, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// Update writes the supplied fields and returns the updated appointment.
func (s *Service) Update(ctx context.Context, id int64, patch *Patch) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.update")
	defer span.End()
	span.SetAttributes(attribute.Int64("appointment.id", id))

	if patch.Empty() {
		return nil, apperr.Invalid(msgNoFields)
	}
	if patch.DateTime.Set && (patch.DateTime.Null || patch.DateTime.Value.IsZero()) {
		return nil, apperr.Invalid(validate.MsgDateTime)
	}
	if patch.Status.Set && (patch.Status.Null || !validate.OneOf(patch.Status.Value, statuses...)) {
		return nil, apperr.Invalid(msgInvalidStatus)
	}
	if err := requireCIN(&patch.PatientCIN); err != nil {
		return nil, err
	}
	if err := requireCIN(&patch.PractitionerCIN); err != nil {
		return nil, err
	}
	if patch.ReferrerCIN.Set && !patch.ReferrerCIN.Null {
		patch.ReferrerCIN.Value = strings.TrimSpace(patch.ReferrerCIN.Value)
		switch {
		case patch.ReferrerCIN.Value == "":
			patch.ReferrerCIN.Null = true
		case !validate.CIN(patch.ReferrerCIN.Value):
			return nil, apperr.Invalid(msgInvalidReferrer)
		}
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, id, patch); err != nil {
			return err
		}
		if patch.DateTime.Set {
			return s.moves.Check(ctx, id, patch.DateTime.Value.Time)
		}
		return nil
	})
	switch {
	case err == nil:
		return s.Get(ctx, id)
	case db.IsNoRows(err):
		return nil, apperr.NotFound(msgNotFound)
	case apperr.KindOf(err) != apperr.KindInternal:
		return nil, err
	}
	if mapped := mapWriteError(err); mapped != nil {
		return nil, mapped
	}
	return nil, fmt.Errorf("update appointment: %w", err)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgNotFound)
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	if f.Status != "" && !validate.OneOf(f.Status, statuses...) {
		return nil, apperr.Invalid(msgInvalidStatus)
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

// Available lists appointments that have no consultation yet.
func (s *Service) Available(ctx context.Context) ([]*Appointment, error) {
	out, err := s.repo.ListWithoutConsultation(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available appointments: %w", err)
	}
	return out, nil
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	n, err := s.repo.CountByStatus(ctx, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("count pending appointments: %w", err)
	}
	return n, nil
}

func (s *Service) PendingNotifications(ctx context.Context) ([]*Appointment, error) {
	out, err := s.repo.List(ctx, Filter{Status: StatusPending})
	if err != nil {
		return nil, fmt.Errorf("list pending appointments: %w", err)
	}
	return out, nil
}

func (s *Service) Referrals(ctx context.Context) ([]*Referral, error) {
	out, err := s.repo.ListReferrals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return out, nil
}

// ExamAppointments lists appointments whose prescriptions ordered an exam,
// optionally for one patient.
func (s *Service) ExamAppointments(ctx context.Context, patientCIN string) ([]*ExamAppointment, error) {
	patientCIN = strings.TrimSpace(patientCIN)
	if patientCIN != "" && !validate.CIN(patientCIN) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	out, err := s.repo.ListExamAppointments(ctx, patientCIN)
	if err != nil {
		return nil, fmt.Errorf("list exam appointments: %w", err)
	}
	return out, nil
}

// mapWriteError turns constraint failures into client errors, or returns nil.
func mapWriteError(err error) error {
	if !db.IsForeignKeyViolation(err) {
		return nil
	}
	if db.ConstraintName(err) == referrerForeignKey {
		return apperr.NotFound(msgMissingReferrer)
	}
	return apperr.NotFound(msgMissingParty)
}

func requireCIN(o *validate.Optional[string]) error {
	if !o.Set {
		return nil
	}
	o.Value = strings.TrimSpace(o.Value)
	if o.Null || !validate.CIN(o.Value) {
		return apperr.Invalid(validate.MsgCIN)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
