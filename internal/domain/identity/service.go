package identity

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

var tracer = otel.Tracer("clinic/identity")

const (
	msgPatientNotFound      = "Patient non trouvé"
	msgPractitionerNotFound = "Praticien non trouvé"
	msgNoFields             = "Au moins un champ à modifier est requis"
)

type Service struct {
	patients      PatientRepository
	practitioners PractitionerRepository
}

func NewService(patients PatientRepository, practitioners PractitionerRepository) *Service {
	return &Service{patients: patients, practitioners: practitioners}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	ctx, span := tracer.Start(ctx, "identity.create_patient")
	defer span.End()

	normalizePatient(p)
	if p.CIN == "" || p.LastName == "" || p.FirstName == "" || p.Age == 0 || p.Sex == "" {
		return apperr.Invalid("Les champs CIN, nom, prénom, âge et sexe sont obligatoires")
	}
	if !validate.CIN(p.CIN) {
		return apperr.Invalid(validate.MsgCIN)
	}
	if p.Age < 0 {
		return apperr.Invalid("L'âge doit être un entier positif")
	}
	if err := checkContact(p.Phone, p.Email); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("patient.cin", p.CIN))

	if err := s.patients.Create(ctx, p); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Invalid("Un patient avec ce CIN, téléphone ou email existe déjà")
		}
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (s *Service) GetPatient(ctx context.Context, cin string) (*Patient, error) {
	if !validate.CIN(cin) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	p, err := s.patients.GetByCIN(ctx, cin)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgPatientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// UpdatePatient writes the supplied fields and returns the updated row.
func (s *Service) UpdatePatient(ctx context.Context, cin string, patch *PatientPatch) (*Patient, error) {
	ctx, span := tracer.Start(ctx, "identity.update_patient")
	defer span.End()
	span.SetAttributes(attribute.String("patient.cin", cin))

	if !validate.CIN(cin) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	if patch.Empty() {
		return nil, apperr.Invalid(msgNoFields)
	}
	if err := requireText(patch.LastName, "nom"); err != nil {
		return nil, err
	}
	if err := requireText(patch.FirstName, "prénom"); err != nil {
		return nil, err
	}
	if err := requireText(patch.Sex, "sexe"); err != nil {
		return nil, err
	}
	if patch.Age.Set && (patch.Age.Null || patch.Age.Value <= 0) {
		return nil, apperr.Invalid("L'âge doit être un entier positif")
	}
	if err := checkOptionalContact(patch.Phone, patch.Email); err != nil {
		return nil, err
	}

	if err := s.patients.Update(ctx, cin, patch); err != nil {
		switch {
		case db.IsNoRows(err):
			return nil, apperr.NotFound(msgPatientNotFound)
		case db.IsUniqueViolation(err):
			return nil, apperr.Invalid("Un patient avec ce téléphone ou email existe déjà")
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return s.GetPatient(ctx, cin)
}

func (s *Service) DeletePatient(ctx context.Context, cin string) error {
	if !validate.CIN(cin) {
		return apperr.Invalid(validate.MsgCIN)
	}
	if err := s.patients.Delete(ctx, cin); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgPatientNotFound)
		}
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

func (s *Service) ListPatients(ctx context.Context, pg pagination.Params) ([]*Patient, error) {
	patients, err := s.patients.List(ctx, pg)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) SearchPatients(ctx context.Context, q string) ([]*Patient, error) {
	patients, err := s.patients.Search(ctx, strings.TrimSpace(q))
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return patients, nil
}

// -- Practitioner --

func (s *Service) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	ctx, span := tracer.Start(ctx, "identity.create_practitioner")
	defer span.End()

	normalizePractitioner(p)
	if p.CIN == "" || p.LastName == "" || p.FirstName == "" {
		return apperr.Invalid("Les champs CIN, nom et prénom sont obligatoires")
	}
	if !validate.CIN(p.CIN) {
		return apperr.Invalid(validate.MsgCIN)
	}
	if err := checkContact(p.Phone, p.Email); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("practitioner.cin", p.CIN))

	if err := s.practitioners.Create(ctx, p); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Invalid("Un praticien avec ce CIN, téléphone ou email existe déjà")
		}
		return fmt.Errorf("create practitioner: %w", err)
	}
	return nil
}

func (s *Service) GetPractitioner(ctx context.Context, cin string) (*Practitioner, error) {
	if !validate.CIN(cin) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	p, err := s.practitioners.GetByCIN(ctx, cin)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound(msgPractitionerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get practitioner: %w", err)
	}
	return p, nil
}

func (s *Service) UpdatePractitioner(ctx context.Context, cin string, patch *PractitionerPatch) (*Practitioner, error) {
	ctx, span := tracer.Start(ctx, "identity.update_practitioner")
	defer span.End()
	span.SetAttributes(attribute.String("practitioner.cin", cin))

	if !validate.CIN(cin) {
		return nil, apperr.Invalid(validate.MsgCIN)
	}
	if patch.Empty() {
		return nil, apperr.Invalid(msgNoFields)
	}
	if err := requireText(patch.LastName, "nom"); err != nil {
		return nil, err
	}
	if err := requireText(patch.FirstName, "prénom"); err != nil {
		return nil, err
	}
	if err := checkOptionalContact(patch.Phone, patch.Email); err != nil {
		return nil, err
	}

	if err := s.practitioners.Update(ctx, cin, patch); err != nil {
		switch {
		case db.IsNoRows(err):
			return nil, apperr.NotFound(msgPractitionerNotFound)
		case db.IsUniqueViolation(err):
			return nil, apperr.Invalid("Un praticien avec ce téléphone ou email existe déjà")
		}
		return nil, fmt.Errorf("update practitioner: %w", err)
	}
	return s.GetPractitioner(ctx, cin)
}

func (s *Service) DeletePractitioner(ctx context.Context, cin string) error {
	if !validate.CIN(cin) {
		return apperr.Invalid(validate.MsgCIN)
	}
	if err := s.practitioners.Delete(ctx, cin); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound(msgPractitionerNotFound)
		}
		return fmt.Errorf("delete practitioner: %w", err)
	}
	return nil
}

func (s *Service) ListPractitioners(ctx context.Context, pg pagination.Params) ([]*Practitioner, error) {
	practitioners, err := s.practitioners.List(ctx, pg)
	if err != nil {
		return nil, fmt.Errorf("list practitioners: %w", err)
	}
	return practitioners, nil
}

func (s *Service) SearchPractitioners(ctx context.Context, q string) ([]*Practitioner, error) {
	practitioners, err := s.practitioners.Search(ctx, strings.TrimSpace(q))
	if err != nil {
		return nil, fmt.Errorf("search practitioners: %w", err)
	}
	return practitioners, nil
}

// -- shared checks --

func normalizePatient(p *Patient) {
	p.CIN = strings.TrimSpace(p.CIN)
	p.LastName = strings.TrimSpace(p.LastName)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.Sex = strings.TrimSpace(p.Sex)
	p.Address = blankToNil(p.Address)
	p.Phone = blankToNil(p.Phone)
	p.Email = blankToNil(p.Email)
}

func normalizePractitioner(p *Practitioner) {
	p.CIN = strings.TrimSpace(p.CIN)
	p.LastName = strings.TrimSpace(p.LastName)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.Phone = blankToNil(p.Phone)
	p.Email = blankToNil(p.Email)
	p.Specialty = blankToNil(p.Specialty)
}

// blankToNil stores empty form inputs as NULL so the unique phone and email
// constraints only apply to real values.
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

func checkContact(phone, email *string) error {
	if phone != nil && !validate.Phone(*phone) {
		return apperr.Invalid(validate.MsgPhone)
	}
	if email != nil && !validate.Email(*email) {
		return apperr.Invalid(validate.MsgEmail)
	}
	return nil
}

func checkOptionalContact(phone, email validate.Optional[string]) error {
	if phone.Set && !phone.Null && !validate.Phone(phone.Value) {
		return apperr.Invalid(validate.MsgPhone)
	}
	if email.Set && !email.Null && !validate.Email(email.Value) {
		return apperr.Invalid(validate.MsgEmail)
	}
	return nil
}

// requireText rejects a mandatory column being cleared by a partial update.
func requireText(o validate.Optional[string], field string) error {
	if o.Set && (o.Null || validate.Blank(o.Value)) {
		return apperr.Invalid(fmt.Sprintf("Le champ %s ne peut pas être vide", field))
	}
	return nil
}
