package scheduling

import (
	"time"

	"github.com/clinic/clinic/internal/domain/validate"
)

// Appointment statuses.
const (
	StatusPending   = "en_attente"
	StatusConfirmed = "confirme"
	StatusCancelled = "annule"
)

var statuses = []string{StatusPending, StatusConfirmed, StatusCancelled}

// Appointment books a patient with a practitioner. ReferrerCIN is the CIN of
// the practitioner who referred the patient, if any.
type Appointment struct {
	ID              int64     `json:"idRdv"`
	PatientCIN      string    `json:"cinPatient"`
	PractitionerCIN string    `json:"cinPraticien"`
	DateTime        time.Time `json:"dateHeure"`
	Status          string    `json:"statut"`
	ReferrerCIN     *string   `json:"idRdvParent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Joined for display; empty when the row was read without joins.
	PatientFirstName      string `json:"prenomPatient,omitempty"`
	PatientLastName       string `json:"nomPatient,omitempty"`
	PractitionerFirstName string `json:"prenomPraticien,omitempty"`
	PractitionerLastName  string `json:"nomPraticien,omitempty"`
}

// CreateInput is the body of POST /rendezVous.
type CreateInput struct {
	PatientCIN      string             `json:"cinPatient"`
	PractitionerCIN string             `json:"cinPraticien"`
	DateTime        *validate.DateTime `json:"dateHeure"`
	ReferrerCIN     *string            `json:"idRdvParent"`
}

// Patch carries the fields of a partial update.
type Patch struct {
	DateTime        validate.Optional[validate.DateTime] `json:"dateHeure"`
	Status          validate.Optional[string]            `json:"statut"`
	PatientCIN      validate.Optional[string]            `json:"cinPatient"`
	PractitionerCIN validate.Optional[string]            `json:"cinPraticien"`
	ReferrerCIN     validate.Optional[string]            `json:"idRdvParent"`
}

func (p *Patch) Empty() bool {
	return !p.DateTime.Set && !p.Status.Set && !p.PatientCIN.Set &&
		!p.PractitionerCIN.Set && !p.ReferrerCIN.Set
}

// Filter narrows List. Empty fields are ignored.
type Filter struct {
	PatientCIN      string
	PractitionerCIN string
	Status          string
}

// Referral is an appointment made on another practitioner's referral.
type Referral struct {
	ID                    int64     `json:"idRdv"`
	DateTime              time.Time `json:"dateHeure"`
	Status                string    `json:"statut"`
	PatientCIN            string    `json:"cinPatient"`
	PatientLastName       string    `json:"nomPatient"`
	PatientFirstName      string    `json:"prenomPatient"`
	PatientPhone          *string   `json:"telephone"`
	PractitionerCIN       string    `json:"cinPraticien"`
	PractitionerLastName  string    `json:"nomPraticien"`
	PractitionerFirstName string    `json:"prenomPraticien"`
	Specialty             *string   `json:"specialite"`
	ReferrerCIN           string    `json:"cinPraticienParent"`
	ReferrerLastName      string    `json:"nomPraticienParent"`
	ReferrerFirstName     string    `json:"prenomPraticienParent"`
	ReferrerSpecialty     *string   `json:"specialitePraticienParent"`
}

// ExamAppointment links an appointment to an exam ordered from one of its
// prescriptions.
type ExamAppointment struct {
	ID                    int64     `json:"idRdv"`
	PatientCIN            string    `json:"cinPatient"`
	PatientLastName       string    `json:"nomPatient"`
	PatientFirstName      string    `json:"prenomPatient"`
	PractitionerCIN       string    `json:"cinPraticien"`
	PractitionerLastName  string    `json:"nomPraticien"`
	PractitionerFirstName string    `json:"prenomPraticien"`
	Specialty             *string   `json:"specialitePraticien"`
	DateTime              time.Time `json:"dateHeure"`
	PrescriptionKind      string    `json:"typePrescription"`
	ExamKind              string    `json:"typeExamen"`
	ExamStatus            string    `json:"statutExamen"`
}
