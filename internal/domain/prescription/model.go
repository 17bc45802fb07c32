package prescription

import (
	"time"

	"github.com/clinic/clinic/internal/domain/validate"
)

// Prescription is ordered during a consultation and never dated before it.
type Prescription struct {
	ID             int64     `json:"idPrescrire"`
	ConsultationID int64     `json:"idConsult"`
	Kind           string    `json:"typePrescrire"`
	Dosage         *string   `json:"posologie"`
	PrescribedAt   time.Time `json:"datePrescrire"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	ConsultedAt           time.Time `json:"dateConsult"`
	PatientLastName       string    `json:"nomPatient"`
	PatientFirstName      string    `json:"prenomPatient"`
	PatientAge            int       `json:"agePatient"`
	PractitionerFirstName string    `json:"prenomPraticien"`
}

// CreateInput is the body of POST /prescrire. A missing date means now.
type CreateInput struct {
	ConsultationID int64              `json:"idConsult"`
	Kind           string             `json:"typePrescrire"`
	Dosage         *string            `json:"posologie"`
	PrescribedAt   *validate.DateTime `json:"datePrescrire"`
}

type Patch struct {
	Kind         validate.Optional[string]            `json:"typePrescrire"`
	Dosage       validate.Optional[string]            `json:"posologie"`
	PrescribedAt validate.Optional[validate.DateTime] `json:"datePrescrire"`
}

func (p *Patch) Empty() bool {
	return !p.Kind.Set && !p.Dosage.Set && !p.PrescribedAt.Set
}
