package consultation

import (
	"time"

	"github.com/clinic/clinic/internal/domain/validate"
)

// Consultation records that an appointment took place. There is at most one
// per appointment, and it is never dated before it.
type Consultation struct {
	ID            int64     `json:"idConsult"`
	AppointmentID int64     `json:"idRdv"`
	ConsultedAt   time.Time `json:"dateConsult"`
	Report        *string   `json:"compteRendu"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// From the appointment.
	AppointmentAt         time.Time `json:"dateHeure"`
	PatientCIN            string    `json:"cinPatient"`
	PractitionerCIN       string    `json:"cinPraticien"`
	PatientFirstName      string    `json:"prenomPatient"`
	PractitionerFirstName string    `json:"prenomPraticien"`
}

type CreateInput struct {
	AppointmentID int64              `json:"idRdv"`
	ConsultedAt   *validate.DateTime `json:"dateConsult"`
	Report        *string            `json:"compteRendu"`
}

type Patch struct {
	Report        validate.Optional[string]            `json:"compteRendu"`
	AppointmentID validate.Optional[int64]             `json:"idRdv"`
	ConsultedAt   validate.Optional[validate.DateTime] `json:"dateConsult"`
}

func (p *Patch) Empty() bool {
	return !p.Report.Set && !p.AppointmentID.Set && !p.ConsultedAt.Set
}

// MovesDate reports whether the patch can break the appointment ordering.
func (p *Patch) MovesDate() bool {
	return p.AppointmentID.Set || p.ConsultedAt.Set
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	PatientCIN      string
	PractitionerCIN string
	AppointmentID   int64
}
