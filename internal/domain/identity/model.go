package identity

import (
	"time"

	"github.com/clinic/clinic/internal/domain/validate"
)

// Patient is keyed by national ID (CIN).
type Patient struct {
	CIN       string    `json:"cinPatient"`
	LastName  string    `json:"nom"`
	FirstName string    `json:"prenom"`
	Age       int       `json:"age"`
	Sex       string    `json:"sexe"`
	Address   *string   `json:"adresse"`
	Phone     *string   `json:"telephone"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PatientPatch carries the fields of a partial update. Only Set fields are written.
type PatientPatch struct {
	LastName  validate.Optional[string] `json:"nom"`
	FirstName validate.Optional[string] `json:"prenom"`
	Age       validate.Optional[int]    `json:"age"`
	Sex       validate.Optional[string] `json:"sexe"`
	Address   validate.Optional[string] `json:"adresse"`
	Phone     validate.Optional[string] `json:"telephone"`
	Email     validate.Optional[string] `json:"email"`
}

func (p *PatientPatch) Empty() bool {
	return !p.LastName.Set && !p.FirstName.Set && !p.Age.Set && !p.Sex.Set &&
		!p.Address.Set && !p.Phone.Set && !p.Email.Set
}

// Practitioner is keyed by national ID (CIN).
type Practitioner struct {
	CIN       string    `json:"cinPraticien"`
	LastName  string    `json:"nom"`
	FirstName string    `json:"prenom"`
	Phone     *string   `json:"telephone"`
	Email     *string   `json:"email"`
	Specialty *string   `json:"specialite"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PractitionerPatch struct {
	LastName  validate.Optional[string] `json:"nom"`
	FirstName validate.Optional[string] `json:"prenom"`
	Phone     validate.Optional[string] `json:"telephone"`
	Email     validate.Optional[string] `json:"email"`
	Specialty validate.Optional[string] `json:"specialite"`
}

func (p *PractitionerPatch) Empty() bool {
	return !p.LastName.Set && !p.FirstName.Set && !p.Phone.Set && !p.Email.Set && !p.Specialty.Set
}
