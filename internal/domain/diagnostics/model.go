package diagnostics

import (
	"time"

	"github.com/clinic/clinic/internal/domain/validate"
)

// Exam statuses.
const (
	StatusPrescribed = "prescrit"
	StatusInProgress = "en_cours"
	StatusDone       = "termine"
	StatusCancelled  = "annule"
)

var statuses = []string{StatusPrescribed, StatusInProgress, StatusDone, StatusCancelled}

// Exam is ordered by a prescription. Once performed, it is never dated
// before that prescription.
type Exam struct {
	ID             int64      `json:"idExamen"`
	PrescriptionID int64      `json:"idPrescrire"`
	Kind           string     `json:"typeExamen"`
	PerformedAt    *time.Time `json:"dateRealisation"`
	Status         string     `json:"statut"`
	Result         *string    `json:"resultat"`
	Laboratory     *string    `json:"laboratoire"`
	// Image is only loaded by List; it is sent as base64.
	Image     []byte    `json:"image,omitempty"`
	HasImage  bool      `json:"hasImage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PrescriptionKind string    `json:"typePrescrire"`
	PrescribedAt     time.Time `json:"datePrescrire"`
	Dosage           *string   `json:"posologie"`
	PatientLastName  string    `json:"nomPatient"`
	PatientFirstName string    `json:"prenomPatient"`
}

// Image is a stored exam image.
type Image struct {
	Data        []byte
	ContentType string
}

// CreateInput is the body of POST /examen, from JSON or a multipart form.
type CreateInput struct {
	PrescriptionID int64              `json:"idPrescrire"`
	Kind           string             `json:"typeExamen"`
	PerformedAt    *validate.DateTime `json:"dateRealisation"`
	Status         string             `json:"statut"`
	Result         *string            `json:"resultat"`
	Laboratory     *string            `json:"laboratoire"`
	Image          *Image             `json:"-"`
}

// Patch carries the fields of a partial update. Image replaces the stored
// image; RemoveImage clears it.
type Patch struct {
	PrescriptionID validate.Optional[int64]             `json:"idPrescrire"`
	Kind           validate.Optional[string]            `json:"typeExamen"`
	PerformedAt    validate.Optional[validate.DateTime] `json:"dateRealisation"`
	Status         validate.Optional[string]            `json:"statut"`
	Result         validate.Optional[string]            `json:"resultat"`
	Laboratory     validate.Optional[string]            `json:"laboratoire"`
	RemoveImage    bool                                 `json:"removeImage"`
	Image          *Image                               `json:"-"`
}

func (p *Patch) Empty() bool {
	return !p.PrescriptionID.Set && !p.Kind.Set && !p.PerformedAt.Set && !p.Status.Set &&
		!p.Result.Set && !p.Laboratory.Set && !p.RemoveImage && p.Image == nil
}

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	PrescriptionID int64
	Status         string
}
