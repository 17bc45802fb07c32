package consultation

import (
	"context"
	"time"
)

// Get, Lock, Update and Delete return pgx.ErrNoRows when no consultation matched.
type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id int64) (*Consultation, error)
	// Lock reads the current appointment and date of a consultation and holds
	// the row until the surrounding transaction ends.
	Lock(ctx context.Context, id int64) (appointmentID int64, at time.Time, err error)
	Update(ctx context.Context, id int64, patch *Patch) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]*Consultation, error)
	ListWithoutPrescription(ctx context.Context) ([]*Consultation, error)
}
