package prescription

import "context"

// Get, Lock, Update and Delete return pgx.ErrNoRows when no prescription matched.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id int64) (*Prescription, error)
	// Lock returns the consultation of a prescription and holds the row
	// until the surrounding transaction ends.
	Lock(ctx context.Context, id int64) (consultationID int64, err error)
	Update(ctx context.Context, id int64, patch *Patch) error
	Delete(ctx context.Context, id int64) error
	// List returns every prescription, or those of one consultation when
	// consultationID is not zero.
	List(ctx context.Context, consultationID int64) ([]*Prescription, error)
}
