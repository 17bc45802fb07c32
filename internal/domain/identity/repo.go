package identity

import (
	"context"

	"github.com/clinic/clinic/pkg/pagination"
)

// Lookups of a missing CIN return pgx.ErrNoRows, as do Update and Delete
// when no row matched.

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByCIN(ctx context.Context, cin string) (*Patient, error)
	Update(ctx context.Context, cin string, patch *PatientPatch) error
	Delete(ctx context.Context, cin string) error
	List(ctx context.Context, pg pagination.Params) ([]*Patient, error)
	Search(ctx context.Context, q string) ([]*Patient, error)
}

type PractitionerRepository interface {
	Create(ctx context.Context, p *Practitioner) error
	GetByCIN(ctx context.Context, cin string) (*Practitioner, error)
	Update(ctx context.Context, cin string, patch *PractitionerPatch) error
	Delete(ctx context.Context, cin string) error
	List(ctx context.Context, pg pagination.Params) ([]*Practitioner, error)
	Search(ctx context.Context, q string) ([]*Practitioner, error)
}
