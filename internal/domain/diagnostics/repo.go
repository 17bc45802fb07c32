package diagnostics

import (
	"context"
	"time"
)

// Get, Lock, Update, SetImage and Delete return pgx.ErrNoRows when no exam
// matched.
type Repository interface {
	Create(ctx context.Context, e *Exam, img *Image) error
	GetByID(ctx context.Context, id int64) (*Exam, error)
	// Lock returns the prescription and realization date of an exam and
	// holds the row until the surrounding transaction ends.
	Lock(ctx context.Context, id int64) (prescriptionID int64, performedAt *time.Time, err error)
	Update(ctx context.Context, id int64, patch *Patch) error
	Delete(ctx context.Context, id int64) error
	// List includes image bytes only when withImages is set.
	List(ctx context.Context, f Filter, withImages bool) ([]*Exam, error)
	// Image returns a nil image when the exam has none.
	Image(ctx context.Context, id int64) (*Image, error)
	// SetImage stores img, or clears the image when img is nil.
	SetImage(ctx context.Context, id int64, img *Image) error
	UsedPrescriptions(ctx context.Context) ([]int64, error)
}
