package scheduling

import "context"

// Get, Update and Delete return pgx.ErrNoRows when no appointment matched.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, id int64, patch *Patch) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]*Appointment, error)
	ListWithoutConsultation(ctx context.Context) ([]*Appointment, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	ListReferrals(ctx context.Context) ([]*Referral, error)
	ListExamAppointments(ctx context.Context, patientCIN string) ([]*ExamAppointment, error)
}
