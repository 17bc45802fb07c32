// Package timeline enforces that a dependent record is never dated before
// the record it hangs off: a consultation after its appointment, a
// prescription after its consultation, an exam after its prescription.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

var ErrParentNotFound = errors.New("parent not found")

// DateSource returns the reference date of a parent row.
type DateSource interface {
	DateOf(ctx context.Context, id int64) (time.Time, error)
}

// Table reads the parent date from SQL. The row is locked FOR SHARE, so
// when called inside db.TxRunner.InTx the parent cannot be moved or deleted
// until the dependent write commits.
type Table struct {
	DB     db.DBTX
	Name   string
	Key    string
	Column string
}

func (t Table) DateOf(ctx context.Context, id int64) (time.Time, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 FOR SHARE", t.Column, t.Name, t.Key)

	var at time.Time
	err := db.Conn(ctx, t.DB).QueryRow(ctx, q, id).Scan(&at)
	if db.IsNoRows(err) {
		return time.Time{}, ErrParentNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s.%s: %w", t.Name, t.Column, err)
	}
	return at, nil
}

// Observer is told about every rejection; reason is "not_found", "too_early"
// or "too_late".
type Observer interface {
	Rejected(parent, reason string)
}

// Rule compares a child date to its parent's. Equal dates are accepted.
type Rule struct {
	Parent   string
	Source   DateSource
	NotFound string
	TooEarly string
	Observer Observer
}

func (r Rule) Check(ctx context.Context, parentID int64, at time.Time) error {
	parentAt, err := r.Source.DateOf(ctx, parentID)
	if errors.Is(err, ErrParentNotFound) {
		r.observe("not_found")
		return apperr.NotFound(r.NotFound)
	}
	if err != nil {
		return fmt.Errorf("check %s date: %w", r.Parent, err)
	}
	if at.Before(parentAt) {
		r.observe("too_early")
		return apperr.Invalid(r.TooEarly)
	}
	return nil
}

func (r Rule) observe(reason string) {
	if r.Observer != nil {
		r.Observer.Rejected(r.Parent, reason)
	}
}

// AppointmentDate gates consultations.
func AppointmentDate(conn db.DBTX, obs Observer) Rule {
	return Rule{
		Parent:   "rendezVous",
		Source:   Table{DB: conn, Name: "appointments", Key: "id", Column: "date_time"},
		NotFound: "Rendez-vous non trouvé",
		TooEarly: "La date de consultation ne peut pas être antérieure à la date du rendez-vous",
		Observer: obs,
	}
}

// ConsultationDate gates prescriptions.
func ConsultationDate(conn db.DBTX, obs Observer) Rule {
	return Rule{
		Parent:   "consultation",
		Source:   Table{DB: conn, Name: "consultations", Key: "id", Column: "consulted_at"},
		NotFound: "Consultation non trouvée",
		TooEarly: "La date de prescription ne peut pas être antérieure à la date de consultation",
		Observer: obs,
	}
}

// PrescriptionDate gates exams.
func PrescriptionDate(conn db.DBTX, obs Observer) Rule {
	return Rule{
		Parent:   "prescription",
		Source:   Table{DB: conn, Name: "prescriptions", Key: "id", Column: "prescribed_at"},
		NotFound: "Prescription non trouvée",
		TooEarly: "La date de réalisation ne peut pas être antérieure à la date de prescription",
		Observer: obs,
	}
}

// ChildSource returns the earliest date among the dependents of a parent.
// ok is false when there are none, or none carry a date.
type ChildSource interface {
	EarliestOf(ctx context.Context, parentID int64) (at time.Time, ok bool, err error)
}

// Children reads the earliest dependent date from SQL.
type Children struct {
	DB        db.DBTX
	Name      string
	ParentKey string
	Column    string
}

func (c Children) EarliestOf(ctx context.Context, parentID int64) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT MIN(%s) FROM %s WHERE %s = $1", c.Column, c.Name, c.ParentKey)

	var at *time.Time
	if err := db.Conn(ctx, c.DB).QueryRow(ctx, q, parentID).Scan(&at); err != nil {
		return time.Time{}, false, fmt.Errorf("read min %s.%s: %w", c.Name, c.Column, err)
	}
	if at == nil {
		return time.Time{}, false, nil
	}
	return *at, true, nil
}

// Ceiling is the other side of a Rule: a parent whose date changes must not
// end up after any of its dependents. Run Check after the parent row has
// been updated in the same transaction, so no new dependent can slip in.
type Ceiling struct {
	Parent   string
	Children ChildSource
	TooLate  string
	Observer Observer
}

func (c Ceiling) Check(ctx context.Context, parentID int64, at time.Time) error {
	earliest, ok, err := c.Children.EarliestOf(ctx, parentID)
	if err != nil {
		return fmt.Errorf("check %s dependents: %w", c.Parent, err)
	}
	if ok && earliest.Before(at) {
		if c.Observer != nil {
			c.Observer.Rejected(c.Parent, "too_late")
		}
		return apperr.Invalid(c.TooLate)
	}
	return nil
}

// AppointmentMoves guards appointment date changes.
func AppointmentMoves(conn db.DBTX, obs Observer) Ceiling {
	return Ceiling{
		Parent:   "rendezVous",
		Children: Children{DB: conn, Name: "consultations", ParentKey: "appointment_id", Column: "consulted_at"},
		TooLate:  "La date du rendez-vous ne peut pas être postérieure à la date de sa consultation",
		Observer: obs,
	}
}

// ConsultationMoves guards consultation date changes.
func ConsultationMoves(conn db.DBTX, obs Observer) Ceiling {
	return Ceiling{
		Parent:   "consultation",
		Children: Children{DB: conn, Name: "prescriptions", ParentKey: "consultation_id", Column: "prescribed_at"},
		TooLate:  "La date de consultation ne peut pas être postérieure à la date de ses prescriptions",
		Observer: obs,
	}
}

// PrescriptionMoves guards prescription date changes. Exams without a
// realization date are ignored.
func PrescriptionMoves(conn db.DBTX, obs Observer) Ceiling {
	return Ceiling{
		Parent:   "prescription",
		Children: Children{DB: conn, Name: "exams", ParentKey: "prescription_id", Column: "performed_at"},
		TooLate:  "La date de prescription ne peut pas être postérieure à la date de réalisation de ses examens",
		Observer: obs,
	}
}
