//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/domain/consultation"
	"github.com/clinic/clinic/internal/domain/diagnostics"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/prescription"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/domain/timeline"
	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/migrations"
)

// globalPool is shared by every test; TestMain migrates it once.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	code, err := run(ctx, m, connStr)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(ctx context.Context, m *testing.M, connStr string) (int, error) {
	migrator, err := db.NewMigrator(connStr, migrations.FS)
	if err != nil {
		return 0, err
	}
	if _, err := migrator.Up(); err != nil {
		migrator.Close()
		return 0, err
	}
	migrator.Close()

	pool, err := db.NewPool(ctx, connStr, 10, 2)
	if err != nil {
		return 0, err
	}
	defer pool.Close()
	globalPool = pool
	return m.Run(), nil
}

type services struct {
	identity     *identity.Service
	scheduling   *scheduling.Service
	consultation *consultation.Service
	prescription *prescription.Service
	diagnostics  *diagnostics.Service
}

// newServices wires every domain on a freshly truncated database.
func newServices(t *testing.T) *services {
	t.Helper()
	_, err := globalPool.Exec(context.Background(),
		`TRUNCATE patients, practitioners RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}

	pool := globalPool
	tx := db.NewTransactor(pool)
	return &services{
		identity: identity.NewService(identity.NewPatientRepo(pool), identity.NewPractitionerRepo(pool)),
		scheduling: scheduling.NewService(scheduling.NewRepo(pool), tx,
			timeline.AppointmentMoves(pool, nil)),
		consultation: consultation.NewService(consultation.NewRepo(pool), tx,
			timeline.AppointmentDate(pool, nil), timeline.ConsultationMoves(pool, nil)),
		prescription: prescription.NewService(prescription.NewRepo(pool), tx,
			timeline.ConsultationDate(pool, nil), timeline.PrescriptionMoves(pool, nil)),
		diagnostics: diagnostics.NewService(diagnostics.NewRepo(pool), tx,
			timeline.PrescriptionDate(pool, nil)),
	}
}

const (
	patientCIN      = "1234 5678 9012"
	practitionerCIN = "9876 5432 1098"
)

func seedParties(t *testing.T, s *services) {
	t.Helper()
	ctx := context.Background()
	err := s.identity.CreatePatient(ctx, &identity.Patient{
		CIN: patientCIN, LastName: "Rakoto", FirstName: "Jean", Age: 34, Sex: "M",
	})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	err = s.identity.CreatePractitioner(ctx, &identity.Practitioner{
		CIN: practitionerCIN, LastName: "Rabe", FirstName: "Marie",
	})
	if err != nil {
		t.Fatalf("create practitioner: %v", err)
	}
}

func createAppointment(t *testing.T, s *services, when string) *scheduling.Appointment {
	t.Helper()
	a, err := s.scheduling.Create(context.Background(), &scheduling.CreateInput{
		PatientCIN:      patientCIN,
		PractitionerCIN: practitionerCIN,
		DateTime:        at(when),
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func at(s string) *validate.DateTime {
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return &validate.DateTime{Time: t}
}
