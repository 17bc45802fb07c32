package prescription

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/domain/timeline"
	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/apperr"
)

type inlineTx struct{}

func (inlineTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type consultations map[int64]time.Time

func (c consultations) DateOf(_ context.Context, id int64) (time.Time, error) {
	at, ok := c[id]
	if !ok {
		return time.Time{}, timeline.ErrParentNotFound
	}
	return at, nil
}

type performedAt map[int64]time.Time

func (p performedAt) EarliestOf(_ context.Context, id int64) (time.Time, bool, error) {
	at, ok := p[id]
	return at, ok, nil
}

type mockRepo struct {
	nextID        int64
	prescriptions map[int64]*Prescription
}

func newMockRepo() *mockRepo {
	return &mockRepo{nextID: 1, prescriptions: make(map[int64]*Prescription)}
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.prescriptions[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) Lock(_ context.Context, id int64) (int64, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return p.ConsultationID, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, patch *Patch) error {
	p, ok := m.prescriptions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if patch.Kind.Set {
		p.Kind = patch.Kind.Value
	}
	if patch.Dosage.Set {
		if patch.Dosage.Null {
			p.Dosage = nil
		} else {
			v := patch.Dosage.Value
			p.Dosage = &v
		}
	}
	if patch.PrescribedAt.Set {
		p.PrescribedAt = patch.PrescribedAt.Value.Time
	}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.prescriptions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.prescriptions, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, consultationID int64) ([]*Prescription, error) {
	var out []*Prescription
	for _, p := range m.prescriptions {
		if consultationID == 0 || p.ConsultationID == consultationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func at(s string) *validate.DateTime {
	t, err := validate.ParseDateTime(s)
	if err != nil {
		panic(err)
	}
	return &validate.DateTime{Time: t}
}

func strPtr(s string) *string { return &s }

type fixture struct {
	svc   *Service
	repo  *mockRepo
	exams performedAt
}

// newFixture has consultation 1 on 2025-01-10 10:00 and a clock at
// 2025-01-10 15:30.
func newFixture() *fixture {
	repo := newMockRepo()
	exams := performedAt{}
	after := timeline.Rule{
		Parent:   "consultation",
		Source:   consultations{1: at("2025-01-10T10:00").Time},
		NotFound: msgConsultationNotFound,
		TooEarly: "La date de prescription ne peut pas être antérieure à la date de consultation",
	}
	moves := timeline.Ceiling{Parent: "prescription", Children: exams, TooLate: "postérieure"}
	svc := NewService(repo, inlineTx{}, after, moves)
	svc.now = func() time.Time { return at("2025-01-10T15:30").Time }
	return &fixture{svc: svc, repo: repo, exams: exams}
}

func TestCreate_DefaultsDateToNow(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), &CreateInput{ConsultationID: 1, Kind: " Amoxicilline ", Dosage: strPtr("1g x 3/j")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.PrescribedAt.Equal(at("2025-01-10T15:30").Time) {
		t.Errorf("expected date defaulted to now, got %v", p.PrescribedAt)
	}
	if p.Kind != "Amoxicilline" {
		t.Errorf("expected trimmed kind, got %q", p.Kind)
	}
}

func TestCreate_ChecksConsultationDate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, &CreateInput{ConsultationID: 1, Kind: "Analyse", PrescribedAt: at("2025-01-10T09:59")})
	if apperr.KindOf(err) != apperr.KindInvalid || !strings.Contains(err.Error(), "antérieure") {
		t.Errorf("expected too early, got %v", err)
	}

	if _, err := f.svc.Create(ctx, &CreateInput{ConsultationID: 1, Kind: "Analyse", PrescribedAt: at("2025-01-10T10:00")}); err != nil {
		t.Errorf("expected equal dates to pass, got %v", err)
	}

	_, err = f.svc.Create(ctx, &CreateInput{ConsultationID: 7, Kind: "Analyse"})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected unknown consultation to be not found, got %v", err)
	}

	_, err = f.svc.Create(ctx, &CreateInput{ConsultationID: 1, Kind: "  "})
	if apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected missing kind to be invalid, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, _ := f.svc.Create(ctx, &CreateInput{ConsultationID: 1, Kind: "Radiologie thorax"})

	updated, err := f.svc.Update(ctx, p.ID, &Patch{
		Dosage:       validate.Some("une fois"),
		PrescribedAt: validate.Some(*at("2025-01-10T11:00")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Dosage == nil || *updated.Dosage != "une fois" {
		t.Errorf("unexpected dosage %v", updated.Dosage)
	}

	tests := []struct {
		name  string
		id    int64
		patch *Patch
		want  apperr.Kind
	}{
		{"no fields", p.ID, &Patch{}, apperr.KindInvalid},
		{"blank kind", p.ID, &Patch{Kind: validate.Some(" ")}, apperr.KindInvalid},
		{"before consultation", p.ID, &Patch{PrescribedAt: validate.Some(*at("2025-01-09T11:00"))}, apperr.KindInvalid},
		{"unknown prescription", 99, &Patch{PrescribedAt: validate.Some(*at("2025-01-11T11:00"))}, apperr.KindNotFound},
		{"unknown prescription kind only", 99, &Patch{Kind: validate.Some("x")}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, tt.id, tt.patch)
			if err == nil || apperr.KindOf(err) != tt.want {
				t.Errorf("expected kind %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdate_CannotMovePastExam(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, _ := f.svc.Create(ctx, &CreateInput{ConsultationID: 1, Kind: "Analyse", PrescribedAt: at("2025-01-10T10:30")})
	f.exams[p.ID] = at("2025-01-11T08:00").Time

	_, err := f.svc.Update(ctx, p.ID, &Patch{PrescribedAt: validate.Some(*at("2025-01-11T09:00"))})
	if apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected move past exam to be rejected, got %v", err)
	}
}

func TestByConsultationAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, _ := f.svc.Create(ctx, &CreateInput{ConsultationID: 1, Kind: "Analyse"})

	out, err := f.svc.ByConsultation(ctx, 1)
	if err != nil || len(out) != 1 {
		t.Fatalf("expected 1 prescription, got %d (%v)", len(out), err)
	}
	if err := f.svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.Get(ctx, p.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}
