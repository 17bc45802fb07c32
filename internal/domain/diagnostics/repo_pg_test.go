package diagnostics

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/clinic/internal/domain/timeline"
	"github.com/clinic/clinic/internal/domain/validate"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
)

var examColumns = []string{
	"id", "prescription_id", "kind", "performed_at", "status", "result", "laboratory",
	"image", "has_image", "created_at", "updated_at",
	"prescription_kind", "prescribed_at", "dosage", "last_name", "first_name",
}

const lockPrescription = "SELECT prescribed_at FROM prescriptions WHERE id = $1 FOR SHARE"

func newSQLService(mock pgxmock.PgxPoolIface) *Service {
	return NewService(NewRepo(mock), db.NewTransactor(mock), timeline.PrescriptionDate(mock, nil))
}

func TestRepo_GetOmitsImageBytes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("NULL::bytea, e.image IS NOT NULL")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(examColumns).AddRow(
			int64(4), int64(2), "Scanner", nil, StatusPrescribed, nil, nil,
			nil, true, now, now,
			"Imagerie", now, nil, "Rakoto", "Jean",
		))

	got, err := NewRepo(mock).GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, got.HasImage)
	assert.Nil(t, got.Image)
	assert.Equal(t, "Imagerie", got.PrescriptionKind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ListFiltersAndImages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.prescription_id = $1 AND e.status = $2 ORDER BY e.created_at DESC")).
		WithArgs(int64(2), StatusDone).
		WillReturnRows(pgxmock.NewRows(examColumns))
	mock.ExpectQuery(regexp.QuoteMeta("e.image, e.image IS NOT NULL")).
		WillReturnRows(pgxmock.NewRows(examColumns))

	repo := NewRepo(mock)
	out, err := repo.List(context.Background(), Filter{PrescriptionID: 2, Status: StatusDone}, false)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = repo.List(context.Background(), Filter{}, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_UpdateReplacesImage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE exams SET status = $1, result = NULL, image = $2, image_type = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4")).
		WithArgs(StatusDone, pngImage.Data, "image/png", int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE exams SET image = NULL, image_type = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepo(mock)
	patch := &Patch{
		Status: validate.Some(StatusDone),
		Result: validate.Optional[string]{Set: true, Null: true},
		Image:  pngImage,
	}
	require.NoError(t, repo.Update(context.Background(), 4, patch))

	err = repo.Update(context.Background(), 4, &Patch{RemoveImage: true})
	assert.True(t, db.IsNoRows(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Image(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ct := "image/png"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT image, image_type FROM exams WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"image", "image_type"}).AddRow(pngImage.Data, &ct))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT image, image_type FROM exams WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"image", "image_type"}).AddRow(nil, nil))

	repo := NewRepo(mock)
	img, err := repo.Image(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngImage.Data, img.Data)

	img, err = repo.Image(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, img)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_UsedPrescriptions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT prescription_id FROM exams")).
		WillReturnRows(pgxmock.NewRows([]string{"prescription_id"}).AddRow(int64(1)).AddRow(int64(3)))

	ids, err := NewRepo(mock).UsedPrescriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateChecksPrescriptionInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	prescribedAt := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockPrescription)).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"prescribed_at"}).AddRow(prescribedAt))
	mock.ExpectRollback()

	_, err = newSQLService(mock).Create(context.Background(), &CreateInput{
		PrescriptionID: 2,
		Kind:           "Analyse",
		PerformedAt:    &validate.DateTime{Time: prescribedAt.Add(-time.Minute)},
	})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_UpdateLocksExamThenPrescription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	prescribedAt := time.Date(2025, 1, 12, 12, 0, 0, 0, time.UTC)
	performedAt := time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT prescription_id, performed_at FROM exams WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"prescription_id", "performed_at"}).AddRow(int64(1), &performedAt))
	mock.ExpectQuery(regexp.QuoteMeta(lockPrescription)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"prescribed_at"}).AddRow(prescribedAt))
	mock.ExpectRollback()

	_, err = newSQLService(mock).Update(context.Background(), 4, &Patch{PrescriptionID: validate.Some(int64(3))})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
