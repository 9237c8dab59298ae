package postgres

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "sqlmock"), mock
}

func testAssignment() *model.Assignment {
	return &model.Assignment{
		HospitalID: uuid.New(),
		AssigneeID: uuid.New(),
		Role:       model.RoleDoctor,
		Date:       time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		TimeSlot:   "MORNING",
		SyncStatus: model.SyncStatusPendingRemote,
	}
}

func TestScheduleCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(0, 1))

	assignment := testAssignment()
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEqual(t, uuid.Nil, assignment.ID)
	assert.False(t, assignment.CreatedAt.IsZero())
}

func TestScheduleCreateDuplicateSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO assignments").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Create(context.Background(), testAssignment())
	assert.True(t, stderrors.Is(err, repository.ErrDuplicate),
		"unique index violations surface as duplicates, not raw driver errors")
}

func TestScheduleGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM assignments").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), id)
	assert.True(t, stderrors.Is(err, repository.ErrNotFound))
}

func TestScheduleExistsSlot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	hospitalID := uuid.New()
	assigneeID := uuid.New()
	date := time.Date(2026, 9, 10, 15, 4, 5, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(hospitalID, assigneeID, model.TruncateToDate(date), "MORNING").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsSlot(context.Background(), hospitalID, assigneeID, date, "MORNING")
	require.NoError(t, err)
	assert.True(t, exists, "the time-of-day component never influences slot lookups")
}

func TestScheduleSoftDeleteNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	id := uuid.New()
	mock.ExpectExec("UPDATE assignments").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), id)
	assert.True(t, stderrors.Is(err, repository.ErrNotFound))
}

func TestSyncStoreMarkPendingRetry(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	id := uuid.New()
	nextRetry := time.Now().Add(time.Minute)
	mock.ExpectExec("UPDATE assignments").
		WithArgs(model.SyncStatusPendingRemote, "connection refused", nextRetry, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPendingRetry(context.Background(), id, "connection refused", nextRetry))
}

func TestSyncStoreMarkSyncedMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectExec("UPDATE assignments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, repo.MarkSynced(context.Background(), uuid.New()))
}

func TestSyncStoreListPendingTxClaimsDueRecords(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	recordID := uuid.New()
	createdAt := time.Now().Add(-time.Hour)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(model.SyncStatusPendingRemote, now, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "retry_count", "created_at"}).
			AddRow(recordID, "DOCTOR", 2, createdAt))
	mock.ExpectExec("UPDATE assignments").
		WithArgs(model.SyncStatusSynced, recordID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)

	records, err := repo.ListPendingTx(context.Background(), tx, 100, now)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, recordID, records[0].ID)
	assert.Equal(t, model.RoleDoctor, records[0].Role)
	assert.Equal(t, 2, records[0].RetryCount)

	require.NoError(t, repo.MarkSyncedTx(context.Background(), tx, recordID))
	require.NoError(t, tx.Commit())
}
