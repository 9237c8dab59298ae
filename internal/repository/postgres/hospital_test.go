package postgres

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
)

func TestHospitalCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHospitalRepository(db)

	mock.ExpectExec("INSERT INTO hospitals").WillReturnResult(sqlmock.NewResult(0, 1))

	hospital := &model.Hospital{Name: "General", Address: "1 Main St"}
	require.NoError(t, repo.Create(context.Background(), hospital))
	assert.NotEqual(t, uuid.Nil, hospital.ID)
	assert.False(t, hospital.CreatedAt.IsZero())
}

func TestHospitalCreateDuplicateName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHospitalRepository(db)

	mock.ExpectExec("INSERT INTO hospitals").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Create(context.Background(), &model.Hospital{Name: "General"})
	assert.True(t, stderrors.Is(err, repository.ErrDuplicate))
}

func TestHospitalGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHospitalRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM hospitals").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), id)
	assert.True(t, stderrors.Is(err, repository.ErrNotFound))
}

func TestHospitalUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHospitalRepository(db)

	hospital := &model.Hospital{
		Base:    model.Base{ID: uuid.New()},
		Name:    "General",
		Address: "1 Main St",
	}
	mock.ExpectExec("UPDATE hospitals").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), hospital)
	assert.True(t, stderrors.Is(err, repository.ErrNotFound))
}

func TestCredentialListByRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCredentialRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "hospital_id", "created_at", "updated_at", "deleted_at"}).
		AddRow(uuid.New(), "admin@example.com", "hash", "HOSPITAL_ADMIN", uuid.New(), now, now, nil)
	mock.ExpectQuery("SELECT (.+) FROM credentials").
		WithArgs(model.RoleHospitalAdmin).
		WillReturnRows(rows)

	records, err := repo.ListByRole(context.Background(), model.RoleHospitalAdmin)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.RoleHospitalAdmin, records[0].Role)
}

func TestCredentialSoftDeleteNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCredentialRepository(db)

	id := uuid.New()
	mock.ExpectExec("UPDATE credentials").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), id)
	assert.True(t, stderrors.Is(err, repository.ErrNotFound))
}
