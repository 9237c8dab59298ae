package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
)

// The hospitals table carries a unique index on (name) WHERE deleted_at IS
// NULL so the operator cannot register the same hospital twice.

func (r *hospitalRepository) Create(ctx context.Context, hospital *model.Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if hospital.ID == uuid.Nil {
		hospital.ID = uuid.New()
	}
	hospital.CreatedAt = time.Now()
	hospital.UpdatedAt = hospital.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		hospital.ID,
		hospital.Name,
		hospital.Address,
		hospital.CreatedAt,
		hospital.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("hospital with this name already exists: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create hospital: %w", err)
	}
	return nil
}

func (r *hospitalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	query := `
		SELECT id, name, address, created_at, updated_at, deleted_at
		FROM hospitals
		WHERE id = $1 AND deleted_at IS NULL
	`
	var hospital model.Hospital
	err := r.db.GetContext(ctx, &hospital, query, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("hospital %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}
	return &hospital, nil
}

func (r *hospitalRepository) List(ctx context.Context) ([]*model.Hospital, error) {
	query := `
		SELECT id, name, address, created_at, updated_at, deleted_at
		FROM hospitals
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`
	var hospitals []*model.Hospital
	if err := r.db.SelectContext(ctx, &hospitals, query); err != nil {
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}
	return hospitals, nil
}

func (r *hospitalRepository) Update(ctx context.Context, hospital *model.Hospital) error {
	query := `
		UPDATE hospitals
		SET name = $2, address = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`
	hospital.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query, hospital.ID, hospital.Name, hospital.Address, hospital.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("hospital with this name already exists: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to update hospital: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("hospital %s: %w", hospital.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *hospitalRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE hospitals
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete hospital: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("hospital %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
