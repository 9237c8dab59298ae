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

// Create registers a credential. ON CONFLICT DO NOTHING makes registration
// idempotent on email: a saga retry whose first attempt actually landed is a
// no-op success, not a duplicate error.
func (r *credentialRepository) Create(ctx context.Context, record *model.CredentialRecord) error {
	query := `
		INSERT INTO credentials (
			id, email, password_hash, role, hospital_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Email,
		record.PasswordHash,
		record.Role,
		record.HospitalID,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("credential for this identity already exists: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*model.CredentialRecord, error) {
	query := `
		SELECT id, email, password_hash, role, hospital_id, created_at, updated_at, deleted_at
		FROM credentials
		WHERE email = $1 AND deleted_at IS NULL
	`
	var record model.CredentialRecord
	err := r.db.GetContext(ctx, &record, query, email)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential %s: %w", email, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &record, nil
}

func (r *credentialRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.CredentialRecord, error) {
	query := `
		SELECT id, email, password_hash, role, hospital_id, created_at, updated_at, deleted_at
		FROM credentials
		WHERE role = $1 AND deleted_at IS NULL
		ORDER BY email ASC
	`
	var records []*model.CredentialRecord
	if err := r.db.SelectContext(ctx, &records, query, role); err != nil {
		return nil, fmt.Errorf("failed to list credentials by role: %w", err)
	}
	return records, nil
}

func (r *credentialRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE credentials
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credential %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *credentialRepository) Get(ctx context.Context, id uuid.UUID) (*model.CredentialRecord, error) {
	query := `
		SELECT id, email, password_hash, role, hospital_id, created_at, updated_at, deleted_at
		FROM credentials
		WHERE id = $1 AND deleted_at IS NULL
	`
	var record model.CredentialRecord
	err := r.db.GetContext(ctx, &record, query, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &record, nil
}
