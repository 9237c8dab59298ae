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

const uniqueViolation = "23505"

// The assignments table carries a unique index on
// (hospital_id, assignee_id, date, time_slot) WHERE deleted_at IS NULL.
// That index, not the advisory pre-check, decides races.

func (r *scheduleRepository) Create(ctx context.Context, assignment *model.Assignment) error {
	query := `
		INSERT INTO assignments (
			id, hospital_id, assignee_id, role, date, time_slot,
			sync_status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	assignment.Date = model.TruncateToDate(assignment.Date)
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = assignment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.HospitalID,
		assignment.AssigneeID,
		assignment.Role,
		assignment.Date,
		assignment.TimeSlot,
		assignment.SyncStatus,
		assignment.RetryCount,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("assignment for this slot already exists: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	query := `
		SELECT id, hospital_id, assignee_id, role, date, time_slot,
			   sync_status, sync_error, retry_count, next_retry_at,
			   created_at, updated_at, deleted_at
		FROM assignments
		WHERE id = $1 AND deleted_at IS NULL
	`
	var assignment model.Assignment
	err := r.db.GetContext(ctx, &assignment, query, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("assignment %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (r *scheduleRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Assignment, error) {
	query := `
		SELECT id, hospital_id, assignee_id, role, date, time_slot,
			   sync_status, sync_error, retry_count, next_retry_at,
			   created_at, updated_at, deleted_at
		FROM assignments
		WHERE hospital_id = $1 AND deleted_at IS NULL
		ORDER BY date ASC, time_slot ASC
	`
	var assignments []*model.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list assignments by hospital: %w", err)
	}
	return assignments, nil
}

func (r *scheduleRepository) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*model.Assignment, error) {
	query := `
		SELECT id, hospital_id, assignee_id, role, date, time_slot,
			   sync_status, sync_error, retry_count, next_retry_at,
			   created_at, updated_at, deleted_at
		FROM assignments
		WHERE assignee_id = $1 AND deleted_at IS NULL
		ORDER BY date ASC, time_slot ASC
	`
	var assignments []*model.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, assigneeID); err != nil {
		return nil, fmt.Errorf("failed to list assignments by assignee: %w", err)
	}
	return assignments, nil
}

func (r *scheduleRepository) ExistsSlot(ctx context.Context, hospitalID, assigneeID uuid.UUID, date time.Time, slot string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE hospital_id = $1
			AND assignee_id = $2
			AND date = $3
			AND time_slot = $4
			AND deleted_at IS NULL
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, hospitalID, assigneeID, model.TruncateToDate(date), slot)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

// SoftDelete supersedes an assignment without destroying its audit trail;
// cancellation and rebooking always create new rows.
func (r *scheduleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE assignments
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("assignment %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
