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

const caregiverColumns = `
	id, name, email, role, hospital_id, department_id, specialization,
	available, password_hash, sync_status, sync_error, retry_count,
	next_retry_at, created_at, updated_at, deleted_at
`

func (r *caregiverRepository) Create(ctx context.Context, profile *model.CaregiverProfile) error {
	query := `
		INSERT INTO caregivers (
			id, name, email, role, hospital_id, department_id, specialization,
			available, password_hash, sync_status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.Name,
		profile.Email,
		profile.Role,
		profile.HospitalID,
		profile.DepartmentID,
		profile.Specialization,
		profile.Available,
		profile.PasswordHash,
		profile.SyncStatus,
		profile.RetryCount,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("caregiver with this email already exists: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create caregiver: %w", err)
	}
	return nil
}

func (r *caregiverRepository) Get(ctx context.Context, id uuid.UUID) (*model.CaregiverProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM caregivers WHERE id = $1 AND deleted_at IS NULL`, caregiverColumns)

	var profile model.CaregiverProfile
	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("caregiver %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get caregiver: %w", err)
	}
	return &profile, nil
}

func (r *caregiverRepository) GetByEmail(ctx context.Context, email string) (*model.CaregiverProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM caregivers WHERE email = $1 AND deleted_at IS NULL`, caregiverColumns)

	var profile model.CaregiverProfile
	err := r.db.GetContext(ctx, &profile, query, email)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("caregiver %s: %w", email, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get caregiver by email: %w", err)
	}
	return &profile, nil
}

func (r *caregiverRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.CaregiverProfile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM caregivers
		WHERE hospital_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
	`, caregiverColumns)

	var profiles []*model.CaregiverProfile
	if err := r.db.SelectContext(ctx, &profiles, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	return profiles, nil
}

func (r *caregiverRepository) ListAvailableForDate(ctx context.Context, hospitalID uuid.UUID, date time.Time) ([]*model.CaregiverProfile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM caregivers c
		WHERE c.hospital_id = $1
		AND c.available = TRUE
		AND c.deleted_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM caregiver_leaves l
			WHERE l.caregiver_id = c.id AND l.leave_date = $2
		)
		ORDER BY c.name ASC
	`, caregiverColumns)

	var profiles []*model.CaregiverProfile
	if err := r.db.SelectContext(ctx, &profiles, query, hospitalID, model.TruncateToDate(date)); err != nil {
		return nil, fmt.Errorf("failed to list available caregivers: %w", err)
	}
	return profiles, nil
}

func (r *caregiverRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	query := `
		UPDATE caregivers
		SET available = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, available, id)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("caregiver %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *caregiverRepository) AddLeaveDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	query := `
		INSERT INTO caregiver_leaves (caregiver_id, leave_date, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (caregiver_id, leave_date) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, id, model.TruncateToDate(date)); err != nil {
		return fmt.Errorf("failed to add leave date: %w", err)
	}
	return nil
}

func (r *caregiverRepository) RemoveLeaveDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	query := `
		DELETE FROM caregiver_leaves
		WHERE caregiver_id = $1 AND leave_date = $2
	`
	if _, err := r.db.ExecContext(ctx, query, id, model.TruncateToDate(date)); err != nil {
		return fmt.Errorf("failed to remove leave date: %w", err)
	}
	return nil
}

func (r *caregiverRepository) IsOnLeave(ctx context.Context, id uuid.UUID, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM caregiver_leaves
			WHERE caregiver_id = $1 AND leave_date = $2
		)
	`
	var onLeave bool
	if err := r.db.GetContext(ctx, &onLeave, query, id, model.TruncateToDate(date)); err != nil {
		return false, fmt.Errorf("failed to check leave: %w", err)
	}
	return onLeave, nil
}

func (r *caregiverRepository) LeaveDates(ctx context.Context, id uuid.UUID) ([]time.Time, error) {
	query := `
		SELECT leave_date FROM caregiver_leaves
		WHERE caregiver_id = $1
		ORDER BY leave_date ASC
	`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, id); err != nil {
		return nil, fmt.Errorf("failed to list leave dates: %w", err)
	}
	return dates, nil
}

// AddScheduleRef dedupes on the schedule id, not the date: two assignments
// on the same day are distinct, while a replayed notification for the same
// assignment is a no-op.
func (r *caregiverRepository) AddScheduleRef(ctx context.Context, id, scheduleID uuid.UUID) error {
	query := `
		INSERT INTO caregiver_schedule_refs (caregiver_id, schedule_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (caregiver_id, schedule_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, id, scheduleID)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("caregiver %s: %w", id, repository.ErrNotFound)
		}
		return fmt.Errorf("failed to add schedule ref: %w", err)
	}
	// Zero rows affected means the ref was already recorded. That is
	// success: notification replays must not surface as errors.
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

func (r *caregiverRepository) ScheduleRefs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT schedule_id FROM caregiver_schedule_refs
		WHERE caregiver_id = $1
		ORDER BY created_at ASC
	`
	var refs []uuid.UUID
	if err := r.db.SelectContext(ctx, &refs, query, id); err != nil {
		return nil, fmt.Errorf("failed to list schedule refs: %w", err)
	}
	return refs, nil
}
