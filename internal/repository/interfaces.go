package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carewire/hospital-api/internal/model"
)

// ErrDuplicate is returned when an insert loses the race against the store's
// uniqueness constraint. Callers map it to a user-visible conflict, never a
// generic failure.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

type ScheduleRepository interface {
	// Create inserts atomically; under a race for the same
	// (hospital, assignee, date, slot) exactly one insert succeeds and the
	// loser gets ErrDuplicate.
	Create(ctx context.Context, assignment *model.Assignment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Assignment, error)
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*model.Assignment, error)
	ExistsSlot(ctx context.Context, hospitalID, assigneeID uuid.UUID, date time.Time, slot string) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	SyncStatusStore
}

type CaregiverRepository interface {
	Create(ctx context.Context, profile *model.CaregiverProfile) error
	Get(ctx context.Context, id uuid.UUID) (*model.CaregiverProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.CaregiverProfile, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.CaregiverProfile, error)
	ListAvailableForDate(ctx context.Context, hospitalID uuid.UUID, date time.Time) ([]*model.CaregiverProfile, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error

	AddLeaveDate(ctx context.Context, id uuid.UUID, date time.Time) error
	RemoveLeaveDate(ctx context.Context, id uuid.UUID, date time.Time) error
	IsOnLeave(ctx context.Context, id uuid.UUID, date time.Time) (bool, error)
	LeaveDates(ctx context.Context, id uuid.UUID) ([]time.Time, error)

	// AddScheduleRef records that the caregiver was notified about an
	// assignment. Idempotent on the schedule id: replays are no-ops.
	AddScheduleRef(ctx context.Context, id, scheduleID uuid.UUID) error
	ScheduleRefs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)

	SyncStatusStore
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)

	SyncStatusStore
}

type CredentialRepository interface {
	// Create is idempotent on email: re-registering an identical identity is
	// a no-op success, so saga retries cannot double-register. Callers that
	// must know whether the row is theirs re-read by email and compare ids.
	Create(ctx context.Context, record *model.CredentialRecord) error
	GetByEmail(ctx context.Context, email string) (*model.CredentialRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*model.CredentialRecord, error)
	ListByRole(ctx context.Context, role model.Role) ([]*model.CredentialRecord, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type HospitalRepository interface {
	Create(ctx context.Context, hospital *model.Hospital) error
	Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error)
	List(ctx context.Context) ([]*model.Hospital, error)
	Update(ctx context.Context, hospital *model.Hospital) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// SyncStatusStore is the bookkeeping every saga-managed table shares: the
// coordinator flips records between sync states and the reconciler drains
// the pending ones.
type SyncStatusStore interface {
	MarkSynced(ctx context.Context, id uuid.UUID) error
	MarkPendingRetry(ctx context.Context, id uuid.UUID, syncErr string, nextRetryAt time.Time) error
	MarkSyncFailed(ctx context.Context, id uuid.UUID, syncErr string) error

	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	// ListPendingTx selects due PENDING_REMOTE rows with FOR UPDATE SKIP
	// LOCKED, serializing reconciliation per record across workers.
	ListPendingTx(ctx context.Context, tx *sqlx.Tx, limit int, now time.Time) ([]*model.PendingRecord, error)
	MarkSyncedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	MarkPendingRetryTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, syncErr string, nextRetryAt time.Time) error
	MarkSyncFailedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, syncErr string) error
}
