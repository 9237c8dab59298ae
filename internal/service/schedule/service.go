package schedule

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
	"github.com/carewire/hospital-api/internal/service/saga"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/remote"
)

// Service owns schedule assignments: the conflict pre-check, the atomic
// local commit, and the notification to the service that owns the assignee.
type Service struct {
	repo        repository.ScheduleRepository
	checker     *ConflictChecker
	notifiers   *remote.Registry
	coordinator *saga.Coordinator
	logger      *logger.Logger
}

func NewService(repo repository.ScheduleRepository, checker *ConflictChecker, notifiers *remote.Registry, coordinator *saga.Coordinator, logger *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		checker:     checker,
		notifiers:   notifiers,
		coordinator: coordinator,
		logger:      logger,
	}
}

// AssignSchedule runs the full pipeline: legality check, local commit,
// remote notification. The caller's bearer is forwarded unchanged to the
// remote leg; this service never widens privilege.
func (s *Service) AssignSchedule(ctx context.Context, hospitalID uuid.UUID, req *model.CreateAssignmentRequest, bearer string) (*model.AssignmentResult, error) {
	assigneeID, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		return nil, errors.Validation("invalid assignee id", err)
	}
	if !req.Role.Valid() {
		return nil, errors.Validation(fmt.Sprintf("invalid role %q", req.Role), nil)
	}
	date, err := time.Parse(model.DateOnly, req.Date)
	if err != nil {
		return nil, errors.Validation("invalid date, expected YYYY-MM-DD", err)
	}
	if !model.ValidTimeSlot(req.TimeSlot) {
		return nil, errors.Validation(fmt.Sprintf("invalid time slot %q", req.TimeSlot), nil)
	}

	decision, err := s.checker.Check(ctx, hospitalID, assigneeID, date, req.TimeSlot)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	if !decision.Legal {
		return nil, s.conflictError(req.Role, decision)
	}

	assignment := &model.Assignment{
		HospitalID: hospitalID,
		AssigneeID: assigneeID,
		Role:       req.Role,
		Date:       model.TruncateToDate(date),
		TimeSlot:   req.TimeSlot,
	}

	notifier, notifierErr := s.notifiers.For(string(req.Role))
	if notifierErr != nil {
		// No remote owner for this role (e.g. STAFF): the local store is
		// the only authority and the record is synced on commit.
		assignment.SyncStatus = model.SyncStatusSynced
		if err := s.createLocal(ctx, assignment); err != nil {
			return nil, err
		}
		return &model.AssignmentResult{Assignment: assignment}, nil
	}

	assignment.SyncStatus = model.SyncStatusPendingRemote
	assignment.ID = uuid.New()

	op := saga.Operation{
		Flow:     "schedule_assignment",
		RecordID: assignment.ID,
		CommitLocal: func(ctx context.Context) error {
			return s.createLocal(ctx, assignment)
		},
		NotifyRemote: func(ctx context.Context, bearer string) error {
			path := fmt.Sprintf("/api/v1/caregivers/%s/schedule", assignment.AssigneeID)
			return notifier.Send(ctx, http.MethodPatch, path, model.ScheduleRefRequest{ScheduleID: assignment.ID.String()}, bearer)
		},
		MarkSynced: func(ctx context.Context) error {
			assignment.SyncStatus = model.SyncStatusSynced
			return s.repo.MarkSynced(ctx, assignment.ID)
		},
		MarkPending: func(ctx context.Context, syncErr string, nextRetryAt time.Time) error {
			return s.repo.MarkPendingRetry(ctx, assignment.ID, syncErr, nextRetryAt)
		},
		MarkFailed: func(ctx context.Context, syncErr string) error {
			assignment.SyncStatus = model.SyncStatusFailed
			return s.repo.MarkSyncFailed(ctx, assignment.ID, syncErr)
		},
	}

	outcome, err := s.coordinator.Execute(ctx, op, bearer)
	if err != nil {
		return nil, err
	}

	assignment.SyncStatus = outcome.Status
	return &model.AssignmentResult{
		Assignment: assignment,
		RemoteErr:  outcome.RemoteErr,
		RetryToken: outcome.RetryToken,
	}, nil
}

func (s *Service) createLocal(ctx context.Context, assignment *model.Assignment) error {
	if err := s.repo.Create(ctx, assignment); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			// The advisory check passed but the unique index said no: a
			// concurrent request won the slot.
			return errors.Conflict(
				"schedule already exists for this person on the selected date and time slot",
				&ConflictError{Reason: model.ConflictSlotTaken},
			)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}

func (s *Service) conflictError(role model.Role, decision *model.ConflictDecision) error {
	switch decision.Reason {
	case model.ConflictOnLeave:
		return errors.Conflict(
			fmt.Sprintf("%s is on leave on the requested date", role),
			&ConflictError{Reason: model.ConflictOnLeave, Alternatives: decision.Alternatives},
		)
	default:
		return errors.Conflict(
			"schedule already exists for this person on the selected date and time slot",
			&ConflictError{Reason: model.ConflictSlotTaken},
		)
	}
}

func (s *Service) GetAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	assignment, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("assignment", err)
		}
		return nil, errors.LocalPersistence(err)
	}
	return assignment, nil
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.Assignment, error) {
	assignments, err := s.repo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	return assignments, nil
}

func (s *Service) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*model.Assignment, error) {
	assignments, err := s.repo.ListByAssignee(ctx, assigneeID)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	return assignments, nil
}

// ReserveSlot is the receiving side of the booking saga: the patient flow
// asks for the slot backing an appointment. Keyed on the appointment id so
// reconciler replays of a notification that actually landed are no-ops.
func (s *Service) ReserveSlot(ctx context.Context, payload *model.ReserveSlotPayload) (*model.Assignment, error) {
	if existing, err := s.repo.Get(ctx, payload.AppointmentID); err == nil {
		return existing, nil
	}

	date, err := time.Parse(model.DateOnly, payload.Date)
	if err != nil {
		return nil, errors.Validation("invalid date, expected YYYY-MM-DD", err)
	}
	if !model.ValidTimeSlot(payload.TimeSlot) {
		return nil, errors.Validation(fmt.Sprintf("invalid time slot %q", payload.TimeSlot), nil)
	}

	decision, err := s.checker.Check(ctx, payload.HospitalID, payload.DoctorID, date, payload.TimeSlot)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	if !decision.Legal {
		if existing := s.ownReservation(ctx, payload, date); existing != nil {
			return existing, nil
		}
		return nil, s.conflictError(model.RoleDoctor, decision)
	}

	assignment := &model.Assignment{
		Base:       model.Base{ID: payload.AppointmentID},
		HospitalID: payload.HospitalID,
		AssigneeID: payload.DoctorID,
		Role:       model.RoleDoctor,
		Date:       model.TruncateToDate(date),
		TimeSlot:   payload.TimeSlot,
		SyncStatus: model.SyncStatusSynced,
	}
	if err := s.createLocal(ctx, assignment); err != nil {
		if existing := s.ownReservation(ctx, payload, date); existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return assignment, nil
}

// ownReservation re-reads by appointment id after a refused reservation. A
// replay can lose the race against its own first attempt: the original
// commits between the replay's initial lookup miss and its insert, and the
// slot conflict is then the reservation itself. Returning the conflict
// would make the reconciler abandon a booking that actually exists.
func (s *Service) ownReservation(ctx context.Context, payload *model.ReserveSlotPayload, date time.Time) *model.Assignment {
	existing, err := s.repo.Get(ctx, payload.AppointmentID)
	if err != nil {
		return nil
	}
	if existing.AssigneeID != payload.DoctorID ||
		existing.TimeSlot != payload.TimeSlot ||
		!existing.Date.Equal(model.TruncateToDate(date)) {
		return nil
	}
	return existing
}

// CancelAssignment soft-deletes; the row survives for audit and a rebooking
// creates a fresh assignment.
func (s *Service) CancelAssignment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("assignment", err)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}
