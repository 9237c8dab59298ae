package appointment

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

const reserveSlotPath = "/api/v1/internal/reservations"

// Service is the patient-facing booking flow. The patient identity always
// comes from the bearer claims, never from the request body.
type Service struct {
	repo             repository.AppointmentRepository
	scheduleNotifier remote.Notifier
	coordinator      *saga.Coordinator
	logger           *logger.Logger
}

func NewService(repo repository.AppointmentRepository, scheduleNotifier remote.Notifier, coordinator *saga.Coordinator, logger *logger.Logger) *Service {
	return &Service{
		repo:             repo,
		scheduleNotifier: scheduleNotifier,
		coordinator:      coordinator,
		logger:           logger,
	}
}

// Book commits the booking intent locally and reserves the backing schedule
// slot remotely. A rejected reservation surfaces as a generic booking
// failure: the response must not reveal whose booking holds the slot.
func (s *Service) Book(ctx context.Context, patientID, hospitalID uuid.UUID, req *model.BookAppointmentRequest, bearer string) (*model.BookingResult, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, errors.Validation("invalid doctor id", err)
	}
	date, err := time.Parse(model.DateOnly, req.Date)
	if err != nil {
		return nil, errors.Validation("invalid date, expected YYYY-MM-DD", err)
	}
	if !model.ValidTimeSlot(req.TimeSlot) {
		return nil, errors.Validation(fmt.Sprintf("invalid time slot %q", req.TimeSlot), nil)
	}

	appointment := &model.Appointment{
		Base:       model.Base{ID: uuid.New()},
		PatientID:  patientID,
		DoctorID:   doctorID,
		HospitalID: hospitalID,
		Date:       model.TruncateToDate(date),
		TimeSlot:   req.TimeSlot,
		Status:     model.AppointmentStatusBooked,
		SyncStatus: model.SyncStatusPendingRemote,
	}

	op := saga.Operation{
		Flow:     "appointment_booking",
		RecordID: appointment.ID,
		CommitLocal: func(ctx context.Context) error {
			if err := s.repo.Create(ctx, appointment); err != nil {
				if stderrors.Is(err, repository.ErrDuplicate) {
					return errors.Conflict("booking failed", err)
				}
				return errors.LocalPersistence(err)
			}
			return nil
		},
		NotifyRemote: func(ctx context.Context, bearer string) error {
			payload := model.ReserveSlotPayload{
				AppointmentID: appointment.ID,
				DoctorID:      appointment.DoctorID,
				HospitalID:    appointment.HospitalID,
				Date:          appointment.Date.Format(model.DateOnly),
				TimeSlot:      appointment.TimeSlot,
			}
			return s.scheduleNotifier.Send(ctx, http.MethodPost, reserveSlotPath, payload, bearer)
		},
		MarkSynced: func(ctx context.Context) error {
			appointment.SyncStatus = model.SyncStatusSynced
			return s.repo.MarkSynced(ctx, appointment.ID)
		},
		MarkPending: func(ctx context.Context, syncErr string, nextRetryAt time.Time) error {
			return s.repo.MarkPendingRetry(ctx, appointment.ID, syncErr, nextRetryAt)
		},
		MarkFailed: func(ctx context.Context, syncErr string) error {
			appointment.SyncStatus = model.SyncStatusFailed
			return s.repo.MarkSyncFailed(ctx, appointment.ID, syncErr)
		},
	}

	outcome, err := s.coordinator.Execute(ctx, op, bearer)
	if err != nil {
		return nil, err
	}

	appointment.SyncStatus = outcome.Status
	if outcome.Status == model.SyncStatusFailed {
		// The schedule service refused the reservation. Deliberately
		// generic: no detail about the existing booking leaks out.
		return nil, errors.Conflict("booking failed", outcome.RemoteErr)
	}

	return &model.BookingResult{
		Appointment: appointment,
		RemoteErr:   outcome.RemoteErr,
		RetryToken:  outcome.RetryToken,
	}, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	return appointments, nil
}
