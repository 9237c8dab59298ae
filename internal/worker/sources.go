package worker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
)

// ScheduleSource replays assignment notifications to the service that owns
// the assignee's role.
func ScheduleSource(repo repository.ScheduleRepository) Source {
	return Source{
		Flow:  "schedule_assignment",
		Store: repo,
		Load: func(ctx context.Context, id uuid.UUID) (*RemoteLeg, error) {
			assignment, err := repo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return &RemoteLeg{
				Role:    string(assignment.Role),
				Method:  http.MethodPatch,
				Path:    fmt.Sprintf("/api/v1/caregivers/%s/schedule", assignment.AssigneeID),
				Payload: model.ScheduleRefRequest{ScheduleID: assignment.ID.String()},
			}, nil
		},
	}
}

// CaregiverSource replays credential registrations to the auth boundary.
// The stored bcrypt hash travels, never a raw password.
func CaregiverSource(repo repository.CaregiverRepository) Source {
	return Source{
		Flow:  "caregiver_registration",
		Store: repo,
		Load: func(ctx context.Context, id uuid.UUID) (*RemoteLeg, error) {
			profile, err := repo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return &RemoteLeg{
				Role:   TargetAuth,
				Method: http.MethodPost,
				Path:   "/api/v1/internal/credentials",
				Payload: model.RegisterCredentialPayload{
					SubjectID:    profile.ID,
					Email:        profile.Email,
					Role:         profile.Role,
					HospitalID:   profile.HospitalID,
					PasswordHash: profile.PasswordHash,
				},
			}, nil
		},
	}
}

// AppointmentSource replays slot reservations to the schedule service. The
// receiving side is idempotent on the appointment id, so a reservation that
// actually landed before a timeout is a harmless no-op.
func AppointmentSource(repo repository.AppointmentRepository) Source {
	return Source{
		Flow:  "appointment_booking",
		Store: repo,
		Load: func(ctx context.Context, id uuid.UUID) (*RemoteLeg, error) {
			appointment, err := repo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			return &RemoteLeg{
				Role:   TargetSchedule,
				Method: http.MethodPost,
				Path:   "/api/v1/internal/reservations",
				Payload: model.ReserveSlotPayload{
					AppointmentID: appointment.ID,
					DoctorID:      appointment.DoctorID,
					HospitalID:    appointment.HospitalID,
					Date:          appointment.Date.Format(model.DateOnly),
					TimeSlot:      appointment.TimeSlot,
				},
			}, nil
		},
	}
}
