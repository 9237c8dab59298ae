package caregiver

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
	"github.com/carewire/hospital-api/pkg/security"
)

const registerCredentialPath = "/api/v1/internal/credentials"

// Service owns caregiver profiles and the registration saga that keeps the
// auth boundary's credential store in step with them.
type Service struct {
	repo         repository.CaregiverRepository
	hasher       security.PasswordHasher
	authNotifier remote.Notifier
	coordinator  *saga.Coordinator
	logger       *logger.Logger
}

func NewService(repo repository.CaregiverRepository, hasher security.PasswordHasher, authNotifier remote.Notifier, coordinator *saga.Coordinator, logger *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		hasher:       hasher,
		authNotifier: authNotifier,
		coordinator:  coordinator,
		logger:       logger,
	}
}

// Register creates the local profile and registers the matching credential
// in the auth service. The secret is hashed once here; only the hash is
// stored and only the hash travels, so the reconciler can replay the remote
// leg without a raw password.
func (s *Service) Register(ctx context.Context, hospitalID uuid.UUID, req *model.CreateCaregiverRequest, bearer string) (*model.RegistrationResult, error) {
	if !req.Role.Valid() {
		return nil, errors.Validation(fmt.Sprintf("invalid role %q", req.Role), nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Validation("invalid password", err)
	}

	profile := &model.CaregiverProfile{
		Base:         model.Base{ID: uuid.New()},
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		HospitalID:   hospitalID,
		Available:    true,
		PasswordHash: hash,
		SyncStatus:   model.SyncStatusPendingRemote,
	}
	if req.DepartmentID != "" {
		deptID, err := uuid.Parse(req.DepartmentID)
		if err != nil {
			return nil, errors.Validation("invalid department id", err)
		}
		profile.DepartmentID = &deptID
	}
	if req.Specialization != "" {
		profile.Specialization = &req.Specialization
	}

	op := saga.Operation{
		Flow:     "caregiver_registration",
		RecordID: profile.ID,
		CommitLocal: func(ctx context.Context) error {
			if err := s.repo.Create(ctx, profile); err != nil {
				if stderrors.Is(err, repository.ErrDuplicate) {
					return errors.Conflict("caregiver with this email already exists", err)
				}
				return errors.LocalPersistence(err)
			}
			return nil
		},
		NotifyRemote: func(ctx context.Context, bearer string) error {
			payload := model.RegisterCredentialPayload{
				SubjectID:    profile.ID,
				Email:        profile.Email,
				Role:         profile.Role,
				HospitalID:   profile.HospitalID,
				PasswordHash: profile.PasswordHash,
			}
			return s.authNotifier.Send(ctx, http.MethodPost, registerCredentialPath, payload, bearer)
		},
		MarkSynced: func(ctx context.Context) error {
			profile.SyncStatus = model.SyncStatusSynced
			return s.repo.MarkSynced(ctx, profile.ID)
		},
		MarkPending: func(ctx context.Context, syncErr string, nextRetryAt time.Time) error {
			return s.repo.MarkPendingRetry(ctx, profile.ID, syncErr, nextRetryAt)
		},
		MarkFailed: func(ctx context.Context, syncErr string) error {
			profile.SyncStatus = model.SyncStatusFailed
			return s.repo.MarkSyncFailed(ctx, profile.ID, syncErr)
		},
	}

	outcome, err := s.coordinator.Execute(ctx, op, bearer)
	if err != nil {
		return nil, err
	}

	profile.SyncStatus = outcome.Status
	profile.Sanitize()
	return &model.RegistrationResult{
		Profile:    profile,
		RemoteErr:  outcome.RemoteErr,
		RetryToken: outcome.RetryToken,
	}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.CaregiverProfile, error) {
	profile, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("caregiver", err)
		}
		return nil, errors.LocalPersistence(err)
	}
	s.enrich(ctx, profile)
	profile.Sanitize()
	return profile, nil
}

func (s *Service) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*model.CaregiverProfile, error) {
	profiles, err := s.repo.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	for _, p := range profiles {
		s.enrich(ctx, p)
		p.Sanitize()
	}
	return profiles, nil
}

// ListAvailableForDate returns caregivers who are flagged available and not
// on leave on the given date.
func (s *Service) ListAvailableForDate(ctx context.Context, hospitalID uuid.UUID, date time.Time) ([]*model.CaregiverProfile, error) {
	profiles, err := s.repo.ListAvailableForDate(ctx, hospitalID, date)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	for _, p := range profiles {
		p.Sanitize()
	}
	return profiles, nil
}

func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	if err := s.repo.SetAvailability(ctx, id, available); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("caregiver", err)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}

func (s *Service) AddLeaveDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.AddLeaveDate(ctx, id, date); err != nil {
		return errors.LocalPersistence(err)
	}
	return nil
}

func (s *Service) RemoveLeaveDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	if err := s.repo.RemoveLeaveDate(ctx, id, date); err != nil {
		return errors.LocalPersistence(err)
	}
	return nil
}

// AddScheduleRef is the receiving side of the assignment notification.
// Idempotent on the schedule id.
func (s *Service) AddScheduleRef(ctx context.Context, id, scheduleID uuid.UUID) error {
	if err := s.repo.AddScheduleRef(ctx, id, scheduleID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("caregiver", err)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}

// enrich attaches the leave and schedule-ref sets; failures degrade to an
// un-enriched profile rather than failing the read.
func (s *Service) enrich(ctx context.Context, profile *model.CaregiverProfile) {
	leaves, err := s.repo.LeaveDates(ctx, profile.ID)
	if err != nil {
		s.logger.Error(err, "failed to load leave dates", "caregiver_id", profile.ID.String())
	} else {
		profile.LeaveDates = leaves
	}

	refs, err := s.repo.ScheduleRefs(ctx, profile.ID)
	if err != nil {
		s.logger.Error(err, "failed to load schedule refs", "caregiver_id", profile.ID.String())
	} else {
		profile.ScheduleRefs = refs
	}
}
