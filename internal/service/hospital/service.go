package hospital

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/logger"
)

// Service manages the hospital roster. Purely local: hospitals have no
// remote owner, so writes never enter the sync pipeline.
type Service struct {
	repo   repository.HospitalRepository
	logger *logger.Logger
}

func NewService(repo repository.HospitalRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, req *model.CreateHospitalRequest) (*model.Hospital, error) {
	hospital := &model.Hospital{
		Name:    req.Name,
		Address: req.Address,
	}
	if err := s.repo.Create(ctx, hospital); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.Conflict("hospital with this name already exists", err)
		}
		return nil, errors.LocalPersistence(err)
	}
	return hospital, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Hospital, error) {
	hospital, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("hospital", err)
		}
		return nil, errors.LocalPersistence(err)
	}
	return hospital, nil
}

func (s *Service) List(ctx context.Context) ([]*model.Hospital, error) {
	hospitals, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	return hospitals, nil
}

// Update merges the request into the stored record; empty fields keep their
// stored value.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateHospitalRequest) (*model.Hospital, error) {
	hospital, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		hospital.Name = req.Name
	}
	if req.Address != "" {
		hospital.Address = req.Address
	}

	if err := s.repo.Update(ctx, hospital); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrDuplicate):
			return nil, errors.Conflict("hospital with this name already exists", err)
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errors.NotFound("hospital", err)
		}
		return nil, errors.LocalPersistence(err)
	}
	return hospital, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("hospital", err)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}
