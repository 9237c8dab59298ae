package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
	"github.com/carewire/hospital-api/pkg/auth"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/security"
)

// Service is the auth boundary: it owns credentials and mints tokens.
// Caregiver credentials arrive pre-hashed through RegisterCredential;
// self-service patient registration and admin provisioning hash here.
type Service struct {
	repo      repository.CredentialRepository
	hospitals repository.HospitalRepository
	hasher    security.PasswordHasher
	tokens    auth.JWTService
	logger    *logger.Logger
}

func NewService(repo repository.CredentialRepository, hospitals repository.HospitalRepository, hasher security.PasswordHasher, tokens auth.JWTService, logger *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		hospitals: hospitals,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
	}
}

// Login verifies the password against the stored hash and mints a token.
// Unknown email and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	record, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(err)
		}
		return nil, errors.LocalPersistence(err)
	}

	if err := s.hasher.Compare(record.PasswordHash, req.Password); err != nil {
		return nil, errors.Unauthorized(err)
	}

	return s.mintToken(record)
}

// Register is the self-service path: the caller supplies a raw password.
// Open to patients only; caregiver credentials come through the saga and
// admin credentials through CreateAdmin. When SubjectID is set the
// credential shares the caller's chosen id so the token subject matches
// the record in the owning service.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	if req.Role != model.RolePatient {
		return nil, errors.Validation(fmt.Sprintf("role %q cannot self-register", req.Role), nil)
	}
	hospitalID, err := uuid.Parse(req.HospitalID)
	if err != nil {
		return nil, errors.Validation("invalid hospital id", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Validation("invalid password", err)
	}

	id := uuid.New()
	if req.SubjectID != "" {
		id, err = uuid.Parse(req.SubjectID)
		if err != nil {
			return nil, errors.Validation("invalid subject id", err)
		}
	}

	record := &model.CredentialRecord{
		Base:         model.Base{ID: id},
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		HospitalID:   hospitalID,
	}
	stored, err := s.createOwned(ctx, record)
	if err != nil {
		return nil, err
	}

	return s.mintToken(stored)
}

// CreateAdmin provisions a HOSPITAL_ADMIN credential for an existing
// hospital. The handler gates it behind the SUPER_ADMIN role.
func (s *Service) CreateAdmin(ctx context.Context, req *model.CreateAdminRequest) (*model.CredentialRecord, error) {
	hospitalID, err := uuid.Parse(req.HospitalID)
	if err != nil {
		return nil, errors.Validation("invalid hospital id", err)
	}
	if _, err := s.hospitals.Get(ctx, hospitalID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("hospital", err)
		}
		return nil, errors.LocalPersistence(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Validation("invalid password", err)
	}

	record := &model.CredentialRecord{
		Base:         model.Base{ID: uuid.New()},
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleHospitalAdmin,
		HospitalID:   hospitalID,
	}
	return s.createOwned(ctx, record)
}

// ListAdmins returns every active HOSPITAL_ADMIN credential.
func (s *Service) ListAdmins(ctx context.Context) ([]*model.CredentialRecord, error) {
	records, err := s.repo.ListByRole(ctx, model.RoleHospitalAdmin)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	return records, nil
}

// DeleteAdmin revokes an admin credential. Credentials with any other role
// are out of reach of this surface.
func (s *Service) DeleteAdmin(ctx context.Context, id uuid.UUID) error {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("admin", err)
		}
		return errors.LocalPersistence(err)
	}
	if record.Role != model.RoleHospitalAdmin {
		return errors.NotFound("admin", nil)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("admin", err)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}

// RegisterCredential is the service-facing leg of the caregiver registration
// saga. The payload carries a hash, never a raw password, and the operation
// is idempotent so the reconciler can replay it.
func (s *Service) RegisterCredential(ctx context.Context, payload *model.RegisterCredentialPayload) error {
	if !payload.Role.Valid() {
		return errors.Validation(fmt.Sprintf("invalid caregiver role %q", payload.Role), nil)
	}
	record := &model.CredentialRecord{
		Base:         model.Base{ID: payload.SubjectID},
		Email:        payload.Email,
		PasswordHash: payload.PasswordHash,
		Role:         payload.Role,
		HospitalID:   payload.HospitalID,
	}
	return s.create(ctx, record)
}

// ValidateToken resolves a bearer token to its claims.
func (s *Service) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}
	return claims, nil
}

// Me returns the credential behind a set of claims, for the whoami endpoint.
func (s *Service) Me(ctx context.Context, subjectID uuid.UUID) (*model.CredentialRecord, error) {
	record, err := s.repo.Get(ctx, subjectID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("credential", err)
		}
		return nil, errors.LocalPersistence(err)
	}
	return record, nil
}

func (s *Service) create(ctx context.Context, record *model.CredentialRecord) error {
	if err := s.repo.Create(ctx, record); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return errors.Conflict("credential with this email already exists", err)
		}
		return errors.LocalPersistence(err)
	}
	return nil
}

// createOwned inserts and then proves the row is ours. The insert is an
// idempotent no-op when the email is already taken, so a duplicate
// registration would otherwise succeed silently while someone else's row
// stays in place. A token must never be minted for a subject that was not
// stored.
func (s *Service) createOwned(ctx context.Context, record *model.CredentialRecord) (*model.CredentialRecord, error) {
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	stored, err := s.repo.GetByEmail(ctx, record.Email)
	if err != nil {
		return nil, errors.LocalPersistence(err)
	}
	if stored.ID != record.ID {
		return nil, errors.Conflict("credential with this email already exists", nil)
	}
	return stored, nil
}

func (s *Service) mintToken(record *model.CredentialRecord) (*model.TokenResponse, error) {
	token, err := s.tokens.GenerateToken(record.ID, string(record.Role), record.HospitalID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
