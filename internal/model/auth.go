package model

import (
	"time"

	"github.com/google/uuid"
)

// CredentialRecord is the auth boundary's view of an identity. It is created
// once per caregiver profile by the registration saga; there is no foreign
// key between the two stores.
type CredentialRecord struct {
	Base
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	HospitalID   uuid.UUID `db:"hospital_id" json:"hospital_id"`
}

// RegisterRequest is the public self-service registration body. Only
// patients register themselves: caregivers get credentials through the
// registration saga, hospital admins through the SUPER_ADMIN provisioning
// endpoint.
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       Role   `json:"role" binding:"required,oneof=PATIENT"`
	HospitalID string `json:"hospital_id" binding:"required,uuid"`
	SubjectID  string `json:"subject_id" binding:"omitempty,uuid"`
}

// CreateAdminRequest provisions a HOSPITAL_ADMIN credential for one
// hospital.
type CreateAdminRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	HospitalID string `json:"hospital_id" binding:"required,uuid"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Extra roles that hold credentials but are never schedule assignees.
// SUPER_ADMIN is the platform operator: it provisions hospitals and their
// admins and is seeded out of band, never through the API.
const (
	RolePatient       Role = "PATIENT"
	RoleHospitalAdmin Role = "HOSPITAL_ADMIN"
	RoleSuperAdmin    Role = "SUPER_ADMIN"
)
