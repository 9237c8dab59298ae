package model

import (
	"time"

	"github.com/google/uuid"
)

// CaregiverProfile is the local record for a doctor, nurse or staff member.
// The matching CredentialRecord lives in the auth boundary; keeping the two
// consistent is the registration saga's job, not the database's.
type CaregiverProfile struct {
	Base
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Role           Role       `db:"role" json:"role"`
	HospitalID     uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	DepartmentID   *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	Specialization *string    `db:"specialization" json:"specialization,omitempty"`
	Available      bool       `db:"available" json:"available"`
	Password       string     `db:"-" json:"password,omitempty"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	SyncStatus     SyncStatus `db:"sync_status" json:"sync_status"`
	SyncError      *string    `db:"sync_error" json:"sync_error,omitempty"`
	RetryCount     int        `db:"retry_count" json:"-"`
	NextRetryAt    *time.Time `db:"next_retry_at" json:"-"`

	LeaveDates   []time.Time `db:"-" json:"leave_dates,omitempty"`
	ScheduleRefs []uuid.UUID `db:"-" json:"schedule_refs,omitempty"`
}

// Sanitize clears fields that must never be echoed back to callers.
func (p *CaregiverProfile) Sanitize() {
	p.Password = ""
}

type CreateCaregiverRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Role           Role   `json:"role" binding:"required,oneof=DOCTOR NURSE STAFF"`
	DepartmentID   string `json:"department_id" binding:"omitempty,uuid"`
	Specialization string `json:"specialization"`
}

type LeaveRequest struct {
	Date string `json:"date" binding:"required,datetime=2006-01-02"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// RegistrationResult is the registration saga's composed outcome: the
// sanitized local profile plus the state of the credential-registration leg.
type RegistrationResult struct {
	Profile    *CaregiverProfile `json:"profile"`
	RemoteErr  error             `json:"-"`
	RetryToken string            `json:"retry_token,omitempty"`
}

func (r *RegistrationResult) Partial() bool {
	return r.Profile != nil && r.Profile.SyncStatus == SyncStatusPendingRemote
}

// ScheduleRefRequest is the cross-service notification payload: the schedule
// service tells the caregiver's owning service about a new assignment.
// Receivers dedupe on the schedule id, so replays are harmless.
type ScheduleRefRequest struct {
	ScheduleID string `json:"schedule_id" binding:"required,uuid"`
}
