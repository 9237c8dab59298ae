package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor Role = "DOCTOR"
	RoleNurse  Role = "NURSE"
	RoleStaff  Role = "STAFF"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleNurse, RoleStaff:
		return true
	}
	return false
}

// Time slots are coarse by design; finer-grained scheduling lives inside
// the owning service.
const (
	TimeSlotMorning   = "MORNING"
	TimeSlotAfternoon = "AFTERNOON"
	TimeSlotEvening   = "EVENING"
)

func ValidTimeSlot(slot string) bool {
	switch slot {
	case TimeSlotMorning, TimeSlotAfternoon, TimeSlotEvening:
		return true
	}
	return false
}

// SyncStatus tracks the remote leg of a cross-service write. The local row
// is authoritative the moment it commits; SyncStatus records whether the
// owning service has learned about it yet.
type SyncStatus string

const (
	SyncStatusSynced        SyncStatus = "SYNCED"
	SyncStatusPendingRemote SyncStatus = "PENDING_REMOTE"
	SyncStatusFailed        SyncStatus = "SYNC_FAILED"
)

// Assignment commits one caregiver to one hospital, date and time slot.
// The tuple (hospital, assignee, date, slot) is unique; the store enforces
// it with a unique index so concurrent requests cannot both win.
type Assignment struct {
	Base
	HospitalID  uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	AssigneeID  uuid.UUID  `db:"assignee_id" json:"assignee_id"`
	Role        Role       `db:"role" json:"role"`
	Date        time.Time  `db:"date" json:"date"`
	TimeSlot    string     `db:"time_slot" json:"time_slot"`
	SyncStatus  SyncStatus `db:"sync_status" json:"sync_status"`
	SyncError   *string    `db:"sync_error" json:"sync_error,omitempty"`
	RetryCount  int        `db:"retry_count" json:"-"`
	NextRetryAt *time.Time `db:"next_retry_at" json:"-"`
}

type CreateAssignmentRequest struct {
	AssignedTo string `json:"assigned_to" binding:"required,uuid"`
	Role       Role   `json:"role" binding:"required,oneof=DOCTOR NURSE STAFF"`
	Date       string `json:"date" binding:"required,datetime=2006-01-02"`
	TimeSlot   string `json:"time_slot" binding:"required,timeslot"`
}

// ConflictReason explains why an assignment was refused.
type ConflictReason string

const (
	ConflictOnLeave   ConflictReason = "ON_LEAVE"
	ConflictSlotTaken ConflictReason = "SLOT_TAKEN"
)

// ConflictDecision is the outcome of the pre-write legality check. The check
// is advisory: the store's unique index remains the authority under races.
type ConflictDecision struct {
	Legal        bool           `json:"legal"`
	Reason       ConflictReason `json:"reason,omitempty"`
	Alternatives []time.Time    `json:"alternatives,omitempty"`
}

// AssignmentResult is what a write returns to the caller: the committed
// local record plus the state of its remote leg.
type AssignmentResult struct {
	Assignment *Assignment `json:"assignment"`
	RemoteErr  error       `json:"-"`
	RetryToken string      `json:"retry_token,omitempty"`
}

func (r *AssignmentResult) Partial() bool {
	return r.Assignment != nil && r.Assignment.SyncStatus == SyncStatusPendingRemote
}
