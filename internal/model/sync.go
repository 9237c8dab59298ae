package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingRecord is a saga-managed row whose remote leg has not succeeded
// yet. The reconciler re-reads the full record by id before replaying, so
// only the retry bookkeeping travels here.
type PendingRecord struct {
	ID         uuid.UUID `db:"id"`
	Role       Role      `db:"role"`
	RetryCount int       `db:"retry_count"`
	CreatedAt  time.Time `db:"created_at"`
}

// RegisterCredentialPayload is the service-to-service registration call the
// caregiver saga sends to the auth boundary. The secret travels as a bcrypt
// hash so the notification can be replayed by the reconciler without the
// profile store ever holding the raw password.
type RegisterCredentialPayload struct {
	SubjectID    uuid.UUID `json:"subject_id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	HospitalID   uuid.UUID `json:"hospital_id"`
	PasswordHash string    `json:"password_hash"`
}

// ReserveSlotPayload is the booking saga's remote leg: the patient service
// asks the schedule service to reserve the slot backing an appointment.
// Idempotent on the appointment id.
type ReserveSlotPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	HospitalID    uuid.UUID `json:"hospital_id"`
	Date          string    `json:"date"`
	TimeSlot      string    `json:"time_slot"`
}
