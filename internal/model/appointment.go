package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the patient-side booking intent. The slot reservation it
// depends on lives in the schedule store; the booking saga reserves the slot
// remotely after this record commits.
type Appointment struct {
	Base
	PatientID   uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	HospitalID  uuid.UUID         `db:"hospital_id" json:"hospital_id"`
	Date        time.Time         `db:"date" json:"date"`
	TimeSlot    string            `db:"time_slot" json:"time_slot"`
	Status      AppointmentStatus `db:"status" json:"status"`
	SyncStatus  SyncStatus        `db:"sync_status" json:"sync_status"`
	SyncError   *string           `db:"sync_error" json:"-"`
	RetryCount  int               `db:"retry_count" json:"-"`
	NextRetryAt *time.Time        `db:"next_retry_at" json:"-"`
}

// BookingResult is the booking saga's composed outcome.
type BookingResult struct {
	Appointment *Appointment `json:"appointment"`
	RemoteErr   error        `json:"-"`
	RetryToken  string       `json:"retry_token,omitempty"`
}

func (r *BookingResult) Partial() bool {
	return r.Appointment != nil && r.Appointment.SyncStatus == SyncStatusPendingRemote
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id" binding:"required,uuid"`
	Date     string `json:"date" binding:"required,datetime=2006-01-02"`
	TimeSlot string `json:"time_slot" binding:"required,timeslot"`
}
