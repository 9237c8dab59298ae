package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/carewire/hospital-api/internal/repository"
)

type scheduleRepository struct {
	db *sqlx.DB
	syncStore
}

type caregiverRepository struct {
	db *sqlx.DB
	syncStore
}

type appointmentRepository struct {
	db *sqlx.DB
	syncStore
}

type credentialRepository struct {
	db *sqlx.DB
}

type hospitalRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{
		db:        db,
		syncStore: newSyncStore(db, "assignments", "role"),
	}
}

func NewCaregiverRepository(db *sqlx.DB) repository.CaregiverRepository {
	return &caregiverRepository{
		db:        db,
		syncStore: newSyncStore(db, "caregivers", "role"),
	}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{
		db:        db,
		syncStore: newSyncStore(db, "appointments", "'DOCTOR'"),
	}
}

func NewCredentialRepository(db *sqlx.DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

func NewHospitalRepository(db *sqlx.DB) repository.HospitalRepository {
	return &hospitalRepository{db: db}
}
