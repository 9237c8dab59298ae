package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewire/hospital-api/internal/model"
)

func TestCheckLegalWhenNoConflicts(t *testing.T) {
	checker := NewConflictChecker(newFakeCaregiverRepo(), newFakeScheduleRepo(), 14)

	decision, err := checker.Check(context.Background(), uuid.New(), uuid.New(), time.Now(), "MORNING")
	require.NoError(t, err)
	assert.True(t, decision.Legal)
}

func TestCheckRefusesLeaveWithAlternatives(t *testing.T) {
	caregivers := newFakeCaregiverRepo()
	assigneeID := uuid.New()
	date := model.TruncateToDate(time.Now())
	caregivers.addLeave(assigneeID, date)
	caregivers.addLeave(assigneeID, date.AddDate(0, 0, 2))

	checker := NewConflictChecker(caregivers, newFakeScheduleRepo(), 5)

	decision, err := checker.Check(context.Background(), uuid.New(), assigneeID, date, "MORNING")
	require.NoError(t, err)

	assert.False(t, decision.Legal)
	assert.Equal(t, model.ConflictOnLeave, decision.Reason)
	// Window of 5 days starting tomorrow, minus the second leave day.
	require.Len(t, decision.Alternatives, 4)
	for _, alt := range decision.Alternatives {
		assert.NotEqual(t, date, alt)
		assert.NotEqual(t, date.AddDate(0, 0, 2), alt)
	}
}

func TestCheckRefusesTakenSlot(t *testing.T) {
	schedules := newFakeScheduleRepo()
	hospitalID := uuid.New()
	assigneeID := uuid.New()
	date := model.TruncateToDate(time.Now())

	require.NoError(t, schedules.Create(context.Background(), &model.Assignment{
		HospitalID: hospitalID,
		AssigneeID: assigneeID,
		Role:       model.RoleDoctor,
		Date:       date,
		TimeSlot:   "MORNING",
	}))

	checker := NewConflictChecker(newFakeCaregiverRepo(), schedules, 14)

	decision, err := checker.Check(context.Background(), hospitalID, assigneeID, date, "MORNING")
	require.NoError(t, err)
	assert.False(t, decision.Legal)
	assert.Equal(t, model.ConflictSlotTaken, decision.Reason)

	// Same person, different slot is fine.
	decision, err = checker.Check(context.Background(), hospitalID, assigneeID, date, "EVENING")
	require.NoError(t, err)
	assert.True(t, decision.Legal)
}

func TestCheckLeaveTakesPrecedenceOverSlot(t *testing.T) {
	caregivers := newFakeCaregiverRepo()
	schedules := newFakeScheduleRepo()
	hospitalID := uuid.New()
	assigneeID := uuid.New()
	date := model.TruncateToDate(time.Now())

	caregivers.addLeave(assigneeID, date)
	require.NoError(t, schedules.Create(context.Background(), &model.Assignment{
		HospitalID: hospitalID,
		AssigneeID: assigneeID,
		Role:       model.RoleDoctor,
		Date:       date,
		TimeSlot:   "MORNING",
	}))

	checker := NewConflictChecker(caregivers, schedules, 14)

	decision, err := checker.Check(context.Background(), hospitalID, assigneeID, date, "MORNING")
	require.NoError(t, err)
	assert.Equal(t, model.ConflictOnLeave, decision.Reason)
}
