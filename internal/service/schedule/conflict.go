package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
)

// defaultAlternativesWindow bounds how far ahead the checker looks when
// suggesting rebooking dates after a leave conflict.
const defaultAlternativesWindow = 14

// ConflictError carries the machine-readable refusal so handlers can offer
// the rebooking UI without a second round trip.
type ConflictError struct {
	Reason       model.ConflictReason
	Alternatives []time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("assignment conflict: %s", e.Reason)
}

// ConflictChecker decides whether an assignment is legal before the write is
// issued. The check is advisory: two concurrent requests can both pass it,
// and the store's unique index settles who wins.
type ConflictChecker struct {
	caregivers repository.CaregiverRepository
	schedules  repository.ScheduleRepository
	windowDays int
}

func NewConflictChecker(caregivers repository.CaregiverRepository, schedules repository.ScheduleRepository, windowDays int) *ConflictChecker {
	if windowDays <= 0 {
		windowDays = defaultAlternativesWindow
	}
	return &ConflictChecker{
		caregivers: caregivers,
		schedules:  schedules,
		windowDays: windowDays,
	}
}

// Check applies the rules in order: leave membership first, then an existing
// booking for the same slot.
func (c *ConflictChecker) Check(ctx context.Context, hospitalID, assigneeID uuid.UUID, date time.Time, slot string) (*model.ConflictDecision, error) {
	date = model.TruncateToDate(date)

	onLeave, err := c.caregivers.IsOnLeave(ctx, assigneeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check leave: %w", err)
	}
	if onLeave {
		alternatives, err := c.availableDates(ctx, assigneeID, date)
		if err != nil {
			return nil, err
		}
		return &model.ConflictDecision{
			Legal:        false,
			Reason:       model.ConflictOnLeave,
			Alternatives: alternatives,
		}, nil
	}

	taken, err := c.schedules.ExistsSlot(ctx, hospitalID, assigneeID, date, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot: %w", err)
	}
	if taken {
		return &model.ConflictDecision{
			Legal:  false,
			Reason: model.ConflictSlotTaken,
		}, nil
	}

	return &model.ConflictDecision{Legal: true}, nil
}

// availableDates returns the assignee's non-leave days in a forward-looking
// window starting the day after the requested date.
func (c *ConflictChecker) availableDates(ctx context.Context, assigneeID uuid.UUID, from time.Time) ([]time.Time, error) {
	leaveDates, err := c.caregivers.LeaveDates(ctx, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave dates: %w", err)
	}

	onLeave := make(map[time.Time]struct{}, len(leaveDates))
	for _, d := range leaveDates {
		onLeave[model.TruncateToDate(d)] = struct{}{}
	}

	var available []time.Time
	for i := 1; i <= c.windowDays; i++ {
		day := from.AddDate(0, 0, i)
		if _, skip := onLeave[day]; !skip {
			available = append(available, day)
		}
	}
	return available, nil
}
