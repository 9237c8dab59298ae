package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
)

type fakeScheduleRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*model.Assignment
	slots       map[string]uuid.UUID
	markedSync  []uuid.UUID
	markedRetry []uuid.UUID
	markedFail  []uuid.UUID

	// onGetMiss fires once on the next lookup miss, letting a test commit a
	// competing record in the window between a miss and the insert.
	onGetMiss func()
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		byID:  make(map[uuid.UUID]*model.Assignment),
		slots: make(map[string]uuid.UUID),
	}
}

func slotKey(hospitalID, assigneeID uuid.UUID, date time.Time, slot string) string {
	return fmt.Sprintf("%s|%s|%s|%s", hospitalID, assigneeID, date.Format(model.DateOnly), slot)
}

func (r *fakeScheduleRepo) Create(_ context.Context, a *model.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey(a.HospitalID, a.AssigneeID, a.Date, a.TimeSlot)
	if _, taken := r.slots[key]; taken {
		return fmt.Errorf("slot taken: %w", repository.ErrDuplicate)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	copied := *a
	r.byID[a.ID] = &copied
	r.slots[key] = a.ID
	return nil
}

func (r *fakeScheduleRepo) Get(_ context.Context, id uuid.UUID) (*model.Assignment, error) {
	r.mu.Lock()
	a, ok := r.byID[id]
	if ok {
		copied := *a
		r.mu.Unlock()
		return &copied, nil
	}
	hook := r.onGetMiss
	r.onGetMiss = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil, fmt.Errorf("assignment %s: %w", id, repository.ErrNotFound)
}

func (r *fakeScheduleRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*model.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Assignment
	for _, a := range r.byID {
		if a.HospitalID == hospitalID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ListByAssignee(_ context.Context, assigneeID uuid.UUID) ([]*model.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Assignment
	for _, a := range r.byID {
		if a.AssigneeID == assigneeID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) ExistsSlot(_ context.Context, hospitalID, assigneeID uuid.UUID, date time.Time, slot string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.slots[slotKey(hospitalID, assigneeID, date, slot)]
	return taken, nil
}

func (r *fakeScheduleRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("assignment %s: %w", id, repository.ErrNotFound)
	}
	delete(r.byID, id)
	delete(r.slots, slotKey(a.HospitalID, a.AssigneeID, a.Date, a.TimeSlot))
	return nil
}

func (r *fakeScheduleRepo) MarkSynced(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedSync = append(r.markedSync, id)
	if a, ok := r.byID[id]; ok {
		a.SyncStatus = model.SyncStatusSynced
	}
	return nil
}

func (r *fakeScheduleRepo) MarkPendingRetry(_ context.Context, id uuid.UUID, syncErr string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedRetry = append(r.markedRetry, id)
	if a, ok := r.byID[id]; ok {
		a.SyncStatus = model.SyncStatusPendingRemote
		a.SyncError = &syncErr
		a.RetryCount++
		a.NextRetryAt = &nextRetryAt
	}
	return nil
}

func (r *fakeScheduleRepo) MarkSyncFailed(_ context.Context, id uuid.UUID, syncErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedFail = append(r.markedFail, id)
	if a, ok := r.byID[id]; ok {
		a.SyncStatus = model.SyncStatusFailed
		a.SyncError = &syncErr
	}
	return nil
}

func (r *fakeScheduleRepo) BeginTx(context.Context) (*sqlx.Tx, error) { return nil, nil }

func (r *fakeScheduleRepo) ListPendingTx(context.Context, *sqlx.Tx, int, time.Time) ([]*model.PendingRecord, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) MarkSyncedTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	return r.MarkSynced(ctx, id)
}

func (r *fakeScheduleRepo) MarkPendingRetryTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID, syncErr string, nextRetryAt time.Time) error {
	return r.MarkPendingRetry(ctx, id, syncErr, nextRetryAt)
}

func (r *fakeScheduleRepo) MarkSyncFailedTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID, syncErr string) error {
	return r.MarkSyncFailed(ctx, id, syncErr)
}

type fakeCaregiverRepo struct {
	mu     sync.Mutex
	leaves map[uuid.UUID]map[string]bool
}

func newFakeCaregiverRepo() *fakeCaregiverRepo {
	return &fakeCaregiverRepo{leaves: make(map[uuid.UUID]map[string]bool)}
}

func (r *fakeCaregiverRepo) addLeave(id uuid.UUID, date time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leaves[id] == nil {
		r.leaves[id] = make(map[string]bool)
	}
	r.leaves[id][model.TruncateToDate(date).Format(model.DateOnly)] = true
}

func (r *fakeCaregiverRepo) IsOnLeave(_ context.Context, id uuid.UUID, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaves[id][model.TruncateToDate(date).Format(model.DateOnly)], nil
}

func (r *fakeCaregiverRepo) LeaveDates(_ context.Context, id uuid.UUID) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for day := range r.leaves[id] {
		d, _ := time.Parse(model.DateOnly, day)
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeCaregiverRepo) Create(context.Context, *model.CaregiverProfile) error { return nil }

func (r *fakeCaregiverRepo) Get(_ context.Context, id uuid.UUID) (*model.CaregiverProfile, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeCaregiverRepo) GetByEmail(context.Context, string) (*model.CaregiverProfile, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeCaregiverRepo) ListByHospital(context.Context, uuid.UUID) ([]*model.CaregiverProfile, error) {
	return nil, nil
}

func (r *fakeCaregiverRepo) ListAvailableForDate(context.Context, uuid.UUID, time.Time) ([]*model.CaregiverProfile, error) {
	return nil, nil
}

func (r *fakeCaregiverRepo) SetAvailability(context.Context, uuid.UUID, bool) error { return nil }

func (r *fakeCaregiverRepo) AddLeaveDate(_ context.Context, id uuid.UUID, date time.Time) error {
	r.addLeave(id, date)
	return nil
}

func (r *fakeCaregiverRepo) RemoveLeaveDate(context.Context, uuid.UUID, time.Time) error { return nil }

func (r *fakeCaregiverRepo) AddScheduleRef(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (r *fakeCaregiverRepo) ScheduleRefs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (r *fakeCaregiverRepo) MarkSynced(context.Context, uuid.UUID) error { return nil }

func (r *fakeCaregiverRepo) MarkPendingRetry(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (r *fakeCaregiverRepo) MarkSyncFailed(context.Context, uuid.UUID, string) error { return nil }

func (r *fakeCaregiverRepo) BeginTx(context.Context) (*sqlx.Tx, error) { return nil, nil }

func (r *fakeCaregiverRepo) ListPendingTx(context.Context, *sqlx.Tx, int, time.Time) ([]*model.PendingRecord, error) {
	return nil, nil
}

func (r *fakeCaregiverRepo) MarkSyncedTx(context.Context, *sqlx.Tx, uuid.UUID) error { return nil }

func (r *fakeCaregiverRepo) MarkPendingRetryTx(context.Context, *sqlx.Tx, uuid.UUID, string, time.Time) error {
	return nil
}

func (r *fakeCaregiverRepo) MarkSyncFailedTx(context.Context, *sqlx.Tx, uuid.UUID, string) error {
	return nil
}

type sentCall struct {
	method  string
	path    string
	payload interface{}
	bearer  string
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	calls []sentCall
}

func (n *fakeNotifier) Send(_ context.Context, method, path string, payload interface{}, bearer string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, sentCall{method: method, path: path, payload: payload, bearer: bearer})
	return n.err
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
