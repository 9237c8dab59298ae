package caregiver

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
	"github.com/carewire/hospital-api/internal/service/saga"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/remote"
	"github.com/carewire/hospital-api/pkg/security"
)

type fakeRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*model.CaregiverProfile
	byEmail     map[string]uuid.UUID
	leaves      map[uuid.UUID]map[string]bool
	refs        map[uuid.UUID]map[uuid.UUID]bool
	markedRetry []uuid.UUID
	markedFail  []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:    make(map[uuid.UUID]*model.CaregiverProfile),
		byEmail: make(map[string]uuid.UUID),
		leaves:  make(map[uuid.UUID]map[string]bool),
		refs:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *fakeRepo) Create(_ context.Context, p *model.CaregiverProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[p.Email]; taken {
		return fmt.Errorf("email taken: %w", repository.ErrDuplicate)
	}
	copied := *p
	r.byID[p.ID] = &copied
	r.byEmail[p.Email] = p.ID
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (*model.CaregiverProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("caregiver %s: %w", id, repository.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*model.CaregiverProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *fakeRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*model.CaregiverProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CaregiverProfile
	for _, p := range r.byID {
		if p.HospitalID == hospitalID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAvailableForDate(_ context.Context, hospitalID uuid.UUID, date time.Time) ([]*model.CaregiverProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := model.TruncateToDate(date).Format(model.DateOnly)
	var out []*model.CaregiverProfile
	for _, p := range r.byID {
		if p.HospitalID != hospitalID || !p.Available || r.leaves[p.ID][day] {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeRepo) SetAvailability(_ context.Context, id uuid.UUID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Available = available
	return nil
}

func (r *fakeRepo) AddLeaveDate(_ context.Context, id uuid.UUID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leaves[id] == nil {
		r.leaves[id] = make(map[string]bool)
	}
	r.leaves[id][model.TruncateToDate(date).Format(model.DateOnly)] = true
	return nil
}

func (r *fakeRepo) RemoveLeaveDate(_ context.Context, id uuid.UUID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leaves[id], model.TruncateToDate(date).Format(model.DateOnly))
	return nil
}

func (r *fakeRepo) IsOnLeave(_ context.Context, id uuid.UUID, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaves[id][model.TruncateToDate(date).Format(model.DateOnly)], nil
}

func (r *fakeRepo) LeaveDates(_ context.Context, id uuid.UUID) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for day := range r.leaves[id] {
		d, _ := time.Parse(model.DateOnly, day)
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeRepo) AddScheduleRef(_ context.Context, id, scheduleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	if r.refs[id] == nil {
		r.refs[id] = make(map[uuid.UUID]bool)
	}
	r.refs[id][scheduleID] = true
	return nil
}

func (r *fakeRepo) ScheduleRefs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for ref := range r.refs[id] {
		out = append(out, ref)
	}
	return out, nil
}

func (r *fakeRepo) MarkSynced(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		p.SyncStatus = model.SyncStatusSynced
	}
	return nil
}

func (r *fakeRepo) MarkPendingRetry(_ context.Context, id uuid.UUID, syncErr string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedRetry = append(r.markedRetry, id)
	if p, ok := r.byID[id]; ok {
		p.SyncStatus = model.SyncStatusPendingRemote
		p.SyncError = &syncErr
		p.RetryCount++
		p.NextRetryAt = &nextRetryAt
	}
	return nil
}

func (r *fakeRepo) MarkSyncFailed(_ context.Context, id uuid.UUID, syncErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markedFail = append(r.markedFail, id)
	if p, ok := r.byID[id]; ok {
		p.SyncStatus = model.SyncStatusFailed
		p.SyncError = &syncErr
	}
	return nil
}

func (r *fakeRepo) BeginTx(context.Context) (*sqlx.Tx, error) { return nil, nil }

func (r *fakeRepo) ListPendingTx(context.Context, *sqlx.Tx, int, time.Time) ([]*model.PendingRecord, error) {
	return nil, nil
}

func (r *fakeRepo) MarkSyncedTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	return r.MarkSynced(ctx, id)
}

func (r *fakeRepo) MarkPendingRetryTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID, syncErr string, nextRetryAt time.Time) error {
	return r.MarkPendingRetry(ctx, id, syncErr, nextRetryAt)
}

func (r *fakeRepo) MarkSyncFailedTx(ctx context.Context, _ *sqlx.Tx, id uuid.UUID, syncErr string) error {
	return r.MarkSyncFailed(ctx, id, syncErr)
}

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	payloads []interface{}
}

func (n *fakeNotifier) Send(_ context.Context, method, path string, payload interface{}, bearer string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	return n.err
}

func newTestService(repo *fakeRepo, notifier *fakeNotifier) *Service {
	coordinator := saga.NewCoordinator(30*time.Second, nil, logger.NewLogger(nil))
	return NewService(repo, security.NewBcryptHasher(bcrypt.MinCost), notifier, coordinator, logger.NewLogger(nil))
}

func registerRequest() *model.CreateCaregiverRequest {
	return &model.CreateCaregiverRequest{
		Name:     "Dr. Asha Rao",
		Email:    "asha.rao@hospital.example",
		Password: "s3cret-password",
		Role:     model.RoleDoctor,
	}
}

func TestRegisterSendsHashNeverRawPassword(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier)

	result, err := svc.Register(context.Background(), uuid.New(), registerRequest(), "admin-token")
	require.NoError(t, err)

	assert.Equal(t, model.SyncStatusSynced, result.Profile.SyncStatus)
	assert.Empty(t, result.Profile.Password, "raw password never echoes back")

	require.Len(t, notifier.payloads, 1)
	payload, ok := notifier.payloads[0].(model.RegisterCredentialPayload)
	require.True(t, ok)
	assert.NotEqual(t, "s3cret-password", payload.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(payload.PasswordHash), []byte("s3cret-password")))

	// The stored profile carries the same hash so the reconciler can replay
	// the credential registration later.
	stored, err := repo.Get(context.Background(), result.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, payload.PasswordHash, stored.PasswordHash)
}

func TestRegisterPartialWhenAuthServiceDown(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{err: &remote.Unreachable{Err: stderrors.New("connection refused")}}
	svc := newTestService(repo, notifier)

	result, err := svc.Register(context.Background(), uuid.New(), registerRequest(), "admin-token")
	require.NoError(t, err)

	assert.True(t, result.Partial())
	assert.Equal(t, result.Profile.ID.String(), result.RetryToken)
	assert.Len(t, repo.markedRetry, 1)

	stored, err := repo.Get(context.Background(), result.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusPendingRemote, stored.SyncStatus)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeNotifier{})

	_, err := svc.Register(context.Background(), uuid.New(), registerRequest(), "token")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), uuid.New(), registerRequest(), "token")
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeNotifier{})
	req := registerRequest()
	req.Role = model.Role("JANITOR")

	_, err := svc.Register(context.Background(), uuid.New(), req, "token")
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestAddScheduleRefIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeNotifier{})

	result, err := svc.Register(context.Background(), uuid.New(), registerRequest(), "token")
	require.NoError(t, err)

	scheduleID := uuid.New()
	require.NoError(t, svc.AddScheduleRef(context.Background(), result.Profile.ID, scheduleID))
	require.NoError(t, svc.AddScheduleRef(context.Background(), result.Profile.ID, scheduleID))

	profile, err := svc.Get(context.Background(), result.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{scheduleID}, profile.ScheduleRefs)
}

func TestAddScheduleRefUnknownCaregiver(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeNotifier{})
	err := svc.AddScheduleRef(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestListAvailableForDateHonorsLeaveAndFlag(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeNotifier{})
	hospitalID := uuid.New()
	date, _ := time.Parse(model.DateOnly, "2026-09-10")

	onDuty, err := svc.Register(context.Background(), hospitalID, registerRequest(), "token")
	require.NoError(t, err)

	onLeaveReq := registerRequest()
	onLeaveReq.Email = "leave@hospital.example"
	onLeave, err := svc.Register(context.Background(), hospitalID, onLeaveReq, "token")
	require.NoError(t, err)
	require.NoError(t, svc.AddLeaveDate(context.Background(), onLeave.Profile.ID, date))

	unavailableReq := registerRequest()
	unavailableReq.Email = "off@hospital.example"
	unavailable, err := svc.Register(context.Background(), hospitalID, unavailableReq, "token")
	require.NoError(t, err)
	require.NoError(t, svc.SetAvailability(context.Background(), unavailable.Profile.ID, false))

	available, err := svc.ListAvailableForDate(context.Background(), hospitalID, date)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, onDuty.Profile.ID, available[0].ID)
}
