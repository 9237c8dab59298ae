package saga

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewire/hospital-api/internal/alert"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/remote"
)

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (r *recordingAlerter) Fire(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

type opRecorder struct {
	committed   bool
	synced      bool
	pending     bool
	failed      bool
	pendingAt   time.Time
	notifyCtx   context.Context
	markCtxErrs []error
}

func (r *opRecorder) operation(id uuid.UUID, notifyErr error) Operation {
	return Operation{
		Flow:     "test_flow",
		RecordID: id,
		CommitLocal: func(ctx context.Context) error {
			r.committed = true
			return nil
		},
		NotifyRemote: func(ctx context.Context, bearer string) error {
			r.notifyCtx = ctx
			return notifyErr
		},
		MarkSynced: func(ctx context.Context) error {
			r.synced = true
			return nil
		},
		MarkPending: func(ctx context.Context, syncErr string, nextRetryAt time.Time) error {
			r.pending = true
			r.pendingAt = nextRetryAt
			r.markCtxErrs = append(r.markCtxErrs, ctx.Err())
			return nil
		},
		MarkFailed: func(ctx context.Context, syncErr string) error {
			r.failed = true
			r.markCtxErrs = append(r.markCtxErrs, ctx.Err())
			return nil
		},
	}
}

func newTestCoordinator(alerter alert.Alerter) *Coordinator {
	return NewCoordinator(30*time.Second, alerter, logger.NewLogger(nil))
}

func TestExecuteSyncedWhenRemoteSucceeds(t *testing.T) {
	rec := &opRecorder{}
	c := newTestCoordinator(nil)

	outcome, err := c.Execute(context.Background(), rec.operation(uuid.New(), nil), "token")
	require.NoError(t, err)

	assert.Equal(t, model.SyncStatusSynced, outcome.Status)
	assert.True(t, rec.committed)
	assert.True(t, rec.synced)
	assert.False(t, rec.pending)
	assert.False(t, rec.failed)
	assert.Empty(t, outcome.RetryToken)
}

func TestExecuteCommitFailureReturnsWithoutNotify(t *testing.T) {
	c := newTestCoordinator(nil)
	notified := false

	op := Operation{
		Flow:     "test_flow",
		RecordID: uuid.New(),
		CommitLocal: func(ctx context.Context) error {
			return errors.Conflict("slot taken", nil)
		},
		NotifyRemote: func(ctx context.Context, bearer string) error {
			notified = true
			return nil
		},
	}

	outcome, err := c.Execute(context.Background(), op, "token")
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.False(t, notified)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
}

func TestExecuteParksRecordOnRetryableFailure(t *testing.T) {
	rec := &opRecorder{}
	c := newTestCoordinator(nil)
	id := uuid.New()

	outcome, err := c.Execute(context.Background(), rec.operation(id, &remote.Unreachable{Err: fmt.Errorf("connection refused")}), "token")
	require.NoError(t, err)

	assert.Equal(t, model.SyncStatusPendingRemote, outcome.Status)
	assert.Equal(t, id.String(), outcome.RetryToken)
	assert.Equal(t, errors.KindRemoteUnreachable, outcome.RemoteErr.Kind)
	assert.True(t, rec.committed)
	assert.True(t, rec.pending)
	assert.False(t, rec.synced)
	assert.False(t, rec.failed)
	assert.WithinDuration(t, time.Now().Add(30*time.Second), rec.pendingAt, 5*time.Second)
}

func TestExecuteTimeoutAlsoParksRecord(t *testing.T) {
	rec := &opRecorder{}
	c := newTestCoordinator(nil)

	outcome, err := c.Execute(context.Background(), rec.operation(uuid.New(), &remote.Timeout{Err: context.DeadlineExceeded}), "token")
	require.NoError(t, err)

	assert.Equal(t, model.SyncStatusPendingRemote, outcome.Status)
	assert.Equal(t, errors.KindRemoteTimeout, outcome.RemoteErr.Kind)
	assert.True(t, rec.pending)
}

func TestExecuteMarksFailedAndAlertsOnRejection(t *testing.T) {
	rec := &opRecorder{}
	alerter := &recordingAlerter{}
	c := newTestCoordinator(alerter)
	id := uuid.New()

	outcome, err := c.Execute(context.Background(), rec.operation(id, &remote.Rejected{Status: 422, Body: "bad payload"}), "token")
	require.NoError(t, err)

	assert.Equal(t, model.SyncStatusFailed, outcome.Status)
	assert.Equal(t, errors.KindRemoteRejected, outcome.RemoteErr.Kind)
	assert.True(t, rec.failed)
	assert.False(t, rec.pending)
	assert.Empty(t, outcome.RetryToken)

	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, "test_flow", alerter.alerts[0].Flow)
	assert.Equal(t, id, alerter.alerts[0].RecordID)
}

func TestExecuteStatusWriteSurvivesCallerCancellation(t *testing.T) {
	rec := &opRecorder{}
	c := newTestCoordinator(nil)

	ctx, cancel := context.WithCancel(context.Background())
	op := rec.operation(uuid.New(), &remote.Unreachable{Err: fmt.Errorf("down")})
	// Simulate the caller going away while the remote leg runs.
	op.NotifyRemote = func(ctx context.Context, bearer string) error {
		cancel()
		return &remote.Unreachable{Err: fmt.Errorf("down")}
	}

	outcome, err := c.Execute(ctx, op, "token")
	require.NoError(t, err)

	assert.Equal(t, model.SyncStatusPendingRemote, outcome.Status)
	require.Len(t, rec.markCtxErrs, 1)
	assert.NoError(t, rec.markCtxErrs[0], "status write must run on a detached context")
}
