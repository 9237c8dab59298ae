package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carewire/hospital-api/internal/alert"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/pkg/errors"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/remote"
)

// Operation is one cross-service write: a local commit followed by a remote
// notification, with sync-status transitions owned by the flow's store.
//
// CommitLocal must leave the record durable and visible with status
// PENDING_REMOTE before NotifyRemote starts; a concurrent reader sees a
// pending record, never a half-state. No lock is held across the remote
// call.
type Operation struct {
	Flow     string
	RecordID uuid.UUID

	CommitLocal  func(ctx context.Context) error
	NotifyRemote func(ctx context.Context, bearer string) error

	MarkSynced  func(ctx context.Context) error
	MarkPending func(ctx context.Context, syncErr string, nextRetryAt time.Time) error
	MarkFailed  func(ctx context.Context, syncErr string) error
}

// Outcome is the composed result the caller folds into one HTTP response.
type Outcome struct {
	Status     model.SyncStatus
	RemoteErr  *errors.AppError
	RetryToken string
}

// Coordinator executes cross-service writes with an explicit partial-failure
// contract: a committed local write is never rolled back because of a failed
// remote leg. Retryable remote failures park the record as PENDING_REMOTE
// for the reconciler; non-retryable rejections mark it SYNC_FAILED and alert
// an operator immediately.
type Coordinator struct {
	retryDelay time.Duration
	alerter    alert.Alerter
	logger     *logger.Logger
}

func NewCoordinator(retryDelay time.Duration, alerter alert.Alerter, logger *logger.Logger) *Coordinator {
	if retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}
	if alerter == nil {
		alerter = alert.Nop{}
	}
	return &Coordinator{
		retryDelay: retryDelay,
		alerter:    alerter,
		logger:     logger,
	}
}

func (c *Coordinator) Execute(ctx context.Context, op Operation, bearer string) (*Outcome, error) {
	if err := op.CommitLocal(ctx); err != nil {
		// Nothing committed, nothing to compensate.
		return nil, err
	}

	remoteErr := op.NotifyRemote(ctx, bearer)
	if remoteErr == nil {
		if err := op.MarkSynced(ctx); err != nil {
			// The remote side knows; only our bookkeeping lags. The
			// reconciler will re-notify and the receiver dedupes.
			c.logger.Error(err, "failed to mark record synced",
				"flow", op.Flow, "record_id", op.RecordID.String())
		}
		return &Outcome{Status: model.SyncStatusSynced}, nil
	}

	// Status writes below must survive a caller that has already gone
	// away: an operation timeout gets the same partial-success contract
	// as a remote failure, never an implicit rollback.
	detached := context.WithoutCancel(ctx)

	appErr := remote.Classify(remoteErr)
	if !remote.Retryable(remoteErr) {
		if err := op.MarkFailed(detached, appErr.Error()); err != nil {
			c.logger.Error(err, "failed to mark record sync-failed",
				"flow", op.Flow, "record_id", op.RecordID.String())
		}
		c.fireAlert(detached, op, appErr, 0)
		return &Outcome{Status: model.SyncStatusFailed, RemoteErr: appErr}, nil
	}

	if err := op.MarkPending(detached, appErr.Error(), time.Now().Add(c.retryDelay)); err != nil {
		c.logger.Error(err, "failed to mark record pending-remote",
			"flow", op.Flow, "record_id", op.RecordID.String())
	}

	c.logger.Warn("remote leg failed, record parked for reconciliation",
		"flow", op.Flow, "record_id", op.RecordID.String(), "kind", string(appErr.Kind))

	return &Outcome{
		Status:     model.SyncStatusPendingRemote,
		RemoteErr:  appErr,
		RetryToken: op.RecordID.String(),
	}, nil
}

func (c *Coordinator) fireAlert(ctx context.Context, op Operation, appErr *errors.AppError, retries int) {
	a := alert.Alert{
		Flow:       op.Flow,
		RecordID:   op.RecordID,
		Reason:     appErr.Error(),
		RetryCount: retries,
		OccurredAt: time.Now(),
	}
	if err := c.alerter.Fire(ctx, a); err != nil {
		c.logger.Error(err, fmt.Sprintf("failed to fire alert for %s %s", op.Flow, op.RecordID))
	}
}
