package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/carewire/hospital-api/internal/alert"
	"github.com/carewire/hospital-api/internal/model"
	"github.com/carewire/hospital-api/internal/repository"
	"github.com/carewire/hospital-api/pkg/auth"
	"github.com/carewire/hospital-api/pkg/logger"
	"github.com/carewire/hospital-api/pkg/metrics"
	"github.com/carewire/hospital-api/pkg/remote"
)

// Registry keys for remote targets that are services rather than caregiver
// roles.
const (
	TargetAuth     = "AUTH"
	TargetSchedule = "SCHEDULE"
)

// ServiceRole is the role claim on the bearer the reconciler mints for
// replayed notifications. The original caller's token is long gone by the
// time a record is reconciled.
const ServiceRole = "SERVICE"

// RemoteLeg is a rebuilt notification: where it goes and what it carries.
type RemoteLeg struct {
	Role    string
	Method  string
	Path    string
	Payload interface{}
}

// Source is one saga-managed table the reconciler drains. Load re-reads the
// record by id and rebuilds its remote leg; payloads are never persisted, so
// the record itself is the only source of truth.
type Source struct {
	Flow  string
	Store repository.SyncStatusStore
	Load  func(ctx context.Context, id uuid.UUID) (*RemoteLeg, error)
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Reconciler drains PENDING_REMOTE records: it replays each record's remote
// leg and settles the record as SYNCED, re-parked, or SYNC_FAILED once the
// retry budget runs out. Rows are claimed FOR UPDATE SKIP LOCKED, so
// concurrent workers never replay the same record at the same time.
type Reconciler struct {
	sources   []Source
	notifiers *remote.Registry
	tokens    auth.JWTService
	serviceID uuid.UUID
	alerter   alert.Alerter
	metrics   *metrics.Metrics
	config    Config
	logger    *logger.Logger
}

func NewReconciler(
	sources []Source,
	notifiers *remote.Registry,
	tokens auth.JWTService,
	alerter alert.Alerter,
	m *metrics.Metrics,
	config Config,
	logger *logger.Logger,
) *Reconciler {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Minute
	}
	if alerter == nil {
		alerter = alert.Nop{}
	}

	return &Reconciler{
		sources:   sources,
		notifiers: notifiers,
		tokens:    tokens,
		serviceID: uuid.New(),
		alerter:   alerter,
		metrics:   m,
		config:    config,
		logger:    logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("Starting reconciler", "sources", len(r.sources))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce drains every source one pass. Exported so the embedded mode and
// tests can drive passes directly.
func (r *Reconciler) RunOnce(ctx context.Context) {
	bearer, err := r.tokens.GenerateToken(r.serviceID, ServiceRole, uuid.Nil)
	if err != nil {
		r.logger.Error(err, "failed to mint service token, skipping pass")
		return
	}

	claimed := 0
	for _, source := range r.sources {
		n, err := r.drainSource(ctx, source, bearer)
		if err != nil {
			r.logger.Error(err, "reconciliation pass failed", "flow", source.Flow)
		}
		claimed += n
	}
	r.metrics.PendingRecords.Set(float64(claimed))
}

func (r *Reconciler) drainSource(ctx context.Context, source Source, bearer string) (int, error) {
	timer := prometheus.NewTimer(r.metrics.ReconcileLatency)
	defer timer.ObserveDuration()

	tx, err := source.Store.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin reconcile tx: %w", err)
	}
	defer tx.Rollback()

	records, err := source.Store.ListPendingTx(ctx, tx, r.config.BatchSize, time.Now())
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if err := r.reconcile(ctx, source, tx, record, bearer); err != nil {
			r.logger.Error(err, "failed to reconcile record",
				"flow", source.Flow, "record_id", record.ID.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reconcile tx: %w", err)
	}
	return len(records), nil
}

func (r *Reconciler) reconcile(ctx context.Context, source Source, tx *sqlx.Tx, record *model.PendingRecord, bearer string) error {
	leg, err := source.Load(ctx, record.ID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			// The record was deleted locally before its leg ever landed;
			// there is nothing left to announce.
			r.logger.Warn("pending record gone, settling as synced",
				"flow", source.Flow, "record_id", record.ID.String())
			return source.Store.MarkSyncedTx(ctx, tx, record.ID)
		}
		return err
	}

	notifier, err := r.notifiers.For(leg.Role)
	if err != nil {
		// No remote owner for this target: the local store is the only
		// authority, nothing to replay.
		return source.Store.MarkSyncedTx(ctx, tx, record.ID)
	}

	sendErr := notifier.Send(ctx, leg.Method, leg.Path, leg.Payload, bearer)
	if sendErr == nil {
		r.metrics.ReconcileSucceeded.Inc()
		return source.Store.MarkSyncedTx(ctx, tx, record.ID)
	}

	appErr := remote.Classify(sendErr)
	if !remote.Retryable(sendErr) {
		r.metrics.ReconcileFailed.Inc()
		r.fireAlert(ctx, source.Flow, record, appErr.Error())
		return source.Store.MarkSyncFailedTx(ctx, tx, record.ID, appErr.Error())
	}

	attempts := record.RetryCount + 1
	if attempts >= r.config.MaxRetries {
		r.metrics.ReconcileAbandoned.Inc()
		r.fireAlert(ctx, source.Flow, record, fmt.Sprintf("retry budget exhausted after %d attempts: %s", attempts, appErr.Error()))
		return source.Store.MarkSyncFailedTx(ctx, tx, record.ID, appErr.Error())
	}

	r.metrics.ReconcileFailed.Inc()
	nextRetry := time.Now().Add(r.config.RetryBackoff * time.Duration(attempts))
	return source.Store.MarkPendingRetryTx(ctx, tx, record.ID, appErr.Error(), nextRetry)
}

func (r *Reconciler) fireAlert(ctx context.Context, flow string, record *model.PendingRecord, reason string) {
	a := alert.Alert{
		Flow:       flow,
		RecordID:   record.ID,
		Reason:     reason,
		RetryCount: record.RetryCount,
		OccurredAt: time.Now(),
	}
	if err := r.alerter.Fire(ctx, a); err != nil {
		r.logger.Error(err, "failed to fire reconciler alert",
			"flow", flow, "record_id", record.ID.String())
	}
}
