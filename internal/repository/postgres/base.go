package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carewire/hospital-api/internal/model"
)

// syncStore implements the sync-status bookkeeping shared by every
// saga-managed table. roleExpr is the SQL expression yielding the remote
// target role for pending rows (a column for assignments and caregivers, a
// literal for appointments, which always target doctors).
type syncStore struct {
	sdb      *sqlx.DB
	table    string
	roleExpr string
}

func newSyncStore(db *sqlx.DB, table, roleExpr string) syncStore {
	return syncStore{sdb: db, table: table, roleExpr: roleExpr}
}

func (s *syncStore) MarkSynced(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sync_status = $1, sync_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2
	`, s.table)
	return s.exec(ctx, query, model.SyncStatusSynced, id)
}

func (s *syncStore) MarkPendingRetry(ctx context.Context, id uuid.UUID, syncErr string, nextRetryAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sync_status = $1, sync_error = $2, retry_count = retry_count + 1,
			next_retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`, s.table)
	return s.exec(ctx, query, model.SyncStatusPendingRemote, syncErr, nextRetryAt, id)
}

func (s *syncStore) MarkSyncFailed(ctx context.Context, id uuid.UUID, syncErr string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sync_status = $1, sync_error = $2, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $3
	`, s.table)
	return s.exec(ctx, query, model.SyncStatusFailed, syncErr, id)
}

func (s *syncStore) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.sdb.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update sync status on %s: %w", s.table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s record not found", s.table)
	}
	return nil
}

func (s *syncStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.sdb.BeginTxx(ctx, nil)
}

// ListPendingTx claims due pending rows with FOR UPDATE SKIP LOCKED so
// concurrent reconciler passes never work the same record twice.
func (s *syncStore) ListPendingTx(ctx context.Context, tx *sqlx.Tx, limit int, now time.Time) ([]*model.PendingRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, %s AS role, retry_count, created_at
		FROM %s
		WHERE sync_status = $1
		AND (next_retry_at IS NULL OR next_retry_at <= $2)
		AND deleted_at IS NULL
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $3
	`, s.roleExpr, s.table)

	var records []*model.PendingRecord
	err := tx.SelectContext(ctx, &records, query, model.SyncStatusPendingRemote, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s: %w", s.table, err)
	}
	return records, nil
}

func (s *syncStore) MarkSyncedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sync_status = $1, sync_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2
	`, s.table)
	_, err := tx.ExecContext(ctx, query, model.SyncStatusSynced, id)
	return err
}

func (s *syncStore) MarkPendingRetryTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, syncErr string, nextRetryAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sync_status = $1, sync_error = $2, retry_count = retry_count + 1,
			next_retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`, s.table)
	_, err := tx.ExecContext(ctx, query, model.SyncStatusPendingRemote, syncErr, nextRetryAt, id)
	return err
}

func (s *syncStore) MarkSyncFailedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, syncErr string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sync_status = $1, sync_error = $2, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $3
	`, s.table)
	_, err := tx.ExecContext(ctx, query, model.SyncStatusFailed, syncErr, id)
	return err
}
