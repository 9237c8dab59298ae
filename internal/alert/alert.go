package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Alert is an operator-visible notification that a record's remote leg was
// abandoned and the two services' views of it now diverge until someone
// intervenes.
type Alert struct {
	Flow       string    `json:"flow"`
	RecordID   uuid.UUID `json:"record_id"`
	Reason     string    `json:"reason"`
	RetryCount int       `json:"retry_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Alerter interface {
	Fire(ctx context.Context, a Alert) error
}

// Multi fans an alert out to several sinks; a failing sink never blocks the
// others.
type Multi []Alerter

func (m Multi) Fire(ctx context.Context, a Alert) error {
	var firstErr error
	for _, alerter := range m {
		if err := alerter.Fire(ctx, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Nop discards alerts; used in tests and when no sink is configured.
type Nop struct{}

func (Nop) Fire(context.Context, Alert) error { return nil }
