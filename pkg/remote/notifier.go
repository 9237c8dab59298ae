package remote

import (
	"context"
	"fmt"

	"github.com/carewire/hospital-api/pkg/errors"
)

// Notifier tells another service about a state change that happened here.
// The caller's bearer credential is forwarded unchanged; the remote side
// re-authorizes on its own.
type Notifier interface {
	Send(ctx context.Context, method, path string, payload interface{}, bearer string) error
}

// Rejected is returned when the remote service answered with a non-2xx
// status. 4xx rejections are non-retryable: the payload itself is invalid
// and reconciliation would only replay a known failure.
type Rejected struct {
	Status int
	Body   string
}

func (e *Rejected) Error() string {
	return fmt.Sprintf("remote rejected with status %d: %s", e.Status, e.Body)
}

// Unreachable is returned when the remote service could not be reached at
// all. Always retryable.
type Unreachable struct {
	Err error
}

func (e *Unreachable) Error() string {
	return fmt.Sprintf("remote unreachable: %v", e.Err)
}

func (e *Unreachable) Unwrap() error {
	return e.Err
}

// Timeout is returned when the remote call exceeded its deadline. Retryable;
// the notification may or may not have landed, which is why receivers must
// treat repeats as no-ops.
type Timeout struct {
	Err error
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("remote call timed out: %v", e.Err)
}

func (e *Timeout) Unwrap() error {
	return e.Err
}

// Classify maps a notifier error onto the application error taxonomy.
func Classify(err error) *errors.AppError {
	switch e := err.(type) {
	case *Rejected:
		return errors.New(errors.KindRemoteRejected, fmt.Sprintf("remote service rejected the request (status %d)", e.Status), err)
	case *Timeout:
		return errors.New(errors.KindRemoteTimeout, "remote service did not respond in time", err)
	case *Unreachable:
		return errors.New(errors.KindRemoteUnreachable, "remote service unreachable", err)
	default:
		return errors.New(errors.KindRemoteUnreachable, "remote call failed", err)
	}
}

// Retryable reports whether a failed notification is worth handing to the
// reconciler. Rejections with a 4xx status are not; everything else is.
func Retryable(err error) bool {
	if rej, ok := err.(*Rejected); ok {
		return rej.Status < 400 || rej.Status >= 500
	}
	return true
}
