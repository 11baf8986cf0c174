package service

import (
	"errors"
	"fmt"
	"time"
)

// Business-rule failures are typed so callers can branch on them and show
// the message verbatim. There is no silent failure path: every operation
// that cannot complete reports a reason.
var (
	// ErrNotFound is returned when the referenced split or request does
	// not exist.
	ErrNotFound = errors.New("split or request not found")

	// ErrAlreadyJoined is returned when a user asks to join a split they
	// are already a member of.
	ErrAlreadyJoined = errors.New("you are already in this split")

	// ErrDuplicateRequest is returned when a join request for the same
	// (split, requester) pair already exists.
	ErrDuplicateRequest = errors.New("you already asked to join this split")

	// ErrRequestResolved is returned when cancelling or re-resolving a
	// request that has already been accepted or rejected.
	ErrRequestResolved = errors.New("this request was already resolved")
)

// ValidationError reports malformed input, rejected before any store
// access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a scheduling clash with another split the user is
// already committed to.
type ConflictError struct {
	SplitID   string
	SplitTime time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("you already have a split around %s", e.SplitTime.Format("Jan 2 3:04 PM"))
}

// RateLimitError reports that the user exhausted their join-request
// budget for the current slot.
type RateLimitError struct {
	Limit   int
	SlotEnd time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("you can send at most %d join requests per slot; try again after %s",
		e.Limit, e.SlotEnd.Format("3:04 PM"))
}

// TransientError wraps store or notifier failures that are safe to retry.
// All mutating operations re-check state before re-applying effects, so a
// retry after an ambiguous failure cannot double-apply.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s failed, please retry: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// transient tags an unexpected store/notifier error as retryable.
func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}
