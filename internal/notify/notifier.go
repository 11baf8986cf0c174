// Package notify owns the messaging side effects of the split lifecycle:
// conversation get-or-create, synthesized join-request messages, and
// best-effort push notification dispatch. The split service depends only
// on the Notifier interface, so transports can be swapped and tests can
// observe side effects without a broker.
package notify

import (
	"context"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
)

// Notifier is the narrow contract the split service uses to drive chat
// side effects.
type Notifier interface {
	// JoinRequest ensures a conversation exists between the requester and
	// the split's creator, posts the synthesized join message tagged with
	// the request's ID, and dispatches a push notification to the
	// creator. Push failures never surface here.
	JoinRequest(ctx context.Context, req *models.SplitRequest, split *models.MealSplit) (*models.Message, error)

	// RetractRequest deletes the message spawned by the given request.
	// If that empties the conversation, the conversation goes too;
	// otherwise the conversation's last-message preview is recomputed.
	RetractRequest(ctx context.Context, requestID string) error

	// DissolveThread deletes the one-on-one conversation between two
	// users, if any. Called when a non-creator member leaves a split.
	DissolveThread(ctx context.Context, userA, userB string) error
}

// Push dispatches a push notification to a user's devices.
// Implementations are best-effort; callers must treat failures as
// non-fatal.
type Push interface {
	Send(ctx context.Context, userID, title, body string) error
}

// NopPush discards notifications. Used in tests and broker-less runs.
type NopPush struct{}

func (NopPush) Send(context.Context, string, string, string) error { return nil }
