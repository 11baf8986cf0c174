// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
)

// Sentinel errors the service layer matches on. Implementations must
// return these (possibly wrapped) for the corresponding conditions.
var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates an insert violated a uniqueness constraint,
	// e.g. a second join request for the same (split, requester) pair.
	ErrDuplicate = errors.New("duplicate")

	// ErrVersionConflict indicates an update lost an optimistic
	// concurrency race; the caller should re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
)

// Store defines the interface for split storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateSplit persists a new split. ID and CreatedAt are populated
	// by the store if unset; membership rows are written in slice order.
	CreateSplit(ctx context.Context, split *models.MealSplit) error

	// GetSplit retrieves a split with its ordered membership.
	// Returns ErrNotFound if it does not exist.
	GetSplit(ctx context.Context, splitID string) (*models.MealSplit, error)

	// UpdateSplit rewrites a split's mutable fields and membership,
	// guarded by the version the caller read. Returns ErrVersionConflict
	// if the row moved on since, ErrNotFound if it is gone.
	UpdateSplit(ctx context.Context, split *models.MealSplit) error

	// ListOpenSplits returns all splits with is_closed = false, newest
	// first.
	ListOpenSplits(ctx context.Context) ([]*models.MealSplit, error)

	// ListOpenSplitsByMember returns the open splits userID is a member
	// of. Used for the scheduling-conflict check at creation.
	ListOpenSplitsByMember(ctx context.Context, userID string) ([]*models.MealSplit, error)

	// ListClosedSplitsByMember returns the closed splits userID is a
	// member of, newest first. Feeds the user's history view.
	ListClosedSplitsByMember(ctx context.Context, userID string) ([]*models.MealSplit, error)

	// ListExpiredOpenSplits returns open splits whose split_time is set
	// and earlier than now (Unix seconds).
	ListExpiredOpenSplits(ctx context.Context, now int64) ([]*models.MealSplit, error)

	// CreateRequest persists a new join request. Returns ErrDuplicate if
	// a request for the same (split, requester) pair already exists.
	CreateRequest(ctx context.Context, req *models.SplitRequest) error

	// GetRequest retrieves a join request by ID.
	GetRequest(ctx context.Context, requestID string) (*models.SplitRequest, error)

	// UpdateRequestStatus sets the status of a request.
	UpdateRequestStatus(ctx context.Context, requestID string, status models.RequestStatus) error

	// DeleteRequest removes a request row.
	DeleteRequest(ctx context.Context, requestID string) error

	// CountRequestsSince counts join requests userID submitted at or
	// after since (Unix seconds), across all splits and statuses.
	CountRequestsSince(ctx context.Context, userID string, since int64) (int, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// CreateUser inserts a user row. Account provisioning normally
	// happens upstream; this exists for bootstrapping and tests.
	CreateUser(ctx context.Context, user *models.User) error

	// SetActiveSplit updates the user's active-split pointer,
	// last-write-wins. An empty splitID clears it.
	SetActiveSplit(ctx context.Context, userID, splitID string) error

	// GetConversation retrieves the conversation for a participant pair
	// (order-insensitive). Returns ErrNotFound if none exists.
	GetConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)

	// CreateConversation inserts a conversation stub.
	CreateConversation(ctx context.Context, conv *models.Conversation) error

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, conversationID string) error

	// TouchConversation updates the conversation's last-message preview.
	TouchConversation(ctx context.Context, conversationID, lastMessage string, at int64) error

	// CreateMessage appends a message to a conversation.
	CreateMessage(ctx context.Context, msg *models.Message) error

	// GetMessageByRequest finds the message spawned by a join request.
	GetMessageByRequest(ctx context.Context, requestID string) (*models.Message, error)

	// DeleteMessage removes a single message.
	DeleteMessage(ctx context.Context, messageID string) error

	// LatestMessage returns the newest message in a conversation, or
	// ErrNotFound if the conversation is empty.
	LatestMessage(ctx context.Context, conversationID string) (*models.Message, error)

	// CountMessages returns the number of messages in a conversation.
	CountMessages(ctx context.Context, conversationID string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
