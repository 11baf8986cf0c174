package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
)

// Ensure ChatNotifier implements Notifier
var _ Notifier = (*ChatNotifier)(nil)

// ChatNotifier implements Notifier on top of the data store's chat tables,
// with push dispatch delegated to a Push implementation.
type ChatNotifier struct {
	store storage.Store
	push  Push
}

// NewChatNotifier creates a ChatNotifier. push may be NopPush.
func NewChatNotifier(store storage.Store, push Push) *ChatNotifier {
	return &ChatNotifier{store: store, push: push}
}

// JoinRequest posts the synthesized join message and pings the creator.
func (n *ChatNotifier) JoinRequest(ctx context.Context, req *models.SplitRequest, split *models.MealSplit) (*models.Message, error) {
	conv, err := n.ensureConversation(ctx, req.RequesterID, split.CreatorID, split.CreatorName)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       req.RequesterID,
		ReceiverID:     split.CreatorID,
		Content:        renderJoinMessage(split),
		RequestID:      req.ID,
	}
	if err := n.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to post join message: %w", err)
	}
	if err := n.store.TouchConversation(ctx, conv.ID, msg.Content, msg.CreatedAt); err != nil {
		slog.Warn("Failed to update conversation preview", "conversation_id", conv.ID, "error", err)
	}

	// Push is fire-and-forget: detach from the request's cancellation and
	// never let delivery problems reach the caller.
	go n.dispatchPush(context.WithoutCancel(ctx), split.CreatorID,
		"New join request", msg.Content)

	return msg, nil
}

// RetractRequest removes the message a cancelled request spawned, plus the
// conversation if nothing else is left in it.
func (n *ChatNotifier) RetractRequest(ctx context.Context, requestID string) error {
	msg, err := n.store.GetMessageByRequest(ctx, requestID)
	if errors.Is(err, storage.ErrNotFound) {
		// Message send may have failed at request time; nothing to clean.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to locate join message: %w", err)
	}

	if err := n.store.DeleteMessage(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to delete join message: %w", err)
	}

	count, err := n.store.CountMessages(ctx, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to count remaining messages: %w", err)
	}
	if count == 0 {
		if err := n.store.DeleteConversation(ctx, msg.ConversationID); err != nil {
			return fmt.Errorf("failed to delete emptied conversation: %w", err)
		}
		return nil
	}

	latest, err := n.store.LatestMessage(ctx, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to find latest message: %w", err)
	}
	if err := n.store.TouchConversation(ctx, msg.ConversationID, latest.Content, latest.CreatedAt); err != nil {
		return fmt.Errorf("failed to update conversation preview: %w", err)
	}
	return nil
}

// DissolveThread deletes the conversation between two users, if any.
func (n *ChatNotifier) DissolveThread(ctx context.Context, userA, userB string) error {
	conv, err := n.store.GetConversation(ctx, userA, userB)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up conversation: %w", err)
	}
	if err := n.store.DeleteConversation(ctx, conv.ID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// ensureConversation returns the requester↔creator conversation, creating
// a stub with cached display names on first contact. Creation races with
// another request between the same pair resolve by re-reading.
func (n *ChatNotifier) ensureConversation(ctx context.Context, requesterID, creatorID, creatorName string) (*models.Conversation, error) {
	conv, err := n.store.GetConversation(ctx, requesterID, creatorID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	requesterName := requesterID
	if u, err := n.store.GetUser(ctx, requesterID); err == nil {
		requesterName = u.DisplayName
	}

	conv = &models.Conversation{
		ParticipantA:     requesterID,
		ParticipantB:     creatorID,
		ParticipantAName: requesterName,
		ParticipantBName: creatorName,
	}
	err = n.store.CreateConversation(ctx, conv)
	if errors.Is(err, storage.ErrDuplicate) {
		return n.store.GetConversation(ctx, requesterID, creatorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// dispatchPush sends a push notification with a bounded retry. Runs in
// its own goroutine; only ever logs.
func (n *ChatNotifier) dispatchPush(ctx context.Context, userID, title, body string) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := n.push.Send(ctx, userID, title, body); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Warn("Push notification dropped", "user_id", userID, "error", err)
	}
}

// renderJoinMessage builds the human-readable join ask shown in chat.
func renderJoinMessage(split *models.MealSplit) string {
	when := split.TimeNote
	if split.SplitTime > 0 {
		t := time.Unix(split.SplitTime, 0)
		when = fmt.Sprintf("%s %s", t.Format("Jan 2"), t.Format("3:04 PM"))
	}
	return fmt.Sprintf("Hii, I'd like to join your split of %s from %s at %s.",
		split.DishName, split.VendorName, when)
}
