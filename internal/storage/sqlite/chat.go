package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
)

// GetConversation retrieves the conversation between two users, in either
// participant order.
func (s *SQLiteStore) GetConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	a, b := models.ConversationKey(userA, userB)
	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, participant_a_name, participant_b_name,
		        last_message, last_message_at, created_at
		 FROM conversations WHERE participant_a = ? AND participant_b = ?`,
		a, b,
	).Scan(&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.ParticipantAName,
		&conv.ParticipantBName, &conv.LastMessage, &conv.LastMessageAt, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s/%s: %w", a, b, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// CreateConversation inserts a conversation stub. Participants are
// normalized to sorted order so the pair is unique.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt == 0 {
		conv.CreatedAt = time.Now().Unix()
	}
	if conv.ParticipantB < conv.ParticipantA {
		conv.ParticipantA, conv.ParticipantB = conv.ParticipantB, conv.ParticipantA
		conv.ParticipantAName, conv.ParticipantBName = conv.ParticipantBName, conv.ParticipantAName
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, participant_a_name,
		                            participant_b_name, last_message, last_message_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.ParticipantA, conv.ParticipantB, conv.ParticipantAName,
		conv.ParticipantBName, conv.LastMessage, conv.LastMessageAt, conv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("conversation %s/%s: %w", conv.ParticipantA, conv.ParticipantB, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation; its messages cascade.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// TouchConversation updates the last-message preview fields.
func (s *SQLiteStore) TouchConversation(ctx context.Context, conversationID, lastMessage string, at int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET last_message = ?, last_message_at = ? WHERE id = ?",
		lastMessage, at, conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// CreateMessage appends a message to a conversation.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content,
		msg.RequestID, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessageByRequest finds the message spawned by a join request.
func (s *SQLiteStore) GetMessageByRequest(ctx context.Context, requestID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, receiver_id, content, request_id, created_at
		 FROM messages WHERE request_id = ?`, requestID)
	return scanMessage(row, "request "+requestID)
}

// DeleteMessage removes a single message.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// LatestMessage returns the newest message in a conversation.
func (s *SQLiteStore) LatestMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, receiver_id, content, request_id, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, conversationID)
	return scanMessage(row, "conversation "+conversationID)
}

// CountMessages returns the number of messages in a conversation.
func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func scanMessage(row *sql.Row, what string) (*models.Message, error) {
	msg := &models.Message{}
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
		&msg.Content, &msg.RequestID, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message for %s: %w", what, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}
