package models

// Conversation is a one-on-one chat thread between two users. The pair is
// stored sorted (ParticipantA < ParticipantB) so a pair of users maps to
// exactly one conversation. Display names are cached at creation so the
// inbox renders without user lookups.
type Conversation struct {
	// ID is the unique identifier for the conversation (UUID format).
	ID string `json:"id"`

	ParticipantA     string `json:"participant_a"`
	ParticipantB     string `json:"participant_b"`
	ParticipantAName string `json:"participant_a_name"`
	ParticipantBName string `json:"participant_b_name"`

	// LastMessage and LastMessageAt mirror the newest message in the
	// thread for inbox previews.
	LastMessage   string `json:"last_message"`
	LastMessageAt int64  `json:"last_message_at"`

	// CreatedAt is the Unix timestamp when the conversation was created.
	CreatedAt int64 `json:"created_at"`
}

// Message is a single chat message. Messages spawned by a join request
// carry the request's ID so the UI can render inline accept/reject
// controls and reflect the request's status transitions.
type Message struct {
	// ID is the unique identifier for the message (UUID format).
	ID string `json:"id"`

	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	Content        string `json:"content"`

	// RequestID links the message to the SplitRequest that spawned it,
	// empty for ordinary messages.
	RequestID string `json:"request_id,omitempty"`

	// CreatedAt is the Unix timestamp when the message was sent.
	CreatedAt int64 `json:"created_at"`
}

// ConversationKey returns the sorted participant pair for two user IDs.
func ConversationKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
