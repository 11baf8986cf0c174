package models

// User is the slice of the user record the split service touches.
// Account management (registration, login, profile editing) lives with the
// embedding application; this service only reads display info and keeps
// the active-split pointer current.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// DisplayName is the user's display name, cached onto splits and
	// conversations this service creates.
	DisplayName string `json:"display_name"`

	// Email is the user's email address (unique).
	Email string `json:"email"`

	// ActiveSplitID tracks the most recently created or joined split,
	// last-write-wins. It is a display hint for the profile's "Active
	// Split" card, never a source of truth: a user can be a member of
	// several open splits while this points at only the newest one.
	ActiveSplitID string `json:"active_split_id,omitempty"`

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64 `json:"created_at"`
}
