package models

// RequestStatus is the lifecycle state of a SplitRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestRejected:
		return true
	}
	return false
}

// SplitRequest is a pending ask to join a split. At most one request may
// exist per (split, requester) pair; the store enforces this as a
// uniqueness constraint. Once resolved, only Status ever changes.
type SplitRequest struct {
	// ID is the unique identifier for the request (UUID format).
	ID string `json:"id"`

	// SplitID is the split being asked to join.
	SplitID string `json:"split_id"`

	// RequesterID is the user asking to join.
	RequesterID string `json:"requester_id"`

	// Status is pending until the split's creator accepts or rejects.
	Status RequestStatus `json:"status"`

	// CreatedAt is the Unix timestamp when the request was submitted.
	// Rate limiting counts requests by this field.
	CreatedAt int64 `json:"created_at"`
}
