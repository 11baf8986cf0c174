package models

// MealSplit represents a proposed group order that users can join to split
// the cost of a meal from a campus vendor.
type MealSplit struct {
	// ID is the unique identifier for the split (UUID format).
	ID string `json:"id"`

	// CreatorID is the user who currently owns the split. Ownership can
	// transfer when the creator leaves and other members remain.
	CreatorID string `json:"creator_id"`

	// CreatorName is the display name of the current creator, cached so
	// listings render without a user lookup.
	CreatorName string `json:"creator_name"`

	// VendorID and VendorName identify the vendor the order is from.
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`

	// DishName is the dish being split.
	DishName string `json:"dish_name"`

	// TotalPrice is the full price of the order (must be positive).
	TotalPrice float64 `json:"total_price"`

	// PeopleNeeded is the headcount at which the split closes (>= 2).
	PeopleNeeded int `json:"people_needed"`

	// PeopleJoinedIDs is the ordered, duplicate-free list of member user
	// IDs. While the split is open the creator is always a member. Order
	// is join order; it decides ownership transfer.
	PeopleJoinedIDs []string `json:"people_joined_ids"`

	// TimeNote is a free-form display string ("after the 2pm lecture").
	TimeNote string `json:"time_note"`

	// SplitTime is the Unix timestamp of the planned meal, 0 if unset.
	SplitTime int64 `json:"split_time"`

	// IsClosed is true once the split reached PeopleNeeded, was completed
	// or deleted by its creator, or expired. Closed splits stay around
	// for history.
	IsClosed bool `json:"is_closed"`

	// Version is the optimistic-concurrency counter for membership
	// updates. Incremented by the store on every successful update.
	Version int64 `json:"-"`

	// CreatedAt is the Unix timestamp when the split was created.
	CreatedAt int64 `json:"created_at"`
}

// IsMember reports whether userID is in the joined list.
func (s *MealSplit) IsMember(userID string) bool {
	for _, id := range s.PeopleJoinedIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Full reports whether the membership has reached the needed headcount.
func (s *MealSplit) Full() bool {
	return len(s.PeopleJoinedIDs) >= s.PeopleNeeded
}
