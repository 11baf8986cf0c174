// Package service owns the meal-split lifecycle: creation with conflict
// checking, join requests with slot-based rate limiting, the
// accept/reject workflow, membership and ownership mutation, and cleanup
// of the chat state the flow derives.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/notify"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
)

const (
	// conflictWindow is how close two of a user's splits may be scheduled
	// before creation is rejected. The check runs at creation only;
	// joining two clashing splits is allowed, matching the product's
	// original behavior.
	conflictWindow = 4 * time.Hour

	// slotHours and maxRequestsPerSlot bound join-request submission.
	// Slots are fixed wall-clock buckets (00:00, 03:00, ...), not a
	// rolling window.
	slotHours          = 3
	maxRequestsPerSlot = 5

	// updateRetries bounds the optimistic-concurrency retry loop on
	// membership updates.
	updateRetries = 3

	defaultOpTimeout = 10 * time.Second
)

// SplitService implements the split lifecycle over a Store and a Notifier.
type SplitService struct {
	store    storage.Store
	notifier notify.Notifier
	now      func() time.Time
	timeout  time.Duration
}

// Option customizes a SplitService.
type Option func(*SplitService)

// WithClock overrides the wall clock. Tests use this to cross slot and
// conflict-window boundaries deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *SplitService) { s.now = now }
}

// WithTimeout overrides the per-operation store/notifier timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *SplitService) { s.timeout = d }
}

// NewSplitService creates a SplitService with the given collaborators.
func NewSplitService(store storage.Store, notifier notify.Notifier, opts ...Option) *SplitService {
	s := &SplitService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		timeout:  defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SplitService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CreateParams carries the input for Create.
type CreateParams struct {
	CreatorID    string    `json:"creator_id"`
	CreatorName  string    `json:"creator_name"`
	VendorID     string    `json:"vendor_id"`
	VendorName   string    `json:"vendor_name"`
	DishName     string    `json:"dish_name"`
	TotalPrice   float64   `json:"total_price"`
	PeopleNeeded int       `json:"people_needed"`
	TimeNote     string    `json:"time_note"`
	SplitTime    time.Time `json:"split_time"`
}

func (p *CreateParams) validate(now time.Time) error {
	switch {
	case p.CreatorID == "":
		return &ValidationError{Field: "creator_id", Reason: "required"}
	case p.CreatorName == "":
		return &ValidationError{Field: "creator_name", Reason: "required"}
	case p.VendorID == "":
		return &ValidationError{Field: "vendor_id", Reason: "required"}
	case p.VendorName == "":
		return &ValidationError{Field: "vendor_name", Reason: "required"}
	case p.DishName == "":
		return &ValidationError{Field: "dish_name", Reason: "required"}
	case p.TotalPrice <= 0:
		return &ValidationError{Field: "total_price", Reason: "must be positive"}
	case p.PeopleNeeded < 2:
		return &ValidationError{Field: "people_needed", Reason: "must be at least 2"}
	case p.SplitTime.IsZero():
		return &ValidationError{Field: "split_time", Reason: "required"}
	case !p.SplitTime.After(now):
		return &ValidationError{Field: "split_time", Reason: "must be in the future"}
	}
	return nil
}

// Create validates the input, rejects scheduling conflicts with the
// creator's other open splits, and persists the new split with the
// creator as its first member. The creator's active-split pointer is set
// last-write-wins.
func (s *SplitService) Create(ctx context.Context, params CreateParams) (*models.MealSplit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := params.validate(s.now()); err != nil {
		return nil, err
	}

	open, err := s.store.ListOpenSplitsByMember(ctx, params.CreatorID)
	if err != nil {
		return nil, transient("conflict check", err)
	}
	for _, other := range open {
		if other.SplitTime == 0 {
			continue
		}
		otherTime := time.Unix(other.SplitTime, 0)
		diff := params.SplitTime.Sub(otherTime)
		if diff < 0 {
			diff = -diff
		}
		if diff < conflictWindow {
			return nil, &ConflictError{SplitID: other.ID, SplitTime: otherTime}
		}
	}

	split := &models.MealSplit{
		CreatorID:       params.CreatorID,
		CreatorName:     params.CreatorName,
		VendorID:        params.VendorID,
		VendorName:      params.VendorName,
		DishName:        params.DishName,
		TotalPrice:      params.TotalPrice,
		PeopleNeeded:    params.PeopleNeeded,
		PeopleJoinedIDs: []string{params.CreatorID},
		TimeNote:        params.TimeNote,
		SplitTime:       params.SplitTime.Unix(),
	}
	if err := s.store.CreateSplit(ctx, split); err != nil {
		return nil, transient("create split", err)
	}

	// Display hint only; its loss never fails the creation.
	if err := s.store.SetActiveSplit(ctx, params.CreatorID, split.ID); err != nil {
		slog.Warn("Failed to set active split pointer", "user_id", params.CreatorID, "error", err)
	}

	slog.Info("Split created", "split_id", split.ID, "creator_id", params.CreatorID,
		"vendor", params.VendorName, "people_needed", params.PeopleNeeded)
	return split, nil
}

// slotStart floors t to the start of its fixed 3-hour wall-clock slot
// (00:00, 03:00, 06:00, ... in t's location).
func slotStart(t time.Time) time.Time {
	h := (t.Hour() / slotHours) * slotHours
	return time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, t.Location())
}

// RequestJoin submits a join request for a split. Preconditions, in
// order: the caller has budget left in the current rate-limit slot, the
// split exists, the caller is not already a member, and no request for
// this (split, caller) pair exists. On success a pending request is
// persisted and the creator is notified through chat; the synthesized
// message carries the request's ID so the inbox can render accept/reject
// controls.
func (s *SplitService) RequestJoin(ctx context.Context, splitID, userID string) (*models.SplitRequest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if splitID == "" {
		return nil, &ValidationError{Field: "split_id", Reason: "required"}
	}
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}

	now := s.now()
	slot := slotStart(now)
	count, err := s.store.CountRequestsSince(ctx, userID, slot.Unix())
	if err != nil {
		return nil, transient("rate limit check", err)
	}
	if count >= maxRequestsPerSlot {
		slog.Info("Join request rate limited", "user_id", userID, "slot_start", slot)
		return nil, &RateLimitError{Limit: maxRequestsPerSlot, SlotEnd: slot.Add(slotHours * time.Hour)}
	}

	split, err := s.store.GetSplit(ctx, splitID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("load split", err)
	}
	if split.IsMember(userID) {
		return nil, ErrAlreadyJoined
	}

	req := &models.SplitRequest{
		SplitID:     splitID,
		RequesterID: userID,
		Status:      models.RequestPending,
		CreatedAt:   now.Unix(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateRequest
		}
		return nil, transient("create request", err)
	}

	// The chat message is re-derivable from the request row, so a failed
	// send does not roll the request back; cancellation tolerates the
	// missing message.
	if _, err := s.notifier.JoinRequest(ctx, req, split); err != nil {
		slog.Error("Failed to deliver join-request message", "request_id", req.ID, "error", err)
	}

	slog.Info("Join requested", "request_id", req.ID, "split_id", splitID, "user_id", userID)
	return req, nil
}

// Respond resolves a pending request. Rejection only flips the status.
// Acceptance appends the requester to the membership, recomputes
// is_closed against people_needed, and records the requester's
// active-split pointer. Membership mutation is guarded by the split's
// version, so concurrent acceptances serialize; accepting a request whose
// requester is already a member is a no-op success.
func (s *SplitService) Respond(ctx context.Context, requestID string, status models.RequestStatus) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if status != models.RequestAccepted && status != models.RequestRejected {
		return &ValidationError{Field: "status", Reason: "must be accepted or rejected"}
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return transient("load request", err)
	}
	if req.Status != models.RequestPending {
		if req.Status == status {
			return nil
		}
		return ErrRequestResolved
	}

	if status == models.RequestRejected {
		if err := s.store.UpdateRequestStatus(ctx, requestID, models.RequestRejected); err != nil {
			return transient("reject request", err)
		}
		slog.Info("Join request rejected", "request_id", requestID, "split_id", req.SplitID)
		return nil
	}

	for attempt := 0; ; attempt++ {
		split, err := s.store.GetSplit(ctx, req.SplitID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return transient("load split", err)
		}

		if split.IsMember(req.RequesterID) {
			// Raced with another acceptance path; just record the status.
			break
		}

		split.PeopleJoinedIDs = append(split.PeopleJoinedIDs, req.RequesterID)
		split.IsClosed = split.Full()
		err = s.store.UpdateSplit(ctx, split)
		if err == nil {
			if split.IsClosed {
				slog.Info("Split filled", "split_id", split.ID, "members", len(split.PeopleJoinedIDs))
			}
			break
		}
		if errors.Is(err, storage.ErrVersionConflict) && attempt < updateRetries {
			continue
		}
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return transient("update membership", err)
	}

	if err := s.store.UpdateRequestStatus(ctx, requestID, models.RequestAccepted); err != nil {
		return transient("accept request", err)
	}
	if err := s.store.SetActiveSplit(ctx, req.RequesterID, req.SplitID); err != nil {
		slog.Warn("Failed to set active split pointer", "user_id", req.RequesterID, "error", err)
	}

	slog.Info("Join request accepted", "request_id", requestID, "split_id", req.SplitID,
		"user_id", req.RequesterID)
	return nil
}

// CancelRequest retracts a still-pending request: the spawned chat
// message goes first (and the conversation, if that emptied it), then the
// request row. Cancelling an already-resolved request is refused rather
// than silently deleting history; leaving an accepted split is what
// Leave is for.
func (s *SplitService) CancelRequest(ctx context.Context, requestID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	req, err := s.store.GetRequest(ctx, requestID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return transient("load request", err)
	}
	if req.Status != models.RequestPending {
		return ErrRequestResolved
	}

	if err := s.notifier.RetractRequest(ctx, requestID); err != nil {
		return transient("retract join message", err)
	}
	if err := s.store.DeleteRequest(ctx, requestID); err != nil {
		return transient("delete request", err)
	}

	slog.Info("Join request cancelled", "request_id", requestID, "split_id", req.SplitID)
	return nil
}

// Leave removes a user from a split. The user's active-split pointer is
// cleared before anything else, so they are never left pointing at a
// stale split even if it was concurrently deleted. A missing split is
// success. If the leaver was the creator and members remain, ownership
// transfers to the next member in join order; if the leaver was not the
// creator, the leaver↔creator chat thread is dissolved. An emptied split
// is closed, never physically removed.
func (s *SplitService) Leave(ctx context.Context, splitID, userID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.store.SetActiveSplit(ctx, userID, ""); err != nil {
		slog.Warn("Failed to clear active split pointer", "user_id", userID, "error", err)
	}

	var originalCreator string
	for attempt := 0; ; attempt++ {
		split, err := s.store.GetSplit(ctx, splitID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return transient("load split", err)
		}
		if !split.IsMember(userID) {
			return nil
		}
		originalCreator = split.CreatorID
		capacityClosed := split.IsClosed && split.Full()

		remaining := make([]string, 0, len(split.PeopleJoinedIDs)-1)
		for _, id := range split.PeopleJoinedIDs {
			if id != userID {
				remaining = append(remaining, id)
			}
		}
		split.PeopleJoinedIDs = remaining

		if len(remaining) == 0 {
			split.IsClosed = true
		} else {
			if originalCreator == userID {
				split.CreatorID = remaining[0]
				if u, err := s.store.GetUser(ctx, remaining[0]); err == nil {
					split.CreatorName = u.DisplayName
				} else {
					slog.Warn("Failed to refresh creator name", "user_id", remaining[0], "error", err)
				}
				slog.Info("Split ownership transferred", "split_id", splitID,
					"from", userID, "to", remaining[0])
			}
			// A split closed by headcount reopens when a seat frees up; one
			// closed by completion, deletion, or expiry stays closed.
			if !split.IsClosed || capacityClosed {
				split.IsClosed = split.Full()
			}
		}

		err = s.store.UpdateSplit(ctx, split)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrVersionConflict) && attempt < updateRetries {
			continue
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return transient("update membership", err)
	}

	if userID != originalCreator {
		if err := s.notifier.DissolveThread(ctx, userID, originalCreator); err != nil {
			slog.Warn("Failed to dissolve chat thread", "split_id", splitID,
				"leaver", userID, "creator", originalCreator, "error", err)
		}
	}

	slog.Info("Left split", "split_id", splitID, "user_id", userID)
	return nil
}

// MarkComplete closes a split early without touching membership. The
// embedding layer enforces that only the creator calls this.
func (s *SplitService) MarkComplete(ctx context.Context, splitID string) (*models.MealSplit, error) {
	return s.close(ctx, splitID, "Split completed")
}

// Delete soft-deletes a split: it closes with membership retained for
// participants' history views. Rows referencing it (requests, messages)
// stay intact. The embedding layer enforces creator/admin authorization.
func (s *SplitService) Delete(ctx context.Context, splitID string) error {
	_, err := s.close(ctx, splitID, "Split deleted")
	return err
}

func (s *SplitService) close(ctx context.Context, splitID, logMsg string) (*models.MealSplit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	for attempt := 0; ; attempt++ {
		split, err := s.store.GetSplit(ctx, splitID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, transient("load split", err)
		}
		if split.IsClosed {
			return split, nil
		}

		split.IsClosed = true
		err = s.store.UpdateSplit(ctx, split)
		if err == nil {
			slog.Info(logMsg, "split_id", splitID)
			return split, nil
		}
		if errors.Is(err, storage.ErrVersionConflict) && attempt < updateRetries {
			continue
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, transient("close split", err)
	}
}

// Get returns a split by ID, open or closed.
func (s *SplitService) Get(ctx context.Context, splitID string) (*models.MealSplit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	split, err := s.store.GetSplit(ctx, splitID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("load split", err)
	}
	return split, nil
}

// GetRequest returns a join request by ID.
func (s *SplitService) GetRequest(ctx context.Context, requestID string) (*models.SplitRequest, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	req, err := s.store.GetRequest(ctx, requestID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, transient("load request", err)
	}
	return req, nil
}

// List returns all open splits, plus the given user's own closed splits
// so their history stays visible to them, de-duplicated and sorted by
// creation time descending. Listing is a pure read; expired splits are
// closed by the background sweeper, not here.
func (s *SplitService) List(ctx context.Context, userID string) ([]*models.MealSplit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	splits, err := s.store.ListOpenSplits(ctx)
	if err != nil {
		return nil, transient("list splits", err)
	}

	if userID != "" {
		closed, err := s.store.ListClosedSplitsByMember(ctx, userID)
		if err != nil {
			return nil, transient("list history", err)
		}
		seen := make(map[string]bool, len(splits))
		for _, sp := range splits {
			seen[sp.ID] = true
		}
		for _, sp := range closed {
			if !seen[sp.ID] {
				splits = append(splits, sp)
			}
		}
	}

	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].CreatedAt > splits[j].CreatedAt
	})
	return splits, nil
}
