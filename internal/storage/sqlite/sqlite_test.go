package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSplit(creator string) *models.MealSplit {
	return &models.MealSplit{
		CreatorID:       creator,
		CreatorName:     "User " + creator,
		VendorID:        "vendor-1",
		VendorName:      "Mama's Kitchen",
		DishName:        "Jollof Rice",
		TotalPrice:      2500,
		PeopleNeeded:    3,
		PeopleJoinedIDs: []string{creator},
		TimeNote:        "lunch",
		SplitTime:       1767225600,
	}
}

func TestSplitRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	split := sampleSplit("alice")
	split.PeopleJoinedIDs = []string{"alice", "bob", "carol"}
	if err := store.CreateSplit(ctx, split); err != nil {
		t.Fatalf("CreateSplit failed: %v", err)
	}
	if split.ID == "" {
		t.Fatal("expected generated ID")
	}
	if split.CreatedAt == 0 {
		t.Fatal("expected generated CreatedAt")
	}

	got, err := store.GetSplit(ctx, split.ID)
	if err != nil {
		t.Fatalf("GetSplit failed: %v", err)
	}
	if got.DishName != split.DishName || got.TotalPrice != split.TotalPrice {
		t.Errorf("fields lost in round trip: %+v", got)
	}

	// Membership order follows the position column, not insertion luck.
	want := []string{"alice", "bob", "carol"}
	for i, id := range want {
		if got.PeopleJoinedIDs[i] != id {
			t.Errorf("member[%d]: got %s, want %s", i, got.PeopleJoinedIDs[i], id)
		}
	}

	if _, err := store.GetSplit(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing split, got %v", err)
	}
}

func TestUpdateSplit_VersionGuard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	split := sampleSplit("alice")
	if err := store.CreateSplit(ctx, split); err != nil {
		t.Fatalf("CreateSplit failed: %v", err)
	}

	stale, err := store.GetSplit(ctx, split.ID)
	if err != nil {
		t.Fatalf("GetSplit failed: %v", err)
	}

	// First writer wins and sees the bumped version.
	split.PeopleJoinedIDs = append(split.PeopleJoinedIDs, "bob")
	if err := store.UpdateSplit(ctx, split); err != nil {
		t.Fatalf("UpdateSplit failed: %v", err)
	}
	if split.Version != stale.Version+1 {
		t.Errorf("version: got %d, want %d", split.Version, stale.Version+1)
	}

	// The stale copy loses its race.
	stale.PeopleJoinedIDs = append(stale.PeopleJoinedIDs, "carol")
	if err := store.UpdateSplit(ctx, stale); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	// The winner's membership is intact.
	got, err := store.GetSplit(ctx, split.ID)
	if err != nil {
		t.Fatalf("GetSplit failed: %v", err)
	}
	if len(got.PeopleJoinedIDs) != 2 || got.PeopleJoinedIDs[1] != "bob" {
		t.Errorf("membership: got %v, want [alice bob]", got.PeopleJoinedIDs)
	}

	missing := sampleSplit("ghost")
	missing.ID = "missing"
	if err := store.UpdateSplit(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing split, got %v", err)
	}
}

func TestCreateRequest_DuplicatePair(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	split := sampleSplit("alice")
	if err := store.CreateSplit(ctx, split); err != nil {
		t.Fatalf("CreateSplit failed: %v", err)
	}

	first := &models.SplitRequest{SplitID: split.ID, RequesterID: "bob"}
	if err := store.CreateRequest(ctx, first); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if first.Status != models.RequestPending {
		t.Errorf("default status: got %s, want pending", first.Status)
	}

	dup := &models.SplitRequest{SplitID: split.ID, RequesterID: "bob"}
	if err := store.CreateRequest(ctx, dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Same requester on a different split is fine.
	other := sampleSplit("carol")
	if err := store.CreateSplit(ctx, other); err != nil {
		t.Fatalf("CreateSplit failed: %v", err)
	}
	second := &models.SplitRequest{SplitID: other.ID, RequesterID: "bob"}
	if err := store.CreateRequest(ctx, second); err != nil {
		t.Errorf("request on another split failed: %v", err)
	}
}

func TestCountRequestsSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	split := sampleSplit("alice")
	if err := store.CreateSplit(ctx, split); err != nil {
		t.Fatalf("CreateSplit failed: %v", err)
	}
	other := sampleSplit("dora")
	if err := store.CreateSplit(ctx, other); err != nil {
		t.Fatalf("CreateSplit failed: %v", err)
	}

	reqs := []*models.SplitRequest{
		{SplitID: split.ID, RequesterID: "bob", CreatedAt: 1000},
		{SplitID: other.ID, RequesterID: "bob", CreatedAt: 2000, Status: models.RequestRejected},
		{SplitID: split.ID, RequesterID: "carol", CreatedAt: 2000},
	}
	for _, req := range reqs {
		if err := store.CreateRequest(ctx, req); err != nil {
			t.Fatalf("CreateRequest failed: %v", err)
		}
	}

	cases := []struct {
		name  string
		user  string
		since int64
		want  int
	}{
		{"all of bob's, resolved included", "bob", 0, 2},
		{"boundary is inclusive", "bob", 2000, 1},
		{"after the window", "bob", 2001, 0},
		{"other users not counted", "carol", 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.CountRequestsSince(ctx, tc.user, tc.since)
			if err != nil {
				t.Fatalf("CountRequestsSince failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("count: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestListExpiredOpenSplits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expired := sampleSplit("alice")
	expired.SplitTime = 500
	unplanned := sampleSplit("bob")
	unplanned.SplitTime = 0
	future := sampleSplit("carol")
	future.SplitTime = 5000
	closed := sampleSplit("dora")
	closed.SplitTime = 500
	closed.IsClosed = true

	for _, sp := range []*models.MealSplit{expired, unplanned, future, closed} {
		if err := store.CreateSplit(ctx, sp); err != nil {
			t.Fatalf("CreateSplit failed: %v", err)
		}
	}

	got, err := store.ListExpiredOpenSplits(ctx, 1000)
	if err != nil {
		t.Fatalf("ListExpiredOpenSplits failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != expired.ID {
		t.Errorf("expected only the past open split, got %d results", len(got))
	}
}

func TestConversations_PairNormalization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := &models.Conversation{
		ParticipantA:     "zoe",
		ParticipantB:     "adam",
		ParticipantAName: "Zoe",
		ParticipantBName: "Adam",
	}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	// Stored in sorted order, names swapped along.
	if conv.ParticipantA != "adam" || conv.ParticipantAName != "Adam" {
		t.Errorf("participants not normalized: %+v", conv)
	}

	// Lookup works in either order.
	for _, pair := range [][2]string{{"zoe", "adam"}, {"adam", "zoe"}} {
		if _, err := store.GetConversation(ctx, pair[0], pair[1]); err != nil {
			t.Errorf("GetConversation(%s, %s) failed: %v", pair[0], pair[1], err)
		}
	}

	// The pair is unique regardless of submission order.
	again := &models.Conversation{ParticipantA: "adam", ParticipantB: "zoe"}
	if err := store.CreateConversation(ctx, again); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestMessages_CascadeWithConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv := &models.Conversation{ParticipantA: "alice", ParticipantB: "bob"}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       "bob",
		ReceiverID:     "alice",
		Content:        "Hii, I'd like to join your split.",
		RequestID:      "req-1",
	}
	if err := store.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	byReq, err := store.GetMessageByRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetMessageByRequest failed: %v", err)
	}
	if byReq.ID != msg.ID {
		t.Errorf("message lookup: got %s, want %s", byReq.ID, msg.ID)
	}

	if err := store.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	count, err := store.CountMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 0 {
		t.Errorf("messages should cascade with the conversation, %d left", count)
	}
}

func TestSetActiveSplit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &models.User{ID: "alice", DisplayName: "Alice", Email: "alice@campus.test"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.SetActiveSplit(ctx, "alice", "split-1"); err != nil {
		t.Fatalf("SetActiveSplit failed: %v", err)
	}
	got, err := store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.ActiveSplitID != "split-1" {
		t.Errorf("pointer: got %q, want split-1", got.ActiveSplitID)
	}

	if err := store.SetActiveSplit(ctx, "alice", ""); err != nil {
		t.Fatalf("clearing pointer failed: %v", err)
	}
	got, err = store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.ActiveSplitID != "" {
		t.Errorf("pointer should be cleared, got %q", got.ActiveSplitID)
	}

	// Pointer writes for unknown users are silently dropped; accounts
	// live with the embedding application.
	if err := store.SetActiveSplit(ctx, "ghost", "split-1"); err != nil {
		t.Errorf("SetActiveSplit for unknown user should not fail: %v", err)
	}
}
