package notify

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justkalesh/foodhunt101-sub000/internal/models"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage/sqlite"
)

// recordingPush captures sends on a channel so tests can wait for the
// fire-and-forget dispatch goroutine.
type recordingPush struct {
	sent chan string
}

func (p *recordingPush) Send(_ context.Context, userID, _, _ string) error {
	p.sent <- userID
	return nil
}

func newTestNotifier(t *testing.T, push Push) (*ChatNotifier, storage.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewChatNotifier(store, push), store
}

func sampleSplit() *models.MealSplit {
	return &models.MealSplit{
		ID:          "split-1",
		CreatorID:   "alice",
		CreatorName: "Alice",
		VendorID:    "vendor-1",
		VendorName:  "Mama's Kitchen",
		DishName:    "Jollof Rice",
		SplitTime:   time.Date(2026, 3, 10, 12, 30, 0, 0, time.Local).Unix(),
	}
}

func TestJoinRequest_PostsMessageAndPings(t *testing.T) {
	push := &recordingPush{sent: make(chan string, 1)}
	notifier, store := newTestNotifier(t, push)
	ctx := context.Background()

	if err := store.CreateUser(ctx, &models.User{
		ID: "bob", DisplayName: "Bob", Email: "bob@campus.test",
	}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	req := &models.SplitRequest{ID: "req-1", SplitID: "split-1", RequesterID: "bob"}
	msg, err := notifier.JoinRequest(ctx, req, sampleSplit())
	if err != nil {
		t.Fatalf("JoinRequest failed: %v", err)
	}

	if msg.RequestID != "req-1" {
		t.Errorf("message must carry the request ID, got %q", msg.RequestID)
	}
	if msg.SenderID != "bob" || msg.ReceiverID != "alice" {
		t.Errorf("addressing: got %s->%s", msg.SenderID, msg.ReceiverID)
	}

	conv, err := store.GetConversation(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("conversation not created: %v", err)
	}
	names := conv.ParticipantAName + "/" + conv.ParticipantBName
	if !strings.Contains(names, "Bob") || !strings.Contains(names, "Alice") {
		t.Errorf("display names not cached: %q", names)
	}
	if conv.LastMessage != msg.Content {
		t.Errorf("preview: got %q, want %q", conv.LastMessage, msg.Content)
	}

	select {
	case userID := <-push.sent:
		if userID != "alice" {
			t.Errorf("push target: got %s, want alice", userID)
		}
	case <-time.After(2 * time.Second):
		t.Error("push never dispatched")
	}
}

func TestJoinRequest_ReusesConversation(t *testing.T) {
	notifier, store := newTestNotifier(t, NopPush{})
	ctx := context.Background()

	split := sampleSplit()
	first := &models.SplitRequest{ID: "req-1", SplitID: split.ID, RequesterID: "bob"}
	if _, err := notifier.JoinRequest(ctx, first, split); err != nil {
		t.Fatalf("first JoinRequest failed: %v", err)
	}

	other := sampleSplit()
	other.ID = "split-2"
	second := &models.SplitRequest{ID: "req-2", SplitID: other.ID, RequesterID: "bob"}
	msg2, err := notifier.JoinRequest(ctx, second, other)
	if err != nil {
		t.Fatalf("second JoinRequest failed: %v", err)
	}

	conv, err := store.GetConversation(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	count, err := store.CountMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 2 {
		t.Errorf("both messages should share one conversation, got %d", count)
	}
	if msg2.ConversationID != conv.ID {
		t.Error("second message landed in a different conversation")
	}
}

func TestRetractRequest_MissingMessageIsSuccess(t *testing.T) {
	notifier, _ := newTestNotifier(t, NopPush{})
	if err := notifier.RetractRequest(context.Background(), "never-sent"); err != nil {
		t.Errorf("retract with no message should succeed, got %v", err)
	}
}

func TestDissolveThread(t *testing.T) {
	notifier, store := newTestNotifier(t, NopPush{})
	ctx := context.Background()

	conv := &models.Conversation{ParticipantA: "alice", ParticipantB: "bob"}
	if err := store.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if err := notifier.DissolveThread(ctx, "bob", "alice"); err != nil {
		t.Fatalf("DissolveThread failed: %v", err)
	}
	if _, err := store.GetConversation(ctx, "alice", "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("conversation should be gone, got %v", err)
	}

	// Dissolving a thread that never existed is a no-op.
	if err := notifier.DissolveThread(ctx, "carol", "dave"); err != nil {
		t.Errorf("missing thread should be a no-op, got %v", err)
	}
}

func TestRenderJoinMessage(t *testing.T) {
	split := sampleSplit()
	got := renderJoinMessage(split)
	if !strings.Contains(got, "Jollof Rice") || !strings.Contains(got, "Mama's Kitchen") {
		t.Errorf("message missing dish or vendor: %q", got)
	}
	if !strings.Contains(got, "Mar 10") || !strings.Contains(got, "12:30 PM") {
		t.Errorf("message missing formatted time: %q", got)
	}

	split.SplitTime = 0
	split.TimeNote = "after evening lectures"
	got = renderJoinMessage(split)
	if !strings.Contains(got, "after evening lectures") {
		t.Errorf("message should fall back to the time note: %q", got)
	}
}
