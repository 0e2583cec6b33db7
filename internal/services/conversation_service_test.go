package services_test

import (
	"context"
	"errors"
	"testing"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/services"
	"glammatch-backend/internal/store"
	"glammatch-backend/internal/store/memory"

	"github.com/google/uuid"
)

type testEnv struct {
	store         *memory.Store
	notifier      *services.Notifier
	conversations *services.ConversationService
	messages      *services.MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.NewStore()
	n := services.NewNotifier()
	return &testEnv{
		store:         st,
		notifier:      n,
		conversations: services.NewConversationService(st, n),
		messages:      services.NewMessageService(st, n, 20),
	}
}

func (e *testEnv) createPrivate(t *testing.T, a, b string) *models.Conversation {
	t.Helper()
	conv, err := e.conversations.Create(context.Background(), a, []string{a, b}, models.ConversationTypePrivate)
	if err != nil {
		t.Fatalf("Create conversation failed: %v", err)
	}
	return conv
}

func (e *testEnv) send(t *testing.T, convID uuid.UUID, sender, receiver, content string) *models.Message {
	t.Helper()
	msg, err := e.messages.Send(context.Background(), services.SendMessageInput{
		ConversationID: convID,
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        content,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	return msg
}

func TestCreateConversationValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name         string
		caller       string
		participants []string
		ctype        models.ConversationType
		wantErr      error
	}{
		{"too few participants", "u1", []string{"u1"}, models.ConversationTypePrivate, services.ErrInvalidArgument},
		{"duplicates collapse below minimum", "u1", []string{"u1", "u1"}, models.ConversationTypePrivate, services.ErrInvalidArgument},
		{"empty participant id", "u1", []string{"u1", ""}, models.ConversationTypePrivate, services.ErrInvalidArgument},
		{"caller not a participant", "u3", []string{"u1", "u2"}, models.ConversationTypePrivate, services.ErrInvalidArgument},
		{"private with three participants", "u1", []string{"u1", "u2", "u3"}, models.ConversationTypePrivate, services.ErrInvalidArgument},
		{"unknown type", "u1", []string{"u1", "u2"}, "broadcast", services.ErrInvalidArgument},
		{"no caller identity", "", []string{"u1", "u2"}, models.ConversationTypePrivate, services.ErrUnauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.conversations.Create(ctx, tc.caller, tc.participants, tc.ctype)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// Group conversations accept more than two participants.
	if _, err := env.conversations.Create(ctx, "u1", []string{"u1", "u2", "u3"}, models.ConversationTypeGroup); err != nil {
		t.Fatalf("group conversation creation failed: %v", err)
	}
}

func TestNewConversationStartsEmpty(t *testing.T) {
	env := newTestEnv(t)
	conv := env.createPrivate(t, "u1", "u2")

	if conv.LastMessage != nil {
		t.Fatal("expected no last message on a fresh conversation")
	}
	if conv.UnreadFor("u1") != 0 || conv.UnreadFor("u2") != 0 {
		t.Fatal("expected zero unread counts on a fresh conversation")
	}
}

func TestListConversationsScopedToParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := env.createPrivate(t, "u1", "u2")
	env.createPrivate(t, "u2", "u3")
	env.send(t, conv.ID, "u1", "u2", "hey")

	for _, tc := range []struct {
		user string
		want int
	}{
		{"u1", 1},
		{"u2", 2},
		{"u3", 1},
		{"stranger", 0},
	} {
		got, err := env.conversations.List(ctx, tc.user)
		if err != nil {
			t.Fatalf("List(%s) failed: %v", tc.user, err)
		}
		if len(got) != tc.want {
			t.Fatalf("List(%s): expected %d conversations, got %d", tc.user, tc.want, len(got))
		}
		for _, c := range got {
			if !c.HasParticipant(tc.user) {
				t.Fatalf("List(%s) returned conversation %s without them", tc.user, c.ID)
			}
		}
	}
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createPrivate(t, "u1", "u2")
	second, err := env.conversations.Create(ctx, "u1", []string{"u1", "u3"}, models.ConversationTypePrivate)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Activity in the older conversation moves it back to the top.
	env.send(t, first.ID, "u1", "u2", "ping")

	got, err := env.conversations.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("expected most recently active first, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestMarkReadClearsUnreadAndMessageStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := env.createPrivate(t, "u1", "u2")
	env.send(t, conv.ID, "u1", "u2", "hello")

	updated, err := env.conversations.MarkRead(ctx, conv.ID, "u2")
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 message marked, got %d", updated)
	}

	got, err := env.conversations.Get(ctx, "u2", conv.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UnreadFor("u2") != 0 {
		t.Fatalf("expected 0 unread for u2, got %d", got.UnreadFor("u2"))
	}

	msgs, _, err := env.messages.List(ctx, "u2", conv.ID, 10, nil)
	if err != nil {
		t.Fatalf("List messages failed: %v", err)
	}
	if msgs[0].Status != models.MessageStatusRead {
		t.Fatalf("expected stored message status read, got %s", msgs[0].Status)
	}

	// Second call with nothing new is a no-op returning 0.
	updated, err = env.conversations.MarkRead(ctx, conv.ID, "u2")
	if err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected idempotent no-op, got %d", updated)
	}
}

func TestMarkDeliveredNeverDemotesRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := env.createPrivate(t, "u1", "u2")
	env.send(t, conv.ID, "u1", "u2", "first")

	if _, err := env.conversations.MarkRead(ctx, conv.ID, "u2"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	updated, err := env.conversations.MarkDelivered(ctx, conv.ID, "u2")
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected no messages demoted, got %d", updated)
	}

	env.send(t, conv.ID, "u1", "u2", "second")
	updated, err = env.conversations.MarkDelivered(ctx, conv.ID, "u2")
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 message delivered, got %d", updated)
	}

	msgs, _, err := env.messages.List(ctx, "u2", conv.ID, 10, nil)
	if err != nil {
		t.Fatalf("List messages failed: %v", err)
	}
	if msgs[0].Status != models.MessageStatusDelivered {
		t.Fatalf("expected newest message delivered, got %s", msgs[0].Status)
	}
	if msgs[1].Status != models.MessageStatusRead {
		t.Fatalf("expected older message still read, got %s", msgs[1].Status)
	}
}

func TestGetConversationHiddenFromNonParticipants(t *testing.T) {
	env := newTestEnv(t)
	conv := env.createPrivate(t, "u1", "u2")

	if _, err := env.conversations.Get(context.Background(), "u3", conv.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-participant, got %v", err)
	}
}

func TestReconcileRepairsStaleSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	conv := env.createPrivate(t, "u1", "u2")

	// Append straight through the store, skipping the summary touch, to
	// simulate a crash between the message append and the conversation
	// update.
	stale, err := env.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		ClientKey:      uuid.New(),
		SenderID:       "u1",
		ReceiverID:     "u2",
		Type:           models.MessageTypeText,
		Content:        "orphaned",
		Status:         models.MessageStatusSent,
	})
	if err != nil {
		t.Fatalf("direct CreateMessage failed: %v", err)
	}

	before, err := env.conversations.Get(ctx, "u1", conv.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if before.LastMessage != nil {
		t.Fatal("expected stale summary before reconciliation")
	}

	repaired, err := env.conversations.Reconcile(ctx, "u1", conv.ID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if repaired.LastMessage == nil || repaired.LastMessage.ID != stale.ID {
		t.Fatal("expected reconciled last message to be the orphaned append")
	}
	if repaired.UnreadFor("u2") != 1 {
		t.Fatalf("expected reconciled unread count 1 for u2, got %d", repaired.UnreadFor("u2"))
	}
	if repaired.UnreadFor("u1") != 0 {
		t.Fatalf("expected reconciled unread count 0 for u1, got %d", repaired.UnreadFor("u1"))
	}
}
