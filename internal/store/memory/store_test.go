package memory

import (
	"context"
	"errors"
	"testing"

	db_models "glammatch-backend/internal/models"
	"glammatch-backend/internal/store"

	"github.com/google/uuid"
)

func newConversation(t *testing.T, s *Store, participants ...string) *db_models.Conversation {
	t.Helper()
	conv, err := s.CreateConversation(context.Background(), store.CreateConversationParams{
		ID:           uuid.New(),
		Type:         db_models.ConversationTypePrivate,
		Participants: participants,
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}

func appendMessage(t *testing.T, s *Store, convID uuid.UUID, sender, receiver, content string) *db_models.Message {
	t.Helper()
	msg, err := s.CreateMessage(context.Background(), store.CreateMessageParams{
		ID:             uuid.New(),
		ConversationID: convID,
		ClientKey:      uuid.New(),
		SenderID:       sender,
		ReceiverID:     receiver,
		Type:           db_models.MessageTypeText,
		Content:        content,
		Status:         db_models.MessageStatusSent,
	})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	return msg
}

func TestListConversationsFiltersByParticipant(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	newConversation(t, s, "u1", "u2")
	newConversation(t, s, "u2", "u3")

	got, err := s.ListConversationsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListConversationsByUser failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 conversation for u1, got %d", len(got))
	}
	if !got[0].HasParticipant("u1") {
		t.Fatal("listed conversation does not include u1")
	}

	got, err = s.ListConversationsByUser(ctx, "u2")
	if err != nil {
		t.Fatalf("ListConversationsByUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 conversations for u2, got %d", len(got))
	}
}

func TestMessageTimestampsNeverMoveBackward(t *testing.T) {
	s := NewStore()
	conv := newConversation(t, s, "u1", "u2")

	var prev *db_models.Message
	for i := 0; i < 10; i++ {
		msg := appendMessage(t, s, conv.ID, "u1", "u2", "m")
		if prev != nil && msg.Timestamp.Before(prev.Timestamp) {
			t.Fatalf("timestamp moved backward: %v after %v", msg.Timestamp, prev.Timestamp)
		}
		prev = msg
	}
}

func TestDuplicateClientKeyRejected(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	conv := newConversation(t, s, "u1", "u2")

	key := uuid.New()
	params := store.CreateMessageParams{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		ClientKey:      key,
		SenderID:       "u1",
		ReceiverID:     "u2",
		Type:           db_models.MessageTypeText,
		Content:        "hello",
		Status:         db_models.MessageStatusSent,
	}
	first, err := s.CreateMessage(ctx, params)
	if err != nil {
		t.Fatalf("first CreateMessage failed: %v", err)
	}

	params.ID = uuid.New()
	if _, err := s.CreateMessage(ctx, params); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on reused client key, got %v", err)
	}

	got, err := s.GetMessageByClientKey(ctx, conv.ID, key)
	if err != nil {
		t.Fatalf("GetMessageByClientKey failed: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("expected original message %s, got %s", first.ID, got.ID)
	}
}

func TestListMessagesPagination(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	conv := newConversation(t, s, "u1", "u2")

	for i := 0; i < 5; i++ {
		appendMessage(t, s, conv.ID, "u1", "u2", "m")
	}

	page1, err := s.ListMessages(ctx, store.ListMessagesParams{ConversationID: conv.ID, Limit: 3})
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(page1) != 3 {
		t.Fatalf("expected 3 messages on first page, got %d", len(page1))
	}
	for i := 1; i < len(page1); i++ {
		if page1[i].Timestamp.After(page1[i-1].Timestamp) {
			t.Fatal("expected newest-first ordering")
		}
	}

	cursor := page1[len(page1)-1].Timestamp
	page2, err := s.ListMessages(ctx, store.ListMessagesParams{ConversationID: conv.ID, Limit: 3, Before: &cursor})
	if err != nil {
		t.Fatalf("ListMessages page 2 failed: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 messages on second page, got %d", len(page2))
	}

	seen := map[uuid.UUID]bool{}
	for _, m := range append(page1, page2...) {
		if seen[m.ID] {
			t.Fatalf("message %s returned on both pages", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestTouchConversationIncrementsEveryoneButSender(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	conv, err := s.CreateConversation(ctx, store.CreateConversationParams{
		ID:           uuid.New(),
		Type:         db_models.ConversationTypeGroup,
		Participants: []string{"u1", "u2", "u3"},
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := appendMessage(t, s, conv.ID, "u1", "u2", "hi all")
	if err := s.TouchConversation(ctx, conv.ID, msg, "u1"); err != nil {
		t.Fatalf("TouchConversation failed: %v", err)
	}

	got, err := s.GetConversationByID(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversationByID failed: %v", err)
	}
	if got.LastMessage == nil || got.LastMessage.ID != msg.ID {
		t.Fatal("expected last message snapshot to be set")
	}
	if got.UnreadFor("u1") != 0 {
		t.Fatalf("sender unread should stay 0, got %d", got.UnreadFor("u1"))
	}
	if got.UnreadFor("u2") != 1 || got.UnreadFor("u3") != 1 {
		t.Fatalf("expected 1 unread for u2 and u3, got %d and %d", got.UnreadFor("u2"), got.UnreadFor("u3"))
	}
}

func TestResetUnreadIsAbsolute(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	conv := newConversation(t, s, "u1", "u2")

	msg := appendMessage(t, s, conv.ID, "u1", "u2", "hello")
	if err := s.TouchConversation(ctx, conv.ID, msg, "u1"); err != nil {
		t.Fatalf("TouchConversation failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.ResetUnread(ctx, conv.ID, "u2"); err != nil {
			t.Fatalf("ResetUnread call %d failed: %v", i+1, err)
		}
		got, err := s.GetConversationByID(ctx, conv.ID)
		if err != nil {
			t.Fatalf("GetConversationByID failed: %v", err)
		}
		if got.UnreadFor("u2") != 0 {
			t.Fatalf("expected 0 unread after reset, got %d", got.UnreadFor("u2"))
		}
	}
}

func TestAdvanceMessageStatusesCountsAndIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	conv := newConversation(t, s, "u1", "u2")

	appendMessage(t, s, conv.ID, "u1", "u2", "one")
	appendMessage(t, s, conv.ID, "u1", "u2", "two")
	appendMessage(t, s, conv.ID, "u2", "u1", "reply") // addressed to u1, must not be swept

	from := []db_models.MessageStatus{db_models.MessageStatusSent, db_models.MessageStatusDelivered}
	updated, err := s.AdvanceMessageStatuses(ctx, conv.ID, "u2", from, db_models.MessageStatusRead)
	if err != nil {
		t.Fatalf("AdvanceMessageStatuses failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 messages swept, got %d", updated)
	}

	updated, err = s.AdvanceMessageStatuses(ctx, conv.ID, "u2", from, db_models.MessageStatusRead)
	if err != nil {
		t.Fatalf("second AdvanceMessageStatuses failed: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected idempotent no-op, got %d", updated)
	}

	counts, err := s.CountUnreadByReceiver(ctx, conv.ID)
	if err != nil {
		t.Fatalf("CountUnreadByReceiver failed: %v", err)
	}
	if counts["u1"] != 1 || counts["u2"] != 0 {
		t.Fatalf("expected unread u1=1 u2=0, got %v", counts)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	s := NewStore()
	if _, err := s.GetConversationByID(context.Background(), uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
