package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/realtime"
	"glammatch-backend/internal/store"

	"github.com/google/uuid"
)

// feedSnapshotLimit bounds the message page pushed on the realtime feed.
const feedSnapshotLimit = 20

// ConversationService owns the conversation lifecycle: creation, listing,
// read/delivery acknowledgements, and summary reconciliation. The summary
// fields on a conversation are a cache over the messages collection; every
// path here either maintains that cache atomically or repairs it.
type ConversationService struct {
	store    store.Store
	notifier *Notifier
}

func NewConversationService(s store.Store, n *Notifier) *ConversationService {
	return &ConversationService{
		store:    s,
		notifier: n,
	}
}

// Create starts a new conversation among participants. The caller must be a
// participant; private conversations have exactly two.
func (s *ConversationService) Create(ctx context.Context, callerID string, participants []string, ctype models.ConversationType) (*models.Conversation, error) {
	if callerID == "" {
		return nil, fmt.Errorf("%w: no caller identity", ErrUnauthenticated)
	}
	if ctype == "" {
		ctype = models.ConversationTypePrivate
	}
	if !ctype.Valid() {
		return nil, fmt.Errorf("%w: unknown conversation type %q", ErrInvalidArgument, ctype)
	}

	// Deduplicate while preserving order; empty IDs are malformed input.
	seen := make(map[string]struct{}, len(participants))
	unique := make([]string, 0, len(participants))
	for _, p := range participants {
		if p == "" {
			return nil, fmt.Errorf("%w: participant id cannot be empty", ErrInvalidArgument)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	if len(unique) < 2 {
		return nil, fmt.Errorf("%w: a conversation needs at least 2 participants", ErrInvalidArgument)
	}
	if ctype == models.ConversationTypePrivate && len(unique) != 2 {
		return nil, fmt.Errorf("%w: a private conversation has exactly 2 participants", ErrInvalidArgument)
	}
	if _, ok := seen[callerID]; !ok {
		return nil, fmt.Errorf("%w: caller must be a participant", ErrInvalidArgument)
	}

	conv, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:           uuid.New(),
		Type:         ctype,
		Participants: unique,
	})
	if err != nil {
		return nil, classifyStoreError("creating conversation", err)
	}

	log.Printf("[ConversationService] Created conversation %s (%s, %d participants)", conv.ID, conv.Type, len(conv.Participants))
	s.publishConversationLists(ctx, conv.Participants)
	return conv, nil
}

// List returns the caller's conversations, most recently active first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: no caller identity", ErrUnauthenticated)
	}
	conversations, err := s.store.ListConversationsByUser(ctx, userID)
	if err != nil {
		return nil, classifyStoreError("listing conversations", err)
	}
	return conversations, nil
}

// Get returns one conversation. Non-participants get ErrNotFound rather than
// a hint that the conversation exists.
func (s *ConversationService) Get(ctx context.Context, userID string, conversationID uuid.UUID) (*models.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: no caller identity", ErrUnauthenticated)
	}
	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, classifyStoreError("fetching conversation", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	return conv, nil
}

// MarkRead marks every message addressed to userID as read and zeroes their
// unread counter. The counter write is absolute (set to zero, not a delta),
// so concurrent or repeated calls cannot corrupt it. Returns how many
// messages were actually updated; a repeat call with nothing new returns 0.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID uuid.UUID, userID string) (int, error) {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}

	updated, err := s.store.AdvanceMessageStatuses(ctx, conversationID, userID,
		[]models.MessageStatus{models.MessageStatusSent, models.MessageStatusDelivered},
		models.MessageStatusRead)
	if err != nil {
		return 0, classifyStoreError("marking messages read", err)
	}

	if err := s.store.ResetUnread(ctx, conversationID, userID); err != nil {
		// Messages are already read; the counter is stale but repairable.
		log.Printf("WARN [ConversationService] MarkRead: %d messages read in %s but unread reset failed for %s: %v",
			updated, conversationID, userID, err)
		return int(updated), classifyStoreError("resetting unread count", err)
	}

	if updated > 0 {
		s.publishMessageList(ctx, conversationID)
	}
	s.publishConversationLists(ctx, conv.Participants)
	return int(updated), nil
}

// MarkDelivered acknowledges delivery of sent messages addressed to userID.
// Messages already read stay read; the status machine only moves forward.
func (s *ConversationService) MarkDelivered(ctx context.Context, conversationID uuid.UUID, userID string) (int, error) {
	_, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}

	updated, err := s.store.AdvanceMessageStatuses(ctx, conversationID, userID,
		[]models.MessageStatus{models.MessageStatusSent},
		models.MessageStatusDelivered)
	if err != nil {
		return 0, classifyStoreError("marking messages delivered", err)
	}

	if updated > 0 {
		s.publishMessageList(ctx, conversationID)
	}
	return int(updated), nil
}

// Reconcile re-derives the denormalized summary (last message, unread
// counts) from the messages collection. It is the repair path for the
// non-atomic append-then-touch sequence in sendMessage: a crash between the
// two leaves a durable message with a stale summary, and this closes the gap.
func (s *ConversationService) Reconcile(ctx context.Context, userID string, conversationID uuid.UUID) (*models.Conversation, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	latest, err := s.store.LatestMessage(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, classifyStoreError("loading latest message", err)
		}
		latest = nil // no messages yet; summary resets to empty
	}

	counts, err := s.store.CountUnreadByReceiver(ctx, conversationID)
	if err != nil {
		return nil, classifyStoreError("counting unread messages", err)
	}

	if err := s.store.SetConversationSummary(ctx, conversationID, latest, counts); err != nil {
		return nil, classifyStoreError("writing conversation summary", err)
	}

	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, classifyStoreError("reloading conversation", err)
	}

	log.Printf("[ConversationService] Reconciled summary for conversation %s", conversationID)
	s.publishConversationLists(ctx, conv.Participants)
	return conv, nil
}

// Subscribe attaches fn to userID's live conversation list. fn fires once
// with the current snapshot, then again after every relevant change.
func (s *ConversationService) Subscribe(ctx context.Context, userID string, fn func([]models.Conversation)) (realtime.CancelFunc, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: no caller identity", ErrUnauthenticated)
	}
	load := func() ([]models.Conversation, bool) {
		list, err := s.store.ListConversationsByUser(ctx, userID)
		if err != nil {
			log.Printf("WARN [ConversationService] Subscribe: snapshot load failed for %s: %v", userID, err)
			return nil, false
		}
		return list, true
	}
	return s.notifier.SubscribeConversations(userID, load, fn), nil
}

// publishConversationLists refreshes each participant's conversation feed.
// Feed publication is best effort: a failed load is logged, not returned.
func (s *ConversationService) publishConversationLists(ctx context.Context, participants []string) {
	for _, p := range participants {
		list, err := s.store.ListConversationsByUser(ctx, p)
		if err != nil {
			log.Printf("WARN [ConversationService] feed refresh failed for user %s: %v", p, err)
			continue
		}
		s.notifier.PublishConversations(p, list)
	}
}

// publishMessageList refreshes the conversation's message feed.
func (s *ConversationService) publishMessageList(ctx context.Context, conversationID uuid.UUID) {
	msgs, err := s.store.ListMessages(ctx, store.ListMessagesParams{
		ConversationID: conversationID,
		Limit:          feedSnapshotLimit,
	})
	if err != nil {
		log.Printf("WARN [ConversationService] message feed refresh failed for %s: %v", conversationID, err)
		return
	}
	s.notifier.PublishMessages(conversationID, msgs)
}
