package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/realtime"
	"glammatch-backend/internal/store"

	"github.com/google/uuid"
)

// SendMessageInput carries everything needed to append one message.
// ClientKey is the caller-generated idempotency key; a zero key gets a fresh
// one assigned server-side.
type SendMessageInput struct {
	ConversationID uuid.UUID
	SenderID       string
	ReceiverID     string
	Content        string
	Type           models.MessageType
	ClientKey      uuid.UUID
}

// MessageService owns message append, history pagination, and the live
// message feed. The append is the source of truth; the conversation summary
// touch that follows it is a cache update and is allowed to fail (logged,
// repaired by ConversationService.Reconcile).
type MessageService struct {
	store           store.Store
	notifier        *Notifier
	defaultPageSize int
}

func NewMessageService(s store.Store, n *Notifier, defaultPageSize int) *MessageService {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &MessageService{
		store:           s,
		notifier:        n,
		defaultPageSize: defaultPageSize,
	}
}

// Send validates, appends, and announces a message. The append happens
// before the summary touch; retrying after an ambiguous failure with the
// same client key returns the already-persisted message instead of a
// duplicate.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.SenderID == "" {
		return nil, fmt.Errorf("%w: no caller identity", ErrUnauthenticated)
	}
	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidArgument, in.Type)
	}
	if in.ReceiverID == "" {
		return nil, fmt.Errorf("%w: receiver id is required", ErrInvalidArgument)
	}
	if in.SenderID == in.ReceiverID {
		return nil, fmt.Errorf("%w: sender and receiver must differ", ErrInvalidArgument)
	}
	if in.Content == "" && (in.Type == models.MessageTypeText || in.Type == models.MessageTypeImage) {
		return nil, fmt.Errorf("%w: content cannot be empty for %s messages", ErrInvalidArgument, in.Type)
	}
	if in.ClientKey == uuid.Nil {
		in.ClientKey = uuid.New()
	}

	conv, err := s.store.GetConversationByID(ctx, in.ConversationID)
	if err != nil {
		return nil, classifyStoreError("fetching conversation", err)
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, in.ConversationID)
	}
	if !conv.HasParticipant(in.ReceiverID) {
		return nil, fmt.Errorf("%w: receiver %s is not a participant", ErrInvalidArgument, in.ReceiverID)
	}

	msg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:             uuid.New(),
		ConversationID: in.ConversationID,
		ClientKey:      in.ClientKey,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Type:           in.Type,
		Content:        in.Content,
		Status:         models.MessageStatusSent,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A retry of a send that already landed. Return the original.
			existing, lookupErr := s.store.GetMessageByClientKey(ctx, in.ConversationID, in.ClientKey)
			if lookupErr != nil {
				return nil, classifyStoreError("fetching message for retried send", lookupErr)
			}
			log.Printf("[MessageService] Send retry for conversation %s deduplicated to message %s", in.ConversationID, existing.ID)
			return existing, nil
		}
		return nil, classifyStoreError("appending message", err)
	}

	// The message is durable from here on. A failed touch leaves a stale
	// summary, which Reconcile can repair; it must not fail the send.
	if err := s.store.TouchConversation(ctx, in.ConversationID, msg, in.SenderID); err != nil {
		log.Printf("WARN [MessageService] message %s appended but summary touch failed for conversation %s, reconciliation needed: %v",
			msg.ID, in.ConversationID, err)
	}

	s.publishMessageList(ctx, in.ConversationID)
	s.publishConversationLists(ctx, conv.Participants)
	return msg, nil
}

// List returns one page of conversation history, newest first, bounded by
// pageSize. The second return value is the continuation cursor for the next
// page; nil means the history is exhausted.
func (s *MessageService) List(ctx context.Context, userID string, conversationID uuid.UUID, pageSize int, before *time.Time) ([]models.Message, *time.Time, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: no caller identity", ErrUnauthenticated)
	}
	conv, err := s.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, nil, classifyStoreError("fetching conversation", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > 100 {
		pageSize = 100
	}

	messages, err := s.store.ListMessages(ctx, store.ListMessagesParams{
		ConversationID: conversationID,
		Limit:          pageSize,
		Before:         before,
	})
	if err != nil {
		return nil, nil, classifyStoreError("listing messages", err)
	}

	var next *time.Time
	if len(messages) == pageSize {
		cursor := messages[len(messages)-1].Timestamp
		next = &cursor
	}
	return messages, next, nil
}

// Subscribe attaches fn to the conversation's live message list. fn fires
// once with the current page, then again after every append or status change.
func (s *MessageService) Subscribe(ctx context.Context, userID string, conversationID uuid.UUID, fn func([]models.Message)) (realtime.CancelFunc, error) {
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

	load := func() ([]models.Message, bool) {
		msgs, err := s.store.ListMessages(ctx, store.ListMessagesParams{
			ConversationID: conversationID,
			Limit:          feedSnapshotLimit,
		})
		if err != nil {
			log.Printf("WARN [MessageService] Subscribe: snapshot load failed for %s: %v", conversationID, err)
			return nil, false
		}
		return msgs, true
	}
	return s.notifier.SubscribeMessages(conversationID, load, fn), nil
}

func (s *MessageService) publishMessageList(ctx context.Context, conversationID uuid.UUID) {
	msgs, err := s.store.ListMessages(ctx, store.ListMessagesParams{
		ConversationID: conversationID,
		Limit:          feedSnapshotLimit,
	})
	if err != nil {
		log.Printf("WARN [MessageService] message feed refresh failed for %s: %v", conversationID, err)
		return
	}
	s.notifier.PublishMessages(conversationID, msgs)
}

func (s *MessageService) publishConversationLists(ctx context.Context, participants []string) {
	for _, p := range participants {
		list, err := s.store.ListConversationsByUser(ctx, p)
		if err != nil {
			log.Printf("WARN [MessageService] feed refresh failed for user %s: %v", p, err)
			continue
		}
		s.notifier.PublishConversations(p, list)
	}
}
