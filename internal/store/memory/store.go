// Package memory provides an in-memory store.Store used by tests and local
// development. It mirrors the Postgres implementation's semantics: per-row
// atomic summary updates, server-assigned non-decreasing timestamps within a
// conversation, and duplicate detection on (conversation, client key).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	db_models "glammatch-backend/internal/models"
	"glammatch-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure Store implements store.Store
var _ store.Store = (*Store)(nil)

type clientKeyRef struct {
	conversationID uuid.UUID
	clientKey      uuid.UUID
}

type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*db_models.User
	usersByEmail  map[string]uuid.UUID
	conversations map[uuid.UUID]*db_models.Conversation
	messages      map[uuid.UUID]*db_models.Message
	byClientKey   map[clientKeyRef]uuid.UUID
	lastTimestamp map[uuid.UUID]time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*db_models.User),
		usersByEmail:  make(map[string]uuid.UUID),
		conversations: make(map[uuid.UUID]*db_models.Conversation),
		messages:      make(map[uuid.UUID]*db_models.Message),
		byClientKey:   make(map[clientKeyRef]uuid.UUID),
		lastTimestamp: make(map[uuid.UUID]time.Time),
	}
}

func copyUser(u *db_models.User) *db_models.User {
	cp := *u
	return &cp
}

func copyMessage(m *db_models.Message) *db_models.Message {
	cp := *m
	return &cp
}

func copyConversation(c *db_models.Conversation) *db_models.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	if c.LastMessage != nil {
		cp.LastMessage = copyMessage(c.LastMessage)
	}
	return &cp
}

// nextTimestamp assigns a server timestamp that never moves backward within a
// conversation, so rapid sends still order deterministically.
func (s *Store) nextTimestamp(conversationID uuid.UUID) time.Time {
	ts := time.Now().UTC()
	if last, ok := s.lastTimestamp[conversationID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	s.lastTimestamp[conversationID] = ts
	return ts
}

// --- User operations ---

func (s *Store) GetUserByEmail(_ context.Context, email string) (*db_models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*db_models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Store) CreateUser(_ context.Context, user *db_models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[user.Email]; exists {
		return store.ErrDuplicate
	}
	now := time.Now().UTC()
	cp := copyUser(user)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.users[cp.ID] = cp
	s.usersByEmail[cp.Email] = cp.ID
	return nil
}

// --- Conversation operations ---

func (s *Store) CreateConversation(_ context.Context, arg store.CreateConversationParams) (*db_models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	conv := &db_models.Conversation{
		ID:           arg.ID,
		Type:         arg.Type,
		Participants: append([]string(nil), arg.Participants...),
		UnreadCounts: map[string]int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[conv.ID] = conv
	return copyConversation(conv), nil
}

func (s *Store) GetConversationByID(_ context.Context, id uuid.UUID) (*db_models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyConversation(conv), nil
}

func (s *Store) ListConversationsByUser(_ context.Context, userID string) ([]db_models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []db_models.Conversation{}
	for _, conv := range s.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, *copyConversation(conv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) TouchConversation(_ context.Context, id uuid.UUID, last *db_models.Message, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.LastMessage = copyMessage(last)
	conv.UpdatedAt = time.Now().UTC()
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int{}
	}
	for _, p := range conv.Participants {
		if p != senderID {
			conv.UnreadCounts[p]++
		}
	}
	return nil
}

func (s *Store) SetConversationSummary(_ context.Context, id uuid.UUID, last *db_models.Message, unread map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	if last != nil {
		conv.LastMessage = copyMessage(last)
		conv.UpdatedAt = last.Timestamp
	} else {
		conv.LastMessage = nil
	}
	conv.UnreadCounts = make(map[string]int, len(unread))
	for k, v := range unread {
		conv.UnreadCounts[k] = v
	}
	return nil
}

func (s *Store) ResetUnread(_ context.Context, id uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = map[string]int{}
	}
	conv.UnreadCounts[userID] = 0
	return nil
}

// --- Message operations ---

func (s *Store) CreateMessage(_ context.Context, arg store.CreateMessageParams) (*db_models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := clientKeyRef{conversationID: arg.ConversationID, clientKey: arg.ClientKey}
	if _, exists := s.byClientKey[ref]; exists {
		return nil, store.ErrDuplicate
	}
	msg := &db_models.Message{
		ID:             arg.ID,
		ConversationID: arg.ConversationID,
		ClientKey:      arg.ClientKey,
		SenderID:       arg.SenderID,
		ReceiverID:     arg.ReceiverID,
		Type:           arg.Type,
		Content:        arg.Content,
		Status:         arg.Status,
		Timestamp:      s.nextTimestamp(arg.ConversationID),
	}
	s.messages[msg.ID] = msg
	s.byClientKey[ref] = msg.ID
	return copyMessage(msg), nil
}

func (s *Store) GetMessageByClientKey(_ context.Context, conversationID, clientKey uuid.UUID) (*db_models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byClientKey[clientKeyRef{conversationID: conversationID, clientKey: clientKey}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyMessage(s.messages[id]), nil
}

// conversationMessagesLocked returns the conversation's messages newest first.
func (s *Store) conversationMessagesLocked(conversationID uuid.UUID) []*db_models.Message {
	msgs := []*db_models.Message{}
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.After(msgs[j].Timestamp)
		}
		return msgs[i].ID.String() > msgs[j].ID.String()
	})
	return msgs
}

func (s *Store) ListMessages(_ context.Context, arg store.ListMessagesParams) ([]db_models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []db_models.Message{}
	for _, m := range s.conversationMessagesLocked(arg.ConversationID) {
		if arg.Before != nil && !m.Timestamp.Before(*arg.Before) {
			continue
		}
		out = append(out, *copyMessage(m))
		if arg.Limit > 0 && len(out) >= arg.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) LatestMessage(_ context.Context, conversationID uuid.UUID) (*db_models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.conversationMessagesLocked(conversationID)
	if len(msgs) == 0 {
		return nil, store.ErrNotFound
	}
	return copyMessage(msgs[0]), nil
}

func (s *Store) CountUnreadByReceiver(_ context.Context, conversationID uuid.UUID) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int{}
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.Status != db_models.MessageStatusRead {
			counts[m.ReceiverID]++
		}
	}
	return counts, nil
}

func (s *Store) AdvanceMessageStatuses(_ context.Context, conversationID uuid.UUID, receiverID string, from []db_models.MessageStatus, to db_models.MessageStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, m := range s.messages {
		if m.ConversationID != conversationID || m.ReceiverID != receiverID {
			continue
		}
		for _, st := range from {
			if m.Status == st {
				m.Status = to
				updated++
				break
			}
		}
	}
	return updated, nil
}
