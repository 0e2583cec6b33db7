package services

import (
	"github.com/google/uuid"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/realtime"
)

// Notifier bundles the two live feeds the app renders: a per-user
// conversation list and a per-conversation message list. Both deliver full
// snapshots, so subscribers never need to merge deltas.
type Notifier struct {
	conversations *realtime.Hub[[]models.Conversation]
	messages      *realtime.Hub[[]models.Message]
}

func NewNotifier() *Notifier {
	return &Notifier{
		conversations: realtime.NewHub[[]models.Conversation](),
		messages:      realtime.NewHub[[]models.Message](),
	}
}

func conversationTopic(userID string) string {
	return "conversations:" + userID
}

func messageTopic(conversationID uuid.UUID) string {
	return "messages:" + conversationID.String()
}

// PublishConversations pushes userID's refreshed conversation list.
func (n *Notifier) PublishConversations(userID string, list []models.Conversation) {
	n.conversations.Publish(conversationTopic(userID), list)
}

// PublishMessages pushes a conversation's refreshed message page.
func (n *Notifier) PublishMessages(conversationID uuid.UUID, msgs []models.Message) {
	n.messages.Publish(messageTopic(conversationID), msgs)
}

// SubscribeConversations attaches fn to userID's conversation-list feed.
func (n *Notifier) SubscribeConversations(userID string, load func() ([]models.Conversation, bool), fn func([]models.Conversation)) realtime.CancelFunc {
	return n.conversations.Subscribe(conversationTopic(userID), load, fn)
}

// SubscribeMessages attaches fn to a conversation's message-list feed.
func (n *Notifier) SubscribeMessages(conversationID uuid.UUID, load func() ([]models.Message, bool), fn func([]models.Message)) realtime.CancelFunc {
	return n.messages.Subscribe(messageTopic(conversationID), load, fn)
}
