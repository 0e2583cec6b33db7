package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies the payload of a message.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem:
		return true
	}
	return false
}

// MessageStatus tracks delivery progress of a message.
// Statuses only move forward: sent -> delivered -> read.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

// Valid reports whether s is one of the known message statuses.
func (s MessageStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether a message may move from s to next.
// Backward moves are rejected; skipping delivered when marking read is allowed.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// ConversationType distinguishes one-to-one threads from group threads.
type ConversationType string

const (
	ConversationTypePrivate ConversationType = "private"
	ConversationTypeGroup   ConversationType = "group"
)

// Valid reports whether t is one of the known conversation types.
func (t ConversationType) Valid() bool {
	switch t {
	case ConversationTypePrivate, ConversationTypeGroup:
		return true
	}
	return false
}

// Message is a single communication unit within a conversation. Everything
// except Status is immutable once persisted; Timestamp is server-assigned.
type Message struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	ConversationID uuid.UUID     `json:"conversation_id" db:"conversation_id"`
	ClientKey      uuid.UUID     `json:"client_key" db:"client_key"`
	SenderID       string        `json:"sender_id" db:"sender_id"`
	ReceiverID     string        `json:"receiver_id" db:"receiver_id"`
	Type           MessageType   `json:"type" db:"type"`
	Content        string        `json:"content" db:"content"`
	Status         MessageStatus `json:"status" db:"status"`
	Timestamp      time.Time     `json:"timestamp" db:"created_at"`
}

// Conversation is a durable thread among a fixed set of participants.
// LastMessage and UnreadCounts are denormalized from the messages collection
// and are repairable from it; they must never be treated as source of truth.
type Conversation struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Type         ConversationType `json:"type" db:"type"`
	Participants []string         `json:"participants" db:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty" db:"last_message"`
	UnreadCounts map[string]int   `json:"unread_counts" db:"unread_counts"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// UnreadFor returns the unread message count tracked for userID.
func (c *Conversation) UnreadFor(userID string) int {
	if c.UnreadCounts == nil {
		return 0
	}
	return c.UnreadCounts[userID]
}
