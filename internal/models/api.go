package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateConversationRequest defines the body for creating a conversation.
// Type defaults to private when omitted.
type CreateConversationRequest struct {
	Participants []string          `json:"participants"`
	Type         *ConversationType `json:"type,omitempty"`
}

// SendMessageRequest defines the body for sending a message into a conversation.
// ClientKey is the caller-generated idempotency key; when omitted the server
// assigns one, which makes retry-after-ambiguous-failure unsafe for that call.
type SendMessageRequest struct {
	ReceiverID string       `json:"receiver_id"`
	Content    string       `json:"content"`
	Type       *MessageType `json:"type,omitempty"`
	ClientKey  *uuid.UUID   `json:"client_key,omitempty"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConversationResponse is the per-caller view of a conversation: UnreadCount
// is the requesting user's own counter, not the shared map.
type ConversationResponse struct {
	ID           uuid.UUID        `json:"id"`
	Type         ConversationType `json:"type"`
	Participants []string         `json:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty"`
	UnreadCount  int              `json:"unread_count"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ListConversationsResponse defines the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// ListMessagesResponse defines one page of conversation history, newest first.
// NextCursor, when present, is passed back as the `before` parameter to fetch
// the following page.
type ListMessagesResponse struct {
	Messages   []Message  `json:"messages"`
	NextCursor *time.Time `json:"next_cursor,omitempty"`
}

// MarkReadResponse reports how many messages a read-mark actually updated.
type MarkReadResponse struct {
	MessagesMarked int `json:"messages_marked"`
}

// MarkDeliveredResponse reports how many messages a delivery ack updated.
type MarkDeliveredResponse struct {
	MessagesMarked int `json:"messages_marked"`
}

// ConversationView maps a conversation to the view a specific user sees.
func ConversationView(c *Conversation, userID string) ConversationResponse {
	return ConversationResponse{
		ID:           c.ID,
		Type:         c.Type,
		Participants: c.Participants,
		LastMessage:  c.LastMessage,
		UnreadCount:  c.UnreadFor(userID),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ConversationViews maps a conversation list to userID's view of it.
func ConversationViews(cs []Conversation, userID string) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(cs))
	for i := range cs {
		out = append(out, ConversationView(&cs[i], userID))
	}
	return out
}
