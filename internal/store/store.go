package store

import (
	"context"
	"errors"
	"time"

	db_models "glammatch-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert collides with an existing record,
// e.g. a reused message client key or an already-registered email.
var ErrDuplicate = errors.New("duplicate record")

// CreateConversationParams contains parameters for creating a conversation.
type CreateConversationParams struct {
	ID           uuid.UUID
	Type         db_models.ConversationType
	Participants []string
}

// CreateMessageParams contains parameters for appending a message.
// The store assigns the timestamp; it must be non-decreasing within the
// message's conversation.
type CreateMessageParams struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	ClientKey      uuid.UUID
	SenderID       string
	ReceiverID     string
	Type           db_models.MessageType
	Content        string
	Status         db_models.MessageStatus
}

// ListMessagesParams bounds a history page. Before, when non-nil, restricts
// the page to messages strictly older than the cursor.
type ListMessagesParams struct {
	ConversationID uuid.UUID
	Limit          int
	Before         *time.Time
}

// Store defines the interface for database operations.
// This allows for mocking in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*db_models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*db_models.User, error)
	CreateUser(ctx context.Context, user *db_models.User) error

	// Conversation operations
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*db_models.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID) (*db_models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]db_models.Conversation, error)

	// TouchConversation refreshes the denormalized summary after an append:
	// last message, updated-at, and a +1 on every participant's unread count
	// except the sender's. The update must be atomic per conversation row.
	TouchConversation(ctx context.Context, id uuid.UUID, last *db_models.Message, senderID string) error

	// SetConversationSummary overwrites the denormalized summary wholesale.
	// Used by the reconciliation path; last may be nil for empty conversations.
	SetConversationSummary(ctx context.Context, id uuid.UUID, last *db_models.Message, unread map[string]int) error

	// ResetUnread sets userID's unread counter to zero (absolute, idempotent).
	ResetUnread(ctx context.Context, id uuid.UUID, userID string) error

	// Message operations
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*db_models.Message, error) // ErrDuplicate on client-key reuse
	GetMessageByClientKey(ctx context.Context, conversationID, clientKey uuid.UUID) (*db_models.Message, error)
	ListMessages(ctx context.Context, arg ListMessagesParams) ([]db_models.Message, error)
	LatestMessage(ctx context.Context, conversationID uuid.UUID) (*db_models.Message, error) // ErrNotFound when empty

	// CountUnreadByReceiver re-derives per-user unread counts from the
	// messages collection (everything not yet read, grouped by receiver).
	CountUnreadByReceiver(ctx context.Context, conversationID uuid.UUID) (map[string]int, error)

	// AdvanceMessageStatuses moves every message in the conversation addressed
	// to receiverID whose status is in from up to the given status, and
	// returns how many rows changed. Calling it again with nothing left to
	// move is a no-op returning 0.
	AdvanceMessageStatuses(ctx context.Context, conversationID uuid.UUID, receiverID string, from []db_models.MessageStatus, to db_models.MessageStatus) (int64, error)
}
