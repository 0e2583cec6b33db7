package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	db_models "glammatch-backend/internal/models"
	"glammatch-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func scanMessage(row pgx.Row) (*db_models.Message, error) {
	var msg db_models.Message
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.ClientKey,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Type,
		&msg.Content,
		&msg.Status,
		&msg.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (id, conversation_id, client_key, sender_id, receiver_id, type, content, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, conversation_id, client_key, sender_id, receiver_id, type, content, status, created_at;
`

// CreateMessage appends a message with a server-assigned timestamp.
// Returns store.ErrDuplicate when the (conversation, client key) pair has
// already been used, so callers can fetch the original instead of re-sending.
func (s *PostgresStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*db_models.Message, error) {
	row := s.db.QueryRow(ctx, createMessage,
		arg.ID,
		arg.ConversationID,
		arg.ClientKey,
		arg.SenderID,
		arg.ReceiverID,
		arg.Type,
		arg.Content,
		arg.Status,
	)
	msg, err := scanMessage(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		log.Printf("ERROR [PostgresStore] CreateMessage: insert failed for conversation %s: %v", arg.ConversationID, err)
		return nil, fmt.Errorf("database error creating message: %w", err)
	}
	return msg, nil
}

const getMessageByClientKey = `-- name: GetMessageByClientKey :one
SELECT id, conversation_id, client_key, sender_id, receiver_id, type, content, status, created_at
FROM messages
WHERE conversation_id = $1 AND client_key = $2;
`

func (s *PostgresStore) GetMessageByClientKey(ctx context.Context, conversationID, clientKey uuid.UUID) (*db_models.Message, error) {
	row := s.db.QueryRow(ctx, getMessageByClientKey, conversationID, clientKey)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching message by client key: %w", err)
	}
	return msg, nil
}

const listMessages = `-- name: ListMessages :many
SELECT id, conversation_id, client_key, sender_id, receiver_id, type, content, status, created_at
FROM messages
WHERE conversation_id = $1
  AND ($2::timestamptz IS NULL OR created_at < $2)
ORDER BY created_at DESC, id DESC
LIMIT $3;
`

func (s *PostgresStore) ListMessages(ctx context.Context, arg store.ListMessagesParams) ([]db_models.Message, error) {
	rows, err := s.db.Query(ctx, listMessages, arg.ConversationID, arg.Before, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	messages := []db_models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

const latestMessage = `-- name: LatestMessage :one
SELECT id, conversation_id, client_key, sender_id, receiver_id, type, content, status, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1;
`

func (s *PostgresStore) LatestMessage(ctx context.Context, conversationID uuid.UUID) (*db_models.Message, error) {
	row := s.db.QueryRow(ctx, latestMessage, conversationID)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching latest message: %w", err)
	}
	return msg, nil
}

const countUnreadByReceiver = `-- name: CountUnreadByReceiver :many
SELECT receiver_id, COUNT(*)
FROM messages
WHERE conversation_id = $1 AND status <> 'read'
GROUP BY receiver_id;
`

func (s *PostgresStore) CountUnreadByReceiver(ctx context.Context, conversationID uuid.UUID) (map[string]int, error) {
	rows, err := s.db.Query(ctx, countUnreadByReceiver, conversationID)
	if err != nil {
		return nil, fmt.Errorf("database error counting unread messages: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			receiverID string
			count      int64
		)
		if err := rows.Scan(&receiverID, &count); err != nil {
			return nil, fmt.Errorf("error scanning unread count row: %w", err)
		}
		counts[receiverID] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread count rows: %w", err)
	}
	return counts, nil
}

const advanceMessageStatuses = `-- name: AdvanceMessageStatuses :execrows
UPDATE messages
SET status = $4
WHERE conversation_id = $1
  AND receiver_id = $2
  AND status = ANY($3);
`

func (s *PostgresStore) AdvanceMessageStatuses(ctx context.Context, conversationID uuid.UUID, receiverID string, from []db_models.MessageStatus, to db_models.MessageStatus) (int64, error) {
	fromStrs := make([]string, 0, len(from))
	for _, st := range from {
		fromStrs = append(fromStrs, string(st))
	}

	tag, err := s.db.Exec(ctx, advanceMessageStatuses, conversationID, receiverID, fromStrs, to)
	if err != nil {
		log.Printf("ERROR [PostgresStore] AdvanceMessageStatuses: update failed for conversation %s: %v", conversationID, err)
		return 0, fmt.Errorf("database error advancing message statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}
