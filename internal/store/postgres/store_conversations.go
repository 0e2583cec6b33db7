package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	db_models "glammatch-backend/internal/models"
	"glammatch-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const conversationColumns = `id, type, participants, last_message, unread_counts, created_at, updated_at`

// scanConversation scans one conversation row, decoding the JSONB summary
// columns by hand so a corrupt snapshot surfaces as an error, not a zero value.
func scanConversation(row pgx.Row) (*db_models.Conversation, error) {
	var (
		conv        db_models.Conversation
		lastMessage []byte
		unread      []byte
	)
	err := row.Scan(
		&conv.ID,
		&conv.Type,
		&conv.Participants,
		&lastMessage,
		&unread,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(lastMessage) > 0 {
		var msg db_models.Message
		if err := json.Unmarshal(lastMessage, &msg); err != nil {
			return nil, fmt.Errorf("decoding last_message for conversation %s: %w", conv.ID, err)
		}
		conv.LastMessage = &msg
	}

	conv.UnreadCounts = map[string]int{}
	if len(unread) > 0 {
		if err := json.Unmarshal(unread, &conv.UnreadCounts); err != nil {
			return nil, fmt.Errorf("decoding unread_counts for conversation %s: %w", conv.ID, err)
		}
	}

	return &conv, nil
}

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (id, type, participants)
VALUES ($1, $2, $3)
RETURNING id, type, participants, last_message, unread_counts, created_at, updated_at;
`

func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*db_models.Conversation, error) {
	row := s.db.QueryRow(ctx, createConversation, arg.ID, arg.Type, arg.Participants)
	conv, err := scanConversation(row)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateConversation: insert failed for %s: %v", arg.ID, err)
		return nil, fmt.Errorf("database error creating conversation: %w", err)
	}
	return conv, nil
}

const getConversationByID = `-- name: GetConversationByID :one
SELECT id, type, participants, last_message, unread_counts, created_at, updated_at
FROM conversations
WHERE id = $1;
`

func (s *PostgresStore) GetConversationByID(ctx context.Context, id uuid.UUID) (*db_models.Conversation, error) {
	row := s.db.QueryRow(ctx, getConversationByID, id)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}
	return conv, nil
}

const listConversationsByUser = `-- name: ListConversationsByUser :many
SELECT id, type, participants, last_message, unread_counts, created_at, updated_at
FROM conversations
WHERE $1 = ANY(participants)
ORDER BY updated_at DESC;
`

func (s *PostgresStore) ListConversationsByUser(ctx context.Context, userID string) ([]db_models.Conversation, error) {
	rows, err := s.db.Query(ctx, listConversationsByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	conversations := []db_models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}
	return conversations, nil
}

// touchConversation bumps the summary in a single statement so concurrent
// senders cannot lose each other's unread increments: the row lock serializes
// them and the counts are rebuilt from the stored values in place.
const touchConversation = `-- name: TouchConversation :exec
UPDATE conversations
SET last_message = $2,
    updated_at = now(),
    unread_counts = (
        SELECT COALESCE(jsonb_object_agg(
            p,
            COALESCE((unread_counts ->> p)::int, 0) + CASE WHEN p = $3 THEN 0 ELSE 1 END
        ), '{}'::jsonb)
        FROM unnest(participants) AS p
    )
WHERE id = $1;
`

func (s *PostgresStore) TouchConversation(ctx context.Context, id uuid.UUID, last *db_models.Message, senderID string) error {
	snapshot, err := json.Marshal(last)
	if err != nil {
		return fmt.Errorf("encoding last message snapshot: %w", err)
	}

	tag, err := s.db.Exec(ctx, touchConversation, id, snapshot, senderID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] TouchConversation: update failed for %s: %v", id, err)
		return fmt.Errorf("database error touching conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const setConversationSummary = `-- name: SetConversationSummary :exec
UPDATE conversations
SET last_message = $2,
    unread_counts = $3,
    updated_at = COALESCE(($2 ->> 'timestamp')::timestamptz, updated_at)
WHERE id = $1;
`

func (s *PostgresStore) SetConversationSummary(ctx context.Context, id uuid.UUID, last *db_models.Message, unread map[string]int) error {
	var snapshot []byte
	if last != nil {
		var err error
		snapshot, err = json.Marshal(last)
		if err != nil {
			return fmt.Errorf("encoding last message snapshot: %w", err)
		}
	}
	if unread == nil {
		unread = map[string]int{}
	}
	counts, err := json.Marshal(unread)
	if err != nil {
		return fmt.Errorf("encoding unread counts: %w", err)
	}

	tag, err := s.db.Exec(ctx, setConversationSummary, id, snapshot, counts)
	if err != nil {
		log.Printf("ERROR [PostgresStore] SetConversationSummary: update failed for %s: %v", id, err)
		return fmt.Errorf("database error writing conversation summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const resetUnread = `-- name: ResetUnread :exec
UPDATE conversations
SET unread_counts = jsonb_set(COALESCE(unread_counts, '{}'::jsonb), ARRAY[$2::text], '0'::jsonb)
WHERE id = $1;
`

func (s *PostgresStore) ResetUnread(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := s.db.Exec(ctx, resetUnread, id, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ResetUnread: update failed for %s/%s: %v", id, userID, err)
		return fmt.Errorf("database error resetting unread count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
