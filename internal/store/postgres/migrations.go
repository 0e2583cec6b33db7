package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		hashed_password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL DEFAULT 'private',
		participants TEXT[] NOT NULL,
		last_message JSONB,
		unread_counts JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_conversations_participants
		ON conversations USING GIN (participants)`,

	`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at
		ON conversations (updated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		client_key UUID NOT NULL,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'text',
		content TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'sent',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Idempotent sends: one row per (conversation, client key).
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_client_key
		ON messages (conversation_id, client_key)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at DESC)`,
}

// RunMigrations applies the schema at startup. Statements are idempotent so
// re-running on every boot is safe.
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Printf("[PostgresStore] Applied %d schema migrations", len(migrations))
	return nil
}
