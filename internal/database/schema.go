// internal/database/schema.go
package database

import (
	"context"
	"fmt"
)

// Schema creates the audit tables if they don't exist. Room ids repeat across
// server restarts, so actions are keyed by a surrogate id, not (room, index).
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL DEFAULT 'active',
	first_seen_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_action_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	idle_since     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS room_actions (
	id             BIGSERIAL PRIMARY KEY,
	room_id        TEXT NOT NULL REFERENCES rooms(id),
	action_index   INTEGER NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS room_actions_room_idx ON room_actions (room_id, occurred_at);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
