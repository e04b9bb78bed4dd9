// internal/database/room_action.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/uno/internal/models"
)

// InsertRoomActions persists a batch of action records in one transaction.
func InsertRoomActions(ctx context.Context, db TxBeginner, recs []models.RoomAction) error {
	if len(recs) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := InsertRoomActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert %s #%d for room %s: %w", rec.ActionType, rec.ActionIndex, rec.RoomID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert room actions: %w", err)
	}
	return nil
}

// InsertRoomActionTx upserts the room row (reactivating an idle room) and
// appends the action.
func InsertRoomActionTx(ctx context.Context, tx Execer, rec models.RoomAction) error {
	occurred := time.UnixMilli(rec.Timestamp).UTC()

	upsertRoomQ := `
		INSERT INTO rooms (id, status, last_action_at)
		VALUES ($1, 'active', $2)
		ON CONFLICT (id)
		DO UPDATE SET status = 'active', last_action_at = GREATEST(rooms.last_action_at, $2), idle_since = NULL
	`
	if _, err := tx.Exec(ctx, upsertRoomQ, rec.RoomID, occurred); err != nil {
		return err
	}

	payload := rec.ActionPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	actionInsertQ := `
		INSERT INTO room_actions (
			room_id, action_index, actor_id, action_type, action_payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.RoomID, rec.ActionIndex, rec.ActorID, rec.ActionType, jsonPayload, occurred,
	)
	return err
}

// MarkRoomIdle flags an active room as idle. It reports whether a row changed.
func MarkRoomIdle(ctx context.Context, db Execer, roomID string) (bool, error) {
	q := `
		UPDATE rooms
		SET status = 'idle', idle_since = NOW()
		WHERE id = $1 AND status = 'active'
	`
	tag, err := db.Exec(ctx, q, roomID)
	if err != nil {
		return false, fmt.Errorf("mark room %s idle: %w", roomID, err)
	}
	return tag.RowsAffected() > 0, nil
}
