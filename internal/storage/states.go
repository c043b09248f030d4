package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"psy-booking-bot/internal/models"
)

// GetChatState returns the pending flow of a chat, NoState when none is set.
func (d *DB) GetChatState(ctx context.Context, chatID int64) (models.ChatState, error) {
	var row struct {
		Kind    string `db:"kind"`
		Payload string `db:"payload"`
	}
	err := d.get(ctx, &row, `SELECT kind, payload FROM chat_states WHERE chat_id = ?`, chatID)
	if errors.Is(err, ErrNotFound) {
		return models.NoState(), nil
	}
	if err != nil {
		return models.NoState(), err
	}

	var st models.ChatState
	if err := json.Unmarshal([]byte(row.Payload), &st); err != nil {
		return models.NoState(), fmt.Errorf("chat %d state: %w", chatID, err)
	}
	st.Kind = models.FlowKind(row.Kind)
	if !st.Kind.Valid() {
		return models.NoState(), fmt.Errorf("chat %d: unknown state %q", chatID, row.Kind)
	}
	return st, nil
}

// SetChatState overwrites the chat's pending flow. Setting NoState clears it.
func (d *DB) SetChatState(ctx context.Context, chatID int64, st models.ChatState) error {
	if st.IsNone() {
		return d.ClearChatState(ctx, chatID)
	}
	if !st.Kind.Valid() {
		return fmt.Errorf("chat %d: unknown state %q", chatID, st.Kind)
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = d.exec(ctx, `
        INSERT INTO chat_states (chat_id, kind, payload, updated_at) VALUES (?,?,?,?)
        ON CONFLICT(chat_id) DO UPDATE SET kind = excluded.kind, payload = excluded.payload, updated_at = excluded.updated_at`,
		chatID, st.Kind, string(payload), d.unix())
	return err
}

func (d *DB) ClearChatState(ctx context.Context, chatID int64) error {
	_, err := d.exec(ctx, `DELETE FROM chat_states WHERE chat_id = ?`, chatID)
	return err
}
