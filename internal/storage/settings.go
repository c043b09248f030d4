package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// GetSetting decodes the JSON value of key into dst. It reports false, with
// dst untouched, when the key is not set.
func (d *DB) GetSetting(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := d.get(ctx, &raw, `SELECT value FROM bot_settings WHERE key = ?`, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return true, nil
}

// SetSetting stores value as JSON, replacing any previous value.
func (d *DB) SetSetting(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	_, err = d.exec(ctx, `
        INSERT INTO bot_settings (key, value, updated_at) VALUES (?,?,?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(b), d.unix())
	return err
}

func (d *DB) DeleteSetting(ctx context.Context, key string) error {
	_, err := d.exec(ctx, `DELETE FROM bot_settings WHERE key = ?`, key)
	return err
}
