package storage

import (
	"context"

	"psy-booking-bot/internal/models"
)

func (d *DB) CreateDiaryEntry(ctx context.Context, clientID int64, text string) (*models.DiaryEntry, error) {
	var e models.DiaryEntry
	err := d.get(ctx, &e, `
        INSERT INTO diary_entries (client_id, text, created_at)
        VALUES (?,?,?)
        RETURNING id, client_id, text, created_at`,
		clientID, text, d.unix())
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListDiaryEntries returns the newest entries of a client first.
func (d *DB) ListDiaryEntries(ctx context.Context, clientID int64, limit int) ([]models.DiaryEntry, error) {
	res := []models.DiaryEntry{}
	err := d.selectAll(ctx, &res, `
        SELECT id, client_id, text, created_at FROM diary_entries
        WHERE client_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, clientID, limit)
	return res, err
}

func (d *DB) ListRecentDiary(ctx context.Context, limit int) ([]models.DiaryView, error) {
	res := []models.DiaryView{}
	err := d.selectAll(ctx, &res, `
        SELECT e.id, e.client_id, e.text, e.created_at, c.first_name, c.last_name, c.username
        FROM diary_entries e
        JOIN clients c ON c.id = e.client_id
        ORDER BY e.created_at DESC, e.id DESC
        LIMIT ?`, limit)
	return res, err
}
