package storage

import (
	"context"

	"psy-booking-bot/internal/models"
)

const sosViewQuery = `
    SELECT r.id, r.client_id, r.text, r.status, r.created_at,
           c.telegram_id, c.first_name, c.last_name, c.username
    FROM sos_requests r
    JOIN clients c ON c.id = r.client_id`

// CreateSosRequest stores a new request; an empty text is stored as NULL
// until the client elaborates.
func (d *DB) CreateSosRequest(ctx context.Context, clientID int64, text string) (*models.SosRequest, error) {
	var t *string
	if text != "" {
		t = &text
	}
	var r models.SosRequest
	err := d.get(ctx, &r, `
        INSERT INTO sos_requests (client_id, text, status, created_at)
        VALUES (?,?,'new',?)
        RETURNING id, client_id, text, status, created_at`,
		clientID, t, d.unix())
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) SetSosText(ctx context.Context, id int64, text string) error {
	n, err := d.exec(ctx, `UPDATE sos_requests SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSosRequests returns the newest requests first, all of them when status
// is empty.
func (d *DB) ListSosRequests(ctx context.Context, status models.SosStatus) ([]models.SosView, error) {
	res := []models.SosView{}
	if status == "" {
		err := d.selectAll(ctx, &res, sosViewQuery+` ORDER BY r.created_at DESC, r.id DESC`)
		return res, err
	}
	err := d.selectAll(ctx, &res, sosViewQuery+`
        WHERE r.status = ?
        ORDER BY r.created_at DESC, r.id DESC`, status)
	return res, err
}

func (d *DB) SetSosStatus(ctx context.Context, id int64, status models.SosStatus) error {
	n, err := d.exec(ctx, `UPDATE sos_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSosBefore drops requests created before the unix time.
func (d *DB) DeleteSosBefore(ctx context.Context, before int64) (int64, error) {
	return d.exec(ctx, `DELETE FROM sos_requests WHERE created_at < ?`, before)
}
