package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"psy-booking-bot/internal/models"
)

const clientColumns = `id, telegram_id, first_name, last_name, username, created_at`

// UpsertClient returns the client with c.TelegramID, creating it on first
// contact. The flag reports whether the row was created by this call.
// Names of an existing client are left alone: the admin may have edited them.
func (d *DB) UpsertClient(ctx context.Context, c *models.Client) (*models.Client, bool, error) {
	existing, err := d.GetClientByTelegramID(ctx, c.TelegramID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	var created models.Client
	err = d.get(ctx, &created, `
        INSERT INTO clients (telegram_id, first_name, last_name, username, created_at)
        VALUES (?,?,?,?,?)
        ON CONFLICT(telegram_id) DO NOTHING
        RETURNING `+clientColumns,
		c.TelegramID, c.FirstName, c.LastName, c.Username, d.unix())
	if errors.Is(err, ErrNotFound) {
		// lost the race against a concurrent update for the same user
		existing, err := d.GetClientByTelegramID(ctx, c.TelegramID)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert client: %w", err)
	}
	return &created, true, nil
}

func (d *DB) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var c models.Client
	if err := d.get(ctx, &c, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) GetClientByTelegramID(ctx context.Context, telegramID int64) (*models.Client, error) {
	var c models.Client
	if err := d.get(ctx, &c, `SELECT `+clientColumns+` FROM clients WHERE telegram_id = ?`, telegramID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) ListClients(ctx context.Context) ([]models.ClientSummary, error) {
	res := []models.ClientSummary{}
	err := d.selectAll(ctx, &res, `
        SELECT c.id, c.telegram_id, c.first_name, c.last_name, c.username, c.created_at,
               COUNT(DISTINCT b.id) AS bookings_count,
               COUNT(DISTINCT e.id) AS diary_count
        FROM clients c
        LEFT JOIN bookings b ON b.client_id = c.id AND b.status = 'active'
        LEFT JOIN diary_entries e ON e.client_id = c.id
        GROUP BY c.id, c.telegram_id, c.first_name, c.last_name, c.username, c.created_at
        ORDER BY c.created_at DESC, c.id DESC`)
	return res, err
}

func (d *DB) UpdateClientName(ctx context.Context, id int64, firstName, lastName *string) error {
	n, err := d.exec(ctx, `UPDATE clients SET first_name = ?, last_name = ? WHERE id = ?`, firstName, lastName, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteClient cancels the client's active bookings, frees every slot still
// held by the client and deletes the row (diary, SOS and payments cascade).
// The canceled bookings are returned so the caller can notify the client.
func (d *DB) DeleteClient(ctx context.Context, id int64) ([]models.BookingView, error) {
	var canceled []models.BookingView
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &canceled, tx.Rebind(bookingViewQuery+`
            WHERE b.client_id = ? AND b.status = 'active'
            ORDER BY s.date, s.time`), id); err != nil {
			return err
		}
		if _, err := txExec(ctx, tx, `UPDATE bookings SET status = 'canceled' WHERE client_id = ? AND status = 'active'`, id); err != nil {
			return err
		}
		if _, err := txExec(ctx, tx, `
            UPDATE slots SET status = 'free', client_id = NULL, format = NULL, comment = NULL
            WHERE client_id = ?`, id); err != nil {
			return err
		}
		n, err := txExec(ctx, tx, `DELETE FROM clients WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

func (d *DB) ListClientTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := d.selectAll(ctx, &ids, `SELECT telegram_id FROM clients ORDER BY id`)
	return ids, err
}
