package storage

import (
	"context"

	"psy-booking-bot/internal/models"
)

const paymentColumns = `id, client_id, screenshot_url, storage_key, created_at`

func (d *DB) CreatePayment(ctx context.Context, clientID int64, url, key string) (*models.Payment, error) {
	var p models.Payment
	err := d.get(ctx, &p, `
        INSERT INTO payments (client_id, screenshot_url, storage_key, created_at)
        VALUES (?,?,?,?)
        RETURNING `+paymentColumns,
		clientID, url, key, d.unix())
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	if err := d.get(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) ListPayments(ctx context.Context) ([]models.PaymentView, error) {
	res := []models.PaymentView{}
	err := d.selectAll(ctx, &res, `
        SELECT p.id, p.client_id, p.screenshot_url, p.storage_key, p.created_at,
               c.telegram_id, c.first_name, c.last_name, c.username
        FROM payments p
        JOIN clients c ON c.id = p.client_id
        ORDER BY p.created_at DESC, p.id DESC`)
	return res, err
}

// ListPaymentsBefore is used by the retention job, which has to remove the
// stored screenshot before the row.
func (d *DB) ListPaymentsBefore(ctx context.Context, before int64) ([]models.Payment, error) {
	res := []models.Payment{}
	err := d.selectAll(ctx, &res, `
        SELECT `+paymentColumns+` FROM payments
        WHERE created_at < ?
        ORDER BY id`, before)
	return res, err
}

func (d *DB) DeletePayment(ctx context.Context, id int64) error {
	n, err := d.exec(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
