package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"psy-booking-bot/internal/models"
)

const bookingViewQuery = `
    SELECT b.id, b.client_id, b.slot_id, b.status, b.reminder_24h_sent, b.reminder_1h_sent, b.created_at,
           s.date, s.time, s.format,
           c.telegram_id, c.first_name, c.last_name, c.username
    FROM bookings b
    JOIN slots s ON s.id = b.slot_id
    JOIN clients c ON c.id = b.client_id`

// BookSlot moves a free slot to booked and records an active booking in one
// transaction. The slot update is guarded by status = 'free', so of several
// concurrent callers exactly one gets a row; the rest get ErrSlotTaken.
func (d *DB) BookSlot(ctx context.Context, clientID, slotID int64, format models.Format, comment *string) (*models.Booking, error) {
	var b models.Booking
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		n, err := txExec(ctx, tx, `
            UPDATE slots SET status = 'booked', client_id = ?, format = ?, comment = COALESCE(?, comment)
            WHERE id = ? AND status = 'free'`,
			clientID, format, comment, slotID)
		if err != nil {
			return fmt.Errorf("book slot %d: %w", slotID, err)
		}
		if n == 0 {
			var id int64
			if err := txGet(ctx, tx, &id, `SELECT id FROM slots WHERE id = ?`, slotID); err != nil {
				return err
			}
			return ErrSlotTaken
		}
		return txGet(ctx, tx, &b, `
            INSERT INTO bookings (client_id, slot_id, status, created_at)
            VALUES (?,?,'active',?)
            RETURNING id, client_id, slot_id, status, reminder_24h_sent, reminder_1h_sent, created_at`,
			clientID, slotID, d.unix())
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CancelBooking moves an active booking to canceled and frees its slot.
// The returned view still carries the slot's date, time and format as they
// were before the slot was freed.
func (d *DB) CancelBooking(ctx context.Context, bookingID int64) (*models.BookingView, error) {
	var v models.BookingView
	err := d.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := txGet(ctx, tx, &v, bookingViewQuery+` WHERE b.id = ?`, bookingID); err != nil {
			return err
		}
		if v.Status != models.BookingActive {
			return ErrNotActive
		}
		n, err := txExec(ctx, tx, `UPDATE bookings SET status = 'canceled' WHERE id = ? AND status = 'active'`, bookingID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotActive
		}
		_, err = txExec(ctx, tx, `
            UPDATE slots SET status = 'free', client_id = NULL, format = NULL, comment = NULL
            WHERE id = ? AND client_id = ?`, v.SlotID, v.ClientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	v.Status = models.BookingCanceled
	return &v, nil
}

func (d *DB) GetBooking(ctx context.Context, id int64) (*models.BookingView, error) {
	var v models.BookingView
	if err := d.get(ctx, &v, bookingViewQuery+` WHERE b.id = ?`, id); err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *DB) GetActiveBookingBySlot(ctx context.Context, slotID int64) (*models.BookingView, error) {
	var v models.BookingView
	if err := d.get(ctx, &v, bookingViewQuery+` WHERE b.slot_id = ? AND b.status = 'active'`, slotID); err != nil {
		return nil, err
	}
	return &v, nil
}

func (d *DB) ListActiveBookingsByClient(ctx context.Context, clientID int64) ([]models.BookingView, error) {
	res := []models.BookingView{}
	err := d.selectAll(ctx, &res, bookingViewQuery+`
        WHERE b.client_id = ? AND b.status = 'active'
        ORDER BY s.date, s.time`, clientID)
	return res, err
}

func (d *DB) ListActiveBookings(ctx context.Context) ([]models.BookingView, error) {
	return d.ListBookings(ctx, models.BookingActive)
}

// ListBookings returns bookings with the given status, or all of them when
// status is empty.
func (d *DB) ListBookings(ctx context.Context, status models.BookingStatus) ([]models.BookingView, error) {
	res := []models.BookingView{}
	if status == "" {
		err := d.selectAll(ctx, &res, bookingViewQuery+` ORDER BY s.date, s.time`)
		return res, err
	}
	err := d.selectAll(ctx, &res, bookingViewQuery+`
        WHERE b.status = ?
        ORDER BY s.date, s.time`, status)
	return res, err
}

// MarkReminderSent sets the flag of kind on an active booking. It reports
// whether this call flipped it, so two sweeps racing on the same booking can
// tell which one owns the send.
func (d *DB) MarkReminderSent(ctx context.Context, bookingID int64, kind models.ReminderKind) (bool, error) {
	var column string
	switch kind {
	case models.Reminder24h:
		column = "reminder_24h_sent"
	case models.Reminder1h:
		column = "reminder_1h_sent"
	default:
		return false, errors.New("storage: unknown reminder kind " + string(kind))
	}
	n, err := d.exec(ctx, `UPDATE bookings SET `+column+` = TRUE WHERE id = ? AND `+column+` = FALSE`, bookingID)
	return n > 0, err
}

// CompletePastBookings marks active bookings whose slot started before the
// given wall-clock moment as completed. The slot stays booked.
func (d *DB) CompletePastBookings(ctx context.Context, date, tm string) (int64, error) {
	return d.exec(ctx, `
        UPDATE bookings SET status = 'completed'
        WHERE status = 'active' AND slot_id IN (
            SELECT id FROM slots WHERE date < ? OR (date = ? AND time < ?)
        )`, date, date, tm)
}
