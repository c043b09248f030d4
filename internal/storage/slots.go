package storage

import (
	"context"
	"errors"

	"psy-booking-bot/internal/models"
)

const slotColumns = `id, date, time, status, client_id, format, available_formats, comment, created_at`

// CreateSlot inserts a free slot. It returns nil, nil when a slot with the
// same date and time already exists.
func (d *DB) CreateSlot(ctx context.Context, date, tm string, formats models.AvailableFormats) (*models.Slot, error) {
	if formats == "" {
		formats = models.AvailableBoth
	}
	var s models.Slot
	err := d.get(ctx, &s, `
        INSERT INTO slots (date, time, status, available_formats, created_at)
        VALUES (?,?,'free',?,?)
        ON CONFLICT(date, time) DO NOTHING
        RETURNING `+slotColumns,
		date, tm, formats, d.unix())
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	var s models.Slot
	if err := d.get(ctx, &s, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) GetSlotByDateTime(ctx context.Context, date, tm string) (*models.Slot, error) {
	var s models.Slot
	if err := d.get(ctx, &s, `SELECT `+slotColumns+` FROM slots WHERE date = ? AND time = ?`, date, tm); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListFreeSlots returns free slots strictly after the given wall-clock moment.
func (d *DB) ListFreeSlots(ctx context.Context, fromDate, fromTime string, limit int) ([]models.Slot, error) {
	res := []models.Slot{}
	err := d.selectAll(ctx, &res, `
        SELECT `+slotColumns+` FROM slots
        WHERE status = 'free' AND (date > ? OR (date = ? AND time > ?))
        ORDER BY date, time
        LIMIT ?`, fromDate, fromDate, fromTime, limit)
	return res, err
}

// ListFreeSlotsForDate returns free slots of one day starting after minTime.
// An empty minTime returns the whole day.
func (d *DB) ListFreeSlotsForDate(ctx context.Context, date, minTime string) ([]models.Slot, error) {
	res := []models.Slot{}
	err := d.selectAll(ctx, &res, `
        SELECT `+slotColumns+` FROM slots
        WHERE status = 'free' AND date = ? AND time > ?
        ORDER BY time`, date, minTime)
	return res, err
}

func (d *DB) ListSlotsFrom(ctx context.Context, date string) ([]models.SlotView, error) {
	res := []models.SlotView{}
	err := d.selectAll(ctx, &res, `
        SELECT s.id, s.date, s.time, s.status, s.client_id, s.format, s.available_formats, s.comment, s.created_at,
               c.telegram_id, c.first_name, c.last_name, c.username
        FROM slots s
        LEFT JOIN clients c ON c.id = s.client_id
        WHERE s.date >= ?
        ORDER BY s.date, s.time`, date)
	return res, err
}

// ListSlotsBetween returns all slots with from <= date <= to.
func (d *DB) ListSlotsBetween(ctx context.Context, from, to string) ([]models.Slot, error) {
	res := []models.Slot{}
	err := d.selectAll(ctx, &res, `
        SELECT `+slotColumns+` FROM slots
        WHERE date >= ? AND date <= ?
        ORDER BY date, time`, from, to)
	return res, err
}

// UpdateFreeSlotFormats changes the offered formats of a slot that is still
// free. Booked slots are left untouched and false is returned.
func (d *DB) UpdateFreeSlotFormats(ctx context.Context, id int64, formats models.AvailableFormats) (bool, error) {
	n, err := d.exec(ctx, `UPDATE slots SET available_formats = ? WHERE id = ? AND status = 'free'`, formats, id)
	return n > 0, err
}

// DeleteSlot removes the slot together with its booking history.
func (d *DB) DeleteSlot(ctx context.Context, id int64) error {
	n, err := d.exec(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
