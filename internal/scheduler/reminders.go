// Package scheduler runs the periodic jobs: booking reminders, completion of
// past bookings and retention cleanup.
//
// A booking leaves the active status once its slot has started, so the
// admin's active bookings list only ever holds upcoming consultations.
// Started ones are listed under status=completed.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/messages"
	"psy-booking-bot/internal/models"
)

type reminderStore interface {
	ListActiveBookings(ctx context.Context) ([]models.BookingView, error)
	MarkReminderSent(ctx context.Context, bookingID int64, kind models.ReminderKind) (bool, error)
	CompletePastBookings(ctx context.Context, date, tm string) (int64, error)
}

type sender interface {
	Send(chatID int64, text string, markup any) error
}

// Reminders sends the 24h and 1h notices for active bookings.
type Reminders struct {
	Repo   reminderStore
	Notify sender
	Loc    *time.Location
	Window time.Duration
}

type SweepResult struct {
	Sent24h int
	Sent1h  int
	Failed  int
}

var leadTimes = []struct {
	kind models.ReminderKind
	lead time.Duration
}{
	{models.Reminder24h, 24 * time.Hour},
	{models.Reminder1h, time.Hour},
}

// Sweep sends every reminder whose target moment (start minus lead) is
// within Window of now. A reminder is flagged only after it was delivered,
// so a crash in between may repeat it.
func (r *Reminders) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	bookings, err := r.Repo.ListActiveBookings(ctx)
	if err != nil {
		return res, fmt.Errorf("list active bookings: %w", err)
	}

	for _, b := range bookings {
		slot := b.Slot()
		start, err := slot.StartsAt(r.Loc)
		if err != nil {
			log.Warn().Err(err).Int64("booking_id", b.ID).Msg("skip reminder")
			continue
		}
		for _, lt := range leadTimes {
			if alreadySent(&b, lt.kind) || !within(start.Sub(now.Add(lt.lead)), r.Window) {
				continue
			}
			if err := r.Notify.Send(b.TelegramID, messages.Reminder(lt.kind, b.FirstName, b.Date, b.Time), nil); err != nil {
				res.Failed++
				continue
			}
			flipped, err := r.Repo.MarkReminderSent(ctx, b.ID, lt.kind)
			if err != nil {
				log.Error().Err(err).Int64("booking_id", b.ID).Str("kind", string(lt.kind)).Msg("mark reminder sent")
				continue
			}
			if !flipped {
				continue
			}
			if lt.kind == models.Reminder24h {
				res.Sent24h++
			} else {
				res.Sent1h++
			}
		}
	}
	return res, nil
}

// CompletePast marks active bookings whose slot has started as completed.
func (r *Reminders) CompletePast(ctx context.Context, now time.Time) (int64, error) {
	now = now.In(r.Loc)
	n, err := r.Repo.CompletePastBookings(ctx, now.Format(models.DateLayout), now.Format(models.TimeLayout))
	if n > 0 {
		log.Info().Int64("count", n).Msg("bookings completed")
	}
	return n, err
}

func alreadySent(b *models.BookingView, kind models.ReminderKind) bool {
	if kind == models.Reminder24h {
		return b.Reminder24hSent
	}
	return b.Reminder1hSent
}

func within(d, window time.Duration) bool {
	return d >= -window && d <= window
}
