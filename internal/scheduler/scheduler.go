package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Deps are the jobs and their cadence.
type Deps struct {
	Reminders *Reminders
	Cleanup   *Cleanup
	Interval  time.Duration
	Location  *time.Location
	Now       func() time.Time
}

// Start registers the background jobs and starts the scheduler. The caller
// shuts it down.
func Start(ctx context.Context, d Deps) (gocron.Scheduler, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(d.Location))
	if err != nil {
		return nil, err
	}

	// напоминания и завершение прошедших записей
	_, err = s.NewJob(
		gocron.DurationJob(d.Interval),
		gocron.NewTask(func() {
			now := d.Now()
			res, err := d.Reminders.Sweep(ctx, now)
			if err != nil {
				log.Error().Err(err).Msg("reminder sweep")
			} else if res.Sent24h+res.Sent1h+res.Failed > 0 {
				log.Info().Int("sent_24h", res.Sent24h).Int("sent_1h", res.Sent1h).Int("failed", res.Failed).Msg("reminders sent")
			}
			if _, err := d.Reminders.CompletePast(ctx, now); err != nil {
				log.Error().Err(err).Msg("complete past bookings")
			}
		}),
		gocron.WithName("reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, err
	}

	// чистка старых скриншотов и SOS раз в сутки
	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			if _, err := d.Cleanup.Run(ctx, d.Now()); err != nil {
				log.Error().Err(err).Msg("retention cleanup")
			}
		}),
		gocron.WithName("cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	log.Info().Dur("interval", d.Interval).Msg("scheduler started")
	return s, nil
}
