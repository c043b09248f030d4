package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"psy-booking-bot/internal/blob"
	"psy-booking-bot/internal/models"
)

type cleanupStore interface {
	ListPaymentsBefore(ctx context.Context, before int64) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	DeleteSosBefore(ctx context.Context, before int64) (int64, error)
}

// Cleanup removes payment screenshots and SOS requests older than Retention.
type Cleanup struct {
	Repo      cleanupStore
	Blobs     blob.Store
	Retention time.Duration
}

type CleanupResult struct {
	Payments int
	Sos      int64
}

// Run deletes the stored file before its row; a payment whose file could
// not be removed is kept for the next run.
func (c *Cleanup) Run(ctx context.Context, now time.Time) (CleanupResult, error) {
	var res CleanupResult
	before := now.Add(-c.Retention).Unix()

	payments, err := c.Repo.ListPaymentsBefore(ctx, before)
	if err != nil {
		return res, fmt.Errorf("list old payments: %w", err)
	}
	for _, p := range payments {
		if p.StorageKey != "" {
			if err := c.Blobs.Delete(ctx, p.StorageKey); err != nil {
				log.Warn().Err(err).Int64("payment_id", p.ID).Msg("delete screenshot")
				continue
			}
		}
		if err := c.Repo.DeletePayment(ctx, p.ID); err != nil {
			log.Warn().Err(err).Int64("payment_id", p.ID).Msg("delete payment")
			continue
		}
		res.Payments++
	}

	res.Sos, err = c.Repo.DeleteSosBefore(ctx, before)
	if err != nil {
		return res, fmt.Errorf("delete old sos: %w", err)
	}
	log.Info().Int("payments", res.Payments).Int64("sos", res.Sos).Msg("retention cleanup done")
	return res, nil
}
