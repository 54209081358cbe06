package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsRadar/internal/domain"
	"NewsRadar/internal/ports"
)

// Cleanup sweeps expired day partitions: it deletes yesterday's forum
// threads (best-effort) and then drops every store key for that day across
// all registered namespaces.
type Cleanup struct {
	stores    []ports.Store
	publisher ports.Publisher
	logger    *slog.Logger

	now func() time.Time
}

// NewCleanup takes every namespace store that owns day-partitioned keys.
func NewCleanup(publisher ports.Publisher, logger *slog.Logger, stores ...ports.Store) *Cleanup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleanup{
		stores:    stores,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run removes the previous day's partition. Thread deletion failures are
// logged and skipped; they never block the remaining deletions or the key
// sweep.
func (c *Cleanup) Run(ctx context.Context) error {
	day := domain.DayPartition(c.now().AddDate(0, 0, -1))
	logger := c.logger.With("day", day)

	threads := 0
	keys := 0
	for _, store := range c.stores {
		handles, err := store.ThreadHandles(ctx, day)
		if err != nil {
			logger.Error("listing thread handles failed", "error", err)
		} else {
			for _, handle := range handles {
				if err := c.publisher.DeleteThread(ctx, handle); err != nil {
					logger.Error("thread deletion failed", "thread", handle, "error", err)
					continue
				}
				threads++
			}
		}

		deleted, err := store.DeleteDay(ctx, day)
		keys += deleted
		if err != nil {
			logger.Error("partition sweep failed", "error", err)
			return err
		}
	}

	logger.Info("cleanup complete", "threads", threads, "keys", keys)
	return nil
}
