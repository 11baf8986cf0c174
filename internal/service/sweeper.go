package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/justkalesh/foodhunt101-sub000/internal/metrics"
	"github.com/justkalesh/foodhunt101-sub000/internal/storage"
)

// SweepExpired closes open splits whose planned time has passed,
// membership retained. Returns how many splits were closed. A split that
// loses an optimistic race mid-sweep is skipped; the next tick catches it.
func (s *SplitService) SweepExpired(ctx context.Context) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	expired, err := s.store.ListExpiredOpenSplits(ctx, s.now().Unix())
	if err != nil {
		return 0, transient("list expired splits", err)
	}

	closed := 0
	for _, split := range expired {
		split.IsClosed = true
		err := s.store.UpdateSplit(ctx, split)
		if errors.Is(err, storage.ErrVersionConflict) || errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return closed, transient("close expired split", err)
		}
		closed++
		slog.Info("Expired split closed", "split_id", split.ID,
			"split_time", time.Unix(split.SplitTime, 0))
	}
	return closed, nil
}

// RunSweeper runs the expiry sweep on a fixed interval until the context
// is cancelled. Listing splits stays a pure read because of this loop;
// expiry is eventually consistent whether or not anyone views the list.
// Launch it in its own goroutine.
func (s *SplitService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Expiry sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs one sweep with a bounded retry on transient failures.
func (s *SplitService) sweepOnce(ctx context.Context) {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		closed, err := s.SweepExpired(ctx)
		metrics.SweptSplits.Add(float64(closed))
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err)
	}
}
