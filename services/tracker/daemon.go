package tracker

import (
	"context"
	"log/slog"
	"time"
)

// Monitor runs a batch immediately, then one per tick until the
// context is cancelled. Cancellation is only observed between batches,
// in-flight fetches finish or hit their own timeout.
func (s *Service) Monitor(ctx context.Context, interval time.Duration, parallel bool) {
	slog.InfoContext(ctx, "starting price monitor", "interval", interval, "parallel", parallel)

	s.runBatch(ctx, parallel)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "price monitor stopped")
			return
		case <-ticker.C:
			s.runBatch(ctx, parallel)
		}
	}
}

func (s *Service) runBatch(ctx context.Context, parallel bool) {
	results := s.CheckAll(ctx, parallel)

	successful := 0
	for _, r := range results {
		if r.Ok() {
			successful++
		}
	}
	slog.InfoContext(
		ctx, "batch check complete",
		"products", len(results),
		"successful", successful,
	)
}
