package store

import (
	"context"
	"log"
	"time"
)

// SweepConfig holds configuration for the background sweep job.
type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration
}

// StartSweeper runs a background loop that periodically removes artifacts
// older than MaxAge. It runs once immediately so a crash before a scheduled
// deletion cannot leak blobs past the next startup, then ticks until the
// context is cancelled.
func StartSweeper(ctx context.Context, s Store, cfg SweepConfig) {
	if !cfg.Enabled {
		log.Printf("service=sweeper msg=%q", "disabled")
		return
	}

	log.Printf("service=sweeper msg=%q interval=%s max_age=%s",
		"starting", cfg.Interval, cfg.MaxAge)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runSweep(ctx, s, cfg.MaxAge)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=sweeper msg=%q", "shutting_down")
			return
		case <-ticker.C:
			runSweep(ctx, s, cfg.MaxAge)
		}
	}
}

func runSweep(ctx context.Context, s Store, maxAge time.Duration) {
	start := time.Now()
	removed := s.Sweep(ctx, maxAge)
	if removed > 0 {
		log.Printf("service=sweeper msg=%q removed=%d duration_ms=%d",
			"sweep_complete", removed, time.Since(start).Milliseconds())
	}
}
