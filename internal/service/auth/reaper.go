package auth

import (
	"context"
	"time"

	"github.com/nkiryanov/authd/internal/logger"
	"github.com/nkiryanov/authd/internal/repository"
)

const defaultReapInterval = time.Hour

// Reaper removes refresh token records that expired without ever being
// rotated. Rotation already deletes consumed records, this loop only picks
// up the leftovers so the table does not grow without bound.
type Reaper struct {
	interval    time.Duration
	refreshRepo repository.RefreshTokenRepo
	logger      logger.Logger
}

func NewReaper(interval time.Duration, refreshRepo repository.RefreshTokenRepo, l logger.Logger) *Reaper {
	if interval <= 0 {
		interval = defaultReapInterval
	}

	return &Reaper{
		interval:    interval,
		refreshRepo: refreshRepo,
		logger:      l,
	}
}

// Run sweeps once right away and then on every tick until ctx is cancelled
func (r *Reaper) Run(ctx context.Context) {
	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Token reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	deleted, err := r.refreshRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		r.logger.Error("Failed to delete expired refresh tokens", "error", err)
		return
	}

	if deleted > 0 {
		r.logger.Info("Deleted expired refresh tokens", "count", deleted)
	}
}
