package repository

import (
	"context"
	"sync/atomic"
	"time"

	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache fronts Redis with an in-memory fallback so an
// outage degrades to per-process caching instead of failing reads.
type FailoverAvailabilityCache struct {
	primary   AvailabilityCache
	fallback  AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverAvailabilityCache(primary, fallback AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverAvailabilityCache) Get(ctx context.Context, vendorID int64, date string) (*models.DayAvailability, error) {
	if !r.isDown.Load() {
		day, err := r.primary.Get(ctx, vendorID, date)
		if err == nil {
			return day, nil
		}
		r.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		day, err := r.primary.Get(ctx, vendorID, date)
		if err == nil {
			r.isDown.Store(false)
			return day, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.Get(ctx, vendorID, date)
}

func (r *FailoverAvailabilityCache) Set(ctx context.Context, day *models.DayAvailability) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, day)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.Set(ctx, day)
}

// Invalidate clears both stores. Dropping only one would let the other keep
// serving a slot that is already claimed for a full TTL.
func (r *FailoverAvailabilityCache) Invalidate(ctx context.Context, vendorID int64, date string) error {
	fallbackErr := r.fallback.Invalidate(ctx, vendorID, date)

	if !r.isDown.Load() {
		if err := r.primary.Invalidate(ctx, vendorID, date); err != nil {
			r.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
			r.isDown.Store(true)
			r.lastCheck = time.Now()
		}
	}

	return fallbackErr
}
