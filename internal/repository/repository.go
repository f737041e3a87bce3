package repository

import (
	"context"

	"slotbook/internal/models"
)

// AvailabilityCache is a read-through cache for per-day vendor availability.
// A (nil, nil) Get is a miss. The cache is advisory only; the slot ledger in
// sqlite stays authoritative and stale reads are tolerated.
type AvailabilityCache interface {
	Get(ctx context.Context, vendorID int64, date string) (*models.DayAvailability, error)
	Set(ctx context.Context, day *models.DayAvailability) error
	Invalidate(ctx context.Context, vendorID int64, date string) error
}
