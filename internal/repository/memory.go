package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slotbook/internal/models"
)

type MemoryAvailabilityCache struct {
	entries sync.Map
	ttl     time.Duration
}

type memoryEntry struct {
	day       *models.DayAvailability
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{
		ttl: ttl,
	}
}

func memoryKey(vendorID int64, date string) string {
	return fmt.Sprintf("%d:%s", vendorID, date)
}

func (r *MemoryAvailabilityCache) Get(ctx context.Context, vendorID int64, date string) (*models.DayAvailability, error) {
	val, ok := r.entries.Load(memoryKey(vendorID, date))
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		r.entries.Delete(memoryKey(vendorID, date))
		return nil, nil
	}
	return entry.day, nil
}

func (r *MemoryAvailabilityCache) Set(ctx context.Context, day *models.DayAvailability) error {
	r.entries.Store(memoryKey(day.VendorID, day.Date), &memoryEntry{
		day:       day,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryAvailabilityCache) Invalidate(ctx context.Context, vendorID int64, date string) error {
	r.entries.Delete(memoryKey(vendorID, date))
	return nil
}
