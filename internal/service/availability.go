package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/models"
	"slotbook/internal/repository"
	"slotbook/internal/timeslot"

	"github.com/rs/zerolog"
)

// AvailabilityService renders the per-day slot view. The view is advisory:
// it may be stale by up to the cache TTL and never blocks a booking attempt.
type AvailabilityService struct {
	db     *database.DB
	cache  repository.AvailabilityCache
	gen    timeslot.Generator
	logger *zerolog.Logger
}

func NewAvailabilityService(db *database.DB, cache repository.AvailabilityCache, cfg config.BookingConfig, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{
		db:     db,
		cache:  cache,
		gen:    generatorFromConfig(cfg),
		logger: logger,
	}
}

func (s *AvailabilityService) GetDay(ctx context.Context, vendorID int64, dateStr string) (*models.DayAvailability, error) {
	date, err := timeslot.ParseDate(dateStr)
	if err != nil {
		return nil, NewError(http.StatusBadRequest, TagInvalidRequest, "date must be YYYY-MM-DD")
	}

	vendor, err := s.db.GetVendor(ctx, vendorID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NewError(http.StatusNotFound, TagNotFound, "vendor not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("vendor_id", vendorID).Msg("failed to load vendor")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	if s.cache != nil {
		if day, err := s.cache.Get(ctx, vendorID, dateStr); err == nil && day != nil {
			return day, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Msg("availability cache read failed")
		}
	}

	offset := time.Duration(vendor.TZOffsetMinutes) * time.Minute
	slots := s.gen.Generate(date, offset)
	windowStart, windowEnd := s.gen.Window(date, offset)

	claimed, err := s.db.GetClaimedSlots(ctx, vendorID, windowStart, windowEnd)
	if err != nil {
		s.logger.Error().Err(err).Int64("vendor_id", vendorID).Msg("failed to load claimed slots")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	taken := make(map[int64]bool, len(claimed))
	for _, c := range claimed {
		taken[c.UnixMilli()] = true
	}

	day := &models.DayAvailability{
		Date:     dateStr,
		VendorID: vendorID,
		Slots:    make([]models.SlotAvailability, 0, len(slots)),
	}
	for _, slot := range slots {
		day.Slots = append(day.Slots, models.SlotAvailability{
			LocalTime:   slot.Label,
			UTCTime:     slot.StartUTC,
			IsAvailable: !taken[slot.StartUTC.UnixMilli()],
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, day); err != nil {
			s.logger.Warn().Err(err).Msg("availability cache write failed")
		}
	}

	return day, nil
}

func (s *AvailabilityService) Vendors(ctx context.Context) ([]*models.Vendor, error) {
	vendors, err := s.db.GetVendors(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list vendors")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}
	return vendors, nil
}

func (s *AvailabilityService) Vendor(ctx context.Context, id int64) (*models.Vendor, error) {
	vendor, err := s.db.GetVendor(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NewError(http.StatusNotFound, TagNotFound, "vendor not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("vendor_id", id).Msg("failed to load vendor")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}
	return vendor, nil
}
