package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"
	"slotbook/internal/repository"
	"slotbook/internal/timeslot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CreateBookingRequest struct {
	VendorID int64  `json:"vendor_id"`
	StartISO string `json:"start_iso"`
	EndISO   string `json:"end_iso"`
	BuyerID  string `json:"-"`
}

type CreateBookingResponse struct {
	BookingID        string    `json:"booking_id"`
	Vendor           string    `json:"vendor"`
	StartTimeUTC     time.Time `json:"start_time_utc"`
	EndTimeUTC       time.Time `json:"end_time_utc"`
	Status           string    `json:"status"`
	PaymentReference string    `json:"payment_reference"`
}

// BookingService owns booking creation and the idempotency protocol around
// it. The database constraints stay authoritative for both concerns; this
// layer validates, sequences and renders.
type BookingService struct {
	db     *database.DB
	cache  repository.AvailabilityCache
	bus    *events.EventBus
	cfg    config.BookingConfig
	gen    timeslot.Generator
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBookingService(db *database.DB, cache repository.AvailabilityCache, bus *events.EventBus, cfg config.BookingConfig, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		db:     db,
		cache:  cache,
		bus:    bus,
		cfg:    cfg,
		gen:    generatorFromConfig(cfg),
		logger: logger,
		now:    time.Now,
	}
}

func generatorFromConfig(cfg config.BookingConfig) timeslot.Generator {
	return timeslot.Generator{
		StartHour: cfg.WindowStartHour,
		EndHour:   cfg.WindowEndHour,
		Step:      time.Duration(cfg.SlotMinutes) * time.Minute,
	}
}

// Create runs the idempotent booking protocol: gate read, execute, record.
// A recorded outcome is replayed byte for byte on every retry of the same
// key; when two first requests race, the idempotency ledger's primary key
// elects the winner and the loser returns the winner's recorded outcome.
func (s *BookingService) Create(ctx context.Context, key string, req *CreateBookingRequest) Outcome {
	if key == "" {
		return errorOutcome(http.StatusBadRequest, TagInvalidRequest, "Idempotency-Key header is required")
	}

	if rec, err := s.db.GetIdempotencyRecord(ctx, models.ScopeCreateBooking, key); err == nil {
		metrics.IncIdempotentReplay()
		return Outcome{Status: rec.StatusCode, Body: []byte(rec.ResponseBody)}
	} else if !errors.Is(err, database.ErrNotFound) {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to read idempotency record")
		return internalOutcome()
	}

	outcome := s.execute(ctx, req)

	// Internal failures are never recorded; the client may retry them and
	// get a fresh execution.
	if outcome.Status >= http.StatusInternalServerError {
		return outcome
	}

	rec := &models.IdempotencyRecord{
		Key:          key,
		Scope:        models.ScopeCreateBooking,
		StatusCode:   outcome.Status,
		ResponseBody: string(outcome.Body),
	}
	err := s.db.PutIdempotencyRecord(ctx, rec)
	if errors.Is(err, database.ErrDuplicateKey) {
		// Lost the first-writer race; the winner's outcome is the truth.
		winner, rerr := s.db.GetIdempotencyRecord(ctx, models.ScopeCreateBooking, key)
		if rerr != nil {
			s.logger.Error().Err(rerr).Str("key", key).Msg("failed to read winning idempotency record")
			return internalOutcome()
		}
		metrics.IncIdempotentReplay()
		return Outcome{Status: winner.StatusCode, Body: []byte(winner.ResponseBody)}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to record idempotency outcome")
	}

	return outcome
}

func (s *BookingService) execute(ctx context.Context, req *CreateBookingRequest) Outcome {
	if req.VendorID <= 0 {
		return errorOutcome(http.StatusBadRequest, TagInvalidRequest, "vendor_id is required")
	}
	start, err := time.Parse(time.RFC3339, req.StartISO)
	if err != nil {
		return errorOutcome(http.StatusBadRequest, TagInvalidRequest, "start_iso must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, req.EndISO)
	if err != nil {
		return errorOutcome(http.StatusBadRequest, TagInvalidRequest, "end_iso must be an RFC 3339 timestamp")
	}
	start = start.UTC()
	end = end.UTC()

	vendor, err := s.db.GetVendor(ctx, req.VendorID)
	if errors.Is(err, database.ErrNotFound) {
		return errorOutcome(http.StatusNotFound, TagNotFound, "vendor not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("vendor_id", req.VendorID).Msg("failed to load vendor")
		return internalOutcome()
	}

	offset := time.Duration(vendor.TZOffsetMinutes) * time.Minute
	localDate := timeslot.LocalDate(start, offset)

	if out, ok := s.validateSlot(start, end, localDate, offset); !ok {
		return out
	}
	if out, ok := s.checkBookingWindow(start, localDate, offset); !ok {
		return out
	}

	buyerID := req.BuyerID
	if buyerID == "" {
		buyerID = "1"
	}

	booking := &models.Booking{
		ID:       uuid.New().String(),
		VendorID: vendor.ID,
		BuyerID:  buyerID,
		StartUTC: start,
		EndUTC:   end,
		Status:   models.StatusPending,
	}

	err = s.db.CreateBookingWithClaim(ctx, booking)
	if errors.Is(err, database.ErrSlotTaken) {
		metrics.IncBookingConflict()
		return errorOutcome(http.StatusConflict, TagSlotUnavailable, "slot is already booked")
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("vendor_id", vendor.ID).Msg("failed to create booking")
		return internalOutcome()
	}

	metrics.IncBookingCreated()

	// The payment leg is created after the booking commits. A failure here
	// leaves a booking without a payment row; initialize repairs that lazily.
	payment := &models.Payment{
		BookingID: booking.ID,
		Ref:       paymentRef(booking.ID, s.now()),
		Status:    models.PaymentPending,
	}
	if err := s.db.CreatePayment(ctx, payment); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("failed to create payment record")
		payment.Ref = ""
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, vendor.ID, localDate); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate availability cache")
		}
	}

	if err := s.bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
		BookingID: booking.ID,
		VendorID:  booking.VendorID,
		BuyerID:   booking.BuyerID,
		StartUTC:  booking.StartUTC,
		EndUTC:    booking.EndUTC,
		Status:    booking.Status,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish booking created event")
	}

	outcome, err := jsonOutcome(http.StatusCreated, CreateBookingResponse{
		BookingID:        booking.ID,
		Vendor:           vendor.Name,
		StartTimeUTC:     booking.StartUTC,
		EndTimeUTC:       booking.EndUTC,
		Status:           booking.Status,
		PaymentReference: payment.Ref,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to render booking response")
		return internalOutcome()
	}
	return outcome
}

// validateSlot requires start to be one of the generated slots for its
// vendor-local date and end to close exactly one slot later.
func (s *BookingService) validateSlot(start, end time.Time, localDate string, offset time.Duration) (Outcome, bool) {
	date, err := timeslot.ParseDate(localDate)
	if err != nil {
		return internalOutcome(), false
	}

	valid := false
	for _, slot := range s.gen.Generate(date, offset) {
		if slot.StartUTC.Equal(start) {
			valid = true
			break
		}
	}
	if !valid {
		return errorOutcome(http.StatusBadRequest, TagInvalidRequest, "start time is not a bookable slot"), false
	}
	if !end.Equal(start.Add(s.gen.Step)) {
		return errorOutcome(http.StatusBadRequest, TagInvalidRequest, "end time must be exactly one slot after start"), false
	}
	return Outcome{}, true
}

// checkBookingWindow enforces the creation policy: no past dates, and
// same-day bookings need the configured lead time.
func (s *BookingService) checkBookingWindow(start time.Time, localDate string, offset time.Duration) (Outcome, bool) {
	now := s.now()
	today := timeslot.LocalDate(now, offset)

	if localDate < today {
		return errorOutcome(http.StatusBadRequest, TagBookingWindow, "cannot book a past date"), false
	}
	if localDate == today {
		lead := time.Duration(s.cfg.SameDayLeadMinutes) * time.Minute
		if start.Before(now.Add(lead)) {
			msg := fmt.Sprintf("same-day bookings require at least %d minutes notice", s.cfg.SameDayLeadMinutes)
			return errorOutcome(http.StatusBadRequest, TagBookingWindow, msg), false
		}
	}
	return Outcome{}, true
}

func paymentRef(bookingID string, now time.Time) string {
	return fmt.Sprintf("PAY_%s_%d", bookingID, now.UnixMilli())
}

type BookingResponse struct {
	BookingID    string    `json:"booking_id"`
	Vendor       string    `json:"vendor"`
	BuyerID      string    `json:"buyer_id"`
	StartTimeUTC time.Time `json:"start_time_utc"`
	EndTimeUTC   time.Time `json:"end_time_utc"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *BookingService) Get(ctx context.Context, id string) (*BookingResponse, error) {
	booking, err := s.db.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NewError(http.StatusNotFound, TagNotFound, "booking not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id).Msg("failed to load booking")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	return &BookingResponse{
		BookingID:    booking.ID,
		Vendor:       booking.VendorName,
		BuyerID:      booking.BuyerID,
		StartTimeUTC: booking.StartUTC,
		EndTimeUTC:   booking.EndUTC,
		Status:       booking.Status,
		CreatedAt:    booking.CreatedAt,
	}, nil
}
