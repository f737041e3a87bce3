package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

// PaymentService covers the stub payment leg: reference issuance and the
// gateway notification handler. Notifications are processed at-least-once;
// the durable processed_events marker plus idempotent writes make redelivery
// a no-op.
type PaymentService struct {
	db     *database.DB
	bus    *events.EventBus
	cfg    config.BookingConfig
	logger *zerolog.Logger
}

func NewPaymentService(db *database.DB, bus *events.EventBus, cfg config.BookingConfig, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{
		db:     db,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
	}
}

type InitializePaymentRequest struct {
	BookingID string `json:"booking_id"`
}

type InitializePaymentResponse struct {
	Reference string  `json:"reference"`
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// Initialize returns the payment reference for a booking, creating the
// payment row if the creation-time best-effort write was lost.
func (s *PaymentService) Initialize(ctx context.Context, bookingID string) (*InitializePaymentResponse, error) {
	if bookingID == "" {
		return nil, NewError(http.StatusBadRequest, TagInvalidRequest, "booking_id is required")
	}

	booking, err := s.db.GetBooking(ctx, bookingID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NewError(http.StatusNotFound, TagNotFound, "booking not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("failed to load booking")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	payment, err := s.db.GetPaymentByBookingID(ctx, booking.ID)
	if errors.Is(err, database.ErrNotFound) {
		payment = &models.Payment{
			BookingID: booking.ID,
			Ref:       paymentRef(booking.ID, booking.CreatedAt),
			Status:    models.PaymentPending,
		}
		if cerr := s.db.CreatePayment(ctx, payment); cerr != nil && !errors.Is(cerr, database.ErrDuplicateKey) {
			s.logger.Error().Err(cerr).Str("booking_id", booking.ID).Msg("failed to repair payment record")
			return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
		}
	} else if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("failed to load payment")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	return &InitializePaymentResponse{
		Reference: payment.Ref,
		BookingID: booking.ID,
		Amount:    s.cfg.PaymentAmount,
		Status:    payment.Status,
	}, nil
}

type paymentEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleEvent consumes a gateway notification. Only charge.success carries
// side effects; anything else is rejected without touching the ledger. The
// processed marker is written last so any earlier failure leaves the event
// retryable.
func (s *PaymentService) HandleEvent(ctx context.Context, raw []byte) (*WebhookResponse, error) {
	var evt paymentEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, NewError(http.StatusBadRequest, TagInvalidRequest, "malformed event payload")
	}

	if evt.Event != models.EventChargeSuccess {
		metrics.IncPaymentEvent("unsupported")
		return nil, NewError(http.StatusBadRequest, TagUnsupportedEvent, "unsupported event type")
	}
	if evt.Data.Reference == "" {
		return nil, NewError(http.StatusBadRequest, TagInvalidRequest, "event reference is required")
	}

	processed, err := s.db.IsEventProcessed(ctx, evt.Data.Reference)
	if err != nil {
		s.logger.Error().Err(err).Str("ref", evt.Data.Reference).Msg("failed to check processed marker")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}
	if processed {
		metrics.IncPaymentEvent("duplicate")
		return &WebhookResponse{Status: "ok", Message: "event already processed"}, nil
	}

	payment, err := s.db.GetPaymentByRef(ctx, evt.Data.Reference)
	if errors.Is(err, database.ErrNotFound) {
		metrics.IncPaymentEvent("not_found")
		return nil, NewError(http.StatusNotFound, TagNotFound, "unknown payment reference")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("ref", evt.Data.Reference).Msg("failed to load payment")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	if err := s.db.MarkPaymentSuccess(ctx, payment.Ref, raw); err != nil {
		s.logger.Error().Err(err).Str("ref", payment.Ref).Msg("failed to mark payment success")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	if err := s.db.UpdateBookingStatus(ctx, payment.BookingID, models.StatusPaid); err != nil {
		s.logger.Error().Err(err).Str("booking_id", payment.BookingID).Msg("failed to mark booking paid")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	err = s.db.MarkEventProcessed(ctx, evt.Data.Reference)
	if errors.Is(err, database.ErrAlreadyProcessed) {
		// A concurrent delivery got here first; all effects are idempotent.
		metrics.IncPaymentEvent("duplicate")
		return &WebhookResponse{Status: "ok", Message: "event already processed"}, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("ref", evt.Data.Reference).Msg("failed to mark event processed")
		return nil, NewError(http.StatusInternalServerError, TagInternal, "internal error")
	}

	booking, err := s.db.GetBooking(ctx, payment.BookingID)
	if err == nil {
		if perr := s.bus.PublishJSON(events.EventBookingPaid, events.BookingEventPayload{
			BookingID:  booking.ID,
			VendorID:   booking.VendorID,
			BuyerID:    booking.BuyerID,
			StartUTC:   booking.StartUTC,
			EndUTC:     booking.EndUTC,
			Status:     booking.Status,
			PaymentRef: payment.Ref,
		}); perr != nil {
			s.logger.Warn().Err(perr).Msg("failed to publish booking paid event")
		}
	}

	metrics.IncPaymentEvent("processed")
	return &WebhookResponse{Status: "success", Message: "payment processed"}, nil
}
