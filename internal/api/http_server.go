package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/metrics"
	"slotbook/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API. Response rendering for booking
// creation is delegated entirely to the service layer so that idempotent
// replays stay byte-identical.
type HTTPServer struct {
	cfg          config.APIConfig
	bookings     *service.BookingService
	availability *service.AvailabilityService
	payments     *service.PaymentService
	logger       *zerolog.Logger
	server       *http.Server
	auth         *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, availability *service.AvailabilityService, payments *service.PaymentService, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:          cfg,
		bookings:     bookings,
		availability: availability,
		payments:     payments,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/vendors", srv.handleVendors)
	mux.HandleFunc("/api/v1/vendors/", srv.handleVendorSubtree)
	mux.HandleFunc("/api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("/api/v1/bookings/", srv.handleGetBooking)
	mux.HandleFunc("/api/v1/payments/initialize", srv.handleInitializePayment)
	mux.HandleFunc("/api/v1/payments/webhook", srv.handlePaymentWebhook)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleVendors(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("vendors")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, service.TagInvalidRequest, "method not allowed")
		return
	}

	vendors, err := s.availability.Vendors(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendors": vendors})
}

// handleVendorSubtree serves /api/v1/vendors/{id} and
// /api/v1/vendors/{id}/availability?date=YYYY-MM-DD.
func (s *HTTPServer) handleVendorSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, service.TagInvalidRequest, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/vendors/")
	idStr, sub, _ := strings.Cut(rest, "/")

	vendorID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || vendorID <= 0 {
		writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "vendor id must be a positive integer")
		return
	}

	switch sub {
	case "":
		metrics.IncHTTP("vendor")
		vendor, err := s.availability.Vendor(r.Context(), vendorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vendor)

	case "availability":
		metrics.IncHTTP("availability")
		dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "date is required")
			return
		}

		day, err := s.availability.GetDay(r.Context(), vendorID, dateStr)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, day)

	default:
		writeError(w, http.StatusNotFound, service.TagNotFound, "not found")
	}
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, service.TagInvalidRequest, "method not allowed")
		return
	}

	// The key gate runs before the body is even parsed; a keyless request
	// must never reach storage.
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "Idempotency-Key header is required")
		return
	}

	var req service.CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "invalid JSON body")
		return
	}
	req.BuyerID = strings.TrimSpace(r.Header.Get("X-Buyer-ID"))

	outcome := s.bookings.Create(r.Context(), key, &req)
	writeOutcome(w, outcome)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, service.TagInvalidRequest, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "booking id is required")
		return
	}

	booking, err := s.bookings.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleInitializePayment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("initialize_payment")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, service.TagInvalidRequest, "method not allowed")
		return
	}

	var req service.InitializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "invalid JSON body")
		return
	}

	resp, err := s.payments.Initialize(r.Context(), strings.TrimSpace(req.BookingID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_webhook")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, service.TagInvalidRequest, "method not allowed")
		return
	}

	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.TagInvalidRequest, "failed to read request body")
		return
	}

	resp, err := s.payments.HandleEvent(r.Context(), raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, tag, message string) {
	writeJSON(w, statusCode, map[string]string{"error": tag, "message": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		writeError(w, svcErr.Status, svcErr.Tag, svcErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, service.TagInternal, "internal error")
}

func writeOutcome(w http.ResponseWriter, outcome service.Outcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(outcome.Status)
	_, _ = w.Write(outcome.Body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
