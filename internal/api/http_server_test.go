package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/models"
	"slotbook/internal/repository"
	"slotbook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.APIConfig {
	return config.APIConfig{
		HTTP: config.APIHTTPConfig{Port: 0},
	}
}

func setupServer(t *testing.T, cfg config.APIConfig) (*HTTPServer, *database.DB) {
	t.Helper()

	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncVendors(context.Background(), []models.Vendor{
		{ID: 1, Name: "Test Vendor", TZOffsetMinutes: 60},
	}))

	bookingCfg := config.BookingConfig{
		WindowStartHour:    models.DefaultWindowStartHour,
		WindowEndHour:      models.DefaultWindowEndHour,
		SlotMinutes:        models.DefaultSlotMinutes,
		SameDayLeadMinutes: models.DefaultSameDayLeadMinutes,
		PaymentAmount:      models.DefaultPaymentAmount,
	}

	bus := events.NewEventBus()
	cache := repository.NewMemoryAvailabilityCache(time.Minute)
	bookings := service.NewBookingService(db, cache, bus, bookingCfg, &logger)
	availability := service.NewAvailabilityService(db, cache, bookingCfg, &logger)
	payments := service.NewPaymentService(db, bus, bookingCfg, &logger)

	return NewHTTPServer(cfg, bookings, availability, payments, &logger), db
}

func doRequest(t *testing.T, srv *HTTPServer, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func bookingBody(vendorID int64, startISO, endISO string) []byte {
	b, _ := json.Marshal(map[string]any{
		"vendor_id": vendorID,
		"start_iso": startISO,
		"end_iso":   endISO,
	})
	return b
}

// Far-future date keeps the window policy out of the way.
const (
	testStart = "2030-06-14T08:00:00Z"
	testEnd   = "2030-06-14T08:30:00Z"
)

func TestCreateBookingEndpoint(t *testing.T) {
	srv, db := setupServer(t, testConfig())

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd),
		map[string]string{"Idempotency-Key": "key-1", "X-Buyer-ID": "buyer-9"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Test Vendor", resp["vendor"])
	assert.Equal(t, models.StatusPending, resp["status"])

	booking, err := db.GetBooking(context.Background(), resp["booking_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "buyer-9", booking.BuyerID)
}

func TestCreateBookingEndpoint_MissingKeyNeverTouchesStorage(t *testing.T) {
	srv, db := setupServer(t, testConfig())

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, service.TagInvalidRequest, resp["error"])

	count, err := db.CountClaims(context.Background(), 1, time.Date(2030, 6, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var idemRows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM idempotency_keys`).Scan(&idemRows))
	assert.Equal(t, 0, idemRows)
}

func TestCreateBookingEndpoint_Replay(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	headers := map[string]string{"Idempotency-Key": "key-1"}

	first := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd), headers)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestCreateBookingEndpoint_Conflict(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	first := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd),
		map[string]string{"Idempotency-Key": "key-2"})
	require.Equal(t, http.StatusConflict, second.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, service.TagSlotUnavailable, resp["error"])
}

func TestGetBookingEndpoint(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	created := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, created.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
	id := resp["booking_id"].(string)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/bookings/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var booking map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	assert.Equal(t, id, booking["booking_id"])
	assert.Equal(t, models.StatusPending, booking["status"])

	notFound := doRequest(t, srv, http.MethodGet, "/api/v1/bookings/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, notFound.Code)
}

func TestVendorEndpoints(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	list := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var listResp map[string][]models.Vendor
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listResp))
	require.Len(t, listResp["vendors"], 1)

	one := doRequest(t, srv, http.MethodGet, "/api/v1/vendors/1", nil, nil)
	require.Equal(t, http.StatusOK, one.Code)

	bad := doRequest(t, srv, http.MethodGet, "/api/v1/vendors/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	missing := doRequest(t, srv, http.MethodGet, "/api/v1/vendors/42", nil, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/vendors/1/availability?date=2030-06-14", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var day models.DayAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	require.Len(t, day.Slots, 16)
	assert.Equal(t, "09:00", day.Slots[0].LocalTime)

	noDate := doRequest(t, srv, http.MethodGet, "/api/v1/vendors/1/availability", nil, nil)
	assert.Equal(t, http.StatusBadRequest, noDate.Code)

	badDate := doRequest(t, srv, http.MethodGet, "/api/v1/vendors/1/availability?date=junk", nil, nil)
	assert.Equal(t, http.StatusBadRequest, badDate.Code)
}

func TestPaymentEndpoints(t *testing.T) {
	srv, db := setupServer(t, testConfig())

	created := doRequest(t, srv, http.MethodPost, "/api/v1/bookings",
		bookingBody(1, testStart, testEnd),
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, http.StatusCreated, created.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
	bookingID := resp["booking_id"].(string)
	ref := resp["payment_reference"].(string)

	initBody, _ := json.Marshal(map[string]string{"booking_id": bookingID})
	initRec := doRequest(t, srv, http.MethodPost, "/api/v1/payments/initialize", initBody, nil)
	require.Equal(t, http.StatusOK, initRec.Code)
	var initResp map[string]any
	require.NoError(t, json.Unmarshal(initRec.Body.Bytes(), &initResp))
	assert.Equal(t, ref, initResp["reference"])
	assert.Equal(t, models.DefaultPaymentAmount, initResp["amount"])

	webhook := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":"%s"}}`, ref))
	hookRec := doRequest(t, srv, http.MethodPost, "/api/v1/payments/webhook", webhook, nil)
	require.Equal(t, http.StatusOK, hookRec.Code)

	booking, err := db.GetBooking(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, booking.Status)

	// Redelivery stays 200 and changes nothing.
	again := doRequest(t, srv, http.MethodPost, "/api/v1/payments/webhook", webhook, nil)
	assert.Equal(t, http.StatusOK, again.Code)

	unsupported := doRequest(t, srv, http.MethodPost, "/api/v1/payments/webhook",
		[]byte(`{"event":"charge.failed","data":{"reference":"x"}}`), nil)
	assert.Equal(t, http.StatusBadRequest, unsupported.Code)
	var errResp map[string]string
	require.NoError(t, json.Unmarshal(unsupported.Body.Bytes(), &errResp))
	assert.Equal(t, service.TagUnsupportedEvent, errResp["error"])
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
