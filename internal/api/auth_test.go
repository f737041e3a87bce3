package api

import (
	"net/http"
	"testing"

	"slotbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedConfig() config.APIConfig {
	cfg := testConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "secret-key", Name: "test-client"},
		},
	}
	return cfg
}

func TestAuth(t *testing.T) {
	srv, _ := setupServer(t, authedConfig())

	t.Run("missing key rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil,
			map[string]string{"x-api-key": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid key accepted", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil,
			map[string]string{"x-api-key": "secret-key"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 2}
	srv, _ := setupServer(t, cfg)

	var lastCode int
	for i := 0; i < 5; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil, nil)
		lastCode = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimit_PerKey(t *testing.T) {
	cfg := authedConfig()
	cfg.Auth.APIKeys = append(cfg.Auth.APIKeys, config.APIClientKey{Key: "other-key", Name: "other"})
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	srv, _ := setupServer(t, cfg)

	first := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil,
		map[string]string{"x-api-key": "secret-key"})
	require.Equal(t, http.StatusOK, first.Code)

	limited := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil,
		map[string]string{"x-api-key": "secret-key"})
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)

	// A different key has its own bucket.
	other := doRequest(t, srv, http.MethodGet, "/api/v1/vendors", nil,
		map[string]string{"x-api-key": "other-key"})
	assert.Equal(t, http.StatusOK, other.Code)
}
