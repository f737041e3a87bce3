package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentClaims hammers one slot from many goroutines against a real
// file database. Exactly one booking may win; every loser must see
// ErrSlotTaken and leave no row behind.
func TestConcurrentClaims(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dbPath := filepath.Join(t.TempDir(), "concurrent.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SyncVendors(ctx, testVendors()))

	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.CreateBookingWithClaim(ctx, newTestBooking(1, start))
		}()
	}

	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)

	count, err := db.CountClaims(ctx, 1, start)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var bookings int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&bookings)
	require.NoError(t, err)
	assert.Equal(t, 1, bookings)
}

// TestConcurrentIdempotencyWrites races first writes under one key; the
// primary key must elect exactly one winner.
func TestConcurrentIdempotencyWrites(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.PutIdempotencyRecord(ctx, testIdempotencyRecord("shared-key"))
		}()
	}

	wg.Wait()
	close(results)

	var wins, duplicates int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrDuplicateKey):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, duplicates)
}
