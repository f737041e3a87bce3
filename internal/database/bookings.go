package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/models"
)

// CreateBookingWithClaim creates the booking and its slot claim in a single
// transaction. The UNIQUE(vendor_id, slot_start_utc) constraint decides the
// winner under concurrent attempts; on violation the whole transaction rolls
// back and ErrSlotTaken is returned, so no partial booking ever survives.
func (db *DB) CreateBookingWithClaim(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	queryBooking := `INSERT INTO bookings (
				id, vendor_id, buyer_id, start_time_utc, end_time_utc, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryBooking,
		booking.ID,
		booking.VendorID,
		booking.BuyerID,
		formatInstant(booking.StartUTC),
		formatInstant(booking.EndUTC),
		booking.Status,
		formatInstant(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	queryClaim := `INSERT INTO slot_claims (booking_id, vendor_id, slot_start_utc) VALUES (?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryClaim, booking.ID, booking.VendorID, formatInstant(booking.StartUTC))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert slot claim in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking transaction: %w", err)
	}

	booking.CreatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	var startStr, endStr, createdStr string
	query := `SELECT b.id, b.vendor_id, v.name, b.buyer_id, b.start_time_utc,
	                 b.end_time_utc, b.status, b.created_at
              FROM bookings b
              JOIN vendors v ON v.id = b.vendor_id
              WHERE b.id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID, &booking.VendorID, &booking.VendorName, &booking.BuyerID,
		&startStr, &endStr, &booking.Status, &createdStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.StartUTC, err = parseInstant(startStr); err != nil {
		return nil, err
	}
	if booking.EndUTC, err = parseInstant(endStr); err != nil {
		return nil, err
	}
	if booking.CreatedAt, err = parseInstant(createdStr); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateBookingStatus writes the status unconditionally. Safe only for
// terminal-idempotent transitions (pending -> paid); revisit before adding
// a cancellation path.
func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) error {
	query := `UPDATE bookings SET status = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetClaimedSlots returns the claimed slot instants for a vendor in
// [from, to). Fixed-width UTC storage makes the string range scan exact.
func (db *DB) GetClaimedSlots(ctx context.Context, vendorID int64, from, to time.Time) ([]time.Time, error) {
	query := `SELECT slot_start_utc FROM slot_claims
              WHERE vendor_id = ? AND slot_start_utc >= ? AND slot_start_utc < ?
              ORDER BY slot_start_utc`
	rows, err := db.QueryContext(ctx, query, vendorID, formatInstant(from), formatInstant(to))
	if err != nil {
		return nil, fmt.Errorf("failed to get claimed slots: %w", err)
	}
	defer rows.Close()

	var claimed []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan claimed slot: %w", err)
		}
		t, err := parseInstant(s)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, t)
	}
	return claimed, rows.Err()
}

// CountClaims reports how many claims exist for a (vendor, instant) pair.
// Always 0 or 1 by construction.
func (db *DB) CountClaims(ctx context.Context, vendorID int64, instant time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM slot_claims WHERE vendor_id = ? AND slot_start_utc = ?`
	var count int
	err := db.QueryRowContext(ctx, query, vendorID, formatInstant(instant)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}
