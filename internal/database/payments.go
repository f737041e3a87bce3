package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/models"
)

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `INSERT INTO payments (booking_id, ref, status, raw_event_json) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		payment.BookingID, payment.Ref, payment.Status, payment.RawEventJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	payment.ID = id
	return nil
}

func (db *DB) GetPaymentByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	query := `SELECT id, booking_id, ref, status, COALESCE(raw_event_json, '')
              FROM payments WHERE booking_id = ?`
	return db.scanPayment(db.QueryRowContext(ctx, query, bookingID))
}

func (db *DB) GetPaymentByRef(ctx context.Context, ref string) (*models.Payment, error) {
	query := `SELECT id, booking_id, ref, status, COALESCE(raw_event_json, '')
              FROM payments WHERE ref = ?`
	return db.scanPayment(db.QueryRowContext(ctx, query, ref))
}

func (db *DB) scanPayment(row *sql.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.Ref, &p.Status, &p.RawEventJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

// MarkPaymentSuccess stores the raw gateway payload for audit alongside the
// terminal status.
func (db *DB) MarkPaymentSuccess(ctx context.Context, ref string, rawEvent []byte) error {
	query := `UPDATE payments SET status = ?, raw_event_json = ? WHERE ref = ?`
	result, err := db.ExecContext(ctx, query, models.PaymentSuccess, string(rawEvent), ref)
	if err != nil {
		return fmt.Errorf("failed to mark payment success: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// IsEventProcessed reports whether this gateway reference was already
// consumed. The durable marker survives restarts, unlike the in-memory set
// it replaces.
func (db *DB) IsEventProcessed(ctx context.Context, reference string) (bool, error) {
	query := `SELECT COUNT(*) FROM processed_events WHERE reference = ?`
	var count int
	if err := db.QueryRowContext(ctx, query, reference).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return count > 0, nil
}

func (db *DB) MarkEventProcessed(ctx context.Context, reference string) error {
	query := `INSERT INTO processed_events (reference, processed_at) VALUES (?, ?)`
	_, err := db.ExecContext(ctx, query, reference, formatInstant(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
