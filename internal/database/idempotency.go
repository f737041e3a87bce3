package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/models"
)

// GetIdempotencyRecord returns the recorded outcome for a key, or
// ErrNotFound for a never-seen key.
func (db *DB) GetIdempotencyRecord(ctx context.Context, scope, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	var createdStr string
	query := `SELECT key, scope, status_code, response_body, created_at
              FROM idempotency_keys WHERE key = ? AND scope = ?`
	err := db.QueryRowContext(ctx, query, key, scope).Scan(
		&rec.Key, &rec.Scope, &rec.StatusCode, &rec.ResponseBody, &createdStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	if rec.CreatedAt, err = parseInstant(createdStr); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutIdempotencyRecord records an outcome under a key, write-once. The
// primary key makes concurrent first writes race safely: the loser gets
// ErrDuplicateKey and must re-read the winner's record.
func (db *DB) PutIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	now := time.Now().UTC()
	query := `INSERT INTO idempotency_keys (key, scope, status_code, response_body, created_at)
              VALUES (?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		rec.Key, rec.Scope, rec.StatusCode, rec.ResponseBody, formatInstant(now))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to put idempotency record: %w", err)
	}
	rec.CreatedAt = now
	return nil
}
