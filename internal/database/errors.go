package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrSlotTaken surfaces the slot_claims uniqueness violation: the slot
	// was committed to another booking.
	ErrSlotTaken = errors.New("slot already claimed")

	// ErrDuplicateKey means another writer inserted this unique value
	// first. For idempotency keys the caller re-reads the stored outcome.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrAlreadyProcessed = errors.New("event already processed")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
