package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"slotbook/internal/models"
)

// SyncVendors upserts the config-seeded vendor list. Vendors are read-only
// at runtime; this runs once at startup.
func (db *DB) SyncVendors(ctx context.Context, vendors []models.Vendor) error {
	query := `INSERT INTO vendors (id, name, tz_offset_minutes) VALUES (?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  tz_offset_minutes = excluded.tz_offset_minutes`

	for _, v := range vendors {
		if _, err := db.ExecContext(ctx, query, v.ID, v.Name, v.TZOffsetMinutes); err != nil {
			return fmt.Errorf("failed to sync vendor %d: %w", v.ID, err)
		}
	}
	return nil
}

func (db *DB) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	var vendor models.Vendor
	query := `SELECT id, name, tz_offset_minutes FROM vendors WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(&vendor.ID, &vendor.Name, &vendor.TZOffsetMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &vendor, nil
}

func (db *DB) GetVendors(ctx context.Context) ([]*models.Vendor, error) {
	query := `SELECT id, name, tz_offset_minutes FROM vendors ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		v := &models.Vendor{}
		if err := rows.Scan(&v.ID, &v.Name, &v.TZOffsetMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}
