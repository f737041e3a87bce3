package models

import "time"

type Booking struct {
	ID         string    `json:"id"`
	VendorID   int64     `json:"vendor_id"`
	VendorName string    `json:"vendor_name,omitempty"`
	BuyerID    string    `json:"buyer_id"`
	StartUTC   time.Time `json:"start_time_utc"`
	EndUTC     time.Time `json:"end_time_utc"`
	Status     string    `json:"status"` // pending, paid, cancelled
	CreatedAt  time.Time `json:"created_at"`
}

// SlotClaim marks a (vendor, slot start) pair as taken by a booking.
// At most one claim per pair can ever exist.
type SlotClaim struct {
	ID           int64     `json:"id"`
	BookingID    string    `json:"booking_id"`
	VendorID     int64     `json:"vendor_id"`
	SlotStartUTC time.Time `json:"slot_start_utc"`
}
