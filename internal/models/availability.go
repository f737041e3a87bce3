package models

import "time"

// SlotAvailability is one candidate slot annotated with the ledger state at
// query time. A slot shown available can be claimed by someone else before
// the next request; the claim transaction resolves the race, not this view.
type SlotAvailability struct {
	LocalTime   string    `json:"local_time"`
	UTCTime     time.Time `json:"utc_time"`
	IsAvailable bool      `json:"is_available"`
}

type DayAvailability struct {
	Date     string             `json:"date"`
	VendorID int64              `json:"vendor_id"`
	Slots    []SlotAvailability `json:"slots"`
}
