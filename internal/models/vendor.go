package models

// Vendor is a bookable seller with a fixed UTC offset. Vendors are seeded
// from config at startup and are read-only afterwards.
type Vendor struct {
	ID              int64  `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	TZOffsetMinutes int    `yaml:"tz_offset_minutes" json:"tz_offset_minutes"`
}
