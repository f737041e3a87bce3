// Package timeslot generates the canonical bookable slots for a calendar
// date in a vendor's fixed-offset local zone. Generation is pure and
// deterministic; nothing here touches storage.
package timeslot

import (
	"fmt"
	"time"
)

// Slot pairs a vendor-local wall-clock label with its absolute UTC instant.
type Slot struct {
	Label    string
	StartUTC time.Time
}

// Generator produces half-hour slots inside a fixed daily window.
// Offsets are fixed per vendor, so no DST handling is needed.
type Generator struct {
	StartHour int
	EndHour   int
	Step      time.Duration
}

// Default matches the reference window: 09:00-17:00 local, 30-minute slots.
var Default = Generator{StartHour: 9, EndHour: 17, Step: 30 * time.Minute}

// Generate returns the ordered candidate slots for date in a zone at the
// given fixed offset from UTC. date carries only year/month/day.
func (g Generator) Generate(date time.Time, offset time.Duration) []Slot {
	start, end := g.Window(date, offset)

	var slots []Slot
	loc := fixedZone(offset)
	for t := start; t.Before(end); t = t.Add(g.Step) {
		local := t.In(loc)
		slots = append(slots, Slot{
			Label:    fmt.Sprintf("%02d:%02d", local.Hour(), local.Minute()),
			StartUTC: t,
		})
	}
	return slots
}

// Window returns the [start, end) UTC bounds of the bookable day, for use in
// ledger range queries.
func (g Generator) Window(date time.Time, offset time.Duration) (time.Time, time.Time) {
	loc := fixedZone(offset)
	y, m, d := date.Date()
	start := time.Date(y, m, d, g.StartHour, 0, 0, 0, loc).UTC()
	end := time.Date(y, m, d, g.EndHour, 0, 0, 0, loc).UTC()
	return start, end
}

// LocalDate formats the instant as a calendar date in the vendor's zone.
func LocalDate(t time.Time, offset time.Duration) string {
	return t.In(fixedZone(offset)).Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func fixedZone(offset time.Duration) *time.Location {
	return time.FixedZone("vendor", int(offset/time.Second))
}
