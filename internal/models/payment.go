package models

type Payment struct {
	ID           int64  `json:"id"`
	BookingID    string `json:"booking_id"`
	Ref          string `json:"ref"`
	Status       string `json:"status"` // pending, success, failed
	RawEventJSON string `json:"raw_event_json,omitempty"`
}
