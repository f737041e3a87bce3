package service

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Machine-readable error tags carried in every error response body.
const (
	TagInvalidRequest   = "invalid_request"
	TagNotFound         = "not_found"
	TagSlotUnavailable  = "slot_unavailable"
	TagBookingWindow    = "booking_window"
	TagUnsupportedEvent = "unsupported_event"
	TagInternal         = "internal"
)

// Error is a client-facing failure with an HTTP status and a stable tag.
type Error struct {
	Status  int
	Tag     string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(status int, tag, message string) *Error {
	return &Error{Status: status, Tag: tag, Message: message}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Outcome is a fully rendered response. Booking creation stores and replays
// outcomes byte for byte, so the body is frozen here rather than re-rendered
// by the transport layer.
type Outcome struct {
	Status int
	Body   json.RawMessage
}

func errorOutcome(status int, tag, message string) Outcome {
	body, err := json.Marshal(errorBody{Error: tag, Message: message})
	if err != nil {
		// Marshalling a two-string struct cannot fail in practice.
		body = []byte(fmt.Sprintf(`{"error":"%s"}`, TagInternal))
	}
	return Outcome{Status: status, Body: body}
}

func internalOutcome() Outcome {
	return errorOutcome(http.StatusInternalServerError, TagInternal, "internal error")
}

func jsonOutcome(status int, payload interface{}) (Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: status, Body: body}, nil
}
