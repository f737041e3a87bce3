package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventBookingCreated, func(e *Event) error {
		received = append(received, e)
		return nil
	})

	payload := BookingEventPayload{
		BookingID: "b-1",
		VendorID:  1,
		StartUTC:  time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
		Status:    "pending",
	}
	err := bus.PublishJSON(EventBookingCreated, payload)
	require.NoError(t, err)

	require.Len(t, received, 1)
	var got BookingEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &got))
	assert.Equal(t, payload.BookingID, got.BookingID)
	assert.Equal(t, payload.VendorID, got.VendorID)
	assert.False(t, received[0].CreatedAt.IsZero())
}

func TestEventBusIgnoresUnrelatedTypes(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(EventBookingPaid, func(e *Event) error {
		calls++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: "b-1"}))
	assert.Equal(t, 0, calls)

	require.NoError(t, bus.PublishJSON(EventBookingPaid, BookingEventPayload{BookingID: "b-1"}))
	assert.Equal(t, 1, calls)
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, struct{}{}))
}
