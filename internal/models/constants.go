package models

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// EventChargeSuccess is the only payment gateway event type that drives a
// booking to paid. Everything else is rejected without side effects.
const EventChargeSuccess = "charge.success"

// ScopeCreateBooking namespaces idempotency keys per mutating operation so a
// key cannot be replayed across different logical operations.
const ScopeCreateBooking = "create_booking"

const (
	// DefaultWindowStartHour and DefaultWindowEndHour bound the vendor-local
	// booking day: 09:00-17:00 at 30-minute granularity, 16 slots.
	DefaultWindowStartHour = 9
	DefaultWindowEndHour   = 17
	DefaultSlotMinutes     = 30

	// DefaultSameDayLeadMinutes is the minimum advance for same-day bookings.
	DefaultSameDayLeadMinutes = 120

	// DefaultPaymentAmount is the stub charge amount until a real gateway
	// integration replaces the payment leg.
	DefaultPaymentAmount = 45.00

	// DefaultCacheTTLSeconds bounds availability staleness when the redis
	// cache is enabled.
	DefaultCacheTTLSeconds = 30
)
