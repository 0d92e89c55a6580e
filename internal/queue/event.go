// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// APIUsageEvent is emitted by the usage tracking middleware for every
// tracked request.  It carries enough to log, aggregate and spot abuse
// downstream without querying the primary database.
type APIUsageEvent struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Route      string `json:"route"` // registered route pattern, e.g. /api/v1/users/:id
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	UserID     uint64 `json:"user_id"` // 0 for anonymous requests
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent"`
	OccurredAt string `json:"occurred_at"`
}

// AppointmentBookedEvent is published when a client creates a booking.
type AppointmentBookedEvent struct {
	AppointmentID uint64 `json:"appointment_id"`
	ClientID      uint64 `json:"client_id"`
	BarberID      uint64 `json:"barber_id"`
	BarbershopID  uint64 `json:"barbershop_id"`
	ServiceID     uint64 `json:"service_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	PriceCents    uint32 `json:"price_cents"`
	BookedAt      string `json:"booked_at"`
}
