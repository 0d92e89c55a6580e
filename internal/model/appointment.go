package model

import "time"

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows moving from s to
// next.  PENDING bookings are confirmed or cancelled; CONFIRMED bookings are
// completed or cancelled; COMPLETED and CANCELLED are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentPending:
		return next == AppointmentConfirmed || next == AppointmentCancelled
	case AppointmentConfirmed:
		return next == AppointmentCompleted || next == AppointmentCancelled
	}
	return false
}

// Appointment mirrors the `appointments` table.  A client books a service
// with a barber at a barbershop for a fixed time window.  The window end is
// derived from the service duration at creation time; no availability or
// overlap computation happens here.
type Appointment struct {
	ID           uint64            // appointments.id
	ClientID     uint64            // appointments.client_id
	BarberID     uint64            // appointments.barber_id
	BarbershopID uint64            // appointments.barbershop_id
	ServiceID    uint64            // appointments.service_id
	StartsAt     time.Time         // appointments.starts_at
	EndsAt       time.Time         // appointments.ends_at
	Status       AppointmentStatus // appointments.status
	Notes        string            // appointments.notes
	CreatedAt    time.Time         // appointments.created_at
	UpdatedAt    time.Time         // appointments.updated_at
}
