package model

import "time"

// Barbershop represents a shop owned by a single user (a barber or an
// admin).  A shop offers a catalogue of services that clients can book.
type Barbershop struct {
	ID          uint64    // barbershops.id
	OwnerID     uint64    // barbershops.owner_id (references users.id)
	Name        string    // barbershops.name (unique)
	Description string    // barbershops.description
	Address     string    // barbershops.address
	Phone       string    // barbershops.phone
	CreatedAt   time.Time // barbershops.created_at
	UpdatedAt   time.Time // barbershops.updated_at
}

// Service is a bookable offering of a barbershop, priced in cents to avoid
// floating point money.
type Service struct {
	ID           uint64    // services.id
	BarbershopID uint64    // services.barbershop_id
	Name         string    // services.name
	Description  string    // services.description
	PriceCents   uint32    // services.price_cents
	DurationMin  uint32    // services.duration_min
	Available    bool      // services.available
	CreatedAt    time.Time // services.created_at
	UpdatedAt    time.Time // services.updated_at
}
