// Package repository contains data access logic separated from HTTP
// handlers.  This file defines sentinel errors reused across repositories so
// higher layers can distinguish failure scenarios without string matching.
package repository

import "errors"

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when an insert or update collides with an
// existing username.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when an insert or update collides with an
// existing email.
var ErrEmailExists = errors.New("email already exists")

// ErrShopNotFound is returned when a barbershop cannot be found.
var ErrShopNotFound = errors.New("barbershop not found")

// ErrShopNameExists is returned when a barbershop name is already taken.
var ErrShopNameExists = errors.New("barbershop name already exists")

// ErrServiceNotFound is returned when a service cannot be found.
var ErrServiceNotFound = errors.New("service not found")

// ErrAppointmentNotFound is returned when an appointment cannot be found.
var ErrAppointmentNotFound = errors.New("appointment not found")
