package auth

import "github.com/barberbook/barbershop-api/internal/model"

// Identity is the authenticated principal extracted from an access token.
type Identity struct {
	UserID uint64
	Role   model.Role
}

// Action enumerates the operations the guard can authorize on the user
// resource.
type Action int

const (
	ActionList Action = iota
	ActionCreate
	ActionRetrieve
	ActionUpdate
	ActionDestroy
	ActionBulkDelete
	ActionChangePassword
)

// CanUser decides user-resource actions: registration is public, listing and
// bulk deletion are admin-only, and record-level operations require
// ownership or the ADMIN role.  A denial is always "forbidden"; the guard
// never reveals whether the target record exists.
func CanUser(id Identity, action Action, targetID uint64) bool {
	switch action {
	case ActionCreate:
		return true
	case ActionList, ActionBulkDelete:
		return id.Role.IsAdmin()
	case ActionRetrieve, ActionUpdate, ActionDestroy, ActionChangePassword:
		return id.Role.IsAdmin() || id.UserID == targetID
	}
	return false
}

// RequiresCurrentPassword reports whether a password change must prove the
// current password.  Admins may reset any password without it.
func RequiresCurrentPassword(id Identity) bool {
	return !id.Role.IsAdmin()
}

// CanCreateBarbershop restricts shop creation to barbers and admins.
func CanCreateBarbershop(id Identity) bool {
	return id.Role == model.RoleBarber || id.Role.IsAdmin()
}

// CanManageBarbershop allows mutation of a shop (and its services) by its
// owner or an admin.
func CanManageBarbershop(id Identity, ownerID uint64) bool {
	return id.Role.IsAdmin() || id.UserID == ownerID
}

// CanViewAppointment allows the booking client, the assigned barber, the
// shop owner and admins to read an appointment.
func CanViewAppointment(id Identity, a model.Appointment, shopOwnerID uint64) bool {
	return id.Role.IsAdmin() ||
		id.UserID == a.ClientID ||
		id.UserID == a.BarberID ||
		id.UserID == shopOwnerID
}

// CanSetAppointmentStatus decides who may drive a booking to next.  Clients
// may only cancel their own bookings; confirming and completing is reserved
// for the assigned barber, the shop owner and admins.
func CanSetAppointmentStatus(id Identity, a model.Appointment, shopOwnerID uint64, next model.AppointmentStatus) bool {
	staff := id.Role.IsAdmin() || id.UserID == a.BarberID || id.UserID == shopOwnerID
	if staff {
		return true
	}
	return id.UserID == a.ClientID && next == model.AppointmentCancelled
}
