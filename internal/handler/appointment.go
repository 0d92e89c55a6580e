package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/barberbook/barbershop-api/internal/auth"
	"github.com/barberbook/barbershop-api/internal/middleware"
	"github.com/barberbook/barbershop-api/internal/model"
	"github.com/barberbook/barbershop-api/internal/queue"
	"github.com/barberbook/barbershop-api/internal/repository"
)

// ApptStore is the appointment persistence surface.
type ApptStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uint64) (model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	ListByParticipant(ctx context.Context, userID uint64) ([]model.Appointment, error)
	UpdateStatus(ctx context.Context, id uint64, status model.AppointmentStatus) error
	Delete(ctx context.Context, id uint64) error
}

// AppointmentHandler implements the appointment resource.  It stores and
// serves bookings with ownership-scoped access; no availability or overlap
// computation happens here.
type AppointmentHandler struct {
	Appts    ApptStore
	Shops    ShopStore
	Services ServiceStore
	Users    UserStore
	// Publish, when set, emits an event for every created booking.  Failures
	// are the publisher's problem; a booking never fails because the broker
	// is down.
	Publish func(ctx context.Context, ev queue.AppointmentBookedEvent) error
}

func NewAppointmentHandler(appts ApptStore, shops ShopStore, services ServiceStore, users UserStore,
	publish func(ctx context.Context, ev queue.AppointmentBookedEvent) error) *AppointmentHandler {
	return &AppointmentHandler{Appts: appts, Shops: shops, Services: services, Users: users, Publish: publish}
}

// ----- DTOs -----

type createApptReq struct {
	BarbershopID uint64    `json:"barbershop_id" validate:"required"`
	BarberID     uint64    `json:"barber_id" validate:"required"`
	ServiceID    uint64    `json:"service_id" validate:"required"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	Notes        string    `json:"notes"`
}

type apptStatusReq struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED COMPLETED CANCELLED"`
}

type apptResp struct {
	ID           uint64    `json:"id"`
	ClientID     uint64    `json:"client_id"`
	BarberID     uint64    `json:"barber_id"`
	BarbershopID uint64    `json:"barbershop_id"`
	ServiceID    uint64    `json:"service_id"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toApptResp(a model.Appointment) apptResp {
	return apptResp{
		ID:           a.ID,
		ClientID:     a.ClientID,
		BarberID:     a.BarberID,
		BarbershopID: a.BarbershopID,
		ServiceID:    a.ServiceID,
		StartsAt:     a.StartsAt,
		EndsAt:       a.EndsAt,
		Status:       string(a.Status),
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// Create books a service at a shop.  The booking window is derived from the
// service duration; the appointment starts out PENDING.
func (h *AppointmentHandler) Create(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}

	var req createApptReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	if !req.StartsAt.After(time.Now()) {
		return fieldError(c, "starts_at", "Must be in the future.")
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := h.Shops.GetByID(ctx, req.BarbershopID); err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return fieldError(c, "barbershop_id", "Unknown barbershop.")
		}
		return serverError(c)
	}
	svc, err := h.Services.GetByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return fieldError(c, "service_id", "Unknown service.")
		}
		return serverError(c)
	}
	if svc.BarbershopID != req.BarbershopID {
		return fieldError(c, "service_id", "Service does not belong to this barbershop.")
	}
	if !svc.Available {
		return fieldError(c, "service_id", "Service is not available.")
	}
	barber, err := h.Users.GetByID(ctx, req.BarberID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fieldError(c, "barber_id", "Unknown barber.")
		}
		return serverError(c)
	}
	if barber.Role != model.RoleBarber {
		return fieldError(c, "barber_id", "User is not a barber.")
	}

	a := model.Appointment{
		ClientID:     id.UserID,
		BarberID:     req.BarberID,
		BarbershopID: req.BarbershopID,
		ServiceID:    req.ServiceID,
		StartsAt:     req.StartsAt.UTC(),
		EndsAt:       req.StartsAt.UTC().Add(time.Duration(svc.DurationMin) * time.Minute),
		Status:       model.AppointmentPending,
		Notes:        req.Notes,
	}
	if err := h.Appts.Create(ctx, &a); err != nil {
		return serverError(c)
	}

	if h.Publish != nil {
		ev := queue.AppointmentBookedEvent{
			AppointmentID: a.ID,
			ClientID:      a.ClientID,
			BarberID:      a.BarberID,
			BarbershopID:  a.BarbershopID,
			ServiceID:     a.ServiceID,
			StartsAt:      a.StartsAt.Format(time.RFC3339),
			EndsAt:        a.EndsAt.Format(time.RFC3339),
			PriceCents:    svc.PriceCents,
			BookedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pcancel()
			_ = h.Publish(pctx, ev)
		}()
	}
	return c.JSON(http.StatusCreated, toApptResp(a))
}

// List returns the requester's appointments: all of them for admins, and
// for everyone else the ones they take part in as client, barber or shop
// owner.  The listing narrows instead of answering 403.
func (h *AppointmentHandler) List(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	var (
		appts []model.Appointment
		err   error
	)
	if id.Role.IsAdmin() {
		appts, err = h.Appts.ListAll(ctx)
	} else {
		appts, err = h.Appts.ListByParticipant(ctx, id.UserID)
	}
	if err != nil {
		return serverError(c)
	}
	out := make([]apptResp, 0, len(appts))
	for _, a := range appts {
		out = append(out, toApptResp(a))
	}
	return c.JSON(http.StatusOK, out)
}

// Retrieve returns one appointment to its participants.
func (h *AppointmentHandler) Retrieve(c echo.Context) error {
	id, a, ownerID, ok := h.load(c)
	if !ok {
		return nil
	}
	if !auth.CanViewAppointment(id, a, ownerID) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}
	return c.JSON(http.StatusOK, toApptResp(a))
}

// UpdateStatus drives the booking lifecycle.  Clients may only cancel;
// confirming and completing is for the barber, the shop owner and admins.
func (h *AppointmentHandler) UpdateStatus(c echo.Context) error {
	id, a, ownerID, ok := h.load(c)
	if !ok {
		return nil
	}

	var req apptStatusReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	next := model.AppointmentStatus(req.Status)

	if !auth.CanViewAppointment(id, a, ownerID) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}
	if !auth.CanSetAppointmentStatus(id, a, ownerID, next) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}
	if !a.Status.CanTransitionTo(next) {
		return detail(c, http.StatusBadRequest, "Invalid status transition.")
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Appts.UpdateStatus(ctx, a.ID, next); err != nil {
		return serverError(c)
	}
	a.Status = next
	return c.JSON(http.StatusOK, toApptResp(a))
}

// Delete removes a booking.  Allowed to the booking client and admins.
func (h *AppointmentHandler) Delete(c echo.Context) error {
	id, a, _, ok := h.load(c)
	if !ok {
		return nil
	}
	if !id.Role.IsAdmin() && id.UserID != a.ClientID {
		return detail(c, http.StatusForbidden, msgForbidden)
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Appts.Delete(ctx, a.ID); err != nil {
		return serverError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// load resolves the appointment from the :id param together with the shop
// owner needed for authorization decisions.
func (h *AppointmentHandler) load(c echo.Context) (id auth.Identity, a model.Appointment, shopOwnerID uint64, ok bool) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		_ = detail(c, http.StatusUnauthorized, msgInvalidToken)
		return auth.Identity{}, model.Appointment{}, 0, false
	}
	apptID, perr := pathID(c)
	if perr != nil {
		_ = detail(c, http.StatusNotFound, msgNotFound)
		return auth.Identity{}, model.Appointment{}, 0, false
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	a, err := h.Appts.GetByID(ctx, apptID)
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			_ = detail(c, http.StatusNotFound, msgNotFound)
		} else {
			_ = serverError(c)
		}
		return auth.Identity{}, model.Appointment{}, 0, false
	}
	b, err := h.Shops.GetByID(ctx, a.BarbershopID)
	if err != nil {
		_ = serverError(c)
		return auth.Identity{}, model.Appointment{}, 0, false
	}
	return id, a, b.OwnerID, true
}
