package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/barberbook/barbershop-api/internal/auth"
	"github.com/barberbook/barbershop-api/internal/middleware"
	"github.com/barberbook/barbershop-api/internal/model"
	"github.com/barberbook/barbershop-api/internal/repository"
)

// ShopStore is the barbershop persistence surface.
type ShopStore interface {
	Create(ctx context.Context, b *model.Barbershop) error
	GetByID(ctx context.Context, id uint64) (model.Barbershop, error)
	List(ctx context.Context) ([]model.Barbershop, error)
	Update(ctx context.Context, b *model.Barbershop) error
	Delete(ctx context.Context, id uint64) error
}

// ServiceStore is the service catalogue persistence surface.
type ServiceStore interface {
	Create(ctx context.Context, s *model.Service) error
	GetByID(ctx context.Context, id uint64) (model.Service, error)
	ListByShop(ctx context.Context, shopID uint64) ([]model.Service, error)
	Update(ctx context.Context, s *model.Service) error
	Delete(ctx context.Context, id uint64) error
}

// BarbershopHandler implements the barbershop and service resources.
// Browsing is public; mutation is owner-or-admin.
type BarbershopHandler struct {
	Shops    ShopStore
	Services ServiceStore
}

func NewBarbershopHandler(shops ShopStore, services ServiceStore) *BarbershopHandler {
	return &BarbershopHandler{Shops: shops, Services: services}
}

// ----- DTOs -----

type shopReq struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Address     string `json:"address" validate:"required"`
	Phone       string `json:"phone"`
}

type serviceReq struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	PriceCents  uint32 `json:"price_cents" validate:"required"`
	DurationMin uint32 `json:"duration_min" validate:"required"`
	Available   *bool  `json:"available"`
}

type shopResp struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type serviceResp struct {
	ID           uint64    `json:"id"`
	BarbershopID uint64    `json:"barbershop_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PriceCents   uint32    `json:"price_cents"`
	DurationMin  uint32    `json:"duration_min"`
	Available    bool      `json:"available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toShopResp(b model.Barbershop) shopResp {
	return shopResp{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Name:        b.Name,
		Description: b.Description,
		Address:     b.Address,
		Phone:       b.Phone,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toServiceResp(s model.Service) serviceResp {
	return serviceResp{
		ID:           s.ID,
		BarbershopID: s.BarbershopID,
		Name:         s.Name,
		Description:  s.Description,
		PriceCents:   s.PriceCents,
		DurationMin:  s.DurationMin,
		Available:    s.Available,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// List returns every barbershop.  Public.
func (h *BarbershopHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	shops, err := h.Shops.List(ctx)
	if err != nil {
		return serverError(c)
	}
	out := make([]shopResp, 0, len(shops))
	for _, b := range shops {
		out = append(out, toShopResp(b))
	}
	return c.JSON(http.StatusOK, out)
}

// Retrieve returns a single barbershop.  Public.
func (h *BarbershopHandler) Retrieve(c echo.Context) error {
	shopID, perr := pathID(c)
	if perr != nil {
		return detail(c, http.StatusNotFound, msgNotFound)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	b, err := h.Shops.GetByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}
	return c.JSON(http.StatusOK, toShopResp(b))
}

// ListServices returns the service catalogue of a shop.  Public.
func (h *BarbershopHandler) ListServices(c echo.Context) error {
	shopID, perr := pathID(c)
	if perr != nil {
		return detail(c, http.StatusNotFound, msgNotFound)
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if _, err := h.Shops.GetByID(ctx, shopID); err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}
	services, err := h.Services.ListByShop(ctx, shopID)
	if err != nil {
		return serverError(c)
	}
	out := make([]serviceResp, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Create opens a new barbershop owned by the requester.  Barbers and admins
// only.
func (h *BarbershopHandler) Create(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	if !auth.CanCreateBarbershop(id) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}

	var req shopReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	b := model.Barbershop{
		OwnerID:     id.UserID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Shops.Create(ctx, &b); err != nil {
		if errors.Is(err, repository.ErrShopNameExists) {
			return fieldError(c, "name", "A barbershop with that name already exists.")
		}
		return serverError(c)
	}
	return c.JSON(http.StatusCreated, toShopResp(b))
}

// Update edits a shop.  Owner or admin.
func (h *BarbershopHandler) Update(c echo.Context) error {
	_, b, ok := h.authorizeShop(c)
	if !ok {
		return nil
	}

	var req shopReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	b.Name = req.Name
	b.Description = req.Description
	b.Address = req.Address
	b.Phone = req.Phone

	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Shops.Update(ctx, &b); err != nil {
		if errors.Is(err, repository.ErrShopNameExists) {
			return fieldError(c, "name", "A barbershop with that name already exists.")
		}
		return serverError(c)
	}
	return c.JSON(http.StatusOK, toShopResp(b))
}

// Delete removes a shop with its services and appointments.  Owner or
// admin.
func (h *BarbershopHandler) Delete(c echo.Context) error {
	_, b, ok := h.authorizeShop(c)
	if !ok {
		return nil
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Shops.Delete(ctx, b.ID); err != nil {
		return serverError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateService adds a service to a shop.  Owner or admin.
func (h *BarbershopHandler) CreateService(c echo.Context) error {
	_, b, ok := h.authorizeShop(c)
	if !ok {
		return nil
	}

	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	s := model.Service{
		BarbershopID: b.ID,
		Name:         req.Name,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		DurationMin:  req.DurationMin,
		Available:    available,
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Services.Create(ctx, &s); err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusCreated, toServiceResp(s))
}

// UpdateService edits a service.  The owning shop decides authorization.
func (h *BarbershopHandler) UpdateService(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	serviceID, perr := pathID(c)
	if perr != nil {
		return detail(c, http.StatusNotFound, msgNotFound)
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	s, b, ok := h.loadServiceShop(c, ctx, serviceID)
	if !ok {
		return nil
	}
	if !auth.CanManageBarbershop(id, b.OwnerID) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}

	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	s.Name = req.Name
	s.Description = req.Description
	s.PriceCents = req.PriceCents
	s.DurationMin = req.DurationMin
	if req.Available != nil {
		s.Available = *req.Available
	}
	if err := h.Services.Update(ctx, &s); err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, toServiceResp(s))
}

// DeleteService removes a service from the catalogue.
func (h *BarbershopHandler) DeleteService(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	serviceID, perr := pathID(c)
	if perr != nil {
		return detail(c, http.StatusNotFound, msgNotFound)
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	s, b, ok := h.loadServiceShop(c, ctx, serviceID)
	if !ok {
		return nil
	}
	if !auth.CanManageBarbershop(id, b.OwnerID) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}
	if err := h.Services.Delete(ctx, s.ID); err != nil {
		return serverError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// authorizeShop loads the shop from the :id param and checks the requester
// may manage it.  On failure the response has been written and ok is false.
func (h *BarbershopHandler) authorizeShop(c echo.Context) (id auth.Identity, b model.Barbershop, ok bool) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		_ = detail(c, http.StatusUnauthorized, msgInvalidToken)
		return auth.Identity{}, model.Barbershop{}, false
	}
	shopID, perr := pathID(c)
	if perr != nil {
		_ = detail(c, http.StatusNotFound, msgNotFound)
		return auth.Identity{}, model.Barbershop{}, false
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	b, err := h.Shops.GetByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			_ = detail(c, http.StatusNotFound, msgNotFound)
		} else {
			_ = serverError(c)
		}
		return auth.Identity{}, model.Barbershop{}, false
	}
	if !auth.CanManageBarbershop(id, b.OwnerID) {
		_ = detail(c, http.StatusForbidden, msgForbidden)
		return auth.Identity{}, model.Barbershop{}, false
	}
	return id, b, true
}

func (h *BarbershopHandler) loadServiceShop(c echo.Context, ctx context.Context, serviceID uint64) (model.Service, model.Barbershop, bool) {
	s, err := h.Services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			_ = detail(c, http.StatusNotFound, msgNotFound)
		} else {
			_ = serverError(c)
		}
		return model.Service{}, model.Barbershop{}, false
	}
	b, err := h.Shops.GetByID(ctx, s.BarbershopID)
	if err != nil {
		_ = serverError(c)
		return model.Service{}, model.Barbershop{}, false
	}
	return s, b, true
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
