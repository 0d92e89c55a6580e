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
	"github.com/barberbook/barbershop-api/internal/utils"
)

// UserStore is the user persistence surface the handlers depend on.  The
// MySQL repository satisfies it in production; tests substitute an
// in-memory fake.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByLogin(ctx context.Context, login string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
	DeleteMany(ctx context.Context, ids []uint64) (int64, error)
}

// UserHandler implements the user resource: registration, CRUD,
// change_password and bulk_delete.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
}

func NewUserHandler(users UserStore, bcryptCost int) *UserHandler {
	return &UserHandler{Users: users, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type createUserReq struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role" validate:"omitempty,oneof=CLIENT BARBER ADMIN"`
}

// updateUserReq uses pointers so PATCH can tell "absent" from "set empty".
type updateUserReq struct {
	Username  *string `json:"username"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role" validate:"omitempty,oneof=CLIENT BARBER ADMIN"`
	IsActive  *bool   `json:"is_active"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type bulkDeleteReq struct {
	IDs []uint64 `json:"ids"`
}

type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Create handles public registration.  The role defaults to CLIENT when
// omitted; administrative capability follows from the role alone.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleClient
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return serverError(c)
	}
	u := model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role,
		IsActive:     true,
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Users.Create(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return fieldError(c, "username", "A user with that username already exists.")
		case errors.Is(err, repository.ErrEmailExists):
			return fieldError(c, "email", "User with this email already exists.")
		}
		return serverError(c)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// List returns every user for admins.  For everyone else the listing
// narrows to the requester's own record instead of answering 403.
func (h *UserHandler) List(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if auth.CanUser(id, auth.ActionList, 0) {
		users, err := h.Users.List(ctx)
		if err != nil {
			return serverError(c)
		}
		out := make([]userResp, 0, len(users))
		for _, u := range users {
			out = append(out, toUserResp(u))
		}
		return c.JSON(http.StatusOK, out)
	}

	u, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusOK, []userResp{})
		}
		return serverError(c)
	}
	return c.JSON(http.StatusOK, []userResp{toUserResp(u)})
}

// Retrieve returns a single user.  Foreign ids answer 403 before any
// lookup, so the response never reveals whether the record exists.
func (h *UserHandler) Retrieve(c echo.Context) error {
	_, targetID, ok := h.authorize(c, auth.ActionRetrieve)
	if !ok {
		return nil
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Update serves both PUT and PATCH.  Role and active-flag changes are
// reserved for admins; password changes go through ChangePassword only.
func (h *UserHandler) Update(c echo.Context) error {
	id, targetID, ok := h.authorize(c, auth.ActionUpdate)
	if !ok {
		return nil
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	if (req.Role != nil || req.IsActive != nil) && !id.Role.IsAdmin() {
		return detail(c, http.StatusForbidden, msgForbidden)
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}

	if req.Username != nil {
		u.Username = *req.Username
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Role != nil {
		u.Role = model.Role(*req.Role)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := h.Users.Update(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return fieldError(c, "username", "A user with that username already exists.")
		case errors.Is(err, repository.ErrEmailExists):
			return fieldError(c, "email", "User with this email already exists.")
		case errors.Is(err, repository.ErrUserNotFound):
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Destroy permanently deletes a user.  There is no soft delete.
func (h *UserHandler) Destroy(c echo.Context) error {
	_, targetID, ok := h.authorize(c, auth.ActionDestroy)
	if !ok {
		return nil
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword sets a new password for the target user.  Non-admins must
// prove the current password; admins may reset without it.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, targetID, ok := h.authorize(c, auth.ActionChangePassword)
	if !ok {
		return nil
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	if auth.RequiresCurrentPassword(id) && req.OldPassword == "" {
		return fieldError(c, "old_password", "This field is required.")
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return detail(c, http.StatusNotFound, msgNotFound)
		}
		return serverError(c)
	}
	if auth.RequiresCurrentPassword(id) && !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return detail(c, http.StatusBadRequest, "Old password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return serverError(c)
	}
	if err := h.Users.UpdatePassword(ctx, targetID, hash); err != nil {
		return serverError(c)
	}
	return detail(c, http.StatusOK, "Password changed successfully")
}

// BulkDelete removes a batch of users.  Admin only.
func (h *UserHandler) BulkDelete(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	if !auth.CanUser(id, auth.ActionBulkDelete, 0) {
		return detail(c, http.StatusForbidden, msgForbidden)
	}

	var req bulkDeleteReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if len(req.IDs) == 0 {
		return detail(c, http.StatusBadRequest, "No IDs provided")
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	if _, err := h.Users.DeleteMany(ctx, req.IDs); err != nil {
		return serverError(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// authorize extracts the identity and target id and runs the guard.  The
// guard decides on ids alone, so denials leak nothing about whether the
// target exists: 403 always comes before any 404.  When authorization fails
// the response has already been written and ok is false.
func (h *UserHandler) authorize(c echo.Context, action auth.Action) (id auth.Identity, targetID uint64, ok bool) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		_ = detail(c, http.StatusUnauthorized, msgInvalidToken)
		return auth.Identity{}, 0, false
	}
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = detail(c, http.StatusNotFound, msgNotFound)
		return auth.Identity{}, 0, false
	}
	if !auth.CanUser(id, action, targetID) {
		_ = detail(c, http.StatusForbidden, msgForbidden)
		return auth.Identity{}, 0, false
	}
	return id, targetID, true
}
