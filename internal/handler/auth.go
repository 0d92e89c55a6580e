package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/barberbook/barbershop-api/internal/auth"
	"github.com/barberbook/barbershop-api/internal/repository"
)

// AuthHandler bundles the token lifecycle endpoints: obtain, refresh,
// verify and blacklist/logout.
type AuthHandler struct {
	Verifier  *auth.CredentialVerifier
	Issuer    *auth.Issuer
	Validator *auth.Validator
	Blacklist auth.Blacklist
	Users     UserStore
}

func NewAuthHandler(verifier *auth.CredentialVerifier, issuer *auth.Issuer, validator *auth.Validator, bl auth.Blacklist, users UserStore) *AuthHandler {
	return &AuthHandler{Verifier: verifier, Issuer: issuer, Validator: validator, Blacklist: bl, Users: users}
}

// ----- DTOs -----

type obtainReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyReq struct {
	Token string `json:"token" validate:"required"`
}

type tokenUserPart struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type obtainResp struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	User    tokenUserPart `json:"user"`
}

// Obtain verifies a username/password pair and returns a fresh token pair.
// Unknown users, wrong passwords and disabled accounts all answer 401 with
// the same body; only the log can tell them apart.
func (h *AuthHandler) Obtain(c echo.Context) error {
	var req obtainReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, failure, err := h.Verifier.Verify(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return serverError(c)
	}
	if failure != auth.CredentialOK {
		return detail(c, http.StatusUnauthorized, msgBadCredentials)
	}

	pair, err := h.Issuer.Issue(u)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, obtainResp{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User: tokenUserPart{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      string(u.Role),
			FirstName: u.FirstName,
			LastName:  u.LastName,
		},
	})
}

// Refresh exchanges a valid refresh token for a new access token.  The
// refresh token is not rotated: it stays usable until logout or expiry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	claims, reason, err := h.Validator.Validate(ctx, req.Refresh, auth.TypeRefresh)
	if err != nil {
		return serverError(c)
	}
	if reason != auth.ReasonNone {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}

	uid, err := claims.UserID()
	if err != nil {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	// The role is re-read from the user record so a role change takes effect
	// on the next refresh, and deleted or disabled accounts stop refreshing.
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return detail(c, http.StatusUnauthorized, msgInvalidToken)
		}
		return serverError(c)
	}
	if !u.IsActive {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}

	access, _, err := h.Issuer.IssueAccess(u)
	if err != nil {
		return serverError(c)
	}
	return c.JSON(http.StatusOK, echo.Map{"access": access})
}

// Verify answers 200 with an empty body for any currently valid token of
// either kind, matching the semantics of the token pair issuer.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if _, reason, err := h.Validator.ValidateAny(ctx, req.Token); err != nil {
		return serverError(c)
	} else if reason != auth.ReasonNone {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// Logout blacklists the presented refresh token.  Access tokens are
// rejected as wrong type: they are never individually revocable and must
// not slip through as "not revoked".  Revoking is idempotent, but a token
// that is already blacklisted no longer validates, so a second logout with
// the same token answers 401.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	claims, reason, err := h.Validator.Validate(ctx, req.Refresh, auth.TypeRefresh)
	if err != nil {
		return serverError(c)
	}
	if reason != auth.ReasonNone {
		return detail(c, http.StatusUnauthorized, msgInvalidToken)
	}
	if err := h.Blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return serverError(c)
	}
	return detail(c, http.StatusOK, "Successfully logged out.")
}

// reqContext bounds every store call to the request with a hard timeout.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
