package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barberbook/barbershop-api/internal/model"
)

func TestObtainReturnsPairAndUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/", "", map[string]string{
		"username": "dana", "password": "pass12345",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["access"])
	assert.NotEmpty(t, body["refresh"])
	assert.NotEqual(t, body["access"], body["refresh"])

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(u.ID), user["id"])
	assert.Equal(t, "dana", user["username"])
	assert.Equal(t, "CLIENT", user["role"])
}

func TestObtainAcceptsEmailAsLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/", "", map[string]string{
		"username": "dana@example.com", "password": "pass12345",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestObtainRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	for _, creds := range []map[string]string{
		{"username": "dana", "password": "wrongpass"},
		{"username": "ghost", "password": "pass12345"},
	} {
		rec := env.do(http.MethodPost, "/api/v1/auth/token/", "", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "No active account found with the given credentials", decodeBody(t, rec)["detail"])
	}
}

// Disabled accounts answer exactly like bad credentials.
func TestObtainRejectsDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "dana", "pass12345", model.RoleClient, false)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/", "", map[string]string{
		"username": "dana", "password": "pass12345",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No active account found with the given credentials", decodeBody(t, rec)["detail"])
}

func TestObtainReportsMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/", "", map[string]string{"username": "dana"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	msgs, ok := body["password"].([]interface{})
	require.True(t, ok, "error must be keyed by the missing field")
	assert.Contains(t, msgs, "This field is required.")
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	login := decodeBody(t, env.do(http.MethodPost, "/api/v1/auth/token/", "", map[string]string{
		"username": "dana", "password": "pass12345",
	}))

	rec := env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{
		"refresh": login["refresh"].(string),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	access, ok := body["access"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, access)
	assert.NotEqual(t, login["access"], access, "refresh must mint a fresh access token")
	assert.Nil(t, body["refresh"], "the refresh token is not rotated")

	// The new access token works against the protected surface.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/users", access, nil).Code)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{
		"refresh": env.token(t, u),
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, rec)["detail"])
}

// A role change takes effect on the next refresh because the role is
// re-read from the user record, never from the refresh token.
func TestRefreshPicksUpRoleChange(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	pair, err := env.issuer.Issue(u)
	require.NoError(t, err)

	u.Role = model.RoleAdmin
	require.NoError(t, env.users.Update(context.Background(), &u))

	rec := env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	access := decodeBody(t, rec)["access"].(string)

	// Admin-only listing now succeeds with the refreshed token.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/users", access, nil).Code)
	list := decodeList(t, env.do(http.MethodGet, "/api/v1/users", access, nil))
	assert.Len(t, list, 1)
}

func TestRefreshRejectsDeletedOrDisabledUser(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)
	pair, err := env.issuer.Issue(u)
	require.NoError(t, err)

	u.IsActive = false
	require.NoError(t, env.users.Update(context.Background(), &u))
	rec := env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, env.users.Delete(context.Background(), u.ID))
	rec = env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyAcceptsBothTokenKinds(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)
	pair, err := env.issuer.Issue(u)
	require.NoError(t, err)

	for _, tok := range []string{pair.Access, pair.Refresh} {
		rec := env.do(http.MethodPost, "/api/v1/auth/token/verify/", "", map[string]string{"token": tok})
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(http.MethodPost, "/api/v1/auth/token/verify/", "", map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, rec)["detail"])
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)
	pair, err := env.issuer.Issue(u)
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/blacklist/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out.", decodeBody(t, rec)["detail"])

	// The revoked token no longer refreshes or verifies.
	rec = env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodPost, "/api/v1/auth/token/verify/", "", map[string]string{"token": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A second logout with the same token fails validation.
	rec = env.do(http.MethodPost, "/api/v1/auth/token/blacklist/", "", map[string]string{"refresh": pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Revoking one session leaves the user's other sessions untouched.
func TestLogoutIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	first, err := env.issuer.Issue(u)
	require.NoError(t, err)
	second, err := env.issuer.Issue(u)
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/logout/", "", map[string]string{"refresh": first.Refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/token/refresh/", "", map[string]string{"refresh": second.Refresh})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "dana", "pass12345", model.RoleClient, true)

	rec := env.do(http.MethodPost, "/api/v1/auth/token/blacklist/", "", map[string]string{"refresh": env.token(t, u)})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, rec)["detail"])
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication credentials were not provided.", decodeBody(t, rec)["detail"])

	rec = env.do(http.MethodGet, "/api/v1/users", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or expired", decodeBody(t, rec)["detail"])
}
