// Package auth implements the token lifecycle and access control core:
// credential verification, JWT issuance and validation, refresh token
// revocation and the role/ownership guard.  All expected failure modes are
// reported as typed reason codes rather than errors so callers must handle
// every path explicitly; errors are reserved for unexpected faults such as
// an unreachable revocation store.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/barberbook/barbershop-api/internal/model"
)

// Token type markers carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Config carries everything the issuer and validator need.  It is passed
// explicitly instead of being read from ambient globals so tests can run
// with their own secrets and lifetimes.
type Config struct {
	Secret     string        // HS256 signing secret
	AccessTTL  time.Duration // lifetime of access tokens (minutes in practice)
	RefreshTTL time.Duration // lifetime of refresh tokens (days in practice)
}

// Claims is the payload carried by both token kinds.  Access tokens snapshot
// the user's role; refresh tokens omit it and the role is re-read from the
// user record when a new access token is minted.
type Claims struct {
	Role      model.Role `json:"role,omitempty"`
	TokenType string     `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token.
func (c Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// Pair bundles a freshly issued access and refresh token.
type Pair struct {
	Access         string
	AccessExpires  time.Time
	Refresh        string
	RefreshExpires time.Time
}

// Issuer mints signed token pairs for verified users.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) *Issuer { return &Issuer{cfg: cfg} }

// Issue produces an access/refresh pair for the user.  Every call yields a
// fresh jti for each token, so pairs issued to the same user are fully
// independent: revoking one refresh token never touches another.
func (i *Issuer) Issue(u model.User) (Pair, error) {
	access, accessExp, err := i.sign(TypeAccess, u.ID, u.Role, i.cfg.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := i.sign(TypeRefresh, u.ID, "", i.cfg.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Access:         access,
		AccessExpires:  accessExp,
		Refresh:        refresh,
		RefreshExpires: refreshExp,
	}, nil
}

// IssueAccess mints a single access token.  Used by the refresh endpoint,
// which does not rotate the presented refresh token.
func (i *Issuer) IssueAccess(u model.User) (string, time.Time, error) {
	return i.sign(TypeAccess, u.ID, u.Role, i.cfg.AccessTTL)
}

func (i *Issuer) sign(typ string, userID uint64, role model.Role, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
