package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reason classifies why a token failed validation.  ReasonNone means the
// token is valid.
type Reason int

const (
	ReasonNone      Reason = iota
	ReasonMalformed        // cannot be parsed or the signature does not verify
	ReasonWrongType        // "typ" claim does not match the expected kind
	ReasonExpired          // past its exp claim
	ReasonRevoked          // refresh token whose jti is blacklisted
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "valid"
	case ReasonMalformed:
		return "malformed"
	case ReasonWrongType:
		return "wrong token type"
	case ReasonExpired:
		return "expired"
	case ReasonRevoked:
		return "revoked"
	}
	return "unknown"
}

// Blacklist is the revocation store consulted for refresh tokens.  Revoke
// must be idempotent, and a jti must read as revoked immediately after a
// successful Revoke call.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Validator checks token strings against the signing secret and, for
// refresh tokens, the revocation store.
type Validator struct {
	cfg       Config
	blacklist Blacklist
}

func NewValidator(cfg Config, bl Blacklist) *Validator {
	return &Validator{cfg: cfg, blacklist: bl}
}

// Validate checks raw against the expected token type.  The check order is
// fixed: signature first (claims of an unverified token are never trusted),
// then declared type, then expiry, then the blacklist for refresh tokens.
// The type check precedes the blacklist lookup so an access token presented
// where a refresh token is required fails as WrongType instead of passing
// as "not revoked" by omission.
//
// The returned error is non-nil only for unexpected faults (revocation
// store unreachable); all expected outcomes arrive as a Reason.
func (v *Validator) Validate(ctx context.Context, raw, expectedType string) (Claims, Reason, error) {
	claims, ok := v.parse(raw)
	if !ok {
		return Claims{}, ReasonMalformed, nil
	}
	if claims.TokenType != expectedType {
		return Claims{}, ReasonWrongType, nil
	}
	if expired(claims) {
		return Claims{}, ReasonExpired, nil
	}
	if expectedType == TypeRefresh {
		revoked, err := v.blacklist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Claims{}, ReasonNone, err
		}
		if revoked {
			return Claims{}, ReasonRevoked, nil
		}
	}
	return claims, ReasonNone, nil
}

// ValidateAny checks raw against whichever type the token itself declares.
// Used by the verify endpoint, which accepts both kinds.
func (v *Validator) ValidateAny(ctx context.Context, raw string) (Claims, Reason, error) {
	claims, ok := v.parse(raw)
	if !ok {
		return Claims{}, ReasonMalformed, nil
	}
	switch claims.TokenType {
	case TypeAccess, TypeRefresh:
		return v.Validate(ctx, raw, claims.TokenType)
	}
	return Claims{}, ReasonMalformed, nil
}

// parse verifies the signature only.  Expiry is checked separately so that
// an expired token of the wrong type still reports WrongType.
func (v *Validator) parse(raw string) (Claims, bool) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(v.cfg.Secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !tok.Valid {
		return Claims{}, false
	}
	return claims, true
}

func expired(c Claims) bool {
	return c.ExpiresAt == nil || !time.Now().UTC().Before(c.ExpiresAt.Time)
}
