package auth

import (
	"context"
	"errors"

	"github.com/barberbook/barbershop-api/internal/model"
	"github.com/barberbook/barbershop-api/internal/repository"
	"github.com/barberbook/barbershop-api/internal/utils"
)

// CredentialFailure classifies expected login failures.
type CredentialFailure int

const (
	CredentialOK       CredentialFailure = iota
	InvalidCredentials                   // unknown user or wrong password
	AccountDisabled                      // credentials correct but is_active is false
)

// UserSource is the slice of the user store the verifier needs.
type UserSource interface {
	GetByLogin(ctx context.Context, login string) (model.User, error)
}

// CredentialVerifier checks username/password pairs against stored hashes.
// It performs no writes: there are no lockout counters and repeated bad
// logins are never throttled here.
type CredentialVerifier struct {
	users UserSource
}

func NewCredentialVerifier(users UserSource) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify resolves login (username or email) and compares password against
// the stored bcrypt hash.  Unknown users and wrong passwords both map to
// InvalidCredentials so callers cannot probe which usernames exist.  The
// password is compared before the active flag so a disabled-account answer
// is only given to callers who hold the correct password.
func (v *CredentialVerifier) Verify(ctx context.Context, login, password string) (model.User, CredentialFailure, error) {
	u, err := v.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, InvalidCredentials, nil
		}
		return model.User{}, CredentialOK, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, InvalidCredentials, nil
	}
	if !u.IsActive {
		return model.User{}, AccountDisabled, nil
	}
	return u, CredentialOK, nil
}
