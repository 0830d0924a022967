package identity

import (
	"context"
	"errors"
)

// Store is the C3 user store contract. Implementations must serialize
// writes per username/ID and allow concurrent reads (§5).
type Store interface {
	// CreateUser generates a user ID and persists the record with a fresh
	// per-user salt and hash, computed by the caller's auth.HashPassword.
	// Returns ErrDuplicateUsername if username is already taken.
	CreateUser(ctx context.Context, username, email string, role Role, verifier PasswordVerifier) (User, error)

	// ValidateCredentials looks the user up by username and reports
	// whether verify(password) matches the stored hash. The caller
	// supplies verify so this package stays independent of the hashing
	// primitive (§1 Non-goals: KDF choice is not fixed by the core).
	// On success it updates LastLogin and returns the user.
	ValidateCredentials(ctx context.Context, username string, verify func(PasswordVerifier) bool) (User, error)

	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Update(ctx context.Context, u User) error
}

// ErrDuplicateUsername is returned by CreateUser when username already
// resolves to a user.
var ErrDuplicateUsername = errors.New("identity: username already taken")

// ErrNotFound is returned by lookups for an unknown ID or username.
var ErrNotFound = errors.New("identity: user not found")

// ErrInvalidCredentials is returned by ValidateCredentials when the
// username is unknown or the password does not match.
var ErrInvalidCredentials = errors.New("identity: invalid credentials")
