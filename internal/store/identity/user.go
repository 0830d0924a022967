// Package identity implements the user store (C3): account creation,
// credential validation, and per-user lookups.
package identity

import "time"

// Role is a user's authorization level. The core never branches on Role
// beyond storing and returning it; authorization beyond "is this caller the
// owner" is out of scope.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User is the identity record described in spec §3.
type User struct {
	ID        string
	Username  string
	Email     string
	Role      Role
	FirstName string
	LastName  string

	SaltHash PasswordVerifier

	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin time.Time
}

// PasswordVerifier is the (salt, hash) pair per §4.2; never the plaintext.
type PasswordVerifier struct {
	Salt string
	Hash string
}
