// Package auth implements the server's password verifier: a per-user random
// salt combined with a bcrypt hash of the salted password.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default cost parameter for bcrypt hashing.
// Cost 12 is deliberately slow; it is the tunable referenced by the
// password store's KDF requirement.
const DefaultBcryptCost = 12

// SaltSize is the number of random bytes generated per user.
const SaltSize = 16

// ErrInvalidCredentials is returned when credentials do not match.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrPasswordTooShort is returned when a password is shorter than MinPasswordLength.
var ErrPasswordTooShort = errors.New("auth: password must be at least 8 characters")

// ErrPasswordTooLong is returned when a password would overflow bcrypt's 72-byte input limit
// once combined with the salt.
var ErrPasswordTooLong = errors.New("auth: password is too long")

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// maxPasswordLength leaves room for the hex-encoded salt that gets prepended
// before hashing, staying under bcrypt's 72-byte input ceiling.
const maxPasswordLength = 72 - SaltSize*2

// Verifier is the salted hash pair stored per user. Salt is hex-encoded.
type Verifier struct {
	Salt string
	Hash string
}

// NewSalt generates a new random salt of SaltSize bytes, hex-encoded.
func NewSalt() (string, error) {
	buf := make([]byte, SaltSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ValidatePassword checks length bounds on a plaintext password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword derives a fresh per-user salt and bcrypt hash for password.
func HashPassword(password string) (Verifier, error) {
	if err := ValidatePassword(password); err != nil {
		return Verifier{}, err
	}

	salt, err := NewSalt()
	if err != nil {
		return Verifier{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(salt+password), DefaultBcryptCost)
	if err != nil {
		return Verifier{}, err
	}

	return Verifier{Salt: salt, Hash: string(hash)}, nil
}

// Verify reports whether password matches the stored verifier. The bcrypt
// comparison itself runs in constant time relative to the stored hash.
func Verify(v Verifier, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(v.Hash), []byte(v.Salt+password))
	return err == nil
}
