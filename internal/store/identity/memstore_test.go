package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "a@x", RoleUser, PasswordVerifier{Salt: "s", Hash: "h"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "alice", "other@x", RoleUser, PasswordVerifier{Salt: "s2", Hash: "h2"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestValidateCredentials(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "a@x", RoleUser, PasswordVerifier{Salt: "s", Hash: "h"})
	require.NoError(t, err)
	assert.True(t, created.LastLogin.IsZero())

	t.Run("CorrectVerifierSucceeds", func(t *testing.T) {
		u, err := s.ValidateCredentials(ctx, "alice", func(v PasswordVerifier) bool { return v.Hash == "h" })
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
		assert.False(t, u.LastLogin.IsZero())
	})

	t.Run("WrongVerifierFails", func(t *testing.T) {
		_, err := s.ValidateCredentials(ctx, "alice", func(v PasswordVerifier) bool { return false })
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownUsernameFails", func(t *testing.T) {
		_, err := s.ValidateCredentials(ctx, "nobody", func(v PasswordVerifier) bool { return true })
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestGetByIDAndUsername(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	created, err := s.CreateUser(ctx, "bob", "", RoleUser, PasswordVerifier{})
	require.NoError(t, err)

	byID, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", byID.Username)

	byName, err := s.GetByUsername(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
