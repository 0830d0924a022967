package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cloudvault/vaultd/internal/auth"
	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/session"
	"github.com/cloudvault/vaultd/internal/store/identity"
)

func registerAuth(registry *command.Registry, deps Deps) {
	registry.RegisterFunc(command.CreateAccountRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleCreateAccount(ctx, req, deps)
	})
	registry.RegisterFunc(command.LoginRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleLogin(ctx, req, deps)
	})
	registry.RegisterFunc(command.LogoutRequest, func(ctx context.Context, req command.Request) (command.Response, error) {
		return handleLogout(ctx, req, deps)
	})
}

func decodeLoginPayload(payload []byte) (loginPayload, error) {
	var p loginPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, command.Protocol("malformed JSON payload")
	}
	return p, nil
}

func handleCreateAccount(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	p, err := decodeLoginPayload(req.Payload)
	if err != nil {
		return command.Response{}, err
	}
	if p.Username == "" {
		return command.Response{}, command.Protocol("username is required")
	}

	verifier, err := auth.HashPassword(p.Password)
	if err != nil {
		return command.Response{}, command.StateViolation("invalid password", err.Error())
	}

	user, err := deps.Users.CreateUser(ctx, p.Username, p.Email, identity.RoleUser, identity.PasswordVerifier(verifier))
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateUsername) {
			return command.Response{}, command.Conflict("username is already taken")
		}
		return command.Response{}, command.IO("failed to create account", err)
	}

	if _, err := deps.Storage.UserDirectory(ctx, user.ID); err != nil {
		return command.Response{}, command.IO("failed to provision user storage", err)
	}

	return respondWithUser(command.CreateAccountResponse, user)
}

func handleLogin(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	p, err := decodeLoginPayload(req.Payload)
	if err != nil {
		return command.Response{}, err
	}

	user, err := deps.Users.ValidateCredentials(ctx, p.Username, func(v identity.PasswordVerifier) bool {
		return auth.Verify(auth.Verifier(v), p.Password)
	})
	if err != nil {
		return command.Response{}, command.Authentication("invalid username or password")
	}

	if _, err := deps.Storage.UserDirectory(ctx, user.ID); err != nil {
		return command.Response{}, command.IO("failed to provision user storage", err)
	}

	if s := session.FromContext(ctx); s != nil {
		s.Authenticate(user.ID)
	}

	return respondWithUser(command.LoginResponse, user)
}

func handleLogout(ctx context.Context, req command.Request, deps Deps) (command.Response, error) {
	return command.Response{
		Command:  command.LogoutResponse,
		Metadata: map[string]string{"Message": "logged out"},
	}, nil
}

func respondWithUser(code command.Code, user identity.User) (command.Response, error) {
	body, err := json.Marshal(userView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	})
	if err != nil {
		return command.Response{}, command.IO("failed to encode user", err)
	}
	return command.Response{
		Command:  code,
		Metadata: map[string]string{"UserId": user.ID},
		Payload:  body,
	}, nil
}
