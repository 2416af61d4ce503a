package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/repository"
	"github.com/jaekwang-park/planner-api/internal/token"
)

// AuthService handles registration and login.
type AuthService struct {
	users  repository.UserRepository
	tokens *token.Manager
}

// NewAuthService creates a new AuthService. A nil token manager disables
// token issuance; login then only returns the user record.
func NewAuthService(users repository.UserRepository, tokens *token.Manager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthOutput struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	Message   string     `json:"message"`
	Token     string     `json:"token,omitempty"`
	ExpiresIn int64      `json:"expiresIn,omitempty"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthOutput, error) {
	user, err := createUser(ctx, s.users, input.Username, input.Password, model.RoleUser)
	if err != nil {
		return AuthOutput{}, err
	}

	return AuthOutput{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Message:  "User registered successfully.",
	}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthOutput, error) {
	if strings.TrimSpace(input.Username) == "" {
		return AuthOutput{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if input.Password == "" {
		return AuthOutput{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AuthOutput{}, ErrInvalidCredentials
		}
		return AuthOutput{}, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPassword(user.PasswordHash, input.Password) {
		return AuthOutput{}, ErrInvalidCredentials
	}

	out := AuthOutput{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Message:  "Login successful.",
	}

	if s.tokens != nil {
		signed, err := s.tokens.Issue(user)
		if err != nil {
			return AuthOutput{}, err
		}
		out.Token = signed
		out.ExpiresIn = int64(s.tokens.TTL().Seconds())
	}

	return out, nil
}

// createUser validates credentials, rejects taken usernames and stores the
// user with a bcrypt hash of the password.
func createUser(ctx context.Context, users repository.UserRepository, username, password string, role model.Role) (model.User, error) {
	if strings.TrimSpace(username) == "" {
		return model.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if password == "" {
		return model.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !role.IsValid() {
		return model.User{}, fmt.Errorf("%w: role must be Admin or User", ErrInvalidInput)
	}

	_, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return model.User{}, fmt.Errorf("%w: username %q", ErrDuplicate, username)
	case !errors.Is(err, sql.ErrNoRows):
		return model.User{}, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	user, err := users.Create(ctx, model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, fmt.Errorf("%w: username %q", ErrDuplicate, username)
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}
