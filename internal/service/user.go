package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/repository"
)

// UserService backs the admin user management endpoints.
type UserService struct {
	users repository.UserRepository
	cache StatsCache
}

func NewUserService(users repository.UserRepository, cache StatsCache) *UserService {
	if cache == nil {
		cache = noopCache{}
	}
	return &UserService{users: users, cache: cache}
}

type CreateUserInput struct {
	Username string
	Password string
	Role     model.Role
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (model.User, error) {
	role := input.Role
	if role == "" {
		role = model.RoleUser
	}
	return createUser(ctx, s.users, input.Username, input.Password, role)
}

// Delete removes the user; their todos and subtasks go with them.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// SeedDefaults creates the default admin and regular accounts when the user
// table is empty. It reports whether anything was created.
func (s *UserService) SeedDefaults(ctx context.Context, adminPassword, userPassword string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	if _, err := createUser(ctx, s.users, "admin", adminPassword, model.RoleAdmin); err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}
	if _, err := createUser(ctx, s.users, "user", userPassword, model.RoleUser); err != nil {
		return false, fmt.Errorf("failed to seed user: %w", err)
	}
	return true, nil
}
