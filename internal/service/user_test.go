package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/service"
)

func TestUserService_Create(t *testing.T) {
	tests := []struct {
		name     string
		input    service.CreateUserInput
		wantRole model.Role
		wantErr  error
	}{
		{"default role", service.CreateUserInput{Username: "dave", Password: "pw"}, model.RoleUser, nil},
		{"admin role", service.CreateUserInput{Username: "erin", Password: "pw", Role: model.RoleAdmin}, model.RoleAdmin, nil},
		{"unknown role", service.CreateUserInput{Username: "frank", Password: "pw", Role: "Owner"}, "", service.ErrInvalidInput},
		{"taken username", service.CreateUserInput{Username: "admin", Password: "pw"}, "", service.ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewUserService(&memUserRepo{}, nil)
			if _, err := svc.SeedDefaults(context.Background(), "a", "u"); err != nil {
				t.Fatalf("seed failed: %v", err)
			}

			user, err := svc.Create(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Role != tt.wantRole {
				t.Errorf("expected role %s, got %s", tt.wantRole, user.Role)
			}
		})
	}
}

func TestUserService_List(t *testing.T) {
	svc := service.NewUserService(&memUserRepo{}, nil)
	if _, err := svc.SeedDefaults(context.Background(), "a", "u"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Username != "admin" || users[0].Role != model.RoleAdmin {
		t.Errorf("unexpected first user %+v", users[0])
	}
	if users[1].Username != "user" || users[1].Role != model.RoleUser {
		t.Errorf("unexpected second user %+v", users[1])
	}
}

func TestUserService_Delete(t *testing.T) {
	cache := newFakeCache()
	repo := &memUserRepo{}
	svc := service.NewUserService(repo, cache)

	user, err := svc.Create(context.Background(), service.CreateUserInput{Username: "gina", Password: "pw"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != user.ID {
		t.Errorf("expected stats for user %d invalidated, got %v", user.ID, cache.invalidated)
	}

	if err := svc.Delete(context.Background(), user.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUserService_SeedDefaults(t *testing.T) {
	repo := &memUserRepo{}
	users := service.NewUserService(repo, nil)
	auth := service.NewAuthService(repo, nil)

	seeded, err := users.SeedDefaults(context.Background(), "admin-secret", "user-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seeded {
		t.Fatal("expected seeding on empty table")
	}

	out, err := auth.Login(context.Background(), service.LoginInput{Username: "admin", Password: "admin-secret"})
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if out.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %s", out.Role)
	}
	if _, err := auth.Login(context.Background(), service.LoginInput{Username: "user", Password: "user-secret"}); err != nil {
		t.Errorf("user login failed: %v", err)
	}

	seeded, err = users.SeedDefaults(context.Background(), "x", "y")
	if err != nil {
		t.Fatalf("unexpected error on reseed: %v", err)
	}
	if seeded {
		t.Error("expected no seeding when users exist")
	}
	if n, _ := repo.Count(context.Background()); n != 2 {
		t.Errorf("expected 2 users, got %d", n)
	}
}
