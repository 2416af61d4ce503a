package token_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/token"
)

var alice = model.User{ID: 42, Username: "alice", Role: model.RoleUser}

func TestManager_RoundTrip(t *testing.T) {
	m := token.NewManager("test-secret", time.Hour)

	signed, err := m.Issue(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := m.Verify(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != 42 {
		t.Errorf("expected user id 42, got %d", id.UserID)
	}
	if id.Role != model.RoleUser || id.IsAdmin() {
		t.Errorf("expected non-admin User role, got %s", id.Role)
	}
}

func TestManager_AdminRole(t *testing.T) {
	m := token.NewManager("test-secret", time.Hour)

	signed, err := m.Issue(model.User{ID: 1, Username: "admin", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, err := m.Verify(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !id.IsAdmin() {
		t.Errorf("expected admin identity, got %+v", id)
	}
}

func TestManager_Rejects(t *testing.T) {
	m := token.NewManager("test-secret", time.Hour)
	valid, err := m.Issue(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	past := time.Now().Add(-3 * time.Hour)
	expired, err := m.WithClock(func() time.Time { return past }).Issue(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	otherSecret, err := token.NewManager("other-secret", time.Hour).Issue(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "42",
		"iss": "planner-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"alg none", unsigned},
		{"tampered payload", tampered},
		{"garbage", "not-a-token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			if !errors.Is(err, token.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestManager_TTL(t *testing.T) {
	m := token.NewManager("s", 90*time.Minute)
	if m.TTL() != 90*time.Minute {
		t.Errorf("expected ttl 90m, got %s", m.TTL())
	}
}
