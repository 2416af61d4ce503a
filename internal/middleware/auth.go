package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/jaekwang-park/planner-api/internal/token"
)

// TokenVerifier validates a bearer token and returns the caller it names.
type TokenVerifier interface {
	Verify(tokenStr string) (token.Identity, error)
}

type AuthConfig struct {
	// DevMode lets requests without a token through unscoped. A token that
	// is present is still verified.
	DevMode  bool
	Verifier TokenVerifier
}

type Auth struct {
	cfg AuthConfig
}

func NewAuth(cfg AuthConfig) (*Auth, error) {
	if !cfg.DevMode && cfg.Verifier == nil {
		return nil, fmt.Errorf("middleware: Verifier is required when DevMode is false")
	}
	return &Auth{cfg: cfg}, nil
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health check and auth endpoints
		cleanPath := path.Clean(r.URL.Path)
		if cleanPath == "/health" || strings.HasPrefix(cleanPath, "/api/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if a.cfg.DevMode {
				next.ServeHTTP(w, r)
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
			return
		}
		if a.cfg.Verifier == nil {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token authentication is not configured")
			return
		}

		id, err := a.cfg.Verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := SetIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
