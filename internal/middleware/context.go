package middleware

import (
	"context"
	"net/http"

	"github.com/jaekwang-park/planner-api/internal/token"
)

type contextKey string

const (
	identityKey  contextKey = "identity"
	requestIDKey contextKey = "request_id"
)

func SetIdentity(ctx context.Context, id token.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the authenticated caller. ok is false for requests
// that carried no token, which dev mode allows.
func GetIdentity(r *http.Request) (token.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(token.Identity)
	return id, ok
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
