package handler

import (
	"net/http"

	"github.com/jaekwang-park/planner-api/internal/middleware"
	"github.com/jaekwang-park/planner-api/internal/service"
)

// ownerScope is the user whose rows the caller may touch, or 0 when
// unrestricted (admins, and dev mode requests without a token).
func ownerScope(r *http.Request) int64 {
	id, ok := middleware.GetIdentity(r)
	if !ok || id.IsAdmin() {
		return 0
	}
	return id.UserID
}

func authorizeUser(r *http.Request, userID int64) error {
	if scope := ownerScope(r); scope != 0 && scope != userID {
		return service.ErrForbidden
	}
	return nil
}

func requireAdmin(r *http.Request) error {
	if id, ok := middleware.GetIdentity(r); ok && !id.IsAdmin() {
		return service.ErrForbidden
	}
	return nil
}
