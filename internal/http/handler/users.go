package handler

import (
	"net/http"
	"strings"

	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/service"
)

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ServeHTTP routes /api/users and /api/users/{id}
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		handleServiceError(w, r, err)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/users")
	path = strings.Trim(path, "/")

	if path != "" {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.handleDelete(w, r, path)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}

	WriteJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Create(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, rawID, "user id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
