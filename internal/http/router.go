package http

import (
	"net/http"

	"github.com/jaekwang-park/planner-api/internal/http/handler"
	"github.com/jaekwang-park/planner-api/internal/service"
)

// Services are the dependencies the routes are served from.
type Services struct {
	Todo   *service.TodoService
	Auth   *service.AuthService
	Users  *service.UserService
	Health map[string]handler.CheckFunc
}

func NewRouter(svc Services) http.Handler {
	mux := http.NewServeMux()

	// Health check - outside /api for load balancer probes
	mux.Handle("/health", handler.NewHealthHandler(svc.Health))

	mux.Handle("/api/auth/", handler.NewAuthHandler(svc.Auth))

	users := handler.NewUserHandler(svc.Users)
	mux.Handle("/api/users", users)
	mux.Handle("/api/users/", users)

	todos := handler.NewTodoHandler(svc.Todo)
	mux.Handle("/api/todo", todos)
	mux.Handle("/api/todo/", todos)

	return mux
}
