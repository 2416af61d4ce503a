package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// panicGuard remembers whether the handler already started its response,
// in which case no error body can be sent.
type panicGuard struct {
	http.ResponseWriter
	started bool
}

func (g *panicGuard) WriteHeader(code int) {
	g.started = true
	g.ResponseWriter.WriteHeader(code)
}

func (g *panicGuard) Write(b []byte) (int, error) {
	g.started = true
	return g.ResponseWriter.Write(b)
}

func (g *panicGuard) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

var internalErrorBody = map[string]any{
	"error": map[string]string{
		"code":    "INTERNAL_ERROR",
		"message": "internal server error",
	},
}

// Recovery turns a handler panic into a logged 500 JSON response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g := &panicGuard{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic recovered",
					"error", rec,
					"request_id", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				if g.started {
					return
				}
				g.Header().Set("Content-Type", "application/json")
				g.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(g).Encode(internalErrorBody); err != nil {
					logger.Error("failed to write recovery response", "error", err)
				}
			}()

			next.ServeHTTP(g, r)
		})
	}
}
