package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/jaekwang-park/planner-api/internal/middleware"
	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/service"
)

type TodoHandler struct {
	svc *service.TodoService
}

func NewTodoHandler(svc *service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// ServeHTTP routes everything under /api/todo:
//
//	POST   /api/todo
//	POST   /api/todo/reorder
//	GET    /api/todo/stats/{userId}
//	PUT    /api/todo/subtasks/{subTaskId}
//	DELETE /api/todo/subtasks/{subTaskId}
//	POST   /api/todo/{id}/subtasks
//	GET    /api/todo/{userId}
//	PUT    /api/todo/{id}
//	DELETE /api/todo/{id}
func (h *TodoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/todo")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1 && parts[0] == "reorder":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.handleReorder(w, r)

	case len(parts) == 2 && parts[0] == "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.handleStats(w, r, parts[1])

	case len(parts) == 2 && parts[0] == "subtasks":
		switch r.Method {
		case http.MethodPut:
			h.handleUpdateSubTask(w, r, parts[1])
		case http.MethodDelete:
			h.handleDeleteSubTask(w, r, parts[1])
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 2 && parts[1] == "subtasks":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.handleCreateSubTask(w, r, parts[0])

	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, parts[0])
		case http.MethodPut:
			h.handleUpdate(w, r, parts[0])
		case http.MethodDelete:
			h.handleDelete(w, r, parts[0])
		default:
			methodNotAllowed(w)
		}

	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
	}
}

func (h *TodoHandler) handleList(w http.ResponseWriter, r *http.Request, rawUserID string) {
	userID, ok := parseID(w, rawUserID, "user id")
	if !ok {
		return
	}
	if err := authorizeUser(r, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	todos, err := h.svc.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if todos == nil {
		todos = []model.Todo{}
	}

	WriteJSON(w, http.StatusOK, todos)
}

type createTodoRequest struct {
	Title           string           `json:"title"`
	IsCompleted     bool             `json:"isCompleted"`
	UserID          int64            `json:"userId"`
	Deadline        *time.Time       `json:"deadline"`
	Priority        *model.Priority  `json:"priority"`
	Category        *string          `json:"category"`
	Recurrence      model.Recurrence `json:"recurrence"`
	RecurrenceValue *int             `json:"recurrenceValue"`
}

func (h *TodoHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// a token holder creating without userId creates for themselves
	if req.UserID == 0 {
		if id, ok := middleware.GetIdentity(r); ok {
			req.UserID = id.UserID
		}
	}
	if err := authorizeUser(r, req.UserID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	todo, err := h.svc.Create(r.Context(), service.CreateTodoInput{
		UserID:          req.UserID,
		Title:           req.Title,
		IsCompleted:     req.IsCompleted,
		Deadline:        req.Deadline,
		Priority:        req.Priority,
		Category:        req.Category,
		Recurrence:      req.Recurrence,
		RecurrenceValue: req.RecurrenceValue,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, todo)
}

type updateTodoRequest struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	IsCompleted     bool             `json:"isCompleted"`
	Deadline        *time.Time       `json:"deadline"`
	Priority        *model.Priority  `json:"priority"`
	Category        *string          `json:"category"`
	Recurrence      model.Recurrence `json:"recurrence"`
	RecurrenceValue *int             `json:"recurrenceValue"`
}

// updateTodoResponse is the saved todo, plus the next instance when
// completing a recurring todo spawned one.
type updateTodoResponse struct {
	model.Todo
	Next *model.Todo `json:"next,omitempty"`
}

func (h *TodoHandler) handleUpdate(w http.ResponseWriter, r *http.Request, rawID string) {
	todoID, ok := parseID(w, rawID, "todo id")
	if !ok {
		return
	}

	var req updateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	priority := model.PriorityMedium
	if req.Priority != nil {
		priority = *req.Priority
	}

	result, err := h.svc.Update(r.Context(), ownerScope(r), todoID, service.UpdateTodoInput{
		ID:              req.ID,
		Title:           req.Title,
		IsCompleted:     req.IsCompleted,
		Deadline:        req.Deadline,
		Priority:        priority,
		Category:        req.Category,
		Recurrence:      req.Recurrence,
		RecurrenceValue: req.RecurrenceValue,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, updateTodoResponse{Todo: result.Todo, Next: result.Next})
}

func (h *TodoHandler) handleDelete(w http.ResponseWriter, r *http.Request, rawID string) {
	todoID, ok := parseID(w, rawID, "todo id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), ownerScope(r), todoID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type reorderResponse struct {
	Updated int64 `json:"updated"`
}

func (h *TodoHandler) handleReorder(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if !decodeJSON(w, r, &ids) {
		return
	}

	n, err := h.svc.Reorder(r.Context(), ownerScope(r), ids)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, reorderResponse{Updated: n})
}

func (h *TodoHandler) handleStats(w http.ResponseWriter, r *http.Request, rawUserID string) {
	userID, ok := parseID(w, rawUserID, "user id")
	if !ok {
		return
	}
	if err := authorizeUser(r, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

type createSubTaskRequest struct {
	Title string `json:"title"`
}

func (h *TodoHandler) handleCreateSubTask(w http.ResponseWriter, r *http.Request, rawTodoID string) {
	todoID, ok := parseID(w, rawTodoID, "todo id")
	if !ok {
		return
	}

	var req createSubTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.svc.CreateSubTask(r.Context(), ownerScope(r), todoID, req.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, sub)
}

type updateSubTaskRequest struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

func (h *TodoHandler) handleUpdateSubTask(w http.ResponseWriter, r *http.Request, rawID string) {
	subTaskID, ok := parseID(w, rawID, "subtask id")
	if !ok {
		return
	}

	var req updateSubTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.svc.UpdateSubTask(r.Context(), ownerScope(r), subTaskID, service.UpdateSubTaskInput{
		ID:          req.ID,
		Title:       req.Title,
		IsCompleted: req.IsCompleted,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, sub)
}

func (h *TodoHandler) handleDeleteSubTask(w http.ResponseWriter, r *http.Request, rawID string) {
	subTaskID, ok := parseID(w, rawID, "subtask id")
	if !ok {
		return
	}

	if err := h.svc.DeleteSubTask(r.Context(), ownerScope(r), subTaskID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
