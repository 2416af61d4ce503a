package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaekwang-park/planner-api/internal/middleware"
	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/repository"
	"github.com/jaekwang-park/planner-api/internal/token"
)

// mockTodoRepo for handler tests
type mockTodoRepo struct {
	listByUserFn          func(ctx context.Context, userID int64) ([]model.Todo, error)
	getByIDFn             func(ctx context.Context, ownerID, todoID int64) (model.Todo, error)
	createFn              func(ctx context.Context, todo model.Todo) (model.Todo, error)
	updateFn              func(ctx context.Context, todo model.Todo) (model.Todo, error)
	updateWithSuccessorFn func(ctx context.Context, todo, successor model.Todo) (model.Todo, *model.Todo, error)
	deleteFn              func(ctx context.Context, ownerID, todoID int64) error
	reorderFn             func(ctx context.Context, ownerID int64, ids, positions []int64) (int64, error)
	createSubTaskFn       func(ctx context.Context, sub model.SubTask) (model.SubTask, error)
	updateSubTaskFn       func(ctx context.Context, ownerID int64, sub model.SubTask) (model.SubTask, error)
	deleteSubTaskFn       func(ctx context.Context, ownerID, subTaskID int64) error
}

func (m *mockTodoRepo) ListByUser(ctx context.Context, userID int64) ([]model.Todo, error) {
	return m.listByUserFn(ctx, userID)
}
func (m *mockTodoRepo) GetByID(ctx context.Context, ownerID, todoID int64) (model.Todo, error) {
	return m.getByIDFn(ctx, ownerID, todoID)
}
func (m *mockTodoRepo) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	return m.createFn(ctx, todo)
}
func (m *mockTodoRepo) Update(ctx context.Context, todo model.Todo) (model.Todo, error) {
	return m.updateFn(ctx, todo)
}
func (m *mockTodoRepo) UpdateWithSuccessor(ctx context.Context, todo, successor model.Todo) (model.Todo, *model.Todo, error) {
	return m.updateWithSuccessorFn(ctx, todo, successor)
}
func (m *mockTodoRepo) Delete(ctx context.Context, ownerID, todoID int64) error {
	return m.deleteFn(ctx, ownerID, todoID)
}
func (m *mockTodoRepo) Reorder(ctx context.Context, ownerID int64, ids, positions []int64) (int64, error) {
	return m.reorderFn(ctx, ownerID, ids, positions)
}
func (m *mockTodoRepo) CreateSubTask(ctx context.Context, sub model.SubTask) (model.SubTask, error) {
	return m.createSubTaskFn(ctx, sub)
}
func (m *mockTodoRepo) UpdateSubTask(ctx context.Context, ownerID int64, sub model.SubTask) (model.SubTask, error) {
	return m.updateSubTaskFn(ctx, ownerID, sub)
}
func (m *mockTodoRepo) DeleteSubTask(ctx context.Context, ownerID, subTaskID int64) error {
	return m.deleteSubTaskFn(ctx, ownerID, subTaskID)
}

var _ repository.TodoRepository = (*mockTodoRepo)(nil)

// memUserRepo is an in-memory repository.UserRepository.
type memUserRepo struct {
	users  []model.User
	nextID int64
}

func (r *memUserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return model.User{}, repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users = append(r.users, user)
	return user, nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("failed to scan user: %w", sql.ErrNoRows)
}

func (r *memUserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.users, nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int64) error {
	for i, u := range r.users {
		if u.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *memUserRepo) Count(ctx context.Context) (int, error) {
	return len(r.users), nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func asUser(req *http.Request, userID int64, role model.Role) *http.Request {
	ctx := middleware.SetIdentity(req.Context(), token.Identity{UserID: userID, Role: role})
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error.Code
}
