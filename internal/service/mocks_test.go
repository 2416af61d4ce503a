package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/jaekwang-park/planner-api/internal/events"
	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/repository"
)

// mockTodoRepo implements repository.TodoRepository for testing
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
	mu     sync.Mutex
	users  []model.User
	nextID int64

	// createErr, when set, is returned by Create instead of inserting.
	createErr error
}

func (r *memUserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return model.User{}, r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return model.User{}, fmt.Errorf("%w: users_username_key", repository.ErrDuplicate)
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users = append(r.users, user)
	return user, nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("failed to scan user: %w", sql.ErrNoRows)
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("failed to scan user: %w", sql.ErrNoRows)
}

func (r *memUserRepo) List(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.User{}, r.users...), nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *memUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

// fakeCache keeps stats per user and generation, like the Redis cache.
type fakeCache struct {
	mu          sync.Mutex
	stats       map[[2]int64]model.TodoStats
	gens        map[int64]int64
	sets        int
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		stats: make(map[[2]int64]model.TodoStats),
		gens:  make(map[int64]int64),
	}
}

func (c *fakeCache) Get(ctx context.Context, userID int64) (model.TodoStats, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gens[userID]
	s, ok := c.stats[[2]int64{userID, gen}]
	return s, gen, ok
}
func (c *fakeCache) Set(ctx context.Context, userID, gen int64, stats model.TodoStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.stats[[2]int64{userID, gen}] = stats
}
func (c *fakeCache) Invalidate(ctx context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	c.gens[userID]++
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func containsStr(s, substr string) bool {
	return strings.Contains(s, substr)
}
