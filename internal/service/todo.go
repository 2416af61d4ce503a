package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jaekwang-park/planner-api/internal/events"
	"github.com/jaekwang-park/planner-api/internal/model"
	"github.com/jaekwang-park/planner-api/internal/repository"
)

// StatsCache stores computed stats per user. Implementations swallow their
// own failures; a failed Get is a miss.
//
// Get reports the user's current generation, which Invalidate advances.
// Set stores stats under the generation they were loaded at, so stats
// loaded before an invalidation are never served after it. A negative
// generation means it is unknown and Set must not store anything.
type StatsCache interface {
	Get(ctx context.Context, userID int64) (stats model.TodoStats, gen int64, ok bool)
	Set(ctx context.Context, userID, gen int64, stats model.TodoStats)
	Invalidate(ctx context.Context, userID int64)
}

type noopCache struct{}

func (noopCache) Get(context.Context, int64) (model.TodoStats, int64, bool) {
	return model.TodoStats{}, -1, false
}
func (noopCache) Set(context.Context, int64, int64, model.TodoStats) {}
func (noopCache) Invalidate(context.Context, int64) {}

type TodoOption func(*TodoService)

func WithStatsCache(c StatsCache) TodoOption {
	return func(s *TodoService) { s.cache = c }
}

func WithPublisher(p events.Publisher) TodoOption {
	return func(s *TodoService) { s.publisher = p }
}

func WithClock(now func() time.Time) TodoOption {
	return func(s *TodoService) { s.now = now }
}

func WithLogger(l *slog.Logger) TodoOption {
	return func(s *TodoService) { s.logger = l }
}

type CreateTodoInput struct {
	UserID          int64
	Title           string
	IsCompleted     bool
	Deadline        *time.Time
	Priority        *model.Priority // nil means medium
	Category        *string
	Recurrence      model.Recurrence
	RecurrenceValue *int
}

// UpdateTodoInput replaces every editable field of a todo. ID must match the
// todo being updated.
type UpdateTodoInput struct {
	ID              int64
	Title           string
	IsCompleted     bool
	Deadline        *time.Time
	Priority        model.Priority
	Category        *string
	Recurrence      model.Recurrence
	RecurrenceValue *int
}

type UpdateSubTaskInput struct {
	ID          int64
	Title       string
	IsCompleted bool
}

// UpdateResult is the saved todo plus, when completing it spawned one, the
// next instance of a recurring todo.
type UpdateResult struct {
	Todo model.Todo
	Next *model.Todo
}

// TodoService implements todo and subtask operations.
//
// Operations on an existing todo or subtask take an ownerID: when non-zero
// only rows owned by that user are visible, others behave as missing.
type TodoService struct {
	repo      repository.TodoRepository
	cache     StatsCache
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger

	// collapses concurrent stats recomputations for the same user
	statsGroup singleflight.Group
}

func NewTodoService(repo repository.TodoRepository, opts ...TodoOption) *TodoService {
	s := &TodoService{
		repo:      repo,
		cache:     noopCache{},
		publisher: events.Nop{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TodoService) List(ctx context.Context, userID int64) ([]model.Todo, error) {
	todos, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

func (s *TodoService) Create(ctx context.Context, input CreateTodoInput) (model.Todo, error) {
	priority := model.PriorityMedium
	if input.Priority != nil {
		priority = *input.Priority
	}
	if input.UserID <= 0 {
		return model.Todo{}, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	todo := model.Todo{
		Title:           input.Title,
		IsCompleted:     input.IsCompleted,
		UserID:          input.UserID,
		Deadline:        input.Deadline,
		Priority:        priority,
		Category:        input.Category,
		Recurrence:      input.Recurrence,
		RecurrenceValue: input.RecurrenceValue,
	}
	if err := validateTodo(todo); err != nil {
		return model.Todo{}, err
	}

	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		if errors.Is(err, repository.ErrReference) {
			return model.Todo{}, fmt.Errorf("%w: user %d does not exist", ErrInvalidInput, input.UserID)
		}
		return model.Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}

	s.cache.Invalidate(ctx, created.UserID)
	s.publish(ctx, events.New(events.TodoCreated, created.ID, created.UserID, s.now()))
	return created, nil
}

// Update replaces the todo's editable fields. Completing a recurring todo
// also inserts its next instance; the completed row itself is kept as
// history.
func (s *TodoService) Update(ctx context.Context, ownerID, todoID int64, input UpdateTodoInput) (UpdateResult, error) {
	if input.ID != todoID {
		return UpdateResult{}, fmt.Errorf("%w: id in body does not match path", ErrInvalidInput)
	}

	existing, err := s.repo.GetByID(ctx, ownerID, todoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UpdateResult{}, ErrNotFound
		}
		return UpdateResult{}, fmt.Errorf("failed to get todo for update: %w", err)
	}

	todo := existing
	todo.Title = input.Title
	todo.IsCompleted = input.IsCompleted
	todo.Deadline = input.Deadline
	todo.Priority = input.Priority
	todo.Category = input.Category
	todo.Recurrence = input.Recurrence
	todo.RecurrenceValue = input.RecurrenceValue
	if err := validateTodo(todo); err != nil {
		return UpdateResult{}, err
	}

	justCompleted := !existing.IsCompleted && todo.IsCompleted

	var result UpdateResult
	if successor, ok := todo.Successor(s.now().UTC()); justCompleted && ok {
		updated, next, err := s.repo.UpdateWithSuccessor(ctx, todo, successor)
		if err != nil {
			return UpdateResult{}, translateUpdateErr(err)
		}
		// a concurrent request completed it first and spawned the successor
		if next == nil {
			justCompleted = false
		}
		result = UpdateResult{Todo: updated, Next: next}
	} else {
		updated, err := s.repo.Update(ctx, todo)
		if err != nil {
			return UpdateResult{}, translateUpdateErr(err)
		}
		result = UpdateResult{Todo: updated}
	}
	result.Todo.SubTasks = existing.SubTasks

	s.cache.Invalidate(ctx, existing.UserID)
	if justCompleted {
		e := events.New(events.TodoCompleted, todoID, existing.UserID, s.now())
		if result.Next != nil {
			e.SuccessorID = &result.Next.ID
		}
		s.publish(ctx, e)
	}
	return result, nil
}

func translateUpdateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to update todo: %w", err)
}

func (s *TodoService) Delete(ctx context.Context, ownerID, todoID int64) error {
	existing, err := s.repo.GetByID(ctx, ownerID, todoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get todo for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, ownerID, todoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	s.cache.Invalidate(ctx, existing.UserID)
	s.publish(ctx, events.New(events.TodoDeleted, todoID, existing.UserID, s.now()))
	return nil
}

// Reorder gives every listed todo an order index equal to the position of
// its first occurrence in ids. Ids that match no row are ignored. It returns
// the number of rows updated.
func (s *TodoService) Reorder(ctx context.Context, ownerID int64, ids []int64) (int64, error) {
	seen := make(map[int64]bool, len(ids))
	uniq := make([]int64, 0, len(ids))
	positions := make([]int64, 0, len(ids))
	for i, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
		positions = append(positions, int64(i))
	}
	if len(uniq) == 0 {
		return 0, nil
	}

	n, err := s.repo.Reorder(ctx, ownerID, uniq, positions)
	if err != nil {
		return 0, fmt.Errorf("failed to reorder todos: %w", err)
	}
	return n, nil
}

func (s *TodoService) Stats(ctx context.Context, userID int64) (model.TodoStats, error) {
	stats, gen, ok := s.cache.Get(ctx, userID)
	if ok {
		return stats, nil
	}

	// callers that observed a later generation must not share a load that
	// started before the invalidation
	key := strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(gen, 10)
	v, err, _ := s.statsGroup.Do(key, func() (any, error) {
		// the load is shared, so one caller going away must not fail the rest
		ctx := context.WithoutCancel(ctx)
		todos, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		stats := ComputeStats(todos, s.now())
		s.cache.Set(ctx, userID, gen, stats)
		return stats, nil
	})
	if err != nil {
		return model.TodoStats{}, fmt.Errorf("failed to load todos for stats: %w", err)
	}
	return v.(model.TodoStats), nil
}

func (s *TodoService) CreateSubTask(ctx context.Context, ownerID, todoID int64, title string) (model.SubTask, error) {
	if strings.TrimSpace(title) == "" {
		return model.SubTask{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	if _, err := s.repo.GetByID(ctx, ownerID, todoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SubTask{}, ErrNotFound
		}
		return model.SubTask{}, fmt.Errorf("failed to get todo for subtask: %w", err)
	}

	sub, err := s.repo.CreateSubTask(ctx, model.SubTask{Title: title, TodoItemID: todoID})
	if err != nil {
		// parent deleted between the lookup and the insert
		if errors.Is(err, repository.ErrReference) {
			return model.SubTask{}, ErrNotFound
		}
		return model.SubTask{}, fmt.Errorf("failed to create subtask: %w", err)
	}
	return sub, nil
}

func (s *TodoService) UpdateSubTask(ctx context.Context, ownerID, subTaskID int64, input UpdateSubTaskInput) (model.SubTask, error) {
	if input.ID != subTaskID {
		return model.SubTask{}, fmt.Errorf("%w: id in body does not match path", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Title) == "" {
		return model.SubTask{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	sub, err := s.repo.UpdateSubTask(ctx, ownerID, model.SubTask{
		ID:          subTaskID,
		Title:       input.Title,
		IsCompleted: input.IsCompleted,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SubTask{}, ErrNotFound
		}
		return model.SubTask{}, fmt.Errorf("failed to update subtask: %w", err)
	}
	return sub, nil
}

func (s *TodoService) DeleteSubTask(ctx context.Context, ownerID, subTaskID int64) error {
	if err := s.repo.DeleteSubTask(ctx, ownerID, subTaskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete subtask: %w", err)
	}
	return nil
}

func (s *TodoService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"type", e.Type,
			"todo_id", e.TodoID,
			"error", err,
		)
	}
}

func validateTodo(t model.Todo) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: priority must be 0 (low), 1 (medium) or 2 (high)", ErrInvalidInput)
	}
	if !t.Recurrence.IsValid() {
		return fmt.Errorf("%w: recurrence must be between 0 and 3", ErrInvalidInput)
	}
	if v := t.RecurrenceValue; v != nil {
		switch t.Recurrence {
		case model.RecurrenceWeekly:
			if *v < 0 || *v > 6 {
				return fmt.Errorf("%w: weekly recurrenceValue must be a weekday 0-6", ErrInvalidInput)
			}
		case model.RecurrenceMonthly:
			if *v < 1 || *v > 31 {
				return fmt.Errorf("%w: monthly recurrenceValue must be a day 1-31", ErrInvalidInput)
			}
		}
	}
	return nil
}
