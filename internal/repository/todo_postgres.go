package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/jaekwang-park/planner-api/internal/model"
)

const todoColumns = `id, title, is_completed, user_id, deadline, priority, category,
		order_index, recurrence, recurrence_value, created_at`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresTodoRepository struct {
	db *sql.DB
}

func NewPostgresTodo(db *sql.DB) *PostgresTodoRepository {
	return &PostgresTodoRepository{db: db}
}

func (r *PostgresTodoRepository) ListByUser(ctx context.Context, userID int64) ([]model.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todo_items
		WHERE user_id = $1
		ORDER BY order_index, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	ids := []int64{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
		ids = append(ids, todo.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}
	if len(todos) == 0 {
		return todos, nil
	}

	subs, err := r.subTasksFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range todos {
		if s, ok := subs[todos[i].ID]; ok {
			todos[i].SubTasks = s
		}
	}

	return todos, nil
}

func (r *PostgresTodoRepository) subTasksFor(ctx context.Context, todoIDs []int64) (map[int64][]model.SubTask, error) {
	query := `
		SELECT id, title, is_completed, todo_item_id
		FROM sub_tasks
		WHERE todo_item_id = ANY($1)
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(todoIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	subs := make(map[int64][]model.SubTask)
	for rows.Next() {
		s, err := scanSubTask(rows)
		if err != nil {
			return nil, err
		}
		subs[s.TodoItemID] = append(subs[s.TodoItemID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subtasks: %w", err)
	}
	return subs, nil
}

func (r *PostgresTodoRepository) GetByID(ctx context.Context, ownerID, todoID int64) (model.Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todo_items
		WHERE id = $1 AND ($2::bigint = 0 OR user_id = $2)`

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, todoID, ownerID))
	if err != nil {
		return model.Todo{}, err
	}

	subs, err := r.subTasksFor(ctx, []int64{todo.ID})
	if err != nil {
		return model.Todo{}, err
	}
	if s, ok := subs[todo.ID]; ok {
		todo.SubTasks = s
	}
	return todo, nil
}

func (r *PostgresTodoRepository) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	created, err := insertTodo(ctx, r.db, todo)
	if err != nil {
		return model.Todo{}, mapPQError(err)
	}
	return created, nil
}

// insertTodo appends todo to the end of its owner's list: the order index is
// the number of todos the owner had before the insert.
func insertTodo(ctx context.Context, q queryRower, todo model.Todo) (model.Todo, error) {
	query := `
		INSERT INTO todo_items
			(title, is_completed, user_id, deadline, priority, category,
			 order_index, recurrence, recurrence_value)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT count(*) FROM todo_items WHERE user_id = $3), $7, $8)
		RETURNING ` + todoColumns

	row := q.QueryRowContext(ctx, query,
		todo.Title, todo.IsCompleted, todo.UserID, todo.Deadline, todo.Priority,
		todo.Category, todo.Recurrence, todo.RecurrenceValue,
	)
	return scanTodo(row)
}

func (r *PostgresTodoRepository) Update(ctx context.Context, todo model.Todo) (model.Todo, error) {
	return updateTodo(ctx, r.db, todo, false)
}

// updateTodo saves todo's editable fields. With onlyIfOpen the row is only
// touched while it is still incomplete, and sql.ErrNoRows is returned
// otherwise.
func updateTodo(ctx context.Context, q queryRower, todo model.Todo, onlyIfOpen bool) (model.Todo, error) {
	query := `
		UPDATE todo_items
		SET title = $1, is_completed = $2, deadline = $3, priority = $4,
			category = $5, recurrence = $6, recurrence_value = $7
		WHERE id = $8`
	if onlyIfOpen {
		query += ` AND is_completed = false`
	}
	query += `
		RETURNING ` + todoColumns

	row := q.QueryRowContext(ctx, query,
		todo.Title, todo.IsCompleted, todo.Deadline, todo.Priority,
		todo.Category, todo.Recurrence, todo.RecurrenceValue, todo.ID,
	)
	return scanTodo(row)
}

func (r *PostgresTodoRepository) UpdateWithSuccessor(ctx context.Context, todo, successor model.Todo) (model.Todo, *model.Todo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Todo{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// the row lock taken here makes a concurrent completion wait, then see
	// is_completed = true and skip the insert
	updated, err := updateTodo(ctx, tx, todo, true)
	if errors.Is(err, sql.ErrNoRows) {
		updated, err = updateTodo(ctx, tx, todo, false)
		if err != nil {
			return model.Todo{}, nil, err
		}
		if err := tx.Commit(); err != nil {
			return model.Todo{}, nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return updated, nil, nil
	}
	if err != nil {
		return model.Todo{}, nil, err
	}

	next, err := insertTodo(ctx, tx, successor)
	if err != nil {
		return model.Todo{}, nil, fmt.Errorf("failed to insert successor: %w", mapPQError(err))
	}

	if err := tx.Commit(); err != nil {
		return model.Todo{}, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, &next, nil
}

func (r *PostgresTodoRepository) Delete(ctx context.Context, ownerID, todoID int64) error {
	query := `DELETE FROM todo_items WHERE id = $1 AND ($2::bigint = 0 OR user_id = $2)`

	result, err := r.db.ExecContext(ctx, query, todoID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return expectAffected(result)
}

func (r *PostgresTodoRepository) Reorder(ctx context.Context, ownerID int64, ids []int64, positions []int64) (int64, error) {
	query := `
		UPDATE todo_items AS t
		SET order_index = o.position
		FROM unnest($1::bigint[], $2::integer[]) AS o(id, position)
		WHERE t.id = o.id AND ($3::bigint = 0 OR t.user_id = $3)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(positions), ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to reorder todos: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *PostgresTodoRepository) CreateSubTask(ctx context.Context, sub model.SubTask) (model.SubTask, error) {
	query := `
		INSERT INTO sub_tasks (title, is_completed, todo_item_id)
		VALUES ($1, $2, $3)
		RETURNING id, title, is_completed, todo_item_id`

	created, err := scanSubTask(r.db.QueryRowContext(ctx, query, sub.Title, sub.IsCompleted, sub.TodoItemID))
	if err != nil {
		return model.SubTask{}, mapPQError(err)
	}
	return created, nil
}

func (r *PostgresTodoRepository) UpdateSubTask(ctx context.Context, ownerID int64, sub model.SubTask) (model.SubTask, error) {
	query := `
		UPDATE sub_tasks AS s
		SET title = $1, is_completed = $2
		FROM todo_items AS t
		WHERE s.id = $3 AND t.id = s.todo_item_id AND ($4::bigint = 0 OR t.user_id = $4)
		RETURNING s.id, s.title, s.is_completed, s.todo_item_id`

	return scanSubTask(r.db.QueryRowContext(ctx, query, sub.Title, sub.IsCompleted, sub.ID, ownerID))
}

func (r *PostgresTodoRepository) DeleteSubTask(ctx context.Context, ownerID, subTaskID int64) error {
	query := `
		DELETE FROM sub_tasks AS s
		USING todo_items AS t
		WHERE s.id = $1 AND t.id = s.todo_item_id AND ($2::bigint = 0 OR t.user_id = $2)`

	result, err := r.db.ExecContext(ctx, query, subTaskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}
	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanTodo(row scannable) (model.Todo, error) {
	var t model.Todo
	err := row.Scan(
		&t.ID, &t.Title, &t.IsCompleted, &t.UserID, &t.Deadline, &t.Priority,
		&t.Category, &t.OrderIndex, &t.Recurrence, &t.RecurrenceValue, &t.CreatedAt,
	)
	if err != nil {
		return model.Todo{}, fmt.Errorf("failed to scan todo: %w", err)
	}
	t.SubTasks = []model.SubTask{}
	return t, nil
}

func scanSubTask(row scannable) (model.SubTask, error) {
	var s model.SubTask
	if err := row.Scan(&s.ID, &s.Title, &s.IsCompleted, &s.TodoItemID); err != nil {
		return model.SubTask{}, fmt.Errorf("failed to scan subtask: %w", err)
	}
	return s, nil
}

// ensure compile-time interface compliance
var _ TodoRepository = (*PostgresTodoRepository)(nil)
