package repository

import (
	"context"

	"github.com/jaekwang-park/planner-api/internal/model"
)

// TodoRepository persists todo items and their subtasks.
//
// Methods taking an ownerID restrict the statement to rows owned by that
// user; an ownerID of 0 disables the restriction.
type TodoRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Todo, error)
	GetByID(ctx context.Context, ownerID, todoID int64) (model.Todo, error)
	Create(ctx context.Context, todo model.Todo) (model.Todo, error)
	Update(ctx context.Context, todo model.Todo) (model.Todo, error)
	// UpdateWithSuccessor saves todo and, if the stored row was still
	// incomplete, inserts successor at the end of the owner's list in the
	// same transaction. The returned successor is nil when the row had
	// already been completed.
	UpdateWithSuccessor(ctx context.Context, todo, successor model.Todo) (model.Todo, *model.Todo, error)
	Delete(ctx context.Context, ownerID, todoID int64) error
	// Reorder sets order_index = positions[i] for the row with id ids[i].
	Reorder(ctx context.Context, ownerID int64, ids []int64, positions []int64) (int64, error)

	CreateSubTask(ctx context.Context, sub model.SubTask) (model.SubTask, error)
	UpdateSubTask(ctx context.Context, ownerID int64, sub model.SubTask) (model.SubTask, error)
	DeleteSubTask(ctx context.Context, ownerID, subTaskID int64) error
}
