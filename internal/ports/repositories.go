package ports

import (
	"context"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
)

// TaskMutator changes a loaded task in place. Returning an error aborts the
// update and nothing is written.
type TaskMutator func(task *entities.Task) error

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	// List returns every task, newest first (createdAt DESC, id DESC).
	List(ctx context.Context) ([]*entities.Task, error)
	GetByID(ctx context.Context, id string) (*entities.Task, error)
	// Update loads the task, applies mutate and stores the result as one
	// atomic step for that id.
	Update(ctx context.Context, id string, mutate TaskMutator) (*entities.Task, error)
	// Delete removes the task permanently and returns the removed record.
	Delete(ctx context.Context, id string) (*entities.Task, error)
	Ping(ctx context.Context) error
	Close() error
}
