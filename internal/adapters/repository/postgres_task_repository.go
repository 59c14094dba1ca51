package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/database"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

const taskColumns = `id, title, description, completed, priority, due_date, tags,
	external_event_id, created_at, updated_at`

// taskRow is the todos table layout
type taskRow struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	Completed       bool           `db:"completed"`
	Priority        string         `db:"priority"`
	DueDate         sql.NullTime   `db:"due_date"`
	Tags            pq.StringArray `db:"tags"`
	ExternalEventID string         `db:"external_event_id"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newTaskRow(task *entities.Task) taskRow {
	row := taskRow{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Completed:       task.Completed,
		Priority:        string(task.Priority),
		Tags:            pq.StringArray(nonNilTags(task.Tags)),
		ExternalEventID: task.ExternalEventID,
		CreatedAt:       task.CreatedAt.UTC(),
		UpdatedAt:       task.UpdatedAt.UTC(),
	}
	if task.DueDate != nil {
		row.DueDate = sql.NullTime{Time: task.DueDate.UTC(), Valid: true}
	}
	return row
}

func (row taskRow) toEntity() *entities.Task {
	task := &entities.Task{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Completed:       row.Completed,
		Priority:        entities.Priority(row.Priority),
		Tags:            nonNilTags(row.Tags),
		ExternalEventID: row.ExternalEventID,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.DueDate.Valid {
		due := row.DueDate.Time.UTC()
		task.DueDate = &due
	}
	return task
}

// PostgresTaskRepository implements ports.TaskRepository on PostgreSQL
type PostgresTaskRepository struct {
	db *database.DB
}

// NewPostgresTaskRepository creates a new PostgreSQL task repository
func NewPostgresTaskRepository(db *database.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

var _ ports.TaskRepository = (*PostgresTaskRepository)(nil)

func (r *PostgresTaskRepository) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO todos (id, title, description, completed, priority, due_date, tags,
			external_event_id, created_at, updated_at)
		VALUES (:id, :title, :description, :completed, :priority, :due_date, :tags,
			:external_event_id, :created_at, :updated_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, newTaskRow(task)); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *PostgresTaskRepository) List(ctx context.Context) ([]*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM todos ORDER BY created_at DESC, id DESC`

	var rows []taskRow
	if err := r.db.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toEntity())
	}
	return tasks, nil
}

func (r *PostgresTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM todos WHERE id = $1`

	var row taskRow
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		return nil, taskQueryError("get task by id", err)
	}

	return row.toEntity(), nil
}

func (r *PostgresTaskRepository) Update(ctx context.Context, id string, mutate ports.TaskMutator) (*entities.Task, error) {
	var updated *entities.Task

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		var row taskRow
		query := `SELECT ` + taskColumns + ` FROM todos WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			return taskQueryError("lock task", err)
		}

		task := row.toEntity()
		if err := mutate(task); err != nil {
			return err
		}
		task.ID = row.ID
		task.CreatedAt = row.CreatedAt.UTC()

		update := `
			UPDATE todos
			SET title = :title, description = :description, completed = :completed,
				priority = :priority, due_date = :due_date, tags = :tags,
				external_event_id = :external_event_id, updated_at = :updated_at
			WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, update, newTaskRow(task)); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *PostgresTaskRepository) Delete(ctx context.Context, id string) (*entities.Task, error) {
	query := `DELETE FROM todos WHERE id = $1 RETURNING ` + taskColumns

	var row taskRow
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		return nil, taskQueryError("delete task", err)
	}

	return row.toEntity(), nil
}

func (r *PostgresTaskRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Stats returns connection pool statistics
func (r *PostgresTaskRepository) Stats() map[string]interface{} {
	return r.db.GetConnectionInfo()
}

func (r *PostgresTaskRepository) Close() error {
	return r.db.Close()
}

// taskQueryError maps a missing row onto ErrTaskNotFound
func taskQueryError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
