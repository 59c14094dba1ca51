package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/database"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// taskModel is the gorm model of the todos table
type taskModel struct {
	ID              string     `gorm:"primaryKey;type:text"`
	Title           string     `gorm:"not null"`
	Description     string     `gorm:"not null"`
	Completed       bool       `gorm:"not null"`
	Priority        string     `gorm:"not null"`
	DueDate         *time.Time `gorm:"column:due_date"`
	Tags            []string   `gorm:"serializer:json;type:text"`
	ExternalEventID string     `gorm:"not null"`
	CreatedAt       time.Time  `gorm:"autoCreateTime:false;index:idx_todos_created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime:false"`
}

func (taskModel) TableName() string {
	return "todos"
}

func newTaskModel(task *entities.Task) *taskModel {
	m := &taskModel{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Completed:       task.Completed,
		Priority:        string(task.Priority),
		Tags:            nonNilTags(task.Tags),
		ExternalEventID: task.ExternalEventID,
		CreatedAt:       task.CreatedAt.UTC(),
		UpdatedAt:       task.UpdatedAt.UTC(),
	}
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		m.DueDate = &due
	}
	return m
}

func (m *taskModel) toEntity() *entities.Task {
	task := &entities.Task{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Completed:       m.Completed,
		Priority:        entities.Priority(m.Priority),
		Tags:            nonNilTags(m.Tags),
		ExternalEventID: m.ExternalEventID,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.DueDate != nil {
		due := m.DueDate.UTC()
		task.DueDate = &due
	}
	return task
}

// SQLiteTaskRepository implements ports.TaskRepository on an embedded SQLite
// database through gorm
type SQLiteTaskRepository struct {
	db *database.SQLiteDB
}

// NewSQLiteTaskRepository creates the repository and migrates the schema
func NewSQLiteTaskRepository(db *database.SQLiteDB) (*SQLiteTaskRepository, error) {
	if err := db.DB.AutoMigrate(&taskModel{}); err != nil {
		return nil, fmt.Errorf("migrate todos: %w", err)
	}
	return &SQLiteTaskRepository{db: db}, nil
}

var _ ports.TaskRepository = (*SQLiteTaskRepository)(nil)

func (r *SQLiteTaskRepository) Create(ctx context.Context, task *entities.Task) error {
	if err := r.db.DB.WithContext(ctx).Create(newTaskModel(task)).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepository) List(ctx context.Context) ([]*entities.Task, error) {
	var models []taskModel
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, models[i].toEntity())
	}
	return tasks, nil
}

func (r *SQLiteTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	m, err := first(r.db.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return m.toEntity(), nil
}

func (r *SQLiteTaskRepository) Update(ctx context.Context, id string, mutate ports.TaskMutator) (*entities.Task, error) {
	var updated *entities.Task

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := first(tx, id)
		if err != nil {
			return err
		}

		task := current.toEntity()
		if err := mutate(task); err != nil {
			return err
		}
		task.ID = current.ID
		task.CreatedAt = current.CreatedAt.UTC()

		if err := tx.Save(newTaskModel(task)).Error; err != nil {
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

func (r *SQLiteTaskRepository) Delete(ctx context.Context, id string) (*entities.Task, error) {
	var deleted *entities.Task

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := first(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(&taskModel{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}

		deleted = current.toEntity()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (r *SQLiteTaskRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func (r *SQLiteTaskRepository) Close() error {
	return r.db.Close()
}

func first(db *gorm.DB, id string) (*taskModel, error) {
	var m taskModel
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return &m, nil
}
