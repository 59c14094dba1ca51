package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// TaskService handles task-related operations
type TaskService struct {
	taskRepo ports.TaskRepository
	validate *validator.Validate
	metrics  ports.MetricsRecorder
	logger   *logger.Logger
	now      func() time.Time
}

// NewTaskService creates a new task service. metrics may be nil.
func NewTaskService(taskRepo ports.TaskRepository, metrics ports.MetricsRecorder, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		validate: newValidator(),
		metrics:  metrics,
		logger:   logger.WithComponent("task_service"),
		now:      time.Now,
	}
}

// CreateTask creates a new task
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	dueDate, err := entities.ParseDueDate(req.DueDate)
	if err != nil {
		return nil, entities.NewValidationError("dueDate", "format")
	}

	now := s.timestamp()
	task := &entities.Task{
		Title:           req.Title,
		Description:     req.Description,
		Completed:       req.Completed,
		Priority:        normalizePriority(req.Priority),
		DueDate:         dueDate,
		Tags:            req.Tags,
		ExternalEventID: req.ExternalEventID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	task.Normalize()

	if err := validateStruct(s.validate, task); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task id: %w", err)
	}
	task.ID = id.String()

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.record("create")
	s.logger.WithTaskID(task.ID).LogTaskAction("create", map[string]interface{}{"priority": task.Priority})

	return task, nil
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, id string) (*entities.Task, error) {
	if err := checkTaskID(id); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks returns every task, newest first
func (s *TaskService) ListTasks(ctx context.Context) ([]*entities.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if tasks == nil {
		tasks = []*entities.Task{}
	}
	return tasks, nil
}

// UpdateTask applies a partial update. The patch is checked before the store
// is touched and the merged task is validated again inside the store update.
func (s *TaskService) UpdateTask(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if err := checkTaskID(id); err != nil {
		return nil, err
	}

	if req.IsEmpty() {
		return nil, entities.NewValidationError("body", "empty")
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := entities.ParseDueDate(*req.DueDate)
		if err != nil {
			return nil, entities.NewValidationError("dueDate", "format")
		}
		dueDate = parsed
	}

	updated, err := s.taskRepo.Update(ctx, id, func(task *entities.Task) error {
		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Completed != nil {
			task.Completed = *req.Completed
		}
		if req.Priority != nil {
			task.Priority = normalizePriority(*req.Priority)
		}
		if req.DueDate != nil {
			task.DueDate = dueDate
		}
		if req.Tags != nil {
			task.Tags = *req.Tags
		}
		if req.ExternalEventID != nil {
			task.ExternalEventID = *req.ExternalEventID
		}
		task.Normalize()

		if err := validateStruct(s.validate, task); err != nil {
			return err
		}

		task.UpdatedAt = s.nextUpdatedAt(task.UpdatedAt)
		return nil
	})
	if err != nil {
		if errors.Is(err, entities.ErrConcurrentUpdate) {
			s.logger.WithTaskID(id).WithError(err).Warn("Task update kept conflicting with other writers")
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.record("update")
	s.logger.WithTaskID(updated.ID).LogTaskAction("update", map[string]interface{}{"completed": updated.Completed})

	return updated, nil
}

// DeleteTask deletes a task and returns the removed record
func (s *TaskService) DeleteTask(ctx context.Context, id string) (*entities.Task, error) {
	if err := checkTaskID(id); err != nil {
		return nil, err
	}

	deleted, err := s.taskRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	s.record("delete")
	s.logger.WithTaskID(deleted.ID).LogTaskAction("delete", nil)

	return deleted, nil
}

// timestamp is the current time as the stores persist it.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// nextUpdatedAt keeps updatedAt strictly increasing even when two updates
// land within the same millisecond.
func (s *TaskService) nextUpdatedAt(previous time.Time) time.Time {
	now := s.timestamp()
	if !now.After(previous) {
		return previous.Add(time.Millisecond)
	}
	return now
}

func (s *TaskService) record(operation string) {
	if s.metrics != nil {
		s.metrics.TaskMutation(operation)
	}
}

func normalizePriority(p entities.Priority) entities.Priority {
	return entities.Priority(strings.ToLower(strings.TrimSpace(string(p))))
}

// checkTaskID rejects ids that cannot name any stored task.
func checkTaskID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrTaskNotFound, entities.ErrInvalidTaskID)
	}
	return nil
}

// IsNotFound reports whether err means the task does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, entities.ErrTaskNotFound)
}
