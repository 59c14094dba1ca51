package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/application/services"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks godoc
// @Summary List tasks
// @Description List every task, newest first. With ?id= returns that single task.
// @Tags todos
// @Produce json
// @Param id query string false "Task ID"
// @Success 200 {object} APIResponse{data=[]entities.Task}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /todos [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	if id := strings.TrimSpace(c.QueryParam("id")); id != "" {
		task, err := h.taskService.GetTask(c.Request().Context(), id)
		if err != nil {
			return h.fail(c, err, "Get task failed")
		}
		return c.JSON(http.StatusOK, success(task))
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "List tasks failed")
	}

	return c.JSON(http.StatusOK, success(tasks))
}

// CreateTask godoc
// @Summary Create a task
// @Tags todos
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} APIResponse{data=entities.Task}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /todos [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, failure("Invalid request body"))
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err, "Create task failed")
	}

	return c.JSON(http.StatusCreated, success(task))
}

// UpdateTask godoc
// @Summary Update a task
// @Description Partial update. Only the fields present in the body change.
// @Tags todos
// @Accept json
// @Produce json
// @Param id query string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} APIResponse{data=entities.Task}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /todos [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, failure("Task ID is required"))
	}

	var req ports.UpdateTaskRequest
	if err := decodeStrictJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, failure("Invalid request body"))
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err, "Update task failed")
	}

	return c.JSON(http.StatusOK, success(task))
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags todos
// @Produce json
// @Param id query string true "Task ID"
// @Success 200 {object} APIResponse{data=EmptyData}
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /todos [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, failure("Task ID is required"))
	}

	if _, err := h.taskService.DeleteTask(c.Request().Context(), id); err != nil {
		return h.fail(c, err, "Delete task failed")
	}

	return c.JSON(http.StatusOK, success(EmptyData{}))
}

// fail maps service errors onto the envelope. Internal error text is only
// logged.
func (h *TaskHandler) fail(c echo.Context, err error, msg string) error {
	var verr *entities.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, failure(verr.Error()))
	case errors.Is(err, entities.ErrTaskNotFound):
		return c.JSON(http.StatusBadRequest, failure("Task not found"))
	default:
		h.logger.Errorw(msg, "error", err, "request_id", requestID(c))
		return c.JSON(http.StatusInternalServerError, failure("Internal server error"))
	}
}

// decodeStrictJSON reads a patch body. Unknown keys and trailing data are
// rejected so a typo never turns into a silent no-op.
func decodeStrictJSON(c echo.Context, v interface{}) error {
	body := c.Request().Body
	if body == nil {
		return errors.New("empty body")
	}

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
