package http

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/application/services"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
)

//go:embed web/todos.html web/static
var webFiles embed.FS

// StaticFS returns the stylesheet and script served under /static
func StaticFS() fs.FS {
	sub, err := fs.Sub(webFiles, "web/static")
	if err != nil {
		panic(fmt.Sprintf("embedded static files missing: %v", err))
	}
	return sub
}

// TemplateRenderer implements echo.Renderer with html/template
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the embedded page templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatDue": func(t *time.Time) string {
			return t.UTC().Format("Jan 2, 2006 15:04 UTC")
		},
	}).ParseFS(webFiles, "web/todos.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// Render executes the named template
func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type todosPage struct {
	AppName        string
	Tasks          []*entities.Task
	Connected      bool
	MaxTitle       int
	MaxDescription int
}

// UIHandler serves the task list page
type UIHandler struct {
	appName     string
	taskService *services.TaskService
	cookies     *SessionCookies
	logger      *logger.Logger
}

// NewUIHandler creates a new UI handler
func NewUIHandler(appName string, taskService *services.TaskService, cookies *SessionCookies, logger *logger.Logger) *UIHandler {
	return &UIHandler{
		appName:     appName,
		taskService: taskService,
		cookies:     cookies,
		logger:      logger,
	}
}

// Todos renders the task list. A store failure still renders the page with
// an empty list; the script reports the error when it reloads.
func (h *UIHandler) Todos(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context())
	if err != nil {
		h.logger.Errorw("Render task list failed", "error", err)
		tasks = []*entities.Task{}
	}

	return c.Render(http.StatusOK, "todos.html", todosPage{
		AppName:        h.appName,
		Tasks:          tasks,
		Connected:      h.cookies.Token(c) != nil,
		MaxTitle:       entities.MaxTitleLength,
		MaxDescription: entities.MaxDescriptionLength,
	})
}

// Home sends the browser to the task list
func (h *UIHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/todos")
}
