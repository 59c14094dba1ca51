package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/repository"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/application/services"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeProvider struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, p.err
	}
	return p.token, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	inserted []*entities.CalendarEvent
	deleted  []string
	tokens   []string
	err      error
}

func (g *fakeGateway) InsertEvent(ctx context.Context, token *oauth2.Token, event *entities.CalendarEvent) (*ports.SyncedEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append(g.tokens, token.AccessToken)
	if g.err != nil {
		return nil, g.err
	}
	g.inserted = append(g.inserted, event)
	return &ports.SyncedEvent{ID: "evt_1", HTMLLink: "https://calendar.example.com/evt_1"}, nil
}

func (g *fakeGateway) DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = append(g.tokens, token.AccessToken)
	if g.err != nil {
		return g.err
	}
	g.deleted = append(g.deleted, eventID)
	return nil
}

// brokenRepo fails every call with a store error.
type brokenRepo struct{}

var errStoreDown = errors.New("connection refused to 10.0.0.5:27017")

func (brokenRepo) Create(context.Context, *entities.Task) error { return errStoreDown }
func (brokenRepo) List(context.Context) ([]*entities.Task, error) {
	return nil, errStoreDown
}
func (brokenRepo) GetByID(context.Context, string) (*entities.Task, error) {
	return nil, errStoreDown
}
func (brokenRepo) Update(context.Context, string, ports.TaskMutator) (*entities.Task, error) {
	return nil, errStoreDown
}
func (brokenRepo) Delete(context.Context, string) (*entities.Task, error) {
	return nil, errStoreDown
}
func (brokenRepo) Ping(context.Context) error { return errStoreDown }
func (brokenRepo) Close() error               { return nil }

type testEnv struct {
	echo     *echo.Echo
	provider *fakeProvider
	gateway  *fakeGateway
	cookies  *SessionCookies
	repo     ports.TaskRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := repository.Open(context.Background(), config.DatabaseConfig{URL: "sqlite::memory:"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return newTestEnvWithRepo(t, repo)
}

func newTestEnvWithRepo(t *testing.T, repo ports.TaskRepository) *testEnv {
	t.Helper()

	log := logger.NewNop()
	provider := &fakeProvider{token: &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(30 * time.Minute),
	}}
	gateway := &fakeGateway{}

	sealer, err := NewCookieSealer(testSecret)
	require.NoError(t, err)
	cookies := NewSessionCookies(sealer, false)

	taskService := services.NewTaskService(repo, nil, log)
	authService := services.NewCalendarAuthService(provider,
		config.GoogleConfig{ExchangeTimeout: 5 * time.Second},
		config.SessionConfig{Secret: testSecret, StateTTL: 10 * time.Minute},
		nil, log)
	syncService := services.NewCalendarSyncService(gateway, nil, log)

	renderer, err := NewTemplateRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Validator = services.NewRequestValidator()
	tasks := NewTaskHandler(taskService, log)
	calendar := NewCalendarHandler(authService, syncService, cookies, log)
	ui := NewUIHandler("UHaveToDo", taskService, cookies, log)

	e.GET("/api/todos", tasks.ListTasks)
	e.POST("/api/todos", tasks.CreateTask)
	e.PUT("/api/todos", tasks.UpdateTask)
	e.DELETE("/api/todos", tasks.DeleteTask)
	e.GET("/api/google-calendar/auth", calendar.Authorize)
	e.GET("/api/google-calendar/callback", calendar.Callback)
	e.GET("/api/google-calendar/status", calendar.Status)
	e.POST("/api/google-calendar/disconnect", calendar.Disconnect)
	e.POST("/api/google-calendar/sync", calendar.Sync)
	e.DELETE("/api/google-calendar/sync", calendar.DeleteEvent)
	e.GET("/todos", ui.Todos)
	e.GET("/", ui.Home)
	e.StaticFS("/static", StaticFS())

	return &testEnv{echo: e, provider: provider, gateway: gateway, cookies: cookies, repo: repo}
}

func (env *testEnv) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

// sealedAccessCookie builds the cookie a connected browser would send.
func (env *testEnv) sealedAccessCookie(t *testing.T, accessToken string) *http.Cookie {
	t.Helper()

	sealer, err := NewCookieSealer(testSecret)
	require.NoError(t, err)
	value, err := sealer.Seal(AccessTokenCookie, accessToken)
	require.NoError(t, err)
	return &http.Cookie{Name: AccessTokenCookie, Value: value}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
