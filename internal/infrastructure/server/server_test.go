package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"

	httpHandlers "github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/http"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/adapters/repository"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}, nil
}

type fakeCalendar struct {
	mu     sync.Mutex
	events map[string]*entities.CalendarEvent
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, token *oauth2.Token, event *entities.CalendarEvent) (*ports.SyncedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "evt_" + strings.ReplaceAll(strings.ToLower(event.Summary), " ", "_")
	f.events[id] = event
	return &ports.SyncedEvent{ID: id}, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, eventID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "UHaveToDo", Version: "test", Environment: "development"},
		Server:  config.ServerConfig{Port: 3000, RequestTimeout: 5 * time.Second},
		Google:  config.GoogleConfig{CalendarID: "primary", ExchangeTimeout: 5 * time.Second},
		Session: config.SessionConfig{Secret: "0123456789abcdef0123456789abcdef", StateTTL: 10 * time.Minute},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "http://localhost:3000",
			RateLimitRequests:  1000,
			RateLimitWindow:    time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, cfg *config.Config) (*client, *fakeCalendar) {
	t.Helper()

	store, err := repository.Open(context.Background(), config.DatabaseConfig{URL: "sqlite::memory:"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	calendar := &fakeCalendar{events: map[string]*entities.CalendarEvent{}}
	srv, err := New(cfg, Dependencies{Store: store, OAuth: fakeProvider{}, Calendar: calendar}, logger.NewNop())
	require.NoError(t, err)

	return &client{t: t, handler: srv.Handler(), cookies: map[string]*http.Cookie{}}, calendar
}

// do sends a request like a browser would, keeping cookies between calls.
func (c *client) do(method, target, body string) *httptest.ResponseRecorder {
	c.t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
		} else {
			c.cookies[cookie.Name] = cookie
		}
	}
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func TestTaskLifecycleWithCalendarSync(t *testing.T) {
	c, calendar := newClient(t, testConfig())

	// Create
	rec := c.do(http.MethodPost, "/api/todos", `{"title":"Pay rent","priority":"high","dueDate":"2024-05-01T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task entities.Task
	decodeEnvelope(t, rec, &task)

	// List
	rec = c.do(http.MethodGet, "/api/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []entities.Task
	decodeEnvelope(t, rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	// Sync needs a connected calendar
	sync := `{"title":"Pay rent","dueDate":"2024-05-01T09:00:00Z","priority":"high"}`
	rec = c.do(http.MethodPost, "/api/google-calendar/sync", sync)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Connect
	rec = c.do(http.MethodGet, "/api/google-calendar/auth", "")
	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")

	rec = c.do(http.MethodGet, "/api/google-calendar/callback?code=xyz&state="+url.QueryEscape(state), "")
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/todos", rec.Header().Get("Location"))
	assert.Contains(t, c.cookies, httpHandlers.AccessTokenCookie)
	assert.Contains(t, c.cookies, httpHandlers.RefreshTokenCookie)
	assert.NotContains(t, c.cookies, httpHandlers.StateCookie)

	rec = c.do(http.MethodGet, "/api/google-calendar/status", "")
	assert.JSONEq(t, `{"connected":true}`, rec.Body.String())

	// Sync and link
	rec = c.do(http.MethodPost, "/api/google-calendar/sync", sync)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var synced ports.SyncedEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &synced))
	assert.Equal(t, "evt_pay_rent", synced.ID)
	assert.Equal(t, "11", calendar.events["evt_pay_rent"].ColorID)

	rec = c.do(http.MethodPut, "/api/todos?id="+task.ID, `{"externalEventId":"`+synced.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Complete
	rec = c.do(http.MethodPut, "/api/todos?id="+task.ID, `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated entities.Task
	decodeEnvelope(t, rec, &updated)
	assert.True(t, updated.Completed)
	assert.Equal(t, "evt_pay_rent", updated.ExternalEventID)

	// Delete event then task
	rec = c.do(http.MethodDelete, "/api/google-calendar/sync?eventId="+synced.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, calendar.events)

	rec = c.do(http.MethodDelete, "/api/todos?id="+task.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{}}`, rec.Body.String())

	// Disconnect
	rec = c.do(http.MethodPost, "/api/google-calendar/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodGet, "/api/google-calendar/status", "")
	assert.JSONEq(t, `{"connected":false}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	c, _ := newClient(t, testConfig())

	for _, path := range []string{"/health", "/health/detailed", "/ready"} {
		rec := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c, _ := newClient(t, testConfig())

	c.do(http.MethodPost, "/api/todos", `{"title":"counted"}`)

	rec := c.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tasks_mutations_total{operation="create"} 1`)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	c, _ = newClient(t, cfg)
	rec = c.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	c, _ := newClient(t, testConfig())

	rec := c.do(http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUnknownRoutesUseEnvelope(t *testing.T) {
	c, _ := newClient(t, testConfig())

	rec := c.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Not Found"}`, rec.Body.String())

	rec = c.do(http.MethodPatch, "/api/todos", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = c.do(http.MethodGet, "/api/google-calendar/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimitRequests = 2
	c, _ := newClient(t, cfg)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/todos", "").Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/todos", "").Code)

	rec := c.do(http.MethodGet, "/api/todos", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Rate limit exceeded"}`, rec.Body.String())

	// Health routes are not throttled.
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", "").Code)
}

func TestSwaggerDocument(t *testing.T) {
	c, _ := newClient(t, testConfig())

	rec := c.do(http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/todos")
	assert.Contains(t, rec.Body.String(), "/google-calendar/sync")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(testConfig(), Dependencies{}, logger.NewNop())
	assert.Error(t, err)
}

func TestNewRejectsClosedRateLimit(t *testing.T) {
	store, err := repository.Open(context.Background(), config.DatabaseConfig{URL: "sqlite::memory:"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	deps := Dependencies{Store: store, OAuth: fakeProvider{}, Calendar: &fakeCalendar{events: map[string]*entities.CalendarEvent{}}}

	cfg := testConfig()
	cfg.Security.RateLimitRequests = 0
	_, err = New(cfg, deps, logger.NewNop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Security.RateLimitWindow = 0
	_, err = New(cfg, deps, logger.NewNop())
	assert.Error(t, err)
}

func TestNoRequestDeadlineByDefault(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 0
	c, _ := newClient(t, cfg)

	rec := c.do(http.MethodPost, "/api/todos", `{"title":"No deadline"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.do(http.MethodGet, "/api/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No deadline")
}

func TestFailedRequestsAreLoggedWithMetricsEnabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	appLogger := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	store, err := repository.Open(context.Background(), config.DatabaseConfig{URL: "sqlite::memory:"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := testConfig()
	require.True(t, cfg.Metrics.Enabled)
	srv, err := New(cfg, Dependencies{Store: store, OAuth: fakeProvider{}, Calendar: &fakeCalendar{events: map[string]*entities.CalendarEvent{}}}, appLogger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Not Found"}`, rec.Body.String())

	failed := logs.FilterMessage("HTTP request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(http.StatusNotFound), failed[0].ContextMap()["status"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `status="404"`)
}
