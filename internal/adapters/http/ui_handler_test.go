package http

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/todos", rec.Header().Get("Location"))
}

func TestTodosPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>UHaveToDo</title>")
	assert.Contains(t, body, "Nothing to do yet.")
	assert.Contains(t, body, `data-connected="false"`)
	assert.Contains(t, body, `maxlength="100"`)

	env.createTask(t, `{"title":"<b>Pay rent</b>","priority":"high","dueDate":"2024-05-01T09:00:00Z","tags":["bills"]}`)

	rec = env.do(t, http.MethodGet, "/todos", "", env.sealedAccessCookie(t, "access-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "&lt;b&gt;Pay rent&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Pay rent</b>")
	assert.Contains(t, body, "priority-high")
	assert.Contains(t, body, "May 1, 2024 09:00 UTC")
	assert.Contains(t, body, `<span class="tag">bills</span>`)
	assert.Contains(t, body, `data-connected="true"`)
	assert.NotContains(t, body, "Nothing to do yet.")
}

func TestTodosPageSurvivesStoreFailure(t *testing.T) {
	env := newTestEnvWithRepo(t, brokenRepo{})

	rec := env.do(t, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nothing to do yet.")
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"todos.js", "todos.css"} {
		rec := env.do(t, http.MethodGet, "/static/"+name, "")
		require.Equal(t, http.StatusOK, rec.Code, name)

		f, err := StaticFS().Open(name)
		require.NoError(t, err)
		want, err := io.ReadAll(f)
		require.NoError(t, err)
		_ = f.Close()
		assert.Equal(t, string(want), rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/static/missing.js", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScriptOnlyOffersSyncForDatedTasks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/static/todos.js", "")
	require.Equal(t, http.StatusOK, rec.Code)

	script := rec.Body.String()
	assert.Contains(t, script, "!state.connected || !todo.dueDate")
	assert.Contains(t, script, `alert("Set a due date before syncing")`)
}
