package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/sequence"
	"github.com/orbitdesk/tracker/internal/services"
	"github.com/orbitdesk/tracker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyEnv struct {
	router  *gin.Engine
	tasks   *services.TaskService
	project *models.Project
	viewer  models.ViewerContext
}

func setupNotifyEnv(t *testing.T) notifyEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := store.NewMemory()
	allocator := sequence.New(m)
	projects := services.NewProjectService(m, allocator)
	tasks := services.NewTaskService(m, projects, allocator, nil)

	project, err := projects.CreateProject(context.Background(), services.CreateProjectInput{Title: "Website"})
	require.NoError(t, err)

	require.NoError(t, tasks.Start())
	t.Cleanup(tasks.Stop)

	viewer := models.ViewerContext{ID: "2", Name: "Bob", Role: "user"}
	handler := NewNotifyHandler(tasks)

	r := gin.New()
	r.Use(sessions.Sessions("tracker_session", cookie.NewStore([]byte("secret"))))
	group := r.Group("/api/notifications")
	group.Use(injectViewer(viewer))
	{
		group.GET("/unread", handler.Unread)
		group.POST("/seen", handler.MarkAllSeen)
	}

	return notifyEnv{router: r, tasks: tasks, project: project, viewer: viewer}
}

func notifyRequest(t *testing.T, env notifyEnv, method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestNotifyHandler_UnreadLifecycle(t *testing.T) {
	env := setupNotifyEnv(t)
	ctx := context.Background()

	creator := models.ViewerContext{ID: "1", Name: "Alice", Role: "admin"}
	_, err := env.tasks.CreateTask(ctx, services.CreateTaskInput{
		Title: "For Bob", ProjectID: env.project.ID, AssignedTo: "2",
	}, creator)
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, services.CreateTaskInput{
		Title: "Not for Bob", ProjectID: env.project.ID, AssignedTo: "9",
	}, creator)
	require.NoError(t, err)

	// Fresh session: everything relevant is unread.
	w := notifyRequest(t, env, http.MethodGet, "/api/notifications/unread", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Unread []struct{ Title string } `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Unread, 1)
	assert.Equal(t, "For Bob", resp.Unread[0].Title)

	// Mark seen; the watermark rides the session cookie.
	w = notifyRequest(t, env, http.MethodPost, "/api/notifications/seen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	seenCookies := w.Result().Cookies()
	require.NotEmpty(t, seenCookies)

	w = notifyRequest(t, env, http.MethodGet, "/api/notifications/unread", seenCookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Unread)
}

func TestNotifyHandler_DeletedTasksExcluded(t *testing.T) {
	env := setupNotifyEnv(t)
	ctx := context.Background()

	creator := models.ViewerContext{ID: "1", Name: "Alice", Role: "admin"}
	task, err := env.tasks.CreateTask(ctx, services.CreateTaskInput{
		Title: "Soon gone", ProjectID: env.project.ID, AssignedTo: "2",
	}, creator)
	require.NoError(t, err)
	require.NoError(t, env.tasks.SoftDelete(ctx, task.ID, creator))

	w := notifyRequest(t, env, http.MethodGet, "/api/notifications/unread", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Unread []struct{ Title string } `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Unread)
}
