package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/orbitdesk/tracker/internal/constants"
	"github.com/orbitdesk/tracker/internal/dto"
	apierrors "github.com/orbitdesk/tracker/internal/errors"
	"github.com/orbitdesk/tracker/internal/middleware"
	"github.com/orbitdesk/tracker/internal/notify"
	"github.com/orbitdesk/tracker/internal/services"
)

// NotifyHandler exposes the unread preview. The per-viewer watermark rides in
// the durable session store, so it survives restarts alongside the login.
type NotifyHandler struct {
	taskService *services.TaskService
}

// NewNotifyHandler creates a new NotifyHandler.
func NewNotifyHandler(taskService *services.TaskService) *NotifyHandler {
	return &NotifyHandler{
		taskService: taskService,
	}
}

// Unread returns the viewer-relevant tasks with activity newer than the
// watermark, newest first.
func (h *NotifyHandler) Unread(c *gin.Context) {
	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	limit := constants.DefaultUnreadPreview
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	lastSeen := sessionLastSeen(c)
	unread := notify.Unread(h.taskService.Snapshot(), viewer.ID, lastSeen, limit)

	c.JSON(http.StatusOK, gin.H{
		"unread":    dto.ToTaskListItems(unread),
		"last_seen": lastSeen,
	})
}

// MarkAllSeen moves the watermark to now; the unread set becomes empty until
// new activity lands.
func (h *NotifyHandler) MarkAllSeen(c *gin.Context) {
	if _, ok := middleware.GetViewer(c); !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	// The session carries millisecond precision; round up so activity in the
	// current instant counts as seen.
	now := time.Now()
	millis := now.UnixMilli()
	if time.UnixMilli(millis).Before(now) {
		millis++
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyLastSeen, millis)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "All notifications marked seen",
		"last_seen": time.UnixMilli(millis),
	})
}

func sessionLastSeen(c *gin.Context) time.Time {
	raw := sessions.Default(c).Get(constants.SessionKeyLastSeen)
	millis, ok := raw.(int64)
	if !ok || millis <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
