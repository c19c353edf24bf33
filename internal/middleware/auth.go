package middleware

import (
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/orbitdesk/tracker/internal/constants"
	apierrors "github.com/orbitdesk/tracker/internal/errors"
	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/services"
)

const contextKeyViewer = "viewer"

// RequireAuth checks the session and attaches an explicit ViewerContext to
// the request. Handlers pass that value into the engine instead of reading
// ambient auth state.
func RequireAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)

		if userID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		id, ok := toUint64(userID)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := auth.GetUser(id)
		if err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, id)
		c.Set(contextKeyViewer, models.ViewerContext{
			ID:       strconv.FormatUint(user.ID, 10),
			Name:     user.Name,
			Role:     user.Role,
			PhotoURL: user.PhotoURL,
		})
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetViewer retrieves the viewer context set by RequireAuth.
func GetViewer(c *gin.Context) (models.ViewerContext, bool) {
	v, exists := c.Get(contextKeyViewer)
	if !exists {
		return models.ViewerContext{}, false
	}
	viewer, ok := v.(models.ViewerContext)
	return viewer, ok
}

// SetViewer injects a viewer context directly; used by tests.
func SetViewer(c *gin.Context, viewer models.ViewerContext) {
	c.Set(contextKeyViewer, viewer)
}

func toUint64(v any) (uint64, bool) {
	switch val := v.(type) {
	case uint64:
		return val, true
	case uint:
		return uint64(val), true
	case int64:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	default:
		return 0, false
	}
}
