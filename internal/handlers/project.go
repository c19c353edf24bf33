package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orbitdesk/tracker/internal/dto"
	apierrors "github.com/orbitdesk/tracker/internal/errors"
	"github.com/orbitdesk/tracker/internal/middleware"
	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/services"
)

// ProjectHandler coordinates project registry HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProject creates a new project. The key is derived from the title
// server-side; clients never choose it.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Type        string   `json:"type"`
		Priority    string   `json:"priority"`
		Visibility  string   `json:"visibility"`
		Color       string   `json:"color"`
		Emoji       string   `json:"emoji"`
		StartDate   string   `json:"start_date"`
		TargetDate  string   `json:"target_date"`
		MemberIDs   []string `json:"member_ids"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, _ := middleware.GetViewer(c)

	project, err := h.projectService.CreateProject(c.Request.Context(), services.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		Visibility:  models.ProjectVisibility(req.Visibility),
		Color:       req.Color,
		Emoji:       req.Emoji,
		StartDate:   req.StartDate,
		TargetDate:  req.TargetDate,
		MemberIDs:   req.MemberIDs,
		Owner:       viewer.ID,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns all projects ordered by creation time.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjects(c.Request.Context())
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch projects")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": dto.ToProjectDTOs(projects),
	})
}

// GetProject returns a single project by id.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateTeam replaces the project's membership set.
func (h *ProjectHandler) UpdateTeam(c *gin.Context) {
	type UpdateTeamRequest struct {
		MemberIDs []string `json:"member_ids"`
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.projectService.UpdateTeam(c.Request.Context(), c.Param("id"), req.MemberIDs); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Team updated"})
}

// UpdateStatus moves the project through its lifecycle.
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	type UpdateStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	err := h.projectService.UpdateStatus(c.Request.Context(), c.Param("id"), models.ProjectStatus(req.Status))
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// DeleteProject removes a project. Without ?confirm=true the request fails
// with 409 and the count of attached tasks, so clients can prompt before the
// reassign-then-remove sequence runs.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"

	err := h.projectService.DeleteProject(c.Request.Context(), c.Param("id"), confirmed)
	if err != nil {
		var conflict *services.ProjectDeletionConflict
		if errors.As(err, &conflict) {
			apierrors.ConflictWithDetails(c, "Project has active tasks attached", gin.H{
				"task_count": conflict.TaskCount,
			})
			return
		}
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectTitleRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
