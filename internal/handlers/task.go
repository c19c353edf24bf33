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
	"github.com/orbitdesk/tracker/internal/utils"
	"github.com/orbitdesk/tracker/internal/view"
)

// TaskHandler coordinates task HTTP handlers. List endpoints read the sync
// snapshot; mutations go through the service which writes through to the
// store.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks visible to the viewer under the query filters,
// paginated. Counts in the response are the per-tab badge numbers and come
// from the visibility-filtered set only, so they do not shrink when field
// filters are applied.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	filters := view.Filters{
		Tab:       c.Query("tab"),
		Category:  c.Query("category"),
		Priority:  c.Query("priority"),
		Assignee:  c.Query("assignee"),
		IssueType: c.Query("issue_type"),
		ProjectID: c.Query("project_id"),
		Search:    c.Query("search"),
		Sort:      c.Query("sort"),
	}

	snapshot := h.taskService.Snapshot()
	tasks := view.Apply(snapshot, viewer, filters)

	params := utils.GetPaginationParams(c)
	page := utils.Paginate(tasks, params)

	c.JSON(http.StatusOK, gin.H{
		"tasks":  dto.ToTaskListItems(page),
		"counts": view.TabCounts(snapshot, viewer),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(tasks),
		},
	})
}

// TabCounts returns only the badge counts, for clients that refresh badges
// without refetching the list.
func (h *TaskHandler) TabCounts(c *gin.Context) {
	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counts": view.TabCounts(h.taskService.Snapshot(), viewer),
	})
}

// CreateTask creates a top-level task in a project.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Priority    string   `json:"priority"`
		IssueType   string   `json:"issue_type"`
		Status      string   `json:"status"`
		DueDate     string   `json:"due_date"`
		StoryPoints int      `json:"story_points"`
		Labels      []string `json:"labels"`
		AssignedTo  string   `json:"assigned_to"`
		ProjectID   string   `json:"project_id" binding:"required"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		IssueType:   models.IssueType(req.IssueType),
		Status:      models.TaskStatus(req.Status),
		DueDate:     req.DueDate,
		StoryPoints: req.StoryPoints,
		Labels:      req.Labels,
		AssignedTo:  req.AssignedTo,
		ProjectID:   req.ProjectID,
	}, viewer)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a task with its flattened history, comments, attachments
// and ordered subtasks.
func (h *TaskHandler) GetTask(c *gin.Context) {
	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	if !view.Visible(*task, viewer) {
		apierrors.NotFound(c, services.ErrTaskNotFound.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":     dto.ToTaskDTO(*task),
		"subtasks": dto.ToTaskListItems(h.taskService.SubtasksOf(task.ID)),
	})
}

// UpdateField applies a single-field partial update.
func (h *TaskHandler) UpdateField(c *gin.Context) {
	type UpdateFieldRequest struct {
		Field string `json:"field" binding:"required"`
		Value any    `json:"value"`
	}

	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.UpdateField(c.Request.Context(), c.Param("id"), req.Field, req.Value, viewer); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
}

// UpdateStatus moves the task to a new status column.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	type UpdateStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	err := h.taskService.UpdateStatus(c.Request.Context(), c.Param("id"), models.TaskStatus(req.Status), viewer)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// DeleteTask soft-deletes the task; it moves to the Deleted tab and can be
// restored.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.SoftDelete(c.Request.Context(), c.Param("id"), viewer); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task moved to deleted"})
}

// RestoreTask clears the delete markers.
func (h *TaskHandler) RestoreTask(c *gin.Context) {
	if err := h.taskService.Restore(c.Request.Context(), c.Param("id")); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task restored"})
}

// PurgeTask permanently removes the task node and all children. Irreversible.
func (h *TaskHandler) PurgeTask(c *gin.Context) {
	if err := h.taskService.Purge(c.Request.Context(), c.Param("id")); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task permanently deleted"})
}

// AddComment appends an immutable comment.
func (h *TaskHandler) AddComment(c *gin.Context) {
	type AddCommentRequest struct {
		Body string `json:"body" binding:"required"`
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.AddComment(c.Request.Context(), c.Param("id"), req.Body, viewer); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Comment added"})
}

// AddAttachment records attachment metadata. The blob itself is uploaded to
// external storage out of band.
func (h *TaskHandler) AddAttachment(c *gin.Context) {
	type AddAttachmentRequest struct {
		Name        string `json:"name" binding:"required"`
		Size        int64  `json:"size"`
		ContentType string `json:"content_type"`
		StoragePath string `json:"storage_path"`
	}

	var req AddAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	err := h.taskService.AddAttachment(c.Request.Context(), c.Param("id"), services.AttachmentInput{
		Name:        req.Name,
		Size:        req.Size,
		ContentType: req.ContentType,
		StoragePath: req.StoragePath,
	}, viewer)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Attachment added"})
}

// RemoveAttachment drops an attachment record by its key.
func (h *TaskHandler) RemoveAttachment(c *gin.Context) {
	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	err := h.taskService.RemoveAttachment(c.Request.Context(), c.Param("id"), c.Param("key"), viewer)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attachment removed"})
}

// CreateSubtask creates a child task under the parent. Unset inheritable
// fields take the parent's values.
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	type CreateSubtaskRequest struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Priority    string   `json:"priority"`
		AssignedTo  string   `json:"assigned_to"`
		Labels      []string `json:"labels"`
		DueDate     string   `json:"due_date"`
	}

	var req CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	viewer, ok := middleware.GetViewer(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.CreateSubtask(c.Request.Context(), services.CreateSubtaskInput{
		ParentID:    c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		Labels:      req.Labels,
		DueDate:     req.DueDate,
	}, viewer)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListSubtasks returns the ordered subtasks of a parent.
func (h *TaskHandler) ListSubtasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"subtasks": dto.ToTaskListItems(h.taskService.SubtasksOf(c.Param("id"))),
	})
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskTitleRequired),
		errors.Is(err, services.ErrTaskProjectRequired),
		errors.Is(err, services.ErrCommentBodyRequired),
		errors.Is(err, services.ErrUnknownField):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrAttachmentNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
