package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/sequence"
	"github.com/orbitdesk/tracker/internal/store"
)

var (
	ErrTaskTitleRequired   = errors.New("task title is required")
	ErrTaskProjectRequired = errors.New("a project must be selected")
	ErrTaskNotFound        = errors.New("task not found")
	ErrCommentBodyRequired = errors.New("comment body is required")
	ErrAttachmentNotFound  = errors.New("attachment not found")
	ErrUnknownField        = errors.New("unknown task field")
)

// Directory resolves user ids to display data for denormalization. The
// directory stays authoritative; copies on tasks are a read cache.
type Directory interface {
	Lookup(id string) (models.DirectoryEntry, bool)
}

// TaskService is the single source of truth for the task collection. It
// mirrors the remote store through a subscription (task_sync.go) and exposes
// the mutation operations, each of which writes through to the store and
// appends audit history.
type TaskService struct {
	store     store.RemoteStore
	projects  *ProjectService
	allocator *sequence.Allocator
	directory Directory

	syncState
}

// NewTaskService creates a new TaskService.
func NewTaskService(s store.RemoteStore, projects *ProjectService, allocator *sequence.Allocator, directory Directory) *TaskService {
	svc := &TaskService{
		store:     s,
		projects:  projects,
		allocator: allocator,
		directory: directory,
	}
	svc.syncState.init()
	return svc
}

// CreateTaskInput represents input for creating a top-level task.
type CreateTaskInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	IssueType   models.IssueType
	Status      models.TaskStatus
	DueDate     string
	StoryPoints int
	Labels      []string
	AssignedTo  string
	ProjectID   string
}

// CreateTask allocates a ticket number and writes the full task node,
// including its initiating history entry, in a single combined write. A task
// is never observably created without that entry, and a failed allocation
// aborts the whole creation.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput, viewer models.ViewerContext) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTaskTitleRequired
	}
	if input.ProjectID == "" {
		return nil, ErrTaskProjectRequired
	}

	project, err := s.projects.GetProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	seq, err := s.projects.NextTicketSeq(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Priority:     input.Priority,
		IssueType:    defaultIssueType(input.IssueType),
		Status:       defaultStatus(input.Status),
		DueDate:      input.DueDate,
		StoryPoints:  input.StoryPoints,
		Labels:       input.Labels,
		ProjectID:    project.ID,
		ProjectKey:   project.Key,
		ProjectTitle: project.Title,
		TicketKey:    models.FormatTicket(project.Key, seq),
		TicketSeq:    seq,
		CreatedBy:    viewer.ID,
		CreatedByName: viewer.Name,
		CreatedByAvatar: viewer.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.applyAssignee(task, input.AssignedTo)

	task.History = map[string]models.HistoryEntry{
		models.HistoryKey(now): {
			Action:    models.HistoryCreated,
			Actor:     viewer.ID,
			ActorName: viewer.Name,
			Timestamp: now,
		},
	}

	value, err := store.Encode(task)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, taskPath(task.ID), value); err != nil {
		return nil, fmt.Errorf("failed to write task: %w", err)
	}

	return task, nil
}

// UpdateField applies a generic partial update. Updating assignedTo also
// refreshes the denormalized name/avatar from the user directory. Every
// update lands together with its history entry and the updatedAt bump.
func (s *TaskService) UpdateField(ctx context.Context, taskID, field string, value any, viewer models.ViewerContext) error {
	return s.updateField(ctx, taskID, field, value, models.HistoryFieldUpdated, viewer)
}

// UpdateStatus is UpdateField for the status field, action-tagged
// status_changed.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, viewer models.ViewerContext) error {
	return s.updateField(ctx, taskID, "status", string(status), models.HistoryStatusChanged, viewer)
}

func (s *TaskService) updateField(ctx context.Context, taskID, field string, value any, action models.HistoryAction, viewer models.ViewerContext) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	old, ok := taskFieldValue(task, field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	now := time.Now()
	fields := map[string]any{
		field:       value,
		"updatedAt": now.Format(time.RFC3339Nano),
	}

	if field == "assignedTo" {
		id, _ := value.(string)
		name, avatar := s.resolveAssignee(id)
		fields["assignedToName"] = orNil(name)
		fields["assignedToAvatar"] = orNil(avatar)
	}

	entry := models.HistoryEntry{
		Action:    action,
		Field:     field,
		From:      old,
		To:        stringify(value),
		Actor:     viewer.ID,
		ActorName: viewer.Name,
		Timestamp: now,
	}
	encoded, err := store.Encode(entry)
	if err != nil {
		return err
	}
	fields["history/"+s.historyKey(task, now)] = encoded

	if err := s.store.Update(ctx, taskPath(taskID), fields); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// SoftDelete hides the task from every view except "Deleted". Field history
// is left untouched; the delete markers alone carry the transition.
func (s *TaskService) SoftDelete(ctx context.Context, taskID string, viewer models.ViewerContext) error {
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return err
	}

	now := time.Now()
	err := s.store.Update(ctx, taskPath(taskID), map[string]any{
		"deleted":       true,
		"deletedAt":     now.Format(time.RFC3339Nano),
		"deletedBy":     viewer.ID,
		"deletedByName": viewer.Name,
		"updatedAt":     now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to soft-delete task: %w", err)
	}
	return nil
}

// Restore clears the delete markers; the task reappears in its prior tab.
func (s *TaskService) Restore(ctx context.Context, taskID string) error {
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return err
	}

	err := s.store.Update(ctx, taskPath(taskID), map[string]any{
		"deleted":       nil,
		"deletedAt":     nil,
		"deletedBy":     nil,
		"deletedByName": nil,
		"updatedAt":     time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to restore task: %w", err)
	}
	return nil
}

// Purge permanently removes the task node and all its children. Irreversible.
// The operation deliberately does not require a prior soft delete — matching
// the reference workflow, where only the Deleted view exposes the action but
// the function itself carries no guard.
func (s *TaskService) Purge(ctx context.Context, taskID string) error {
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return err
	}

	if err := s.store.Remove(ctx, taskPath(taskID)); err != nil {
		return fmt.Errorf("failed to purge task: %w", err)
	}
	return nil
}

// AddComment appends an immutable comment plus its history entry.
func (s *TaskService) AddComment(ctx context.Context, taskID, body string, viewer models.ViewerContext) error {
	if strings.TrimSpace(body) == "" {
		return ErrCommentBodyRequired
	}

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	comment := models.Comment{
		Author:     viewer.ID,
		AuthorName: viewer.Name,
		Body:       body,
		CreatedAt:  now,
	}
	encodedComment, err := store.Encode(comment)
	if err != nil {
		return err
	}

	entry := models.HistoryEntry{
		Action:    models.HistoryCommentAdded,
		Actor:     viewer.ID,
		ActorName: viewer.Name,
		Timestamp: now,
	}
	encodedEntry, err := store.Encode(entry)
	if err != nil {
		return err
	}

	key := s.historyKey(task, now)
	err = s.store.Update(ctx, taskPath(taskID), map[string]any{
		"comments/" + key: encodedComment,
		"history/" + key:  encodedEntry,
		"updatedAt":       now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// AttachmentInput carries attachment metadata; the blob itself lives in
// external storage.
type AttachmentInput struct {
	Name        string
	Size        int64
	ContentType string
	StoragePath string
}

// AddAttachment records attachment metadata plus its history entry.
func (s *TaskService) AddAttachment(ctx context.Context, taskID string, input AttachmentInput, viewer models.ViewerContext) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	attachment := models.Attachment{
		Name:         input.Name,
		Size:         input.Size,
		ContentType:  input.ContentType,
		StoragePath:  input.StoragePath,
		UploadedBy:   viewer.ID,
		UploaderName: viewer.Name,
		CreatedAt:    now,
	}
	encodedAttachment, err := store.Encode(attachment)
	if err != nil {
		return err
	}

	entry := models.HistoryEntry{
		Action:    models.HistoryAttachmentAdded,
		Field:     input.Name,
		Actor:     viewer.ID,
		ActorName: viewer.Name,
		Timestamp: now,
	}
	encodedEntry, err := store.Encode(entry)
	if err != nil {
		return err
	}

	key := s.historyKey(task, now)
	err = s.store.Update(ctx, taskPath(taskID), map[string]any{
		"attachments/" + key: encodedAttachment,
		"history/" + key:     encodedEntry,
		"updatedAt":          now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to add attachment: %w", err)
	}
	return nil
}

// RemoveAttachment drops the metadata record; the removal itself is recorded
// as a history entry.
func (s *TaskService) RemoveAttachment(ctx context.Context, taskID, attachmentKey string, viewer models.ViewerContext) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	attachment, ok := task.Attachments[attachmentKey]
	if !ok {
		return ErrAttachmentNotFound
	}

	now := time.Now()
	entry := models.HistoryEntry{
		Action:    models.HistoryAttachmentRemoved,
		Field:     attachment.Name,
		Actor:     viewer.ID,
		ActorName: viewer.Name,
		Timestamp: now,
	}
	encodedEntry, err := store.Encode(entry)
	if err != nil {
		return err
	}

	err = s.store.Update(ctx, taskPath(taskID), map[string]any{
		"attachments/" + attachmentKey:     nil,
		"history/" + s.historyKey(task, now): encodedEntry,
		"updatedAt":                        now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	return nil
}

// GetTask reads the task through the store, bypassing the snapshot.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	return s.loadTask(ctx, taskID)
}

func (s *TaskService) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	raw, err := s.store.Get(ctx, taskPath(taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to read task: %w", err)
	}
	if raw == nil {
		return nil, ErrTaskNotFound
	}

	var task models.Task
	if err := store.Decode(raw, &task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = taskID
	}
	return &task, nil
}

func (s *TaskService) applyAssignee(task *models.Task, assigneeID string) {
	task.AssignedTo = assigneeID
	task.AssignedToName, task.AssignedToAvatar = s.resolveAssignee(assigneeID)
}

func (s *TaskService) resolveAssignee(id string) (name, avatar string) {
	if id == "" || s.directory == nil {
		return "", ""
	}
	entry, ok := s.directory.Lookup(id)
	if !ok {
		return "", ""
	}
	return entry.Name, entry.PhotoURL
}

// historyKey returns a millisecond key unused in the task's child
// collections, bumping forward on same-millisecond collisions so an entry is
// never overwritten within this process.
func (s *TaskService) historyKey(task *models.Task, now time.Time) string {
	for {
		key := models.HistoryKey(now)
		if _, ok := task.History[key]; !ok {
			if _, ok := task.Comments[key]; !ok {
				if _, ok := task.Attachments[key]; !ok {
					return key
				}
			}
		}
		now = now.Add(time.Millisecond)
	}
}

func taskPath(id string) string {
	return "tasks/" + id
}

func defaultIssueType(t models.IssueType) models.IssueType {
	if t == "" {
		return models.IssueTypeTask
	}
	return t
}

func defaultStatus(st models.TaskStatus) models.TaskStatus {
	if st == "" {
		return models.TaskStatusTodo
	}
	return st
}

// taskFieldValue renders the current value of an updatable field for the
// history "from" side.
func taskFieldValue(task *models.Task, field string) (string, bool) {
	switch field {
	case "title":
		return task.Title, true
	case "description":
		return task.Description, true
	case "category":
		return task.Category, true
	case "priority":
		return task.Priority, true
	case "issueType":
		return string(task.IssueType), true
	case "status":
		return string(task.Status), true
	case "dueDate":
		return task.DueDate, true
	case "storyPoints":
		return fmt.Sprintf("%d", task.StoryPoints), true
	case "labels":
		return strings.Join(task.Labels, ","), true
	case "assignedTo":
		return task.AssignedTo, true
	default:
		return "", false
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
