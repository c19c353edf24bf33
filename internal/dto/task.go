package dto

import (
	"sort"
	"time"

	"github.com/orbitdesk/tracker/internal/models"
)

// HistoryEntryDTO represents one audit record in API responses.
type HistoryEntryDTO struct {
	Key       string    `json:"key"`
	Action    string    `json:"action"`
	Field     string    `json:"field,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Actor     string    `json:"actor"`
	ActorName string    `json:"actor_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CommentDTO represents a comment in API responses.
type CommentDTO struct {
	Key        string    `json:"key"`
	Author     string    `json:"author"`
	AuthorName string    `json:"author_name,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttachmentDTO represents attachment metadata in API responses.
type AttachmentDTO struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskDTO represents a task in API responses, with the timestamp-keyed child
// maps flattened into chronologically ordered lists.
type TaskDTO struct {
	ID           string            `json:"id"`
	Ticket       string            `json:"ticket"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Category     string            `json:"category,omitempty"`
	Priority     string            `json:"priority,omitempty"`
	IssueType    models.IssueType  `json:"issue_type"`
	Status       models.TaskStatus `json:"status"`
	DueDate      string            `json:"due_date,omitempty"`
	StoryPoints  int               `json:"story_points,omitempty"`
	Labels       []string          `json:"labels,omitempty"`
	AssignedTo   string            `json:"assigned_to,omitempty"`
	AssignedName string            `json:"assigned_to_name,omitempty"`
	ProjectID    string            `json:"project_id,omitempty"`
	ProjectKey   string            `json:"project_key,omitempty"`
	ProjectTitle string            `json:"project_title,omitempty"`
	ParentTask   string            `json:"parent_task,omitempty"`
	CreatedBy    string            `json:"created_by,omitempty"`
	CreatedName  string            `json:"created_by_name,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Deleted      bool              `json:"deleted,omitempty"`
	DeletedBy    string            `json:"deleted_by,omitempty"`

	History     []HistoryEntryDTO `json:"history,omitempty"`
	Comments    []CommentDTO      `json:"comments,omitempty"`
	Attachments []AttachmentDTO   `json:"attachments,omitempty"`
}

// TaskListItemDTO represents a task in list responses (minimal data)
type TaskListItemDTO struct {
	ID           string            `json:"id"`
	Ticket       string            `json:"ticket"`
	Title        string            `json:"title"`
	Priority     string            `json:"priority,omitempty"`
	IssueType    models.IssueType  `json:"issue_type"`
	Status       models.TaskStatus `json:"status"`
	AssignedTo   string            `json:"assigned_to,omitempty"`
	AssignedName string            `json:"assigned_to_name,omitempty"`
	ProjectKey   string            `json:"project_key,omitempty"`
	Deleted      bool              `json:"deleted,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		Ticket:       task.DisplayID(),
		Title:        task.Title,
		Description:  task.Description,
		Category:     task.Category,
		Priority:     task.Priority,
		IssueType:    task.IssueType,
		Status:       task.Status,
		DueDate:      task.DueDate,
		StoryPoints:  task.StoryPoints,
		Labels:       task.Labels,
		AssignedTo:   task.AssignedTo,
		AssignedName: task.AssignedToName,
		ProjectID:    task.ProjectID,
		ProjectKey:   task.ProjectKey,
		ProjectTitle: task.ProjectTitle,
		ParentTask:   task.ParentTask,
		CreatedBy:    task.CreatedBy,
		CreatedName:  task.CreatedByName,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
		Deleted:      task.Deleted,
		DeletedBy:    task.DeletedBy,
	}

	for _, key := range sortedKeys(task.History) {
		entry := task.History[key]
		dto.History = append(dto.History, HistoryEntryDTO{
			Key:       key,
			Action:    string(entry.Action),
			Field:     entry.Field,
			From:      entry.From,
			To:        entry.To,
			Actor:     entry.Actor,
			ActorName: entry.ActorName,
			Timestamp: entry.Timestamp,
		})
	}

	for _, key := range sortedKeys(task.Comments) {
		comment := task.Comments[key]
		dto.Comments = append(dto.Comments, CommentDTO{
			Key:        key,
			Author:     comment.Author,
			AuthorName: comment.AuthorName,
			Body:       comment.Body,
			CreatedAt:  comment.CreatedAt,
		})
	}

	for _, key := range sortedKeys(task.Attachments) {
		attachment := task.Attachments[key]
		dto.Attachments = append(dto.Attachments, AttachmentDTO{
			Key:         key,
			Name:        attachment.Name,
			Size:        attachment.Size,
			ContentType: attachment.ContentType,
			UploadedBy:  attachment.UploadedBy,
			CreatedAt:   attachment.CreatedAt,
		})
	}

	return dto
}

// ToTaskListItemDTO converts a Task model to TaskListItemDTO
func ToTaskListItemDTO(task models.Task) TaskListItemDTO {
	return TaskListItemDTO{
		ID:           task.ID,
		Ticket:       task.DisplayID(),
		Title:        task.Title,
		Priority:     task.Priority,
		IssueType:    task.IssueType,
		Status:       task.Status,
		AssignedTo:   task.AssignedTo,
		AssignedName: task.AssignedToName,
		ProjectKey:   task.ProjectKey,
		Deleted:      task.Deleted,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// ToTaskListItems converts a slice of tasks.
func ToTaskListItems(tasks []models.Task) []TaskListItemDTO {
	items := make([]TaskListItemDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskListItemDTO(task)
	}
	return items
}

// Timestamp keys are fixed-width millisecond strings, so a lexicographic
// sort is chronological.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
