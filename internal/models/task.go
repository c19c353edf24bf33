package models

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusInReview   TaskStatus = "In Review"
	TaskStatusDone       TaskStatus = "Done"
)

type IssueType string

const (
	IssueTypeStory   IssueType = "Story"
	IssueTypeTask    IssueType = "Task"
	IssueTypeBug     IssueType = "Bug"
	IssueTypeEpic    IssueType = "Epic"
	IssueTypeSubTask IssueType = "SubTask"
)

// Task is the issue record as it lives under tasks/{id} in the remote store.
// History, comments and attachments are embedded child collections keyed by
// millisecond timestamp, so concurrent writers land on disjoint keys.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	IssueType   IssueType  `json:"issueType"`
	Status      TaskStatus `json:"status"`
	DueDate     string     `json:"dueDate,omitempty"`
	StoryPoints int        `json:"storyPoints,omitempty"`
	Labels      []string   `json:"labels,omitempty"`

	// Assignee reference plus denormalized display fields. The name/avatar
	// copies are a read cache refreshed on every assignment change; the user
	// directory stays authoritative.
	AssignedTo       string `json:"assignedTo,omitempty"`
	AssignedToName   string `json:"assignedToName,omitempty"`
	AssignedToAvatar string `json:"assignedToAvatar,omitempty"`

	// Top-level tasks carry (TicketKey, TicketSeq); subtasks carry
	// (ParentTask, ParentTicket, ChildSeq) and a composite TicketKey.
	ProjectID    string `json:"projectId,omitempty"`
	ProjectKey   string `json:"projectKey,omitempty"`
	ProjectTitle string `json:"projectTitle,omitempty"`
	TicketKey    string `json:"ticketKey,omitempty"`
	TicketSeq    int64  `json:"ticketSeq,omitempty"`
	ParentTask   string `json:"parentTask,omitempty"`
	ParentTicket string `json:"parentTicket,omitempty"`
	ChildSeq     int64  `json:"childSeq,omitempty"`

	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedByName   string    `json:"createdByName,omitempty"`
	CreatedByAvatar string    `json:"createdByAvatar,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Soft-delete lifecycle. Deleted tasks stay restorable until purged.
	Deleted       bool       `json:"deleted,omitempty"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
	DeletedBy     string     `json:"deletedBy,omitempty"`
	DeletedByName string     `json:"deletedByName,omitempty"`

	Comments       map[string]Comment      `json:"comments,omitempty"`
	Attachments    map[string]Attachment   `json:"attachments,omitempty"`
	History        map[string]HistoryEntry `json:"history,omitempty"`
	LinkedSubtasks map[string]bool         `json:"linkedSubtasks,omitempty"`
}

// DisplayID returns the human-readable ticket identifier.
func (t *Task) DisplayID() string {
	return t.TicketKey
}

// IsSubtask reports whether the task hangs beneath a parent task.
func (t *Task) IsSubtask() bool {
	return t.ParentTask != ""
}

// LastActivity is the watermark-relevant timestamp of the task.
func (t *Task) LastActivity() time.Time {
	if t.UpdatedAt.After(t.CreatedAt) {
		return t.UpdatedAt
	}
	return t.CreatedAt
}

// FormatTicket builds a top-level ticket identifier, e.g. "WEBS-01".
func FormatTicket(projectKey string, seq int64) string {
	return fmt.Sprintf("%s-%02d", projectKey, seq)
}

// FormatSubTicket builds a composite subtask identifier, e.g. "WEBS-01-02".
func FormatSubTicket(parentTicket string, childSeq int64) string {
	return fmt.Sprintf("%s-%02d", parentTicket, childSeq)
}

// Comment is immutable once created.
type Comment struct {
	Author     string    `json:"author"`
	AuthorName string    `json:"authorName,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Attachment records file metadata only; blob storage is out of scope.
type Attachment struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	StoragePath  string    `json:"storagePath,omitempty"`
	UploadedBy   string    `json:"uploadedBy"`
	UploaderName string    `json:"uploaderName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
