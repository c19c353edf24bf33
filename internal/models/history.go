package models

import (
	"strconv"
	"time"
)

type HistoryAction string

const (
	HistoryCreated           HistoryAction = "created"
	HistoryStatusChanged     HistoryAction = "status_changed"
	HistoryFieldUpdated      HistoryAction = "field_updated"
	HistoryCommentAdded      HistoryAction = "comment_added"
	HistoryAttachmentAdded   HistoryAction = "attachment_added"
	HistoryAttachmentRemoved HistoryAction = "attachment_removed"
	HistorySubtaskAdded      HistoryAction = "subtask_added"
)

// HistoryEntry is one append-only audit record beneath a task. Entries are
// keyed by millisecond timestamp, which gives chronological ordering without
// a separate per-task sequence counter.
type HistoryEntry struct {
	Action    HistoryAction `json:"action"`
	Field     string        `json:"field,omitempty"`
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	Actor     string        `json:"actor"`
	ActorName string        `json:"actorName,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// HistoryKey renders the map key for an entry written at t.
func HistoryKey(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
