// Package notify computes per-viewer unread task sets against a persisted
// "last seen" watermark.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/orbitdesk/tracker/internal/models"
)

// RelevantToMe reports whether a task belongs in the viewer's notification
// stream: assigned to them or created by them.
func RelevantToMe(task models.Task, viewerID string) bool {
	return task.AssignedTo == viewerID || task.CreatedBy == viewerID
}

// Unread returns the viewer-relevant tasks whose latest activity is newer
// than the watermark, newest first, capped at limit. Soft-deleted tasks are
// excluded like in every other non-Deleted view.
func Unread(tasks []models.Task, viewerID string, lastSeen time.Time, limit int) []models.Task {
	var out []models.Task
	for _, task := range tasks {
		if task.Deleted {
			continue
		}
		if !RelevantToMe(task, viewerID) {
			continue
		}
		if !task.LastActivity().After(lastSeen) {
			continue
		}
		out = append(out, task)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity().After(out[j].LastActivity())
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WatermarkStore persists the per-viewer last-seen timestamp. It lives
// outside the remote store; the HTTP layer backs it with durable sessions.
type WatermarkStore interface {
	// LastSeen returns the viewer's watermark, zero when never set.
	LastSeen(viewerID string) (time.Time, error)

	// MarkAllSeen moves the watermark forward.
	MarkAllSeen(viewerID string, t time.Time) error
}

// MemoryWatermarks is a process-local WatermarkStore.
type MemoryWatermarks struct {
	mu sync.Mutex
	m  map[string]time.Time
}

// NewMemoryWatermarks returns an empty in-memory watermark store.
func NewMemoryWatermarks() *MemoryWatermarks {
	return &MemoryWatermarks{m: make(map[string]time.Time)}
}

func (w *MemoryWatermarks) LastSeen(viewerID string) (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.m[viewerID], nil
}

func (w *MemoryWatermarks) MarkAllSeen(viewerID string, t time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.m[viewerID] = t
	return nil
}
