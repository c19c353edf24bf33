package notify

import (
	"testing"
	"time"

	"github.com/orbitdesk/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackerTasks() []models.Task {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []models.Task{
		{ID: "mine-old", AssignedTo: "2", CreatedAt: base, UpdatedAt: base},
		{ID: "mine-new", AssignedTo: "2", CreatedAt: base, UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "authored", CreatedBy: "2", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "other", AssignedTo: "9", CreatedBy: "9", CreatedAt: base.Add(4 * time.Hour)},
		{ID: "mine-deleted", AssignedTo: "2", Deleted: true, CreatedAt: base.Add(5 * time.Hour)},
	}
}

func TestRelevantToMe(t *testing.T) {
	assert.True(t, RelevantToMe(models.Task{AssignedTo: "2"}, "2"))
	assert.True(t, RelevantToMe(models.Task{CreatedBy: "2"}, "2"))
	assert.False(t, RelevantToMe(models.Task{AssignedTo: "9", CreatedBy: "9"}, "2"))
}

func TestUnread_FiltersByWatermark(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	got := Unread(trackerTasks(), "2", base.Add(time.Hour), 0)
	// Newest first; "other" belongs to someone else, "mine-deleted" is gone,
	// "mine-old" predates the watermark.
	require.Len(t, got, 2)
	assert.Equal(t, "authored", got[0].ID)
	assert.Equal(t, "mine-new", got[1].ID)
}

func TestUnread_ZeroWatermarkReturnsEverythingRelevant(t *testing.T) {
	got := Unread(trackerTasks(), "2", time.Time{}, 0)
	assert.Len(t, got, 3)
}

func TestUnread_AdvancedWatermarkEmpties(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	got := Unread(trackerTasks(), "2", base.Add(24*time.Hour), 0)
	assert.Empty(t, got)
}

func TestUnread_Limit(t *testing.T) {
	got := Unread(trackerTasks(), "2", time.Time{}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "authored", got[0].ID)
}

func TestUnread_UsesLastActivityNotCreation(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "touched", AssignedTo: "2", CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)},
	}

	got := Unread(tasks, "2", base.Add(time.Hour), 0)
	require.Len(t, got, 1)
	assert.Equal(t, "touched", got[0].ID)
}

func TestMemoryWatermarks(t *testing.T) {
	w := NewMemoryWatermarks()

	seen, err := w.LastSeen("2")
	require.NoError(t, err)
	assert.True(t, seen.IsZero())

	now := time.Now()
	require.NoError(t, w.MarkAllSeen("2", now))

	seen, err = w.LastSeen("2")
	require.NoError(t, err)
	assert.Equal(t, now, seen)

	other, err := w.LastSeen("9")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}
