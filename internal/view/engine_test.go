package view

import (
	"testing"
	"time"

	"github.com/orbitdesk/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin  = models.ViewerContext{ID: "1", Name: "Alice", Role: "admin"}
	member = models.ViewerContext{ID: "2", Name: "Bob", Role: "user"}
)

func sampleTasks() []models.Task {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []models.Task{
		{
			ID: "t1", Title: "Fix login", TicketKey: "WEBS-01", ProjectID: "p1",
			Status: models.TaskStatusTodo, Priority: "High", Category: "Backend",
			AssignedTo: "2", AssignedToName: "Bob", CreatedBy: "1",
			CreatedAt: base,
		},
		{
			ID: "t2", Title: "Update docs", TicketKey: "WEBS-02", ProjectID: "p1",
			Status: models.TaskStatusInProgress, Priority: "Low", Category: "Docs",
			AssignedTo: "3", CreatedBy: "1",
			CreatedAt: base.Add(time.Hour),
		},
		{
			ID: "t3", Title: "Orphaned chore", TicketKey: "MISC-01",
			Status: models.TaskStatusTodo, Priority: "Low",
			AssignedTo: "2", CreatedBy: "3",
			CreatedAt: base.Add(2 * time.Hour),
		},
		{
			ID: "t4", Title: "Old experiment", TicketKey: "WEBS-03", ProjectID: "p1",
			Status: models.TaskStatusDone, Deleted: true,
			AssignedTo: "2", CreatedBy: "2",
			CreatedAt: base.Add(3 * time.Hour),
		},
		{
			ID: "t5", Title: "Ship release", TicketKey: "WEBS-04", ProjectID: "p1",
			Status: models.TaskStatusDone, Priority: "High", Labels: []string{"release"},
			AssignedTo: "3", CreatedBy: "3",
			CreatedAt: base.Add(4 * time.Hour),
		},
	}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestVisible_PrivilegedSeesEverything(t *testing.T) {
	for _, role := range []string{"admin", "Manager", "SUPER ADMIN", "superadmin"} {
		viewer := models.ViewerContext{ID: "99", Role: role}
		for _, task := range sampleTasks() {
			assert.True(t, Visible(task, viewer), "role %s should see %s", role, task.ID)
		}
	}
}

func TestVisible_MemberSeesOwnOnly(t *testing.T) {
	tasks := sampleTasks()

	var visible []string
	for _, task := range tasks {
		if Visible(task, member) {
			visible = append(visible, task.ID)
		}
	}
	// Assigned to or created by viewer 2.
	assert.Equal(t, []string{"t1", "t3", "t4"}, visible)
}

func TestApply_DefaultTabExcludesDeleted(t *testing.T) {
	got := Apply(sampleTasks(), admin, Filters{Sort: "createdAt_asc"})
	assert.Equal(t, []string{"t1", "t2", "t3", "t5"}, ids(got))
}

func TestApply_Tabs(t *testing.T) {
	tasks := sampleTasks()

	all := Apply(tasks, admin, Filters{Tab: TabAll, Sort: "createdAt_asc"})
	assert.Equal(t, []string{"t1", "t2", "t3", "t5"}, ids(all))

	unknown := Apply(tasks, admin, Filters{Tab: TabUnknown})
	assert.Equal(t, []string{"t3"}, ids(unknown))

	deleted := Apply(tasks, admin, Filters{Tab: TabDeleted})
	assert.Equal(t, []string{"t4"}, ids(deleted))

	done := Apply(tasks, admin, Filters{Tab: string(models.TaskStatusDone)})
	assert.Equal(t, []string{"t5"}, ids(done))
}

func TestApply_FieldFiltersAreConjunctive(t *testing.T) {
	tasks := sampleTasks()

	got := Apply(tasks, admin, Filters{Priority: "High"})
	assert.Len(t, got, 2)

	got = Apply(tasks, admin, Filters{Priority: "High", Category: "Backend"})
	assert.Equal(t, []string{"t1"}, ids(got))

	got = Apply(tasks, admin, Filters{Priority: "High", Category: "Docs"})
	assert.Empty(t, got)
}

func TestApply_AssigneeAndProjectFilters(t *testing.T) {
	tasks := sampleTasks()

	got := Apply(tasks, admin, Filters{Assignee: "3", Sort: "createdAt_asc"})
	assert.Equal(t, []string{"t2", "t5"}, ids(got))

	got = Apply(tasks, admin, Filters{ProjectID: "p1", Sort: "createdAt_asc"})
	assert.Equal(t, []string{"t1", "t2", "t5"}, ids(got))
}

func TestApply_SearchMatchesAcrossFields(t *testing.T) {
	tasks := sampleTasks()

	byTitle := Apply(tasks, admin, Filters{Search: "LOGIN"})
	assert.Equal(t, []string{"t1"}, ids(byTitle))

	byTicket := Apply(tasks, admin, Filters{Search: "webs-02"})
	assert.Equal(t, []string{"t2"}, ids(byTicket))

	byAssignee := Apply(tasks, admin, Filters{Search: "bob"})
	assert.Equal(t, []string{"t1"}, ids(byAssignee))

	byLabel := Apply(tasks, admin, Filters{Search: "release"})
	assert.Contains(t, ids(byLabel), "t5")

	noHit := Apply(tasks, admin, Filters{Search: "zzz"})
	assert.Empty(t, noHit)
}

func TestApply_VisibilityPrecedesFilters(t *testing.T) {
	tasks := sampleTasks()

	// t5 matches the filter but is invisible to the member.
	got := Apply(tasks, member, Filters{Priority: "High"})
	assert.Equal(t, []string{"t1"}, ids(got))
}

func TestApply_Sorting(t *testing.T) {
	tasks := sampleTasks()

	byDefault := Apply(tasks, admin, Filters{})
	assert.Equal(t, []string{"t5", "t3", "t2", "t1"}, ids(byDefault))

	byTitle := Apply(tasks, admin, Filters{Sort: "title_asc"})
	assert.Equal(t, []string{"t1", "t3", "t5", "t2"}, ids(byTitle))

	byPriorityDesc := Apply(tasks, admin, Filters{Sort: "priority_desc"})
	require.Len(t, byPriorityDesc, 4)
	assert.Equal(t, "Low", byPriorityDesc[0].Priority)
}

func TestApply_SortIsStable(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "a", Title: "Same", CreatedAt: base},
		{ID: "b", Title: "Same", CreatedAt: base},
		{ID: "c", Title: "Same", CreatedAt: base},
	}

	got := Apply(tasks, admin, Filters{Sort: "title_asc"})
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))

	got = Apply(tasks, admin, Filters{Sort: "title_desc"})
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestTabCounts(t *testing.T) {
	counts := TabCounts(sampleTasks(), admin)

	assert.Equal(t, 4, counts[TabAll])
	assert.Equal(t, 1, counts[TabUnknown])
	assert.Equal(t, 1, counts[TabDeleted])
	assert.Equal(t, 2, counts[string(models.TaskStatusTodo)])
	assert.Equal(t, 1, counts[string(models.TaskStatusInProgress)])
	assert.Equal(t, 0, counts[string(models.TaskStatusInReview)])
	assert.Equal(t, 1, counts[string(models.TaskStatusDone)])
}

func TestTabCounts_RespectsVisibility(t *testing.T) {
	counts := TabCounts(sampleTasks(), member)

	assert.Equal(t, 2, counts[TabAll])
	assert.Equal(t, 1, counts[TabUnknown])
	assert.Equal(t, 1, counts[TabDeleted])
	assert.Equal(t, 2, counts[string(models.TaskStatusTodo)])
	assert.Equal(t, 0, counts[string(models.TaskStatusDone)])
}

// Soft-deleting moves a task from its status tab to Deleted; restoring moves
// it back. Totals across tabs stay consistent.
func TestTabCounts_DeleteRestoreRoundTrip(t *testing.T) {
	tasks := sampleTasks()

	before := TabCounts(tasks, admin)
	require.Equal(t, 2, before[string(models.TaskStatusTodo)])

	tasks[0].Deleted = true
	during := TabCounts(tasks, admin)
	assert.Equal(t, 1, during[string(models.TaskStatusTodo)])
	assert.Equal(t, before[TabAll]-1, during[TabAll])
	assert.Equal(t, before[TabDeleted]+1, during[TabDeleted])

	tasks[0].Deleted = false
	after := TabCounts(tasks, admin)
	assert.Equal(t, before, after)
}
