package services

import (
	"context"
	"testing"

	"github.com/orbitdesk/tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubtask_CompositeTickets(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Parent", ProjectID: env.project.ID}, env.viewer)
	require.NoError(t, err)
	require.Equal(t, "WEBS-01", parent.TicketKey)

	first, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "Child one"}, env.viewer)
	require.NoError(t, err)
	second, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "Child two"}, env.viewer)
	require.NoError(t, err)

	assert.Equal(t, "WEBS-01-01", first.TicketKey)
	assert.Equal(t, "WEBS-01-02", second.TicketKey)
	assert.Equal(t, int64(1), first.ChildSeq)
	assert.Equal(t, int64(2), second.ChildSeq)
	assert.Equal(t, parent.ID, first.ParentTask)
	assert.Equal(t, parent.TicketKey, first.ParentTicket)
	assert.Equal(t, models.IssueTypeSubTask, first.IssueType)
}

func TestCreateSubtask_ChildCounterIndependentOfProjectCounter(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Parent", ProjectID: env.project.ID}, env.viewer)
	require.NoError(t, err)

	sub, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "Child"}, env.viewer)
	require.NoError(t, err)
	require.Equal(t, int64(1), sub.ChildSeq)

	// A subtask does not consume a project ticket number.
	sibling, err := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Sibling", ProjectID: env.project.ID}, env.viewer)
	require.NoError(t, err)
	assert.Equal(t, "WEBS-02", sibling.TicketKey)
}

func TestCreateSubtask_InheritsUnsetFields(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{
		Title:      "Parent",
		ProjectID:  env.project.ID,
		Category:   "Backend",
		Priority:   "High",
		AssignedTo: "7",
		Labels:     []string{"infra"},
		DueDate:    "2026-09-01",
	}, env.viewer)
	require.NoError(t, err)

	sub, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "Child"}, env.viewer)
	require.NoError(t, err)

	assert.Equal(t, "Backend", sub.Category)
	assert.Equal(t, "High", sub.Priority)
	assert.Equal(t, "7", sub.AssignedTo)
	assert.Equal(t, "Dana", sub.AssignedToName)
	assert.Equal(t, []string{"infra"}, sub.Labels)
	assert.Equal(t, "2026-09-01", sub.DueDate)
	assert.Equal(t, parent.ProjectID, sub.ProjectID)
	assert.Equal(t, models.TaskStatusTodo, sub.Status)
}

func TestCreateSubtask_ExplicitFieldsWin(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{
		Title:     "Parent",
		ProjectID: env.project.ID,
		Priority:  "High",
	}, env.viewer)
	require.NoError(t, err)

	sub, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{
		ParentID: parent.ID,
		Title:    "Child",
		Priority: "Low",
	}, env.viewer)
	require.NoError(t, err)

	assert.Equal(t, "Low", sub.Priority)
}

func TestCreateSubtask_LinksParent(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Parent", ProjectID: env.project.ID}, env.viewer)
	require.NoError(t, err)

	sub, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "Child"}, env.viewer)
	require.NoError(t, err)

	got, err := env.tasks.GetTask(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, got.LinkedSubtasks[sub.ID])

	var found bool
	for _, entry := range got.History {
		if entry.Action == models.HistorySubtaskAdded {
			found = true
			assert.Equal(t, sub.TicketKey, entry.Field)
		}
	}
	assert.True(t, found)
}

func TestCreateSubtask_Validation(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	_, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: "missing", Title: "Orphan"}, env.viewer)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Parent", ProjectID: env.project.ID}, env.viewer)
	require.NoError(t, err)

	_, err = env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "  "}, env.viewer)
	assert.ErrorIs(t, err, ErrTaskTitleRequired)
}

func TestSubtasksOf_OrderedBySequence(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()

	require.NoError(t, env.tasks.Start())
	defer env.tasks.Stop()

	parent, err := env.tasks.CreateTask(ctx, CreateTaskInput{Title: "Parent", ProjectID: env.project.ID}, env.viewer)
	require.NoError(t, err)

	first, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "One"}, env.viewer)
	require.NoError(t, err)
	second, err := env.tasks.CreateSubtask(ctx, CreateSubtaskInput{ParentID: parent.ID, Title: "Two"}, env.viewer)
	require.NoError(t, err)

	subtasks := env.tasks.SubtasksOf(parent.ID)
	require.Len(t, subtasks, 2)
	assert.Equal(t, first.ID, subtasks[0].ID)
	assert.Equal(t, second.ID, subtasks[1].ID)
}
