package services

import (
	"context"
	"testing"

	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/sequence"
	"github.com/orbitdesk/tracker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProjectService(t *testing.T) (*ProjectService, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return NewProjectService(m, sequence.New(m)), m
}

func TestProjectService_CreateDerivesKey(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Website Redesign"})
	require.NoError(t, err)

	assert.Equal(t, "WEBS", project.Key)
	assert.Equal(t, models.ProjectStatusActive, project.Status)
	assert.Equal(t, int64(0), project.Sequence)
	assert.NotEmpty(t, project.ID)
}

func TestProjectService_CreateResolvesKeyCollision(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	first, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Website Redesign"})
	require.NoError(t, err)
	second, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Web Store"})
	require.NoError(t, err)
	third, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Web Services"})
	require.NoError(t, err)

	assert.Equal(t, "WEBS", first.Key)
	assert.Equal(t, "WEBS1", second.Key)
	assert.Equal(t, "WEBS2", third.Key)
}

func TestProjectService_CreateDefaultKeyWhenNoLetters(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "2024 #1"})
	require.NoError(t, err)
	assert.Equal(t, "PROJ", project.Key)
}

func TestProjectService_CreateShortTitle(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Go!"})
	require.NoError(t, err)
	assert.Equal(t, "GO", project.Key)
}

func TestProjectService_CreateRequiresTitle(t *testing.T) {
	svc, _ := setupProjectService(t)

	_, err := svc.CreateProject(context.Background(), CreateProjectInput{Title: "   "})
	assert.ErrorIs(t, err, ErrProjectTitleRequired)
}

func TestProjectService_GetNotFound(t *testing.T) {
	svc, _ := setupProjectService(t)

	_, err := svc.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectService_ListOrderedByCreation(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	first, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)
	second, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Beta"})
	require.NoError(t, err)

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, first.ID, projects[0].ID)
	assert.Equal(t, second.ID, projects[1].ID)
}

func TestProjectService_UpdateTeam(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTeam(ctx, project.ID, []string{"1", "2"}))

	got, err := svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, got.TeamMembers["1"])
	assert.True(t, got.TeamMembers["2"])
	assert.True(t, got.UpdatedAt.After(project.UpdatedAt) || got.UpdatedAt.Equal(project.UpdatedAt))
}

func TestProjectService_UpdateStatus(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, project.ID, models.ProjectStatusOnHold))

	got, err := svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusOnHold, got.Status)
}

func TestProjectService_NextTicketSeq(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)

	first, err := svc.NextTicketSeq(ctx, project.ID)
	require.NoError(t, err)
	second, err := svc.NextTicketSeq(ctx, project.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	_, err = svc.NextTicketSeq(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectService_DeleteWithoutTasks(t *testing.T) {
	svc, _ := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, project.ID, false))

	_, err = svc.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectService_DeleteWithTasksRequiresConfirmation(t *testing.T) {
	svc, m := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "tasks/t1", map[string]any{
		"title":     "Attached",
		"projectId": project.ID,
	}))
	require.NoError(t, m.Set(ctx, "tasks/t2", map[string]any{
		"title":     "Already gone",
		"projectId": project.ID,
		"deleted":   true,
	}))

	err = svc.DeleteProject(ctx, project.ID, false)
	var conflict *ProjectDeletionConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.TaskCount)

	// Project survives until confirmed.
	_, err = svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
}

func TestProjectService_DeleteConfirmedReassignsTasks(t *testing.T) {
	svc, m := setupProjectService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, CreateProjectInput{Title: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "tasks/t1", map[string]any{
		"title":        "Attached",
		"projectId":    project.ID,
		"projectKey":   project.Key,
		"projectTitle": project.Title,
	}))

	require.NoError(t, svc.DeleteProject(ctx, project.ID, true))

	_, err = svc.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	raw, err := m.Get(ctx, "tasks/t1")
	require.NoError(t, err)
	node := raw.(map[string]any)
	assert.Equal(t, "Attached", node["title"])
	assert.NotContains(t, node, "projectId")
	assert.NotContains(t, node, "projectKey")
	assert.NotContains(t, node, "projectTitle")
}
