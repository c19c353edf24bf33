package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/orbitdesk/tracker/internal/constants"
	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/sequence"
	"github.com/orbitdesk/tracker/internal/store"
)

var (
	ErrProjectTitleRequired = errors.New("project title is required")
	ErrProjectNotFound      = errors.New("project not found")
)

// ProjectDeletionConflict reports that a project still has active tasks
// attached. The caller must confirm the two-step reassign-then-remove
// sequence; deletion never silently drops task-project links.
type ProjectDeletionConflict struct {
	TaskCount int
}

func (e *ProjectDeletionConflict) Error() string {
	return fmt.Sprintf("project has %d active tasks attached; confirmation required", e.TaskCount)
}

// ProjectService is the project registry: CRUD, lifecycle and the
// project-scoped ticket counter.
type ProjectService struct {
	store     store.RemoteStore
	allocator *sequence.Allocator
}

// NewProjectService creates a new ProjectService.
func NewProjectService(s store.RemoteStore, allocator *sequence.Allocator) *ProjectService {
	return &ProjectService{store: s, allocator: allocator}
}

// CreateProjectInput represents input for creating a project.
type CreateProjectInput struct {
	Title       string
	Description string
	Type        string
	Priority    string
	Visibility  models.ProjectVisibility
	Color       string
	Emoji       string
	StartDate   string
	TargetDate  string
	MemberIDs   []string
	Owner       string
}

// CreateProject validates the title, derives a unique project key and writes
// the project node with sequence 0 and status active.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrProjectTitleRequired
	}

	existing, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.Key] = true
	}

	members := make(map[string]bool, len(input.MemberIDs))
	for _, id := range input.MemberIDs {
		if id != "" {
			members[id] = true
		}
	}

	now := time.Now()
	project := &models.Project{
		ID:          uuid.NewString(),
		Key:         resolveKey(deriveKey(input.Title), taken),
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Status:      models.ProjectStatusActive,
		Priority:    input.Priority,
		Visibility:  input.Visibility,
		Owner:       input.Owner,
		Color:       input.Color,
		Emoji:       input.Emoji,
		StartDate:   input.StartDate,
		TargetDate:  input.TargetDate,
		Sequence:    0,
		TeamMembers: members,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	value, err := store.Encode(project)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, projectPath(project.ID), value); err != nil {
		return nil, fmt.Errorf("failed to write project: %w", err)
	}

	return project, nil
}

// GetProject returns a project by id.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	raw, err := s.store.Get(ctx, projectPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	if raw == nil {
		return nil, ErrProjectNotFound
	}

	var project models.Project
	if err := store.Decode(raw, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		project.ID = id
	}
	return &project, nil
}

// ListProjects returns all projects ordered by creation time.
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	raw, err := s.store.Get(ctx, "projects")
	if err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}

	nodes, _ := raw.(map[string]any)
	projects := make([]models.Project, 0, len(nodes))
	for id, node := range nodes {
		var project models.Project
		if err := store.Decode(node, &project); err != nil {
			continue
		}
		if project.ID == "" {
			project.ID = id
		}
		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// UpdateTeam replaces the membership set.
func (s *ProjectService) UpdateTeam(ctx context.Context, id string, memberIDs []string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}

	members := make(map[string]any, len(memberIDs))
	for _, mid := range memberIDs {
		if mid != "" {
			members[mid] = true
		}
	}

	err := s.store.Update(ctx, projectPath(id), map[string]any{
		"teamMembers": members,
		"updatedAt":   time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return nil
}

// UpdateStatus moves the project through its lifecycle.
func (s *ProjectService) UpdateStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}

	err := s.store.Update(ctx, projectPath(id), map[string]any{
		"status":    string(status),
		"updatedAt": time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// DeleteProject removes a project. When active (non-deleted) tasks still
// reference it and the caller has not confirmed, a ProjectDeletionConflict
// with the task count is returned. On confirmation every attached task is
// first reassigned to the unknown-project bucket, then the node is removed.
func (s *ProjectService) DeleteProject(ctx context.Context, id string, confirmed bool) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}

	attached, err := s.attachedTaskIDs(ctx, id)
	if err != nil {
		return err
	}

	if len(attached) > 0 {
		if !confirmed {
			return &ProjectDeletionConflict{TaskCount: len(attached)}
		}
		for _, taskID := range attached {
			err := s.store.Update(ctx, "tasks/"+taskID, map[string]any{
				"projectId":    nil,
				"projectKey":   nil,
				"projectTitle": nil,
			})
			if err != nil {
				return fmt.Errorf("failed to reassign task %s: %w", taskID, err)
			}
		}
	}

	if err := s.store.Remove(ctx, projectPath(id)); err != nil {
		return fmt.Errorf("failed to remove project: %w", err)
	}
	return nil
}

// NextTicketSeq allocates the next ticket number for a project.
func (s *ProjectService) NextTicketSeq(ctx context.Context, projectID string) (int64, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	return s.allocator.Next(ctx, projectPath(projectID)+"/sequence")
}

func (s *ProjectService) attachedTaskIDs(ctx context.Context, projectID string) ([]string, error) {
	raw, err := s.store.Get(ctx, "tasks")
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}

	nodes, _ := raw.(map[string]any)
	var ids []string
	for taskID, node := range nodes {
		var task models.Task
		if err := store.Decode(node, &task); err != nil {
			continue
		}
		if task.ProjectID == projectID && !task.Deleted {
			ids = append(ids, taskID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func projectPath(id string) string {
	return "projects/" + id
}

// deriveKey builds the short uppercase code: letters only, truncated to the
// key length, "PROJ" when nothing survives.
func deriveKey(title string) string {
	letters := make([]rune, 0, constants.ProjectKeyLength)
	for _, r := range title {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == constants.ProjectKeyLength {
				break
			}
		}
	}
	if len(letters) == 0 {
		return constants.DefaultProjectKey
	}
	return string(letters)
}

// resolveKey appends an incrementing digit until the key is unused.
func resolveKey(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !taken[candidate] {
			return candidate
		}
	}
}
