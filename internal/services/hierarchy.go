package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/store"
)

// SubtasksOf returns the ordered subtasks of a parent from the current
// snapshot, sorted by their per-parent sequence.
func (s *TaskService) SubtasksOf(parentID string) []models.Task {
	var subtasks []models.Task
	for _, task := range s.Snapshot() {
		if task.ParentTask == parentID {
			subtasks = append(subtasks, task)
		}
	}

	sort.Slice(subtasks, func(i, j int) bool {
		return subtasks[i].ChildSeq < subtasks[j].ChildSeq
	})
	return subtasks
}

// CreateSubtaskInput represents input for creating a subtask. Zero-valued
// inheritable fields take the parent's value.
type CreateSubtaskInput struct {
	ParentID    string
	Title       string
	Description string
	Category    string
	Priority    string
	AssignedTo  string
	Labels      []string
	DueDate     string
}

// CreateSubtask allocates the per-parent child sequence — a counter distinct
// from the project ticket sequence — and writes the subtask with its created
// history entry, then links it beneath the parent with a subtask_added entry.
// The parent must exist and not be purged.
func (s *TaskService) CreateSubtask(ctx context.Context, input CreateSubtaskInput, viewer models.ViewerContext) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTaskTitleRequired
	}

	parent, err := s.loadTask(ctx, input.ParentID)
	if err != nil {
		return nil, err
	}

	childSeq, err := s.allocator.Next(ctx, taskPath(parent.ID)+"/subSeqCounter")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &models.Task{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Description:  input.Description,
		Category:     inherit(input.Category, parent.Category),
		Priority:     inherit(input.Priority, parent.Priority),
		IssueType:    models.IssueTypeSubTask,
		Status:       models.TaskStatusTodo,
		DueDate:      inherit(input.DueDate, parent.DueDate),
		Labels:       input.Labels,
		ProjectID:    parent.ProjectID,
		ProjectKey:   parent.ProjectKey,
		ProjectTitle: parent.ProjectTitle,
		ParentTask:   parent.ID,
		ParentTicket: parent.TicketKey,
		ChildSeq:     childSeq,
		TicketKey:    models.FormatSubTicket(parent.TicketKey, childSeq),
		CreatedBy:    viewer.ID,
		CreatedByName: viewer.Name,
		CreatedByAvatar: viewer.PhotoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if task.Labels == nil {
		task.Labels = append([]string(nil), parent.Labels...)
	}
	s.applyAssignee(task, inherit(input.AssignedTo, parent.AssignedTo))

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
		return nil, fmt.Errorf("failed to write subtask: %w", err)
	}

	entry := models.HistoryEntry{
		Action:    models.HistorySubtaskAdded,
		Field:     task.TicketKey,
		To:        task.Title,
		Actor:     viewer.ID,
		ActorName: viewer.Name,
		Timestamp: now,
	}
	encodedEntry, err := store.Encode(entry)
	if err != nil {
		return nil, err
	}

	err = s.store.Update(ctx, taskPath(parent.ID), map[string]any{
		"linkedSubtasks/" + task.ID:          true,
		"history/" + s.historyKey(parent, now): encodedEntry,
		"updatedAt":                          now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link subtask to parent: %w", err)
	}

	return task, nil
}

func inherit(value, parentValue string) string {
	if value != "" {
		return value
	}
	return parentValue
}
