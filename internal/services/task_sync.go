package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/orbitdesk/tracker/internal/models"
	"github.com/orbitdesk/tracker/internal/store"
)

// projectContainerKey is the legacy container node that shared the task root
// in the source data. It is never a task and is excluded from normalization.
const projectContainerKey = "projects"

// syncState holds the live in-memory mirror of the task collection. The
// snapshot slice is replaced wholesale on every change notification and is
// never mutated afterwards, so readers may hold it without locking.
type syncState struct {
	mu        sync.RWMutex
	snapshot  []models.Task
	listeners []func([]models.Task)
	cancel    func()
}

func (s *syncState) init() {
	s.snapshot = []models.Task{}
}

// Start subscribes to the task root. The snapshot is populated before Start
// returns (the store delivers the current value on subscribe) and refreshed
// on every subsequent change.
func (s *TaskService) Start() error {
	cancel, err := s.store.Subscribe("tasks", s.applySnapshot)
	if err != nil {
		return fmt.Errorf("failed to subscribe to tasks: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// Stop cancels the subscription.
func (s *TaskService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Snapshot returns the current immutable task list, ordered by creation
// time. Callers must not modify the returned slice.
func (s *TaskService) Snapshot() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// OnChange registers a listener invoked with each new snapshot. Downstream
// consumers (views, notification checks) react to these events rather than
// polling.
func (s *TaskService) OnChange(fn func([]models.Task)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// applySnapshot normalizes a change notification — full value of the task
// root — into a fresh snapshot. Nodes that are not tasks (the project
// container, malformed entries) are skipped rather than failing the stream:
// a bad node must never break live synchronization.
func (s *TaskService) applySnapshot(value any) {
	nodes, _ := value.(map[string]any)

	tasks := make([]models.Task, 0, len(nodes))
	for id, node := range nodes {
		if id == projectContainerKey {
			continue
		}
		raw, ok := node.(map[string]any)
		if !ok {
			continue
		}

		var task models.Task
		if err := store.Decode(raw, &task); err != nil {
			continue
		}
		if task.Title == "" && task.CreatedAt.IsZero() {
			continue
		}
		if task.ID == "" {
			task.ID = id
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	s.mu.Lock()
	s.snapshot = tasks
	listeners := make([]func([]models.Task), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(tasks)
	}
}
