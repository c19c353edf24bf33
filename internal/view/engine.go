// Package view is the pure filter/sort engine over a task snapshot. Nothing
// here mutates state; every function derives its result from the immutable
// snapshot and the viewer context passed in.
package view

import (
	"sort"
	"strings"

	"github.com/orbitdesk/tracker/internal/models"
)

// Reserved tab names; any other tab value selects a concrete status.
const (
	TabAll     = "all"
	TabUnknown = "unknown"
	TabDeleted = "Deleted"
)

// Filters selects and orders tasks. All field filters are conjunctive; the
// free-text search is a case-insensitive OR over title, description,
// assignee name, ticket and labels.
type Filters struct {
	Tab       string
	Category  string
	Priority  string
	Assignee  string
	IssueType string
	ProjectID string
	Search    string

	// Sort is "{field}_{direction}" with field createdAt, title or priority.
	// Empty means createdAt_desc.
	Sort string
}

// Apply returns the ordered tasks visible to the viewer under the filters.
// The visibility rule runs first: non-privileged viewers only ever see tasks
// they are assigned to or created, independent of every other filter.
func Apply(tasks []models.Task, viewer models.ViewerContext, f Filters) []models.Task {
	var out []models.Task
	for _, task := range tasks {
		if !Visible(task, viewer) {
			continue
		}
		if !matchesTab(task, f.Tab) {
			continue
		}
		if !matchesFields(task, f) {
			continue
		}
		if !matchesSearch(task, f.Search) {
			continue
		}
		out = append(out, task)
	}

	sortTasks(out, f.Sort)
	return out
}

// TabCounts derives the per-tab badge counts from the visibility-filtered
// set only. Transient field filters never collapse the badges to zero.
func TabCounts(tasks []models.Task, viewer models.ViewerContext) map[string]int {
	counts := map[string]int{
		TabAll:     0,
		TabUnknown: 0,
		TabDeleted: 0,
		string(models.TaskStatusTodo):       0,
		string(models.TaskStatusInProgress): 0,
		string(models.TaskStatusInReview):   0,
		string(models.TaskStatusDone):       0,
	}

	for _, task := range tasks {
		if !Visible(task, viewer) {
			continue
		}
		if task.Deleted {
			counts[TabDeleted]++
			continue
		}
		counts[TabAll]++
		if task.ProjectID == "" {
			counts[TabUnknown]++
		}
		counts[string(task.Status)]++
	}
	return counts
}

// Visible applies the two-tier visibility rule.
func Visible(task models.Task, viewer models.ViewerContext) bool {
	if viewer.Privileged() {
		return true
	}
	return task.AssignedTo == viewer.ID || task.CreatedBy == viewer.ID
}

func matchesTab(task models.Task, tab string) bool {
	switch tab {
	case TabDeleted:
		return task.Deleted
	case TabUnknown:
		return !task.Deleted && task.ProjectID == ""
	case TabAll, "":
		return !task.Deleted
	default:
		return !task.Deleted && string(task.Status) == tab
	}
}

func matchesFields(task models.Task, f Filters) bool {
	if f.Category != "" && task.Category != f.Category {
		return false
	}
	if f.Priority != "" && task.Priority != f.Priority {
		return false
	}
	if f.Assignee != "" && task.AssignedTo != f.Assignee {
		return false
	}
	if f.IssueType != "" && string(task.IssueType) != f.IssueType {
		return false
	}
	if f.ProjectID != "" && task.ProjectID != f.ProjectID {
		return false
	}
	return true
}

func matchesSearch(task models.Task, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}

	haystacks := []string{
		task.Title,
		task.Description,
		task.AssignedToName,
		task.TicketKey,
	}
	haystacks = append(haystacks, task.Labels...)

	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// sortTasks orders in place. String fields compare case-insensitive; the
// sort is stable so ties keep their snapshot order.
func sortTasks(tasks []models.Task, key string) {
	field, desc := parseSort(key)

	sort.SliceStable(tasks, func(i, j int) bool {
		var less bool
		switch field {
		case "title":
			a, b := strings.ToLower(tasks[i].Title), strings.ToLower(tasks[j].Title)
			if a == b {
				return false
			}
			less = a < b
		case "priority":
			a, b := strings.ToLower(tasks[i].Priority), strings.ToLower(tasks[j].Priority)
			if a == b {
				return false
			}
			less = a < b
		default: // createdAt
			if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
				return false
			}
			less = tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}

func parseSort(key string) (field string, desc bool) {
	if key == "" {
		return "createdAt", true
	}

	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return key, false
	}
	return key[:idx], key[idx+1:] == "desc"
}
