package models

import "time"

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusInactive ProjectStatus = "inactive"
	ProjectStatusDone     ProjectStatus = "done"
	ProjectStatusOnHold   ProjectStatus = "on-hold"
	ProjectStatusArchived ProjectStatus = "archived"
)

type ProjectVisibility string

const (
	VisibilityPrivate      ProjectVisibility = "private"
	VisibilityTeam         ProjectVisibility = "team"
	VisibilityOrganization ProjectVisibility = "organization"
)

// Project is the record stored under projects/{id}. Key is immutable once
// assigned and unique across all non-purged projects; Sequence is the next
// ticket counter and only ever increases.
type Project struct {
	ID          string            `json:"id"`
	Key         string            `json:"projectKey"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type,omitempty"`
	Status      ProjectStatus     `json:"status"`
	Priority    string            `json:"priority,omitempty"`
	Visibility  ProjectVisibility `json:"visibility,omitempty"`
	Owner       string            `json:"owner,omitempty"`
	Color       string            `json:"color,omitempty"`
	Emoji       string            `json:"emoji,omitempty"`
	StartDate   string            `json:"startDate,omitempty"`
	TargetDate  string            `json:"targetDate,omitempty"`
	Sequence    int64             `json:"sequence"`
	TeamMembers map[string]bool   `json:"teamMembers,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
