package dto

import (
	"sort"
	"time"

	"github.com/orbitdesk/tracker/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
		PhotoURL: user.PhotoURL,
	}
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          string                   `json:"id"`
	Key         string                   `json:"key"`
	Title       string                   `json:"title"`
	Description string                   `json:"description,omitempty"`
	Type        string                   `json:"type,omitempty"`
	Status      models.ProjectStatus     `json:"status"`
	Priority    string                   `json:"priority,omitempty"`
	Visibility  models.ProjectVisibility `json:"visibility,omitempty"`
	Owner       string                   `json:"owner,omitempty"`
	Color       string                   `json:"color,omitempty"`
	Emoji       string                   `json:"emoji,omitempty"`
	StartDate   string                   `json:"start_date,omitempty"`
	TargetDate  string                   `json:"target_date,omitempty"`
	Sequence    int64                    `json:"sequence"`
	TeamMembers []string                 `json:"team_members,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	members := make([]string, 0, len(project.TeamMembers))
	for id, in := range project.TeamMembers {
		if in {
			members = append(members, id)
		}
	}
	sort.Strings(members)

	return ProjectDTO{
		ID:          project.ID,
		Key:         project.Key,
		Title:       project.Title,
		Description: project.Description,
		Type:        project.Type,
		Status:      project.Status,
		Priority:    project.Priority,
		Visibility:  project.Visibility,
		Owner:       project.Owner,
		Color:       project.Color,
		Emoji:       project.Emoji,
		StartDate:   project.StartDate,
		TargetDate:  project.TargetDate,
		Sequence:    project.Sequence,
		TeamMembers: members,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// ToProjectDTOs converts a slice of projects.
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}
