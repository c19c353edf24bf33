package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Name         string         `gorm:"type:varchar(255)" json:"name"`
	Role         string         `gorm:"type:varchar(50);not null;default:'user'" json:"role"`
	PhotoURL     string         `gorm:"type:varchar(512)" json:"photo_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// DirectoryEntry is the denormalization view of a user: what gets copied onto
// tasks when an assignee changes, and what builds the per-request viewer.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// privilegedRoles grants unrestricted visibility across all tasks.
var privilegedRoles = map[string]bool{
	"admin":       true,
	"manager":     true,
	"super admin": true,
	"superadmin":  true,
}

// IsPrivilegedRole normalizes the role case-insensitively before checking.
func IsPrivilegedRole(role string) bool {
	return privilegedRoles[strings.ToLower(strings.TrimSpace(role))]
}
