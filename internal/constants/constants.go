package constants

// Session / context keys
const (
	ContextKeyUserID   = "user_id"
	SessionKeyLastSeen = "last_seen"
)

// Auth
const MinPasswordLength = 8

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Project keys
const (
	ProjectKeyLength  = 4
	DefaultProjectKey = "PROJ"
)

// Notifications: how many unread tasks the preview returns by default.
const DefaultUnreadPreview = 8
