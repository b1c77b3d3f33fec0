package constants

// Context keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeyProject = "project"
	ContextKeyTask    = "task"
)

// Validation limits
const (
	MinPasswordLength = 8
	MinTitleLength    = 3
)
