package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthRegister       EventType = "auth.register"
	EventTypeAuthLogin          EventType = "auth.login"
	EventTypeAuthLoginFailed    EventType = "auth.login_failed"
	EventTypeAuthLogout         EventType = "auth.logout"
	EventTypeAuthPasswordChange EventType = "auth.password_change"
	EventTypeAuthTokenRejected  EventType = "auth.token_rejected"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Admin events
	EventTypeAdminUserRead EventType = "admin.user_read"

	// Data mutation events
	EventTypeDataRecipeCreate EventType = "data.recipe_create"
	EventTypeDataRecipeUpdate EventType = "data.recipe_update"
	EventTypeDataRecipeDelete EventType = "data.recipe_delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeUser   ResourceType = "user"
	ResourceTypeToken  ResourceType = "token"
	ResourceTypeRecipe ResourceType = "recipe"
)

// Event represents a single audit log entry
type Event struct {
	// Core fields
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	// Time range
	StartTime *time.Time
	EndTime   *time.Time

	// Actor filters
	UserID string
	Email  string

	// Event filters
	EventTypes []EventType
	Status     *EventStatus

	// Resource filters
	ResourceType ResourceType
	ResourceID   string

	// Pagination
	Limit  int
	Offset int
}

// DefaultSearchLimit caps a search without an explicit limit
const DefaultSearchLimit = 100

// MaxSearchLimit caps any search
const MaxSearchLimit = 1000
