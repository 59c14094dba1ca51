package ports

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
)

// OAuthProvider is the external authorization server of the calendar integration
type OAuthProvider interface {
	// AuthCodeURL returns the consent page URL carrying the given state.
	AuthCodeURL(state string) string
	// Exchange trades a one-time authorization code for a token pair.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// CalendarGateway creates and removes events on the user's external calendar.
// Implementations build their API client per call from the given token.
type CalendarGateway interface {
	InsertEvent(ctx context.Context, token *oauth2.Token, event *entities.CalendarEvent) (*SyncedEvent, error)
	DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error
}

// MetricsRecorder receives domain counters
type MetricsRecorder interface {
	TaskMutation(operation string)
	CalendarOperation(operation, result string)
}

// Request/Response Types

// Task related types
type CreateTaskRequest struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Completed       bool              `json:"completed"`
	Priority        entities.Priority `json:"priority"`
	DueDate         string            `json:"dueDate"`
	Tags            []string          `json:"tags"`
	ExternalEventID string            `json:"externalEventId"`
}

// UpdateTaskRequest is a partial update. Only non-nil fields change. An
// empty dueDate or externalEventId clears the field.
type UpdateTaskRequest struct {
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	Completed       *bool              `json:"completed"`
	Priority        *entities.Priority `json:"priority"`
	DueDate         *string            `json:"dueDate"`
	Tags            *[]string          `json:"tags"`
	ExternalEventID *string            `json:"externalEventId"`
}

// IsEmpty reports whether the patch carries no field at all.
func (r UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil &&
		r.Priority == nil && r.DueDate == nil && r.Tags == nil && r.ExternalEventID == nil
}

// Calendar related types
type SyncEventRequest struct {
	Title       string            `json:"title" validate:"required,max=100"`
	Description string            `json:"description" validate:"max=500"`
	DueDate     string            `json:"dueDate"`
	Priority    entities.Priority `json:"priority"`
}

// Normalize trims the free-text fields
func (r *SyncEventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
}

type SyncedEvent struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}
