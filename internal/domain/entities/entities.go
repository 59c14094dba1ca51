package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskID     = errors.New("invalid task id")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrConcurrentUpdate  = errors.New("task was modified concurrently")
	ErrNotAuthenticated  = errors.New("not authenticated with calendar provider")
	ErrMissingDueDate    = errors.New("task has no due date")
	ErrInvalidOAuthState = errors.New("invalid oauth state")
	ErrUpstream          = errors.New("calendar provider request failed")
)

// Field limits for a task
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxTagLength         = 50
	MaxTags              = 20
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is one of the three known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts a priority name in any case. An empty string yields
// the default medium priority.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// Task represents a to-do item
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title" validate:"required,max=100"`
	Description     string     `json:"description" validate:"max=500"`
	Completed       bool       `json:"completed"`
	Priority        Priority   `json:"priority" validate:"required,oneof=low medium high"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	Tags            []string   `json:"tags" validate:"max=20,dive,required,max=50"`
	ExternalEventID string     `json:"externalEventId,omitempty" validate:"max=1024"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Normalize trims text fields, drops blank tags and fills the default priority.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.ExternalEventID = strings.TrimSpace(t.ExternalEventID)
	t.Tags = NormalizeTags(t.Tags)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC()
		t.DueDate = &due
	}
}

// IsSynced reports whether the task is linked to an external calendar event.
func (t *Task) IsSynced() bool {
	return t.ExternalEventID != ""
}

// NormalizeTags trims every tag and removes the empty ones, keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// SplitTags parses a comma-separated tag list as typed into the task form.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

// FieldError describes one rejected field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned when task input breaks a field constraint.
// Its message only names fields and rules, never the offending values.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s is %s", f.Field, describeRule(f.Rule)))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule}}}
}

func describeRule(rule string) string {
	switch rule {
	case "required":
		return "required"
	case "max":
		return "too long"
	case "oneof":
		return "not an allowed value"
	case "format":
		return "badly formatted"
	case "empty":
		return "empty"
	default:
		return "invalid"
	}
}
