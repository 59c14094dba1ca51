package entities

import (
	"fmt"
	"time"
)

// EventDuration is the length of the calendar event created for a task.
const EventDuration = time.Hour

// EventTimeZone is the time zone every synced event is expressed in.
const EventTimeZone = "UTC"

var priorityColors = map[Priority]string{
	PriorityLow:    "10",
	PriorityMedium: "5",
	PriorityHigh:   "11",
}

// PriorityColor maps a priority to the Google Calendar event color id.
func PriorityColor(p Priority) (string, error) {
	color, ok := priorityColors[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, p)
	}
	return color, nil
}

// CalendarEvent is the external calendar event mirroring a task.
type CalendarEvent struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	ColorID     string
}

// NewCalendarEvent builds the event for a task. A task without a due date
// has no time range and is rejected with ErrMissingDueDate.
func NewCalendarEvent(title, description string, priority Priority, due *time.Time) (*CalendarEvent, error) {
	color, err := PriorityColor(priority)
	if err != nil {
		return nil, err
	}
	if due == nil || due.IsZero() {
		return nil, ErrMissingDueDate
	}

	start := due.UTC()
	return &CalendarEvent{
		Summary:     title,
		Description: fmt.Sprintf("%s\nPriority: %s", description, priority),
		Start:       start,
		End:         start.Add(EventDuration),
		TimeZone:    EventTimeZone,
		ColorID:     color,
	}, nil
}
