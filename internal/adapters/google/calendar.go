package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// DefaultCalendarID is the signed-in user's main calendar
const DefaultCalendarID = "primary"

// CalendarGateway implements ports.CalendarGateway with the Calendar v3 API.
// A service is built for every call from the caller's token; tokens are
// never refreshed.
type CalendarGateway struct {
	calendarID string
	options    []option.ClientOption
}

var _ ports.CalendarGateway = (*CalendarGateway)(nil)

// NewCalendarGateway creates a gateway writing to calendarID. Extra client
// options are appended to every service, e.g. option.WithEndpoint.
func NewCalendarGateway(calendarID string, opts ...option.ClientOption) *CalendarGateway {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &CalendarGateway{calendarID: calendarID, options: opts}
}

// InsertEvent creates the event and returns its id and web link
func (g *CalendarGateway) InsertEvent(ctx context.Context, token *oauth2.Token, event *entities.CalendarEvent) (*ports.SyncedEvent, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	created, err := svc.Events.Insert(g.calendarID, toCalendarEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return &ports.SyncedEvent{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
	}, nil
}

// DeleteEvent removes the event with the given id
func (g *CalendarGateway) DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (g *CalendarGateway) service(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, g.options...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

func toCalendarEvent(event *entities.CalendarEvent) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		ColorId:     event.ColorID,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}
}
