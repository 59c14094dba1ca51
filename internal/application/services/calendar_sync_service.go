package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// CalendarSyncService mirrors tasks as events on the user's calendar. It never
// touches the task store; the caller persists the returned event id.
type CalendarSyncService struct {
	gateway  ports.CalendarGateway
	validate *validator.Validate
	metrics  ports.MetricsRecorder
	logger   *logger.Logger
}

// NewCalendarSyncService creates a new calendar sync service
func NewCalendarSyncService(gateway ports.CalendarGateway, metrics ports.MetricsRecorder, logger *logger.Logger) *CalendarSyncService {
	return &CalendarSyncService{
		gateway:  gateway,
		validate: newValidator(),
		metrics:  metrics,
		logger:   logger.WithComponent("calendar_sync"),
	}
}

// SyncTask creates a one-hour event starting at the task's due date.
func (s *CalendarSyncService) SyncTask(ctx context.Context, token *oauth2.Token, req ports.SyncEventRequest) (*ports.SyncedEvent, error) {
	if token == nil || token.AccessToken == "" {
		return nil, entities.ErrNotAuthenticated
	}

	req.Normalize()
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	priority, err := entities.ParsePriority(string(req.Priority))
	if err != nil {
		return nil, entities.NewValidationError("priority", "oneof")
	}

	due, err := entities.ParseDueDate(req.DueDate)
	if err != nil {
		return nil, entities.NewValidationError("dueDate", "format")
	}

	event, err := entities.NewCalendarEvent(req.Title, req.Description, priority, due)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	synced, err := s.gateway.InsertEvent(ctx, token, event)
	s.logger.LogCalendarOperation("insert_event", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		s.record("sync", "error")
		return nil, fmt.Errorf("%w: insert event: %w", entities.ErrUpstream, err)
	}

	s.record("sync", "success")
	return synced, nil
}

// DeleteEvent removes a previously synced event.
func (s *CalendarSyncService) DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error {
	if token == nil || token.AccessToken == "" {
		return entities.ErrNotAuthenticated
	}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return entities.NewValidationError("eventId", "required")
	}

	start := time.Now()
	err := s.gateway.DeleteEvent(ctx, token, eventID)
	s.logger.LogCalendarOperation("delete_event", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		s.record("delete", "error")
		return fmt.Errorf("%w: delete event: %w", entities.ErrUpstream, err)
	}

	s.record("delete", "success")
	return nil
}

func (s *CalendarSyncService) record(operation, result string) {
	if s.metrics != nil {
		s.metrics.CalendarOperation(operation, result)
	}
}
