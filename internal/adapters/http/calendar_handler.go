package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/application/services"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/logger"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// Calendar error messages
const (
	msgAuthFailed       = "Authentication failed"
	msgNotAuthenticated = "Not authenticated"
	msgNoDueDate        = "Task has no due date"
	msgSyncFailed       = "Failed to sync with Google Calendar"
	msgDeleteFailed     = "Failed to delete calendar event"
	msgEventIDRequired  = "Event ID is required"
)

// AfterAuthRedirect is where the browser lands once the calendar is connected
const AfterAuthRedirect = "/todos"

// CalendarHandler handles the Google Calendar endpoints
type CalendarHandler struct {
	authService *services.CalendarAuthService
	syncService *services.CalendarSyncService
	cookies     *SessionCookies
	logger      *logger.Logger
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(authService *services.CalendarAuthService, syncService *services.CalendarSyncService, cookies *SessionCookies, logger *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		authService: authService,
		syncService: syncService,
		cookies:     cookies,
		logger:      logger,
	}
}

// Authorize godoc
// @Summary Start the Google OAuth flow
// @Tags google-calendar
// @Success 302
// @Failure 500 {object} ErrorResponse
// @Router /google-calendar/auth [get]
func (h *CalendarHandler) Authorize(c echo.Context) error {
	authURL, state, err := h.authService.BeginAuth()
	if err != nil {
		h.logger.Errorw("Begin calendar auth failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgAuthFailed})
	}

	h.cookies.SetState(c, state, h.authService.StateTTL())
	return c.Redirect(http.StatusFound, authURL)
}

// Callback godoc
// @Summary OAuth redirect target
// @Tags google-calendar
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /auth"
// @Success 302
// @Failure 500 {object} ErrorResponse
// @Router /google-calendar/callback [get]
func (h *CalendarHandler) Callback(c echo.Context) error {
	storedState := h.cookies.State(c)
	h.cookies.ClearState(c)

	if providerErr := c.QueryParam("error"); providerErr != "" {
		h.logger.LogSecurityEvent("oauth_denied", c.RealIP(), map[string]interface{}{"provider_error": providerErr})
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgAuthFailed})
	}

	token, err := h.authService.CompleteAuth(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"), storedState)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidOAuthState) {
			h.logger.LogSecurityEvent("oauth_state_rejected", c.RealIP(), map[string]interface{}{"error": err.Error()})
		} else {
			h.logger.Errorw("Calendar auth callback failed", "error", err)
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgAuthFailed})
	}

	if err := h.cookies.SetTokens(c, token); err != nil {
		h.logger.Errorw("Storing calendar tokens failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgAuthFailed})
	}

	return c.Redirect(http.StatusFound, AfterAuthRedirect)
}

// Status godoc
// @Summary Report whether the calendar is connected
// @Tags google-calendar
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /google-calendar/status [get]
func (h *CalendarHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Connected: h.cookies.Token(c) != nil})
}

// Disconnect godoc
// @Summary Forget the stored calendar credentials
// @Tags google-calendar
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /google-calendar/disconnect [post]
func (h *CalendarHandler) Disconnect(c echo.Context) error {
	h.cookies.ClearTokens(c)
	return c.JSON(http.StatusOK, MessageResponse{Message: "Disconnected from Google Calendar"})
}

// Sync godoc
// @Summary Create a calendar event for a task
// @Tags google-calendar
// @Accept json
// @Produce json
// @Param request body ports.SyncEventRequest true "Task to mirror"
// @Success 200 {object} ports.SyncedEvent
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /google-calendar/sync [post]
func (h *CalendarHandler) Sync(c echo.Context) error {
	token := h.cookies.Token(c)
	if token == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgNotAuthenticated})
	}

	var req ports.SyncEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}

	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return h.syncFailed(c, err)
	}

	synced, err := h.syncService.SyncTask(c.Request().Context(), token, req)
	if err != nil {
		return h.syncFailed(c, err)
	}

	return c.JSON(http.StatusOK, synced)
}

func (h *CalendarHandler) syncFailed(c echo.Context, err error) error {
	var verr *entities.ValidationError
	switch {
	case errors.Is(err, entities.ErrMissingDueDate):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNoDueDate})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Error()})
	case errors.Is(err, entities.ErrNotAuthenticated):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgNotAuthenticated})
	default:
		h.logger.Errorw("Calendar sync failed", "error", err, "request_id", requestID(c))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgSyncFailed})
	}
}

// DeleteEvent godoc
// @Summary Delete a synced calendar event
// @Tags google-calendar
// @Produce json
// @Param eventId query string true "Calendar event ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /google-calendar/sync [delete]
func (h *CalendarHandler) DeleteEvent(c echo.Context) error {
	token := h.cookies.Token(c)
	if token == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgNotAuthenticated})
	}

	err := h.syncService.DeleteEvent(c.Request().Context(), token, c.QueryParam("eventId"))
	if err != nil {
		var verr *entities.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgEventIDRequired})
		case errors.Is(err, entities.ErrNotAuthenticated):
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msgNotAuthenticated})
		default:
			h.logger.Errorw("Calendar event delete failed", "error", err, "request_id", requestID(c))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgDeleteFailed})
		}
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Event deleted successfully"})
}
