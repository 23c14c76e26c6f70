package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/service"
	"tridash/gateway/internal/upstream"

	"github.com/gin-gonic/gin"
)

// CalendarHandler holds the calendar service dependency.
type CalendarHandler struct {
	calendarService service.CalendarService
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(calendarService service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

// --- Request/Response Structs ---

type UpdateSessionStatusRequest struct {
	Status domain.SessionStatus `json:"status" binding:"required,oneof=completed skipped deleted"`
}

type CalendarRangeResponse struct {
	From string           `json:"from"`
	To   string           `json:"to"`
	Days []domain.DayView `json:"days"`
}

// --- Handler Methods ---

// GetCalendarRange godoc
// @Summary Get the merged calendar for a date window
// @Description Returns one entry per day in [from, to], each with its merged timeline items.
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} CalendarRangeResponse "Merged day views"
// @Failure 400 {object} gin.H "Invalid window"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 502 {object} gin.H "Training service unavailable"
// @Router /calendar [get]
func (h *CalendarHandler) GetCalendarRange(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'from' must be a YYYY-MM-DD date.")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'to' must be a YYYY-MM-DD date.")
		return
	}

	days, err := h.calendarService.RangeView(c.Request.Context(), athleteID, from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			respondUpstreamError(c, err, "Failed to load the calendar.")
		}
		return
	}

	c.JSON(http.StatusOK, CalendarRangeResponse{
		From: from.Format("2006-01-02"),
		To:   to.Format("2006-01-02"),
		Days: days,
	})
}

// GetToday godoc
// @Summary Get today's merged day view
// @Description Returns the single day view for the current date. The optional tz parameter picks the athlete's local day.
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Param tz query string false "IANA timezone name (defaults to UTC)"
// @Success 200 {object} domain.DayView "Today's merged items"
// @Failure 400 {object} gin.H "Unknown timezone"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 502 {object} gin.H "Training service unavailable"
// @Router /calendar/today [get]
func (h *CalendarHandler) GetToday(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Query parameter 'tz' must be an IANA timezone name.")
			return
		}
	}
	today := time.Now().In(loc)

	days, err := h.calendarService.RangeView(c.Request.Context(), athleteID, today, today)
	if err != nil {
		respondUpstreamError(c, err, "Failed to load today's calendar.")
		return
	}
	if len(days) == 0 {
		abortWithError(c, http.StatusInternalServerError, "Failed to load today's calendar.")
		return
	}

	c.JSON(http.StatusOK, days[0])
}

// UpdateSessionStatus godoc
// @Summary Update a session's status
// @Description Proxies an explicit athlete action (completed, skipped, deleted) to the training service.
// @Tags Calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session ID"
// @Param statusRequest body UpdateSessionStatusRequest true "New status"
// @Success 200 {object} gin.H "Status accepted"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Session not found upstream"
// @Failure 502 {object} gin.H "Training service unavailable"
// @Router /sessions/{sessionId}/status [post]
func (h *CalendarHandler) UpdateSessionStatus(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	sessionID := c.Param("sessionId")

	var req UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.calendarService.UpdateSessionStatus(c.Request.Context(), athleteID, sessionID, req.Status); err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			respondUpstreamError(c, err, "Failed to update the session.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": req.Status})
}

// respondUpstreamError relays a training-service failure to the frontend.
// Upstream rejections keep their human-readable message and a status
// mirroring the upstream class; transient failures become a 502 so the
// dashboard can distinguish "you did something wrong" from "try again".
func respondUpstreamError(c *gin.Context, err error, fallback string) {
	var apiErr *upstream.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Transient():
		abortWithError(c, http.StatusBadGateway, apiErr.Message())
	case errors.As(err, &apiErr):
		abortWithError(c, apiErr.StatusCode, apiErr.Message())
	case upstream.IsTransient(err):
		abortWithError(c, http.StatusBadGateway, "The training service is not responding. Try again shortly.")
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
