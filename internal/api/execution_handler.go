package api

import (
	"errors"
	"fmt"
	"net/http"

	"tridash/gateway/internal/service"
	"tridash/gateway/internal/upstream"

	"github.com/gin-gonic/gin"
)

// ExecutionHandler holds the execution service dependency.
type ExecutionHandler struct {
	executionService service.ExecutionService
}

// NewExecutionHandler creates a new ExecutionHandler.
func NewExecutionHandler(executionService service.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executionService: executionService}
}

// --- Request/Response Structs ---

// ConfirmExecutionRequest carries the athlete's explicit acknowledgement. The
// field has no binding tag: a missing or false value is a meaningful refusal
// that the service answers, not a malformed request.
type ConfirmExecutionRequest struct {
	Acknowledged bool `json:"acknowledged"`
}

// --- Handler Methods ---

// PreviewExecution godoc
// @Summary Check a draft against the persisted calendar
// @Description Asks the training service for execution conflicts and stores the verdict on the draft. Conflicts are draft state, not errors.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Success 200 {object} DraftResponse "Draft with check outcome"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Draft not found"
// @Failure 409 {object} gin.H "Draft is executing"
// @Failure 502 {object} gin.H "Training service unavailable"
// @Router /plans/drafts/{draftId}/preview [post]
func (h *ExecutionHandler) PreviewExecution(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	draftID := c.Param("draftId")

	draft, err := h.executionService.Preview(c.Request.Context(), athleteID, draftID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDraftNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDraftExecuting):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			respondUpstreamError(c, err, "Failed to check the plan for conflicts.")
		}
		return
	}

	c.JSON(http.StatusOK, MapDraftToResponse(draft))
}

// ConfirmExecution godoc
// @Summary Execute a checked draft
// @Description Writes the draft into the athlete's calendar. Requires a clear conflict check and acknowledged set to true; at most one concurrent confirm can win.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Param confirmRequest body ConfirmExecutionRequest true "Acknowledgement"
// @Success 200 {object} DraftResponse "Execution outcome"
// @Failure 400 {object} gin.H "Acknowledgement missing"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Draft not found"
// @Failure 409 {object} gin.H "No passing check, or another confirm is running"
// @Failure 502 {object} gin.H "Training service rejected or failed the write"
// @Router /plans/drafts/{draftId}/confirm [post]
func (h *ExecutionHandler) ConfirmExecution(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	draftID := c.Param("draftId")

	var req ConfirmExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	draft, err := h.executionService.Confirm(c.Request.Context(), athleteID, draftID, req.Acknowledged)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAcknowledged):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDraftNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDraftExecuting), errors.Is(err, service.ErrDraftNotClear):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrExecutionFailed):
			var apiErr *upstream.APIError
			if errors.As(err, &apiErr) && !apiErr.Transient() {
				abortWithError(c, apiErr.StatusCode, apiErr.Message())
			} else {
				abortWithError(c, http.StatusBadGateway, err.Error())
			}
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to execute the plan.")
		}
		return
	}

	c.JSON(http.StatusOK, MapDraftToResponse(draft))
}

// AbortDraft godoc
// @Summary Discard a plan draft
// @Description Deletes the draft without touching the training service. The persisted calendar is unaffected.
// @Tags Plans
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Success 204 "Draft discarded"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Draft not found"
// @Failure 409 {object} gin.H "Draft is executing"
// @Router /plans/drafts/{draftId} [delete]
func (h *ExecutionHandler) AbortDraft(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	draftID := c.Param("draftId")

	if err := h.executionService.Abort(c.Request.Context(), athleteID, draftID); err != nil {
		switch {
		case errors.Is(err, service.ErrDraftNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDraftExecuting):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to discard the draft.")
		}
		return
	}

	c.Status(http.StatusNoContent)
}
