package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler holds the plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- Request/Response Structs ---

type GeneratePlanRequest struct {
	Weeks     int    `json:"weeks" binding:"required,min=1,max=16"`
	StartDate string `json:"start_date" binding:"required"`
	Timezone  string `json:"timezone"`
	Goal      string `json:"goal"`
	Emphasis  string `json:"emphasis"`
	Notes     string `json:"notes"`
}

type SubmitDraftRequest struct {
	StartDate string            `json:"start_date" binding:"required"`
	Timezone  string            `json:"timezone"`
	Weeks     []domain.WeekPlan `json:"weeks" binding:"required"`
}

// DraftResponse is the API shape of a plan draft. Field naming follows the
// training service's snake_case convention so the dashboard reads one dialect.
type DraftResponse struct {
	ID           string                     `json:"id"`
	AthleteID    string                     `json:"athlete_id"`
	StartDate    string                     `json:"start_date"`
	Timezone     string                     `json:"timezone"`
	Status       domain.DraftStatus         `json:"status"`
	Weeks        []domain.WeekPlan          `json:"weeks"`
	SessionCount int                        `json:"session_count"`
	Conflicts    []domain.ExecutionConflict `json:"conflicts"`
	CheckedAt    *time.Time                 `json:"checked_at,omitempty"`
	LastError    string                     `json:"last_error,omitempty"`
	Result       *domain.ExecutionResult    `json:"result,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	ExpiresAt    time.Time                  `json:"expires_at"`
}

// MapDraftToResponse converts a domain PlanDraft to its API shape. Weeks and
// Conflicts are always JSON arrays so the dashboard can render its panels
// without null checks.
func MapDraftToResponse(draft *domain.PlanDraft) DraftResponse {
	weeks := draft.Weeks
	if weeks == nil {
		weeks = []domain.WeekPlan{}
	}
	conflicts := draft.Conflicts
	if conflicts == nil {
		conflicts = []domain.ExecutionConflict{}
	}
	return DraftResponse{
		ID:           draft.ID,
		AthleteID:    draft.AthleteID,
		StartDate:    draft.StartDate,
		Timezone:     draft.Timezone,
		Status:       draft.Status,
		Weeks:        weeks,
		SessionCount: draft.SessionCount(),
		Conflicts:    conflicts,
		CheckedAt:    draft.CheckedAt,
		LastError:    draft.LastError,
		Result:       draft.Result,
		CreatedAt:    draft.CreatedAt,
		ExpiresAt:    draft.ExpiresAt,
	}
}

// --- Handler Methods ---

// GeneratePlan godoc
// @Summary Generate a training plan draft
// @Description Starts a generation job on the training service, waits for it, and stores the result as a draft. Nothing lands on the calendar until the draft is confirmed.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planRequest body GeneratePlanRequest true "Plan parameters"
// @Success 201 {object} DraftResponse "Draft created"
// @Failure 400 {object} gin.H "Invalid plan parameters"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 502 {object} gin.H "Generator failed"
// @Failure 504 {object} gin.H "Generator did not finish in time"
// @Router /plans/generate [post]
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	draft, err := h.planService.GeneratePlan(c.Request.Context(), athleteID, domain.GenerationRequest{
		Weeks:     req.Weeks,
		StartDate: req.StartDate,
		Timezone:  req.Timezone,
		Goal:      req.Goal,
		Emphasis:  req.Emphasis,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlanRequest):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrGenerationTimeout):
			abortWithError(c, http.StatusGatewayTimeout, err.Error())
		case errors.Is(err, service.ErrGenerationFailed):
			abortWithError(c, http.StatusBadGateway, err.Error())
		default:
			respondUpstreamError(c, err, "Failed to generate a plan.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapDraftToResponse(draft))
}

// SubmitDraft godoc
// @Summary Store an externally produced plan as a draft
// @Description Accepts plan weeks from another source (e.g. the coach chat) and stores them under the same execution gate as generated plans.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param draftRequest body SubmitDraftRequest true "Plan weeks"
// @Success 201 {object} DraftResponse "Draft created"
// @Failure 400 {object} gin.H "Invalid plan"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /plans/drafts [post]
func (h *PlanHandler) SubmitDraft(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	var req SubmitDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	draft, err := h.planService.SubmitDraft(c.Request.Context(), athleteID, req.Weeks, req.StartDate, req.Timezone)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPlanRequest) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to store the draft.")
		}
		return
	}

	c.JSON(http.StatusCreated, MapDraftToResponse(draft))
}

// ListDrafts godoc
// @Summary List the athlete's plan drafts
// @Description Returns all drafts currently held for the authenticated athlete, newest first.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} DraftResponse "Drafts"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /plans/drafts [get]
func (h *PlanHandler) ListDrafts(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	drafts, err := h.planService.ListDrafts(c.Request.Context(), athleteID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list drafts.")
		return
	}

	responses := make([]DraftResponse, 0, len(drafts))
	for i := range drafts {
		responses = append(responses, MapDraftToResponse(&drafts[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetDraft godoc
// @Summary Get one plan draft
// @Description Returns the draft with its gate status, conflicts from the most recent check, and any execution outcome.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param draftId path string true "Draft ID"
// @Success 200 {object} DraftResponse "Draft"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Draft not found"
// @Router /plans/drafts/{draftId} [get]
func (h *PlanHandler) GetDraft(c *gin.Context) {
	athleteID, err := getAthleteIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	draftID := c.Param("draftId")

	draft, err := h.planService.GetDraft(c.Request.Context(), athleteID, draftID)
	if err != nil {
		if errors.Is(err, service.ErrDraftNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load the draft.")
		}
		return
	}

	c.JSON(http.StatusOK, MapDraftToResponse(draft))
}
