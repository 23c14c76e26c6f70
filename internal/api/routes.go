package api

import (
	"net/http"

	"tridash/gateway/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	calendarService service.CalendarService,
	planService service.PlanService,
	executionService service.ExecutionService,
) {

	calendarHandler := NewCalendarHandler(calendarService)
	planHandler := NewPlanHandler(planService)
	executionHandler := NewExecutionHandler(executionService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			athleteID, err := getAthleteIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get athlete ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"athlete_id": athleteID})
		})

		// --- Calendar Routes ---
		calendarGroup := protected.Group("/calendar")
		{
			// GET /api/v1/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
			calendarGroup.GET("", calendarHandler.GetCalendarRange)
			// GET /api/v1/calendar/today
			calendarGroup.GET("/today", calendarHandler.GetToday)
		}

		// --- Session Routes ---
		sessionGroup := protected.Group("/sessions")
		{
			// POST /api/v1/sessions/{sessionId}/status
			sessionGroup.POST("/:sessionId/status", calendarHandler.UpdateSessionStatus)
		}

		// --- Plan & Draft Routes ---
		planGroup := protected.Group("/plans")
		{
			// POST /api/v1/plans/generate
			planGroup.POST("/generate", planHandler.GeneratePlan)

			// POST /api/v1/plans/drafts (store an externally produced plan)
			planGroup.POST("/drafts", planHandler.SubmitDraft)
			// GET /api/v1/plans/drafts
			planGroup.GET("/drafts", planHandler.ListDrafts)
			// GET /api/v1/plans/drafts/{draftId}
			planGroup.GET("/drafts/:draftId", planHandler.GetDraft)

			// --- Execution Gate ---
			// POST /api/v1/plans/drafts/{draftId}/preview
			planGroup.POST("/drafts/:draftId/preview", executionHandler.PreviewExecution)
			// POST /api/v1/plans/drafts/{draftId}/confirm
			planGroup.POST("/drafts/:draftId/confirm", executionHandler.ConfirmExecution)
			// DELETE /api/v1/plans/drafts/{draftId}
			planGroup.DELETE("/drafts/:draftId", executionHandler.AbortDraft)
		}
	}
}
