package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const testJWTSecret = "test-secret-not-for-production"

// stubCalendarService implements service.CalendarService with overridable
// behavior per test. A nil function returns zero values.
type stubCalendarService struct {
	rangeViewFn func(ctx context.Context, athleteID string, from, to time.Time) ([]domain.DayView, error)
	updateFn    func(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error
}

func (s *stubCalendarService) RangeView(ctx context.Context, athleteID string, from, to time.Time) ([]domain.DayView, error) {
	if s.rangeViewFn != nil {
		return s.rangeViewFn(ctx, athleteID, from, to)
	}
	return nil, nil
}

func (s *stubCalendarService) UpdateSessionStatus(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, athleteID, sessionID, status)
	}
	return nil
}

type stubPlanService struct {
	generateFn func(ctx context.Context, athleteID string, req domain.GenerationRequest) (*domain.PlanDraft, error)
	submitFn   func(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.PlanDraft, error)
	getFn      func(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error)
	listFn     func(ctx context.Context, athleteID string) ([]domain.PlanDraft, error)
}

func (s *stubPlanService) GeneratePlan(ctx context.Context, athleteID string, req domain.GenerationRequest) (*domain.PlanDraft, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, athleteID, req)
	}
	return nil, nil
}

func (s *stubPlanService) SubmitDraft(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.PlanDraft, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, athleteID, weeks, startDate, timezone)
	}
	return nil, nil
}

func (s *stubPlanService) GetDraft(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error) {
	if s.getFn != nil {
		return s.getFn(ctx, athleteID, draftID)
	}
	return nil, nil
}

func (s *stubPlanService) ListDrafts(ctx context.Context, athleteID string) ([]domain.PlanDraft, error) {
	if s.listFn != nil {
		return s.listFn(ctx, athleteID)
	}
	return nil, nil
}

type stubExecutionService struct {
	previewFn func(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error)
	confirmFn func(ctx context.Context, athleteID, draftID string, acknowledged bool) (*domain.PlanDraft, error)
	abortFn   func(ctx context.Context, athleteID, draftID string) error
}

func (s *stubExecutionService) Preview(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error) {
	if s.previewFn != nil {
		return s.previewFn(ctx, athleteID, draftID)
	}
	return nil, nil
}

func (s *stubExecutionService) Confirm(ctx context.Context, athleteID, draftID string, acknowledged bool) (*domain.PlanDraft, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, athleteID, draftID, acknowledged)
	}
	return nil, nil
}

func (s *stubExecutionService) Abort(ctx context.Context, athleteID, draftID string) error {
	if s.abortFn != nil {
		return s.abortFn(ctx, athleteID, draftID)
	}
	return nil
}

var _ service.CalendarService = (*stubCalendarService)(nil)
var _ service.PlanService = (*stubPlanService)(nil)
var _ service.ExecutionService = (*stubExecutionService)(nil)

func newTestRouter(cal service.CalendarService, plans service.PlanService, exec service.ExecutionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, testJWTSecret, cal, plans, exec)
	return router
}

func signedToken(t *testing.T, athleteID string, expiresAt time.Time) string {
	t.Helper()
	claims := jwtClaims{
		AthleteID: athleteID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func bearerToken(t *testing.T, athleteID string) string {
	t.Helper()
	return signedToken(t, athleteID, time.Now().Add(time.Hour))
}

// doJSON drives one request through the router. An empty token leaves the
// Authorization header unset.
func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody[map[string]string](t, rec)
	return body["error"]
}
