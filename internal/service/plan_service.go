package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/repository"
	"tridash/gateway/internal/upstream"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrInvalidPlanRequest = errors.New("plan request is invalid")
	ErrGenerationFailed   = errors.New("plan generation failed")
	ErrGenerationTimeout  = errors.New("plan generation timed out")
)

const (
	minPlanWeeks = 1
	maxPlanWeeks = 16
)

// --- Service Interface ---
type PlanService interface {
	// GeneratePlan starts a generation job upstream and polls it to
	// completion, storing the produced weeks as a new draft. Cancelling ctx
	// (the athlete navigated away) stops the polling immediately.
	GeneratePlan(ctx context.Context, athleteID string, req domain.GenerationRequest) (*domain.PlanDraft, error)
	// SubmitDraft stores an externally produced plan (e.g. from the coach
	// chat) as a draft, subject to the same gate as generated ones.
	SubmitDraft(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.PlanDraft, error)
	GetDraft(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error)
	ListDrafts(ctx context.Context, athleteID string) ([]domain.PlanDraft, error)
}

// --- Service Implementation ---

// planService implements the PlanService interface.
type planService struct {
	api          upstream.TrainingAPI
	drafts       repository.PlanDraftRepository
	pollInterval time.Duration
	genTimeout   time.Duration
	draftTTL     time.Duration
}

// NewPlanService creates a new instance of planService. pollInterval paces
// the generation status polling, genTimeout bounds a whole generation run,
// draftTTL sets how long an untouched draft survives.
func NewPlanService(api upstream.TrainingAPI, drafts repository.PlanDraftRepository, pollInterval, genTimeout, draftTTL time.Duration) PlanService {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if genTimeout <= 0 {
		genTimeout = 3 * time.Minute
	}
	if draftTTL <= 0 {
		draftTTL = 24 * time.Hour
	}
	return &planService{
		api:          api,
		drafts:       drafts,
		pollInterval: pollInterval,
		genTimeout:   genTimeout,
		draftTTL:     draftTTL,
	}
}

func (s *planService) GeneratePlan(ctx context.Context, athleteID string, req domain.GenerationRequest) (*domain.PlanDraft, error) {
	// 1. Validate
	if athleteID == "" {
		return nil, errors.New("athlete ID is required")
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if err := validatePlanParams(req.Weeks, req.StartDate, req.Timezone); err != nil {
		return nil, err
	}

	// 2. Kick off the job
	jobID, err := s.api.StartPlanGeneration(ctx, athleteID, req)
	if err != nil {
		return nil, err
	}

	// 3. Poll until the job resolves, the caller goes away, or the deadline
	// hits. The ticker dies with this function, so a disconnected client
	// costs nothing beyond the current iteration.
	ctx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrGenerationTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
			job, err := s.api.GenerationStatus(ctx, athleteID, jobID)
			if err != nil {
				// The client already retried a transient failure once.
				return nil, err
			}
			switch job.Status {
			case domain.GenerationCompleted:
				if len(job.Weeks) == 0 {
					return nil, fmt.Errorf("%w: generator returned an empty plan", ErrGenerationFailed)
				}
				return s.storeDraft(ctx, athleteID, job.Weeks, req.StartDate, req.Timezone)
			case domain.GenerationError:
				msg := job.Error
				if msg == "" {
					msg = "no reason given"
				}
				return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
			}
			// Still in progress: next tick.
		}
	}
}

func (s *planService) SubmitDraft(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.PlanDraft, error) {
	if athleteID == "" {
		return nil, errors.New("athlete ID is required")
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if err := validatePlanParams(len(weeks), startDate, timezone); err != nil {
		return nil, err
	}
	for _, w := range weeks {
		if len(w.Sessions) == 0 {
			return nil, fmt.Errorf("%w: week %d has no sessions", ErrInvalidPlanRequest, w.Week)
		}
	}
	return s.storeDraft(ctx, athleteID, weeks, startDate, timezone)
}

func (s *planService) GetDraft(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error) {
	draft, err := s.drafts.GetByID(ctx, athleteID, draftID)
	if err != nil {
		return nil, mapDraftRepoError(err)
	}
	return draft, nil
}

func (s *planService) ListDrafts(ctx context.Context, athleteID string) ([]domain.PlanDraft, error) {
	return s.drafts.ListByAthlete(ctx, athleteID)
}

// storeDraft wraps the weeks in a fresh idle draft and persists it.
func (s *planService) storeDraft(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.PlanDraft, error) {
	draft := &domain.PlanDraft{
		ID:        uuid.NewString(),
		AthleteID: athleteID,
		StartDate: startDate,
		Timezone:  timezone,
		Weeks:     weeks,
		Status:    domain.DraftIdle,
		ExpiresAt: time.Now().UTC().Add(s.draftTTL),
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// validatePlanParams checks the pieces every draft needs before anything is
// sent upstream.
func validatePlanParams(weeks int, startDate, timezone string) error {
	if weeks < minPlanWeeks || weeks > maxPlanWeeks {
		return fmt.Errorf("%w: weeks must be between %d and %d", ErrInvalidPlanRequest, minPlanWeeks, maxPlanWeeks)
	}
	if _, err := time.Parse("2006-01-02", startDate); err != nil {
		return fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidPlanRequest)
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidPlanRequest, timezone)
	}
	return nil
}
