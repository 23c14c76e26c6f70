package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tridash/gateway/internal/cache"
	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/repository"
	"tridash/gateway/internal/upstream"
)

// --- Error Definitions ---
var (
	ErrDraftNotFound   = errors.New("plan draft not found")
	ErrDraftExecuting  = errors.New("plan draft is currently executing")
	ErrDraftNotClear   = errors.New("plan draft has no passing conflict check")
	ErrNotAcknowledged = errors.New("execution requires explicit acknowledgement")
	ErrExecutionFailed = errors.New("plan execution failed")
)

// --- Service Interface ---
type ExecutionService interface {
	// Preview asks the backend to check the draft against the athlete's
	// persisted calendar. Conflicts come back as draft state, not as an
	// error. Safe to repeat; a newer check supersedes an older one.
	Preview(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error)
	// Confirm writes the draft into the calendar. It succeeds only from a
	// clear check with acknowledged set; exactly one of any concurrent
	// confirms can win.
	Confirm(ctx context.Context, athleteID, draftID string, acknowledged bool) (*domain.PlanDraft, error)
	// Abort discards the draft. It makes no upstream call of any kind.
	Abort(ctx context.Context, athleteID, draftID string) error
}

// --- Service Implementation ---

// executionService implements the ExecutionService interface. The backend is
// the only party that ever decides what conflicts: this service never
// inspects cached calendar data to second-guess it, because stale local state
// could hide a conflict the backend would catch.
type executionService struct {
	api    upstream.TrainingAPI
	drafts repository.PlanDraftRepository
	cache  *cache.Cache
}

// NewExecutionService creates a new instance of executionService.
func NewExecutionService(api upstream.TrainingAPI, drafts repository.PlanDraftRepository, queryCache *cache.Cache) ExecutionService {
	return &executionService{
		api:    api,
		drafts: drafts,
		cache:  queryCache,
	}
}

func (s *executionService) Preview(ctx context.Context, athleteID, draftID string) (*domain.PlanDraft, error) {
	// 1. Load and gate
	draft, err := s.drafts.GetByID(ctx, athleteID, draftID)
	if err != nil {
		return nil, mapDraftRepoError(err)
	}
	if draft.Status == domain.DraftExecuting {
		return nil, ErrDraftExecuting
	}
	prevStatus, prevConflicts, prevCheckedAt := draft.Status, draft.Conflicts, draft.CheckedAt

	// 2. Mark the check in flight so readers see it
	if err := s.drafts.SaveCheckResult(ctx, athleteID, draftID, domain.DraftChecking, prevConflicts, prevCheckedAt); err != nil {
		return nil, mapDraftRepoError(err)
	}

	// 3. Ask the authority
	conflicts, err := s.api.PreviewExecution(ctx, athleteID, draft.Weeks, draft.StartDate, draft.Timezone)
	if err != nil {
		// A failed check resolved nothing; put the previous state back.
		restoreCtx := context.WithoutCancel(ctx)
		if restoreErr := s.drafts.SaveCheckResult(restoreCtx, athleteID, draftID, prevStatus, prevConflicts, prevCheckedAt); restoreErr != nil && !errors.Is(restoreErr, repository.ErrNotFound) {
			log.Printf("WARN: execution: restore draft %s after failed check: %v", draftID, restoreErr)
		}
		return nil, err
	}

	// 4. Resolve the gate from the backend's answer
	status := domain.DraftClear
	if len(conflicts) > 0 {
		status = domain.DraftConflictsFound
	}
	now := time.Now().UTC()
	if err := s.drafts.SaveCheckResult(ctx, athleteID, draftID, status, conflicts, &now); err != nil {
		return nil, mapDraftRepoError(err)
	}

	draft.Status = status
	draft.Conflicts = conflicts
	draft.CheckedAt = &now
	return draft, nil
}

func (s *executionService) Confirm(ctx context.Context, athleteID, draftID string, acknowledged bool) (*domain.PlanDraft, error) {
	// 1. The acknowledgement is not optional
	if !acknowledged {
		return nil, ErrNotAcknowledged
	}

	// 2. Load and inspect
	draft, err := s.drafts.GetByID(ctx, athleteID, draftID)
	if err != nil {
		return nil, mapDraftRepoError(err)
	}
	switch draft.Status {
	case domain.DraftClear:
		// proceed
	case domain.DraftExecuting:
		return nil, ErrDraftExecuting
	default:
		return nil, ErrDraftNotClear
	}

	// 3. Win the gate. The compare-and-swap is the actual guarantee; the
	// checks above only shape the error message.
	if err := s.drafts.Transition(ctx, athleteID, draftID, domain.DraftClear, domain.DraftExecuting); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, s.describeLostRace(ctx, athleteID, draftID)
		}
		return nil, mapDraftRepoError(err)
	}
	draft.Status = domain.DraftExecuting

	// 4. Commit against the authority. Detached from the request context:
	// a disconnect mid-commit must not leave the draft wedged in executing
	// with the write-back outcome unrecorded.
	commitCtx := context.WithoutCancel(ctx)
	result, err := s.api.CommitExecution(commitCtx, athleteID, draft.Weeks, draft.StartDate, draft.Timezone)
	if err != nil {
		draft.Status = domain.DraftFailed
		draft.LastError = upstreamMessage(err)
		draft.Result = nil
		if uErr := s.drafts.Update(commitCtx, draft); uErr != nil {
			log.Printf("WARN: execution: record failure on draft %s: %v", draftID, uErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}

	// 5. Record the outcome, discard the draft, drop stale calendar reads
	draft.Status = domain.DraftDone
	draft.Result = result
	draft.LastError = ""
	if uErr := s.drafts.Update(commitCtx, draft); uErr != nil {
		log.Printf("WARN: execution: record result on draft %s: %v", draftID, uErr)
	}
	if dErr := s.drafts.Delete(commitCtx, athleteID, draftID); dErr != nil {
		log.Printf("WARN: execution: discard executed draft %s: %v", draftID, dErr)
	}
	s.cache.InvalidatePrefix(seasonKeyPrefix(athleteID))
	return draft, nil
}

func (s *executionService) Abort(ctx context.Context, athleteID, draftID string) error {
	// No upstream call on this path, ever. Walking away from a draft leaves
	// the calendar untouched by definition.
	draft, err := s.drafts.GetByID(ctx, athleteID, draftID)
	if err != nil {
		return mapDraftRepoError(err)
	}
	if draft.Status == domain.DraftExecuting {
		return ErrDraftExecuting
	}
	if err := s.drafts.Delete(ctx, athleteID, draftID); err != nil {
		return mapDraftRepoError(err)
	}
	return nil
}

// describeLostRace turns a lost clear-to-executing race into the most
// accurate error the current state allows.
func (s *executionService) describeLostRace(ctx context.Context, athleteID, draftID string) error {
	current, err := s.drafts.GetByID(ctx, athleteID, draftID)
	if err != nil {
		return mapDraftRepoError(err)
	}
	if current.Status == domain.DraftExecuting {
		return ErrDraftExecuting
	}
	return ErrDraftNotClear
}

// mapDraftRepoError translates repository errors into the service vocabulary.
func mapDraftRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrDraftNotFound
	case errors.Is(err, repository.ErrStateConflict):
		return ErrDraftExecuting
	default:
		return err
	}
}

// upstreamMessage extracts the human-readable text to show the athlete for a
// failed backend call.
func upstreamMessage(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
