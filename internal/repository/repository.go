package repository

import (
	"context"
	"time"

	"tridash/gateway/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrUpdateFailed  = RepositoryError("update failed")
	ErrDeleteFailed  = RepositoryError("delete failed")
	ErrStateConflict = RepositoryError("state conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// PlanDraftRepository defines the interface for the draft-plan store. Drafts
// are the only thing the gateway persists: the calendar itself stays with the
// training backend. Every operation is scoped to the owning athlete.
type PlanDraftRepository interface {
	Create(ctx context.Context, draft *domain.PlanDraft) error
	GetByID(ctx context.Context, athleteID, id string) (*domain.PlanDraft, error)
	ListByAthlete(ctx context.Context, athleteID string) ([]domain.PlanDraft, error)
	Update(ctx context.Context, draft *domain.PlanDraft) error
	// Transition moves a draft between gate statuses atomically. It returns
	// ErrStateConflict when the draft exists but is not in the expected
	// status, so two concurrent confirms can never both win the
	// clear-to-executing step.
	Transition(ctx context.Context, athleteID, id string, from, to domain.DraftStatus) error
	// SaveCheckResult records the outcome of a conflict check (status plus
	// conflicts). It refuses to touch a draft that is executing.
	SaveCheckResult(ctx context.Context, athleteID, id string, status domain.DraftStatus, conflicts []domain.ExecutionConflict, checkedAt *time.Time) error
	// Delete removes a draft, refusing while it is executing.
	Delete(ctx context.Context, athleteID, id string) error
}
