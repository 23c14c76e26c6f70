package service

import (
	"context"
	"sync"
	"time"

	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/repository"
)

// fakeAPI is a programmable in-memory TrainingAPI that counts every call, so
// tests can assert not just outcomes but how many upstream round trips they
// cost.
type fakeAPI struct {
	mu sync.Mutex

	sessions   map[int][]domain.CalendarSession
	activities []domain.CompletedActivity
	conflicts  []domain.ExecutionConflict
	result     domain.ExecutionResult
	jobs       []domain.GenerationJob

	sessionsErr error
	statusErr   error
	generateErr error
	pollErr     error
	previewErr  error
	commitErr   error

	seasonCalls   int
	activityCalls int
	statusCalls   int
	generateCalls int
	pollCalls     int
	previewCalls  int
	commitCalls   int

	commitDelay time.Duration
}

func (f *fakeAPI) SeasonSessions(ctx context.Context, athleteID string, year int) ([]domain.CalendarSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seasonCalls++
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return append([]domain.CalendarSession(nil), f.sessions[year]...), nil
}

func (f *fakeAPI) Activities(ctx context.Context, athleteID, from, to string) ([]domain.CompletedActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activityCalls++
	return append([]domain.CompletedActivity(nil), f.activities...), nil
}

func (f *fakeAPI) UpdateSessionStatus(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.statusErr
}

func (f *fakeAPI) StartPlanGeneration(ctx context.Context, athleteID string, req domain.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return "job-1", nil
}

func (f *fakeAPI) GenerationStatus(ctx context.Context, athleteID, jobID string) (*domain.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if len(f.jobs) == 0 {
		return &domain.GenerationJob{JobID: jobID, Status: domain.GenerationInProgress}, nil
	}
	idx := f.pollCalls - 1
	if idx >= len(f.jobs) {
		idx = len(f.jobs) - 1
	}
	job := f.jobs[idx]
	job.JobID = jobID
	return &job, nil
}

func (f *fakeAPI) PreviewExecution(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) ([]domain.ExecutionConflict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previewCalls++
	if f.previewErr != nil {
		return nil, f.previewErr
	}
	return append([]domain.ExecutionConflict(nil), f.conflicts...), nil
}

func (f *fakeAPI) CommitExecution(ctx context.Context, athleteID string, weeks []domain.WeekPlan, startDate, timezone string) (*domain.ExecutionResult, error) {
	f.mu.Lock()
	f.commitCalls++
	delay := f.commitDelay
	err := f.commitErr
	result := f.result
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (f *fakeAPI) counts() (season, status, generate, poll, preview, commit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seasonCalls, f.statusCalls, f.generateCalls, f.pollCalls, f.previewCalls, f.commitCalls
}

// fakeDraftRepo is an in-memory PlanDraftRepository with the same semantics
// as the Mongo one: athlete scoping, the status compare-and-swap, and the
// executing guards on writes and deletes.
type fakeDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]domain.PlanDraft
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: make(map[string]domain.PlanDraft)}
}

func (r *fakeDraftRepo) Create(ctx context.Context, draft *domain.PlanDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now
	r.drafts[draft.ID] = *draft
	return nil
}

func (r *fakeDraftRepo) GetByID(ctx context.Context, athleteID, id string) (*domain.PlanDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.AthleteID != athleteID {
		return nil, repository.ErrNotFound
	}
	snapshot := d
	return &snapshot, nil
}

func (r *fakeDraftRepo) ListByAthlete(ctx context.Context, athleteID string) ([]domain.PlanDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.PlanDraft{}
	for _, d := range r.drafts {
		if d.AthleteID == athleteID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDraftRepo) Update(ctx context.Context, draft *domain.PlanDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[draft.ID]
	if !ok || d.AthleteID != draft.AthleteID {
		return repository.ErrNotFound
	}
	draft.UpdatedAt = time.Now().UTC()
	r.drafts[draft.ID] = *draft
	return nil
}

func (r *fakeDraftRepo) Transition(ctx context.Context, athleteID, id string, from, to domain.DraftStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.AthleteID != athleteID {
		return repository.ErrNotFound
	}
	if d.Status != from {
		return repository.ErrStateConflict
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	r.drafts[id] = d
	return nil
}

func (r *fakeDraftRepo) SaveCheckResult(ctx context.Context, athleteID, id string, status domain.DraftStatus, conflicts []domain.ExecutionConflict, checkedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.AthleteID != athleteID {
		return repository.ErrNotFound
	}
	if d.Status == domain.DraftExecuting {
		return repository.ErrStateConflict
	}
	d.Status = status
	d.Conflicts = conflicts
	d.CheckedAt = checkedAt
	d.UpdatedAt = time.Now().UTC()
	r.drafts[id] = d
	return nil
}

func (r *fakeDraftRepo) Delete(ctx context.Context, athleteID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.AthleteID != athleteID {
		return repository.ErrNotFound
	}
	if d.Status == domain.DraftExecuting {
		return repository.ErrStateConflict
	}
	delete(r.drafts, id)
	return nil
}

func (r *fakeDraftRepo) stored(id string) (domain.PlanDraft, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	return d, ok
}

func (r *fakeDraftRepo) seed(draft domain.PlanDraft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[draft.ID] = draft
}

func (r *fakeDraftRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

// draftWeeks is a minimal valid one-week plan for tests.
func draftWeeks() []domain.WeekPlan {
	return []domain.WeekPlan{{
		Week:      1,
		WeekStart: "2026-03-02",
		WeekEnd:   "2026-03-08",
		Sessions: []domain.PlannedSession{
			{SessionID: "p1", Date: "2026-03-03", Type: "run", Duration: 60},
			{SessionID: "p2", Date: "2026-03-05", Type: "swim", Duration: 45},
		},
	}}
}
