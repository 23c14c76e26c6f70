package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tridash/gateway/internal/cache"
	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/upstream"
)

func executionFixture(api *fakeAPI) (*fakeDraftRepo, *cache.Cache, ExecutionService) {
	repo := newFakeDraftRepo()
	queryCache := cache.New(time.Minute)
	svc := NewExecutionService(api, repo, queryCache)
	return repo, queryCache, svc
}

func seedDraft(repo *fakeDraftRepo, status domain.DraftStatus) domain.PlanDraft {
	draft := domain.PlanDraft{
		ID:        "d1",
		AthleteID: "ath-1",
		StartDate: "2026-03-02",
		Timezone:  "UTC",
		Weeks:     draftWeeks(),
		Status:    status,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	repo.seed(draft)
	return draft
}

func TestPreview_ConflictsBecomeDraftState(t *testing.T) {
	api := &fakeAPI{conflicts: []domain.ExecutionConflict{
		{SessionID: "p1", ExistingSessionID: "s7", Date: "2026-03-03", Reason: domain.ReasonOverlap},
		{SessionID: "p2", ExistingSessionID: "s9", Date: "2026-03-05", Reason: domain.ReasonManualEdit},
	}}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftIdle)

	draft, err := svc.Preview(context.Background(), "ath-1", "d1")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if draft.Status != domain.DraftConflictsFound {
		t.Errorf("status = %q, want conflicts_found", draft.Status)
	}
	if len(draft.Conflicts) != 2 || draft.Conflicts[0].Reason != domain.ReasonOverlap {
		t.Errorf("conflicts = %+v", draft.Conflicts)
	}
	if draft.CheckedAt == nil {
		t.Error("CheckedAt not set")
	}

	stored, _ := repo.stored("d1")
	if stored.Status != domain.DraftConflictsFound || len(stored.Conflicts) != 2 {
		t.Errorf("stored draft = %+v", stored)
	}
}

func TestPreview_CleanCheckClearsTheGate(t *testing.T) {
	api := &fakeAPI{}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftIdle)

	draft, err := svc.Preview(context.Background(), "ath-1", "d1")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if draft.Status != domain.DraftClear {
		t.Errorf("status = %q, want clear", draft.Status)
	}
	if len(draft.Conflicts) != 0 {
		t.Errorf("conflicts = %+v, want none", draft.Conflicts)
	}
}

func TestPreview_NewerCheckSupersedesOlder(t *testing.T) {
	api := &fakeAPI{conflicts: []domain.ExecutionConflict{
		{SessionID: "p1", ExistingSessionID: "s7", Date: "2026-03-03", Reason: domain.ReasonOverlap},
	}}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftIdle)

	if _, err := svc.Preview(context.Background(), "ath-1", "d1"); err != nil {
		t.Fatalf("first Preview: %v", err)
	}

	// The athlete rescheduled the clashing session; the next check is clean.
	api.mu.Lock()
	api.conflicts = nil
	api.mu.Unlock()

	draft, err := svc.Preview(context.Background(), "ath-1", "d1")
	if err != nil {
		t.Fatalf("second Preview: %v", err)
	}
	if draft.Status != domain.DraftClear || len(draft.Conflicts) != 0 {
		t.Errorf("draft after re-check = %q with %+v", draft.Status, draft.Conflicts)
	}
}

func TestPreview_UpstreamFailureRestoresPriorState(t *testing.T) {
	api := &fakeAPI{previewErr: errors.New("preview endpoint down")}
	repo, _, svc := executionFixture(api)
	checked := time.Now().UTC().Add(-time.Hour)
	draft := domain.PlanDraft{
		ID: "d1", AthleteID: "ath-1", StartDate: "2026-03-02", Timezone: "UTC",
		Weeks: draftWeeks(), Status: domain.DraftConflictsFound,
		Conflicts: []domain.ExecutionConflict{{SessionID: "p1", Date: "2026-03-03", Reason: domain.ReasonOverlap}},
		CheckedAt: &checked,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	repo.seed(draft)

	if _, err := svc.Preview(context.Background(), "ath-1", "d1"); err == nil {
		t.Fatal("expected the upstream failure to surface")
	}

	stored, _ := repo.stored("d1")
	if stored.Status != domain.DraftConflictsFound {
		t.Errorf("status after failed check = %q, want the prior conflicts_found", stored.Status)
	}
	if len(stored.Conflicts) != 1 {
		t.Errorf("prior conflicts lost: %+v", stored.Conflicts)
	}
}

func TestPreview_RefusedWhileExecuting(t *testing.T) {
	api := &fakeAPI{}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftExecuting)

	if _, err := svc.Preview(context.Background(), "ath-1", "d1"); !errors.Is(err, ErrDraftExecuting) {
		t.Fatalf("err = %v, want ErrDraftExecuting", err)
	}
	if _, _, _, _, preview, _ := api.counts(); preview != 0 {
		t.Errorf("preview calls = %d, want 0", preview)
	}
}

func TestConfirm_RequiresAcknowledgement(t *testing.T) {
	api := &fakeAPI{}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftClear)

	if _, err := svc.Confirm(context.Background(), "ath-1", "d1", false); !errors.Is(err, ErrNotAcknowledged) {
		t.Fatalf("err = %v, want ErrNotAcknowledged", err)
	}
	if _, _, _, _, _, commit := api.counts(); commit != 0 {
		t.Errorf("commit calls = %d, want 0", commit)
	}
}

func TestConfirm_RequiresAPassingCheck(t *testing.T) {
	for _, status := range []domain.DraftStatus{domain.DraftIdle, domain.DraftChecking, domain.DraftConflictsFound, domain.DraftFailed} {
		t.Run(string(status), func(t *testing.T) {
			api := &fakeAPI{}
			repo, _, svc := executionFixture(api)
			seedDraft(repo, status)

			if _, err := svc.Confirm(context.Background(), "ath-1", "d1", true); !errors.Is(err, ErrDraftNotClear) {
				t.Fatalf("err = %v, want ErrDraftNotClear", err)
			}
			if _, _, _, _, _, commit := api.counts(); commit != 0 {
				t.Errorf("commit calls = %d, want 0", commit)
			}
		})
	}
}

func TestConfirm_CommitsDiscardsAndInvalidates(t *testing.T) {
	api := &fakeAPI{result: domain.ExecutionResult{Status: "ok", SessionsCreated: 2, WeeksAffected: 1}}
	repo, queryCache, svc := executionFixture(api)
	seedDraft(repo, domain.DraftClear)

	// Prime a cached season so the invalidation is observable.
	queryCache.GetOrLoad(context.Background(), "ath-1|2026", func(ctx context.Context) (any, error) { return 1, nil })

	draft, err := svc.Confirm(context.Background(), "ath-1", "d1", true)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if draft.Status != domain.DraftDone {
		t.Errorf("status = %q, want done", draft.Status)
	}
	if draft.Result == nil || draft.Result.SessionsCreated != 2 {
		t.Errorf("result = %+v", draft.Result)
	}
	if _, ok := repo.stored("d1"); ok {
		t.Error("executed draft should be discarded")
	}
	if got := queryCache.KeyState("ath-1|2026"); got != cache.StateEmpty {
		t.Errorf("season cache state = %q, want empty after execution", got)
	}
	if _, _, _, _, _, commit := api.counts(); commit != 1 {
		t.Errorf("commit calls = %d, want 1", commit)
	}
}

func TestConfirm_FailureKeepsDraftWithVerbatimError(t *testing.T) {
	api := &fakeAPI{commitErr: &upstream.APIError{StatusCode: 422, Detail: "week 2 overlaps a race block"}}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftClear)

	_, err := svc.Confirm(context.Background(), "ath-1", "d1", true)
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}

	stored, ok := repo.stored("d1")
	if !ok {
		t.Fatal("failed draft must be retained")
	}
	if stored.Status != domain.DraftFailed {
		t.Errorf("status = %q, want failed", stored.Status)
	}
	if stored.LastError != "week 2 overlaps a race block" {
		t.Errorf("LastError = %q, want the backend message verbatim", stored.LastError)
	}

	// A failed draft needs a fresh check before another confirm.
	if _, err := svc.Confirm(context.Background(), "ath-1", "d1", true); !errors.Is(err, ErrDraftNotClear) {
		t.Errorf("re-confirm err = %v, want ErrDraftNotClear", err)
	}
	if _, _, _, _, _, commit := api.counts(); commit != 1 {
		t.Errorf("commit calls = %d, want 1", commit)
	}
}

func TestConfirm_OnlyOneConcurrentWinner(t *testing.T) {
	api := &fakeAPI{commitDelay: 30 * time.Millisecond, result: domain.ExecutionResult{Status: "ok"}}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftClear)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(context.Background(), "ath-1", "d1", true)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, ErrDraftExecuting) && !errors.Is(err, ErrDraftNotClear) && !errors.Is(err, ErrDraftNotFound) {
			t.Errorf("loser error = %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if _, _, _, _, _, commit := api.counts(); commit != 1 {
		t.Errorf("commit calls = %d, want exactly 1", commit)
	}
}

func TestAbort_DiscardsWithoutUpstreamCalls(t *testing.T) {
	api := &fakeAPI{}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftConflictsFound)

	if err := svc.Abort(context.Background(), "ath-1", "d1"); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if repo.size() != 0 {
		t.Error("aborted draft still stored")
	}

	season, status, generate, poll, preview, commit := api.counts()
	if season+status+generate+poll+preview+commit != 0 {
		t.Errorf("abort made upstream calls: %d %d %d %d %d %d", season, status, generate, poll, preview, commit)
	}
}

func TestAbort_RefusedWhileExecuting(t *testing.T) {
	api := &fakeAPI{}
	repo, _, svc := executionFixture(api)
	seedDraft(repo, domain.DraftExecuting)

	if err := svc.Abort(context.Background(), "ath-1", "d1"); !errors.Is(err, ErrDraftExecuting) {
		t.Fatalf("err = %v, want ErrDraftExecuting", err)
	}
	if repo.size() != 1 {
		t.Error("executing draft was deleted")
	}
}
