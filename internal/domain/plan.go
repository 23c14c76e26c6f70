package domain

import "time"

// PlannedSession is one proposed session inside a draft week plan. It carries
// the backend's session-template vocabulary; none of it is persisted by the
// gateway beyond the draft envelope.
type PlannedSession struct {
	SessionID    string  `json:"session_id" bson:"sessionId"`
	Date         string  `json:"date" bson:"date"` // YYYY-MM-DD
	Type         string  `json:"type" bson:"type"`
	Duration     int     `json:"duration" bson:"duration"` // minutes
	Distance     float64 `json:"distance,omitempty" bson:"distance,omitempty"`
	TemplateName string  `json:"template_name,omitempty" bson:"templateName,omitempty"`
}

// WeekPlan is one generated training week, not yet backend-owned.
type WeekPlan struct {
	Week      int              `json:"week" bson:"week"` // 1-based index within the plan
	WeekStart string           `json:"week_start" bson:"weekStart"`
	WeekEnd   string           `json:"week_end" bson:"weekEnd"`
	Sessions  []PlannedSession `json:"sessions" bson:"sessions"`
}

// ConflictReason classifies why a proposed session cannot be written.
type ConflictReason string

const (
	ReasonOverlap    ConflictReason = "overlap"     // proposed window intersects an existing persisted session
	ReasonManualEdit ConflictReason = "manual_edit" // existing session was hand-edited; never silently overwritten
)

// ExecutionConflict is a backend-detected collision between a proposed session
// and one already on the calendar. Conflicts are produced exclusively by the
// backend preview call; the gateway surfaces them verbatim and must not claim
// to detect conflicts it did not receive from the authority.
type ExecutionConflict struct {
	SessionID         string         `json:"session_id" bson:"sessionId"`                 // proposed
	ExistingSessionID string         `json:"existing_session_id" bson:"existingSessionId"` // already persisted
	Date              string         `json:"date" bson:"date"`
	Reason            ConflictReason `json:"reason" bson:"reason"`
}

// DraftStatus is the execution-gate state of a draft. Transitions:
//
//	idle -> checking -> {conflicts_found | clear} -> executing -> {done | failed}
//
// failed permits a fresh check (failed -> checking) but never executing
// directly; conflicts_found likewise re-enters checking only.
type DraftStatus string

const (
	DraftIdle           DraftStatus = "idle"
	DraftChecking       DraftStatus = "checking"
	DraftConflictsFound DraftStatus = "conflicts_found"
	DraftClear          DraftStatus = "clear"
	DraftExecuting      DraftStatus = "executing"
	DraftDone           DraftStatus = "done"
	DraftFailed         DraftStatus = "failed"
)

// ExecutionResult is the backend's commit response.
type ExecutionResult struct {
	Status          string `json:"status" bson:"status"`
	SessionsCreated int    `json:"sessions_created" bson:"sessionsCreated"`
	WeeksAffected   int    `json:"weeks_affected" bson:"weeksAffected"`
}

// PlanDraft is the gateway-held envelope for a generated plan between
// generation and confirmed execution. A draft is not authoritative training
// state: it is discarded on abort and on successful execution, and the
// expiresAt TTL reaps abandoned drafts. The calendar itself never lands here.
type PlanDraft struct {
	ID        string      `json:"id" bson:"_id"`
	AthleteID string      `json:"athlete_id" bson:"athleteId"`
	StartDate string      `json:"start_date" bson:"startDate"` // YYYY-MM-DD of the first plan week
	Timezone  string      `json:"timezone" bson:"timezone"`    // IANA name, passed to the conflict check
	Weeks     []WeekPlan  `json:"weeks" bson:"weeks"`
	Status    DraftStatus `json:"status" bson:"status"`

	// Result of the most recent conflict check; meaningful in
	// conflicts_found/clear states.
	Conflicts []ExecutionConflict `json:"conflicts,omitempty" bson:"conflicts,omitempty"`
	CheckedAt *time.Time          `json:"checked_at,omitempty" bson:"checkedAt,omitempty"`

	// Set when a commit attempt failed; the backend's message verbatim.
	LastError string `json:"last_error,omitempty" bson:"lastError,omitempty"`

	// Set once the plan was committed, just before the draft is discarded.
	Result *ExecutionResult `json:"result,omitempty" bson:"result,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
	ExpiresAt time.Time `json:"-" bson:"expiresAt"`
}

// SessionCount returns the total number of proposed sessions across all weeks.
func (d *PlanDraft) SessionCount() int {
	n := 0
	for _, w := range d.Weeks {
		n += len(w.Sessions)
	}
	return n
}

// GenerationStatus is the lifecycle of an upstream plan-generation job.
type GenerationStatus string

const (
	GenerationInProgress GenerationStatus = "in_progress"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationError      GenerationStatus = "error"
)

// GenerationJob is the backend's view of an asynchronous plan-generation run.
// The gateway polls it until the job leaves in_progress.
type GenerationJob struct {
	JobID    string           `json:"job_id"`
	Status   GenerationStatus `json:"status"`
	Progress int              `json:"progress"` // 0-100
	Weeks    []WeekPlan       `json:"weeks,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// GenerationRequest carries the athlete's plan parameters to the backend's
// generator. The gateway forwards it opaquely; plan content is the coach
// service's business.
type GenerationRequest struct {
	Weeks     int    `json:"weeks" bson:"weeks"`
	StartDate string `json:"start_date" bson:"startDate"`
	Timezone  string `json:"timezone" bson:"timezone"`
	Goal      string `json:"goal,omitempty" bson:"goal,omitempty"`           // e.g. "olympic-tri", "marathon"
	Emphasis  string `json:"emphasis,omitempty" bson:"emphasis,omitempty"`   // e.g. "bike-focus"
	Notes     string `json:"notes,omitempty" bson:"notes,omitempty"`
}
