package domain

// ItemKind distinguishes planned cards from completed ones on the timeline.
type ItemKind string

const (
	KindPlanned   ItemKind = "planned"
	KindCompleted ItemKind = "completed"
)

// Sport is the normalized category used to group same-discipline records.
type Sport string

const (
	SportRun      Sport = "run"
	SportRide     Sport = "ride"
	SportSwim     Sport = "swim"
	SportStrength Sport = "strength"
	SportRace     Sport = "race"
	SportOther    Sport = "other"
)

// CalendarItem is one visual card on the per-day timeline. Items are derived,
// UI-owned and ephemeral: rebuilt on every fetch, never persisted, no identity
// across renders. Every scalar field belongs to the single source record the
// item was normalized from; an item never blends duration or load from two
// semantically different sessions.
type CalendarItem struct {
	ID          string     `json:"id"`
	Kind        ItemKind   `json:"kind"`
	Sport       Sport      `json:"sport"`
	Intent      string     `json:"intent,omitempty"` // training intent, from the session's intensity label
	Title       string     `json:"title"`
	StartLocal  string     `json:"start_local"` // athlete-local date (YYYY-MM-DD)
	DurationMin int        `json:"duration_min"`
	Load        float64    `json:"load,omitempty"`
	Compliance  Compliance `json:"compliance,omitempty"`
	IsPaired    bool       `json:"is_paired"` // plan and execution are explicitly linked
}

// DayBucket holds one calendar day's records partitioned for the merge engine:
// planned sessions, completed workouts (sessions with status completed), and
// raw tracker activities for that date.
type DayBucket struct {
	Date       string              `json:"date"`
	Planned    []CalendarSession   `json:"plannedSessions"`
	Workouts   []CalendarSession   `json:"workouts"`
	Activities []CompletedActivity `json:"completedActivities"`
}

// DayView is one rendered calendar day: the date plus its merged, deduplicated
// timeline cards. A day with nothing on it still appears, with an empty list.
type DayView struct {
	Date  string         `json:"date"`
	Items []CalendarItem `json:"items"`
}
