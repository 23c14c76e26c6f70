package domain

// SessionStatus type for the backend-owned session lifecycle
type SessionStatus string

const (
	StatusPlanned   SessionStatus = "planned"
	StatusCompleted SessionStatus = "completed"
	StatusSkipped   SessionStatus = "skipped"
	StatusDeleted   SessionStatus = "deleted"
	StatusMissed    SessionStatus = "missed" // backend-assigned; the gateway never infers it
)

// Compliance is the backend-assigned execution quality label for a completed
// session relative to its plan. It is consumed verbatim, never computed here.
type Compliance string

const (
	ComplianceComplete Compliance = "complete"
	CompliancePartial  Compliance = "partial"
	ComplianceMissed   Compliance = "missed"
)

// SessionStep is one structured step inside a planned workout.
type SessionStep struct {
	Order       int    `json:"order" bson:"order"`
	Description string `json:"description" bson:"description"`
	DurationMin int    `json:"duration_minutes,omitempty" bson:"durationMinutes,omitempty"`
	Zone        string `json:"zone,omitempty" bson:"zone,omitempty"` // e.g. "Z2", "threshold"
}

// CalendarSession is a planned or completed session as stored by the training
// backend. Sessions are created and mutated exclusively server-side; the
// gateway reads them and proxies explicit status updates back.
type CalendarSession struct {
	ID              string        `json:"id"`
	Date            string        `json:"date"` // YYYY-MM-DD, athlete-local
	Type            string        `json:"type"` // raw sport label, normalized via timeline.SportKey
	Title           string        `json:"title"`
	DurationMinutes int           `json:"duration_minutes"`
	DistanceKm      float64       `json:"distance_km,omitempty"`
	Intensity       string        `json:"intensity,omitempty"` // e.g. "easy", "tempo", "vo2max"
	Status          SessionStatus `json:"status"`
	Compliance      Compliance    `json:"compliance,omitempty"` // set by the backend for completed sessions

	// Linkage set by the backend when a session has been executed: either the
	// synced activity that fulfilled it or the workout record it produced.
	CompletedActivityID string `json:"completed_activity_id,omitempty"`
	WorkoutID           string `json:"workout_id,omitempty"`

	Steps          []SessionStep `json:"steps,omitempty"`
	CoachInsight   string        `json:"coach_insight,omitempty"`
	ExecutionNotes string        `json:"execution_notes,omitempty"`
	MustDos        []string      `json:"must_dos,omitempty"`
}

// Record is the sealed union of source shapes the timeline normalizer
// accepts. Both backend record types implement it; nothing else can.
type Record interface {
	isCalendarRecord()
}

func (CalendarSession) isCalendarRecord()   {}
func (CompletedActivity) isCalendarRecord() {}

// CompletedActivity is an activity-tracker record ingested by the backend's
// sync pipeline. The field naming follows the tracker feed, which predates the
// session API and uses a different convention.
type CompletedActivity struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"` // YYYY-MM-DD
	Sport        string  `json:"sport"`
	Duration     int     `json:"duration"` // minutes
	Distance     float64 `json:"distance"` // km
	TrainingLoad float64 `json:"trainingLoad,omitempty"`
	AvgPace      string  `json:"avgPace,omitempty"`
	AvgHeartRate int     `json:"avgHeartRate,omitempty"`

	// Weak back-reference to the planned session this activity fulfilled.
	// Read-only evidence for pairing; never used to mutate the session.
	PlannedSessionID string `json:"planned_session_id,omitempty"`
}
