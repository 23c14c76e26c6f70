package timeline

import "tridash/gateway/internal/domain"

// Normalize converts a source record into the canonical CalendarItem shape.
// It is total: no I/O, no panics, and unknown or missing fields degrade to
// safe defaults (duration 0, sport "other") rather than failing. The type
// switch is the explicit discriminant over the sealed record union.
func Normalize(rec domain.Record) domain.CalendarItem {
	switch r := rec.(type) {
	case domain.CalendarSession:
		return NormalizeSession(r)
	case domain.CompletedActivity:
		return NormalizeActivity(r)
	default:
		// Nil interface. Nothing to represent, but stay total.
		return domain.CalendarItem{Kind: domain.KindPlanned, Sport: domain.SportOther}
	}
}

// NormalizeSession maps a backend session onto a timeline card.
// status == completed yields a completed card; every other status (planned,
// missed, skipped, deleted) yields a planned one. Compliance is carried over
// only when the backend set it explicitly, either via the compliance field or
// a missed status. The gateway never infers compliance from date comparisons;
// that judgement belongs to the backend.
func NormalizeSession(s domain.CalendarSession) domain.CalendarItem {
	item := domain.CalendarItem{
		ID:          s.ID,
		Kind:        domain.KindPlanned,
		Sport:       SportKey(s.Type, s.Title),
		Intent:      s.Intensity,
		Title:       s.Title,
		StartLocal:  s.Date,
		DurationMin: s.DurationMinutes,
		IsPaired:    s.CompletedActivityID != "" || s.WorkoutID != "",
	}
	if s.Status == domain.StatusCompleted {
		item.Kind = domain.KindCompleted
	}
	if item.DurationMin < 0 {
		item.DurationMin = 0
	}
	if item.Title == "" {
		item.Title = string(item.Sport)
	}
	switch {
	case s.Compliance != "":
		item.Compliance = s.Compliance
	case s.Status == domain.StatusMissed:
		item.Compliance = domain.ComplianceMissed
	}
	return item
}

// NormalizeActivity maps a tracker activity onto a completed timeline card.
// Activities have no plan-side vocabulary (no intent, no compliance); the
// card carries only what the tracker measured.
func NormalizeActivity(a domain.CompletedActivity) domain.CalendarItem {
	item := domain.CalendarItem{
		ID:          a.ID,
		Kind:        domain.KindCompleted,
		Sport:       SportKey(a.Sport, ""),
		Title:       a.Sport,
		StartLocal:  a.Date,
		DurationMin: a.Duration,
		Load:        a.TrainingLoad,
		IsPaired:    a.PlannedSessionID != "",
	}
	if item.DurationMin < 0 {
		item.DurationMin = 0
	}
	if item.Title == "" {
		item.Title = string(item.Sport)
	}
	return item
}
