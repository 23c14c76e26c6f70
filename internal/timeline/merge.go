package timeline

import (
	"sort"

	"tridash/gateway/internal/domain"
)

// MergeDay collapses one day's planned sessions and completed workouts into
// the minimal non-duplicated list of timeline cards. Records are grouped by
// normalized sport key and the keys are walked in sorted order, so the output
// is deterministic across re-renders and independent of backend response
// ordering.
//
// Per sport key, with P = planned sessions and W = completed workouts:
//
//   - |P|==1 and |W|==1: emit only the workout. A completed session is the
//     record of what happened; its plan is absorbed into it.
//   - |P|==0 and |W|==2: duplicate ingestion, where a completed plan and an
//     independently synced unpaired activity both arrived as workouts. Emit
//     exactly one, chosen by pickBestWorkout.
//   - anything else: emit every record unmerged, planned first then workouts,
//     each in input order. Ambiguous count combinations are deliberately left
//     alone rather than silently dropped.
//
// The activities slice is pairing evidence only (planned_session_id
// back-references); activities themselves do not produce cards here.
func MergeDay(planned, workouts []domain.CalendarSession, activities []domain.CompletedActivity) []domain.CalendarItem {
	type group struct {
		planned  []domain.CalendarSession
		workouts []domain.CalendarSession
	}
	groups := make(map[domain.Sport]*group)
	grab := func(s domain.CalendarSession) *group {
		key := SportKey(s.Type, s.Title)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		return g
	}
	for _, s := range planned {
		g := grab(s)
		g.planned = append(g.planned, s)
	}
	for _, s := range workouts {
		g := grab(s)
		g.workouts = append(g.workouts, s)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	var items []domain.CalendarItem
	for _, k := range keys {
		g := groups[domain.Sport(k)]
		switch {
		case len(g.planned) == 1 && len(g.workouts) == 1:
			item := NormalizeSession(g.workouts[0])
			item.IsPaired = true
			items = append(items, item)
		case len(g.planned) == 0 && len(g.workouts) == 2:
			best := pickBestWorkout(g.workouts[0], g.workouts[1], activities)
			item := NormalizeSession(best)
			if workoutLinkScore(best, activities) > 0 {
				item.IsPaired = true
			}
			items = append(items, item)
		default:
			for _, s := range g.planned {
				items = append(items, NormalizeSession(s))
			}
			for _, s := range g.workouts {
				items = append(items, NormalizeSession(s))
			}
		}
	}
	return items
}

// pickBestWorkout chooses which of two same-sport workouts survives the
// duplicate-ingestion merge. Higher linkage score wins; on a tie the
// first-seen candidate is kept, so the choice is stable for a fixed input
// order.
func pickBestWorkout(a, b domain.CalendarSession, activities []domain.CompletedActivity) domain.CalendarSession {
	if workoutLinkScore(b, activities) > workoutLinkScore(a, activities) {
		return b
	}
	return a
}

// workoutLinkScore ranks a workout's pairing evidence: 2 for explicit linkage
// set by the backend, 1 for an activity back-reference, 0 for none.
func workoutLinkScore(s domain.CalendarSession, activities []domain.CompletedActivity) int {
	if s.CompletedActivityID != "" || s.WorkoutID != "" {
		return 2
	}
	for _, a := range activities {
		if a.PlannedSessionID != "" && a.PlannedSessionID == s.ID {
			return 1
		}
	}
	return 0
}
