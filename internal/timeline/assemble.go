package timeline

import (
	"time"

	"tridash/gateway/internal/domain"
)

const dateLayout = "2006-01-02"

// AssembleRange partitions a broad window of sessions and activities into one
// bucket per calendar day of [start, end], walking the range inclusively one
// day at a time: no gaps, no skipped days, empty days included. The bucket
// count always equals the number of calendar days in the range regardless of
// data sparsity; an inverted range yields no buckets.
//
// Sessions are split per day into planned (status not in completed/deleted/
// skipped) and workouts (status completed); deleted and skipped sessions are
// excluded from both. Activities attach by exact date-string match.
//
// Records whose date is missing or unparseable are excluded from bucketing
// entirely instead of aborting the walk; their IDs come back in the second
// return value for the caller to log.
func AssembleRange(start, end time.Time, sessions []domain.CalendarSession, activities []domain.CompletedActivity) ([]domain.DayBucket, []string) {
	startDay := civilDate(start)
	endDay := civilDate(end)
	if endDay.Before(startDay) {
		return nil, nil
	}

	var dropped []string
	sessionsByDay := make(map[string][]domain.CalendarSession)
	for _, s := range sessions {
		key, ok := dateKey(s.Date)
		if !ok {
			dropped = append(dropped, recordID(s.ID))
			continue
		}
		sessionsByDay[key] = append(sessionsByDay[key], s)
	}
	activitiesByDay := make(map[string][]domain.CompletedActivity)
	for _, a := range activities {
		key, ok := dateKey(a.Date)
		if !ok {
			dropped = append(dropped, recordID(a.ID))
			continue
		}
		activitiesByDay[key] = append(activitiesByDay[key], a)
	}

	days := int(endDay.Sub(startDay).Hours()/24) + 1
	buckets := make([]domain.DayBucket, 0, days)
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		ds := day.Format(dateLayout)
		bucket := domain.DayBucket{
			Date:       ds,
			Planned:    []domain.CalendarSession{},
			Workouts:   []domain.CalendarSession{},
			Activities: []domain.CompletedActivity{},
		}
		for _, s := range sessionsByDay[ds] {
			switch s.Status {
			case domain.StatusCompleted:
				bucket.Workouts = append(bucket.Workouts, s)
			case domain.StatusDeleted, domain.StatusSkipped:
				// Dropped from the visual timeline by definition.
			default:
				bucket.Planned = append(bucket.Planned, s)
			}
		}
		if acts, ok := activitiesByDay[ds]; ok {
			bucket.Activities = append(bucket.Activities, acts...)
		}
		buckets = append(buckets, bucket)
	}
	return buckets, dropped
}

// civilDate truncates a timestamp to its calendar day. The walk operates on
// whole days in UTC so DST shifts in the input zone cannot skip or double a
// day.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateKey validates a record's date string and returns the canonical bucket
// key for it.
func dateKey(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", false
	}
	return t.Format(dateLayout), true
}

func recordID(id string) string {
	if id == "" {
		return "(missing id)"
	}
	return id
}
