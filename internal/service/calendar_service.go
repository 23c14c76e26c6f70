package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tridash/gateway/internal/cache"
	"tridash/gateway/internal/domain"
	"tridash/gateway/internal/timeline"
	"tridash/gateway/internal/upstream"
)

// --- Error Definitions ---
var (
	ErrInvalidRange  = errors.New("invalid calendar range")
	ErrInvalidStatus = errors.New("invalid session status")
)

// maxRangeDays caps a single calendar read. The dashboard asks for weeks or
// months at a time; anything wider than a season is a client bug.
const maxRangeDays = 370

// seasonData is one cached season fetch: everything the backend holds for one
// athlete and calendar year.
type seasonData struct {
	Sessions   []domain.CalendarSession
	Activities []domain.CompletedActivity
}

// --- Service Interface ---
type CalendarService interface {
	// RangeView returns one DayView per calendar day in [from, to],
	// inclusive, each carrying its merged timeline items.
	RangeView(ctx context.Context, athleteID string, from, to time.Time) ([]domain.DayView, error)
	// UpdateSessionStatus proxies an explicit athlete action (complete, skip,
	// delete) to the backend and drops the athlete's cached seasons on
	// success.
	UpdateSessionStatus(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error
}

// --- Service Implementation ---

// calendarService implements the CalendarService interface.
type calendarService struct {
	api   upstream.TrainingAPI
	cache *cache.Cache
}

// NewCalendarService creates a new instance of calendarService.
func NewCalendarService(api upstream.TrainingAPI, queryCache *cache.Cache) CalendarService {
	return &calendarService{
		api:   api,
		cache: queryCache,
	}
}

func (s *calendarService) RangeView(ctx context.Context, athleteID string, from, to time.Time) ([]domain.DayView, error) {
	// 1. Validate the window
	if athleteID == "" {
		return nil, errors.New("athlete ID is required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: window exceeds %d days", ErrInvalidRange, maxRangeDays)
	}

	// 2. Fetch every season the window touches (usually one; two across a
	// year boundary). The backend serves whole seasons; filtering is ours.
	var sessions []domain.CalendarSession
	var activities []domain.CompletedActivity
	for year := from.Year(); year <= to.Year(); year++ {
		season, err := s.seasonFor(ctx, athleteID, year)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, season.Sessions...)
		activities = append(activities, season.Activities...)
	}

	// 3. Bucket per day, dropping malformed records instead of failing
	buckets, dropped := timeline.AssembleRange(from, to, sessions, activities)
	if len(dropped) > 0 {
		log.Printf("WARN: calendar: excluded %d malformed records for athlete %s: %v", len(dropped), athleteID, dropped)
	}

	// 4. Merge each day into its timeline cards
	views := make([]domain.DayView, 0, len(buckets))
	for _, b := range buckets {
		items := timeline.MergeDay(b.Planned, b.Workouts, b.Activities)
		if items == nil {
			items = []domain.CalendarItem{}
		}
		views = append(views, domain.DayView{Date: b.Date, Items: items})
	}
	return views, nil
}

func (s *calendarService) UpdateSessionStatus(ctx context.Context, athleteID, sessionID string, status domain.SessionStatus) error {
	if athleteID == "" || sessionID == "" {
		return errors.New("athlete ID and session ID are required")
	}
	// Only explicit athlete actions go through; planned and missed are
	// backend-assigned states.
	switch status {
	case domain.StatusCompleted, domain.StatusSkipped, domain.StatusDeleted:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.api.UpdateSessionStatus(ctx, athleteID, sessionID, status); err != nil {
		// The cache stays as it was: the backend rejected the write, so the
		// cached state is still the true one.
		return err
	}

	s.cache.InvalidatePrefix(seasonKeyPrefix(athleteID))
	return nil
}

// seasonFor returns the athlete's season payload, from cache or upstream.
// Concurrent callers for the same season share one fetch.
func (s *calendarService) seasonFor(ctx context.Context, athleteID string, year int) (seasonData, error) {
	key := seasonKey(athleteID, year)
	v, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		sessions, err := s.api.SeasonSessions(ctx, athleteID, year)
		if err != nil {
			return nil, err
		}
		activities, err := s.api.Activities(ctx, athleteID,
			fmt.Sprintf("%d-01-01", year), fmt.Sprintf("%d-12-31", year))
		if err != nil {
			return nil, err
		}
		return seasonData{Sessions: sessions, Activities: activities}, nil
	})
	if err != nil {
		return seasonData{}, err
	}
	season, ok := v.(seasonData)
	if !ok {
		return seasonData{}, fmt.Errorf("unexpected cache payload for %s", key)
	}
	return season, nil
}

func seasonKey(athleteID string, year int) string {
	return fmt.Sprintf("%s|%d", athleteID, year)
}

func seasonKeyPrefix(athleteID string) string {
	return athleteID + "|"
}
