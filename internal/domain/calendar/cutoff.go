package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/mealplan/backend/internal/domain/shared"
)

// TimeOfDay is a wall-clock time without a date
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time as HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of t on date d in loc
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// CutoffStatus is the result of evaluating a tenant's cutoff at one instant
type CutoffStatus struct {
	Location  *time.Location
	Today     Date
	CutoffAt  time.Time
	Cutoff    TimeOfDay
	Passed    bool
	Fallback  bool // timezone could not be resolved, UTC was used
	Evaluated time.Time
}

// Yesterday returns the local date before Today
func (s CutoffStatus) Yesterday() Date {
	return s.Today.AddDays(-1)
}

// CutoffService converts UTC instants into tenant-local dates and evaluates the
// daily cutoff. Resolved locations are cached.
type CutoffService struct {
	locations sync.Map
}

// NewCutoffService creates a cutoff service
func NewCutoffService() *CutoffService {
	return &CutoffService{}
}

// ResolveLocation loads tz, falling back to UTC when tz is empty or unknown.
// The second return value is false when the fallback was used.
func (s *CutoffService) ResolveLocation(tz string) (*time.Location, bool) {
	if tz == "" {
		return time.UTC, false
	}
	if cached, ok := s.locations.Load(tz); ok {
		return cached.(*time.Location), true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, false
	}
	s.locations.Store(tz, loc)
	return loc, true
}

// Today returns the tenant-local date of now
func (s *CutoffService) Today(now time.Time, tz string) Date {
	loc, _ := s.ResolveLocation(tz)
	return DateOf(now.In(loc))
}

// Evaluate computes local today and whether the cutoff for local today has passed.
// The cutoff counts as passed from the cutoff instant itself onward.
func (s *CutoffService) Evaluate(now time.Time, tz string, cutoff TimeOfDay) CutoffStatus {
	loc, resolved := s.ResolveLocation(tz)
	local := now.In(loc)
	today := DateOf(local)
	cutoffAt := cutoff.On(today, loc)
	return CutoffStatus{
		Location:  loc,
		Today:     today,
		CutoffAt:  cutoffAt,
		Cutoff:    cutoff,
		Passed:    !local.Before(cutoffAt),
		Fallback:  !resolved && tz != "",
		Evaluated: now,
	}
}

// CheckMutable rejects mutations of an order dated before local today (PAST_DATE)
// or dated local today once the cutoff has passed (CUTOFF_PASSED).
func CheckMutable(date Date, status CutoffStatus) error {
	if date.Before(status.Today) {
		return shared.NewDomainError(shared.CodePastDate,
			fmt.Sprintf("Order date %s is in the past", date))
	}
	if date == status.Today && status.Passed {
		return shared.NewDomainError(shared.CodeCutoffPassed,
			fmt.Sprintf("Cutoff %s has passed for %s", status.Cutoff, date))
	}
	return nil
}

// CheckNotPast rejects dates before local today
func CheckNotPast(date Date, today Date) error {
	if date.Before(today) {
		return shared.NewDomainError(shared.CodePastDate,
			fmt.Sprintf("Order date %s is in the past", date))
	}
	return nil
}
