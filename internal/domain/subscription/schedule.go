package subscription

import (
	"fmt"
	"sort"
	"time"

	"github.com/mealplan/backend/internal/domain/calendar"
	"github.com/mealplan/backend/internal/domain/shared"
)

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithSkipWeekends makes EVERY_DAY schedules skip Saturdays and Sundays
func WithSkipWeekends(skip bool) GeneratorOption {
	return func(g *Generator) {
		g.skipWeekends = skip
	}
}

// Generator expands a subscription into its concrete order dates
type Generator struct {
	skipWeekends bool
}

// NewGenerator creates a schedule generator
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// matches reports whether d is a delivery day of the pattern anchored at start
func (g *Generator) matches(pattern SchedulePattern, weekdays []time.Weekday, start, d calendar.Date) bool {
	switch pattern {
	case ScheduleEveryDay:
		return !(g.skipWeekends && d.IsWeekend())
	case ScheduleEveryOtherDay:
		return d.DaysSince(start)%2 == 0
	case ScheduleCustom:
		wd := d.Weekday()
		for _, w := range weekdays {
			if w == wd {
				return true
			}
		}
	}
	return false
}

// Dates returns the first count delivery dates of the pattern starting at start
func (g *Generator) Dates(pattern SchedulePattern, weekdays []time.Weekday, start calendar.Date, count int) []calendar.Date {
	if count <= 0 {
		return nil
	}
	if pattern == ScheduleCustom && len(weekdays) == 0 {
		return nil
	}
	dates := make([]calendar.Date, 0, count)
	for d := start; len(dates) < count; d = d.AddDays(1) {
		if g.matches(pattern, weekdays, start, d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// CountBetween counts delivery dates in the inclusive range [start, end]
func (g *Generator) CountBetween(pattern SchedulePattern, weekdays []time.Weekday, start, end calendar.Date) int {
	n := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if g.matches(pattern, weekdays, start, d) {
			n++
		}
	}
	return n
}

// Expected returns every date the subscription's schedule should cover
func (g *Generator) Expected(sub *Subscription) []calendar.Date {
	return g.Dates(sub.Pattern, sub.Weekdays, sub.StartDate, sub.PlannedDays())
}

// SyncEndDate sets EndDate to the last expected date
func (g *Generator) SyncEndDate(sub *Subscription) {
	dates := g.Expected(sub)
	if len(dates) == 0 {
		return
	}
	sub.EndDate = dates[len(dates)-1]
}

// Append creates orders for the expected dates that no existing order occupies.
// New dates must all lie after the current last occupied date; a hole in the middle
// of the schedule is reported as an integrity violation. Running it against a
// complete schedule returns nothing.
func (g *Generator) Append(sub *Subscription, existing []*Order, now time.Time) ([]*Order, error) {
	occupied := make(map[calendar.Date]bool, len(existing))
	var last calendar.Date
	for _, o := range existing {
		if !o.OccupiesSlot() {
			continue
		}
		occupied[o.Date] = true
		if o.Date.After(last) {
			last = o.Date
		}
	}

	var created []*Order
	for _, d := range g.Expected(sub) {
		if occupied[d] {
			continue
		}
		if !last.IsZero() && d.Before(last) {
			return nil, shared.NewIntegrityViolationError(
				fmt.Sprintf("Subscription %s schedule has a gap at %s before its last order %s", sub.ID, d, last))
		}
		created = append(created, NewOrder(sub, d, now))
	}
	return created, nil
}

// Surplus returns the occupied tail orders that fall outside the expected schedule,
// latest first. Each one must still be unconsumed, otherwise shrinking would
// discard a delivered or frozen day.
func (g *Generator) Surplus(sub *Subscription, existing []*Order) ([]*Order, error) {
	dates := g.Expected(sub)
	expected := make(map[calendar.Date]bool, len(dates))
	for _, d := range dates {
		expected[d] = true
	}
	var lastExpected calendar.Date
	if len(dates) > 0 {
		lastExpected = dates[len(dates)-1]
	}

	var surplus []*Order
	for _, o := range existing {
		if o.OccupiesSlot() && !expected[o.Date] {
			surplus = append(surplus, o)
		}
	}
	sort.Slice(surplus, func(i, j int) bool { return surplus[i].Date.After(surplus[j].Date) })

	for _, o := range surplus {
		if !lastExpected.IsZero() && o.Date.Before(lastExpected) {
			return nil, shared.NewIntegrityViolationError(
				fmt.Sprintf("Order %s on %s is off schedule inside the subscription window", o.ID, o.Date))
		}
		if !o.IsUnconsumed() {
			return nil, shared.NewIntegrityViolationError(
				fmt.Sprintf("Tail order %s on %s is %s and cannot be removed", o.ID, o.Date, o.Status))
		}
	}
	return surplus, nil
}
