package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed five-field cron expression (minute hour day-of-month
// month day-of-week). Fields accept "*", numbers, ranges "a-b", lists "a,b"
// and steps "*/n" or "a-b/n". Matching happens in UTC.
type Schedule struct {
	expr    string
	minute  uint64
	hour    uint64
	dom     uint64
	month   uint64
	dow     uint64
	domStar bool
	dowStar bool
}

type fieldBounds struct {
	name     string
	min, max int
}

var cronFields = [5]fieldBounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// ParseSchedule parses a standard five-field cron expression
func ParseSchedule(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: %q needs 5 fields, got %d", ErrInvalidSchedule, expr, len(fields))
	}

	var sets [5]uint64
	for i, f := range fields {
		set, err := parseField(f, cronFields[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, expr, err)
		}
		sets[i] = set
	}
	// 7 is an alias for Sunday
	if sets[4]&(1<<7) != 0 {
		sets[4] |= 1
	}

	return &Schedule{
		expr:    expr,
		minute:  sets[0],
		hour:    sets[1],
		dom:     sets[2],
		month:   sets[3],
		dow:     sets[4],
		domStar: fields[2] == "*",
		dowStar: fields[4] == "*",
	}, nil
}

func parseField(field string, b fieldBounds) (uint64, error) {
	var set uint64
	for _, part := range strings.Split(field, ",") {
		rangePart, stepPart, hasStep := strings.Cut(part, "/")
		step := 1
		if hasStep {
			n, err := strconv.Atoi(stepPart)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("%s: bad step %q", b.name, stepPart)
			}
			step = n
		}

		lo, hi := b.min, b.max
		switch {
		case rangePart == "*":
		case strings.Contains(rangePart, "-"):
			from, to, _ := strings.Cut(rangePart, "-")
			var err error
			if lo, err = parseBound(from, b); err != nil {
				return 0, err
			}
			if hi, err = parseBound(to, b); err != nil {
				return 0, err
			}
			if lo > hi {
				return 0, fmt.Errorf("%s: range %q is reversed", b.name, rangePart)
			}
		default:
			n, err := parseBound(rangePart, b)
			if err != nil {
				return 0, err
			}
			lo = n
			if !hasStep {
				hi = n
			}
		}

		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}
	return set, nil
}

func parseBound(s string, b fieldBounds) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", b.name, s)
	}
	if n < b.min || n > b.max {
		return 0, fmt.Errorf("%s: %d outside %d-%d", b.name, n, b.min, b.max)
	}
	return n, nil
}

// Matches reports whether t, truncated to the minute, is a firing time
func (s *Schedule) Matches(t time.Time) bool {
	t = t.UTC()
	if s.minute&(1<<uint(t.Minute())) == 0 ||
		s.hour&(1<<uint(t.Hour())) == 0 ||
		s.month&(1<<uint(t.Month())) == 0 {
		return false
	}
	domOK := s.dom&(1<<uint(t.Day())) != 0
	dowOK := s.dow&(1<<uint(t.Weekday())) != 0
	// Classic cron: when both day fields are restricted either one may match
	if !s.domStar && !s.dowStar {
		return domOK || dowOK
	}
	return domOK && dowOK
}

// Next returns the first firing time strictly after t, searching up to a year ahead
func (s *Schedule) Next(t time.Time) (time.Time, bool) {
	next := t.UTC().Truncate(time.Minute).Add(time.Minute)
	limit := next.AddDate(1, 0, 0)
	for next.Before(limit) {
		if s.Matches(next) {
			return next, true
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}, false
}

// String returns the original expression
func (s *Schedule) String() string {
	return s.expr
}
