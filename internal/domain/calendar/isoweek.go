package calendar

import "time"

// ISOWeek identifies an ISO 8601 week
type ISOWeek struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// Start returns the Monday of the week
func (w ISOWeek) Start() Date {
	// January 4th is always in ISO week 1.
	jan4 := NewDate(w.Year, time.January, 4)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDays(-offset + (w.Week-1)*7)
}

// End returns the Sunday of the week
func (w ISOWeek) End() Date {
	return w.Start().AddDays(6)
}
