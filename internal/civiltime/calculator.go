// Package civiltime computes civil day and week boundaries in a fixed
// named timezone. Boundaries are found by probing candidate UTC instants
// against the zone's formatted wall-clock output rather than assuming a
// fixed offset, which keeps the math correct across daylight-saving
// transitions.
package civiltime

import (
	"fmt"
	"time"
)

// Calculator computes day and week boundaries for one civil timezone.
type Calculator struct {
	name string
	loc  *time.Location
}

// NewCalculator creates a Calculator for the given zone name
// (e.g. "Australia/Sydney").
func NewCalculator(name string) (*Calculator, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return &Calculator{name: name, loc: loc}, nil
}

// Zone returns the calculator's timezone name.
func (c *Calculator) Zone() string { return c.name }

// Location returns the underlying time.Location, used when parsing
// wall-clock values that belong to the civil timezone.
func (c *Calculator) Location() *time.Location { return c.loc }

// StartOfDay returns the instant of civil midnight for t's civil date.
func (c *Calculator) StartOfDay(t time.Time) time.Time {
	w := t.In(c.loc)
	return c.midnight(w.Year(), w.Month(), w.Day())
}

// EndOfDay returns the last instant of t's civil day: the next civil
// midnight minus one millisecond.
func (c *Calculator) EndOfDay(t time.Time) time.Time {
	w := t.In(c.loc)
	next := c.midnight(w.Year(), w.Month(), w.Day()+1)
	return next.Add(-time.Millisecond)
}

// StartOfWeek returns civil midnight of the Monday of t's civil week.
func (c *Calculator) StartOfWeek(t time.Time) time.Time {
	w := t.In(c.loc)
	offset := mondayOffset(w.Weekday())
	return c.midnight(w.Year(), w.Month(), w.Day()-offset)
}

// EndOfWeek returns the end of the Sunday of t's civil week.
func (c *Calculator) EndOfWeek(t time.Time) time.Time {
	w := t.In(c.loc)
	offset := mondayOffset(w.Weekday())
	sunday := c.midnight(w.Year(), w.Month(), w.Day()-offset+7)
	return sunday.Add(-time.Millisecond)
}

// DaysUntil returns the number of whole civil days from now's civil date
// to due's civil date. Negative when due is in the past.
func (c *Calculator) DaysUntil(now, due time.Time) int {
	return civilDayNumber(due.In(c.loc)) - civilDayNumber(now.In(c.loc))
}

// IsOverdue reports whether now is past the civil end of due's day. A
// task due today at any hour is not overdue until after the next civil
// midnight.
func (c *Calculator) IsOverdue(now, due time.Time) bool {
	return now.After(c.EndOfDay(due))
}

// midnight finds the instant of civil midnight for the given civil date.
// It probes a 48-hour window of hourly UTC candidates around the naive
// guess and selects the one whose wall-clock hour formats to 0, then
// subtracts the residual minutes and seconds to land exactly on the
// boundary. Zones with fractional-hour offsets are handled because the
// residual comes from the formatted output, not the offset.
func (c *Calculator) midnight(year int, month time.Month, day int) time.Time {
	guess := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	target := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	var best time.Time
	var bestResidual time.Duration = -1

	for offset := -24; offset <= 24; offset++ {
		cand := guess.Add(time.Duration(offset) * time.Hour)
		w := cand.In(c.loc)
		if !sameCivilDate(w, target) {
			continue
		}

		residual := time.Duration(w.Hour())*time.Hour +
			time.Duration(w.Minute())*time.Minute +
			time.Duration(w.Second())*time.Second +
			time.Duration(w.Nanosecond())

		if w.Hour() == 0 {
			return cand.Add(-residual)
		}

		// Track the earliest wall clock seen for this date, in case a
		// daylight-saving jump skips midnight entirely.
		if bestResidual < 0 || residual < bestResidual {
			best = cand.Add(-time.Duration(w.Minute())*time.Minute -
				time.Duration(w.Second())*time.Second -
				time.Duration(w.Nanosecond()))
			bestResidual = residual
		}
	}

	return best
}

// sameCivilDate reports whether two times share a civil year/month/day.
func sameCivilDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// mondayOffset returns how many days back from d the week's Monday is.
func mondayOffset(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}

// civilDayNumber returns a monotonically increasing day index for a
// wall-clock time, used for whole-day difference arithmetic.
func civilDayNumber(w time.Time) int {
	u := time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, time.UTC)
	return int(u.Unix() / 86400)
}
