// Package period implements calendar-day arithmetic for adoption trial windows.
//
// Dates are civil days carried as time.Time values at midnight UTC, so that
// comparisons and day deltas are not affected by DST or the server zone.
package period

import (
	"errors"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ErrInverted is returned when an interval ends before it starts.
var ErrInverted = errors.New("interval ends before it starts")

// Day returns the civil date of t (in t's own location) as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the civil date of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Day(now.In(loc))
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func Format(d time.Time) string {
	return Day(d).Format(DateLayout)
}

func AddDays(d time.Time, n int) time.Time {
	return Day(d).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole days from `from` to `to`.
// It is negative when to is earlier than from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// Interval is a closed range of days [Start, End].
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an interval, rejecting End < Start.
func New(start, end time.Time) (Interval, error) {
	iv := Interval{Start: Day(start), End: Day(end)}
	if iv.End.Before(iv.Start) {
		return Interval{}, fmt.Errorf("%w: %s > %s", ErrInverted, Format(start), Format(end))
	}
	return iv, nil
}

// On is the degenerate interval [d, d].
func On(d time.Time) Interval {
	d = Day(d)
	return Interval{Start: d, End: d}
}

// Overlaps reports whether the two closed intervals share at least one day:
// a1 <= b2 && a2 <= b1.
func (iv Interval) Overlaps(o Interval) bool {
	return !iv.Start.After(o.End) && !o.Start.After(iv.End)
}

func (iv Interval) Contains(d time.Time) bool {
	return iv.Overlaps(On(d))
}

// Days is the inclusive length of the interval.
func (iv Interval) Days() int {
	return DaysBetween(iv.Start, iv.End) + 1
}

func (iv Interval) String() string {
	return "[" + Format(iv.Start) + ", " + Format(iv.End) + "]"
}
