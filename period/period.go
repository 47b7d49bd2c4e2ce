// Package period computes canonical calendar ranges and drives the query
// engine once per bucket to produce time-bounded sub-reports.
package period

import (
	"fmt"
	"time"
)

type Kind string

const (
	Day     Kind = "day"
	Week    Kind = "week"
	Month   Kind = "month"
	Quarter Kind = "quarter"
	Year    Kind = "year"
)

const (
	startLayout = "2006-01-02 15:04:05.000"
	endLayout   = "2006-01-02 15:04:05.999"
)

// Range returns the canonical inclusive boundaries for the bucket containing
// ref. Weeks are ISO weeks: Monday 00:00:00 through Sunday 23:59:59.999.
// Quarters are the fixed Jan–Mar, Apr–Jun, Jul–Sep, Oct–Dec blocks.
func Range(kind Kind, ref time.Time) (time.Time, time.Time, error) {
	loc := ref.Location()
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	switch kind {
	case Day:
		return day, endOf(day.AddDate(0, 0, 1)), nil
	case Week:
		weekday := int(ref.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday is day 7 of the ISO week
		}
		monday := day.AddDate(0, 0, -(weekday - 1))
		return monday, endOf(monday.AddDate(0, 0, 7)), nil
	case Month:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		return first, endOf(first.AddDate(0, 1, 0)), nil
	case Quarter:
		q := (int(ref.Month()) - 1) / 3
		first := time.Date(ref.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, loc)
		return first, endOf(first.AddDate(0, 3, 0)), nil
	case Year:
		first := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return first, endOf(first.AddDate(1, 0, 0)), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period kind %q", kind)
}

// Previous returns a reference date inside the bucket immediately before the
// one containing ref.
func Previous(kind Kind, ref time.Time) time.Time {
	start, _, err := Range(kind, ref)
	if err != nil {
		return ref
	}
	return start.AddDate(0, 0, -1)
}

// endOf turns an exclusive next-bucket start into the inclusive
// 23:59:59.999 boundary of the current bucket.
func endOf(nextStart time.Time) time.Time {
	return nextStart.Add(-time.Millisecond)
}

// subLabel buckets a timestamp into the natural sub-unit of a period kind:
// days within a day/week/month, months within a quarter/year.
func subLabel(kind Kind, t time.Time) string {
	switch kind {
	case Quarter, Year:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
