package cfr

import (
	"fmt"
	"time"
)

// DateLayout is the persisted and wire format of issue dates.
const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD, also accepting RFC 3339 timestamps whose date
// part is used.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DayOf(t), nil
}

// DayOf truncates t to UTC midnight of its calendar date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange is an inclusive range of issue dates at daily granularity.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and normalizes start and end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: DayOf(start), End: DayOf(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s before start date %s", FormatDate(r.End), FormatDate(r.Start))
	}
	return r, nil
}
