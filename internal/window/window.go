package window

import (
	"errors"
	"fmt"
	"time"
)

// Name is a symbolic window relative to an anchor end date.
type Name string

const (
	Last7Days   Name = "LAST_7_DAYS"
	Last30Days  Name = "LAST_30_DAYS"
	Prior30Days Name = "PRIOR_30_DAYS"
	Last90Days  Name = "LAST_90_DAYS"
	Prior90Days Name = "PRIOR_90_DAYS"
)

// Canonical lists the windows in collection order.
var Canonical = []Name{Last7Days, Last30Days, Prior30Days, Last90Days, Prior90Days}

// IsPrior reports whether the window is a baseline (PRIOR_*) window.
func (n Name) IsPrior() bool {
	return n == Prior30Days || n == Prior90Days
}

// Label returns the short human form used in rendered numbers, e.g. "last 30d".
func (n Name) Label() string {
	switch n {
	case Last7Days:
		return "last 7d"
	case Last30Days:
		return "last 30d"
	case Prior30Days:
		return "prior 30d"
	case Last90Days:
		return "last 90d"
	case Prior90Days:
		return "prior 90d"
	}
	return string(n)
}

// Range is a half-open date range [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered by the range.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Contains reports whether day falls inside [Start, End).
func (r Range) Contains(day time.Time) bool {
	return !day.Before(r.Start) && day.Before(r.End)
}

// Calculate derives the canonical windows for the given anchor end date.
// PRIOR_N always ends exactly where LAST_N starts.
func Calculate(end time.Time) map[Name]Range {
	end = Truncate(end)
	days := func(n int) time.Time { return end.AddDate(0, 0, -n) }
	return map[Name]Range{
		Last7Days:   {Start: days(7), End: end},
		Last30Days:  {Start: days(30), End: end},
		Prior30Days: {Start: days(60), End: days(30)},
		Last90Days:  {Start: days(90), End: end},
		Prior90Days: {Start: days(180), End: days(90)},
	}
}

// Truncate drops the time-of-day component, keeping the calendar date in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in UTC.
func Today() time.Time {
	return Truncate(time.Now().UTC())
}

// Period is a named reporting period used by the CLI and server.
type Period string

const (
	LastMonth    Period = "last_month"
	Last90       Period = "last_90_days"
	Last12Months Period = "last_12_months"
)

// Periods lists the accepted period names.
var Periods = []Period{LastMonth, Last90, Last12Months}

// ErrUnknownPeriod is returned by ParsePeriod for unrecognized names.
var ErrUnknownPeriod = errors.New("unknown period")

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of last_month, last_90_days, last_12_months)", ErrUnknownPeriod, s)
}

// DateRange returns the [start, end) span for a period whose last day is
// today. end is the day after today.
func DateRange(period Period, today time.Time) (start, end time.Time) {
	end = Truncate(today).AddDate(0, 0, 1)
	switch period {
	case LastMonth:
		return end.AddDate(0, 0, -30), end
	case Last90:
		return end.AddDate(0, 0, -90), end
	default:
		return end.AddDate(0, 0, -365), end
	}
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatRange formats a range for human-readable display.
// Same day: "Feb 06, 2026"; otherwise "Jan 07 - Feb 06, 2026".
func FormatRange(start, end time.Time) string {
	if start.Equal(end) {
		return end.Format("Jan 02, 2006")
	}
	if start.Year() != end.Year() {
		return fmt.Sprintf("%s - %s", start.Format("Jan 02, 2006"), end.Format("Jan 02, 2006"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))
}
