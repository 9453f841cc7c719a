package report

import (
	"time"

	"uptime-report-backend/internal/uptime"
)

// Windows are the three trailing ranges a report row covers.
type Windows struct {
	Hour uptime.Interval
	Day  uptime.Interval
	Week uptime.Interval
}

// ReferenceInstant is the end of every report window: the newest observation,
// truncated to the minute, plus one minute. Reports are anchored to the data,
// not the wall clock.
func ReferenceInstant(latest time.Time) time.Time {
	return latest.UTC().Truncate(time.Minute).Add(time.Minute)
}

// StandardWindows returns the last hour, day and week ending at ref.
func StandardWindows(ref time.Time) Windows {
	return Windows{
		Hour: uptime.Interval{Start: ref.Add(-time.Hour), End: ref},
		Day:  uptime.Interval{Start: ref.Add(-24 * time.Hour), End: ref},
		Week: uptime.Interval{Start: ref.Add(-7 * 24 * time.Hour), End: ref},
	}
}
