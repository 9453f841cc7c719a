package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"uptime-report-backend/internal/uptime"
)

// Accepted layouts for timestamp_utc, most common first.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 UTC",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseStatus maps the feed's status column to a boolean. Only "active" and
// "inactive" are accepted.
func ParseStatus(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return true, nil
	case "inactive":
		return false, nil
	}
	return false, fmt.Errorf("unknown status: %q", raw)
}

// ParseTimestamp parses a UTC observation timestamp such as
// "2023-01-22 12:09:39.388884 UTC". Inputs carrying an offset are converted to UTC;
// inputs without one are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", raw)
}

// ParseWeekday parses the feed's dayOfWeek column, where 0 is Monday and 6 is Sunday.
func ParseWeekday(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid day of week %q: %w", raw, err)
	}
	if _, err := Weekday(n); err != nil {
		return 0, err
	}
	return n, nil
}

// Weekday converts a Monday-based day index into a time.Weekday.
func Weekday(index int) (time.Weekday, error) {
	if index < 0 || index > 6 {
		return 0, fmt.Errorf("day of week out of range: %d", index)
	}
	return time.Weekday((index + 1) % 7), nil
}

// WeekdayIndex is the inverse of Weekday.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ParseClock parses a local time of day in HH:MM:SS or HH:MM form.
func ParseClock(raw string) (uptime.ClockTime, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return uptime.NewClockTime(t.Hour(), t.Minute(), t.Second()), nil
		}
	}
	return 0, fmt.Errorf("unable to parse local time: %q", raw)
}

// ParseTimezone validates an IANA timezone name and returns it trimmed.
func ParseTimezone(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || name == "Local" {
		return "", fmt.Errorf("invalid timezone: %q", raw)
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", raw, err)
	}
	return name, nil
}
