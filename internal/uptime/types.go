// Package uptime computes business-hours uptime and downtime for a store from
// its weekly local schedule and sparse boolean status samples.
package uptime

import (
	"fmt"
	"time"
)

// Interval is a half-open UTC time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval, or zero if it is empty or inverted.
func (i Interval) Duration() time.Duration {
	if !i.End.After(i.Start) {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Sample is a single point-in-time status observation.
type Sample struct {
	At     time.Time
	Active bool
}

// ClockTime is a local wall-clock time of day, stored as the offset from midnight.
type ClockTime time.Duration

// NewClockTime builds a ClockTime from its components.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// Split returns the hour, minute and second components.
func (c ClockTime) Split() (hour, minute, second int) {
	total := int(time.Duration(c) / time.Second)
	return total / 3600, (total / 60) % 60, total % 60
}

// String formats the clock time as HH:MM:SS.
func (c ClockTime) String() string {
	h, m, s := c.Split()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// on places the clock time on the given local calendar date.
func (c ClockTime) on(year int, month time.Month, day int, loc *time.Location) time.Time {
	h, m, s := c.Split()
	return time.Date(year, month, day, h, m, s, 0, loc)
}

// Window is a local operating window on one weekday. Start after End means the
// window runs past midnight into the next calendar day.
type Window struct {
	Start ClockTime
	End   ClockTime
}

// Overnight reports whether the window spans midnight.
func (w Window) Overnight() bool {
	return w.Start > w.End
}

// Rule is a stored schedule row: one window on one weekday.
type Rule struct {
	Weekday time.Weekday
	Window  Window
}

// Totals holds the business-hours time a store spent active and inactive.
type Totals struct {
	Uptime   time.Duration
	Downtime time.Duration
}

// UptimeMinutes returns the uptime in minutes.
func (t Totals) UptimeMinutes() float64 { return t.Uptime.Minutes() }

// DowntimeMinutes returns the downtime in minutes.
func (t Totals) DowntimeMinutes() float64 { return t.Downtime.Minutes() }

// Total returns uptime plus downtime, which equals the business time of the window.
func (t Totals) Total() time.Duration { return t.Uptime + t.Downtime }
