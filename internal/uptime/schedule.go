package uptime

import (
	"sort"
	"time"
)

// DefaultWindow is applied to every weekday that has no stored rule.
var DefaultWindow = Window{Start: NewClockTime(0, 0, 0), End: NewClockTime(23, 59, 59)}

// expansionMargin absorbs offset shifts and overnight spill into neighbouring days.
const expansionMargin = 2

// Schedule is a resolved weekly schedule. Every weekday has at least one window.
type Schedule struct {
	days [7][]Window
}

// NewSchedule builds a schedule from stored rules. Weekdays without any rule
// get DefaultWindow. Duplicate rules are kept once.
func NewSchedule(rules []Rule) Schedule {
	var s Schedule
	seen := make(map[Rule]struct{}, len(rules))
	for _, r := range rules {
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		s.days[r.Weekday] = append(s.days[r.Weekday], r.Window)
	}
	for d := range s.days {
		if len(s.days[d]) == 0 {
			s.days[d] = []Window{DefaultWindow}
		}
	}
	return s
}

// Windows returns the local windows for a weekday.
func (s Schedule) Windows(day time.Weekday) []Window {
	return s.days[day]
}

// ExpandSchedule turns the weekly local schedule into the merged, time-ordered
// UTC intervals during which the store is open within window.
func ExpandSchedule(loc *time.Location, sched Schedule, window Interval) []Interval {
	if !window.End.After(window.Start) {
		return nil
	}

	first := window.Start.In(loc)
	last := window.End.In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day()-expansionMargin, 0, 0, 0, 0, loc)
	stop := time.Date(last.Year(), last.Month(), last.Day()+expansionMargin, 0, 0, 0, 0, loc)

	var candidates []Interval
	for !day.After(stop) {
		y, m, d := day.Date()
		for _, w := range sched.Windows(day.Weekday()) {
			start := w.Start.on(y, m, d, loc)
			end := w.End.on(y, m, d, loc)
			if w.Overnight() {
				end = w.End.on(y, m, d+1, loc)
			}
			if clipped, ok := clip(Interval{Start: start.UTC(), End: end.UTC()}, window); ok {
				candidates = append(candidates, clipped)
			}
		}
		day = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}

	return mergeIntervals(candidates)
}

// clip intersects iv with bounds and reports whether anything is left.
func clip(iv, bounds Interval) (Interval, bool) {
	start := maxTime(iv.Start, bounds.Start)
	end := minTime(iv.End, bounds.End)
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// mergeIntervals sorts intervals and merges any that overlap or touch.
func mergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	merged := []Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		cur := &merged[len(merged)-1]
		if !iv.Start.After(cur.End) {
			cur.End = maxTime(cur.End, iv.End)
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// TotalDuration sums the lengths of the intervals.
func TotalDuration(intervals []Interval) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
