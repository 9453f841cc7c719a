package uptime

import "time"

// Aggregate sweeps the timeline and sums, for every segment that overlaps
// business hours, its length into uptime or downtime according to the status
// at the segment start. hours must be the merged, ordered output of
// ExpandSchedule.
func Aggregate(timeline []time.Time, hours []Interval, series StatusSeries) Totals {
	var totals Totals
	j := 0
	for i := 0; i+1 < len(timeline); i++ {
		start, end := timeline[i], timeline[i+1]
		if !start.Before(end) {
			continue
		}

		// hours is ordered and disjoint, and segments advance monotonically,
		// so intervals ending at or before start are never needed again.
		for j < len(hours) && !hours[j].End.After(start) {
			j++
		}
		if j == len(hours) {
			break
		}
		bh := hours[j]
		if !maxTime(start, bh.Start).Before(minTime(end, bh.End)) {
			continue
		}

		if series.At(start) {
			totals.Uptime += end.Sub(start)
		} else {
			totals.Downtime += end.Sub(start)
		}
	}
	return totals
}

// Compute runs the whole pipeline for one store over one window: expand the
// schedule, build the status series and timeline, then aggregate.
func Compute(loc *time.Location, sched Schedule, window Interval, samples []Sample) Totals {
	hours := ExpandSchedule(loc, sched, window)
	if len(hours) == 0 {
		return Totals{}
	}
	series := NewStatusSeries(samples)
	timeline := BuildTimeline(window, hours, series.Samples())
	return Aggregate(timeline, hours, series)
}
