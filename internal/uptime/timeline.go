package uptime

import (
	"sort"
	"time"
)

// BuildTimeline returns the sorted, de-duplicated boundary instants that split
// window into segments of constant business-hours membership and constant
// status: the window bounds, every sample in [Start, End) and every
// business-hours edge clipped to the window. Samples outside the window, such
// as the carry-in sample, are not boundaries.
func BuildTimeline(window Interval, hours []Interval, samples []Sample) []time.Time {
	if !window.End.After(window.Start) {
		return nil
	}

	points := make([]time.Time, 0, 2+len(samples)+2*len(hours))
	points = append(points, window.Start, window.End)
	for _, s := range samples {
		if window.Contains(s.At) {
			points = append(points, s.At)
		}
	}
	for _, h := range hours {
		if clipped, ok := clip(h, window); ok {
			points = append(points, clipped.Start, clipped.End)
		}
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Before(points[j])
	})

	out := points[:1]
	for _, p := range points[1:] {
		if !p.Equal(out[len(out)-1]) {
			out = append(out, p)
		}
	}
	return out
}
