package uptime

import (
	"sort"
	"time"
)

// StatusSeries answers "what was the status at instant t" for one store.
// It is immutable once built.
type StatusSeries struct {
	samples []Sample
}

// NewStatusSeries copies and orders the samples. The slice should contain the
// carry-in sample (latest before the window) plus the in-window samples.
func NewStatusSeries(samples []Sample) StatusSeries {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})
	return StatusSeries{samples: sorted}
}

// At returns the status of the latest sample at or before t. With no such
// sample the store is considered inactive.
func (s StatusSeries) At(t time.Time) bool {
	idx := sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].At.After(t)
	})
	if idx == 0 {
		return false
	}
	return s.samples[idx-1].Active
}

// Samples returns the ordered samples. Callers must not modify the result.
func (s StatusSeries) Samples() []Sample {
	return s.samples
}

// Len returns the number of samples.
func (s StatusSeries) Len() int {
	return len(s.samples)
}
