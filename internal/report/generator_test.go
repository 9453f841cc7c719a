package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uptime-report-backend/config"
	"uptime-report-backend/internal/uptime"
)

// mockStore is an in-memory JobStore. Func fields override the default behaviour.
type mockStore struct {
	mu        sync.Mutex
	timezones map[string]string
	rules     map[string][]uptime.Rule
	samples   map[string][]uptime.Sample

	ScheduleRulesFunc  func(storeID string) ([]uptime.Rule, error)
	MarkCompletedFunc  func(reportID, path string) error
	SamplesInRangeFunc func(storeID string) ([]uptime.Sample, error)

	transitions []string
	failure     string
	path        string
}

func newMockStore() *mockStore {
	return &mockStore{
		timezones: map[string]string{},
		rules:     map[string][]uptime.Rule{},
		samples:   map[string][]uptime.Sample{},
	}
}

func (m *mockStore) StoreIDs(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	for id := range m.samples {
		seen[id] = true
	}
	for id := range m.timezones {
		seen[id] = true
	}
	for id := range m.rules {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockStore) LatestSampleInstant(ctx context.Context) (time.Time, bool, error) {
	var latest time.Time
	for _, ss := range m.samples {
		for _, s := range ss {
			if s.At.After(latest) {
				latest = s.At
			}
		}
	}
	return latest, !latest.IsZero(), nil
}

func (m *mockStore) Timezone(ctx context.Context, storeID string) (string, bool, error) {
	tz, ok := m.timezones[storeID]
	return tz, ok, nil
}

func (m *mockStore) ScheduleRules(ctx context.Context, storeID string) ([]uptime.Rule, error) {
	if m.ScheduleRulesFunc != nil {
		return m.ScheduleRulesFunc(storeID)
	}
	return m.rules[storeID], nil
}

func (m *mockStore) CarryInSample(ctx context.Context, storeID string, before time.Time) (*uptime.Sample, error) {
	var carry *uptime.Sample
	for _, s := range m.samples[storeID] {
		if s.At.Before(before) && (carry == nil || s.At.After(carry.At)) {
			s := s
			carry = &s
		}
	}
	return carry, nil
}

func (m *mockStore) SamplesInRange(ctx context.Context, storeID string, start, end time.Time) ([]uptime.Sample, error) {
	if m.SamplesInRangeFunc != nil {
		return m.SamplesInRangeFunc(storeID)
	}
	var out []uptime.Sample
	for _, s := range m.samples[storeID] {
		if !s.At.Before(start) && s.At.Before(end) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (m *mockStore) MarkReportRunning(ctx context.Context, reportID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, "running")
	return nil
}

func (m *mockStore) MarkReportCompleted(ctx context.Context, reportID, path string, now time.Time) error {
	if m.MarkCompletedFunc != nil {
		if err := m.MarkCompletedFunc(reportID, path); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, "completed")
	m.path = path
	return nil
}

func (m *mockStore) MarkReportFailed(ctx context.Context, reportID, message string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, "failed")
	m.failure = message
	return nil
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func everyDay(start, end uptime.ClockTime) []uptime.Rule {
	rules := make([]uptime.Rule, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		rules = append(rules, uptime.Rule{Weekday: d, Window: uptime.Window{Start: start, End: end}})
	}
	return rules
}

// boiseStore holds two days of polls for a store open 10:30-21:00 in America/Boise.
func boiseStore() *mockStore {
	m := newMockStore()
	m.timezones["boise"] = "America/Boise"
	m.rules["boise"] = everyDay(uptime.NewClockTime(10, 30, 0), uptime.NewClockTime(21, 0, 0))
	m.samples["boise"] = []uptime.Sample{
		{At: at("2024-10-13T02:13:49.765346Z"), Active: true},
		{At: at("2024-10-13T05:15:25.610893Z"), Active: false},
		{At: at("2024-10-13T08:14:55.040601Z"), Active: false},
		{At: at("2024-10-13T11:14:58.164469Z"), Active: false},
		{At: at("2024-10-13T20:14:04.357592Z"), Active: true},
		{At: at("2024-10-13T23:16:00.021755Z"), Active: true},
		{At: at("2024-10-14T02:13:52.117236Z"), Active: true},
		{At: at("2024-10-14T05:15:49.905135Z"), Active: false},
		{At: at("2024-10-14T14:15:01.137276Z"), Active: false},
		{At: at("2024-10-14T17:15:04.362399Z"), Active: true},
		{At: at("2024-10-14T20:16:40.034665Z"), Active: true},
		{At: at("2024-10-14T23:14:14.500354Z"), Active: true},
	}
	return m
}

func newTestGenerator(t *testing.T, s JobStore) *Generator {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return NewGenerator(s, &config.ReportConfig{
		Location:    loc,
		OutputDir:   t.TempDir(),
		Concurrency: 4,
	})
}

func TestGenerator_Build_BoiseScenario(t *testing.T) {
	g := newTestGenerator(t, boiseStore())

	rows, ref, err := g.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at("2024-10-14T23:15:00Z"), ref)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{
		StoreID:          "boise",
		UptimeLastHour:   60,
		UptimeLastDay:    9.75,
		UptimeLastWeek:   13.53,
		DowntimeLastHour: 0,
		DowntimeLastDay:  0.75,
		DowntimeLastWeek: 59.97,
	}, rows[0])
}

func TestGenerator_Build_DefaultsAndIsolation(t *testing.T) {
	m := boiseStore()
	// No timezone, no hours: default zone and a full-day schedule.
	m.samples["always-on"] = []uptime.Sample{{At: at("2024-10-01T00:00:00Z"), Active: true}}
	// Unknown timezone falls back to the default.
	m.timezones["bad-zone"] = "Mars/Olympus"
	m.samples["bad-zone"] = []uptime.Sample{{At: at("2024-10-01T00:00:00Z"), Active: false}}
	// Resolution failure yields a zero row.
	m.rules["broken"] = nil
	m.ScheduleRulesFunc = func(storeID string) ([]uptime.Rule, error) {
		if storeID == "broken" {
			return nil, errors.New("menu hours unavailable")
		}
		return m.rules[storeID], nil
	}
	// A panic inside one store is contained.
	m.rules["panicky"] = nil
	m.SamplesInRangeFunc = func(storeID string) ([]uptime.Sample, error) {
		if storeID == "panicky" {
			panic("corrupt row")
		}
		return nil, nil
	}

	g := newTestGenerator(t, m)
	rows, _, err := g.Build(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.StoreID
	}
	assert.Equal(t, []string{"always-on", "bad-zone", "boise", "broken", "panicky"}, ids, "rows are ordered by store id")

	assert.Equal(t, 60.0, rows[0].UptimeLastHour)
	assert.Equal(t, 24.0, rows[0].UptimeLastDay)
	assert.Equal(t, 168.0, rows[0].UptimeLastWeek)
	assert.Zero(t, rows[0].DowntimeLastWeek)

	assert.Zero(t, rows[1].UptimeLastWeek)
	assert.Equal(t, 168.0, rows[1].DowntimeLastWeek)

	assert.Equal(t, ZeroRow("broken"), rows[3])
	assert.Equal(t, ZeroRow("panicky"), rows[4])
}

func TestGenerator_Build_NoObservations(t *testing.T) {
	m := newMockStore()
	m.timezones["lonely"] = "America/Boise"

	g := newTestGenerator(t, m)
	_, _, err := g.Build(context.Background())
	assert.ErrorIs(t, err, ErrNoObservations)
}

func TestGenerator_Run(t *testing.T) {
	t.Run("writes the file and completes", func(t *testing.T) {
		m := boiseStore()
		g := newTestGenerator(t, m)

		require.NoError(t, g.Run(context.Background(), "r1"))
		assert.Equal(t, []string{"running", "completed"}, m.transitions)
		assert.Equal(t, filepath.Join(g.outputDir, "r1.csv"), m.path)

		f, err := os.Open(m.path)
		require.NoError(t, err)
		defer f.Close()
		rows, err := ReadCSV(f)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 13.53, rows[0].UptimeLastWeek)

		leftovers, err := filepath.Glob(filepath.Join(g.outputDir, "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("no data fails with an explicit message and no file", func(t *testing.T) {
		m := newMockStore()
		g := newTestGenerator(t, m)

		err := g.Run(context.Background(), "r2")
		assert.ErrorIs(t, err, ErrNoObservations)
		assert.Equal(t, []string{"running", "failed"}, m.transitions)
		assert.Equal(t, "no store status data available for report generation", m.failure)

		entries, err := os.ReadDir(g.outputDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("a panic marks the job failed", func(t *testing.T) {
		m := boiseStore()
		m.MarkCompletedFunc = func(reportID, path string) error { panic("lost connection") }
		g := newTestGenerator(t, m)

		err := g.Run(context.Background(), "r3")
		require.Error(t, err)
		assert.Equal(t, []string{"running", "failed"}, m.transitions)
		assert.Contains(t, m.failure, "lost connection")
	})
}
