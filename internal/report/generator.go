// Package report turns stored observations into per-store uptime reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"uptime-report-backend/config"
	"uptime-report-backend/internal/metrics"
	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/uptime"
)

// ErrNoObservations means there is no status data at all, so no reference instant exists.
var ErrNoObservations = errors.New("no store status data available for report generation")

// Store is the read side the generator needs.
type Store interface {
	StoreIDs(ctx context.Context) ([]string, error)
	LatestSampleInstant(ctx context.Context) (time.Time, bool, error)
	Timezone(ctx context.Context, storeID string) (string, bool, error)
	ScheduleRules(ctx context.Context, storeID string) ([]uptime.Rule, error)
	CarryInSample(ctx context.Context, storeID string, before time.Time) (*uptime.Sample, error)
	SamplesInRange(ctx context.Context, storeID string, start, end time.Time) ([]uptime.Sample, error)
}

// JobStore adds the report state transitions.
type JobStore interface {
	Store
	MarkReportRunning(ctx context.Context, reportID string, now time.Time) error
	MarkReportCompleted(ctx context.Context, reportID, path string, now time.Time) error
	MarkReportFailed(ctx context.Context, reportID, message string, now time.Time) error
}

// Generator builds report files and drives a job through its lifecycle.
type Generator struct {
	store       JobStore
	fallback    *time.Location
	outputDir   string
	concurrency int
	now         func() time.Time
}

// NewGenerator creates a generator from the report configuration.
func NewGenerator(s JobStore, cfg *config.ReportConfig) *Generator {
	fallback := cfg.Location
	if fallback == nil {
		fallback = time.UTC
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Generator{
		store:       s,
		fallback:    fallback,
		outputDir:   cfg.OutputDir,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run executes one queued report. The job always ends completed or failed,
// including when generation panics.
func (g *Generator) Run(ctx context.Context, reportID string) (err error) {
	started := g.now()
	if err := g.store.MarkReportRunning(ctx, reportID, started); err != nil {
		return fmt.Errorf("report %s could not start: %w", reportID, err)
	}
	log.Printf("Report %s: generation started", reportID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("report generation panicked: %v", r)
		}
		status := model.ReportCompleted
		if err != nil {
			status = model.ReportFailed
			log.Printf("Report %s: failed: %v", reportID, err)
			if markErr := g.store.MarkReportFailed(context.WithoutCancel(ctx), reportID, err.Error(), g.now()); markErr != nil {
				log.Printf("Report %s: could not record failure: %v", reportID, markErr)
			}
		}
		metrics.ObserveReportJob(string(status), g.now().Sub(started))
	}()

	rows, ref, err := g.Build(ctx)
	if err != nil {
		return err
	}

	path, err := g.write(reportID, rows)
	if err != nil {
		return err
	}

	if err := g.store.MarkReportCompleted(ctx, reportID, path, g.now()); err != nil {
		return err
	}
	log.Printf("Report %s: completed with %d stores (reference %s) -> %s", reportID, len(rows), ref.Format(time.RFC3339), path)
	return nil
}

// Build computes one row per store, ordered by store id, plus the reference
// instant the windows end at.
func (g *Generator) Build(ctx context.Context) ([]Row, time.Time, error) {
	latest, ok, err := g.store.LatestSampleInstant(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !ok {
		return nil, time.Time{}, ErrNoObservations
	}
	ref := ReferenceInstant(latest)
	windows := StandardWindows(ref)

	ids, err := g.store.StoreIDs(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}

	rows := make([]Row, len(ids))
	var zeroFilled atomic.Int64

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, id := range ids {
		eg.Go(func() error {
			row, err := g.storeRow(egCtx, id, windows)
			if err != nil {
				log.Printf("Store %s: %v; emitting zero row", id, err)
				row = ZeroRow(id)
				zeroFilled.Add(1)
			}
			rows[i] = row
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	zeros := int(zeroFilled.Load())
	metrics.AddReportRows("computed", len(rows)-zeros)
	metrics.AddReportRows("zero_filled", zeros)
	return rows, ref, nil
}

func (g *Generator) storeRow(ctx context.Context, storeID string, w Windows) (row Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	loc, err := g.location(ctx, storeID)
	if err != nil {
		return Row{}, err
	}
	rules, err := g.store.ScheduleRules(ctx, storeID)
	if err != nil {
		return Row{}, err
	}
	sched := uptime.NewSchedule(rules)

	hour, err := g.windowTotals(ctx, storeID, loc, sched, w.Hour)
	if err != nil {
		return Row{}, err
	}
	day, err := g.windowTotals(ctx, storeID, loc, sched, w.Day)
	if err != nil {
		return Row{}, err
	}
	week, err := g.windowTotals(ctx, storeID, loc, sched, w.Week)
	if err != nil {
		return Row{}, err
	}
	return NewRow(storeID, hour, day, week), nil
}

func (g *Generator) location(ctx context.Context, storeID string) (*time.Location, error) {
	name, ok, err := g.store.Timezone(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return g.fallback, nil
	}
	loc, substituted := uptime.LoadLocation(name, g.fallback)
	if substituted {
		log.Printf("Store %s: invalid timezone %q, using %s", storeID, name, g.fallback)
	}
	return loc, nil
}

func (g *Generator) windowTotals(ctx context.Context, storeID string, loc *time.Location, sched uptime.Schedule, window uptime.Interval) (uptime.Totals, error) {
	carry, err := g.store.CarryInSample(ctx, storeID, window.Start)
	if err != nil {
		return uptime.Totals{}, err
	}
	samples, err := g.store.SamplesInRange(ctx, storeID, window.Start, window.End)
	if err != nil {
		return uptime.Totals{}, err
	}
	if carry != nil {
		samples = append([]uptime.Sample{*carry}, samples...)
	}
	return uptime.Compute(loc, sched, window, samples), nil
}

// write stores the CSV under its final name only once it is complete.
func (g *Generator) write(reportID string, rows []Row) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(g.outputDir, reportID+"-*.csv.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	path := filepath.Join(g.outputDir, reportID+".csv")
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to publish report: %w", err)
	}
	return path, nil
}
