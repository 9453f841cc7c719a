// Package ingest loads the store status, business hours and timezone CSV feeds.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"uptime-report-backend/config"
	"uptime-report-backend/internal/metrics"
	"uptime-report-backend/internal/model"
)

// Feed names, also used as metric labels.
const (
	FeedStatus    = "status"
	FeedHours     = "hours"
	FeedTimezones = "timezones"
)

// maxRecordedErrors caps the rejection messages kept in a Result.
const maxRecordedErrors = 20

// Writer is the part of the store ingestion writes to.
type Writer interface {
	InsertStores(ctx context.Context, storeIDs []string) error
	InsertStatuses(ctx context.Context, rows []model.StoreStatus) error
	InsertMenuHours(ctx context.Context, rows []model.MenuHours) error
	InsertTimezones(ctx context.Context, rows []model.Timezone) error
}

// Result summarizes one feed.
type Result struct {
	Feed          string
	Rows          int // data rows read
	Accepted      int // rows handed to the store
	Rejected      int // rows that failed validation
	FailedBatches int
	Errors        []string
}

func (r *Result) reject(line int, err error) {
	r.Rejected++
	if len(r.Errors) < maxRecordedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("line %d: %v", line, err))
	}
}

// Service applies the CSV feeds to the store.
type Service struct {
	cfg   *config.IngestConfig
	store Writer
}

// NewService creates an ingest service.
func NewService(cfg *config.IngestConfig, s Writer) *Service {
	return &Service{cfg: cfg, store: s}
}

// Run ingests every configured feed file. Feeds with no path are skipped.
func (s *Service) Run(ctx context.Context) ([]Result, error) {
	feeds := []struct {
		name   string
		path   string
		ingest func(context.Context, io.Reader) (Result, error)
	}{
		{FeedTimezones, s.cfg.TimezoneFile, s.IngestTimezones},
		{FeedHours, s.cfg.HoursFile, s.IngestHours},
		{FeedStatus, s.cfg.StatusFile, s.IngestStatuses},
	}

	var results []Result
	for _, feed := range feeds {
		if feed.path == "" {
			log.Printf("No %s file configured, skipping.", feed.name)
			continue
		}
		f, err := os.Open(feed.path)
		if err != nil {
			return results, fmt.Errorf("failed to open %s feed: %w", feed.name, err)
		}
		log.Printf("Ingesting %s feed from %s...", feed.name, feed.path)
		res, err := feed.ingest(ctx, f)
		f.Close()
		if err != nil {
			return results, fmt.Errorf("%s feed: %w", feed.name, err)
		}
		log.Printf("Ingested %s feed: %d rows, %d accepted, %d rejected, %d failed batches",
			res.Feed, res.Rows, res.Accepted, res.Rejected, res.FailedBatches)
		results = append(results, res)
	}
	return results, nil
}

// batchWriter writes fixed-size batches concurrently. A failed batch is
// logged and counted; the others carry on.
type batchWriter[T any] struct {
	feed    string
	size    int
	write   func(context.Context, []T) error
	eg      *errgroup.Group
	ctx     context.Context
	pending []T
	failed  atomic.Int64
}

func newBatchWriter[T any](ctx context.Context, feed string, size, workers int, write func(context.Context, []T) error) *batchWriter[T] {
	if size <= 0 {
		size = 1000
	}
	if workers <= 0 {
		workers = 1
	}
	eg := &errgroup.Group{}
	eg.SetLimit(workers)
	return &batchWriter[T]{feed: feed, size: size, write: write, eg: eg, ctx: ctx}
}

func (b *batchWriter[T]) add(row T) {
	b.pending = append(b.pending, row)
	if len(b.pending) >= b.size {
		b.flush()
	}
}

func (b *batchWriter[T]) flush() {
	if len(b.pending) == 0 {
		return
	}
	batch := b.pending
	b.pending = make([]T, 0, b.size)
	b.eg.Go(func() error {
		if err := b.write(b.ctx, batch); err != nil {
			log.Printf("Error writing %s batch of %d rows: %v", b.feed, len(batch), err)
			b.failed.Add(1)
			metrics.IncIngestBatchFailure(b.feed)
		}
		return nil
	})
}

// wait flushes the remainder and returns the number of failed batches.
func (b *batchWriter[T]) wait() int {
	b.flush()
	_ = b.eg.Wait()
	return int(b.failed.Load())
}

// readFeed streams the records of a CSV feed to handle, after checking that
// the required columns are present. Column names are case-insensitive. A row
// handle returns an error for is counted as rejected.
func readFeed(ctx context.Context, r io.Reader, res *Result, required []string, handle func(get func(string) string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to read csv header: %w", err)
	}
	headerMap := make(map[string]int, len(headers))
	for i, h := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := headerMap[col]; !ok {
			return fmt.Errorf("missing required %s csv header: %s", res.Feed, col)
		}
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		res.Rows++
		if err != nil {
			res.reject(line, err)
			continue
		}
		err = handle(func(col string) string {
			if idx, ok := headerMap[col]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		})
		if err != nil {
			res.reject(line, err)
			continue
		}
		res.Accepted++
	}
}

// storeSet collects the distinct store ids seen in a feed.
type storeSet map[string]struct{}

func (s storeSet) add(id string) { s[id] = struct{}{} }

func (s storeSet) ids() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
