package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"uptime-report-backend/config"
	"uptime-report-backend/internal/model"
)

// ErrQueueFull is returned by Trigger when no worker can accept the job.
var ErrQueueFull = errors.New("report queue is full")

// Runner executes one report job.
type Runner interface {
	Run(ctx context.Context, reportID string) error
}

// Notifier is told about every report that reached a terminal state.
type Notifier interface {
	Dispatch(reportID string)
}

// Queue is the part of the store the service writes.
type Queue interface {
	CreateReport(ctx context.Context, reportID string, now time.Time) (*model.Report, error)
	MarkReportFailed(ctx context.Context, reportID, message string, now time.Time) error
}

// Service accepts report requests and runs them on a fixed pool of workers.
type Service struct {
	store    Queue
	runner   Runner
	notifier Notifier
	workers  int
	jobs     chan string
	wg       sync.WaitGroup
	newID    func() string
	now      func() time.Time
}

// NewService creates a report service. notifier may be nil.
func NewService(s Queue, runner Runner, cfg *config.ReportConfig, notifier Notifier) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}
	return &Service{
		store:    s,
		runner:   runner,
		notifier: notifier,
		workers:  workers,
		jobs:     make(chan string, queueSize),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Start launches the worker goroutines. They stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned. A job interrupted by
// cancellation has been closed as failed by then.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	log.Printf("Report worker %d started", id)
	for {
		select {
		case reportID := <-s.jobs:
			log.Printf("Report worker %d processing report %s", id, reportID)
			if err := s.runner.Run(ctx, reportID); err != nil {
				log.Printf("Report worker %d: report %s: %v", id, reportID, err)
			}
			if s.notifier != nil {
				s.notifier.Dispatch(reportID)
			}
		case <-ctx.Done():
			log.Printf("Report worker %d shutting down", id)
			return
		}
	}
}

// Trigger records a new queued report and hands it to the workers. When the
// queue is full the report is closed as failed and ErrQueueFull is returned
// along with the failed record.
func (s *Service) Trigger(ctx context.Context) (*model.Report, error) {
	reportID := s.newID()
	report, err := s.store.CreateReport(ctx, reportID, s.now())
	if err != nil {
		return nil, err
	}

	select {
	case s.jobs <- reportID:
		return report, nil
	default:
	}

	msg := ErrQueueFull.Error()
	if err := s.store.MarkReportFailed(ctx, reportID, msg, s.now()); err != nil {
		return nil, fmt.Errorf("report %s: %w (and could not record failure: %v)", reportID, ErrQueueFull, err)
	}
	report.Status = model.ReportFailed
	report.ErrorMessage = msg
	return report, ErrQueueFull
}
