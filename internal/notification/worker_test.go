package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func emptyResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(""))}
}

var (
	reportColumns       = []string{"report_id", "status", "created_at", "error_message"}
	subscriptionColumns = []string{"endpoint", "p256dh", "auth", "created_at"}
)

const (
	selectReport        = `SELECT \* FROM "reports" WHERE report_id = \$1 ORDER BY "reports"."report_id" LIMIT \$[0-9]+`
	selectSubscriptions = `SELECT \* FROM "push_subscriptions"`
)

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(db), &webpush.Options{})

	// Dispatch a job
	wp.Dispatch("r-123")

	// Check if the job is in the channel
	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "r-123", job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDoesNotBlock(t *testing.T) {
	db, _ := newTestDB(t)
	// No workers are started, so nothing drains the queue.
	wp := NewWorkerPool(1, store.NewGormStore(db), &webpush.Options{})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			wp.Dispatch(fmt.Sprintf("r-%d", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
	assert.Len(t, wp.Jobs(), 1)
	assert.Equal(t, "r-0", <-wp.Jobs())
}

func TestReportMessage(t *testing.T) {
	assert.Equal(t, "Report r1 completed", reportMessage(&model.Report{ReportID: "r1", Status: model.ReportCompleted}))
	assert.Equal(t, "Report r1 failed: no data", reportMessage(&model.Report{ReportID: "r1", Status: model.ReportFailed, ErrorMessage: "no data"}))
	assert.Empty(t, reportMessage(&model.Report{ReportID: "r1", Status: model.ReportRunning}))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, store.NewGormStore(gormDB), &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	// --- Test Case: One subscription found, notification sent ---
	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				assert.Equal(t, "Report r-101 completed", string(payload))
				wg.Done()
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(selectReport).
			WithArgs("r-101", 1).
			WillReturnRows(sqlmock.NewRows(reportColumns).AddRow("r-101", "completed", time.Now(), ""))
		mock.ExpectQuery(selectSubscriptions).
			WillReturnRows(sqlmock.NewRows(subscriptionColumns).
				AddRow("https://example.com/push", "test_p256dh", "test_auth", time.Now()))

		wp.Dispatch("r-101")
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// --- Test Case: Subscription expired, should be deleted ---
	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "Report r-102 failed: report queue is full", string(payload))
				return emptyResponse(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(selectReport).
			WithArgs("r-102", 1).
			WillReturnRows(sqlmock.NewRows(reportColumns).AddRow("r-102", "failed", time.Now(), "report queue is full"))
		mock.ExpectQuery(selectSubscriptions).
			WillReturnRows(sqlmock.NewRows(subscriptionColumns).
				AddRow("https://example.com/expired", "k", "a", time.Now()))

		// Expect the delete operation
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE endpoint = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch("r-102")

		// A short sleep to allow the worker to process the job
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// --- Test Case: Report still running, nobody is notified ---
	t.Run("skips reports that have not finished", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Errorf("unexpected notification %q", payload)
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(selectReport).
			WithArgs("r-103", 1).
			WillReturnRows(sqlmock.NewRows(reportColumns).AddRow("r-103", "running", time.Now(), ""))

		wp.Dispatch("r-103")
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
