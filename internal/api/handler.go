package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/store"
)

// ReportTrigger queues report generation.
type ReportTrigger interface {
	Trigger(ctx context.Context) (*model.Report, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	reports ReportTrigger
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, reports ReportTrigger, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		reports: reports,
		webpush: webpushOptions,
	}
}
