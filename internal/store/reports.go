package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"uptime-report-backend/internal/model"
)

// CreateReport inserts a new queued report.
func (s *gormStore) CreateReport(ctx context.Context, reportID string, now time.Time) (*model.Report, error) {
	report := model.Report{
		ReportID:  reportID,
		Status:    model.ReportQueued,
		CreatedAt: now.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report %s: %w", reportID, err)
	}
	return &report, nil
}

// MarkReportRunning moves a queued report to running.
func (s *gormStore) MarkReportRunning(ctx context.Context, reportID string, now time.Time) error {
	return s.transition(ctx, reportID, []model.ReportStatus{model.ReportQueued}, map[string]any{
		"status":     string(model.ReportRunning),
		"started_at": now.UTC(),
	})
}

// MarkReportCompleted moves a running report to completed and records its artifact.
func (s *gormStore) MarkReportCompleted(ctx context.Context, reportID, path string, now time.Time) error {
	return s.transition(ctx, reportID, []model.ReportStatus{model.ReportRunning}, map[string]any{
		"status":           string(model.ReportCompleted),
		"report_file_path": path,
		"completed_at":     now.UTC(),
	})
}

// MarkReportFailed closes a queued or running report with an error message.
func (s *gormStore) MarkReportFailed(ctx context.Context, reportID, message string, now time.Time) error {
	return s.transition(ctx, reportID, []model.ReportStatus{model.ReportQueued, model.ReportRunning}, map[string]any{
		"status":        string(model.ReportFailed),
		"error_message": message,
		"completed_at":  now.UTC(),
	})
}

// transition applies updates only while the report is in one of the allowed states.
func (s *gormStore) transition(ctx context.Context, reportID string, from []model.ReportStatus, updates map[string]any) error {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	result := s.db.WithContext(ctx).
		Model(&model.Report{}).
		Where("report_id = ? AND status IN ?", reportID, allowed).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update report %s: %w", reportID, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.GetReport(ctx, reportID); err != nil {
			return err
		}
		return fmt.Errorf("report %s to %v: %w", reportID, updates["status"], ErrInvalidTransition)
	}
	return nil
}

// GetReport loads a report by id.
func (s *gormStore) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	var report model.Report
	if err := s.db.WithContext(ctx).First(&report, "report_id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch report %s: %w", reportID, err)
	}
	return &report, nil
}
