package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/uptime"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a report is not in a state that allows the update.
	ErrInvalidTransition = errors.New("invalid report state transition")
)

// insertChunkSize bounds the rows per INSERT statement; postgres caps bind parameters at 65535.
const insertChunkSize = 1000

// Store defines the interface for all database operations.
type Store interface {
	InsertStores(ctx context.Context, storeIDs []string) error
	InsertStatuses(ctx context.Context, rows []model.StoreStatus) error
	InsertMenuHours(ctx context.Context, rows []model.MenuHours) error
	InsertTimezones(ctx context.Context, rows []model.Timezone) error

	StoreIDs(ctx context.Context) ([]string, error)
	LatestSampleInstant(ctx context.Context) (time.Time, bool, error)
	Timezone(ctx context.Context, storeID string) (string, bool, error)
	ScheduleRules(ctx context.Context, storeID string) ([]uptime.Rule, error)
	CarryInSample(ctx context.Context, storeID string, before time.Time) (*uptime.Sample, error)
	SamplesInRange(ctx context.Context, storeID string, start, end time.Time) ([]uptime.Sample, error)

	CreateReport(ctx context.Context, reportID string, now time.Time) (*model.Report, error)
	MarkReportRunning(ctx context.Context, reportID string, now time.Time) error
	MarkReportCompleted(ctx context.Context, reportID, path string, now time.Time) error
	MarkReportFailed(ctx context.Context, reportID, message string, now time.Time) error
	GetReport(ctx context.Context, reportID string) (*model.Report, error)

	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// InsertStores records store ids, ignoring ones already known.
func (s *gormStore) InsertStores(ctx context.Context, storeIDs []string) error {
	if len(storeIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]model.Store, len(storeIDs))
	for i, id := range storeIDs {
		rows[i] = model.Store{StoreID: id, CreatedAt: now}
	}
	return s.insertIgnore(ctx, &rows, "stores")
}

// InsertStatuses appends observations; duplicates of (store_id, timestamp_utc) are dropped.
func (s *gormStore) InsertStatuses(ctx context.Context, rows []model.StoreStatus) error {
	if len(rows) == 0 {
		return nil
	}
	return s.insertIgnore(ctx, &rows, "store_status")
}

// InsertMenuHours adds schedule rules; identical rules are dropped.
func (s *gormStore) InsertMenuHours(ctx context.Context, rows []model.MenuHours) error {
	if len(rows) == 0 {
		return nil
	}
	return s.insertIgnore(ctx, &rows, "menu_hours")
}

// InsertTimezones assigns timezones; a store keeps the first one it was given.
func (s *gormStore) InsertTimezones(ctx context.Context, rows []model.Timezone) error {
	if len(rows) == 0 {
		return nil
	}
	return s.insertIgnore(ctx, &rows, "timezones")
}

func (s *gormStore) insertIgnore(ctx context.Context, rows any, table string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, insertChunkSize).Error
	})
	if err != nil {
		return fmt.Errorf("batch insert into %s failed: %w", table, err)
	}
	return nil
}

// StoreIDs returns every known store id in ascending order.
func (s *gormStore) StoreIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.Store{}).Order("store_id").Pluck("store_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return ids, nil
}

// LatestSampleInstant returns the newest observation instant across all stores.
func (s *gormStore) LatestSampleInstant(ctx context.Context) (time.Time, bool, error) {
	var rows []model.StoreStatus
	if err := s.db.WithContext(ctx).
		Select("timestamp_utc").
		Order("timestamp_utc DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return time.Time{}, false, fmt.Errorf("failed to fetch latest observation: %w", err)
	}
	if len(rows) == 0 {
		return time.Time{}, false, nil
	}
	return rows[0].TimestampUTC.UTC(), true, nil
}

// Timezone returns the store's configured timezone name, if any.
func (s *gormStore) Timezone(ctx context.Context, storeID string) (string, bool, error) {
	var rows []model.Timezone
	if err := s.db.WithContext(ctx).Where("store_id = ?", storeID).Limit(1).Find(&rows).Error; err != nil {
		return "", false, fmt.Errorf("failed to fetch timezone for store %s: %w", storeID, err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].TimezoneStr, true, nil
}

// ScheduleRules returns the store's weekly windows.
func (s *gormStore) ScheduleRules(ctx context.Context, storeID string) ([]uptime.Rule, error) {
	var rows []model.MenuHours
	if err := s.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("day_of_week, start_time_local").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch menu hours for store %s: %w", storeID, err)
	}
	return rulesFromRows(rows)
}

// CarryInSample returns the newest observation strictly before the given instant.
func (s *gormStore) CarryInSample(ctx context.Context, storeID string, before time.Time) (*uptime.Sample, error) {
	var rows []model.StoreStatus
	if err := s.db.WithContext(ctx).
		Where("store_id = ? AND timestamp_utc < ?", storeID, before.UTC()).
		Order("timestamp_utc DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch carry-in sample for store %s: %w", storeID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sample := toSample(rows[0])
	return &sample, nil
}

// SamplesInRange returns observations in [start, end), oldest first.
func (s *gormStore) SamplesInRange(ctx context.Context, storeID string, start, end time.Time) ([]uptime.Sample, error) {
	var rows []model.StoreStatus
	if err := s.db.WithContext(ctx).
		Where("store_id = ? AND timestamp_utc >= ? AND timestamp_utc < ?", storeID, start.UTC(), end.UTC()).
		Order("timestamp_utc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch samples for store %s: %w", storeID, err)
	}
	samples := make([]uptime.Sample, len(rows))
	for i, r := range rows {
		samples[i] = toSample(r)
	}
	return samples, nil
}

// --- Subscriptions ---

// SaveSubscription creates or replaces a push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(&sub).Error
}

// GetSubscription loads a subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription. Deleting an unknown endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
}

// ListSubscriptions returns every subscription.
func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
