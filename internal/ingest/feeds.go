package ingest

import (
	"context"
	"errors"
	"io"

	"uptime-report-backend/internal/metrics"
	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/parse"
)

var errEmptyStoreID = errors.New("store_id is empty")

// IngestStatuses loads store_id,status,timestamp_utc rows.
func (s *Service) IngestStatuses(ctx context.Context, r io.Reader) (Result, error) {
	res := Result{Feed: FeedStatus}
	stores := storeSet{}
	batches := newBatchWriter(ctx, FeedStatus, s.cfg.StatusBatchSize, s.cfg.Workers, s.store.InsertStatuses)

	err := readFeed(ctx, r, &res, []string{"store_id", "status", "timestamp_utc"}, func(get func(string) string) error {
		storeID := get("store_id")
		if storeID == "" {
			return errEmptyStoreID
		}
		active, err := parse.ParseStatus(get("status"))
		if err != nil {
			return err
		}
		ts, err := parse.ParseTimestamp(get("timestamp_utc"))
		if err != nil {
			return err
		}
		stores.add(storeID)
		batches.add(model.StoreStatus{StoreID: storeID, TimestampUTC: ts, Status: active})
		return nil
	})
	return s.finish(ctx, &res, stores, batches.wait(), err)
}

// IngestHours loads store_id,dayOfWeek,start_time_local,end_time_local rows.
func (s *Service) IngestHours(ctx context.Context, r io.Reader) (Result, error) {
	res := Result{Feed: FeedHours}
	stores := storeSet{}
	batches := newBatchWriter(ctx, FeedHours, s.cfg.SmallBatchSize, s.cfg.Workers, s.store.InsertMenuHours)

	err := readFeed(ctx, r, &res, []string{"store_id", "dayofweek", "start_time_local", "end_time_local"}, func(get func(string) string) error {
		storeID := get("store_id")
		if storeID == "" {
			return errEmptyStoreID
		}
		day, err := parse.ParseWeekday(get("dayofweek"))
		if err != nil {
			return err
		}
		start, err := parse.ParseClock(get("start_time_local"))
		if err != nil {
			return err
		}
		end, err := parse.ParseClock(get("end_time_local"))
		if err != nil {
			return err
		}
		stores.add(storeID)
		batches.add(model.MenuHours{
			StoreID:        storeID,
			DayOfWeek:      day,
			StartTimeLocal: start.String(),
			EndTimeLocal:   end.String(),
		})
		return nil
	})
	return s.finish(ctx, &res, stores, batches.wait(), err)
}

// IngestTimezones loads store_id,timezone_str rows.
func (s *Service) IngestTimezones(ctx context.Context, r io.Reader) (Result, error) {
	res := Result{Feed: FeedTimezones}
	stores := storeSet{}
	batches := newBatchWriter(ctx, FeedTimezones, s.cfg.SmallBatchSize, s.cfg.Workers, s.store.InsertTimezones)

	err := readFeed(ctx, r, &res, []string{"store_id", "timezone_str"}, func(get func(string) string) error {
		storeID := get("store_id")
		if storeID == "" {
			return errEmptyStoreID
		}
		tz, err := parse.ParseTimezone(get("timezone_str"))
		if err != nil {
			return err
		}
		stores.add(storeID)
		batches.add(model.Timezone{StoreID: storeID, TimezoneStr: tz})
		return nil
	})
	return s.finish(ctx, &res, stores, batches.wait(), err)
}

// finish records every store seen in the feed and publishes the counters.
func (s *Service) finish(ctx context.Context, res *Result, stores storeSet, failedBatches int, readErr error) (Result, error) {
	res.FailedBatches = failedBatches
	if readErr != nil {
		return *res, readErr
	}

	storeBatches := newBatchWriter(ctx, res.Feed, s.cfg.SmallBatchSize, s.cfg.Workers, s.store.InsertStores)
	for _, id := range stores.ids() {
		storeBatches.add(id)
	}
	res.FailedBatches += storeBatches.wait()

	metrics.AddIngestRows(res.Feed, "accepted", res.Accepted)
	metrics.AddIngestRows(res.Feed, "rejected", res.Rejected)
	return *res, nil
}
