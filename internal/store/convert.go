package store

import (
	"fmt"

	"uptime-report-backend/internal/model"
	"uptime-report-backend/internal/parse"
	"uptime-report-backend/internal/uptime"
)

func toSample(r model.StoreStatus) uptime.Sample {
	return uptime.Sample{At: r.TimestampUTC.UTC(), Active: r.Status}
}

// rulesFromRows converts stored menu hours into schedule rules. Rows are
// validated at ingestion, so a bad row here means the table was edited by hand.
func rulesFromRows(rows []model.MenuHours) ([]uptime.Rule, error) {
	rules := make([]uptime.Rule, 0, len(rows))
	for _, r := range rows {
		day, err := parse.Weekday(r.DayOfWeek)
		if err != nil {
			return nil, fmt.Errorf("menu hours %d: %w", r.ID, err)
		}
		start, err := parse.ParseClock(r.StartTimeLocal)
		if err != nil {
			return nil, fmt.Errorf("menu hours %d: %w", r.ID, err)
		}
		end, err := parse.ParseClock(r.EndTimeLocal)
		if err != nil {
			return nil, fmt.Errorf("menu hours %d: %w", r.ID, err)
		}
		rules = append(rules, uptime.Rule{Weekday: day, Window: uptime.Window{Start: start, End: end}})
	}
	return rules, nil
}
