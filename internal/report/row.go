package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"uptime-report-backend/internal/uptime"
)

// Header is the exact column list of a report file.
var Header = []string{
	"store_id",
	"uptime_last_hour(minutes)",
	"uptime_last_day(hours)",
	"uptime_last_week(hours)",
	"downtime_last_hour(minutes)",
	"downtime_last_day(hours)",
	"downtime_last_week(hours)",
}

// Row is one store's line in a report.
type Row struct {
	StoreID          string
	UptimeLastHour   float64 // minutes
	UptimeLastDay    float64 // hours
	UptimeLastWeek   float64 // hours
	DowntimeLastHour float64 // minutes
	DowntimeLastDay  float64 // hours
	DowntimeLastWeek float64 // hours
}

// NewRow converts window totals into report units rounded to two decimals.
func NewRow(storeID string, hour, day, week uptime.Totals) Row {
	return Row{
		StoreID:          storeID,
		UptimeLastHour:   round2(hour.UptimeMinutes()),
		UptimeLastDay:    round2(day.Uptime.Hours()),
		UptimeLastWeek:   round2(week.Uptime.Hours()),
		DowntimeLastHour: round2(hour.DowntimeMinutes()),
		DowntimeLastDay:  round2(day.Downtime.Hours()),
		DowntimeLastWeek: round2(week.Downtime.Hours()),
	}
}

// ZeroRow is emitted for a store whose inputs could not be resolved.
func ZeroRow(storeID string) Row {
	return Row{StoreID: storeID}
}

func (r Row) values() []float64 {
	return []float64{
		r.UptimeLastHour, r.UptimeLastDay, r.UptimeLastWeek,
		r.DowntimeLastHour, r.DowntimeLastDay, r.DowntimeLastWeek,
	}
}

func (r Row) record() []string {
	rec := make([]string, 0, len(Header))
	rec = append(rec, r.StoreID)
	for _, v := range r.values() {
		rec = append(rec, strconv.FormatFloat(v, 'f', 2, 64))
	}
	return rec
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read report header: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected report column %d: %q", i, header[i])
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report row: %w", err)
		}
		var vals [6]float64
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
				return nil, fmt.Errorf("store %s column %s: %w", rec[0], Header[i+1], err)
			}
		}
		rows = append(rows, Row{
			StoreID:          rec[0],
			UptimeLastHour:   vals[0],
			UptimeLastDay:    vals[1],
			UptimeLastWeek:   vals[2],
			DowntimeLastHour: vals[3],
			DowntimeLastDay:  vals[4],
			DowntimeLastWeek: vals[5],
		})
	}
	return rows, nil
}

const xlsxSheet = "Uptime"

// XLSX renders the rows as a single-sheet workbook.
func XLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &Header); err != nil {
		return nil, err
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		values := []any{row.StoreID}
		for _, v := range row.values() {
			values = append(values, v)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
