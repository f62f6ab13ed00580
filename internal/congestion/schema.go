package congestion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ev-dashboard/internal/models"
)

// Schema names the columns of the wide hourly-load table
type Schema struct {
	DateColumn     string
	CategoryColumn string
	// HourSuffix marks hour columns: "0시" ... "23시"
	HourSuffix  string
	DateLayouts []string
}

// DefaultSchema matches the published charging-load export
func DefaultSchema() Schema {
	return Schema{
		DateColumn:     "일자",
		CategoryColumn: "충전방식",
		HourSuffix:     "시",
		DateLayouts: []string{
			"2006-01-02",
			"2006/01/02",
			"2006.01.02",
			"20060102",
			"2006-01-02 15:04:05",
			time.RFC3339,
		},
	}
}

// WideRow is one (date, category) row with a load per hour column
type WideRow struct {
	Date     time.Time
	Category string
	// Loads is aligned with WideTable.Hours; NaN marks a blank cell
	Loads []float64
}

// WideTable is the validated wide input
type WideTable struct {
	Hours []int
	Rows  []WideRow
}

// ParseWide validates a header and its string rows into a WideTable.
// Any malformed date, hour column or load value fails with a
// *models.ValidationError.
func (s Schema) ParseWide(header []string, records [][]string) (*WideTable, error) {
	dateIdx, categoryIdx := -1, -1
	var hourIdx []int
	var hours []int
	seen := make(map[int]bool)

	for i, raw := range header {
		col := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		switch {
		case col == s.DateColumn:
			dateIdx = i
		case col == s.CategoryColumn:
			categoryIdx = i
		case strings.HasSuffix(col, s.HourSuffix):
			hour, err := s.parseHourColumn(col)
			if err != nil {
				return nil, err
			}
			if seen[hour] {
				return nil, &models.ValidationError{Field: "hour", Value: col, Message: "duplicate hour column"}
			}
			seen[hour] = true
			hourIdx = append(hourIdx, i)
			hours = append(hours, hour)
		}
	}

	if dateIdx < 0 {
		return nil, &models.ValidationError{Field: "header", Value: s.DateColumn, Message: "missing date column"}
	}
	if categoryIdx < 0 {
		return nil, &models.ValidationError{Field: "header", Value: s.CategoryColumn, Message: "missing category column"}
	}
	if len(hours) == 0 {
		return nil, &models.ValidationError{Field: "header", Value: s.HourSuffix, Message: "no hour columns"}
	}

	table := &WideTable{Hours: hours, Rows: make([]WideRow, 0, len(records))}

	for n, record := range records {
		line := n + 2 // 1-based, after the header
		if isBlank(record) {
			continue
		}

		date, err := s.parseDate(cell(record, dateIdx))
		if err != nil {
			return nil, &models.ValidationError{
				Field:   "date",
				Value:   cell(record, dateIdx),
				Message: fmt.Sprintf("row %d: %v", line, err),
			}
		}

		category := strings.TrimSpace(cell(record, categoryIdx))
		if category == "" {
			return nil, &models.ValidationError{
				Field:   "category",
				Message: fmt.Sprintf("row %d: empty %s", line, s.CategoryColumn),
			}
		}

		loads := make([]float64, len(hourIdx))
		for j, idx := range hourIdx {
			raw := cell(record, idx)
			if strings.TrimSpace(raw) == "" {
				loads[j] = math.NaN()
				continue
			}
			v, err := parseLoad(raw)
			if err != nil {
				return nil, &models.ValidationError{
					Field:   "load",
					Value:   raw,
					Message: fmt.Sprintf("row %d, column %s: %v", line, strings.TrimSpace(header[idx]), err),
				}
			}
			loads[j] = v
		}

		table.Rows = append(table.Rows, WideRow{Date: date, Category: category, Loads: loads})
	}

	return table, nil
}

func (s Schema) parseHourColumn(col string) (int, error) {
	prefix := strings.TrimSpace(strings.TrimSuffix(col, s.HourSuffix))
	hour, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, &models.ValidationError{Field: "hour", Value: col, Message: "hour column prefix is not an integer"}
	}
	if hour < 0 || hour > 23 {
		return 0, &models.ValidationError{Field: "hour", Value: col, Message: "hour must be between 0 and 23"}
	}
	return hour, nil
}

func (s Schema) parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range s.DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateDay(t), nil
		}
	}
	// Spreadsheet cells read raw carry the Excel serial day number
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseLoad(raw string) (float64, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("load value %q is not finite", raw)
	}
	return v, nil
}

func cell(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
