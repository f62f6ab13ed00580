package congestion

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"ev-dashboard/internal/models"
)

func TestParseWide_RowCountInvariant(t *testing.T) {
	header := []string{"일자", "충전방식", "0시", "1시", "2시"}
	rows := [][]string{
		{"2024-01-01", "급속", "1", "2", "3"},
		{"2024/01/02", "급속", "4", "5", "6"},
		{"20240103", "완속", "1,200", "0", "0.5"},
	}

	wide, err := DefaultSchema().ParseWide(header, rows)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, wide.Hours)

	records := Reshape(wide)
	assert.Len(t, records, len(rows)*3)
	assert.Equal(t, LoadRecord{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Category: "완속", Hour: 0, Load: 1200}, records[6])
}

func TestParseWide_HeaderOrderIndependent(t *testing.T) {
	header := []string{"5시", "충전방식", "비고", "일자", "4시"}
	rows := [][]string{{"50", "AC", "memo", "2024-03-01", "40"}}

	wide, err := DefaultSchema().ParseWide(header, rows)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, wide.Hours)
	assert.Equal(t, []float64{50, 40}, wide.Rows[0].Loads)
}

func TestParseWide_SkipsBlankRows(t *testing.T) {
	header := []string{"일자", "충전방식", "0시"}
	rows := [][]string{{"2024-01-01", "AC", "1"}, {"", "", ""}, {}}

	wide, err := DefaultSchema().ParseWide(header, rows)
	require.NoError(t, err)
	assert.Len(t, wide.Rows, 1)
}

func TestParseWide_BlankLoadsSkippedInMean(t *testing.T) {
	header := []string{"일자", "충전방식", "0시", "1시", "2시"}
	rows := [][]string{
		{"2024-01-01", "AC", "10", "", "5"},
		{"2024-01-02", "AC", "30", "  "},
		{"2024-01-03", "AC", "20", "", "7"},
	}

	wide, err := DefaultSchema().ParseWide(header, rows)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(wide.Rows[1].Loads[2]))

	records := Reshape(wide)
	assert.Len(t, records, len(rows)*3)

	table := BuildTable(records)
	require.Len(t, table, 2)
	assert.Equal(t, 0, table[0].Hour)
	assert.InDelta(t, 20, table[0].MeanLoad, 1e-9)
	assert.Equal(t, 2, table[1].Hour)
	assert.InDelta(t, 6, table[1].MeanLoad, 1e-9)

	_, ok := CurrentCongestion(table, "AC", 1)
	assert.False(t, ok)
}

func TestParseWide_Errors(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		rows   [][]string
		field  string
	}{
		{"malformed hour column", []string{"일자", "충전방식", "오전시"}, nil, "hour"},
		{"hour out of range", []string{"일자", "충전방식", "24시"}, nil, "hour"},
		{"duplicate hour", []string{"일자", "충전방식", "1시", "01시"}, nil, "hour"},
		{"missing date column", []string{"충전방식", "0시"}, nil, "header"},
		{"missing category column", []string{"일자", "0시"}, nil, "header"},
		{"no hour columns", []string{"일자", "충전방식"}, nil, "header"},
		{"bad date", []string{"일자", "충전방식", "0시"}, [][]string{{"Jan 1st", "AC", "1"}}, "date"},
		{"empty category", []string{"일자", "충전방식", "0시"}, [][]string{{"2024-01-01", " ", "1"}}, "category"},
		{"non numeric load", []string{"일자", "충전방식", "0시"}, [][]string{{"2024-01-01", "AC", "n/a"}}, "load"},
		{"nan load", []string{"일자", "충전방식", "0시"}, [][]string{{"2024-01-01", "AC", "NaN"}}, "load"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultSchema().ParseWide(tt.header, tt.rows)
			require.Error(t, err)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "got %T", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseWide_CustomSchema(t *testing.T) {
	schema := Schema{
		DateColumn:     "date",
		CategoryColumn: "type",
		HourSuffix:     "h",
		DateLayouts:    []string{"02/01/2006"},
	}

	wide, err := schema.ParseWide([]string{"date", "type", "7h", "8h"}, [][]string{{"15/06/2024", "DC", "3", "4"}})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8}, wide.Hours)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), wide.Rows[0].Date)
}

func TestParseWide_ExcelSerialDate(t *testing.T) {
	wide, err := DefaultSchema().ParseWide([]string{"일자", "충전방식", "0시"}, [][]string{{"45292", "AC", "1"}})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), wide.Rows[0].Date)
}

func TestReadCSV_EUCKR(t *testing.T) {
	utf := "일자,충전방식,0시,1시\n2024-01-01,급속,10,20\n"
	encoded, err := korean.EUCKR.NewEncoder().String(utf)
	require.NoError(t, err)

	wide, err := DefaultSchema().ReadCSV(bytes.NewReader([]byte(encoded)))
	require.NoError(t, err)
	require.Len(t, wide.Rows, 1)
	assert.Equal(t, "급속", wide.Rows[0].Category)
	assert.Equal(t, []int{0, 1}, wide.Hours)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	rows := [][]interface{}{
		{"일자", "충전방식", "0시", "1시"},
		{"2024-01-01", "급속", 10, 20},
		{"2024-01-02", "급속", 30, 40},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	wide, err := DefaultSchema().Read(&buf, FormatXLSX, "")
	require.NoError(t, err)
	require.Len(t, wide.Rows, 2)
	assert.Equal(t, []float64{30, 40}, wide.Rows[1].Loads)

	table := BuildTable(Reshape(wide))
	require.Len(t, table, 2)
	assert.InDelta(t, 20, table[0].MeanLoad, 1e-9)
}
