package congestion

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-dashboard/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

// recordsFromMeans builds one day of records whose hourly means are means[h]
func recordsFromMeans(category string, means []float64) []LoadRecord {
	records := make([]LoadRecord, 0, len(means))
	for h, m := range means {
		records = append(records, LoadRecord{Date: day(1), Category: category, Hour: h, Load: m})
	}
	return records
}

func TestBuildTable_ThresholdExample(t *testing.T) {
	means := make([]float64, 0, 24)
	for _, v := range []float64{10, 50, 90} {
		for i := 0; i < 8; i++ {
			means = append(means, v)
		}
	}

	table := BuildTable(recordsFromMeans("DC", means))
	require.Len(t, table, 24)

	th := table.Thresholds()["DC"]
	assert.InDelta(t, 10, th.Q25, 1e-9)
	assert.InDelta(t, 90, th.Q75, 1e-9)

	for _, row := range table {
		switch row.MeanLoad {
		case 10:
			assert.Equal(t, Low, row.Level, "hour %d", row.Hour)
			assert.Equal(t, "여유", row.Label)
		case 50:
			assert.Equal(t, Medium, row.Level, "hour %d", row.Hour)
		case 90:
			assert.Equal(t, High, row.Level, "hour %d", row.Hour)
			assert.Equal(t, "혼잡", row.Label)
		default:
			t.Fatalf("unexpected mean %v", row.MeanLoad)
		}
	}
}

func TestBuildTable_BoundaryTieIsHigh(t *testing.T) {
	means := make([]float64, 24)
	for i := range means {
		means[i] = 42.5
	}

	table := BuildTable(recordsFromMeans("AC", means))
	require.Len(t, table, 24)
	for _, row := range table {
		assert.Equal(t, High, row.Level, "hour %d", row.Hour)
	}
}

func TestBuildTable_MeanAcrossDates(t *testing.T) {
	records := []LoadRecord{
		{Date: day(1), Category: "AC", Hour: 0, Load: 10},
		{Date: day(2), Category: "AC", Hour: 0, Load: 20},
		{Date: day(3), Category: "AC", Hour: 0, Load: 60},
		{Date: day(1), Category: "AC", Hour: 1, Load: 5},
	}

	table := BuildTable(records)
	require.Len(t, table, 2)
	assert.Equal(t, 0, table[0].Hour)
	assert.InDelta(t, 30, table[0].MeanLoad, 1e-9)
	assert.Equal(t, 1, table[1].Hour)
	assert.InDelta(t, 5, table[1].MeanLoad, 1e-9)
}

func TestBuildTable_EmptyInput(t *testing.T) {
	table := BuildTable(nil)
	assert.Empty(t, table)
	assert.Empty(t, table.Categories())
}

func TestBuildTable_Idempotent(t *testing.T) {
	records := append(
		recordsFromMeans("DC", []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4, 6, 2, 6, 4}),
		recordsFromMeans("AC", []float64{2, 7, 1, 8, 2, 8, 1, 8, 2, 8, 4, 5, 9, 0, 4, 5, 2, 3, 5, 3, 6, 0, 2, 8})...,
	)

	first := BuildTable(records)
	second := BuildTable(records)
	assert.Equal(t, first, second)
}

func TestBuildTable_PartitionCompleteness(t *testing.T) {
	wide := &WideTable{Hours: []int{0, 6, 12, 18}}
	for d := 1; d <= 5; d++ {
		for _, category := range []string{"급속", "완속", "AC"} {
			wide.Rows = append(wide.Rows, WideRow{
				Date:     day(d),
				Category: category,
				Loads:    []float64{float64(d), float64(d * 2), float64(d * 3), float64(d * 4)},
			})
		}
	}

	table := BuildTable(Reshape(wide))

	seen := make(map[string]int)
	for _, row := range table {
		seen[fmt.Sprintf("%s/%d", row.Category, row.Hour)]++
	}
	assert.Len(t, seen, 3*4)
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
	assert.Equal(t, []string{"AC", "급속", "완속"}, table.Categories())
}

func TestBuildTable_CategoriesClassifiedIndependently(t *testing.T) {
	records := append(
		recordsFromMeans("AC", []float64{1, 2, 3, 4, 5}),
		recordsFromMeans("DC", []float64{100, 200, 300, 400, 500})...,
	)

	table := BuildTable(records)
	ac := table.ForCategory("AC")
	dc := table.ForCategory("DC")
	require.Len(t, ac, 5)
	require.Len(t, dc, 5)

	// q25/q75 are 2 and 4 for AC, 200 and 400 for DC
	for i := range ac {
		assert.Equal(t, ac[i].Level, dc[i].Level, "hour %d", i)
	}
	assert.Equal(t, Low, ac[1].Level)
	assert.Equal(t, Medium, ac[2].Level)
	assert.Equal(t, High, ac[3].Level)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"single value", []float64{7}, 0.25, 7},
		{"exact rank", []float64{1, 2, 3, 4, 5}, 0.25, 2},
		{"interpolated", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"interpolated upper", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"p zero", []float64{1, 2, 3}, 0, 1},
		{"p one", []float64{1, 2, 3}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.p), 1e-9)
		})
	}
}

func TestQuantileThresholds_Unsorted(t *testing.T) {
	th := QuantileThresholds([]float64{4, 1, 3, 2})
	assert.InDelta(t, 1.75, th.Q25, 1e-9)
	assert.InDelta(t, 3.25, th.Q75, 1e-9)
}

func TestCurrentCongestion(t *testing.T) {
	table := Table{
		{Category: "AC", Hour: 13, MeanLoad: 10, Level: Low},
		{Category: "AC", Hour: 14, MeanLoad: 20, Level: Medium},
		{Category: "DC", Hour: 14, MeanLoad: 90, Level: High},
	}

	got, ok := CurrentCongestion(table, "AC", 14)
	require.True(t, ok)
	assert.Equal(t, Current{
		Hour:       14,
		ChargeType: "AC",
		Congestion: Medium,
		Label:      "보통",
		Message:    "이 시간대는 보통 수준의 충전 수요를 보입니다.",
	}, got)

	_, ok = CurrentCongestion(table, "AC", 3)
	assert.False(t, ok)

	_, ok = CurrentCongestion(table, "수소", 14)
	assert.False(t, ok)

	_, ok = CurrentCongestion(nil, "AC", 14)
	assert.False(t, ok)
}

func TestLevelMessages(t *testing.T) {
	assert.Equal(t, "이 시간대는 충전 수요가 비교적 높은 편입니다.", High.Message())
	assert.Equal(t, "이 시간대는 비교적 여유로운 편입니다.", Low.Message())

	for _, in := range []string{"HIGH", "혼잡"} {
		lvl, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, High, lvl)
	}
	_, err := ParseLevel("busy")
	assert.Error(t, err)
}

func TestRenderChart(t *testing.T) {
	table := BuildTable(append(
		recordsFromMeans("AC", []float64{1, 2, 3, 4, 5, 6}),
		recordsFromMeans("DC", []float64{6, 5, 4, 3, 2, 1})...,
	))

	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, table, ChartOptions{Title: "hourly load"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, RenderChart(&buf, nil, ChartOptions{}))
}

func TestReadCSV_EndToEnd(t *testing.T) {
	var b strings.Builder
	b.WriteString("\ufeff일자,충전방식")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",%d시", h)
	}
	b.WriteString("\n")
	for d := 1; d <= 3; d++ {
		for _, category := range []string{"급속", "완속"} {
			fmt.Fprintf(&b, "2024-01-%02d,%s", d, category)
			for h := 0; h < 24; h++ {
				fmt.Fprintf(&b, ",%d", h*d)
			}
			b.WriteString("\n")
		}
	}

	wide, err := DefaultSchema().ReadCSV(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Len(t, wide.Hours, 24)
	assert.Len(t, wide.Rows, 6)

	records := Reshape(wide)
	assert.Len(t, records, 6*24)

	table := BuildTable(records)
	assert.Len(t, table, 2*24)

	got, ok := CurrentCongestion(table, "급속", 23)
	require.True(t, ok)
	assert.Equal(t, High, got.Congestion)

	got, ok = CurrentCongestion(table, "완속", 0)
	require.True(t, ok)
	assert.Equal(t, Low, got.Congestion)
}

func TestFormatFromName(t *testing.T) {
	f, err := FormatFromName("load.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromName("s3://bucket/path/load.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromName("load.parquet")
	assert.Error(t, err)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := DefaultSchema().ReadCSV(strings.NewReader(""))
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
}
