package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ev-dashboard/internal/congestion"
	"ev-dashboard/internal/services"
)

func sampleTable() congestion.Table {
	return congestion.Table{
		{Category: "급속", Hour: 0, MeanLoad: 10, Level: congestion.Low, Label: congestion.Low.Label()},
		{Category: "급속", Hour: 1, MeanLoad: 50, Level: congestion.Medium, Label: congestion.Medium.Label()},
		{Category: "급속", Hour: 2, MeanLoad: 90, Level: congestion.High, Label: congestion.High.Label()},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, formatTable, sampleTable()))
	out := buf.String()
	assert.Contains(t, out, "CHARGE TYPE")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "급속: q25=30.00 q75=70.00")

	buf.Reset()
	require.NoError(t, writeTable(&buf, formatJSON, sampleTable()))
	var decoded tableOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Rows, 3)
	assert.InDelta(t, 30, decoded.Thresholds["급속"].Q25, 1e-9)

	buf.Reset()
	require.NoError(t, writeTable(&buf, formatYAML, sampleTable()))
	var fromYAML tableOutput
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, congestion.Medium, fromYAML.Rows[1].Level)
	assert.Contains(t, buf.String(), "charge_type: 급속")
}

func TestWriteStructured_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, "xml", sampleTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestWriteCurrentAndImportResult(t *testing.T) {
	var buf bytes.Buffer
	currents := []congestion.Current{{Hour: 9, ChargeType: "완속", Congestion: congestion.Low, Label: "여유", Message: "m"}}
	require.NoError(t, writeCurrent(&buf, formatTable, currents))
	assert.Equal(t, "[완속] 09시 여유 (LOW) m\n", buf.String())

	buf.Reset()
	result := &services.ImportResult{Dataset: "regions", TotalRecords: 3, SuccessfulRecords: 2, FailedRecords: 1,
		Duration: 2 * time.Second, Errors: []string{"row 3: bad amount"}}
	require.NoError(t, writeImportResult(&buf, formatYAML, result))
	assert.Contains(t, buf.String(), "successful_records: 2")
	assert.Contains(t, buf.String(), "duration: 2s")
}

func TestCongestionTableCommand(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "load.csv")
	var b strings.Builder
	b.WriteString("일자,충전방식,0시,1시,2시,3시\n")
	b.WriteString("2024-01-01,AC,10,20,30,40\n")
	require.NoError(t, os.WriteFile(source, []byte(b.String()), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"congestion", "table", "--source", source, "--output", "json", "--config", writeTestConfig(t, dir)})
	t.Cleanup(func() {
		congestionSource = ""
		outputFormat = formatTable
		cfgFile = ""
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var decoded tableOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Rows, 4)
	assert.Equal(t, congestion.Low, decoded.Rows[0].Level)
	assert.Equal(t, congestion.High, decoded.Rows[3].Level)
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\ndatabase:\n  driver: sqlite\n  database: ':memory:'\n"), 0o600))
	return path
}
