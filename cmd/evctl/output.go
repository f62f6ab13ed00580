package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"ev-dashboard/internal/congestion"
	"ev-dashboard/internal/services"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// writeStructured encodes v as JSON or YAML. ok is false for the table
// format, which each command renders itself.
func writeStructured(w io.Writer, format string, v interface{}) (ok bool, err error) {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case formatTable:
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// tableOutput is the congestion table with its cut points
type tableOutput struct {
	Rows       congestion.Table                 `json:"rows" yaml:"rows"`
	Thresholds map[string]congestion.Thresholds `json:"thresholds" yaml:"thresholds"`
}

func writeTable(w io.Writer, format string, table congestion.Table) error {
	if ok, err := writeStructured(w, format, tableOutput{Rows: table, Thresholds: table.Thresholds()}); ok {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARGE TYPE\tHOUR\tMEAN LOAD\tCONGESTION\tLABEL")
	for _, row := range table {
		fmt.Fprintf(tw, "%s\t%02d\t%.2f\t%s\t%s\n", row.Category, row.Hour, row.MeanLoad, row.Level, row.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	thresholds := table.Thresholds()
	for _, category := range table.Categories() {
		th := thresholds[category]
		fmt.Fprintf(w, "%s: q25=%.2f q75=%.2f\n", category, th.Q25, th.Q75)
	}
	return nil
}

func writeCurrent(w io.Writer, format string, currents []congestion.Current) error {
	if ok, err := writeStructured(w, format, currents); ok {
		return err
	}
	for _, c := range currents {
		fmt.Fprintf(w, "[%s] %02d시 %s (%s) %s\n", c.ChargeType, c.Hour, c.Label, c.Congestion, c.Message)
	}
	return nil
}

func writeImportResult(w io.Writer, format string, result *services.ImportResult) error {
	if ok, err := writeStructured(w, format, result); ok {
		return err
	}

	fmt.Fprintf(w, "Dataset:    %s\n", result.Dataset)
	fmt.Fprintf(w, "Total:      %d\n", result.TotalRecords)
	fmt.Fprintf(w, "Successful: %d\n", result.SuccessfulRecords)
	fmt.Fprintf(w, "Failed:     %d\n", result.FailedRecords)
	fmt.Fprintf(w, "Duration:   %s\n", result.Duration)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
