// Package csvio reads CSV exports from Korean public-data portals, which
// arrive either as UTF-8 (often with a BOM) or as EUC-KR.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const bom = "\ufeff"

// ReadAll decodes r and returns every record. Records may have differing
// field counts; the BOM is stripped from the first field.
func ReadAll(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, korean.EUCKR.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], bom)
	}
	return records, nil
}

// Header maps column names to their index
type Header map[string]int

// NewHeader indexes a header row, trimming spaces around names
func NewHeader(row []string) Header {
	h := make(Header, len(row))
	for i, name := range row {
		h[strings.TrimSpace(name)] = i
	}
	return h
}

// Require returns an error naming every missing column
func (h Header) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the trimmed value of column in record, or "" when absent
func (h Header) Get(record []string, column string) string {
	idx, ok := h[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
