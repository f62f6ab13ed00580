package congestion

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"ev-dashboard/internal/models"
	"ev-dashboard/pkg/csvio"
)

// Format is the file format of a wide load table
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format from a file name or object key
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported load table format: %s", name)
}

// Read parses a wide load table in the given format. sheet is only used
// for xlsx and defaults to the active sheet.
func (s Schema) Read(r io.Reader, format Format, sheet string) (*WideTable, error) {
	switch format {
	case FormatCSV:
		return s.ReadCSV(r)
	case FormatXLSX:
		return s.ReadXLSX(r, sheet)
	}
	return nil, fmt.Errorf("unsupported load table format: %s", format)
}

// ReadCSV parses a CSV export. Files that are not valid UTF-8 are decoded
// as EUC-KR (CP949), the encoding of most Korean public-data exports.
func (s Schema) ReadCSV(r io.Reader) (*WideTable, error) {
	records, err := csvio.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &models.ValidationError{Field: "header", Message: "empty load table"}
	}

	return s.ParseWide(records[0], records[1:])
}

// ReadXLSX parses the given sheet of a workbook
func (s Schema) ReadXLSX(r io.Reader, sheet string) (*WideTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &models.ValidationError{Field: "header", Value: sheet, Message: "empty load table"}
	}

	return s.ParseWide(rows[0], rows[1:])
}
