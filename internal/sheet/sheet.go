// Package sheet reads uploaded CSV and XLSX files into raw import rows.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sykell/bookmarks/internal/importer"
)

const maxSourceLength = 120

var (
	ErrNoHeader          = errors.New("file has no header row")
	ErrNoRows            = errors.New("file has no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format is a supported upload type
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Sheet is a parsed upload. Row numbers count the header as row 1.
type Sheet struct {
	Headers []string          `json:"headers"`
	Rows    []importer.RawRow `json:"rows"`
}

// DetectFormat picks the format from a file name extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}

// SourceLabel names an import after its file, e.g. "csv:links.csv", cut to
// the length the imports table stores.
func SourceLabel(format Format, fileName string) string {
	runes := []rune(string(format) + ":" + filepath.Base(fileName))
	if len(runes) > maxSourceLength {
		runes = runes[:maxSourceLength]
	}
	return string(runes)
}

// Parse reads r according to the extension of fileName.
func Parse(r io.Reader, fileName string) (*Sheet, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	}
	if err != nil {
		return nil, err
	}
	return build(records)
}

func build(records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(records[0]))
	hasHeader := false
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			hasHeader = true
		}
	}
	if !hasHeader {
		return nil, ErrNoHeader
	}

	rows := make([]importer.RawRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}

		values := make(map[string]*string, len(headers))
		for col, header := range headers {
			if header == "" || col >= len(record) {
				continue
			}
			if _, dup := values[header]; dup {
				continue
			}
			value := record[col]
			values[header] = &value
		}
		rows = append(rows, importer.RawRow{RowNumber: i + 2, Values: values})
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	return &Sheet{Headers: headers, Rows: rows}, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
