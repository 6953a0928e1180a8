// Package loader parses an uploaded CSV or XLSX file into a table.Table.
package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/table"
)

// Format is the declared container format of an upload.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// Options controls parsing.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// SheetName selects an XLSX sheet; otherwise SheetIndex (1-based) is used.
	SheetName  string
	SheetIndex int
	// MaxRows fails the load with a ResourceError when exceeded; 0 means unlimited.
	MaxRows int
}

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks a format from the filename extension, falling back to
// content sniffing (a ZIP container is treated as XLSX).
func DetectFormat(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return CSV, nil
	case ".xlsx", ".xlsm":
		return XLSX, nil
	case ".xls":
		return "", &table.FormatError{Msg: "legacy .xls workbooks are not supported; save as .xlsx"}
	}
	if bytes.HasPrefix(data, zipMagic) {
		return XLSX, nil
	}
	if len(data) > 0 && bytes.IndexByte(data, 0) < 0 {
		return CSV, nil
	}
	return "", &table.FormatError{Msg: fmt.Sprintf("cannot determine format of %q (expected .csv or .xlsx)", filename)}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", &table.FormatError{Msg: fmt.Sprintf("unsupported format %q (use csv or xlsx)", s)}
}

// Load parses data according to format. The first row is the header; a file
// with a header and no data rows yields an empty table.
func Load(data []byte, format Format, opt Options) (*table.Table, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch format {
	case CSV:
		header, rows, err = readCSV(data, opt)
	case XLSX:
		header, rows, err = readXLSX(data, opt)
	default:
		return nil, &table.FormatError{Msg: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, err
	}
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		return nil, &table.ResourceError{What: "row count", Limit: int64(opt.MaxRows), Got: int64(len(rows))}
	}
	return build(header, rows, opt)
}

func build(header []string, rows [][]string, opt Options) (*table.Table, error) {
	names, err := normalizeHeader(header)
	if err != nil {
		return nil, err
	}
	ncol := len(names)
	cells := make([][]string, ncol)
	for j := range cells {
		cells[j] = make([]string, len(rows))
	}
	for i, rec := range rows {
		if len(rec) > ncol {
			extra := rec[ncol:]
			if strings.TrimSpace(strings.Join(extra, "")) != "" {
				return nil, &table.FormatError{Msg: fmt.Sprintf("row %d has %d fields, header has %d", i+2, len(rec), ncol)}
			}
			rec = rec[:ncol]
		}
		for j, v := range rec {
			cells[j][i] = v
		}
	}
	cols := make([]*table.Column, ncol)
	for j, name := range names {
		cols[j] = buildColumn(name, cells[j], opt)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, &table.FormatError{Msg: "invalid table", Err: err}
	}
	return t, nil
}

// normalizeHeader trims names, drops trailing blank header cells, and names
// interior blanks "Unnamed: i". Duplicates are rejected.
func normalizeHeader(header []string) ([]string, error) {
	end := len(header)
	for end > 0 && strings.TrimSpace(header[end-1]) == "" {
		end--
	}
	if end == 0 {
		return nil, &table.FormatError{Msg: "no columns detected"}
	}
	names := make([]string, end)
	seen := make(map[string]bool, end)
	for i := 0; i < end; i++ {
		n := strings.TrimSpace(header[i])
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[n] {
			return nil, &table.FormatError{Msg: fmt.Sprintf("duplicate column name %q", n)}
		}
		seen[n] = true
		names[i] = n
	}
	return names, nil
}
