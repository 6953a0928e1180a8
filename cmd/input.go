package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/loader"
	"github.com/KaramelBytes/tabloom/internal/pipeline"
	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/spf13/cobra"
)

// inputFlags are the parsing options shared by every command that reads a file.
type inputFlags struct {
	format     string
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func addInputFlags(cmd *cobra.Command, f *inputFlags) {
	cmd.Flags().StringVar(&f.format, "format", "", "input format: csv | xlsx (detected from the file if omitted)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum data rows to load (0 = use config max_rows)")
}

func (f *inputFlags) options() (pipeline.Options, error) {
	var opt pipeline.Options
	if f.format != "" {
		format, err := loader.ParseFormat(f.format)
		if err != nil {
			return opt, err
		}
		opt.Format = format
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Loader.Delimiter = ','
	case "\t", "tab":
		opt.Loader.Delimiter = '\t'
	case ";":
		opt.Loader.Delimiter = ';'
	case "|", "pipe":
		opt.Loader.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.Loader.DecimalSeparator = ','
	case ".", "dot":
		opt.Loader.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(f.thousands) {
	case ",":
		opt.Loader.ThousandsSeparator = ','
	case ".":
		opt.Loader.ThousandsSeparator = '.'
	case "space", " ":
		opt.Loader.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	opt.Loader.SheetName = f.sheetName
	opt.Loader.SheetIndex = f.sheetIndex

	opt.MaxUploadBytes = cfg.MaxUploadBytes
	opt.Loader.MaxRows = cfg.MaxRows
	if f.maxRows > 0 {
		opt.Loader.MaxRows = f.maxRows
	}
	return opt, nil
}

// openSession reads path under the configured size limit and loads it.
func openSession(path string, f *inputFlags) (*pipeline.Session, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	limit := opt.MaxUploadBytes
	if limit == 0 {
		limit = pipeline.DefaultMaxUploadBytes
	}
	if limit > 0 && info.Size() > limit {
		return nil, &table.ResourceError{What: "upload size", Limit: limit, Got: info.Size()}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return pipeline.Open(path, data, opt)
}
