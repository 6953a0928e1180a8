package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/xuri/excelize/v2"
)

// readXLSX extracts the selected sheet's rows. Cells are read raw so that
// numbers survive without display rounding or currency symbols; only cells
// with a date or time number format keep their formatted text.
func readXLSX(data []byte, opt Options) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &table.FormatError{Msg: "open xlsx", Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, nil, err
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, &table.FormatError{Msg: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}
	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, &table.FormatError{Msg: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}
	dateStyle := map[int]bool{}
	for i, row := range raw {
		for j, v := range row {
			if i >= len(formatted) || j >= len(formatted[i]) || formatted[i][j] == v {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				continue
			}
			idx, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				continue
			}
			isDate, seen := dateStyle[idx]
			if !seen {
				isDate = styleIsDate(f, idx)
				dateStyle[idx] = isDate
			}
			if isDate {
				row[j] = formatted[i][j]
			}
		}
	}
	// skip leading empty rows before the header
	for len(raw) > 0 && isBlankRow(raw[0]) {
		raw = raw[1:]
	}
	if len(raw) == 0 {
		return nil, nil, &table.FormatError{Msg: fmt.Sprintf("no columns detected (sheet %q is empty)", sheet)}
	}
	return raw[0], raw[1:], nil
}

func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", &table.FormatError{Msg: "no sheets found in workbook"}
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", &table.FormatError{Msg: fmt.Sprintf("sheet %q not found; available sheets: %s", opt.SheetName, strings.Join(sheets, ", "))}
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", &table.FormatError{Msg: fmt.Sprintf("sheet index %d out of range; workbook has %d sheet(s)", idx, len(sheets))}
	}
	return sheets[idx-1], nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// builtin number formats that render dates or times
var dateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

func styleIsDate(f *excelize.File, idx int) bool {
	st, err := f.GetStyle(idx)
	if err != nil || st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return isDateFormatCode(*st.CustomNumFmt)
	}
	return dateNumFmts[st.NumFmt]
}

// isDateFormatCode reports whether a custom format code has date or time
// tokens outside quoted literals, escapes and bracketed sections.
func isDateFormatCode(code string) bool {
	var b, bracket strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			inQuote = c != '"'
		case inBracket:
			if c != ']' {
				bracket.WriteByte(c)
				continue
			}
			inBracket = false
			// elapsed time: [h], [mm], [ss]
			if t := strings.ToLower(bracket.String()); t != "" && strings.Trim(t, "hms") == "" {
				b.WriteString(t)
			}
			bracket.Reset()
		case c == '"':
			inQuote = true
		case c == '[':
			inBracket = true
		case c == '\\' || c == '_' || c == '*':
			i++
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}
