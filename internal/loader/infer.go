package loader

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tabloom/internal/table"
)

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"01-02-06", "2006-01-02T15:04:05",
}

var (
	plainNumber    = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	groupedComma   = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+$`)
	groupedDots    = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3}){2,}$`)
	singleDotGroup = regexp.MustCompile(`^[+-]?\d{1,3}\.\d{3}$`)
)

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanNumber strips a percent sign and non-breaking spaces.
func cleanNumber(s string) string {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	return strings.TrimSpace(raw)
}

// parseNumeric parses s with decimal separator dec. Spaces and thou are
// removed as grouping; thou 0 removes every separator other than dec.
func parseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := cleanNumber(s)
	if raw == "" {
		return 0, false
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep == dec {
			continue
		}
		if thou == 0 || sep == thou || sep == ' ' {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	if !plainNumber.MatchString(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// columnSeparators picks one decimal/thousands pair for a whole column.
// A cell like "1,5" or "1.500,25" marks the comma as decimal, "1.5" or
// "1,500,000" marks the dot. "1,500" and "1.500" follow the marked decimal;
// alone they read as grouping and as a dot decimal respectively. ok is
// false when cells contradict each other, so the column cannot be numeric.
func columnSeparators(cells []string, opt Options) (dec, thou rune, ok bool) {
	switch {
	case opt.DecimalSeparator != 0:
		return opt.DecimalSeparator, opt.ThousandsSeparator, true
	case opt.ThousandsSeparator == '.':
		return ',', '.', true
	case opt.ThousandsSeparator != 0:
		return '.', opt.ThousandsSeparator, true
	}
	var commaDec, dotDec, groupedByComma, groupedByDot bool
	for _, c := range cells {
		raw := cleanNumber(c)
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				commaDec = true
			} else {
				dotDec = true
			}
		case cpos >= 0:
			switch {
			case !groupedComma.MatchString(raw):
				commaDec = true
			case strings.Count(raw, ",") > 1:
				dotDec = true
			default:
				groupedByComma = true
			}
		case dpos >= 0:
			switch {
			case groupedDots.MatchString(raw):
				commaDec = true
			case singleDotGroup.MatchString(raw):
				groupedByDot = true
			default:
				dotDec = true
			}
		}
	}
	switch {
	case commaDec && dotDec:
		return 0, 0, false
	case commaDec:
		return ',', '.', true
	case dotDec:
		return '.', ',', true
	case groupedByComma && groupedByDot:
		return 0, 0, false
	}
	return '.', ',', true
}

// buildColumn infers a kind from the raw cells and converts them. A column
// is numeric only if every present cell is numeric, date only if every
// present cell is a date; anything else is text.
func buildColumn(name string, cells []string, opt Options) *table.Column {
	col := &table.Column{Name: name, Values: make([]table.Value, len(cells))}
	nums := make([]float64, len(cells))
	times := make([]time.Time, len(cells))
	dec, thou, numeric := columnSeparators(cells, opt)
	present, numCnt, dtCnt := 0, 0, 0
	for i, c := range cells {
		v := strings.TrimSpace(c)
		if v == "" {
			col.Values[i] = table.NullValue()
			continue
		}
		present++
		col.Values[i] = table.Value{Raw: v}
		if numeric && numCnt == present-1 {
			if x, ok := parseNumeric(v, dec, thou); ok {
				nums[i] = x
				numCnt++
				continue
			}
		}
		if dtCnt == present-1 {
			if t, ok := parseTimeMaybe(v); ok {
				times[i] = t
				dtCnt++
			}
		}
	}
	switch {
	case present > 0 && numCnt == present:
		col.Kind = table.Numeric
		for i := range col.Values {
			col.Values[i].Num = nums[i]
		}
	case present > 0 && dtCnt == present:
		col.Kind = table.Date
		for i := range col.Values {
			col.Values[i].Time = times[i]
		}
	default:
		col.Kind = table.Text
	}
	return col
}
