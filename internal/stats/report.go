package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/table"
)

// Markdown renders a compact report of t: a header block, one schema line
// per summary and up to sampleRows leading rows as a markdown table.
func Markdown(name string, t *table.Table, sums []Summary, sampleRows int) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", t.Len()))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", t.Width()))

	b.WriteString("[SCHEMA]\n")
	for _, s := range sums {
		total := s.Count + s.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(s.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(s.Name), s.Kind, s.Count, missPct))
		switch {
		case s.Kind == table.Numeric && s.Count > 0:
			b.WriteString(fmt.Sprintf("; mean %s, std %s, min %s, 25%% %s, 50%% %s, 75%% %s, max %s",
				num(s.Mean), num(s.Std), num(s.Min), num(s.Q1), num(s.Median), num(s.Q3), num(s.Max)))
		case s.Kind != table.Numeric && s.Count > 0:
			b.WriteString(fmt.Sprintf("; unique %d, top %s (%d)", s.Unique, safeVal(s.Top), s.Freq))
		}
		b.WriteString("\n")
	}

	if sampleRows > 0 && t.Len() > 0 && t.Width() > 0 {
		b.WriteString("\n[HEAD ROWS]\n")
		b.WriteString("| ")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(c.Name)))
		}
		b.WriteString(" |\n| ")
		for i := range t.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for r := 0; r < t.Len() && r < sampleRows; r++ {
			b.WriteString("| ")
			for i, val := range t.Row(r) {
				if i > 0 {
					b.WriteString(" | ")
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func num(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", f)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
