// Package stats computes per-column summary statistics in the style of a
// dataframe describe() and renders them as a compact text report.
package stats

import (
	"math"
	"sort"

	"github.com/KaramelBytes/tabloom/internal/table"
)

// Summary describes one column. Numeric fields are set for numeric columns,
// Unique/Top/Freq for the others.
type Summary struct {
	Name    string
	Kind    table.Kind
	Count   int
	Missing int

	Mean   float64
	Std    float64 // sample standard deviation; NaN with fewer than two values
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64

	Unique int
	Top    string
	Freq   int
}

// Describe summarizes c.
func Describe(c *table.Column) Summary {
	s := Summary{Name: c.Name, Kind: c.Kind, Std: math.NaN()}
	if c.Kind == table.Numeric {
		describeNumeric(c, &s)
		return s
	}
	counts := map[string]int{}
	var order []string
	for _, v := range c.Values {
		if v.Null {
			s.Missing++
			continue
		}
		s.Count++
		if counts[v.Raw] == 0 {
			order = append(order, v.Raw)
		}
		counts[v.Raw]++
	}
	s.Unique = len(counts)
	// ties go to the value seen first
	for _, k := range order {
		if counts[k] > s.Freq {
			s.Top, s.Freq = k, counts[k]
		}
	}
	return s
}

func describeNumeric(c *table.Column, s *Summary) {
	vals := make([]float64, 0, c.Len())
	var n int
	var mean, m2 float64
	for _, v := range c.Values {
		if v.Null {
			s.Missing++
			continue
		}
		x := v.Num
		vals = append(vals, x)
		// Welford update
		n++
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	s.Count = n
	if n == 0 {
		s.Mean, s.Min, s.Q1, s.Median, s.Q3, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return
	}
	s.Mean = mean
	if n > 1 {
		s.Std = math.Sqrt(m2 / float64(n-1))
	}
	sort.Float64s(vals)
	s.Min = vals[0]
	s.Max = vals[n-1]
	s.Q1 = Quantile(vals, 0.25)
	s.Median = Quantile(vals, 0.5)
	s.Q3 = Quantile(vals, 0.75)
}

// DescribeTable summarizes every column of t in table order.
func DescribeTable(t *table.Table) []Summary {
	out := make([]Summary, 0, t.Width())
	for _, c := range t.Columns {
		out = append(out, Describe(c))
	}
	return out
}

// Quantile returns the q-quantile of sorted using linear interpolation
// between the closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// FiveNumber returns min, Q1, median, Q3 and max of vals, which need not be
// sorted. It returns nil for an empty input.
func FiveNumber(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return []float64{cp[0], Quantile(cp, 0.25), Quantile(cp, 0.5), Quantile(cp, 0.75), cp[len(cp)-1]}
}
