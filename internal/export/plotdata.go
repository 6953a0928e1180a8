package export

import (
	"github.com/KaramelBytes/tabloom/internal/table"
)

const missingLabel = "(missing)"

func label(v table.Value) string {
	if v.Null {
		return missingLabel
	}
	return v.Raw
}

// categories keeps distinct labels in first-seen order.
type categories struct {
	labels []string
	index  map[string]int
}

func (c *categories) add(l string) int {
	if c.index == nil {
		c.index = map[string]int{}
	}
	if i, ok := c.index[l]; ok {
		return i
	}
	c.index[l] = len(c.labels)
	c.labels = append(c.labels, l)
	return len(c.labels) - 1
}

// series holds one value per category; present is false where no row
// contributed.
type series struct {
	name    string
	values  []float64
	present []bool
}

type pointSeries struct {
	name   string
	xs, ys []float64
}

// measure returns the y value of row, or 1 when counting rows.
func measure(col *table.Column, row int) (float64, bool) {
	if col == nil {
		return 1, true
	}
	v := col.Values[row]
	if v.Null {
		return 0, false
	}
	return v.Num, true
}

// categorySeries groups rows by X label. Without a color field there is one
// series per Y field; with one, the first Y field is split by color value.
// Without Y fields rows are counted.
func categorySeries(s ChartSpec, t *table.Table) ([]string, []*series) {
	xc, _ := t.Column(s.X)
	var xs categories
	for _, v := range xc.Values {
		xs.add(label(v))
	}
	var cc *table.Column
	if s.Color != "" {
		cc, _ = t.Column(s.Color)
	}
	fields := s.Y
	if cc != nil && len(fields) > 1 {
		fields = fields[:1]
	}
	if len(fields) == 0 {
		fields = []string{""}
	}

	var names categories
	var out []*series
	get := func(name string) *series {
		if i, ok := names.index[name]; ok {
			return out[i]
		}
		names.add(name)
		sr := &series{name: name, values: make([]float64, len(xs.labels)), present: make([]bool, len(xs.labels))}
		out = append(out, sr)
		return sr
	}
	// series exist even when every value is null
	for _, f := range fields {
		if cc == nil {
			get(seriesName(f))
		}
	}
	for row := 0; row < t.Len(); row++ {
		xi := xs.index[label(xc.Values[row])]
		for _, f := range fields {
			name := seriesName(f)
			if cc != nil {
				name = label(cc.Values[row])
			}
			sr := get(name)
			var yc *table.Column
			if f != "" {
				yc, _ = t.Column(f)
			}
			y, ok := measure(yc, row)
			if !ok {
				continue
			}
			sr.values[xi] += y
			sr.present[xi] = true
		}
	}
	return xs.labels, out
}

func seriesName(field string) string {
	if field == "" {
		return "count"
	}
	return field
}

// scatterSeries returns points per color value (or a single series named
// after the Y field). A non-numeric X is mapped to category positions and
// its labels are returned; xLabels is nil for a numeric X.
func scatterSeries(s ChartSpec, t *table.Table) (xLabels []string, out []*pointSeries) {
	xc, _ := t.Column(s.X)
	yc, _ := t.Column(s.Y[0])
	var cc *table.Column
	if s.Color != "" {
		cc, _ = t.Column(s.Color)
	}
	numericX := xc.Kind == table.Numeric
	var xs categories
	if !numericX {
		for _, v := range xc.Values {
			xs.add(label(v))
		}
		xLabels = xs.labels
		if xLabels == nil {
			xLabels = []string{}
		}
	}
	var names categories
	get := func(name string) *pointSeries {
		if i, ok := names.index[name]; ok {
			return out[i]
		}
		names.add(name)
		ps := &pointSeries{name: name}
		out = append(out, ps)
		return ps
	}
	if cc == nil {
		get(s.Y[0])
	}
	for row := 0; row < t.Len(); row++ {
		xv, yv := xc.Values[row], yc.Values[row]
		if yv.Null || (numericX && xv.Null) {
			continue
		}
		x := xv.Num
		if !numericX {
			x = float64(xs.index[label(xv)])
		}
		name := s.Y[0]
		if cc != nil {
			name = label(cc.Values[row])
		}
		ps := get(name)
		ps.xs = append(ps.xs, x)
		ps.ys = append(ps.ys, yv.Num)
	}
	return xLabels, out
}

// boxGroups collects the non-null Y values per X label.
func boxGroups(s ChartSpec, t *table.Table) ([]string, [][]float64) {
	xc, _ := t.Column(s.X)
	yc, _ := t.Column(s.Y[0])
	var xs categories
	var groups [][]float64
	for row := 0; row < t.Len(); row++ {
		i := xs.add(label(xc.Values[row]))
		if i == len(groups) {
			groups = append(groups, nil)
		}
		if v := yc.Values[row]; !v.Null {
			groups[i] = append(groups[i], v.Num)
		}
	}
	return xs.labels, groups
}
