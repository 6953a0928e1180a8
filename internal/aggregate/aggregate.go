package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/shopspring/decimal"
)

const nullKey = "\x00null"

// group accumulates the rows of one key.
type group struct {
	key  []table.Value
	aggs []*acc
}

// acc is the running state of one reducer inside one group.
type acc struct {
	sum      decimal.Decimal
	n        int
	min, max float64
}

// Aggregate partitions t by groupKey and applies spec to each group. The
// result holds the key columns followed by one column per aggregation.
// Callers are expected to have validated the column names; an unknown
// column is still reported as a SchemaError.
func Aggregate(t *table.Table, groupKey []string, spec Spec, opt Options) (*table.Table, error) {
	keyCols := make([]*table.Column, len(groupKey))
	for i, name := range groupKey {
		c, ok := t.Column(name)
		if !ok {
			return nil, &table.SchemaError{Missing: []string{name}, Available: t.Names()}
		}
		keyCols[i] = c
	}
	srcCols := make([]*table.Column, len(spec))
	for i, a := range spec {
		if a.Source == "" {
			if a.Reducer != Count {
				return nil, fmt.Errorf("aggregation %q: %s needs a source column", a.Output, a.Reducer)
			}
			continue
		}
		c, ok := t.Column(a.Source)
		if !ok {
			return nil, &table.SchemaError{Missing: []string{a.Source}, Available: t.Names()}
		}
		// a column with no values has no declared kind to violate
		if a.Reducer.Numeric() && c.Kind != table.Numeric && c.Present() > 0 {
			return nil, &table.AggregationError{Column: a.Source, Reducer: string(a.Reducer), Kind: c.Kind}
		}
		srcCols[i] = c
	}

	index := map[string]*group{}
	var groups []*group
	for row := 0; row < t.Len(); row++ {
		id, isNull := rowKey(keyCols, row)
		if isNull && opt.DropNullKeys {
			continue
		}
		g := index[id]
		if g == nil {
			g = &group{aggs: make([]*acc, len(spec))}
			for i := range g.aggs {
				g.aggs[i] = &acc{min: math.Inf(1), max: math.Inf(-1)}
			}
			g.key = make([]table.Value, len(keyCols))
			for i, c := range keyCols {
				g.key[i] = c.Values[row]
			}
			index[id] = g
			groups = append(groups, g)
		}
		for i, a := range spec {
			src := srcCols[i]
			if src == nil {
				g.aggs[i].n++
				continue
			}
			v := src.Values[row]
			if v.Null {
				continue
			}
			st := g.aggs[i]
			st.n++
			if a.Reducer.Numeric() {
				st.sum = st.sum.Add(decimal.NewFromFloat(v.Num))
				st.min = math.Min(st.min, v.Num)
				st.max = math.Max(st.max, v.Num)
			}
		}
	}

	if opt.Order == Sorted {
		sort.SliceStable(groups, func(i, j int) bool {
			return lessKey(keyCols, groups[i].key, groups[j].key)
		})
	}

	cols := make([]*table.Column, 0, len(keyCols)+len(spec))
	for i, kc := range keyCols {
		c := &table.Column{Name: kc.Name, Kind: kc.Kind, Values: make([]table.Value, len(groups))}
		for r, g := range groups {
			c.Values[r] = g.key[i]
		}
		cols = append(cols, c)
	}
	for i, a := range spec {
		c := &table.Column{Name: a.Output, Kind: table.Numeric, Values: make([]table.Value, len(groups))}
		for r, g := range groups {
			c.Values[r] = reduce(a.Reducer, g.aggs[i])
		}
		cols = append(cols, c)
	}
	out, err := table.New(cols...)
	if err != nil {
		return nil, &table.SchemaError{Available: t.Names(), Msg: err.Error()}
	}
	return out, nil
}

// CountAll mirrors a groupby-count over the whole table: every non-key
// column is counted under its own name.
func CountAll(t *table.Table, groupKey []string) Spec {
	isKey := map[string]bool{}
	for _, k := range groupKey {
		isKey[k] = true
	}
	var spec Spec
	for _, c := range t.Columns {
		if isKey[c.Name] {
			continue
		}
		spec = append(spec, Aggregation{Output: c.Name, Source: c.Name, Reducer: Count})
	}
	return spec
}

func reduce(r Reducer, st *acc) table.Value {
	switch r {
	case Count:
		return table.Number(float64(st.n))
	case Sum:
		f, _ := st.sum.Float64()
		return table.Number(f)
	}
	if st.n == 0 {
		return table.NullValue()
	}
	switch r {
	case Mean:
		f, _ := st.sum.Div(decimal.NewFromInt(int64(st.n))).Float64()
		return table.Number(f)
	case Min:
		return table.Number(st.min)
	case Max:
		return table.Number(st.max)
	}
	return table.NullValue()
}

// rowKey builds a canonical identity for the key cells of row and reports
// whether any of them is null. Numeric keys compare by value, dates by
// instant, text by raw string.
func rowKey(cols []*table.Column, row int) (string, bool) {
	parts := make([]string, len(cols))
	hasNull := false
	for i, c := range cols {
		v := c.Values[row]
		switch {
		case v.Null:
			parts[i] = nullKey
			hasNull = true
		case c.Kind == table.Numeric:
			parts[i] = table.FormatNumber(v.Num)
		case c.Kind == table.Date:
			parts[i] = v.Time.Format(time.RFC3339Nano)
		default:
			parts[i] = v.Raw
		}
	}
	return strings.Join(parts, "\x1f"), hasNull
}

func lessKey(cols []*table.Column, a, b []table.Value) bool {
	for i, c := range cols {
		if cmp := compare(c.Kind, a[i], b[i]); cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

func compare(k table.Kind, a, b table.Value) int {
	switch {
	case a.Null && b.Null:
		return 0
	case a.Null:
		return 1
	case b.Null:
		return -1
	}
	switch k {
	case table.Numeric:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case table.Date:
		return a.Time.Compare(b.Time)
	}
	return strings.Compare(a.Raw, b.Raw)
}
