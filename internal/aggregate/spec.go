// Package aggregate groups table rows by key columns and reduces source
// columns per group into a summary table.
package aggregate

import (
	"fmt"
	"strings"
)

// Reducer names a per-group reduction.
type Reducer string

const (
	Sum   Reducer = "sum"
	Count Reducer = "count"
	Mean  Reducer = "mean"
	Min   Reducer = "min"
	Max   Reducer = "max"
)

// Numeric reports whether the reducer needs a numeric source column.
func (r Reducer) Numeric() bool { return r != Count }

// ParseReducer validates a reducer name. "avg" is accepted for mean.
func ParseReducer(s string) (Reducer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "":
		return Sum, nil
	case "count":
		return Count, nil
	case "mean", "avg":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return "", fmt.Errorf("unknown reducer %q (use sum, count, mean, min or max)", s)
}

// Aggregation maps one output column to a reducer over a source column.
type Aggregation struct {
	Output  string  `yaml:"output"`
	Source  string  `yaml:"source"`
	Reducer Reducer `yaml:"reducer"`
}

// Spec is an ordered list of aggregations; output columns follow this order.
type Spec []Aggregation

// ParseAggregation parses "[output=]source[:reducer]". The reducer defaults
// to sum and the output name to the source name.
func ParseAggregation(s string) (Aggregation, error) {
	expr := strings.TrimSpace(s)
	if expr == "" {
		return Aggregation{}, fmt.Errorf("empty aggregation")
	}
	var a Aggregation
	if i := strings.Index(expr, "="); i >= 0 {
		a.Output = strings.TrimSpace(expr[:i])
		expr = strings.TrimSpace(expr[i+1:])
	}
	reducer := ""
	if i := strings.LastIndex(expr, ":"); i >= 0 {
		reducer = expr[i+1:]
		expr = strings.TrimSpace(expr[:i])
	}
	r, err := ParseReducer(reducer)
	if err != nil {
		return Aggregation{}, err
	}
	if expr == "" {
		return Aggregation{}, fmt.Errorf("aggregation %q has no source column", s)
	}
	a.Source = expr
	a.Reducer = r
	if a.Output == "" {
		a.Output = a.Source
	}
	return a, nil
}

// ParseSpec parses each expression with ParseAggregation.
func ParseSpec(exprs []string) (Spec, error) {
	spec := make(Spec, 0, len(exprs))
	for _, e := range exprs {
		a, err := ParseAggregation(e)
		if err != nil {
			return nil, err
		}
		spec = append(spec, a)
	}
	return spec, nil
}

// Order is the group ordering policy of the summary table.
type Order string

const (
	// FirstSeen emits groups in the order their key first appears.
	FirstSeen Order = "first-seen"
	// Sorted emits groups in ascending natural key order, nulls last.
	Sorted Order = "sorted"
)

// ParseOrder validates an ordering policy name.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-seen", "first_seen", "first":
		return FirstSeen, nil
	case "sorted", "sort", "natural":
		return Sorted, nil
	}
	return "", fmt.Errorf("unknown group order %q (use first-seen or sorted)", s)
}

// Options tunes grouping.
type Options struct {
	Order        Order
	DropNullKeys bool
}
