package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"gopkg.in/yaml.v3"
)

// Recipe is a saved Request. Aggregations use the "[output=]source[:reducer]"
// syntax of the command line.
//
//	group_by: [Category]
//	aggregations: ["Sales:sum", "Profit:sum"]
//	chart: {kind: bar, title: Category Analysis}
type Recipe struct {
	GroupBy      []string         `yaml:"group_by"`
	Aggregations []string         `yaml:"aggregations"`
	CountAll     bool             `yaml:"count_all"`
	Order        string           `yaml:"order"`
	DropNullKeys bool             `yaml:"drop_null_keys"`
	Chart        export.ChartSpec `yaml:"chart"`
}

// LoadRecipe reads a recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	r, err := ParseRecipe(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseRecipe decodes YAML and rejects unknown keys.
func ParseRecipe(data []byte) (*Recipe, error) {
	var r Recipe
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parse recipe: %w", err)
	}
	return &r, nil
}

// Request converts the recipe into a pipeline Request.
func (r *Recipe) Request() (Request, error) {
	spec, err := aggregate.ParseSpec(r.Aggregations)
	if err != nil {
		return Request{}, err
	}
	order, err := aggregate.ParseOrder(r.Order)
	if err != nil {
		return Request{}, err
	}
	chart := r.Chart
	if chart.Kind != "" {
		k, err := export.ParseChartKind(string(chart.Kind))
		if err != nil {
			return Request{}, err
		}
		chart.Kind = k
	}
	return Request{
		GroupBy:      r.GroupBy,
		Aggregations: spec,
		CountAll:     r.CountAll,
		Order:        order,
		DropNullKeys: r.DropNullKeys,
		Chart:        chart,
	}, nil
}
