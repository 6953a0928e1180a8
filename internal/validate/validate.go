// Package validate checks user column selections against a table schema.
package validate

import (
	"fmt"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/table"
)

// Validate returns a *table.SchemaError when groupKey or any aggregation
// source is not a column of schema. The error lists the missing names in
// reference order and every available column in schema order.
func Validate(schema table.Schema, groupKey []string, spec aggregate.Spec) error {
	available := schema.Names()
	if len(groupKey) == 0 {
		return &table.SchemaError{Available: available, Msg: "no grouping column selected"}
	}
	var missing []string
	seen := map[string]bool{}
	check := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if !schema.Has(name) {
			missing = append(missing, name)
		}
	}
	for _, k := range groupKey {
		check(k)
	}
	for _, a := range spec {
		if a.Source == "" {
			continue
		}
		check(a.Source)
	}
	if len(missing) > 0 {
		return &table.SchemaError{Missing: missing, Available: available}
	}

	outputs := map[string]bool{}
	for _, k := range groupKey {
		outputs[k] = true
	}
	for _, a := range spec {
		if a.Output == "" {
			return &table.SchemaError{Available: available, Msg: fmt.Sprintf("aggregation of %q has no output name", a.Source)}
		}
		if outputs[a.Output] {
			return &table.SchemaError{Available: available, Msg: fmt.Sprintf("output column %q is used more than once", a.Output)}
		}
		outputs[a.Output] = true
	}
	return nil
}
