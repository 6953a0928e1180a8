// Package table holds the in-memory tabular model shared by the loader,
// validator, aggregator and exporters.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred type of a column.
type Kind string

const (
	Numeric Kind = "numeric"
	Text    Kind = "text"
	Date    Kind = "date"
)

// Value is a single cell. Raw keeps the source text; Num and Time are set
// for numeric and date columns respectively.
type Value struct {
	Raw  string
	Num  float64
	Time time.Time
	Null bool
}

// NullValue returns a missing cell.
func NullValue() Value { return Value{Null: true} }

// Number builds a numeric cell whose text is the shortest exact rendering of f.
func Number(f float64) Value {
	return Value{Raw: FormatNumber(f), Num: f}
}

// String builds a text cell. Empty strings are treated as missing.
func String(s string) Value {
	if strings.TrimSpace(s) == "" {
		return NullValue()
	}
	return Value{Raw: s}
}

// FormatNumber renders f without exponent and without trailing zeros.
func FormatNumber(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// String returns the display text of the cell ("" when missing).
func (v Value) String() string {
	if v.Null {
		return ""
	}
	return v.Raw
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// Present counts non-null cells.
func (c *Column) Present() int {
	n := 0
	for _, v := range c.Values {
		if !v.Null {
			n++
		}
	}
	return n
}

// Table is an ordered set of equal-length columns with unique names.
type Table struct {
	Columns []*Column
	index   map[string]int
}

// New builds a table and checks that columns are non-nil, uniquely named and
// of equal length.
func New(cols ...*Column) (*Table, error) {
	t := &Table{Columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i > 0 && c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), cols[0].Len())
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Width returns the column count.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// Names returns column names in table order.
func (t *Table) Names() []string {
	out := make([]string, 0, t.Width())
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// Row returns the display text of row i across all columns.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Values[i].String()
	}
	return out
}

// Schema snapshots the column names and kinds.
func (t *Table) Schema() Schema {
	fields := make([]Field, 0, t.Width())
	for _, c := range t.Columns {
		fields = append(fields, Field{Name: c.Name, Kind: c.Kind})
	}
	return Schema{Fields: fields}
}

// Equal reports whether both tables have the same column order and names,
// the same row count, and equal cells. Numeric cells compare by value, all
// others by text.
func (t *Table) Equal(o *Table) bool {
	if t.Width() != o.Width() || t.Len() != o.Len() {
		return false
	}
	for j, c := range t.Columns {
		oc := o.Columns[j]
		if c.Name != oc.Name {
			return false
		}
		for i, v := range c.Values {
			if !cellEqual(c.Kind, v, oc.Kind, oc.Values[i]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(ka Kind, a Value, kb Kind, b Value) bool {
	if a.Null || b.Null {
		return a.Null == b.Null
	}
	if ka == Numeric && kb == Numeric {
		return a.Num == b.Num
	}
	return a.Raw == b.Raw
}

// Field is one entry of a Schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is a read-only view of a table's columns.
type Schema struct {
	Fields []Field
}

// Has reports whether the schema contains name.
func (s Schema) Has(name string) bool {
	_, ok := s.Kind(name)
	return ok
}

// Kind returns the kind of the named column.
func (s Schema) Kind(name string) (Kind, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Kind, true
		}
	}
	return "", false
}

// Names lists column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}
