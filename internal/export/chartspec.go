package export

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/table"
)

// ChartKind is a supported chart type.
type ChartKind string

const (
	Bar     ChartKind = "bar"
	Pie     ChartKind = "pie"
	Scatter ChartKind = "scatter"
	Box     ChartKind = "box"
)

// Kinds lists the supported chart kinds in display order.
func Kinds() []ChartKind { return []ChartKind{Bar, Pie, Scatter, Box} }

// ParseChartKind returns an ExportError for anything other than bar, pie,
// scatter or box.
func ParseChartKind(s string) (ChartKind, error) {
	k := ChartKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", &table.ExportError{Msg: fmt.Sprintf("unsupported chart kind %q", s)}
}

// ChartSpec declares a chart over the columns of a summary table. Y may be
// empty for bar and pie charts, which then plot row counts per X value.
type ChartSpec struct {
	Kind  ChartKind `yaml:"kind"`
	X     string    `yaml:"x"`
	Y     []string  `yaml:"y"`
	Color string    `yaml:"color"`
	Title string    `yaml:"title"`
}

// ChartOptions tunes the HTML document.
type ChartOptions struct {
	// AssetsHost is the URL prefix echarts.min.js is loaded from.
	AssetsHost string
	PageTitle  string
	Width      string
	Height     string
}

// DefaultAssetsHost is the public go-echarts asset mirror.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// check validates the kind and that every referenced field is a column of t.
func (s ChartSpec) check(t *table.Table) error {
	if _, err := ParseChartKind(string(s.Kind)); err != nil {
		return err
	}
	if s.X == "" {
		return &table.ExportError{Msg: fmt.Sprintf("%s chart needs an x field", s.Kind)}
	}
	var missing []string
	seen := map[string]bool{}
	for _, f := range append([]string{s.X, s.Color}, s.Y...) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		if _, ok := t.Column(f); !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &table.SchemaError{Missing: missing, Available: t.Names()}
	}
	for _, y := range s.Y {
		c, _ := t.Column(y)
		if c.Kind != table.Numeric && c.Present() > 0 {
			return &table.ExportError{Msg: fmt.Sprintf("y field %q is %s, not numeric", y, c.Kind)}
		}
	}
	if (s.Kind == Scatter || s.Kind == Box) && len(s.Y) == 0 {
		return &table.ExportError{Msg: fmt.Sprintf("%s chart needs a y field", s.Kind)}
	}
	return nil
}

func (s ChartSpec) title() string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("%s Analysis", s.X)
}
