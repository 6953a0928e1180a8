// Package pipeline runs Loader, Validator, Aggregator and Exporter for one
// uploaded file. A Session keeps only the immutable loaded table; every Run
// recomputes the summary from it.
package pipeline

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/loader"
	"github.com/KaramelBytes/tabloom/internal/stats"
	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/KaramelBytes/tabloom/internal/validate"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes bounds an upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 50 << 20

// Options controls how a session is opened.
type Options struct {
	// MaxUploadBytes rejects larger uploads with a ResourceError; 0 uses
	// DefaultMaxUploadBytes and a negative value disables the check.
	MaxUploadBytes int64
	// Format overrides detection from the filename and content.
	Format loader.Format
	Loader loader.Options
}

// Session is one uploaded file and its parsed table.
type Session struct {
	ID       uuid.UUID
	Filename string
	Format   loader.Format
	Size     int64
	Table    *table.Table
	LoadedAt time.Time
}

// Open checks the upload size, detects the format and loads data.
func Open(filename string, data []byte, opt Options) (*Session, error) {
	limit := opt.MaxUploadBytes
	if limit == 0 {
		limit = DefaultMaxUploadBytes
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, &table.ResourceError{What: "upload size", Limit: limit, Got: int64(len(data))}
	}
	format := opt.Format
	if format == "" {
		f, err := loader.DetectFormat(filename, data)
		if err != nil {
			return nil, err
		}
		format = f
	}
	t, err := loader.Load(data, format, opt.Loader)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:       uuid.New(),
		Filename: filename,
		Format:   format,
		Size:     int64(len(data)),
		Table:    t,
		LoadedAt: time.Now(),
	}, nil
}

// Request is one user interaction: a grouping, its aggregations and the
// chart to draw. With no aggregations every non-key column is counted.
type Request struct {
	GroupBy      []string
	Aggregations aggregate.Spec
	CountAll     bool
	Order        aggregate.Order
	DropNullKeys bool
	Chart        export.ChartSpec
}

// Result is the outcome of Run. Artifacts are produced on demand.
type Result struct {
	Summary *table.Table
	Chart   export.ChartSpec
	// Source is the session table; box charts plot its rows.
	Source *table.Table
}

// Run validates req against the session table and aggregates it.
func (s *Session) Run(req Request) (*Result, error) {
	spec := req.Aggregations
	if req.CountAll && len(spec) > 0 {
		return nil, fmt.Errorf("count-all cannot be combined with explicit aggregations")
	}
	if req.CountAll || len(spec) == 0 {
		spec = aggregate.CountAll(s.Table, req.GroupBy)
	}
	if err := validate.Validate(s.Table.Schema(), req.GroupBy, spec); err != nil {
		return nil, err
	}
	summary, err := aggregate.Aggregate(s.Table, req.GroupBy, spec, aggregate.Options{
		Order:        req.Order,
		DropNullKeys: req.DropNullKeys,
	})
	if err != nil {
		return nil, err
	}
	chart := DefaultChart(req, summary)
	if chart.Kind == export.Box {
		chart.Y = boxColumns(s.Table, spec, req.Chart.Y)
	}
	return &Result{Summary: summary, Chart: chart, Source: s.Table}, nil
}

// boxColumns maps the requested Y fields to raw columns: an aggregation
// output names its source column. Without a request it picks the source of
// the first numeric aggregation.
func boxColumns(t *table.Table, spec aggregate.Spec, y []string) []string {
	if len(y) > 0 {
		out := make([]string, len(y))
		for i, name := range y {
			out[i] = name
			for _, a := range spec {
				if a.Output == name && a.Source != "" {
					out[i] = a.Source
					break
				}
			}
		}
		return out
	}
	for _, a := range spec {
		if a.Source == "" {
			continue
		}
		if c, ok := t.Column(a.Source); ok && c.Kind == table.Numeric {
			return []string{a.Source}
		}
	}
	return nil
}

// Describe summarizes every column of the session table.
func (s *Session) Describe() []stats.Summary { return stats.DescribeTable(s.Table) }

// Report renders the describe statistics with a few leading rows.
func (s *Session) Report(sampleRows int) string {
	return stats.Markdown(s.Filename, s.Table, s.Describe(), sampleRows)
}

// DefaultChart completes req.Chart from the summary: X defaults to the
// first group column, Y to the first aggregation output, the kind to bar and
// the title to "<x> Analysis". Fields the user set are kept.
func DefaultChart(req Request, summary *table.Table) export.ChartSpec {
	c := req.Chart
	if c.Kind == "" {
		c.Kind = export.Bar
	}
	if c.X == "" && len(req.GroupBy) > 0 {
		c.X = req.GroupBy[0]
	}
	if len(c.Y) == 0 && summary.Width() > len(req.GroupBy) {
		c.Y = []string{summary.Columns[len(req.GroupBy)].Name}
	}
	if c.Title == "" && c.X != "" {
		c.Title = fmt.Sprintf("%s Analysis", c.X)
	}
	return c
}

// Spreadsheet exports the summary as XLSX.
func (r *Result) Spreadsheet() (*export.Artifact, error) { return export.Spreadsheet(r.Summary) }

// ChartDocument renders the chart as a standalone HTML page. Box charts
// show the distribution of the raw rows in each group, so they are drawn
// from the source table; the other kinds are drawn from the summary.
func (r *Result) ChartDocument(opt export.ChartOptions) (*export.Artifact, error) {
	data := r.Summary
	if r.Chart.Kind == export.Box && r.Source != nil {
		data = r.Source
	}
	return export.ChartDocument(r.Chart, data, opt)
}

// ChartImage renders the chart as SVG.
func (r *Result) ChartImage() (*export.Artifact, error) { return export.ChartImage(r.Chart, r.Summary) }
