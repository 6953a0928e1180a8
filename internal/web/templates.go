package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/logging"
	"github.com/KaramelBytes/tabloom/internal/pipeline"
	"github.com/KaramelBytes/tabloom/internal/stats"
	"github.com/KaramelBytes/tabloom/internal/table"
)

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

const previewRows = 10

type page struct {
	Title     string
	Session   *sessionInfo
	Error     *table.UserMessage
	Columns   []table.Field
	Kinds     []string
	GroupBy   string
	ChartKind string
	Agg       string
	Preview   *tableData
	Summary   *tableData
	Describe  []kv
	Chart     export.ChartSpec
	PlotURL   string
	Downloads []link
}

type sessionInfo struct {
	ID       string
	Filename string
	Format   string
	Rows     int
	Cols     int
}

type tableData struct {
	Headers []string
	Rows    [][]string
	Total   int
}

type kv struct{ Label, Value string }

type link struct{ Label, URL string }

func (s *Server) newPage(sess *pipeline.Session, q url.Values) *page {
	p := &page{
		Title:     "tabloom",
		GroupBy:   q.Get("group_by"),
		ChartKind: q.Get("chart"),
		Agg:       strings.Join(q["agg"], ", "),
	}
	if p.ChartKind == "" {
		p.ChartKind = string(s.cfg.DefaultChart)
	}
	for _, k := range export.Kinds() {
		p.Kinds = append(p.Kinds, string(k))
	}
	if sess != nil {
		p.Session = &sessionInfo{
			ID:       sess.ID.String(),
			Filename: sess.Filename,
			Format:   string(sess.Format),
			Rows:     sess.Table.Len(),
			Cols:     sess.Table.Width(),
		}
		p.Columns = sess.Table.Schema().Fields
		p.Preview = tableView(sess.Table, previewRows)
	}
	return p
}

// tableView copies up to limit rows of t for display; limit 0 means all.
func tableView(t *table.Table, limit int) *tableData {
	n := t.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	td := &tableData{Headers: t.Names(), Total: t.Len()}
	for i := 0; i < n; i++ {
		td.Rows = append(td.Rows, t.Row(i))
	}
	return td
}

func describeView(s stats.Summary) []kv {
	out := []kv{
		{"column", s.Name},
		{"kind", string(s.Kind)},
		{"count", fmt.Sprint(s.Count)},
		{"missing", fmt.Sprint(s.Missing)},
	}
	if s.Kind == table.Numeric {
		for _, f := range []struct {
			label string
			v     float64
		}{
			{"mean", s.Mean}, {"std", s.Std}, {"min", s.Min}, {"25%", s.Q1},
			{"50%", s.Median}, {"75%", s.Q3}, {"max", s.Max},
		} {
			out = append(out, kv{f.label, formatStat(f.v)})
		}
		return out
	}
	return append(out,
		kv{"unique", fmt.Sprint(s.Unique)},
		kv{"top", s.Top},
		kv{"freq", fmt.Sprint(s.Freq)},
	)
}

func formatStat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return fmt.Sprintf("%.6g", f)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, p *page) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, p); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	writeBody(w, r, buf.Bytes())
}
