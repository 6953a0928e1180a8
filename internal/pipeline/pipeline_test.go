package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/loader"
	"github.com/KaramelBytes/tabloom/internal/table"
)

const superstore = "Order ID,Category,Region,Sales,Profit\n" +
	"CA-1,Furniture,West,261.96,41.91\n" +
	"CA-2,Office Supplies,East,14.62,6.87\n" +
	"CA-3,Furniture,South,957.58,-383.03\n" +
	"CA-4,Technology,West,22.37,2.52\n" +
	"CA-5,Office Supplies,West,48.86,14.17\n"

func open(t *testing.T, csv string) *Session {
	t.Helper()
	s, err := Open("superstore.csv", []byte(csv), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpen(t *testing.T) {
	s := open(t, superstore)
	if s.Table.Len() != 5 || s.Table.Width() != 5 {
		t.Fatalf("shape = %dx%d", s.Table.Width(), s.Table.Len())
	}
	if s.Format != loader.CSV || s.ID.String() == "" || s.LoadedAt.IsZero() {
		t.Fatalf("session metadata not set: %+v", s)
	}
	other := open(t, superstore)
	if other.ID == s.ID {
		t.Fatal("sessions should have distinct ids")
	}
}

func TestOpenSizeGuard(t *testing.T) {
	_, err := Open("big.csv", []byte(superstore), Options{MaxUploadBytes: 10})
	var re *table.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("want ResourceError, got %v", err)
	}
	if _, err := Open("big.csv", []byte(superstore), Options{MaxUploadBytes: -1}); err != nil {
		t.Fatalf("negative limit disables the guard: %v", err)
	}
}

func TestOpenRowLimit(t *testing.T) {
	_, err := Open("s.csv", []byte(superstore), Options{Loader: loader.Options{MaxRows: 2}})
	var re *table.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("want ResourceError, got %v", err)
	}
}

func TestOpenBadFile(t *testing.T) {
	_, err := Open("report.xls", []byte("whatever"), Options{})
	var fe *table.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("want FormatError, got %v", err)
	}
}

func TestRunSalesByCategory(t *testing.T) {
	s := open(t, superstore)
	res, err := s.Run(Request{
		GroupBy: []string{"Category"},
		Aggregations: aggregate.Spec{
			{Output: "Sales", Source: "Sales", Reducer: aggregate.Sum},
			{Output: "Profit", Source: "Profit", Reducer: aggregate.Sum},
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := [][]string{
		{"Furniture", "1219.54", "-341.12"},
		{"Office Supplies", "63.48", "21.04"},
		{"Technology", "22.37", "2.52"},
	}
	for i, w := range want {
		if got := res.Summary.Row(i); !reflect.DeepEqual(got, w) {
			t.Errorf("row %d = %v, want %v", i, got, w)
		}
	}
	wantChart := export.ChartSpec{Kind: export.Bar, X: "Category", Y: []string{"Sales"}, Title: "Category Analysis"}
	if !reflect.DeepEqual(res.Chart, wantChart) {
		t.Fatalf("chart = %+v", res.Chart)
	}
}

func TestRunMissingColumn(t *testing.T) {
	s, err := Open("s.csv", []byte("Category,Sales\nA,1\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Run(Request{GroupBy: []string{"Region"}})
	var se *table.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("want SchemaError, got %v", err)
	}
	if !reflect.DeepEqual(se.Missing, []string{"Region"}) || !reflect.DeepEqual(se.Available, []string{"Category", "Sales"}) {
		t.Fatalf("unexpected error detail: %+v", se)
	}
	if m := table.MapError(err); m.Code != "SCH" {
		t.Fatalf("code = %s", m.Code)
	}
}

func TestRunDefaultsToCountAll(t *testing.T) {
	s := open(t, superstore)
	res, err := s.Run(Request{GroupBy: []string{"Region"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(res.Summary.Names(), ","); got != "Region,Order ID,Category,Sales,Profit" {
		t.Fatalf("names = %s", got)
	}
	if got := res.Summary.Row(0); !reflect.DeepEqual(got, []string{"West", "3", "3", "3", "3"}) {
		t.Fatalf("row 0 = %v", got)
	}
	if _, err := s.Run(Request{GroupBy: []string{"Region"}, CountAll: true, Aggregations: aggregate.Spec{{Output: "x", Source: "Sales", Reducer: aggregate.Sum}}}); err == nil {
		t.Fatal("count-all with explicit aggregations should fail")
	}
}

func TestRunRecomputesFromTable(t *testing.T) {
	s := open(t, superstore)
	req := Request{GroupBy: []string{"Region"}, Aggregations: aggregate.Spec{{Output: "Sales", Source: "Sales", Reducer: aggregate.Sum}}}
	a, err := s.Run(req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(Request{GroupBy: []string{"Nope"}}); err == nil {
		t.Fatal("expected error")
	}
	b, err := s.Run(req)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Summary.Equal(b.Summary) {
		t.Fatal("a failed run must not affect later runs")
	}
}

func TestResultArtifacts(t *testing.T) {
	s := open(t, superstore)
	res, err := s.Run(Request{
		GroupBy:      []string{"Category"},
		Aggregations: aggregate.Spec{{Output: "Sales", Source: "Sales", Reducer: aggregate.Sum}},
		Chart:        export.ChartSpec{Kind: export.Pie},
	})
	if err != nil {
		t.Fatal(err)
	}
	xlsx, err := res.Spreadsheet()
	if err != nil {
		t.Fatalf("Spreadsheet: %v", err)
	}
	back, err := loader.Load(xlsx.Data, loader.XLSX, loader.Options{})
	if err != nil || !back.Equal(res.Summary) {
		t.Fatalf("spreadsheet round trip failed: %v", err)
	}
	html, err := res.ChartDocument(export.ChartOptions{})
	if err != nil || !strings.Contains(string(html.Data), "Category Analysis") {
		t.Fatalf("ChartDocument: %v", err)
	}
	svg, err := res.ChartImage()
	if err != nil || svg.Filename != "plot.svg" {
		t.Fatalf("ChartImage: %v", err)
	}
}

func TestBoxChartUsesRawRows(t *testing.T) {
	s := open(t, "Relevance,Score\nhigh,1\nlow,4\nhigh,5\nhigh,9\nlow,6\n")
	cases := []struct {
		name string
		y    []string
	}{
		{"default y", nil},
		{"output name", []string{"Total"}},
		{"source name", []string{"Score"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := s.Run(Request{
				GroupBy:      []string{"Relevance"},
				Aggregations: aggregate.Spec{{Output: "Total", Source: "Score", Reducer: aggregate.Sum}},
				Chart:        export.ChartSpec{Kind: export.Box, Y: tc.y},
			})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(res.Chart.Y, []string{"Score"}) {
				t.Fatalf("chart y = %v", res.Chart.Y)
			}
			html, err := res.ChartDocument(export.ChartOptions{})
			if err != nil {
				t.Fatalf("ChartDocument: %v", err)
			}
			body := string(html.Data)
			for _, want := range []string{`"name":"high","value":[1,3,5,7,9]`, `"name":"low","value":[4,4.5,5,5.5,6]`} {
				if !strings.Contains(body, want) {
					t.Errorf("box data missing %s", want)
				}
			}
			if strings.Contains(body, "[15,15,15,15,15]") {
				t.Error("box plot drawn from the summary")
			}
		})
	}
}

func TestBoxChartCountOnly(t *testing.T) {
	s := open(t, superstore)
	res, err := s.Run(Request{
		GroupBy:      []string{"Category"},
		Aggregations: aggregate.Spec{{Output: "Orders", Reducer: aggregate.Count}},
		Chart:        export.ChartSpec{Kind: export.Box},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = res.ChartDocument(export.ChartOptions{})
	var ee *table.ExportError
	if !errors.As(err, &ee) {
		t.Fatalf("box without a numeric source should fail, got %v", err)
	}
}

func TestReport(t *testing.T) {
	s := open(t, superstore)
	md := s.Report(3)
	for _, want := range []string{"File: superstore.csv", "Rows: 5", "- Sales: numeric", "- Category: text"} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q\n%s", want, md)
		}
	}
}

func TestRecipe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.yaml")
	body := `group_by: [Category]
aggregations: ["Sales:sum", "Margin=Profit:mean"]
order: sorted
chart:
  kind: scatter
  y: [Margin]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRecipe(path)
	if err != nil {
		t.Fatalf("LoadRecipe: %v", err)
	}
	req, err := r.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if req.Order != aggregate.Sorted || len(req.Aggregations) != 2 || req.Aggregations[1].Output != "Margin" {
		t.Fatalf("request = %+v", req)
	}
	res, err := open(t, superstore).Run(req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Chart.Kind != export.Scatter || res.Chart.X != "Category" || res.Chart.Y[0] != "Margin" {
		t.Fatalf("chart = %+v", res.Chart)
	}
}

func TestRecipeErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "group: [A]\n",
		"bad reducer":    "group_by: [A]\naggregations: [\"B:median\"]\n",
		"bad order":      "group_by: [A]\norder: random\n",
		"bad chart kind": "group_by: [A]\nchart: {kind: radar}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := ParseRecipe([]byte(body))
			if err == nil {
				_, err = r.Request()
			}
			if err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
	if _, err := LoadRecipe(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
