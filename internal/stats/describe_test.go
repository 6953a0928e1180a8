package stats

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabloom/internal/table"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func numCol(name string, vals ...any) *table.Column {
	c := &table.Column{Name: name, Kind: table.Numeric}
	for _, v := range vals {
		if v == nil {
			c.Values = append(c.Values, table.NullValue())
			continue
		}
		c.Values = append(c.Values, table.Number(v.(float64)))
	}
	return c
}

func textCol(name string, vals ...string) *table.Column {
	c := &table.Column{Name: name, Kind: table.Text}
	for _, v := range vals {
		c.Values = append(c.Values, table.String(v))
	}
	return c
}

func TestDescribeNumeric(t *testing.T) {
	s := Describe(numCol("Sales", 4.0, nil, 1.0, 3.0, 2.0))
	if s.Count != 4 || s.Missing != 1 {
		t.Fatalf("count/missing = %d/%d", s.Count, s.Missing)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", s.Mean, 2.5},
		{"std", s.Std, math.Sqrt(5.0 / 3.0)},
		{"min", s.Min, 1},
		{"25%", s.Q1, 1.75},
		{"50%", s.Median, 2.5},
		{"75%", s.Q3, 3.25},
		{"max", s.Max, 4},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDescribeSingleValueHasNoStd(t *testing.T) {
	s := Describe(numCol("x", 7.0))
	if !math.IsNaN(s.Std) {
		t.Fatalf("std of one value should be NaN, got %v", s.Std)
	}
	if s.Min != 7 || s.Max != 7 || s.Median != 7 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestDescribeText(t *testing.T) {
	s := Describe(textCol("Region", "West", "East", "", "East", "West", "North"))
	if s.Count != 5 || s.Missing != 1 || s.Unique != 3 {
		t.Fatalf("count/missing/unique = %d/%d/%d", s.Count, s.Missing, s.Unique)
	}
	// West and East tie; West appears first
	if s.Top != "West" || s.Freq != 2 {
		t.Fatalf("top = %q (%d)", s.Top, s.Freq)
	}
}

func TestFiveNumber(t *testing.T) {
	got := FiveNumber([]float64{9, 1, 5})
	want := []float64{1, 3, 5, 7, 9}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Fatalf("FiveNumber = %v, want %v", got, want)
		}
	}
	if FiveNumber(nil) != nil {
		t.Fatal("empty input should give nil")
	}
}

func TestMarkdown(t *testing.T) {
	tbl, err := table.New(
		textCol("Category", "Tech", "Office", "Tech"),
		numCol("Sales", 10.0, 20.0, nil),
	)
	if err != nil {
		t.Fatal(err)
	}
	md := Markdown("sales.csv", tbl, DescribeTable(tbl), 2)
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: sales.csv",
		"Rows: 3",
		"Columns: 2",
		"- Category: text (non-null 3, missing 0.0%); unique 2, top Tech (2)",
		"- Sales: numeric (non-null 2, missing 33.3%); mean 15",
		"| Category | Sales |",
		"| Office | 20 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "| Tech |  |") {
		t.Errorf("sample rows should be limited to 2\n%s", md)
	}
}
