package export

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	imageWidth  = 900
	imageHeight = 500
)

// ChartImage renders spec against summary as a static SVG. Box plots are
// only available as HTML. An empty summary gives a placeholder image.
func ChartImage(spec ChartSpec, summary *table.Table) (*Artifact, error) {
	if err := spec.check(summary); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	var err error
	switch spec.Kind {
	case Bar:
		err = barImage(&buf, spec, summary)
	case Pie:
		err = pieImage(&buf, spec, summary)
	case Scatter:
		err = scatterImage(&buf, spec, summary)
	default:
		return nil, &table.ExportError{Msg: fmt.Sprintf("%s chart has no static image rendering; export it as HTML", spec.Kind)}
	}
	if err != nil {
		return nil, &table.ExportError{Msg: "render image", Err: err}
	}
	return &Artifact{Data: buf.Bytes(), MIMEType: MIMESVG, Filename: ImageFilename}, nil
}

func barImage(w io.Writer, spec ChartSpec, t *table.Table) error {
	labels, ss := categorySeries(spec, t)
	if len(labels) == 0 {
		return placeholder(w, spec.title())
	}
	// several series are drawn side by side within each category
	var bars []chart.Value
	for i, l := range labels {
		for j, s := range ss {
			if len(ss) > 1 && !s.present[i] {
				continue
			}
			v := chart.Value{Label: l, Value: s.values[i]}
			if len(ss) > 1 {
				v.Label = l + " / " + s.name
				v.Style = chart.Style{FillColor: chart.GetDefaultColor(j), StrokeColor: chart.GetDefaultColor(j)}
			}
			bars = append(bars, v)
		}
	}
	if len(bars) == 0 {
		return placeholder(w, spec.title())
	}
	c := chart.BarChart{
		Title:  spec.title(),
		Width:  imageWidth,
		Height: imageHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth:     barWidth(len(bars)),
		YAxis:        chart.YAxis{Range: barRange(bars)},
		UseBaseValue: true,
		Bars:         bars,
	}
	return c.Render(chart.SVG, w)
}

// barRange spans zero and every bar; an all-zero chart gets [0, 1].
func barRange(bars []chart.Value) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo, hi = math.Min(lo, b.Value), math.Max(hi, b.Value)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func barWidth(n int) int {
	w := (imageWidth - 100) / (2 * n)
	if w > 60 {
		return 60
	}
	if w < 4 {
		return 4
	}
	return w
}

func pieImage(w io.Writer, spec ChartSpec, t *table.Table) error {
	labels, ss := categorySeries(pieSpec(spec), t)
	var values []chart.Value
	for i, l := range labels {
		if ss[0].present[i] && ss[0].values[i] > 0 {
			values = append(values, chart.Value{Label: l, Value: ss[0].values[i]})
		}
	}
	if len(values) == 0 {
		return placeholder(w, spec.title())
	}
	c := chart.PieChart{
		Title:  spec.title(),
		Width:  imageWidth,
		Height: imageHeight,
		Values: values,
	}
	return c.Render(chart.SVG, w)
}

func scatterImage(w io.Writer, spec ChartSpec, t *table.Table) error {
	xLabels, ss := scatterSeries(spec, t)
	var series []chart.Series
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for i, s := range ss {
		if len(s.xs) == 0 {
			continue
		}
		for k := range s.xs {
			xmin, xmax = math.Min(xmin, s.xs[k]), math.Max(xmax, s.xs[k])
			ymin, ymax = math.Min(ymin, s.ys[k]), math.Max(ymax, s.ys[k])
		}
		series = append(series, chart.ContinuousSeries{
			Name: s.name,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    chart.GetDefaultColor(i),
			},
			XValues: s.xs,
			YValues: s.ys,
		})
	}
	if len(series) == 0 {
		return placeholder(w, spec.title())
	}
	xAxis := chart.XAxis{
		Name:  spec.X,
		Range: padded(xmin, xmax),
	}
	if xLabels != nil {
		ticks := make([]chart.Tick, len(xLabels))
		for i, l := range xLabels {
			ticks[i] = chart.Tick{Value: float64(i), Label: l}
		}
		xAxis.Ticks = ticks
	}
	c := chart.Chart{
		Title:  spec.title(),
		Width:  imageWidth,
		Height: imageHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20},
		},
		XAxis:  xAxis,
		YAxis:  chart.YAxis{Name: spec.Y[0], Range: padded(ymin, ymax)},
		Series: series,
	}
	if len(series) > 1 {
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}
	return c.Render(chart.SVG, w)
}

// padded widens [lo, hi] by 5% on each side; a zero-width range gets one
// unit of padding.
func padded(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// placeholder writes a blank SVG carrying the title and a "no data" note.
func placeholder(w io.Writer, title string) error {
	r, err := chart.SVG(imageWidth, imageHeight)
	if err != nil {
		return err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}
	r.SetFont(font)
	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(18)
	r.Text(title, 40, 60)
	r.SetFontSize(14)
	r.Text("no data", 40, 100)
	return r.Save(w)
}
