package export

import (
	"bytes"
	"io"

	"github.com/KaramelBytes/tabloom/internal/stats"
	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// chartID is fixed so that rendering the same chart twice gives the same page.
const chartID = "plot"

type renderer interface {
	Render(w io.Writer) error
}

// ChartDocument renders spec against summary as a standalone HTML page. The
// echarts library is referenced from opt.AssetsHost, not inlined. An empty
// summary renders a page with empty series.
func ChartDocument(spec ChartSpec, summary *table.Table, opt ChartOptions) (*Artifact, error) {
	if err := spec.check(summary); err != nil {
		return nil, err
	}
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts(spec, opt)),
		charts.WithTitleOpts(opts.Title{Title: spec.title()}),
	}

	var r renderer
	switch spec.Kind {
	case Bar:
		r = barChart(spec, summary, global)
	case Pie:
		r = pieChart(spec, summary, global)
	case Scatter:
		r = scatterChart(spec, summary, global)
	case Box:
		r = boxChart(spec, summary, global)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		return nil, &table.ExportError{Msg: "render chart", Err: err}
	}
	return &Artifact{Data: buf.Bytes(), MIMEType: MIMEHTML, Filename: ChartFilename}, nil
}

func initOpts(spec ChartSpec, opt ChartOptions) opts.Initialization {
	host := opt.AssetsHost
	if host == "" {
		host = DefaultAssetsHost
	}
	title := opt.PageTitle
	if title == "" {
		title = spec.title()
	}
	width, height := opt.Width, opt.Height
	if width == "" {
		width = "900px"
	}
	if height == "" {
		height = "500px"
	}
	return opts.Initialization{
		PageTitle:  title,
		Width:      width,
		Height:     height,
		AssetsHost: host,
		ChartID:    chartID,
	}
}

func barChart(spec ChartSpec, t *table.Table, global []charts.GlobalOpts) *charts.Bar {
	labels, ss := categorySeries(spec, t)
	bar := charts.NewBar()
	global = append(global,
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName(spec)}),
	)
	bar.SetGlobalOptions(global...)
	bar.SetXAxis(labels)
	for _, s := range ss {
		data := make([]opts.BarData, len(labels))
		for i := range labels {
			if s.present[i] {
				data[i] = opts.BarData{Value: s.values[i]}
			} else {
				data[i] = opts.BarData{Value: "-"}
			}
		}
		bar.AddSeries(s.name, data)
	}
	return bar
}

func pieChart(spec ChartSpec, t *table.Table, global []charts.GlobalOpts) *charts.Pie {
	labels, ss := categorySeries(pieSpec(spec), t)
	pie := charts.NewPie()
	pie.SetGlobalOptions(global...)
	var data []opts.PieData
	for i, l := range labels {
		if ss[0].present[i] {
			data = append(data, opts.PieData{Name: l, Value: ss[0].values[i]})
		}
	}
	if data == nil {
		data = []opts.PieData{}
	}
	pie.AddSeries(ss[0].name, data)
	return pie
}

// pieSpec drops color and extra Y fields: a pie has one series.
func pieSpec(spec ChartSpec) ChartSpec {
	spec.Color = ""
	if len(spec.Y) > 1 {
		spec.Y = spec.Y[:1]
	}
	return spec
}

func scatterChart(spec ChartSpec, t *table.Table, global []charts.GlobalOpts) *charts.Scatter {
	xLabels, ss := scatterSeries(spec, t)
	sc := charts.NewScatter()
	xAxis := opts.XAxis{Name: spec.X, Type: "value"}
	if xLabels != nil {
		xAxis.Type = "category"
	}
	global = append(global,
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y[0]}),
	)
	sc.SetGlobalOptions(global...)
	if xLabels != nil {
		sc.SetXAxis(xLabels)
	}
	for _, s := range ss {
		data := make([]opts.ScatterData, len(s.xs))
		for i := range s.xs {
			if xLabels != nil {
				data[i] = opts.ScatterData{Value: []interface{}{xLabels[int(s.xs[i])], s.ys[i]}}
			} else {
				data[i] = opts.ScatterData{Value: []float64{s.xs[i], s.ys[i]}}
			}
		}
		sc.AddSeries(s.name, data)
	}
	return sc
}

func boxChart(spec ChartSpec, t *table.Table, global []charts.GlobalOpts) *charts.BoxPlot {
	labels, groups := boxGroups(spec, t)
	box := charts.NewBoxPlot()
	global = append(global,
		charts.WithXAxisOpts(opts.XAxis{Name: spec.X}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.Y[0]}),
	)
	box.SetGlobalOptions(global...)
	box.SetXAxis(labels)
	data := make([]opts.BoxPlotData, len(groups))
	for i, g := range groups {
		if five := stats.FiveNumber(g); five != nil {
			data[i] = opts.BoxPlotData{Name: labels[i], Value: five}
		} else {
			data[i] = opts.BoxPlotData{Name: labels[i], Value: []float64{}}
		}
	}
	box.AddSeries(spec.Y[0], data)
	return box
}

func yName(spec ChartSpec) string {
	if len(spec.Y) == 0 {
		return "count"
	}
	if len(spec.Y) == 1 {
		return spec.Y[0]
	}
	return ""
}
