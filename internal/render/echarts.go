package render

import (
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "1100px"
	chartHeight = "420px"
)

// ECharts builds an interactive line chart of the figure.
// Cities share one category axis; a slot missing for a city is left as a gap.
func (f TimeSeriesFigure) ECharts() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: f.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "30"}),
		charts.WithXAxisOpts(opts.XAxis{Name: f.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: f.YLabel}),
	)

	stamps := make(map[int64]bool)
	for _, s := range f.Series {
		for _, ts := range s.Times {
			stamps[ts.Unix()] = true
		}
	}
	axis := make([]int64, 0, len(stamps))
	for ts := range stamps {
		axis = append(axis, ts)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i] < axis[j] })

	position := make(map[int64]int, len(axis))
	labels := make([]string, len(axis))
	for i, ts := range axis {
		position[ts] = i
	}
	for _, s := range f.Series {
		for _, ts := range s.Times {
			labels[position[ts.Unix()]] = ts.Format("02.01 15:04")
		}
	}
	line.SetXAxis(labels)

	for _, s := range f.Series {
		data := make([]opts.LineData, len(axis))
		for i := range data {
			data[i] = opts.LineData{Value: "-"}
		}
		for j, ts := range s.Times {
			data[position[ts.Unix()]] = opts.LineData{Value: s.Values[j]}
		}
		line.AddSeries(s.Name, data)
	}
	return line
}

// ECharts builds an interactive route chart: a polyline over longitude/latitude value
// axes with every city labeled by its current temperature.
func (f RouteFigure) ECharts() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: f.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "item", Formatter: "{b}"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Type: "value"}),
	)

	data := make([]opts.LineData, 0, len(f.Points))
	for _, p := range f.Points {
		data = append(data, opts.LineData{Name: p.Label(), Value: []float64{p.Lon, p.Lat}})
	}
	line.AddSeries("Route", data,
		charts.WithLabelOpts(opts.Label{Show: true, Position: "top", Formatter: "{b}"}),
	)
	return line
}

// RenderPage writes a standalone HTML page with the four dashboard charts
func (s FigureSet) RenderPage(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Route weather"
	page.AddCharts(
		s.Route.ECharts(),
		s.Temperature.ECharts(),
		s.WindSpeed.ECharts(),
		s.RainProbability.ECharts(),
	)
	return page.Render(w)
}
