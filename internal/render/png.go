package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	pngWidth  = 1200
	pngHeight = 600
)

// ErrNotEnoughPoints is returned when a time series spans a single instant
var ErrNotEnoughPoints = errors.New("time series needs at least two distinct timestamps")

// PNG draws the figure as a line chart with markers, one colored series per city
func (f TimeSeriesFigure) PNG() ([]byte, error) {
	if f.Empty() {
		return nil, ErrEmptyFigure
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	first, last := f.Series[0].Times[0], f.Series[0].Times[0]
	series := make([]chart.Series, 0, len(f.Series))

	for i, s := range f.Series {
		color := chart.GetDefaultColor(i)
		series = append(series, chart.TimeSeries{
			Name:    s.Name,
			XValues: s.Times,
			YValues: s.Values,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})

		for _, v := range s.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
		for _, ts := range s.Times {
			if ts.Before(first) {
				first = ts
			}
			if ts.After(last) {
				last = ts
			}
		}
	}

	if !last.After(first) {
		return nil, ErrNotEnoughPoints
	}

	yRange := paddedRange(minY, maxY)
	if f.Metric == RainProbability {
		yRange = &chart.ContinuousRange{Min: 0, Max: 100}
	}

	graph := chart.Chart{
		Title:  f.Title,
		Width:  pngWidth,
		Height: pngHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           f.XLabel,
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01 15:04"),
		},
		YAxis: chart.YAxis{
			Name:  f.YLabel,
			Range: yRange,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", f.Metric, err)
	}
	return buf.Bytes(), nil
}

// PNG draws the route as a polyline in longitude/latitude space with a labeled marker per city
func (f RouteFigure) PNG() ([]byte, error) {
	if f.Empty() {
		return nil, ErrEmptyFigure
	}

	lons := make([]float64, 0, len(f.Points))
	lats := make([]float64, 0, len(f.Points))
	annotations := make([]chart.Value2, 0, len(f.Points))
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	minLat, maxLat := math.Inf(1), math.Inf(-1)

	for _, p := range f.Points {
		lons = append(lons, p.Lon)
		lats = append(lats, p.Lat)
		annotations = append(annotations, chart.Value2{XValue: p.Lon, YValue: p.Lat, Label: p.Label()})

		minLon, maxLon = math.Min(minLon, p.Lon), math.Max(maxLon, p.Lon)
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
	}

	routeColor := chart.GetDefaultColor(0)
	graph := chart.Chart{
		Title:  f.Title,
		Width:  pngWidth,
		Height: pngHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Longitude",
			Range: paddedRange(minLon, maxLon),
		},
		YAxis: chart.YAxis{
			Name:  "Latitude",
			Range: paddedRange(minLat, maxLat),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Route",
				XValues: lons,
				YValues: lats,
				Style: chart.Style{
					StrokeColor: routeColor,
					StrokeWidth: 2,
					DotColor:    chart.ColorRed,
					DotWidth:    6,
				},
			},
			chart.AnnotationSeries{
				Annotations: annotations,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render route map: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange widens [lo, hi] by 10% (at least 1) on each side so flat data still has a range
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) * 0.1
	if pad < 1 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
