// Package render turns route forecasts into charts for the bot and the dashboard
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// ErrEmptyFigure is returned when a figure has nothing to draw
var ErrEmptyFigure = errors.New("figure has no data")

// Metric selects which forecast value a time-series figure plots
type Metric int

const (
	Temperature Metric = iota
	WindSpeed
	RainProbability
)

// Metrics lists every plottable metric in dashboard order
var Metrics = []Metric{Temperature, WindSpeed, RainProbability}

func (m Metric) String() string {
	switch m {
	case Temperature:
		return "temperature"
	case WindSpeed:
		return "wind_speed"
	case RainProbability:
		return "rain_probability"
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// Label is the axis label of the metric, including its unit
func (m Metric) Label() string {
	switch m {
	case Temperature:
		return "Temperature (°C)"
	case WindSpeed:
		return "Wind speed (m/s)"
	case RainProbability:
		return "Precipitation probability (%)"
	}
	return m.String()
}

// Value extracts the metric from a record
func (m Metric) Value(rec entities.ForecastRecord) float64 {
	switch m {
	case WindSpeed:
		return rec.WindSpeed
	case RainProbability:
		return rec.RainProbability
	default:
		return rec.Temperature
	}
}

// Series is one city's line on a time-series figure
type Series struct {
	Name   string      `json:"name"`
	Times  []time.Time `json:"times"`
	Values []float64   `json:"values"`
}

// TimeSeriesFigure plots one metric over time, one series per city
type TimeSeriesFigure struct {
	Metric Metric   `json:"-"`
	Title  string   `json:"title"`
	XLabel string   `json:"x_label"`
	YLabel string   `json:"y_label"`
	Series []Series `json:"series"`
}

// TimeSeries builds the figure of metric for every city of the route, in route order
func TimeSeries(forecasts []entities.CityForecast, metric Metric, days int) TimeSeriesFigure {
	fig := TimeSeriesFigure{
		Metric: metric,
		Title:  fmt.Sprintf("%s - %d-day forecast", metric.Label(), days),
		XLabel: "Date and time",
		YLabel: metric.Label(),
	}

	for _, f := range forecasts {
		if len(f.Records) == 0 {
			continue
		}
		s := Series{
			Name:   f.City,
			Times:  make([]time.Time, 0, len(f.Records)),
			Values: make([]float64, 0, len(f.Records)),
		}
		for _, rec := range f.Records {
			s.Times = append(s.Times, rec.Timestamp)
			s.Values = append(s.Values, metric.Value(rec))
		}
		fig.Series = append(fig.Series, s)
	}
	return fig
}

// Empty reports whether the figure has no points
func (f TimeSeriesFigure) Empty() bool {
	return len(f.Series) == 0
}

// RoutePoint is one city on the route map
type RoutePoint struct {
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Temperature float64 `json:"temperature"`
}

// Label is the marker text shown next to the city
func (p RoutePoint) Label() string {
	return fmt.Sprintf("%s: %.1f°C", p.City, p.Temperature)
}

// RouteFigure connects the cities of a route in travel order
type RouteFigure struct {
	Title  string       `json:"title"`
	Points []RoutePoint `json:"points"`
}

// RouteMap builds the route figure with the current temperature of each city
func RouteMap(forecasts []entities.CityForecast) RouteFigure {
	fig := RouteFigure{Title: "Route and current temperature"}
	for _, f := range forecasts {
		fig.Points = append(fig.Points, RoutePoint{
			City:        f.City,
			Lat:         f.Coordinates.Lat,
			Lon:         f.Coordinates.Lon,
			Temperature: f.CurrentTemperature,
		})
	}
	return fig
}

// Empty reports whether the route has no cities
func (f RouteFigure) Empty() bool {
	return len(f.Points) == 0
}

// FigureSet is everything the dashboard shows for one route
type FigureSet struct {
	Temperature     TimeSeriesFigure `json:"temperature"`
	WindSpeed       TimeSeriesFigure `json:"wind_speed"`
	RainProbability TimeSeriesFigure `json:"rain_probability"`
	Route           RouteFigure      `json:"route"`
}

// BuildFigureSet renders the three metric figures and the route map
func BuildFigureSet(forecasts []entities.CityForecast, days int) FigureSet {
	return FigureSet{
		Temperature:     TimeSeries(forecasts, Temperature, days),
		WindSpeed:       TimeSeries(forecasts, WindSpeed, days),
		RainProbability: TimeSeries(forecasts, RainProbability, days),
		Route:           RouteMap(forecasts),
	}
}

// Empty reports whether no city produced any data
func (s FigureSet) Empty() bool {
	return s.Temperature.Empty() && s.Route.Empty()
}
