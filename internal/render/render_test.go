package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func cityForecast(city string, lat, lon float64, slices int) entities.CityForecast {
	start := time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)
	f := entities.CityForecast{
		City:               city,
		Coordinates:        entities.Coordinates{Lat: lat, Lon: lon},
		CurrentTemperature: 12.34,
	}
	for i := 0; i < slices; i++ {
		f.Records = append(f.Records, entities.ForecastRecord{
			City:            city,
			Timestamp:       start.Add(time.Duration(i) * 3 * time.Hour),
			Temperature:     float64(i),
			WindSpeed:       float64(i) / 2,
			RainProbability: 0,
		})
	}
	return f
}

func route() []entities.CityForecast {
	return []entities.CityForecast{
		cityForecast("Moscow", 55.75, 37.62, 8),
		cityForecast("Paris", 48.85, 2.35, 8),
	}
}

func TestTimeSeriesOneSeriesPerCity(t *testing.T) {
	fig := TimeSeries(route(), Temperature, 1)

	if len(fig.Series) != 2 {
		t.Fatalf("Expected 2 series, got %d", len(fig.Series))
	}
	if fig.Series[0].Name != "Moscow" || fig.Series[1].Name != "Paris" {
		t.Errorf("Expected series in route order, got %s, %s", fig.Series[0].Name, fig.Series[1].Name)
	}
	if len(fig.Series[0].Values) != 8 {
		t.Errorf("Expected 8 points, got %d", len(fig.Series[0].Values))
	}
	if !strings.Contains(fig.Title, "1-day") {
		t.Errorf("Expected title to mention the day count, got %q", fig.Title)
	}
}

func TestTimeSeriesMetricSelection(t *testing.T) {
	wind := TimeSeries(route(), WindSpeed, 2)
	if wind.Series[0].Values[3] != 1.5 {
		t.Errorf("Expected wind value 1.5, got %v", wind.Series[0].Values[3])
	}
	if wind.YLabel != "Wind speed (m/s)" {
		t.Errorf("Unexpected y label %q", wind.YLabel)
	}

	rain := TimeSeries(route(), RainProbability, 2)
	if rain.Series[1].Values[0] != 0 {
		t.Errorf("Expected rain probability 0, got %v", rain.Series[1].Values[0])
	}
}

func TestTimeSeriesSkipsCitiesWithoutRecords(t *testing.T) {
	forecasts := append(route(), entities.CityForecast{City: "Nowhere"})
	fig := TimeSeries(forecasts, Temperature, 1)
	if len(fig.Series) != 2 {
		t.Errorf("Expected the empty city to be skipped, got %d series", len(fig.Series))
	}
}

func TestTimeSeriesPNG(t *testing.T) {
	for _, metric := range Metrics {
		img, err := TimeSeries(route(), metric, 1).PNG()
		if err != nil {
			t.Fatalf("Failed to render %s: %v", metric, err)
		}
		if !bytes.HasPrefix(img, pngMagic) {
			t.Errorf("%s chart is not a PNG", metric)
		}
	}
}

func TestTimeSeriesPNGErrors(t *testing.T) {
	if _, err := TimeSeries(nil, Temperature, 1).PNG(); !errors.Is(err, ErrEmptyFigure) {
		t.Errorf("Expected ErrEmptyFigure, got %v", err)
	}

	single := []entities.CityForecast{cityForecast("Moscow", 55.75, 37.62, 1)}
	if _, err := TimeSeries(single, Temperature, 1).PNG(); !errors.Is(err, ErrNotEnoughPoints) {
		t.Errorf("Expected ErrNotEnoughPoints, got %v", err)
	}
}

func TestRouteMap(t *testing.T) {
	fig := RouteMap(route())
	if len(fig.Points) != 2 {
		t.Fatalf("Expected 2 route points, got %d", len(fig.Points))
	}
	if fig.Points[0].Label() != "Moscow: 12.3°C" {
		t.Errorf("Unexpected label %q", fig.Points[0].Label())
	}

	img, err := fig.PNG()
	if err != nil {
		t.Fatalf("Failed to render route map: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("Route map is not a PNG")
	}

	if _, err := RouteMap(nil).PNG(); !errors.Is(err, ErrEmptyFigure) {
		t.Errorf("Expected ErrEmptyFigure for an empty route, got %v", err)
	}
}

func TestFigureSetRenderPage(t *testing.T) {
	set := BuildFigureSet(route(), 1)
	if set.Empty() {
		t.Fatal("Expected a non-empty figure set")
	}

	var buf bytes.Buffer
	if err := set.RenderPage(&buf); err != nil {
		t.Fatalf("Failed to render page: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Route weather", "Moscow", "Paris", "Longitude"} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}

	if !BuildFigureSet(nil, 1).Empty() {
		t.Error("Expected an empty figure set without forecasts")
	}
}
