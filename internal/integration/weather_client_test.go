package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// mockProvider serves /weather and /forecast the way OpenWeatherMap does.
// Cities listed in missing answer 404 on /weather.
type mockProvider struct {
	missing  map[string]bool
	lastCnt  string
	requests []string
}

func (m *mockProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.requests = append(m.requests, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("appid") != "test-key" || r.URL.Query().Get("units") != "metric" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"cod":401,"message":"Invalid API key"}`)
			return
		}

		switch r.URL.Path {
		case "/weather":
			city := r.URL.Query().Get("q")
			if m.missing[city] {
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"cod":"404","message":"city not found"}`)
				return
			}
			fmt.Fprintf(w, `{"coord":{"lat":55.75,"lon":37.62},"main":{"temp":4.5},"wind":{"speed":3},"name":%q}`, city)
		case "/forecast":
			m.lastCnt = r.URL.Query().Get("cnt")
			cnt, _ := strconv.Atoi(m.lastCnt)
			io.WriteString(w, forecastBody(cnt, time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)))
		default:
			http.NotFound(w, r)
		}
	}
}

// forecastBody builds cnt slices 3 hours apart; every other slice omits pop
func forecastBody(cnt int, start time.Time) string {
	items := make([]string, 0, cnt)
	for i := 0; i < cnt; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour).Format(dtTextLayout)
		pop := ""
		if i%2 == 0 {
			pop = `,"pop":0.25`
		}
		items = append(items, fmt.Sprintf(`{"dt_txt":%q,"main":{"temp":%d},"wind":{"speed":%d.5}%s}`, ts, i, i, pop))
	}
	return `{"cod":"200","cnt":` + strconv.Itoa(cnt) + `,"list":[` + strings.Join(items, ",") + `]}`
}

func TestFetchForecastRequestsDaysTimesEightSlices(t *testing.T) {
	provider := &mockProvider{}
	server := httptest.NewServer(provider.handler())
	defer server.Close()

	client := NewWeatherClient(server.URL, "test-key")

	for days := entities.MinDays; days <= entities.MaxDays; days++ {
		forecast, err := client.FetchForecast(context.Background(), "Moscow", days)
		if err != nil {
			t.Fatalf("FetchForecast(%d) failed: %v", days, err)
		}
		if provider.lastCnt != strconv.Itoa(days*8) {
			t.Errorf("Expected cnt=%d for %d days, got %s", days*8, days, provider.lastCnt)
		}
		if len(forecast.Records) != days*8 {
			t.Errorf("Expected %d records for %d days, got %d", days*8, days, len(forecast.Records))
		}
	}
}

func TestFetchForecastDecodesRecords(t *testing.T) {
	provider := &mockProvider{}
	server := httptest.NewServer(provider.handler())
	defer server.Close()

	client := NewWeatherClient(server.URL+"/", "test-key")
	forecast, err := client.FetchForecast(context.Background(), "  Moscow ", 1)
	if err != nil {
		t.Fatalf("FetchForecast failed: %v", err)
	}

	if forecast.City != "Moscow" {
		t.Errorf("Expected trimmed city Moscow, got %q", forecast.City)
	}
	if forecast.Coordinates.Lat != 55.75 || forecast.Coordinates.Lon != 37.62 {
		t.Errorf("Unexpected coordinates: %+v", forecast.Coordinates)
	}
	if forecast.CurrentTemperature != 4.5 {
		t.Errorf("Expected current temperature 4.5, got %v", forecast.CurrentTemperature)
	}

	first := forecast.Records[0]
	if !first.Timestamp.Equal(time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected first timestamp %v", first.Timestamp)
	}
	if first.RainProbability != 25 {
		t.Errorf("Expected pop 0.25 to become 25%%, got %v", first.RainProbability)
	}
	if second := forecast.Records[1]; second.RainProbability != 0 {
		t.Errorf("Expected missing pop to default to 0, got %v", second.RainProbability)
	}
	if forecast.Records[3].WindSpeed != 3.5 {
		t.Errorf("Expected wind speed 3.5, got %v", forecast.Records[3].WindSpeed)
	}

	if len(provider.requests) != 2 || provider.requests[0] != "/weather" || provider.requests[1] != "/forecast" {
		t.Errorf("Expected /weather then /forecast, got %v", provider.requests)
	}
}

func TestFetchForecastNotFound(t *testing.T) {
	provider := &mockProvider{missing: map[string]bool{"Atlantis": true}}
	server := httptest.NewServer(provider.handler())
	defer server.Close()

	client := NewWeatherClient(server.URL, "test-key")
	_, err := client.FetchForecast(context.Background(), "Atlantis", 1)
	if err == nil {
		t.Fatal("Expected an error for an unknown city")
	}

	var fetchErr *entities.WeatherFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected WeatherFetchError, got %T: %v", err, err)
	}
	if fetchErr.City != "Atlantis" {
		t.Errorf("Expected error to name Atlantis, got %q", fetchErr.City)
	}
	if !strings.Contains(err.Error(), "city not found") {
		t.Errorf("Expected provider message in error, got %q", err.Error())
	}
}

func TestFetchForecastMissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/weather":
			io.WriteString(w, `{"coord":{"lat":1,"lon":2},"main":{"temp":3}}`)
		case "/forecast":
			io.WriteString(w, `{"list":[{"dt_txt":"2025-04-18 00:00:00","main":{"temp":1}}]}`)
		}
	}))
	defer server.Close()

	client := NewWeatherClient(server.URL, "key")
	_, err := client.FetchForecast(context.Background(), "Paris", 1)

	var fetchErr *entities.WeatherFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected WeatherFetchError, got %v", err)
	}
	if !strings.Contains(err.Error(), "wind.speed") {
		t.Errorf("Expected missing wind.speed to be reported, got %q", err.Error())
	}
}

func TestFetchForecastMissingCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"main":{"temp":3}}`)
	}))
	defer server.Close()

	client := NewWeatherClient(server.URL, "key")
	_, err := client.FetchForecast(context.Background(), "Paris", 1)

	var fetchErr *entities.WeatherFetchError
	if !errors.As(err, &fetchErr) || fetchErr.City != "Paris" {
		t.Fatalf("Expected WeatherFetchError for Paris, got %v", err)
	}
}

func TestFetchForecastRejectsInvalidInput(t *testing.T) {
	client := NewWeatherClient("http://127.0.0.1:0", "key")

	for _, days := range []int{0, 5, -1} {
		_, err := client.FetchForecast(context.Background(), "Paris", days)
		var inputErr *entities.InputValidationError
		if !errors.As(err, &inputErr) {
			t.Errorf("Expected InputValidationError for days=%d, got %v", days, err)
		}
	}

	_, err := client.FetchForecast(context.Background(), "   ", 1)
	var inputErr *entities.InputValidationError
	if !errors.As(err, &inputErr) {
		t.Errorf("Expected InputValidationError for empty city, got %v", err)
	}
}

func TestFetchForecastNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := NewWeatherClient(baseURL, "key")
	_, err := client.FetchForecast(context.Background(), "Berlin", 2)

	var fetchErr *entities.WeatherFetchError
	if !errors.As(err, &fetchErr) || fetchErr.City != "Berlin" {
		t.Fatalf("Expected WeatherFetchError for Berlin, got %v", err)
	}
}
