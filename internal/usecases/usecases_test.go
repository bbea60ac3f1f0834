package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// fakeFetcher returns synthetic forecasts and fails for the cities listed in failures
type fakeFetcher struct {
	mutex    sync.Mutex
	calls    []string
	failures map[string]error
	delay    map[string]time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		failures: make(map[string]error),
		delay:    make(map[string]time.Duration),
	}
}

func (f *fakeFetcher) FetchForecast(ctx context.Context, city string, days int) (entities.CityForecast, error) {
	f.mutex.Lock()
	f.calls = append(f.calls, city)
	err := f.failures[city]
	delay := f.delay[city]
	f.mutex.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return entities.CityForecast{}, &entities.WeatherFetchError{City: city, Err: err}
	}
	return syntheticForecast(city, days), nil
}

func (f *fakeFetcher) callCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.calls)
}

// syntheticForecast builds days*8 slices starting at midnight UTC
func syntheticForecast(city string, days int) entities.CityForecast {
	start := time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)
	forecast := entities.CityForecast{
		City:               city,
		Coordinates:        entities.Coordinates{Lat: float64(len(city)), Lon: float64(len(city)) * 2},
		CurrentTemperature: 10,
	}
	for i := 0; i < days*entities.SlicesPerDay; i++ {
		forecast.Records = append(forecast.Records, entities.ForecastRecord{
			City:            city,
			Timestamp:       start.Add(time.Duration(i) * 3 * time.Hour),
			Temperature:     float64(i),
			WindSpeed:       2,
			RainProbability: float64(i * 10 % 100),
		})
	}
	return forecast
}

var errNotFound = errors.New("provider returned 404: city not found")

func cityNames(forecasts []entities.CityForecast) string {
	names := make([]string, 0, len(forecasts))
	for _, f := range forecasts {
		names = append(names, f.City)
	}
	return strings.Join(names, ",")
}

func describeReplies(replies []Reply) string {
	var b strings.Builder
	for i, r := range replies {
		fmt.Fprintf(&b, "[%d] image=%t text=%q\n", i, r.Image != nil, r.Text)
	}
	return b.String()
}
