// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/abelzeko/route-weather-bot/internal/entities"
	"golang.org/x/sync/errgroup"
)

// maxParallelFetches bounds concurrent provider calls for one route
const maxParallelFetches = 4

// ForecastFetcher fetches the forecast of a single city
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, city string, days int) (entities.CityForecast, error)
}

// ForecastUseCase fetches forecasts for every city of a route
type ForecastUseCase struct {
	fetcher  ForecastFetcher
	parallel bool
}

// NewForecastUseCase creates a new forecast use case
func NewForecastUseCase(fetcher ForecastFetcher, parallel bool) *ForecastUseCase {
	return &ForecastUseCase{
		fetcher:  fetcher,
		parallel: parallel,
	}
}

// FetchRoute fetches every city and fails as a whole on the first city that fails.
// Results are in input city order.
func (uc *ForecastUseCase) FetchRoute(ctx context.Context, cities []string, days int) ([]entities.CityForecast, error) {
	log.Printf("Fetching %d-day forecast for route %s", days, strings.Join(cities, " → "))
	results := make([]entities.CityForecast, len(cities))

	if !uc.parallel {
		for i, city := range cities {
			forecast, err := uc.fetcher.FetchForecast(ctx, city, days)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch route forecast: %w", err)
			}
			results[i] = forecast
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, city := range cities {
		i, city := i, city
		g.Go(func() error {
			forecast, err := uc.fetcher.FetchForecast(gctx, city, days)
			if err != nil {
				return err
			}
			results[i] = forecast
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch route forecast: %w", err)
	}
	return results, nil
}

// FetchRoutePartial fetches every city, logging and skipping the ones that fail.
// The surviving forecasts keep input city order.
func (uc *ForecastUseCase) FetchRoutePartial(ctx context.Context, cities []string, days int) []entities.CityForecast {
	log.Printf("Fetching %d-day forecast for route %s (skipping failures)", days, strings.Join(cities, " → "))
	results := make([]entities.CityForecast, len(cities))
	ok := make([]bool, len(cities))

	fetch := func(i int, city string) {
		forecast, err := uc.fetcher.FetchForecast(ctx, city, days)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", city, err)
			return
		}
		results[i] = forecast
		ok[i] = true
	}

	if uc.parallel {
		var g errgroup.Group
		g.SetLimit(maxParallelFetches)
		for i, city := range cities {
			i, city := i, city
			g.Go(func() error {
				fetch(i, city)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, city := range cities {
			fetch(i, city)
		}
	}

	forecasts := make([]entities.CityForecast, 0, len(cities))
	for i := range cities {
		if ok[i] {
			forecasts = append(forecasts, results[i])
		}
	}
	return forecasts
}

// ParseCities splits comma-separated input into trimmed, non-empty city names
func ParseCities(input string) []string {
	var cities []string
	for _, part := range strings.Split(input, ",") {
		if city := strings.TrimSpace(part); city != "" {
			cities = append(cities, city)
		}
	}
	return cities
}

// ValidateRoute checks that a route has enough cities and a supported day count
func ValidateRoute(cities []string, days int) error {
	if len(cities) < 2 {
		return &entities.InputValidationError{Field: "cities", Reason: fmt.Sprintf("need at least 2 cities, got %d", len(cities))}
	}
	if days < entities.MinDays || days > entities.MaxDays {
		return &entities.InputValidationError{Field: "days", Reason: fmt.Sprintf("must be between %d and %d, got %d", entities.MinDays, entities.MaxDays, days)}
	}
	return nil
}
