// Package integration handles external service interactions
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// dtTextLayout is the layout of the provider's dt_txt field (UTC)
const dtTextLayout = "2006-01-02 15:04:05"

// WeatherClient fetches current conditions and forecasts from OpenWeatherMap
type WeatherClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewWeatherClient creates a new weather client. An empty baseURL selects the public API.
func NewWeatherClient(baseURL, apiKey string) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &WeatherClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// currentWeatherResponse is the subset of /weather we rely on.
// Pointers mark required fields so a missing one is detected instead of read as zero.
type currentWeatherResponse struct {
	Coord *struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"coord"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Name string `json:"name"`
}

// forecastResponse is the subset of /forecast we rely on
type forecastResponse struct {
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	DtTxt *string `json:"dt_txt"`
	Main  *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Pop *float64 `json:"pop"` // optional, defaults to 0
}

// errorResponse is the provider's error body
type errorResponse struct {
	Message string `json:"message"`
}

// CurrentConditions holds what the current-weather lookup tells us about a city
type CurrentConditions struct {
	Coordinates entities.Coordinates
	Temperature float64
}

// FetchForecast resolves the city to coordinates and fetches days*8 forecast slices for it.
// Every failure is returned as *entities.WeatherFetchError naming the city.
func (c *WeatherClient) FetchForecast(ctx context.Context, city string, days int) (entities.CityForecast, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return entities.CityForecast{}, &entities.InputValidationError{Field: "city", Reason: "must not be empty"}
	}
	if days < entities.MinDays || days > entities.MaxDays {
		return entities.CityForecast{}, &entities.InputValidationError{
			Field:  "days",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", entities.MinDays, entities.MaxDays, days),
		}
	}

	current, err := c.CurrentWeather(ctx, city)
	if err != nil {
		return entities.CityForecast{}, err
	}
	log.Printf("Resolved %s to lat=%.4f lon=%.4f", city, current.Coordinates.Lat, current.Coordinates.Lon)

	records, err := c.Forecast(ctx, city, current.Coordinates, days*entities.SlicesPerDay)
	if err != nil {
		return entities.CityForecast{}, err
	}
	log.Printf("Fetched %d forecast slices for %s", len(records), city)

	return entities.CityForecast{
		City:               city,
		Coordinates:        current.Coordinates,
		CurrentTemperature: current.Temperature,
		Records:            records,
	}, nil
}

// CurrentWeather looks a city up by name
func (c *WeatherClient) CurrentWeather(ctx context.Context, city string) (CurrentConditions, error) {
	params := url.Values{}
	params.Set("q", city)

	var resp currentWeatherResponse
	if err := c.get(ctx, "weather", params, &resp); err != nil {
		return CurrentConditions{}, &entities.WeatherFetchError{City: city, Err: err}
	}

	if resp.Coord == nil || resp.Coord.Lat == nil || resp.Coord.Lon == nil {
		return CurrentConditions{}, &entities.WeatherFetchError{City: city, Err: errors.New("response is missing coord.lat/coord.lon")}
	}
	if resp.Main == nil || resp.Main.Temp == nil {
		return CurrentConditions{}, &entities.WeatherFetchError{City: city, Err: errors.New("response is missing main.temp")}
	}

	return CurrentConditions{
		Coordinates: entities.Coordinates{Lat: *resp.Coord.Lat, Lon: *resp.Coord.Lon},
		Temperature: *resp.Main.Temp,
	}, nil
}

// Forecast fetches count forecast slices at the given coordinates
func (c *WeatherClient) Forecast(ctx context.Context, city string, coords entities.Coordinates, count int) ([]entities.ForecastRecord, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	params.Set("cnt", strconv.Itoa(count))

	var resp forecastResponse
	if err := c.get(ctx, "forecast", params, &resp); err != nil {
		return nil, &entities.WeatherFetchError{City: city, Err: err}
	}

	records := make([]entities.ForecastRecord, 0, len(resp.List))
	for i, item := range resp.List {
		record, err := item.toRecord(city)
		if err != nil {
			return nil, &entities.WeatherFetchError{City: city, Err: fmt.Errorf("forecast slice %d: %w", i, err)}
		}
		records = append(records, record)
	}
	return records, nil
}

func (item forecastItem) toRecord(city string) (entities.ForecastRecord, error) {
	if item.DtTxt == nil {
		return entities.ForecastRecord{}, errors.New("missing dt_txt")
	}
	if item.Main == nil || item.Main.Temp == nil {
		return entities.ForecastRecord{}, errors.New("missing main.temp")
	}
	if item.Wind == nil || item.Wind.Speed == nil {
		return entities.ForecastRecord{}, errors.New("missing wind.speed")
	}

	ts, err := time.ParseInLocation(dtTextLayout, *item.DtTxt, time.UTC)
	if err != nil {
		return entities.ForecastRecord{}, fmt.Errorf("invalid dt_txt %q: %w", *item.DtTxt, err)
	}

	pop := 0.0
	if item.Pop != nil {
		pop = *item.Pop
	}

	return entities.ForecastRecord{
		City:            city,
		Timestamp:       ts,
		Temperature:     *item.Main.Temp,
		WindSpeed:       *item.Wind.Speed,
		RainProbability: pop * 100,
	}, nil
}

// get performs a GET against the provider and decodes a 2xx JSON body into out
func (c *WeatherClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Printf("Received unexpected status code from /%s: %d %s", endpoint, res.StatusCode, res.Status)
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("unexpected status code %d: %s", res.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("unexpected status code %d", res.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
