// Package entities contains the core domain objects for the route weather bot
package entities

import (
	"time"
)

// ForecastRecord is one 3-hour forecast slice for one city
type ForecastRecord struct {
	City            string    `json:"city"`
	Timestamp       time.Time `json:"timestamp"`
	Temperature     float64   `json:"temperature"`      // °C
	WindSpeed       float64   `json:"wind_speed"`       // m/s
	RainProbability float64   `json:"rain_probability"` // 0-100
}

// Coordinates locate a city on the map
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CityForecast is everything fetched for one city of a route
type CityForecast struct {
	City               string           `json:"city"`
	Coordinates        Coordinates      `json:"coordinates"`
	CurrentTemperature float64          `json:"current_temperature"`
	Records            []ForecastRecord `json:"records"`
}

// DailySummary aggregates the records of one city sharing a calendar date
type DailySummary struct {
	City               string    `json:"city"`
	Date               time.Time `json:"date"`
	AvgTemperature     float64   `json:"avg_temperature"`
	AvgWindSpeed       float64   `json:"avg_wind_speed"`
	MaxRainProbability float64   `json:"max_rain_probability"`
	Count              int       `json:"count"`
}

// MinDays and MaxDays bound the forecast length a user may request
const (
	MinDays = 1
	MaxDays = 4

	// SlicesPerDay is the number of 3-hour slices the provider returns per day
	SlicesPerDay = 8
)
