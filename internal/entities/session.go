package entities

import (
	"strings"
	"time"
)

// Stage is the position of a conversation in the forecast collection flow
type Stage string

const (
	StageIdle                    Stage = "idle"
	StageAwaitingCities          Stage = "awaiting_cities"
	StageAwaitingDays            Stage = "awaiting_days"
	StageAwaitingDetailSelection Stage = "awaiting_detail_selection"
)

// Session holds the input a chat has collected between messages
type Session struct {
	ChatID       int64          `json:"chat_id"`
	Stage        Stage          `json:"stage"`
	Cities       []string       `json:"cities,omitempty"`
	Days         int            `json:"days,omitempty"`
	LastForecast []CityForecast `json:"last_forecast,omitempty"`
	ForecastID   string         `json:"forecast_id,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewSession returns an idle session for the chat
func NewSession(chatID int64) *Session {
	return &Session{
		ChatID:    chatID,
		Stage:     StageIdle,
		UpdatedAt: time.Now(),
	}
}

// Reset drops all collected input and returns the session to idle
func (s *Session) Reset() {
	s.Stage = StageIdle
	s.Cities = nil
	s.Days = 0
	s.LastForecast = nil
	s.ForecastID = ""
}

// ForecastAt returns the forecast kept for drill-down at the given route position
func (s *Session) ForecastAt(index int) (CityForecast, bool) {
	if index < 0 || index >= len(s.LastForecast) {
		return CityForecast{}, false
	}
	return s.LastForecast[index], true
}

// ForecastFor looks a kept forecast up by city name
func (s *Session) ForecastFor(city string) (CityForecast, bool) {
	for _, f := range s.LastForecast {
		if strings.EqualFold(f.City, city) {
			return f, true
		}
	}
	return CityForecast{}, false
}
