package usecases

import (
	"fmt"
	"strings"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// FormatDailySummary formats the per-day summaries of one city for display
func FormatDailySummary(city string, summaries []entities.DailySummary) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("🌤 Weather forecast for %s:\n\n", city))

	for _, s := range summaries {
		result.WriteString(fmt.Sprintf("📅 %s\n", s.Date.Format("02.01")))
		result.WriteString(fmt.Sprintf("🌡 Temperature: %.1f°C\n", s.AvgTemperature))
		result.WriteString(fmt.Sprintf("💨 Wind: %.1f m/s\n", s.AvgWindSpeed))
		result.WriteString(fmt.Sprintf("☔️ Precipitation: %.0f%%\n\n", s.MaxRainProbability))
	}

	return result.String()
}

// FormatDetailedForecast lists every 3-hour slice of a city, grouped by day
func FormatDetailedForecast(forecast entities.CityForecast) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("🌤 Detailed forecast for %s:\n\n", forecast.City))

	currentDay := ""
	for _, rec := range forecast.Records {
		day := rec.Timestamp.Format("02.01")
		if day != currentDay {
			result.WriteString(fmt.Sprintf("📅 %s:\n", day))
			currentDay = day
		}
		result.WriteString(fmt.Sprintf("⏰ %s\n", rec.Timestamp.Format("15:04")))
		result.WriteString(fmt.Sprintf("🌡 Temperature: %.1f°C\n", rec.Temperature))
		result.WriteString(fmt.Sprintf("💨 Wind: %.1f m/s\n", rec.WindSpeed))
		result.WriteString(fmt.Sprintf("☔️ Precipitation: %.0f%%\n\n", rec.RainProbability))
	}

	return result.String()
}
