package usecases

import (
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
)

// DefaultMaxMessageLength is Telegram's limit for a single text message
const DefaultMaxMessageLength = 4096

type dayKey struct {
	city string
	date string
}

// SummarizeByDay buckets records into one summary per city and calendar date.
// Groups keep the order in which their first record appears.
func SummarizeByDay(records []entities.ForecastRecord) []entities.DailySummary {
	type bucket struct {
		summary  entities.DailySummary
		tempSum  float64
		windSum  float64
		firstSet bool
	}

	order := make([]dayKey, 0)
	buckets := make(map[dayKey]*bucket)

	for _, rec := range records {
		date := rec.Timestamp.Format("2006-01-02")
		key := dayKey{city: rec.City, date: date}

		b, ok := buckets[key]
		if !ok {
			y, m, d := rec.Timestamp.Date()
			b = &bucket{summary: entities.DailySummary{
				City: rec.City,
				Date: time.Date(y, m, d, 0, 0, 0, 0, rec.Timestamp.Location()),
			}}
			buckets[key] = b
			order = append(order, key)
		}

		b.tempSum += rec.Temperature
		b.windSum += rec.WindSpeed
		if !b.firstSet || rec.RainProbability > b.summary.MaxRainProbability {
			b.summary.MaxRainProbability = rec.RainProbability
			b.firstSet = true
		}
		b.summary.Count++
	}

	summaries := make([]entities.DailySummary, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		b.summary.AvgTemperature = b.tempSum / float64(b.summary.Count)
		b.summary.AvgWindSpeed = b.windSum / float64(b.summary.Count)
		summaries = append(summaries, b.summary)
	}
	return summaries
}

// ChunkText splits text into pieces of at most maxLen characters, cutting at exact
// character positions. A non-positive maxLen disables splitting.
func ChunkText(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for start := 0; start < len(runes); start += maxLen {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
