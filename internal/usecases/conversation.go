package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/entities"
	"github.com/abelzeko/route-weather-bot/internal/integration/openai"
	"github.com/abelzeko/route-weather-bot/internal/render"
	"github.com/abelzeko/route-weather-bot/internal/repository"
	"github.com/google/uuid"
)

// Callback data prefixes of the inline keyboards
const (
	DaysCallbackPrefix   = "days_"
	DetailCallbackPrefix = "detail_"
)

// User-facing prompts
const (
	PromptCities      = "Enter the cities of your route separated by commas (for example: Moscow, Saint Petersburg):"
	PromptMoreCities  = "Please enter at least 2 cities separated by commas:"
	PromptDays        = "Choose the number of days for the forecast:"
	PromptDaysInvalid = "Please choose a number of days between 1 and 4:"
	PromptUseButtons  = "Please choose the number of days using the buttons below:"
	MessageRestart    = "An error occurred: the list of cities was not found.\nPlease start again with /weather"
	MessageNoDetails  = "Data not found. Please request the forecast again with /weather"
	MessageOutdated   = "This button belongs to an older forecast. Use the buttons of the latest one or start again with /weather"
	MessageCancelled  = "Okay, the forecast request was cancelled. Use /weather to start again."
	MessageFallback   = "I don't understand. Use /weather to get a route forecast or /help for more information."
	MessageAgentError = "Sorry, I'm having trouble understanding right now. Please use /weather or /help."
)

// Button is one inline keyboard button
type Button struct {
	Text string
	Data string
}

// Reply is one outgoing message. When Image is set the reply is a photo and Text is its caption.
type Reply struct {
	Text      string
	Image     []byte
	ImageName string
	Buttons   [][]Button
}

// ConversationUseCase drives the per-chat forecast collection flow:
// idle → awaiting cities → awaiting days → awaiting detail selection.
type ConversationUseCase struct {
	repo             repository.SessionRepository
	forecasts        *ForecastUseCase
	interpreter      openai.RouteInterpreter
	maxMessageLength int

	locksMu sync.Mutex
	locks   map[int64]*chatLock
}

// chatLock is a per-chat mutex that lives only while someone holds or waits for it
type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewConversationUseCase creates a new conversation use case. interpreter may be nil,
// in which case free text outside the flow gets a fallback reply.
func NewConversationUseCase(repo repository.SessionRepository, forecasts *ForecastUseCase, interpreter openai.RouteInterpreter, maxMessageLength int) *ConversationUseCase {
	if maxMessageLength <= 0 {
		maxMessageLength = DefaultMaxMessageLength
	}
	return &ConversationUseCase{
		repo:             repo,
		forecasts:        forecasts,
		interpreter:      interpreter,
		maxMessageLength: maxMessageLength,
		locks:            make(map[int64]*chatLock),
	}
}

// lock serializes all work on one chat's session and returns the unlock function.
// The chat's entry is dropped once the last holder unlocks.
func (uc *ConversationUseCase) lock(chatID int64) func() {
	uc.locksMu.Lock()
	l, ok := uc.locks[chatID]
	if !ok {
		l = &chatLock{}
		uc.locks[chatID] = l
	}
	l.refs++
	uc.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		uc.locksMu.Lock()
		defer uc.locksMu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(uc.locks, chatID)
		}
	}
}

func (uc *ConversationUseCase) lockCount() int {
	uc.locksMu.Lock()
	defer uc.locksMu.Unlock()
	return len(uc.locks)
}

// loadSession returns the chat's session, or a fresh idle one
func (uc *ConversationUseCase) loadSession(chatID int64) *entities.Session {
	session, err := uc.repo.GetSession(chatID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			log.Printf("Error loading session for chat %d, starting a new one: %v", chatID, err)
		}
		return entities.NewSession(chatID)
	}
	return session
}

func (uc *ConversationUseCase) saveSession(session *entities.Session) {
	if err := uc.repo.SaveSession(session); err != nil {
		log.Printf("Error saving session for chat %d: %v", session.ChatID, err)
	}
}

// Stage returns the chat's current stage
func (uc *ConversationUseCase) Stage(chatID int64) entities.Stage {
	unlock := uc.lock(chatID)
	defer unlock()
	return uc.loadSession(chatID).Stage
}

// StartRoute handles the /weather command
func (uc *ConversationUseCase) StartRoute(chatID int64) []Reply {
	unlock := uc.lock(chatID)
	defer unlock()

	session := uc.loadSession(chatID)
	session.Reset()
	session.Stage = entities.StageAwaitingCities
	uc.saveSession(session)

	log.Printf("Chat %d is now awaiting cities", chatID)
	return []Reply{{Text: PromptCities}}
}

// Reset drops the chat's session, returning it to idle
func (uc *ConversationUseCase) Reset(chatID int64) {
	unlock := uc.lock(chatID)
	defer unlock()

	if err := uc.repo.DeleteSession(chatID); err != nil {
		log.Printf("Error deleting session for chat %d: %v", chatID, err)
	}
}

// Cancel handles the /cancel command
func (uc *ConversationUseCase) Cancel(chatID int64) []Reply {
	uc.Reset(chatID)
	return []Reply{{Text: MessageCancelled}}
}

// HandleText processes a non-command message according to the chat's stage
func (uc *ConversationUseCase) HandleText(ctx context.Context, chatID int64, text string) []Reply {
	unlock := uc.lock(chatID)
	defer unlock()

	session := uc.loadSession(chatID)

	switch session.Stage {
	case entities.StageAwaitingCities:
		return uc.acceptCities(session, text)
	case entities.StageAwaitingDays:
		return []Reply{{Text: PromptUseButtons, Buttons: DaysKeyboard()}}
	case entities.StageAwaitingDetailSelection:
		if forecast, ok := session.ForecastFor(strings.TrimSpace(text)); ok {
			return uc.showDetails(session, forecast)
		}
		return uc.interpret(ctx, session, text)
	default:
		return uc.interpret(ctx, session, text)
	}
}

// acceptCities stores the route if it has at least two cities, otherwise re-prompts
func (uc *ConversationUseCase) acceptCities(session *entities.Session, text string) []Reply {
	cities := ParseCities(text)
	if err := ValidateRoute(cities, entities.MinDays); err != nil {
		log.Printf("Chat %d sent an invalid route %q: %v", session.ChatID, text, err)
		return []Reply{{Text: PromptMoreCities}}
	}

	session.Cities = cities
	session.Stage = entities.StageAwaitingDays
	uc.saveSession(session)

	log.Printf("Chat %d route: %s", session.ChatID, strings.Join(cities, " → "))
	return []Reply{{Text: PromptDays, Buttons: DaysKeyboard()}}
}

// interpret hands free text to the route interpreter, if one is configured
func (uc *ConversationUseCase) interpret(ctx context.Context, session *entities.Session, text string) []Reply {
	if uc.interpreter == nil {
		return []Reply{{Text: MessageFallback}}
	}

	agentResp, err := uc.interpreter.InterpretRouteQuery(ctx, text)
	if err != nil {
		log.Printf("Error interpreting message from chat %d: %v", session.ChatID, err)
		return []Reply{{Text: MessageAgentError}}
	}
	log.Printf("Agent response: Command='%s', Cities=%v, Days=%d, Message='%s'",
		agentResp.CommandName, agentResp.Cities, agentResp.Days, agentResp.UserMessage)

	if agentResp.CommandName != openai.CommandGetRouteForecast || len(agentResp.Cities) < 2 {
		if agentResp.UserMessage == "" {
			return []Reply{{Text: MessageFallback}}
		}
		return []Reply{{Text: agentResp.UserMessage}}
	}

	var replies []Reply
	if agentResp.UserMessage != "" {
		replies = append(replies, Reply{Text: agentResp.UserMessage})
	}

	session.Reset()
	session.Cities = agentResp.Cities
	if agentResp.Days >= entities.MinDays && agentResp.Days <= entities.MaxDays {
		return append(replies, uc.runForecast(ctx, session, agentResp.Days)...)
	}

	session.Stage = entities.StageAwaitingDays
	uc.saveSession(session)
	return append(replies, Reply{Text: PromptDays, Buttons: DaysKeyboard()})
}

// IsForecastCallback reports whether the callback starts a (slow) forecast fetch
func IsForecastCallback(data string) bool {
	return strings.HasPrefix(data, DaysCallbackPrefix)
}

// HandleCallback processes an inline keyboard selection
func (uc *ConversationUseCase) HandleCallback(ctx context.Context, chatID int64, data string) []Reply {
	unlock := uc.lock(chatID)
	defer unlock()

	session := uc.loadSession(chatID)

	switch {
	case strings.HasPrefix(data, DaysCallbackPrefix):
		days, err := ParseDays(strings.TrimPrefix(data, DaysCallbackPrefix))
		if err != nil {
			log.Printf("Chat %d sent an invalid day count %q: %v", chatID, data, err)
			return []Reply{{Text: PromptDaysInvalid, Buttons: DaysKeyboard()}}
		}
		return uc.runForecast(ctx, session, days)

	case strings.HasPrefix(data, DetailCallbackPrefix):
		forecastID, index, ok := parseDetailCallback(data)
		if !ok {
			log.Printf("Chat %d sent an invalid detail selection %q", chatID, data)
			return []Reply{{Text: MessageNoDetails}}
		}
		if session.ForecastID == "" {
			return []Reply{{Text: MessageNoDetails}}
		}
		if forecastID != session.ForecastID {
			log.Printf("Chat %d pressed a button of forecast %s, current is %s", chatID, forecastID, session.ForecastID)
			return []Reply{{Text: MessageOutdated}}
		}
		forecast, ok := session.ForecastAt(index)
		if !ok {
			return []Reply{{Text: MessageNoDetails}}
		}
		return uc.showDetails(session, forecast)

	default:
		log.Printf("Chat %d sent an unknown callback %q", chatID, data)
		return []Reply{{Text: MessageFallback}}
	}
}

// runForecast fetches, renders and summarizes the session's route.
// Any fetch failure aborts the whole route and resets the session.
func (uc *ConversationUseCase) runForecast(ctx context.Context, session *entities.Session, days int) []Reply {
	if len(session.Cities) < 2 {
		err := &entities.SessionStateError{Stage: session.Stage, Missing: "cities"}
		log.Printf("Chat %d: %v", session.ChatID, err)
		session.Reset()
		uc.saveSession(session)
		return []Reply{{Text: MessageRestart}}
	}
	session.Days = days

	forecasts, err := uc.forecasts.FetchRoute(ctx, session.Cities, days)
	if err != nil {
		log.Printf("Error fetching forecast for chat %d: %v", session.ChatID, err)
		session.Reset()
		uc.saveSession(session)
		return []Reply{{Text: FetchErrorMessage(err)}}
	}

	session.ForecastID = uuid.NewString()
	replies := make([]Reply, 0, len(forecasts)+2)

	if img, err := render.TimeSeries(forecasts, render.Temperature, days).PNG(); err != nil {
		log.Printf("Error rendering temperature chart for chat %d: %v", session.ChatID, err)
	} else {
		replies = append(replies, Reply{Text: "Temperature along the route", Image: img, ImageName: "forecast.png"})
	}

	if img, err := render.RouteMap(forecasts).PNG(); err != nil {
		log.Printf("Error rendering route map for chat %d: %v", session.ChatID, err)
	} else {
		replies = append(replies, Reply{Text: "Route and current temperature", Image: img, ImageName: "route.png"})
	}

	for i, forecast := range forecasts {
		summary := FormatDailySummary(forecast.City, SummarizeByDay(forecast.Records))
		chunks := ChunkText(summary, uc.maxMessageLength)
		for j, chunk := range chunks {
			reply := Reply{Text: chunk}
			if j == len(chunks)-1 {
				reply.Buttons = [][]Button{{{
					Text: "Show the forecast in 3-hour intervals",
					Data: DetailCallbackData(session.ForecastID, i),
				}}}
			}
			replies = append(replies, reply)
		}
	}

	session.LastForecast = forecasts
	session.Stage = entities.StageAwaitingDetailSelection
	uc.saveSession(session)

	log.Printf("Sent %d-day forecast for %d cities to chat %d", days, len(forecasts), session.ChatID)
	return replies
}

// showDetails renders every slice of one kept city forecast
func (uc *ConversationUseCase) showDetails(session *entities.Session, forecast entities.CityForecast) []Reply {
	var replies []Reply
	for _, chunk := range ChunkText(FormatDetailedForecast(forecast), uc.maxMessageLength) {
		replies = append(replies, Reply{Text: chunk})
	}
	uc.saveSession(session)
	return replies
}

// SweepExpired drops sessions idle for longer than ttl
func (uc *ConversationUseCase) SweepExpired(ttl time.Duration) (int, error) {
	deleted, err := uc.repo.DeleteSessionsBefore(time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	if deleted > 0 {
		log.Printf("Swept %d idle sessions", deleted)
	}
	return deleted, nil
}

// DetailCallbackData is the drill-down button data for the city at index of
// the forecast forecastID, e.g. detail_<uuid>_1. It stays under Telegram's 64 bytes.
func DetailCallbackData(forecastID string, index int) string {
	return fmt.Sprintf("%s%s_%d", DetailCallbackPrefix, forecastID, index)
}

func parseDetailCallback(data string) (string, int, bool) {
	rest := strings.TrimPrefix(data, DetailCallbackPrefix)
	sep := strings.LastIndex(rest, "_")
	if sep <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(rest[sep+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:sep], index, true
}

// DaysKeyboard is the 2x2 day-count keyboard
func DaysKeyboard() [][]Button {
	button := func(days int, label string) Button {
		return Button{Text: label, Data: fmt.Sprintf("%s%d", DaysCallbackPrefix, days)}
	}
	return [][]Button{
		{button(1, "1 day"), button(2, "2 days")},
		{button(3, "3 days"), button(4, "4 days")},
	}
}

// ParseDays parses a day count and checks it is supported
func ParseDays(raw string) (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &entities.InputValidationError{Field: "days", Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if days < entities.MinDays || days > entities.MaxDays {
		return 0, &entities.InputValidationError{Field: "days", Reason: fmt.Sprintf("must be between %d and %d, got %d", entities.MinDays, entities.MaxDays, days)}
	}
	return days, nil
}

// FetchErrorMessage is the user-facing text for a failed route fetch
func FetchErrorMessage(err error) string {
	reason := err.Error()
	var fetchErr *entities.WeatherFetchError
	if errors.As(err, &fetchErr) {
		reason = fmt.Sprintf("%s: %v", fetchErr.City, fetchErr.Err)
	}
	return fmt.Sprintf("😔 Failed to get the forecast for %s\n"+
		"Please check the city names and try again with /weather", reason)
}
