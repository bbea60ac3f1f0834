package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/route-weather-bot/internal/api"
	"github.com/abelzeko/route-weather-bot/internal/config"
	"github.com/abelzeko/route-weather-bot/internal/integration"
	"github.com/abelzeko/route-weather-bot/internal/integration/openai"
	"github.com/abelzeko/route-weather-bot/internal/repository"
	"github.com/abelzeko/route-weather-bot/internal/usecases"
	"github.com/robfig/cron/v3"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Route Weather Bot...")

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize session repository
	var repo repository.SessionRepository
	switch cfg.SessionBackend {
	case config.SessionBackendSQLite:
		repo, err = repository.NewSQLiteSessionRepository(cfg.SQLiteDSN)
		if err != nil {
			log.Fatalf("Failed to initialize repository: %v", err)
		}
	default:
		repo = repository.NewMemorySessionRepository()
	}
	defer repo.Close()
	log.Printf("Using %s session storage", cfg.SessionBackend)

	// Route interpreter is optional
	var interpreter openai.RouteInterpreter
	if cfg.OpenAIAPIKey != "" {
		interpreter, err = openai.NewRouteInterpreter(cfg.OpenAIAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize route interpreter: %v", err)
		}
		log.Println("Free-text route requests are enabled")
	}

	weatherClient := integration.NewWeatherClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey)
	forecasts := usecases.NewForecastUseCase(weatherClient, cfg.Parallel())
	conversation := usecases.NewConversationUseCase(repo, forecasts, interpreter, cfg.MaxMessageLength)

	// Sweep idle sessions on a schedule
	c := cron.New()
	_, err = c.AddFunc(cfg.SessionSweepSchedule, func() {
		if _, err := conversation.SweepExpired(cfg.SessionTTL); err != nil {
			log.Printf("Scheduled session sweep failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to set up cron job: %v", err)
	}
	c.Start()
	defer c.Stop()
	log.Printf("Idle sessions are swept %s (TTL %s)", cfg.SessionSweepSchedule, cfg.SessionTTL)

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(cfg.TelegramToken, conversation)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the bot; returns after a shutdown signal
	telegramBot.Start(ctx)
	log.Println("Bot stopped")
}
