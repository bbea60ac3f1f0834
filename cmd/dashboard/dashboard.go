package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelzeko/route-weather-bot/internal/api"
	"github.com/abelzeko/route-weather-bot/internal/config"
	"github.com/abelzeko/route-weather-bot/internal/integration"
	"github.com/abelzeko/route-weather-bot/internal/usecases"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Route Weather Dashboard...")

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateDashboard(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	weatherClient := integration.NewWeatherClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey)
	dashboard, err := api.NewDashboard(usecases.NewForecastUseCase(weatherClient, cfg.Parallel()))
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.DashboardAddr,
		Handler:           dashboard.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	listener, err := net.Listen("tcp", cfg.DashboardAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.DashboardAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, server, listener, 10*time.Second); err != nil {
		log.Fatalf("Dashboard server failed: %v", err)
	}
	log.Println("Dashboard stopped")
}

// serve runs server on listener until ctx is cancelled, then shuts it down
// within shutdownTimeout
func serve(ctx context.Context, server *http.Server, listener net.Listener, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard listening on %s", listener.Addr())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down the dashboard...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
