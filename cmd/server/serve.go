package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"afaq.com/stylist-gateway/internal/api"
	"afaq.com/stylist-gateway/internal/catalog"
	"afaq.com/stylist-gateway/internal/config"
	"afaq.com/stylist-gateway/internal/core"
	"afaq.com/stylist-gateway/internal/geo"
	"afaq.com/stylist-gateway/internal/store"
	"afaq.com/stylist-gateway/internal/weather"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.Debug() {
		log.Println("Service starting in DEBUG mode")
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Printf("Catalog loaded with %d products from %s", cat.Len(), cfg.CatalogPath)

	persona, err := core.LoadPersona(cfg.PersonaFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	memory, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s memory: %w", cfg.MemoryBackend, err)
	}
	defer memory.Close()

	adapter, err := core.NewAdapter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize model adapter: %w", err)
	}
	defer adapter.Close()

	chatService := core.NewChatService(
		geo.NewDefaultResolver(cfg.GeoTimeout),
		weather.NewDefaultForecaster(cfg.ForecastDays, cfg.WeatherTimeout),
		core.NewComposer(persona, cat, cfg.CatalogLinkBase),
		adapter,
		memory,
		core.ChatOptions{
			PromptTurns:    cfg.HistoryPromptTurns,
			RequestTimeout: cfg.RequestTimeout,
			ModelTimeout:   cfg.ModelTimeout,
			Debug:          cfg.Debug(),
			Backend:        cfg.ModelProvider,
		},
	)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, cfg.MaxImageBytes)
	router := api.NewRouter(apiHandler, cfg.CORSOrigins)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // multipart uploads up to the image limit
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s (model %s/%s, memory %s). Press Ctrl+C to quit.",
			serverAddr, cfg.ModelProvider, cfg.ModelMode, cfg.MemoryBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// adapter.Close() and memory.Close() will be called by their defers.
	log.Println("Server exiting gracefully")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.MemoryBackend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.DatabaseURL, cfg.HistoryWindow)
	case "redis":
		return store.NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.HistoryWindow)
	default:
		return store.NewMemoryStore(cfg.HistoryWindow), nil
	}
}
