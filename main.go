package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"custdash/adapters/excel"
	"custdash/internal"
	"custdash/internal/config"
	"custdash/internal/dataset"
	"custdash/internal/session"
	"custdash/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gin.SetMode(appConfig.Server.GinMode)
	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))

	sessions := session.NewManager(appConfig.Session.TTL, logger)

	processorConfig := dataset.DefaultProcessorConfig()
	processorConfig.MaxBytes = appConfig.Upload.MaxBytes
	processorConfig.MaxConcurrentLoads = appConfig.Upload.MaxConcurrentLoads
	processorConfig.Reader.Delimiter = excel.ParseDelimiter(appConfig.Upload.Delimiter)
	processor := dataset.NewProcessor(processorConfig, logger)

	server, err := ui.NewServer(appConfig, sessions, processor, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sweepSessions(ctx, sessions, appConfig.Session.TTL)

	if err := server.Start(ctx, ":"+appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

// sweepSessions evicts idle sessions so abandoned datasets are released.
func sweepSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				log.Printf("[Sessions] evicted %d idle sessions, %d active", n, sessions.Len())
			}
		}
	}
}
