package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"uptime-report-backend/config"
	"uptime-report-backend/internal/db"
	"uptime-report-backend/internal/ingest"
	"uptime-report-backend/internal/metrics"
	"uptime-report-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "uptime-ingest ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	// Flags override the feed paths from the config file.
	flag.StringVar(&cfg.Ingest.StatusFile, "status", cfg.Ingest.StatusFile, "store status CSV")
	flag.StringVar(&cfg.Ingest.HoursFile, "hours", cfg.Ingest.HoursFile, "menu hours CSV")
	flag.StringVar(&cfg.Ingest.TimezoneFile, "timezones", cfg.Ingest.TimezoneFile, "store timezone CSV")
	flag.Parse()

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := ingest.NewService(&cfg.Ingest, store.NewGormStore(gormDB)).Run(ctx)
	for _, res := range results {
		logger.Printf("%s: %d rows, %d accepted, %d rejected, %d failed batches",
			res.Feed, res.Rows, res.Accepted, res.Rejected, res.FailedBatches)
		for _, msg := range res.Errors {
			logger.Printf("%s: %s", res.Feed, msg)
		}
	}
	if err != nil {
		logger.Fatalf("ingest failed: %v", err)
	}
	logger.Println("ingest finished")
}
