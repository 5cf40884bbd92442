package main

import (
	"flag"
	"log"
	"os"
	"time"

	"FraudGuard/internal/di"
	"FraudGuard/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	train := flag.Bool("train", false, "train the anomaly model and exit")
	trainDays := flag.Int("train-days", 30, "days of history to train on")
	trainLimit := flag.Int("train-limit", 100000, "max transactions to train on")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s clickhouse=%s kafka=%v", cfg.Environment, cfg.ClickHouse.Host, cfg.Kafka.Enabled)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if *train {
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -*trainDays)
		if err := app.Train(from, to, *trainLimit); err != nil {
			log.Printf("training failed: %v", err)
			os.Exit(1)
		}
		log.Printf("training complete: %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
		return
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
