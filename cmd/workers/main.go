package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/config"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/database"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/logging"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	once := flag.Bool("once", false, "run one reconcile pass and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Database.Enabled {
		logger.Fatal("The confirmation worker needs database.enabled; in-memory records are tracked by the API process")
	}

	// Connect to database
	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	chain, err := sui.NewClient(cfg.Sui.ClientConfig())
	if err != nil {
		logger.Fatal("Failed to create Sui client", zap.Error(err))
	}
	defer chain.Close()

	// Create worker
	tracker := transactions.NewTracker(transactions.NewGormRepository(db), chain, logger, nil, transactions.TrackerConfig{
		Schedule:            cfg.Tracker.Schedule,
		ConfirmationTimeout: cfg.Tracker.ConfirmationTimeout,
		BatchSize:           cfg.Tracker.BatchSize,
	})
	worker := NewConfirmationWorker(tracker, logger, DefaultConfirmationWorkerConfig())

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		if _, err := worker.RunOnce(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Start worker
	logger.Info("Confirmation worker starting", zap.String("fullnode", chain.URL()))
	if err := worker.Start(ctx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}

	logger.Info("Confirmation worker stopped")
}
