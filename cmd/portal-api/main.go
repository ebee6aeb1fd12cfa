package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/config"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/database"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/logging"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/marketplace"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/metrics"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/remittance"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/wallet"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootstrap, _ := zap.NewDevelopment()
		bootstrap.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		bootstrap, _ := zap.NewDevelopment()
		bootstrap.Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	chain, err := sui.NewClient(cfg.Sui.ClientConfig())
	if err != nil {
		logger.Fatal("Failed to create Sui client", zap.Error(err))
	}
	defer chain.Close()
	logger.Info("Using Sui fullnode", zap.String("url", chain.URL()))

	store := session.NewStore(cfg.Security.SessionTTL)
	defer store.Stop()

	// Transaction records
	var repo transactions.Repository
	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
		defer database.Close(db)
		repo = transactions.NewGormRepository(db)
	} else {
		repo = transactions.NewMemoryRepository()
		store.OnExpire(func(sess *session.Session) {
			if err := repo.DeleteBySession(context.Background(), sess.ID); err != nil {
				logger.Warn("Failed to drop session records", zap.String("session_id", sess.ID), zap.Error(err))
			}
		})
	}

	tokens, err := session.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}

	submitter := transactions.NewSubmitter(repo, logger, m)

	remittanceService := remittance.NewService(chain, submitter, repo, logger, m, remittance.Config{
		PackageID:    cfg.Sui.RemittancePackage(),
		RefreshDelay: cfg.Remittance.RefreshDelay,
	})
	marketplaceService := marketplace.NewService(submitter, chain, logger, marketplace.Config{
		Contract:              cfg.Sui.Contract(),
		TreasuryUnitPriceMist: cfg.Sui.TreasuryUnitPriceMist,
	})

	walletManager := wallet.NewManager(logger, m, cfg.Security.AllowedOrigins)
	walletManager.OnConnect(func(ctx context.Context, sess *session.Session) {
		if _, err := remittanceService.RefreshBalance(ctx, sess); err != nil {
			logger.Warn("Initial balance fetch failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	})
	defer walletManager.Close()

	var tracker *transactions.Tracker
	if cfg.Tracker.Enabled {
		tracker = transactions.NewTracker(repo, chain, logger, m, transactions.TrackerConfig{
			Schedule:            cfg.Tracker.Schedule,
			ConfirmationTimeout: cfg.Tracker.ConfirmationTimeout,
			BatchSize:           cfg.Tracker.BatchSize,
		})
		if err := tracker.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start confirmation tracker", zap.Error(err))
		}
	}

	// Setup Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), cors(cfg.Security.AllowedOrigins))

	api := router.Group("/api/v1")
	authed := api.Group("", session.Middleware(store, tokens))
	{
		session.NewHandler(store, tokens, logger).RegisterRoutes(api, authed)
		wallet.NewHandler(walletManager, logger).RegisterRoutes(authed)
		remittance.NewHandler(remittanceService, logger).RegisterRoutes(authed)
		marketplace.NewHandler(marketplaceService, logger).RegisterRoutes(authed)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		busy := 0
		store.Each(func(sess *session.Session) {
			if sess.Busy() {
				busy++
			}
		})
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"network":       cfg.Sui.Network,
			"sessions":      store.Size(),
			"busy_sessions": busy,
			"wallets":       walletManager.ConnectionCount(),
			"timestamp":     time.Now(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr), zap.Bool("database", cfg.Database.Enabled))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	if tracker != nil {
		tracker.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
