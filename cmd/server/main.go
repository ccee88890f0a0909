package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/watchmystocks/server/internal/cache"
	"github.com/watchmystocks/server/internal/clients/prophetd"
	"github.com/watchmystocks/server/internal/clients/sp500"
	"github.com/watchmystocks/server/internal/clients/yahoo"
	"github.com/watchmystocks/server/internal/config"
	"github.com/watchmystocks/server/internal/database"
	"github.com/watchmystocks/server/internal/mailer"
	"github.com/watchmystocks/server/internal/modules/assistant"
	"github.com/watchmystocks/server/internal/modules/auth"
	"github.com/watchmystocks/server/internal/modules/dashboard"
	"github.com/watchmystocks/server/internal/modules/forecast"
	"github.com/watchmystocks/server/internal/modules/kpi"
	"github.com/watchmystocks/server/internal/modules/watchlist"
	"github.com/watchmystocks/server/internal/scheduler"
	"github.com/watchmystocks/server/internal/server"
	"github.com/watchmystocks/server/pkg/logger"
)

// Cron schedules, with a seconds field.
const (
	weeklyScreenSchedule  = "0 0 6 * * 1"  // Monday 6 AM
	nightlyBackupSchedule = "0 30 2 * * *" // 2:30 AM daily
	maintenanceSchedule   = "0 0 * * * *"  // hourly
)

func main() {
	// Configuration first so the log level is known
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting WatchMyStocks server")

	// Database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Shared infrastructure
	dataCache := cache.New(db.Conn())
	limiter := rate.NewLimiter(rate.Limit(cfg.MarketDataRateLimit), cfg.MarketDataBurst)
	market := yahoo.NewClient(limiter, log)
	models := prophetd.NewClient(cfg.ForecastServiceURL, log)
	universe := sp500.NewClient(sp500.DefaultSourceURL, log)

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, log)
	} else {
		mail = mailer.NewLog(log)
	}

	// Repositories and services
	userRepo := auth.NewRepository(db.Conn(), log)
	watchlistRepo := watchlist.NewRepository(db.Conn(), log)
	kpiRepo := kpi.NewRepository(db.Conn(), log)

	watchlistSvc := watchlist.NewService(watchlistRepo, log)
	authSvc := auth.NewService(userRepo, mail, auth.NewSigner(cfg.SessionSecret), cfg.BaseURL, watchlistSvc, log)
	sessions := auth.NewSessionManager(cfg.SessionSecret, !cfg.DevMode, userRepo, log)

	dashboardSvc := dashboard.NewService(market, dataCache, cfg.CacheTTL, cfg.IntradayCacheTTL, log)
	forecastSvc := forecast.NewService(market, models, log)
	kpiSvc := kpi.NewService(universe, market, kpiRepo, log)

	conversations := assistant.NewStore()
	var chat assistant.ChatClient
	if c := assistant.NewOpenAIClient(cfg.OpenAIAPIKey); c != nil {
		chat = c
	} else {
		log.Warn().Msg("No OpenAI API key configured, assistant runs in local-only mode")
	}
	assistantSvc := assistant.NewService(conversations, chat, dashboardSvc, log)

	// Warm the cache for the guest landing page. Best effort.
	go func() {
		if _, err := dashboardSvc.Performance(watchlist.FallbackSymbols(), "12M"); err != nil {
			log.Debug().Err(err).Msg("Startup price prefetch failed")
		}
	}()

	// Background jobs
	sched := scheduler.New(log)
	screenJob := kpi.NewScreenJob(kpiSvc)
	backupJob := scheduler.NewBackupJob(db, cfg.BackupBucket, cfg.BackupRegion, log)
	maintenanceJob := scheduler.NewFuncJob("maintenance", func() error {
		conversations.PruneIdle()
		return dataCache.PurgeExpired()
	})

	if err := sched.AddJob(weeklyScreenSchedule, screenJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register screen job")
	}
	if err := sched.AddJob(nightlyBackupSchedule, backupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register backup job")
	}
	if err := sched.AddJob(maintenanceSchedule, maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		DB:       db,
		Sessions: sessions,
		Modules: []server.RouteRegistrar{
			auth.NewHandlers(authSvc, sessions, log),
			watchlist.NewHandlers(watchlistSvc, sessions, market, log),
			dashboard.NewHandlers(dashboardSvc, log),
			forecast.NewHandlers(forecastSvc, sessions, userRepo, watchlistSvc, log),
			kpi.NewHandlers(kpiSvc, log),
			assistant.NewHandlers(assistantSvc, sessions, watchlistSvc, log),
		},
		Scheduler: sched,
		ScreenJob: screenJob,
		BackupJob: backupJob,
		DevMode:   cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
