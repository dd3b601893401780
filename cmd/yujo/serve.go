package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/api"
	"github.com/joacominatel/yujo/internal/infrastructure/auth"
	"github.com/joacominatel/yujo/internal/infrastructure/cache"
	"github.com/joacominatel/yujo/internal/infrastructure/config"
	"github.com/joacominatel/yujo/internal/infrastructure/database"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
	"github.com/joacominatel/yujo/internal/infrastructure/metrics"
	"github.com/joacominatel/yujo/internal/infrastructure/postgres"
	"github.com/joacominatel/yujo/internal/infrastructure/worker"
)

const (
	// congregationCacheTTL bounds how long a deactivation takes to reach submissions
	congregationCacheTTL = time.Minute

	bcryptCost = 12
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the http api",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			logger.Info("yujo starting up")

			if err := serve(logger); err != nil {
				logger.Error("application failed", "error", err.Error())
				return err
			}
			return nil
		},
	}
}

func serve(logger *logging.Logger) error {
	// load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		return err
	}

	// establish database connection
	conn, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	// run migrations
	migrator := database.NewMigrator(conn, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	// verify health after migrations
	if err := conn.HealthCheck(ctx); err != nil {
		return err
	}

	logger.Info("yujo infrastructure ready", "schema", conn.Schema())

	appMetrics := metrics.New()
	clock := application.InLocation(cfg.Reporting.Timezone)

	// repositories
	pool := conn.Pool()
	uow := postgres.NewUnitOfWork(pool)
	reportRepo := postgres.NewReportRepository(pool)
	credentialsRepo := postgres.NewCredentialsRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	webhookSubRepo := postgres.NewWebhookSubscriptionRepository(pool)

	// submissions resolve the congregation on every request, keep slugs in memory
	congregationRepo := cache.NewCongregationCache(postgres.NewCongregationRepository(pool), congregationCacheTTL, logger)

	healthChecks := map[string]api.HealthChecker{"database": conn}

	// redis (optional - disabled if REDIS_URL is empty)
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{URL: cfg.Redis.URL}, logger)
	if err != nil {
		logger.Error("failed to create redis client", "error", err.Error())
		return err
	}
	if redisClient != nil {
		if err := redisClient.Connect(ctx); err != nil {
			logger.Warn("redis connection failed, continuing without leaderboard cache", "error", err.Error())
			redisClient = nil
		} else {
			defer redisClient.Close()
			healthChecks["redis"] = redisClient
			logger.Info("redis leaderboard cache enabled")
		}
	}

	// writes drop the cached month boards they change
	var reportWriter domain.ReportRepository = reportRepo
	if redisClient != nil {
		reportWriter = application.NewLeaderboardSyncRepository(reportRepo, redisClient, logger).
			WithTimeProvider(clock)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go congregationRepo.RunCleanup(workerCtx, 5*congregationCacheTTL)

	// async report ingestion, submissions fall back to a direct write when full
	ingestionConfig := worker.DefaultReportIngestionConfig()
	ingestionConfig.BufferSize = cfg.Worker.BufferSize
	ingestionConfig.BatchSize = cfg.Worker.BatchSize
	ingestionConfig.FlushInterval = cfg.Worker.FlushInterval
	ingestionWorker := worker.NewReportIngestionWorker(reportWriter, ingestionConfig, logger).
		WithMetrics(appMetrics)
	ingestionWorker.Start(workerCtx)

	webhookWorker := worker.NewWebhookWorker(webhookSubRepo, worker.DefaultWebhookWorkerConfig(), logger).
		WithRecorder(appMetrics)
	webhookWorker.Start(workerCtx)

	hasher := auth.NewBcryptHasher(bcryptCost)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// use cases
	reportingConfig := application.DefaultReportingConfig()
	reportingConfig.RankingLimit = cfg.Reporting.RankingLimit
	if cfg.Reporting.IncludeUndated {
		reportingConfig.Undated = domain.UndatedInclude
	}
	reportingUseCase := application.NewReportingUseCase(reportRepo, congregationRepo, reportingConfig, logger).
		WithTimeProvider(clock).
		WithRecorder(appMetrics)
	if redisClient != nil {
		reportingUseCase = reportingUseCase.WithLeaderboard(redisClient)
	}

	submitReportUseCase := application.NewSubmitReportUseCase(reportWriter, congregationRepo, logger).
		WithQueue(ingestionWorker).
		WithMemberDirectory(memberRepo).
		WithRecorder(appMetrics).
		WithTimeProvider(clock)

	panelAuthUseCase := application.NewPanelAuthUseCase(congregationRepo, credentialsRepo, hasher, jwtManager, logger).
		WithTimeProvider(clock)
	congregationUseCase := application.NewCongregationUseCase(congregationRepo, credentialsRepo, uow, hasher, logger)
	membersUseCase := application.NewMembersUseCase(memberRepo, logger).WithTimeProvider(clock)
	notificationsUseCase := application.NewNotificationsUseCase(notificationRepo, webhookSubRepo, logger).
		WithDispatcher(webhookWorker)

	// http server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = ":" + cfg.HTTP.Port
	serverConfig.CORSOrigins = cfg.HTTP.CORSOrigins

	server := api.NewServer(serverConfig, logger)
	api.RegisterRoutes(server.Echo(), api.RouterConfig{
		SubmitReportUseCase:  submitReportUseCase,
		ReportingUseCase:     reportingUseCase,
		PanelAuthUseCase:     panelAuthUseCase,
		CongregationUseCase:  congregationUseCase,
		MembersUseCase:       membersUseCase,
		NotificationsUseCase: notificationsUseCase,
		TokenValidator:       jwtManager,
		AdminToken:           cfg.Auth.AdminToken,
		HealthChecks:         healthChecks,
		Logger:               logger,
		Metrics:              appMetrics,
	})

	// leaderboards only matter when there is somewhere to keep them
	if redisClient != nil {
		refresher := worker.NewLeaderboardRefreshWorker(
			reportingUseCase,
			cfg.Reporting.RefreshInterval,
			cfg.Reporting.RefreshConcurrency,
			logger,
		).WithRecorder(appMetrics)
		go refresher.Run(workerCtx)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server error", "error", err.Error())
		}
	}()

	// wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("yujo shutting down")

	// stop accepting requests before draining the buffers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		logger.Error("http server shutdown error", "error", shutdownErr.Error())
	}

	// close the buffers first so every queued report is written
	ingestionWorker.Stop()
	webhookWorker.Stop()
	workerCancel()

	logger.Info("yujo shutdown complete")
	return shutdownErr
}
