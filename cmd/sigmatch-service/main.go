package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/bootstrap"
	"github.com/AUW160150/Sigmatch/pkg/common/config"
	"github.com/AUW160150/Sigmatch/pkg/common/database"
	"github.com/AUW160150/Sigmatch/pkg/common/kafka"
	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/gateway/middleware"
	"github.com/AUW160150/Sigmatch/pkg/gateway/routes"
	"github.com/AUW160150/Sigmatch/pkg/observability/metrics"
	"github.com/AUW160150/Sigmatch/pkg/pipeline"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "sigmatch-service"})

	stores := bootstrap.Open(cfg)
	if _, err := stores.Initializer().Run(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize data directory")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.CorpusWatch {
		watcher, err := cohort.NewWatcher(stores.Corpus)
		if err != nil {
			logger.Log.WithError(err).Warn("Corpus watcher unavailable, relying on modification times")
		} else if err := watcher.Start(ctx); err != nil {
			logger.Log.WithError(err).Warn("Corpus watcher failed to start")
		} else {
			defer watcher.Stop()
		}
	}

	var cohortOpts []cohort.Option
	if cfg.AuditEnabled {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to audit database")
		}
		audit := cohort.NewAuditRepository(db)
		if err := audit.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("Failed to migrate audit schema")
		}
		cohortOpts = append(cohortOpts, cohort.WithAuditTrail(audit))
		defer database.ClosePostgres()
	}
	cohortService := cohort.NewService(stores.Corpus, cohortOpts...)

	pipelineOpts := []pipeline.Option{
		pipeline.WithCommand(cfg.PipelineInterpreter, cfg.PipelineScript),
	}
	if cfg.PipelineStatusBackend == "redis" {
		client := database.GetRedis(cfg)
		pipelineOpts = append(pipelineOpts, pipeline.WithStatusStore(pipeline.NewRedisStatusStore(client, pipeline.DefaultStatusKey)))
		defer database.CloseRedis()
	}
	if cfg.PipelineTopic != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.PipelineTopic)
		pipelineOpts = append(pipelineOpts, pipeline.WithPublisher(producer))
		defer producer.Close()
	}
	pipelineService := pipeline.NewService(stores.Config, pipelineOpts...)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.Metrics)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	routes.RegisterHealth(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	routes.NewConfigHandler(stores.Config, stores.Files).Register(router)
	routes.NewCohortHandler(stores.Corpus, cohortService, stores.Config).Register(router)
	routes.NewTrialHandler(stores.Trials).Register(router)
	routes.NewPromptHandler(stores.Prompts).Register(router)
	routes.NewPipelineHandler(pipelineService).Register(router)
	routes.NewResultsHandler(stores.Results).Register(router)
	routes.NewChatHandler(stores.Chat).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"data_dir": cfg.DataDir,
		}).Info("Sigmatch Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Sigmatch Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Sigmatch Service stopped")
}
