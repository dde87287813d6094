package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ClubSend/internal/api"
	"ClubSend/internal/config"
	"ClubSend/internal/db"
	"ClubSend/internal/email"
	"ClubSend/internal/jobs"
	"ClubSend/internal/metrics"
	"ClubSend/internal/models"
	"ClubSend/internal/sender"
	"ClubSend/internal/worker"
)

func main() {

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
	}

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Email
	// ------------------------------------------------
	renderer, err := email.NewRenderer()
	if err != nil {
		logger.Fatal("failed to load email templates", zap.Error(err))
	}

	var gateway email.Gateway
	switch cfg.EmailProvider {
	case config.ProviderSMTP:
		gateway = &email.SMTPGateway{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Retries:  cfg.SendRetries,
		}
	default:
		gateway = email.NewResendGateway(cfg.ResendAPIKey, cfg.SendRetries)
	}
	logger.Info("email gateway configured", zap.String("provider", cfg.EmailProvider))

	announcer := sender.New(store, gateway, renderer, sender.Config{
		BaseURL:   cfg.BaseURL,
		From:      cfg.EmailFrom,
		ReplyTo:   cfg.EmailReplyTo,
		SendDelay: cfg.SendDelay,
		TokenTTL:  cfg.TokenTTL,
	}, logger)

	// ------------------------------------------------
	// Jobs
	// ------------------------------------------------
	service := &jobs.Service{
		Store:      store,
		Sender:     announcer,
		Log:        logger,
		StaleAfter: cfg.StaleJobAfter,
	}

	// ------------------------------------------------
	// Worker Pool (shared by API + scheduler)
	// ------------------------------------------------
	queue := make(chan *models.EmailJob, cfg.QueueSize)

	var wg sync.WaitGroup
	worker.StartPool(ctx, &wg, cfg.WorkerCount, queue, service, logger)

	dispatcher := &worker.Dispatcher{
		Runner: service,
		Queue:  queue,
		Log:    logger,
	}

	// ------------------------------------------------
	// Scheduler
	// ------------------------------------------------
	var scheduler *worker.Scheduler
	if cfg.DispatchSchedule != "" {
		scheduler, err = worker.NewScheduler(ctx, cfg.DispatchSchedule, dispatcher, logger)
		if err != nil {
			logger.Fatal("invalid dispatch schedule", zap.Error(err))
		}
		scheduler.Start()
	}

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	gin.SetMode(gin.ReleaseMode)

	apiHandler := &api.Handler{
		Jobs:       service,
		Dispatcher: dispatcher,
		Log:        logger,
	}

	router := api.NewRouter(apiHandler, api.RouterConfig{
		TriggerRate:  rate.Limit(cfg.TriggerRateLimit),
		TriggerBurst: cfg.TriggerBurst,
		CronSecret:   cfg.CronSecret,
	}, logger)

	apiServer := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop producing jobs before waiting on the workers
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	wg.Wait()

	// A dispatch racing the shutdown may have buffered a job after the workers left
	if n := worker.Drain(ctx, queue, service); n > 0 {
		logger.Warn("failed buffered jobs after workers stopped", zap.Int("count", n))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
