package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ssmap-api/api/swagger"
	"github.com/noah-isme/ssmap-api/internal/events"
	"github.com/noah-isme/ssmap-api/internal/handler"
	"github.com/noah-isme/ssmap-api/internal/middleware"
	"github.com/noah-isme/ssmap-api/internal/repository"
	"github.com/noah-isme/ssmap-api/internal/service"
	"github.com/noah-isme/ssmap-api/pkg/cache"
	"github.com/noah-isme/ssmap-api/pkg/config"
	"github.com/noah-isme/ssmap-api/pkg/database"
	"github.com/noah-isme/ssmap-api/pkg/export"
	"github.com/noah-isme/ssmap-api/pkg/gradingscheme"
	"github.com/noah-isme/ssmap-api/pkg/jobs"
	"github.com/noah-isme/ssmap-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ssmap-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ssmap-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title SSMAP API
// @version 1.0.0
// @description Student performance aggregation for a network of schools
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Broadsheet.CacheEnabled
	var redisPing handler.Pinger
	if cacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, broadsheet cache disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			redisPing = handler.PingFunc(repo.Ping)
		}
	}

	var scheme *gradingscheme.Scheme
	if cfg.Grading.SchemeFile != "" {
		scheme, err = gradingscheme.Load(cfg.Grading.SchemeFile)
		if err != nil {
			logr.Fatal("failed to load grading scheme", zap.String("path", cfg.Grading.SchemeFile), zap.Error(err))
		}
	}

	persistence := repository.NewPersistenceRepository(db)
	schools := repository.NewSchoolRepository(persistence)
	schools.SetQueryObserver(metricsSvc.ObserveStoreQuery)

	validate := validator.New()
	locks := service.NewHubLocks()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Broadsheet.CacheTTL, logr, cacheEnabled)

	publisher := newPublisher(cfg.Events, metricsSvc, logr)
	defer publisher.Close() //nolint:errcheck

	registrySvc := service.NewRegistryService(schools, schools, cacheSvc, scheme.Template(), validate, logr)
	authSvc := service.NewAuthService(registrySvc, schools, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "ssmap-api",
		SuperAdminKey:     cfg.Registry.SuperAdminKey,
	})
	settingsSvc := service.NewSettingsService(schools, cacheSvc, locks, validate, logr)
	scoreSvc := service.NewScoreService(schools, cacheSvc, registrySvc, metricsSvc, locks, validate, logr)
	aggregationSvc := service.NewAggregationService(schools, cacheSvc, metricsSvc, cfg.Broadsheet.CacheTTL, logr)
	seriesSvc := service.NewSeriesService(schools, registrySvc, publisher, cacheSvc, metricsSvc, locks, logr)
	rewardSvc := service.NewRewardService(schools)
	networkSvc := service.NewNetworkService(schools, schools, cacheSvc, cfg.Broadsheet.CacheTTL, logr)
	exportSvc := service.NewExportService(aggregationSvc, logr, export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"database": db,
		"cache":    redisPing,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Registry:   handler.NewRegistryHandler(registrySvc),
		Settings:   handler.NewSettingsHandler(settingsSvc),
		Scores:     handler.NewScoreHandler(scoreSvc),
		Broadsheet: handler.NewBroadsheetHandler(aggregationSvc, exportSvc),
		Series:     handler.NewSeriesHandler(seriesSvc),
		Rewards:    handler.NewRewardHandler(rewardSvc),
		Network:    handler.NewNetworkHandler(networkSvc),
		Metrics:    metricsHandler,
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// newPublisher returns a queued Kafka publisher when events are enabled.
func newPublisher(cfg config.EventsConfig, metrics *service.MetricsService, logr *zap.Logger) events.Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logr.Info("series events disabled")
		return events.NopPublisher{}
	}
	kafka := events.NewKafkaPublisher(cfg.Brokers, cfg.SeriesTopic, logr)
	dispatcher := events.NewDispatcher(kafka, cfg.SeriesTopic, metrics, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logr.Named("events"),
	})
	dispatcher.Start(context.Background())
	return dispatcher
}
