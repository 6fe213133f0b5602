package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-retake-api/api/swagger"
	"github.com/noah-isme/academy-retake-api/internal/handler"
	"github.com/noah-isme/academy-retake-api/internal/middleware"
	"github.com/noah-isme/academy-retake-api/internal/repository"
	"github.com/noah-isme/academy-retake-api/internal/service"
	"github.com/noah-isme/academy-retake-api/pkg/cache"
	"github.com/noah-isme/academy-retake-api/pkg/config"
	"github.com/noah-isme/academy-retake-api/pkg/database"
	"github.com/noah-isme/academy-retake-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-retake-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-retake-api/pkg/middleware/requestid"
)

// @title Academy Retake API
// @version 0.1.0
// @description Retake lifecycle and audit-trail engine
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis only backs the feed cache, run without it rather than fail.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, history feed cache disabled", zap.Error(err))
		redisClient = nil
	}

	retakeRepo := repository.NewRetakeRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	retakeSvc := service.NewRetakeService(retakeRepo, directoryRepo, cacheRepo, metricsSvc, validate, logr)
	historySvc := service.NewHistoryService(historyRepo, retakeRepo, cacheRepo, metricsSvc, cfg.Retake, logr)
	exportSvc := service.NewExportService(retakeSvc, cfg.Retake.ExportMaxRows, logr)

	retakeHandler := handler.NewRetakeHandler(retakeSvc)
	historyHandler := handler.NewHistoryHandler(historySvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Actor(cfg.Actor.TokenSecret))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", handler.Metrics(metricsSvc))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/retakes", retakeHandler.AssignBatch)
		api.GET("/retakes", retakeHandler.List)
		api.GET("/retakes/export", exportHandler.Export)
		api.GET("/retakes/history", historyHandler.Recent)
		api.GET("/retakes/:id", retakeHandler.Get)
		api.DELETE("/retakes/:id", retakeHandler.Delete)
		api.POST("/retakes/:id/postpone", retakeHandler.Postpone)
		api.POST("/retakes/:id/absent", retakeHandler.MarkAbsent)
		api.POST("/retakes/:id/complete", retakeHandler.Complete)
		api.POST("/retakes/:id/date", retakeHandler.EditDate)
		api.POST("/retakes/:id/management-status", retakeHandler.ChangeManagementStatus)
		api.GET("/retakes/:id/history", historyHandler.ForAssignment)
		api.GET("/retakes/:id/consistency", historyHandler.Consistency)
		api.GET("/management-statuses", retakeHandler.ManagementStatuses)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
