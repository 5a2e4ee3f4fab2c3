package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-results-api/api/swagger"
	"github.com/noah-isme/sma-results-api/internal/app"
	"github.com/noah-isme/sma-results-api/internal/handler"
	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
)

// @title SMA Results API
// @version 1.0.0
// @description Grade derivation, result reports and data consistency for secondary school exams
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise services", zap.Error(err))
	}
	defer container.Close()

	container.Queue.Start(ctx)
	go func() {
		if err := container.Grading.Watch(ctx); err != nil {
			logr.Error("grading reload listener stopped", zap.Error(err))
		}
	}()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(container.Metrics))
	r.Use(middleware.WithResponseMeta(container.Registry))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Results:     handler.NewResultHandler(container.Results),
		Reports:     handler.NewReportHandler(container.Reports),
		Consistency: handler.NewConsistencyHandler(container.Consistency),
		Grading:     handler.NewGradingHandler(container.Grading),
		Metrics:     handler.NewMetricsHandler(container.Metrics, container.DB, container.Grading),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
