// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stock-dashboard/backend-go/internal/api"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/cache"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/config"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/pipeline"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stock-dashboard/backend-go/internal/service"
	"github.com/andresuchdata/stock-dashboard/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	analysisCache, err := cache.NewAnalysisCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, analysis cache disabled")
		analysisCache = cache.NewNoopAnalysisCache()
	}
	defer analysisCache.Close()

	// Database is optional; without it only uploaded files can be analysed
	var repo service.InventoryRepository
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		repo = postgres.NewInventoryRepository(db)
	}

	// Initialize services
	analysisService := service.NewAnalysisService(pipeline.NewRunner(nil), repo, analysisCache, cfg.Analysis)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		AnalysisService: analysisService,
		MaxUploadMB:     cfg.Server.MaxUploadMB,
	}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Bool("database", analysisService.HasDatabase()).
			Bool("cache", cfg.Cache.Enabled).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
