package main

import (
	"context"
	"log"

	"storefront-api/internal/app"
	"storefront-api/internal/bootstrap"
	"storefront-api/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	r := gin.Default()

	// build dependency + routes
	runtime, err := app.BuildApp(r, cfg, logger)
	if err != nil {
		logger.Fatal("app build failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime.Start(ctx)

	if err := bootstrap.StartHTTPServer(r, bootstrap.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
