package app

import (
	"context"

	"storefront-api/internal/cart"
	"storefront-api/internal/config"
	"storefront-api/internal/events"
	"storefront-api/internal/middleware"
	"storefront-api/internal/pricing"
	"storefront-api/internal/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runtime owns the background workers built alongside the router.
type Runtime struct {
	registry *cart.Registry
	emitter  *events.KafkaEmitter
}

// Start runs the registry janitor and the event emitter until ctx is done.
func (r *Runtime) Start(ctx context.Context) {
	go r.registry.Run(ctx)
	if r.emitter != nil {
		go r.emitter.Run(ctx)
	}
}

// BuildApp wires infrastructure, modules and routes onto the router.
func BuildApp(router *gin.Engine, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	// 1. Setup Infrastructure
	redisClient, err := connectRedisWithRetry(cfg.Redis.Addr, 5, logger)
	if err != nil {
		return nil, err
	}

	kafkaWriter, err := connectKafkaWithRetry(cfg.Kafka.Broker, cfg.Kafka.Topic, 5, logger)
	if err != nil {
		return nil, err
	}

	// 2. Upstream clients. The bearer token always comes off the request
	// context, never shared session state.
	tokens := cart.TokenSourceFunc(middleware.TokenFromContext)

	gateway, err := cart.NewHTTPGateway(cart.GatewayConfig{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Tokens:  tokens,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	productClient, err := product.NewClient(product.ClientConfig{
		BaseURL:  cfg.Upstream.BaseURL,
		Timeout:  cfg.Upstream.Timeout,
		Tokens:   middleware.TokenFromContext,
		Cache:    redisClient,
		CacheTTL: cfg.Redis.ProductTTL,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	historyClient, err := pricing.NewHistoryClient(pricing.HistoryClientConfig{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Tokens:  middleware.TokenFromContext,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	// 3. Modules
	emitter := events.NewKafkaEmitter(kafkaWriter, logger)
	registry := cart.NewRegistry(gateway, cfg.Cart.StoreIdleTTL, logger)

	cartHandler := cart.NewHandler(registry, productClient, emitter, cfg.Cart.FreeShippingThreshold, logger)
	pricingHandler := pricing.NewHandler(historyClient, logger)

	// 4. Routes
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1")
	{
		cart.RegisterRoutes(api, cartHandler, cfg.Auth.JWTSecret)
		pricing.RegisterRoutes(api, pricingHandler, cfg.Auth.JWTSecret)
	}

	return &Runtime{registry: registry, emitter: emitter}, nil
}
