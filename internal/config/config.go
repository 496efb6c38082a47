package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Cart     CartConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig points at the commerce API that owns carts, products and
// pricing. Every request inside Timeout fails with an upstream-timeout error
// instead of hanging.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type RedisConfig struct {
	Addr       string
	ProductTTL time.Duration
}

type KafkaConfig struct {
	Broker string
	Topic  string
}

type CartConfig struct {
	// FreeShippingThreshold is the subtotal (VND) at which shipping becomes
	// free; only drives the progress projection, never checkout eligibility.
	FreeShippingThreshold int64
	// StoreIdleTTL is how long an untouched per-user cart store survives
	// before the registry evicts it.
	StoreIdleTTL time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:8080"),
			Timeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			ProductTTL: getEnvDuration("PRODUCT_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:  getEnv("KAFKA_CART_TOPIC", "cart.activity"),
		},
		Cart: CartConfig{
			FreeShippingThreshold: getEnvInt64("FREE_SHIPPING_THRESHOLD", 500_000),
			StoreIdleTTL:          getEnvDuration("CART_STORE_IDLE_TTL", 30*time.Minute),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
