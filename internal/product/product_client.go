package product

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront-api/internal/pkg/apperror"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound = apperror.New(
		apperror.CodeNotFound,
		"Product not found",
		http.StatusNotFound,
	)

	ErrVariantNotFound = apperror.New(
		apperror.CodeNotFound,
		"Product variant not found",
		http.StatusNotFound,
	)

	errUpstream = apperror.New(
		apperror.CodeUpstreamUnavailable,
		"Product service is unreachable",
		http.StatusBadGateway,
	)
)

// Info is the slice of product data cart preconditions need: stock,
// variant-bearing flag and current price.
type Info struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ImageURL      string    `json:"image_url,omitempty"`
	HasVariant    bool      `json:"has_variant"`
	StockQuantity int       `json:"stock_quantity"`
	FinalPrice    int64     `json:"final_price"`
	OriginalPrice int64     `json:"original_price,omitempty"`
	Variants      []Variant `json:"variants,omitempty"`
}

type Variant struct {
	ID            int64  `json:"id"`
	Name          string `json:"name,omitempty"`
	StockQuantity int    `json:"stock_quantity"`
	FinalPrice    int64  `json:"final_price"`
}

// Resolve picks the stock and price for the chosen variant, or the base
// product when variantID is nil.
func Resolve(info Info, variantID *int64) (stock int, price int64, err error) {
	if variantID == nil {
		return info.StockQuantity, info.FinalPrice, nil
	}
	for _, v := range info.Variants {
		if v.ID == *variantID {
			return v.StockQuantity, v.FinalPrice, nil
		}
	}
	return 0, 0, ErrVariantNotFound
}

//go:generate mockgen -source=product_client.go -destination=../mock/product/product_client_mock.go -package=mock
type Client interface {
	Get(ctx context.Context, productID int64) (Info, error)
}

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     func(ctx context.Context) string
	HTTPClient *http.Client
	Cache      *redis.Client
	CacheTTL   time.Duration
	Logger     *zap.Logger
}

type httpClient struct {
	base     *url.URL
	http     *http.Client
	tokens   func(ctx context.Context) string
	timeout  time.Duration
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewClient(cfg ClientConfig) (Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url %q: %w", cfg.BaseURL, err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}

	return &httpClient{
		base:     u,
		http:     client,
		tokens:   cfg.Tokens,
		timeout:  timeout,
		cache:    cfg.Cache,
		cacheTTL: ttl,
		logger:   logger.Named("product.client"),
	}, nil
}

func cacheKey(productID int64) string {
	return "product:" + strconv.FormatInt(productID, 10)
}

// Get returns product info, served from the redis cache when fresh. Cache
// failures degrade to an upstream fetch.
func (c *httpClient) Get(ctx context.Context, productID int64) (Info, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey(productID)).Bytes(); err == nil {
			var info Info
			if json.Unmarshal(raw, &info) == nil {
				return info, nil
			}
		}
	}

	info, err := c.fetch(ctx, productID)
	if err != nil {
		return Info{}, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(info); err == nil {
			if err := c.cache.Set(ctx, cacheKey(productID), raw, c.cacheTTL).Err(); err != nil {
				c.logger.Warn("product cache write failed", zap.Int64("product_id", productID), zap.Error(err))
			}
		}
	}
	return info, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *httpClient) fetch(ctx context.Context, productID int64) (Info, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rel := &url.URL{Path: "/api/products/" + strconv.FormatInt(productID, 10)}
	u := c.base.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Info{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("product fetch failed", zap.Int64("product_id", productID), zap.Error(err))
		return Info{}, errUpstream
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Info{}, errUpstream
	}

	var env envelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return Info{}, ErrProductNotFound.WithMessage(env.Message)
	case res.StatusCode >= http.StatusBadRequest:
		return Info{}, errUpstream.WithMessage(env.Message)
	}

	var info Info
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return Info{}, fmt.Errorf("decoding product response: %w", err)
	}
	return info, nil
}
