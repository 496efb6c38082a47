package pricing

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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errHistoryUpstream = apperror.New(
	apperror.CodeUpstreamUnavailable,
	"Price history service is unreachable",
	http.StatusBadGateway,
)

// PricePoint is one recorded price change for a product or variant.
type PricePoint struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	VariantID *int64    `json:"variant_id,omitempty"`
	OldPrice  int64     `json:"old_price"`
	NewPrice  int64     `json:"new_price"`
	ChangedAt time.Time `json:"changed_at"`
}

// ChangePercent is the relative price change, rounded to two decimals.
// Zero when the old price is unknown.
func ChangePercent(p PricePoint) decimal.Decimal {
	if p.OldPrice == 0 {
		return decimal.Zero
	}
	oldPrice := decimal.NewFromInt(p.OldPrice)
	newPrice := decimal.NewFromInt(p.NewPrice)
	return newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100)).Round(2)
}

type HistoryPage struct {
	Points     []PricePoint `json:"points"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalItems int64        `json:"total_items"`
}

type ListParams struct {
	Page     int
	PageSize int
}

//go:generate mockgen -source=history.go -destination=../mock/pricing/history_client_mock.go -package=mock
type HistoryClient interface {
	Product(ctx context.Context, productID int64) ([]PricePoint, error)
	Variant(ctx context.Context, variantID int64) ([]PricePoint, error)
	List(ctx context.Context, params ListParams) (HistoryPage, error)
}

type HistoryClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     func(ctx context.Context) string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type historyClient struct {
	base    *url.URL
	http    *http.Client
	tokens  func(ctx context.Context) string
	timeout time.Duration
	logger  *zap.Logger
}

func NewHistoryClient(cfg HistoryClientConfig) (HistoryClient, error) {
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
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}

	return &historyClient{
		base:    u,
		http:    client,
		tokens:  cfg.Tokens,
		timeout: timeout,
		logger:  logger.Named("pricing.history"),
	}, nil
}

func (c *historyClient) Product(ctx context.Context, productID int64) ([]PricePoint, error) {
	var out []PricePoint
	err := c.get(ctx, "/api/price-history/products/"+strconv.FormatInt(productID, 10), "", &out)
	return out, err
}

func (c *historyClient) Variant(ctx context.Context, variantID int64) ([]PricePoint, error) {
	var out []PricePoint
	err := c.get(ctx, "/api/price-history/variants/"+strconv.FormatInt(variantID, 10), "", &out)
	return out, err
}

func (c *historyClient) List(ctx context.Context, params ListParams) (HistoryPage, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("limit", strconv.Itoa(params.PageSize))
	}

	var out HistoryPage
	err := c.get(ctx, "/api/price-history", q.Encode(), &out)
	return out, err
}

type historyEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *historyClient) get(ctx context.Context, path, rawQuery string, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rel := &url.URL{Path: path, RawQuery: rawQuery}
	u := c.base.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("price history fetch failed", zap.String("path", path), zap.Error(err))
		return errHistoryUpstream
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errHistoryUpstream
	}

	var env historyEnvelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return apperror.New(apperror.CodeNotFound, "Price history not found", http.StatusNotFound).WithMessage(env.Message)
	case res.StatusCode >= http.StatusBadRequest:
		return errHistoryUpstream.WithMessage(env.Message)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding price history response: %w", err)
		}
	}
	return nil
}
