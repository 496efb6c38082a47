package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront-api/internal/pkg/apperror"

	"go.uber.org/zap"
)

//go:generate mockgen -source=gateway.go -destination=../mock/cart/gateway_mock.go -package=mock

// Gateway issues cart mutations against the upstream commerce API. Every
// operation returns the server-confirmed slice of cart state; the server is
// the only party that computes totals. AddLine is not idempotent upstream,
// so callers guard against duplicate submission.
type Gateway interface {
	Fetch(ctx context.Context, userID string) (Cart, error)
	AddLine(ctx context.Context, userID string, productID int64, variantID *int64, quantity int) (AddLineResult, error)
	UpdateLine(ctx context.Context, cartItemID int64, quantity int) (Totals, error)
	RemoveLine(ctx context.Context, cartItemID int64) (Totals, error)
	Clear(ctx context.Context, userID string) (Cart, error)
	ApplyDiscount(ctx context.Context, userID, code string) (Cart, error)
	RemoveDiscount(ctx context.Context, userID string) (Cart, error)
	UpdateShipping(ctx context.Context, userID string, info ShippingInfo) (Cart, error)
}

// TokenSource yields the bearer token to forward upstream for the current
// request. Passed in explicitly instead of read from a late-bound global.
type TokenSource interface {
	Token(ctx context.Context) string
}

type TokenSourceFunc func(ctx context.Context) string

func (f TokenSourceFunc) Token(ctx context.Context) string { return f(ctx) }

type GatewayConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type httpGateway struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
	logger  *zap.Logger
}

func NewHTTPGateway(cfg GatewayConfig) (Gateway, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
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

	return &httpGateway{
		base:    u,
		http:    client,
		tokens:  cfg.Tokens,
		timeout: timeout,
		logger:  logger.Named("cart.gateway"),
	}, nil
}

type userRef struct {
	ID string `json:"id"`
}

type addLinePayload struct {
	User      userRef `json:"user"`
	ProductID int64   `json:"product_id"`
	VariantID *int64  `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
}

type updateLinePayload struct {
	Quantity int `json:"quantity"`
}

type userPayload struct {
	User userRef `json:"user"`
}

type discountPayload struct {
	User         userRef `json:"user"`
	DiscountCode string  `json:"discount_code"`
}

type shippingPayload struct {
	User              userRef `json:"user"`
	ShippingAddressID int64   `json:"shipping_address_id"`
	Note              string  `json:"note,omitempty"`
}

func (g *httpGateway) Fetch(ctx context.Context, userID string) (Cart, error) {
	var out Cart
	err := g.do(ctx, http.MethodGet, "/api/cart", "userId="+url.QueryEscape(userID), nil, &out,
		"Error fetching cart", ErrCartNotFound)
	return out, err
}

func (g *httpGateway) AddLine(ctx context.Context, userID string, productID int64, variantID *int64, quantity int) (AddLineResult, error) {
	var out AddLineResult
	payload := addLinePayload{
		User:      userRef{ID: userID},
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	}
	err := g.do(ctx, http.MethodPost, "/api/cart", "", payload, &out,
		"Error adding item to cart", nil)
	return out, err
}

func (g *httpGateway) UpdateLine(ctx context.Context, cartItemID int64, quantity int) (Totals, error) {
	var out Totals
	err := g.do(ctx, http.MethodPut, "/api/cart/"+strconv.FormatInt(cartItemID, 10), "",
		updateLinePayload{Quantity: quantity}, &out,
		"Error updating cart item", ErrLineNotFound)
	return out, err
}

func (g *httpGateway) RemoveLine(ctx context.Context, cartItemID int64) (Totals, error) {
	var out Totals
	err := g.do(ctx, http.MethodDelete, "/api/cart/"+strconv.FormatInt(cartItemID, 10), "",
		nil, &out,
		"Error removing item from cart", ErrLineNotFound)
	return out, err
}

func (g *httpGateway) Clear(ctx context.Context, userID string) (Cart, error) {
	var out Cart
	err := g.do(ctx, http.MethodDelete, "/api/cart/clear", "",
		userPayload{User: userRef{ID: userID}}, &out,
		"Error clearing cart", ErrCartNotFound)
	return out, err
}

func (g *httpGateway) ApplyDiscount(ctx context.Context, userID, code string) (Cart, error) {
	var out Cart
	err := g.do(ctx, http.MethodPost, "/api/cart/apply-discount", "",
		discountPayload{User: userRef{ID: userID}, DiscountCode: code}, &out,
		"Error applying discount", ErrInvalidDiscount)
	if err != nil {
		// The server is authoritative on eligibility; any business
		// rejection of the code surfaces as InvalidDiscount.
		switch apperror.CodeOf(err) {
		case apperror.CodeInvalidInput, apperror.CodeUnprocessable:
			var appErr *apperror.AppError
			msg := ""
			if errors.As(err, &appErr) {
				msg = appErr.Message
			}
			return out, ErrInvalidDiscount.WithMessage(msg)
		}
	}
	return out, err
}

func (g *httpGateway) RemoveDiscount(ctx context.Context, userID string) (Cart, error) {
	var out Cart
	err := g.do(ctx, http.MethodDelete, "/api/cart/remove-discount", "",
		userPayload{User: userRef{ID: userID}}, &out,
		"Error removing discount", ErrCartNotFound)
	return out, err
}

func (g *httpGateway) UpdateShipping(ctx context.Context, userID string, info ShippingInfo) (Cart, error) {
	var out Cart
	err := g.do(ctx, http.MethodPut, "/api/cart/shipping", "",
		shippingPayload{
			User:              userRef{ID: userID},
			ShippingAddressID: info.ShippingAddressID,
			Note:              info.Note,
		}, &out,
		"Error updating shipping info", ErrCartNotFound)
	return out, err
}

// envelope matches the upstream response shape: data on success, message on
// failure. A missing message falls back to the per-operation default.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (g *httpGateway) do(ctx context.Context, method, path, rawQuery string, payload, out any, fallbackMsg string, notFound *apperror.AppError) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	rel := &url.URL{Path: path, RawQuery: rawQuery}
	u := g.base.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := g.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := g.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.Warn("upstream timeout", zap.String("method", method), zap.String("path", path))
			return ErrUpstreamTimeout
		}
		g.logger.Warn("upstream unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return ErrUpstreamUnavailable
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return ErrUpstreamUnavailable
	}

	var env envelope
	if len(raw) > 0 {
		// Tolerate an empty or non-JSON error body; normalization below
		// falls back to the per-operation message.
		_ = json.Unmarshal(raw, &env)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return g.normalize(res.StatusCode, env.Message, fallbackMsg, notFound)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding upstream response: %w", err)
		}
	}
	return nil
}

func (g *httpGateway) normalize(status int, upstreamMsg, fallbackMsg string, notFound *apperror.AppError) error {
	msg := upstreamMsg
	if msg == "" {
		msg = fallbackMsg
	}

	switch {
	case status == http.StatusNotFound && notFound != nil:
		return notFound.WithMessage(upstreamMsg)
	case status == http.StatusBadRequest:
		return apperror.New(apperror.CodeInvalidInput, msg, http.StatusBadRequest)
	case status == http.StatusUnprocessableEntity:
		return apperror.New(apperror.CodeUnprocessable, msg, http.StatusUnprocessableEntity)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperror.New(apperror.CodeUnauthorized, msg, status)
	case status == http.StatusGatewayTimeout:
		return ErrUpstreamTimeout
	case status >= http.StatusInternalServerError:
		return ErrUpstreamUnavailable.WithMessage(msg)
	default:
		return apperror.New(apperror.CodeInternalError, msg, status)
	}
}
