// Package iexquote looks up stock quotes from an IEX Cloud compatible HTTP API.
package iexquote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

const (
	defaultBaseURL   = "https://cloud.iexapis.com"
	defaultPricePath = "$.latestPrice"
	defaultNamePath  = "$.companyName"
	maxBodyBytes     = 1 << 20
)

// Config holds configuration for the IEX client.
type Config struct {
	APIKey     string
	BaseURL    string       // Defaults to IEX Cloud
	PricePath  string       // JSONPath of the price in the quote payload
	NamePath   string       // JSONPath of the display name
	HTTPClient *http.Client // Defaults to a client with a 10s timeout
	Logger     ports.Logger
}

// Client implements ports.QuoteProvider against GET {base}/stable/stock/{symbol}/quote.
type Client struct {
	apiKey    string
	baseURL   string
	pricePath string
	namePath  string
	http      *http.Client
	logger    ports.Logger
	now       func() time.Time
}

// New creates a new IEX quote client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for IEX client")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for IEX client: %w", ports.ErrConfigurationError)
	}
	c := &Client{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		pricePath: cfg.PricePath,
		namePath:  cfg.NamePath,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
		now:       time.Now,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.pricePath == "" {
		c.pricePath = defaultPricePath
	}
	if c.namePath == "" {
		c.namePath = defaultNamePath
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	return c, nil
}

// Name identifies the provider in logs.
func (c *Client) Name() string { return "iex" }

// Lookup fetches the latest price of symbol.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	addr := fmt.Sprintf("%s/stable/stock/%s/quote?token=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w: %w", symbol, ports.ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, symbol, err)
	}
	if err := statusError(resp.StatusCode, symbol); err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			c.logger.Error(ctx, err, "IEX quote request failed", map[string]interface{}{"symbol": symbol, "status": resp.StatusCode})
		}
		return nil, err
	}

	quote, err := c.parseQuote(body, symbol)
	if err != nil {
		c.logger.Warn(ctx, "IEX returned an unusable quote", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return nil, err
	}
	c.logger.Debug(ctx, "IEX quote fetched", map[string]interface{}{"symbol": quote.Symbol, "price": quote.Price.Plain()})
	return quote, nil
}

func (c *Client) transportError(ctx context.Context, symbol string, err error) error {
	var mapped error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		mapped = ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		mapped = ports.ErrContextCanceled
	default:
		mapped = ports.ErrConnectionFailed
	}
	c.logger.Error(ctx, err, "IEX quote request failed", map[string]interface{}{"symbol": symbol})
	return fmt.Errorf("quote %s: %w: %w", symbol, mapped, err)
}

// statusError maps non-2xx responses to ports errors.
func statusError(status int, symbol string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("unknown symbol %s: %w", symbol, ports.ErrNotFound)
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusPaymentRequired:
		return fmt.Errorf("quote %s: status %d: %w", symbol, status, ports.ErrAuthenticationFailed)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("quote %s: %w", symbol, ports.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("quote %s: status %d: %w", symbol, status, ports.ErrProviderUnavailable)
	default:
		return fmt.Errorf("quote %s: status %d: %w", symbol, status, ports.ErrInvalidRequest)
	}
}

// parseQuote extracts the name and price from the payload. Numbers are kept as
// json.Number so the price reaches decimal without a float round trip.
func (c *Client) parseQuote(body []byte, symbol string) (*domain.Quote, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return nil, fmt.Errorf("decoding quote %s: %w: %w", symbol, ports.ErrMalformedQuote, err)
	}
	if jobj == nil {
		// IEX answers "Unknown symbol" with null on some plans.
		return nil, fmt.Errorf("empty quote for %s: %w", symbol, ports.ErrNotFound)
	}

	rawPrice, err := lookupPath(c.pricePath, jobj)
	if err != nil {
		return nil, fmt.Errorf("price of %s at %q: %w: %w", symbol, c.pricePath, ports.ErrMalformedQuote, err)
	}
	price, err := toDecimal(rawPrice)
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w: %w", symbol, ports.ErrMalformedQuote, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("non-positive price %s for %s: %w", price, symbol, ports.ErrMalformedQuote)
	}
	cents, err := domain.MoneyFromDecimal(price)
	if err != nil {
		return nil, fmt.Errorf("price of %s: %w: %w", symbol, ports.ErrMalformedQuote, err)
	}

	name := symbol
	if rawName, err := lookupPath(c.namePath, jobj); err == nil {
		if s, ok := rawName.(string); ok && strings.TrimSpace(s) != "" {
			name = s
		}
	}

	return &domain.Quote{Symbol: symbol, Name: name, Price: cents, FetchedAt: c.now()}, nil
}

// lookupPath evaluates path and unwraps single-element results.
func lookupPath(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, err
	}
	// jsonpath may return a list of one answer or the answer itself
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("no value at %q", path)
		}
		jval = jlist[0]
	}
	if jval == nil {
		return nil, fmt.Errorf("null value at %q", path)
	}
	return jval, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case float64:
		return decimal.NewFromFloat(x), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected price type %T", v)
	}
}
