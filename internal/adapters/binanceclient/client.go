package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.QuoteProvider interface on top of the Binance
// futures 24h ticker, using the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	now           func() time.Time
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string // Overrides the production/testnet URL when set
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	// Tickers are public; keys are only forwarded when configured.
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance quote client configured", map[string]interface{}{"baseURL": client.BaseURL})

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		now:           time.Now,
	}, nil
}

// Name identifies the provider in logs.
func (c *Client) Name() string { return "binance" }

// Lookup returns the last traded price of a futures symbol such as BTCUSDT.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	op := "Lookup"
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%s failed: no ticker data returned for symbol %s: %w", op, symbol, ports.ErrNotFound)
	}

	quote, err := translateTicker(tickers[0], symbol, c.now())
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": quote.Symbol, "price": quote.Price.Plain()})
	return quote, nil
}

// Ping checks connectivity to the Binance API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "Ping")
	}
	return nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		mappedErr := mapAPIErrorCode(apiErr.Code)
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		if errors.Is(mappedErr, ports.ErrNotFound) {
			c.logger.Debug(ctx, fmt.Sprintf("%s: unknown symbol", operation), fields)
		} else {
			c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		}
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, ports.ErrMalformedQuote) {
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	} else if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// mapAPIErrorCode maps Binance error codes to ports errors.
func mapAPIErrorCode(code int64) error {
	switch code {
	case -1003: // Too many requests
		return ports.ErrRateLimited
	case -1021: // Timestamp for this request is outside of the recvWindow
		return ports.ErrTimeout
	case -1022, -2014, -2015: // Bad signature or API key
		return ports.ErrAuthenticationFailed
	case -1121, -1122: // Invalid symbol / symbol status
		return ports.ErrNotFound
	case -1001, -1007: // Disconnected / backend timeout
		return ports.ErrProviderUnavailable
	case -1100, -1101, -1102, -1103, -1104, -1105, -1106: // Parameter/Request format errors
		return ports.ErrInvalidRequest
	default:
		return ports.ErrUnknown
	}
}

// --- Helper Translation Functions ---

// translateTicker converts a 24h ticker into a domain quote rounded to the cent.
func translateTicker(t *futures.PriceChangeStats, requested string, fetchedAt time.Time) (*domain.Quote, error) {
	if t == nil {
		return nil, fmt.Errorf("nil ticker for %s: %w", requested, ports.ErrMalformedQuote)
	}
	last, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("could not parse price '%s': %w: %w", t.LastPrice, ports.ErrMalformedQuote, err)
	}
	if !last.IsPositive() {
		return nil, fmt.Errorf("non-positive price '%s' for %s: %w", t.LastPrice, requested, ports.ErrMalformedQuote)
	}
	price, err := domain.MoneyFromDecimal(last)
	if err != nil {
		return nil, fmt.Errorf("price '%s' out of range: %w: %w", t.LastPrice, ports.ErrMalformedQuote, err)
	}

	symbol := t.Symbol
	if symbol == "" {
		symbol = requested
	}
	return &domain.Quote{
		Symbol:    symbol,
		Name:      symbol, // Futures tickers carry no display name
		Price:     price,
		FetchedAt: fetchedAt,
	}, nil
}
