package binanceclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "logger is required")

	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, baseURLProduction, c.futuresClient.BaseURL)
	assert.Equal(t, "binance", c.Name())

	c, err = New(Config{Logger: &mockLogger{}, UseTestnet: true})
	require.NoError(t, err)
	assert.Equal(t, baseURLTestnet, c.futuresClient.BaseURL)

	c, err = New(Config{Logger: &mockLogger{}, UseTestnet: true, BaseURL: "http://localhost:9999/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", c.futuresClient.BaseURL)
}

func TestTranslateTicker(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name      string
		ticker    *futures.PriceChangeStats
		wantPrice domain.Money
		wantErr   bool
	}{
		{name: "whole cents", ticker: &futures.PriceChangeStats{Symbol: "BTCUSDT", LastPrice: "64000.12"}, wantPrice: 6400012},
		{name: "rounds half away from zero", ticker: &futures.PriceChangeStats{Symbol: "BTCUSDT", LastPrice: "64000.125"}, wantPrice: 6400013},
		{name: "rounds down", ticker: &futures.PriceChangeStats{Symbol: "DOGEUSDT", LastPrice: "0.1649"}, wantPrice: 16},
		{name: "garbage price", ticker: &futures.PriceChangeStats{Symbol: "BTCUSDT", LastPrice: "n/a"}, wantErr: true},
		{name: "zero price", ticker: &futures.PriceChangeStats{Symbol: "BTCUSDT", LastPrice: "0"}, wantErr: true},
		{name: "nil ticker", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := translateTicker(tt.ticker, "BTCUSDT", at)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrMalformedQuote)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, q.Price)
			assert.Equal(t, tt.ticker.Symbol, q.Symbol)
			assert.Equal(t, at, q.FetchedAt)
		})
	}
}

func TestMapAPIErrorCode(t *testing.T) {
	assert.ErrorIs(t, mapAPIErrorCode(-1121), ports.ErrNotFound)
	assert.ErrorIs(t, mapAPIErrorCode(-1003), ports.ErrRateLimited)
	assert.ErrorIs(t, mapAPIErrorCode(-2015), ports.ErrAuthenticationFailed)
	assert.ErrorIs(t, mapAPIErrorCode(-1001), ports.ErrProviderUnavailable)
	assert.ErrorIs(t, mapAPIErrorCode(-9999), ports.ErrUnknown)
}

func TestHandleError(t *testing.T) {
	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, c.handleError(ctx, nil, "op"))

	apiErr := &common.APIError{Code: -1121, Message: "Invalid symbol."}
	got := c.handleError(ctx, apiErr, "Lookup")
	assert.ErrorIs(t, got, ports.ErrNotFound)
	var unwrapped *common.APIError
	assert.ErrorAs(t, got, &unwrapped)

	assert.ErrorIs(t, c.handleError(ctx, context.DeadlineExceeded, "Lookup"), ports.ErrTimeout)
	assert.ErrorIs(t, c.handleError(ctx, context.Canceled, "Lookup"), ports.ErrContextCanceled)
	assert.ErrorIs(t, c.handleError(ctx, errors.New("dial tcp: connection refused"), "Lookup"), ports.ErrConnectionFailed)
	assert.ErrorIs(t, c.handleError(ctx, errors.New("weird"), "Lookup"), ports.ErrUnknown)
}

func TestLookup_AgainstFakeServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/24hr", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"64000.50","priceChange":"1.0"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	}))
	defer srv.Close()

	c, err := New(Config{Logger: &mockLogger{}, BaseURL: srv.URL})
	require.NoError(t, err)

	q, err := c.Lookup(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", q.Symbol)
	assert.Equal(t, domain.Money(6400050), q.Price)

	_, err = c.Lookup(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
