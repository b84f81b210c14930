package staticquote

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const sheet = `symbol,name,price
# demo prices
AAPL, Apple Inc., 150.00
msft,Microsoft Corporation,410.555
NFLX,,600
`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(sheet), &mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())

	tests := []struct {
		symbol string
		name   string
		price  domain.Money
	}{
		{"AAPL", "Apple Inc.", 15000},
		{"MSFT", "Microsoft Corporation", 41056},
		{"NFLX", "NFLX", 60000},
	}
	for _, tt := range tests {
		q, err := p.Lookup(context.Background(), tt.symbol)
		require.NoError(t, err, tt.symbol)
		assert.Equal(t, tt.symbol, q.Symbol)
		assert.Equal(t, tt.name, q.Name)
		assert.Equal(t, tt.price, q.Price)
		assert.False(t, q.FetchedAt.IsZero())
	}

	_, err = p.Lookup(context.Background(), "TSLA")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"bad price":      "AAPL,Apple,abc\n",
		"zero price":     "AAPL,Apple,0\n",
		"negative price": "AAPL,Apple,-1\n",
		"wrong columns":  "AAPL,150\n",
		"empty symbol":   ",Apple,1\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input), &mockLogger{})
			assert.Error(t, err)
		})
	}

	_, err := Parse(strings.NewReader(sheet), nil)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(path, []byte(sheet), 0o600))

	p, err := Load(path, &mockLogger{})
	require.NoError(t, err)
	q, err := p.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(15000), q.Price)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), &mockLogger{})
	assert.Error(t, err)
}

func TestSetAndCanceledContext(t *testing.T) {
	p, err := Parse(strings.NewReader(""), &mockLogger{})
	require.NoError(t, err)
	p.Set(domain.Quote{Symbol: "X", Name: "X Corp", Price: 1})

	q, err := p.Lookup(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1), q.Price)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Lookup(ctx, "X")
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}
