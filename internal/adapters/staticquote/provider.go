// Package staticquote serves quotes from a fixed CSV price sheet, for offline
// runs and demos.
package staticquote

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// Provider implements ports.QuoteProvider over an in-memory price sheet.
type Provider struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	logger ports.Logger
	now    func() time.Time
}

// Load reads a sheet from path. See Parse for the format.
func Load(path string, logger ports.Logger) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quote sheet '%s': %w", path, err)
	}
	defer f.Close()

	p, err := Parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("quote sheet '%s': %w", path, err)
	}
	logger.Info(context.Background(), "Static quote sheet loaded", map[string]interface{}{"path": path, "symbols": len(p.quotes)})
	return p, nil
}

// Parse reads "symbol,name,price" rows. A first row starting with "symbol" is
// treated as a header. Prices are rounded to the cent.
func Parse(r io.Reader, logger ports.Logger) (*Provider, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for static quote provider")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	p := &Provider{quotes: make(map[string]domain.Quote), logger: logger, now: time.Now}
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "symbol") {
			continue
		}
		if err := p.addRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
	}
	return p, nil
}

func (p *Provider) addRow(row []string) error {
	symbol := strings.ToUpper(strings.TrimSpace(row[0]))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(row[2]))
	if err != nil {
		return fmt.Errorf("invalid price %q for %s: %w", row[2], symbol, err)
	}
	price, err := domain.MoneyFromDecimal(d)
	if err != nil || price <= 0 {
		return fmt.Errorf("price %q for %s must be positive", row[2], symbol)
	}
	name := strings.TrimSpace(row[1])
	if name == "" {
		name = symbol
	}
	p.Set(domain.Quote{Symbol: symbol, Name: name, Price: price})
	return nil
}

// Set adds or replaces the quote for q.Symbol.
func (p *Provider) Set(q domain.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[q.Symbol] = q
}

// Name identifies the provider in logs.
func (p *Provider) Name() string { return "static" }

// Lookup returns the sheet price of symbol.
func (p *Provider) Lookup(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("quote %s: %w: %w", symbol, ports.ErrContextCanceled, err)
	}
	p.mu.RLock()
	q, ok := p.quotes[symbol]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("symbol %s not in quote sheet: %w", symbol, ports.ErrNotFound)
	}
	q.FetchedAt = p.now()
	return &q, nil
}
