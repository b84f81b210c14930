package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paperTrader/internal/app"
	"paperTrader/internal/domain"
	"paperTrader/internal/utils"
)

// LedgerHandler handles HTTP requests for account, trade and quote endpoints.
type LedgerHandler struct {
	svc *app.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(svc *app.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// openAccountRequest is the JSON request body for POST /accounts.
type openAccountRequest struct {
	InitialCash *domain.Money `json:"initial_cash"`
}

// tradeRequest is the JSON request body for POST /accounts/{account_id}/buy and /sell.
type tradeRequest struct {
	Symbol string          `json:"symbol"`
	Shares json.RawMessage `json:"shares"` // String or number; validated by the engine
}

type accountResponse struct {
	AccountID   string       `json:"account_id"`
	Cash        domain.Money `json:"cash"`
	CashDisplay string       `json:"cash_display"`
	CreatedAt   string       `json:"created_at"`
}

type tradeResponse struct {
	Seq         int64        `json:"seq"`
	Side        string       `json:"side"`
	Symbol      string       `json:"symbol"`
	Name        string       `json:"name"`
	Shares      int64        `json:"shares"`
	Price       domain.Money `json:"price"`
	Total       domain.Money `json:"total"`
	Cash        domain.Money `json:"cash"`
	CashDisplay string       `json:"cash_display"`
	ExecutedAt  string       `json:"executed_at"`
}

type portfolioLineResponse struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name"`
	Shares int64        `json:"shares"`
	Price  domain.Money `json:"price"`
	Value  domain.Money `json:"value"`
	Stale  bool         `json:"stale"`
}

type portfolioResponse struct {
	AccountID         string                  `json:"account_id"`
	Holdings          []portfolioLineResponse `json:"holdings"`
	EquityValue       domain.Money            `json:"equity_value"`
	Cash              domain.Money            `json:"cash"`
	GrandTotal        domain.Money            `json:"grand_total"`
	GrandTotalDisplay string                  `json:"grand_total_display"`
}

type historyEntryResponse struct {
	Seq        int64        `json:"seq"`
	Side       string       `json:"side"`
	Symbol     string       `json:"symbol"`
	Shares     int64        `json:"shares"` // Signed: positive for a buy
	Price      domain.Money `json:"price"`
	ExecutedAt string       `json:"executed_at"`
}

type historyResponse struct {
	AccountID    string                 `json:"account_id"`
	Transactions []historyEntryResponse `json:"transactions"`
}

type quoteResponse struct {
	Symbol       string       `json:"symbol"`
	Name         string       `json:"name"`
	Price        domain.Money `json:"price"`
	PriceDisplay string       `json:"price_display"`
}

type discrepancyResponse struct {
	Symbol   string `json:"symbol"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

type reconcileResponse struct {
	AccountID     string                `json:"account_id"`
	Clean         bool                  `json:"clean"`
	Holdings      int                   `json:"holdings"`
	Transactions  int                   `json:"transactions"`
	Discrepancies []discrepancyResponse `json:"discrepancies"`
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func toAccountResponse(acc *domain.Account) accountResponse {
	return accountResponse{
		AccountID:   acc.ID,
		Cash:        acc.Cash,
		CashDisplay: acc.Cash.String(),
		CreatedAt:   formatTime(acc.CreatedAt),
	}
}

// OpenAccount handles POST /accounts.
func (h *LedgerHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	acc, err := h.svc.OpenAccount(r.Context(), req.InitialCash)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// GetAccount handles GET /accounts/{account_id}.
func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Account(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(acc))
}

// Buy handles POST /accounts/{account_id}/buy.
func (h *LedgerHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.svc.Buy)
}

// Sell handles POST /accounts/{account_id}/sell.
func (h *LedgerHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.svc.Sell)
}

type tradeFunc func(ctx context.Context, accountID, symbol, rawShares string) (*app.TradeResult, error)

func (h *LedgerHandler) trade(w http.ResponseWriter, r *http.Request, exec tradeFunc) {
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := exec(r.Context(), chi.URLParam(r, "account_id"), req.Symbol, rawShares(req.Shares))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	shares := res.Record.Shares
	if shares < 0 {
		shares = -shares
	}
	total, _ := res.Record.Price.MulShares(shares) // fits: the engine computed it
	WriteJSON(w, http.StatusOK, tradeResponse{
		Seq:         res.Record.Seq,
		Side:        string(res.Record.Side()),
		Symbol:      res.Record.Symbol,
		Name:        res.Quote.Name,
		Shares:      shares,
		Price:       res.Record.Price,
		Total:       total,
		Cash:        res.Cash,
		CashDisplay: res.Cash.String(),
		ExecutedAt:  formatTime(res.Record.ExecutedAt),
	})
}

// rawShares turns the shares field into the text the engine validates:
// JSON strings are unquoted, numbers keep their literal form, null is empty.
func rawShares(msg json.RawMessage) string {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// GetPortfolio handles GET /accounts/{account_id}/portfolio.
func (h *LedgerHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Portfolio(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	lines := make([]portfolioLineResponse, 0, len(p.Holdings))
	for _, l := range p.Holdings {
		lines = append(lines, portfolioLineResponse{
			Symbol: l.Symbol,
			Name:   l.Name,
			Shares: l.Shares,
			Price:  l.Price,
			Value:  l.Value,
			Stale:  l.Stale,
		})
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{
		AccountID:         p.AccountID,
		Holdings:          lines,
		EquityValue:       p.EquityValue,
		Cash:              p.Cash,
		GrandTotal:        p.GrandTotal,
		GrandTotalDisplay: p.GrandTotal.String(),
	})
}

// GetHistory handles GET /accounts/{account_id}/history. ?format=csv returns CSV.
func (h *LedgerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	records, err := h.svc.History(r.Context(), accountID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		var buf bytes.Buffer
		if err := utils.WriteTransactionsCSV(&buf, records); err != nil {
			WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}

	entries := make([]historyEntryResponse, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntryResponse{
			Seq:        rec.Seq,
			Side:       string(rec.Side()),
			Symbol:     rec.Symbol,
			Shares:     rec.Shares,
			Price:      rec.Price,
			ExecutedAt: formatTime(rec.ExecutedAt),
		})
	}
	WriteJSON(w, http.StatusOK, historyResponse{AccountID: accountID, Transactions: entries})
}

// Reconcile handles GET /accounts/{account_id}/reconcile.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Reconcile(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	out := reconcileResponse{
		AccountID:     rec.AccountID,
		Clean:         rec.Clean(),
		Holdings:      rec.Holdings,
		Transactions:  rec.Transactions,
		Discrepancies: make([]discrepancyResponse, 0, len(rec.Discrepancies)),
	}
	for _, d := range rec.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, discrepancyResponse{Symbol: d.Symbol, Expected: d.Expected, Actual: d.Actual})
	}
	WriteJSON(w, http.StatusOK, out)
}

// GetQuote handles GET /quotes/{symbol}.
func (h *LedgerHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol:       q.Symbol,
		Name:         q.Name,
		Price:        q.Price,
		PriceDisplay: q.Price.String(),
	})
}
