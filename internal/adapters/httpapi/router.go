// Package httpapi exposes the ledger over HTTP with a chi router.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paperTrader/internal/app"
	"paperTrader/internal/ports"
)

// NewRouter creates a chi router with all routes registered, request logging,
// cache suppression and Content-Type validation middleware.
func NewRouter(svc *app.LedgerService, logger ports.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(noCache)
	r.Use(contentTypeJSON)

	h := NewLedgerHandler(svc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Account routes.
	r.Post("/accounts", h.OpenAccount)
	r.Route("/accounts/{account_id}", func(r chi.Router) {
		r.Get("/", h.GetAccount)
		r.Get("/portfolio", h.GetPortfolio)
		r.Get("/history", h.GetHistory)
		r.Get("/reconcile", h.Reconcile)
		r.Post("/buy", h.Buy)
		r.Post("/sell", h.Sell)
	})

	// Quote routes.
	r.Get("/quotes/{symbol}", h.GetQuote)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration.
func requestLogging(logger ports.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.status,
				"duration": time.Since(start).String(),
			})
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// noCache marks every response as uncacheable; balances change on every trade.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Expires", "0")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// contentTypeJSON rejects POST, PUT and PATCH requests that carry a body
// without an application/json Content-Type.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if r.ContentLength != 0 && !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
