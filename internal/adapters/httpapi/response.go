package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"paperTrader/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// writeLedgerError maps a service error to its status and writes it.
func writeLedgerError(w http.ResponseWriter, err error) {
	status, code, message := mapLedgerError(err)
	WriteError(w, status, code, message)
}

// mapLedgerError classifies a service error. Rejections are the caller's to
// fix and carry the underlying message; server-side failures do not.
func mapLedgerError(err error) (status int, code, message string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrInvalidShareCount):
		return http.StatusBadRequest, domain.ErrInvalidShareCount.Error(), err.Error()
	case errors.Is(err, domain.ErrQuoteNotFound):
		return http.StatusBadRequest, domain.ErrQuoteNotFound.Error(), "invalid symbol or quote unavailable"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, domain.ErrInsufficientFunds.Error(), "not enough cash for this purchase"
	case errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusBadRequest, domain.ErrInsufficientShares.Error(), "not enough shares to sell"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_error", validationErr.Message
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, domain.ErrAccountNotFound.Error(), "account not found"
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusServiceUnavailable, domain.ErrStorageFailure.Error(), "the ledger is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("request body must be valid JSON: %w", err)
	}
	return nil
}
