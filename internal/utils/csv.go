package utils

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"paperTrader/internal/domain"
)

// WriteTransactionsCSV writes the history as CSV with a header row.
func WriteTransactionsCSV(w io.Writer, records []*domain.TransactionRecord) error {
	writer := csv.NewWriter(w)

	// Write header
	if err := writer.Write([]string{"seq", "executed_at", "side", "symbol", "shares", "price"}); err != nil {
		return err
	}

	for _, r := range records {
		if err := writer.Write([]string{
			strconv.FormatInt(r.Seq, 10),
			r.ExecutedAt.UTC().Format(time.RFC3339),
			string(r.Side()),
			r.Symbol,
			strconv.FormatInt(r.Shares, 10),
			r.Price.Plain(),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
