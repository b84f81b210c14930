package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperTrader/internal/adapters/logger"
	"paperTrader/internal/adapters/sqlite"
	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

func TestRun_ExportsWithoutQuoteSettings(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("LEDGER_STORE", "sqlite")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "ERROR")
	for _, key := range []string{"QUOTE_PROVIDER", "API_KEY", "LOG_FORMAT", "QUOTE_TIMEOUT", "STARTING_CASH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: dbPath, Logger: logger.NewStdLoggerTo(&bytes.Buffer{}, logger.LevelError)})
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.CreateAccount(ctx, &domain.Account{ID: "acc-1", Cash: 1000, CreatedAt: now}))
	require.NoError(t, repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.AppendTransaction(ctx, &domain.TransactionRecord{AccountID: "acc-1", Symbol: "AAPL", Shares: 2, Price: 15000, ExecutedAt: now})
	}))
	require.NoError(t, repo.Close())

	outDir := filepath.Join(t.TempDir(), "history")
	var out bytes.Buffer
	require.Equal(t, 0, run(&out, outDir, ""))
	assert.Contains(t, out.String(), "acc-1: 1 transactions")

	data, err := os.ReadFile(filepath.Join(outDir, "acc-1.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAPL")
	assert.Contains(t, string(data), "150.00")

	assert.Equal(t, 1, run(&out, outDir, "missing"))
}
