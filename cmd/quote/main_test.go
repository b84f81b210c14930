package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_StaticSheet(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	sheet := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(sheet, []byte("symbol,name,price\nAAPL,Apple Inc.,150.00\n"), 0o600))
	t.Setenv("QUOTE_PROVIDER", "static")
	t.Setenv("QUOTES_FILE", sheet)
	t.Setenv("LEDGER_STORE", "memory")
	t.Setenv("LOG_LEVEL", "ERROR")

	var out bytes.Buffer
	assert.Equal(t, 0, run(&out, []string{"aapl"}))
	assert.Contains(t, out.String(), "Apple Inc.")

	out.Reset()
	assert.Equal(t, 1, run(&out, []string{"AAPL", "NOPE"}))
	assert.Contains(t, out.String(), "NOPE")
	assert.Contains(t, out.String(), "error:")
}
