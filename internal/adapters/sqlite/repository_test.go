package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ledger-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, dbPath, cleanup
}

func newAccount(t *testing.T, repo *Repository, id string, cash domain.Money) *domain.Account {
	t.Helper()
	acc := &domain.Account{ID: id, Cash: cash, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateAccount(context.Background(), acc))
	return acc
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: memoryPath})
	assert.Error(t, err)
}

func TestRepository_CreateAndGetAccount(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Repository) error
		acc     *domain.Account
		wantErr error
	}{
		{
			name: "valid account",
			acc:  &domain.Account{ID: "acc-1", Cash: 1000000, CreatedAt: time.Now().UTC()},
		},
		{
			name: "zero cash",
			acc:  &domain.Account{ID: "acc-0", Cash: 0, CreatedAt: time.Now().UTC()},
		},
		{
			name: "duplicate id",
			setup: func(r *Repository) error {
				return r.CreateAccount(context.Background(), &domain.Account{ID: "acc-dup", Cash: 100, CreatedAt: time.Now().UTC()})
			},
			acc:     &domain.Account{ID: "acc-dup", Cash: 200, CreatedAt: time.Now().UTC()},
			wantErr: ports.ErrDuplicateEntry,
		},
		{
			name:    "negative cash rejected by schema",
			acc:     &domain.Account{ID: "acc-neg", Cash: -1, CreatedAt: time.Now().UTC()},
			wantErr: ports.ErrUpdateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, cleanup := setupTestDB(t)
			defer cleanup()

			ctx := context.Background()

			if tt.setup != nil {
				require.NoError(t, tt.setup(repo))
			}

			err := repo.CreateAccount(ctx, tt.acc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := repo.GetAccount(ctx, tt.acc.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.acc.ID, got.ID)
			assert.Equal(t, tt.acc.Cash, got.Cash)
			assert.WithinDuration(t, tt.acc.CreatedAt, got.CreatedAt, time.Second)
		})
	}
}

func TestRepository_GetAccount_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRepository_WithinTx_Commit(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 1000000)

	now := time.Now().UTC()
	rec := &domain.TransactionRecord{AccountID: "acc-1", Symbol: "AAPL", Shares: 10, Price: 15000, ExecutedAt: now}
	err := repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		if err := tx.SetCash(ctx, "acc-1", 850000); err != nil {
			return err
		}
		if err := tx.SaveHolding(ctx, &domain.Holding{
			AccountID: "acc-1", Symbol: "AAPL", Name: "Apple Inc.", Shares: 10, Price: 15000, Total: 150000, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return tx.AppendTransaction(ctx, rec)
	})
	require.NoError(t, err)
	assert.Greater(t, rec.Seq, int64(0))

	acc, err := repo.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(850000), acc.Cash)

	h, err := repo.FindHolding(ctx, "acc-1", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(10), h.Shares)
	assert.Equal(t, "Apple Inc.", h.Name)
	assert.Equal(t, domain.Money(150000), h.Total)

	history, err := repo.ListTransactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rec.Seq, history[0].Seq)
	assert.Equal(t, int64(10), history[0].Shares)
	assert.Equal(t, domain.Money(15000), history[0].Price)
}

func TestRepository_WithinTx_RollbackOnError(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 1000000)

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		require.NoError(t, tx.SetCash(ctx, "acc-1", 1))
		require.NoError(t, tx.AppendTransaction(ctx, &domain.TransactionRecord{
			AccountID: "acc-1", Symbol: "AAPL", Shares: 1, Price: 100, ExecutedAt: time.Now().UTC(),
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	acc, err := repo.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1000000), acc.Cash, "cash write must be rolled back")

	history, err := repo.ListTransactions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, history, "history append must be rolled back")
}

func TestRepository_WithinTx_RollbackOnPanic(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 500)

	assert.Panics(t, func() {
		_ = repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
			_ = tx.SetCash(ctx, "acc-1", 1)
			panic("crash mid-trade")
		})
	})

	acc, err := repo.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(500), acc.Cash)
}

func TestRepository_SetCash(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 500)

	err := repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.SetCash(ctx, "acc-1", -1)
	})
	assert.ErrorIs(t, err, ports.ErrUpdateFailed, "schema must reject negative cash")

	err = repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.SetCash(ctx, "missing", 100)
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRepository_SaveAndDeleteHolding(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 500)
	now := time.Now().UTC()

	err := repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		for _, h := range []*domain.Holding{
			{AccountID: "acc-1", Symbol: "MSFT", Shares: 2, Price: 100, Total: 200, UpdatedAt: now},
			{AccountID: "acc-1", Symbol: "AAPL", Shares: 1, Price: 100, Total: 100, UpdatedAt: now},
			{AccountID: "acc-1", Symbol: "AAPL", Shares: 4, Price: 120, Total: 480, UpdatedAt: now},
		} {
			if err := tx.SaveHolding(ctx, h); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	holdings, err := repo.ListHoldings(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, holdings, 2, "upsert must keep one row per symbol")
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, int64(4), holdings[0].Shares)
	assert.Equal(t, domain.Money(480), holdings[0].Total)
	assert.Equal(t, "MSFT", holdings[1].Symbol)

	err = repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.DeleteHolding(ctx, "acc-1", "AAPL")
	})
	require.NoError(t, err)

	h, err := repo.FindHolding(ctx, "acc-1", "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h)

	err = repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.DeleteHolding(ctx, "acc-1", "AAPL")
	})
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRepository_SaveHolding_RejectsNonPositiveShares(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 500)

	err := repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		return tx.SaveHolding(ctx, &domain.Holding{AccountID: "acc-1", Symbol: "AAPL", Shares: 0, UpdatedAt: time.Now()})
	})
	assert.ErrorIs(t, err, ports.ErrUpdateFailed)
}

func TestRepository_HistoryIsOrderedAndAppendOnly(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	newAccount(t, repo, "acc-1", 500)
	newAccount(t, repo, "acc-2", 500)

	deltas := []int64{5, -2, 7, -10}
	err := repo.WithinTx(ctx, func(tx ports.LedgerTx) error {
		for _, d := range deltas {
			if err := tx.AppendTransaction(ctx, &domain.TransactionRecord{
				AccountID: "acc-1", Symbol: "AAPL", Shares: d, Price: 100, ExecutedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return tx.AppendTransaction(ctx, &domain.TransactionRecord{
			AccountID: "acc-2", Symbol: "MSFT", Shares: 1, Price: 100, ExecutedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	history, err := repo.ListTransactions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, history, len(deltas))
	for i, rec := range history {
		assert.Equal(t, deltas[i], rec.Shares)
		if i > 0 {
			assert.Greater(t, rec.Seq, history[i-1].Seq)
		}
	}

	_, err = repo.db.ExecContext(ctx, `UPDATE history SET shares = 1`)
	assert.Error(t, err, "history rows must not be updated")
	_, err = repo.db.ExecContext(ctx, `DELETE FROM history`)
	assert.Error(t, err, "history rows must not be deleted")
}

func TestRepository_ListAccountIDs(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.CreateAccount(ctx, &domain.Account{ID: "b", CreatedAt: base}))
	require.NoError(t, repo.CreateAccount(ctx, &domain.Account{ID: "a", CreatedAt: base.Add(time.Second)}))

	ids, err := repo.ListAccountIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)
}

func TestRepository_PersistsAcrossReopen(t *testing.T) {
	repo, dbPath, cleanup := setupTestDB(t)
	defer cleanup()
	newAccount(t, repo, "acc-1", 4200)
	require.NoError(t, repo.Close())

	reopened, err := NewRepository(Config{DBPath: dbPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	defer reopened.Close()

	acc, err := reopened.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(4200), acc.Cash)
}

func TestRepository_InMemory(t *testing.T) {
	repo, err := NewRepository(Config{DBPath: memoryPath, Logger: &mockLogger{}})
	require.NoError(t, err)
	defer repo.Close()

	newAccount(t, repo, "acc-1", 1)
	acc, err := repo.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1), acc.Cash)
}
