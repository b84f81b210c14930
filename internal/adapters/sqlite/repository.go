package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

const memoryPath = ":memory:"

// Repository implements the ports.LedgerRepository interface using SQLite.
type Repository struct {
	queries
	db *sql.DB
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/ledger.db" // Default path
	}

	if dbPath != memoryPath {
		// Create data directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
			cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
			return nil, err
		}
		cfg.Logger.Info(context.Background(), "Data directory checked/created", map[string]interface{}{"path": filepath.Dir(dbPath)})
	}

	// WAL for concurrent readers, immediate transactions so a trade takes the write lock up front.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers; the in-memory database also lives on it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if dbPath != memoryPath {
		db.SetConnMaxLifetime(time.Hour)
	}

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{
		queries: queries{q: db, logger: cfg.Logger},
		db:      db,
	}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Money columns hold integer cents; history rejects updates and deletes.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		cash_cents INTEGER NOT NULL CHECK (cash_cents >= 0),
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holdings (
		account_id TEXT NOT NULL REFERENCES accounts (id),
		symbol TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		shares INTEGER NOT NULL CHECK (shares > 0),
		price_cents INTEGER NOT NULL,
		total_cents INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, symbol)
	);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL REFERENCES accounts (id),
		symbol TEXT NOT NULL,
		shares INTEGER NOT NULL CHECK (shares != 0),
		price_cents INTEGER NOT NULL,
		executed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_account_seq ON history (account_id, seq);

	CREATE TRIGGER IF NOT EXISTS history_no_update BEFORE UPDATE ON history
	BEGIN
		SELECT RAISE(ABORT, 'history is append-only');
	END;
	CREATE TRIGGER IF NOT EXISTS history_no_delete BEFORE DELETE ON history
	BEGIN
		SELECT RAISE(ABORT, 'history is append-only');
	END;
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// CreateAccount saves a new account.
func (r *Repository) CreateAccount(ctx context.Context, acc *domain.Account) error {
	const query = `INSERT INTO accounts (id, cash_cents, created_at) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, acc.ID, acc.Cash.Cents(), acc.CreatedAt.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("account %s already exists: %w", acc.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert account %s: %w: %w", acc.ID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": acc.ID, "cash": acc.Cash.Plain()})
	return nil
}

// ListAccountIDs returns every account ID, oldest account first.
func (r *Repository) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return ids, nil
}

// WithinTx runs fn inside a single SQLite transaction. Any error or panic from fn
// rolls the transaction back.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx ports.LedgerTx) error) (err error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error(ctx, rbErr, "Failed to roll back transaction")
			}
		}
	}()

	if err = fn(&queries{q: sqlTx, logger: r.logger}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w: %w", ports.ErrUpdateFailed, err)
	}
	return nil
}

// --- Shared query implementation (database or transaction) ---

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// queries implements ports.LedgerTx on top of a querier.
type queries struct {
	q      querier
	logger ports.Logger
}

// GetAccount retrieves an account by ID.
func (s *queries) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT id, cash_cents, created_at FROM accounts WHERE id = ?`

	acc := &domain.Account{}
	var cash int64
	err := s.q.QueryRowContext(ctx, query, id).Scan(&acc.ID, &cash, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", id, domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to query account %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	acc.Cash = domain.Money(cash)
	return acc, nil
}

// FindHolding retrieves the holding for (accountID, symbol), or nil if there is none.
func (s *queries) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	const query = `
	SELECT account_id, symbol, name, shares, price_cents, total_cents, updated_at
	FROM holdings
	WHERE account_id = ? AND symbol = ?`

	h, err := scanHolding(s.q.QueryRowContext(ctx, query, accountID, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not held
		}
		return nil, fmt.Errorf("failed to query holding %s/%s: %w: %w", accountID, symbol, ports.ErrQueryFailed, err)
	}
	return h, nil
}

// ListHoldings retrieves all holdings of an account ordered by symbol.
func (s *queries) ListHoldings(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	const query = `
	SELECT account_id, symbol, name, shares, price_cents, total_cents, updated_at
	FROM holdings
	WHERE account_id = ?
	ORDER BY symbol`

	rows, err := s.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings for account %s: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	holdings := make([]*domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding during ListHoldings: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding rows: %w", err)
	}
	return holdings, nil
}

// ListTransactions retrieves the account's history, oldest first.
func (s *queries) ListTransactions(ctx context.Context, accountID string) ([]*domain.TransactionRecord, error) {
	const query = `
	SELECT seq, account_id, symbol, shares, price_cents, executed_at
	FROM history
	WHERE account_id = ?
	ORDER BY seq ASC`

	rows, err := s.q.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for account %s: %w: %w", accountID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	records := make([]*domain.TransactionRecord, 0)
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history during ListTransactions: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return records, nil
}

// SetCash overwrites the account's cash balance.
func (s *queries) SetCash(ctx context.Context, accountID string, cash domain.Money) error {
	const query = `UPDATE accounts SET cash_cents = ? WHERE id = ?`

	result, err := s.q.ExecContext(ctx, query, cash.Cents(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update cash for account %s: %w: %w", accountID, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for cash update %s: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %s not found for cash update: %w", accountID, domain.ErrAccountNotFound)
	}
	s.logger.Debug(ctx, "Cash updated", map[string]interface{}{"accountID": accountID, "cash": cash.Plain()})
	return nil
}

// SaveHolding inserts or replaces the holding for (AccountID, Symbol).
func (s *queries) SaveHolding(ctx context.Context, h *domain.Holding) error {
	const query = `
	INSERT INTO holdings (account_id, symbol, name, shares, price_cents, total_cents, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (account_id, symbol) DO UPDATE SET
		name = excluded.name,
		shares = excluded.shares,
		price_cents = excluded.price_cents,
		total_cents = excluded.total_cents,
		updated_at = excluded.updated_at`

	_, err := s.q.ExecContext(ctx, query,
		h.AccountID, h.Symbol, h.Name, h.Shares, h.Price.Cents(), h.Total.Cents(), h.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save holding %s/%s: %w: %w", h.AccountID, h.Symbol, ports.ErrUpdateFailed, err)
	}
	s.logger.Debug(ctx, "Holding saved", map[string]interface{}{"accountID": h.AccountID, "symbol": h.Symbol, "shares": h.Shares})
	return nil
}

// DeleteHolding removes the holding for (accountID, symbol).
func (s *queries) DeleteHolding(ctx context.Context, accountID, symbol string) error {
	const query = `DELETE FROM holdings WHERE account_id = ? AND symbol = ?`

	result, err := s.q.ExecContext(ctx, query, accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s/%s: %w: %w", accountID, symbol, ports.ErrDeleteFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for holding delete %s/%s: %w", accountID, symbol, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("holding %s/%s not found for delete: %w", accountID, symbol, ports.ErrNotFound)
	}
	s.logger.Debug(ctx, "Holding deleted", map[string]interface{}{"accountID": accountID, "symbol": symbol})
	return nil
}

// AppendTransaction appends a record to the history and assigns its Seq.
func (s *queries) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	const query = `
	INSERT INTO history (account_id, symbol, shares, price_cents, executed_at)
	VALUES (?, ?, ?, ?, ?)`

	result, err := s.q.ExecContext(ctx, query,
		rec.AccountID, rec.Symbol, rec.Shares, rec.Price.Cents(), rec.ExecutedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history for %s/%s: %w: %w", rec.AccountID, rec.Symbol, ports.ErrUpdateFailed, err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for history %s: %w", rec.Symbol, err)
	}
	rec.Seq = seq
	s.logger.Debug(ctx, "History appended", map[string]interface{}{"seq": seq, "accountID": rec.AccountID, "symbol": rec.Symbol, "shares": rec.Shares})
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanHolding scans a row into a domain.Holding struct.
func scanHolding(s scanner) (*domain.Holding, error) {
	h := &domain.Holding{}
	var price, total int64
	err := s.Scan(&h.AccountID, &h.Symbol, &h.Name, &h.Shares, &price, &total, &h.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	h.Price = domain.Money(price)
	h.Total = domain.Money(total)
	return h, nil
}

// scanTransaction scans a row into a domain.TransactionRecord struct.
func scanTransaction(s scanner) (*domain.TransactionRecord, error) {
	rec := &domain.TransactionRecord{}
	var price int64
	err := s.Scan(&rec.Seq, &rec.AccountID, &rec.Symbol, &rec.Shares, &price, &rec.ExecutedAt)
	if err != nil {
		return nil, err
	}
	rec.Price = domain.Money(price)
	return rec, nil
}
