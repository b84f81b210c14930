// Package memory provides an in-process ledger store used by tests and by the
// server when LEDGER_STORE=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"paperTrader/internal/domain"
	"paperTrader/internal/ports"
)

// Op names a store write that a fault can be injected into.
type Op string

const (
	OpSetCash           Op = "SetCash"
	OpSaveHolding       Op = "SaveHolding"
	OpDeleteHolding     Op = "DeleteHolding"
	OpAppendTransaction Op = "AppendTransaction"
	OpCommit            Op = "Commit"
)

// Store implements ports.LedgerRepository in memory. Transactions are
// serialized by a single lock and staged in a journal that is applied on commit.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	order    []string                             // account IDs in creation order
	holdings map[string]map[string]domain.Holding // accountID -> symbol -> holding
	history  []domain.TransactionRecord
	nextSeq  int64

	faultMu sync.Mutex
	faults  map[Op]error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]domain.Account),
		holdings: make(map[string]map[string]domain.Holding),
		nextSeq:  1,
		faults:   make(map[Op]error),
	}
}

// InjectFault makes every subsequent op fail with err until ClearFaults is called.
func (s *Store) InjectFault(op Op, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes every injected fault.
func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = make(map[Op]error)
}

func (s *Store) fault(op Op) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err := s.faults[op]; err != nil {
		return fmt.Errorf("injected %s fault: %w: %w", op, ports.ErrUpdateFailed, err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CreateAccount saves a new account.
func (s *Store) CreateAccount(ctx context.Context, acc *domain.Account) error {
	if acc.Cash.IsNegative() {
		return fmt.Errorf("account %s: negative cash: %w", acc.ID, ports.ErrUpdateFailed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return fmt.Errorf("account %s already exists: %w", acc.ID, ports.ErrDuplicateEntry)
	}
	s.accounts[acc.ID] = *acc
	s.order = append(s.order, acc.ID)
	return nil
}

// ListAccountIDs returns every account ID, oldest account first.
func (s *Store) ListAccountIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAccount(id)
}

func (s *Store) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.holdings[accountID][symbol]; ok {
		return &h, nil
	}
	return nil, nil
}

func (s *Store) ListHoldings(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedHoldings(s.holdings[accountID], nil, nil), nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactions(accountID, nil), nil
}

// WithinTx runs fn with exclusive access to the store. Writes are staged and
// only applied if fn returns nil and the commit succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		cash:     make(map[string]domain.Money),
		saved:    make(map[string]map[string]domain.Holding),
		deleted:  make(map[string]map[string]bool),
		nextSeq:  s.nextSeq,
		appended: nil,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.fault(OpCommit); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *Store) getAccount(id string) (*domain.Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrAccountNotFound)
	}
	return &acc, nil
}

func (s *Store) transactions(accountID string, pending []domain.TransactionRecord) []*domain.TransactionRecord {
	out := make([]*domain.TransactionRecord, 0)
	for _, list := range [][]domain.TransactionRecord{s.history, pending} {
		for i := range list {
			if list[i].AccountID == accountID {
				rec := list[i]
				out = append(out, &rec)
			}
		}
	}
	return out
}

func sortedHoldings(base map[string]domain.Holding, saved map[string]domain.Holding, deleted map[string]bool) []*domain.Holding {
	merged := make(map[string]domain.Holding, len(base)+len(saved))
	for sym, h := range base {
		if !deleted[sym] {
			merged[sym] = h
		}
	}
	for sym, h := range saved {
		merged[sym] = h
	}
	out := make([]*domain.Holding, 0, len(merged))
	for _, h := range merged {
		h := h
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// memTx is the journal of one transaction. The store lock is held for its lifetime.
type memTx struct {
	store    *Store
	cash     map[string]domain.Money
	saved    map[string]map[string]domain.Holding
	deleted  map[string]map[string]bool
	appended []domain.TransactionRecord
	nextSeq  int64
}

func (t *memTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	acc, err := t.store.getAccount(id)
	if err != nil {
		return nil, err
	}
	if cash, ok := t.cash[id]; ok {
		acc.Cash = cash
	}
	return acc, nil
}

func (t *memTx) FindHolding(ctx context.Context, accountID, symbol string) (*domain.Holding, error) {
	if h, ok := t.saved[accountID][symbol]; ok {
		return &h, nil
	}
	if t.deleted[accountID][symbol] {
		return nil, nil
	}
	if h, ok := t.store.holdings[accountID][symbol]; ok {
		return &h, nil
	}
	return nil, nil
}

func (t *memTx) ListHoldings(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	return sortedHoldings(t.store.holdings[accountID], t.saved[accountID], t.deleted[accountID]), nil
}

func (t *memTx) ListTransactions(ctx context.Context, accountID string) ([]*domain.TransactionRecord, error) {
	return t.store.transactions(accountID, t.appended), nil
}

func (t *memTx) SetCash(ctx context.Context, accountID string, cash domain.Money) error {
	if err := t.store.fault(OpSetCash); err != nil {
		return err
	}
	if _, ok := t.store.accounts[accountID]; !ok {
		return fmt.Errorf("account %s not found for cash update: %w", accountID, domain.ErrAccountNotFound)
	}
	if cash.IsNegative() {
		return fmt.Errorf("negative cash for account %s: %w", accountID, ports.ErrUpdateFailed)
	}
	t.cash[accountID] = cash
	return nil
}

func (t *memTx) SaveHolding(ctx context.Context, h *domain.Holding) error {
	if err := t.store.fault(OpSaveHolding); err != nil {
		return err
	}
	if h.Shares <= 0 {
		return fmt.Errorf("holding %s/%s must have positive shares: %w", h.AccountID, h.Symbol, ports.ErrUpdateFailed)
	}
	if _, ok := t.store.accounts[h.AccountID]; !ok {
		return fmt.Errorf("holding for unknown account %s: %w", h.AccountID, ports.ErrUpdateFailed)
	}
	if t.saved[h.AccountID] == nil {
		t.saved[h.AccountID] = make(map[string]domain.Holding)
	}
	t.saved[h.AccountID][h.Symbol] = *h
	delete(t.deleted[h.AccountID], h.Symbol)
	return nil
}

func (t *memTx) DeleteHolding(ctx context.Context, accountID, symbol string) error {
	if err := t.store.fault(OpDeleteHolding); err != nil {
		return err
	}
	existing, err := t.FindHolding(ctx, accountID, symbol)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("holding %s/%s not found for delete: %w", accountID, symbol, ports.ErrNotFound)
	}
	delete(t.saved[accountID], symbol)
	if t.deleted[accountID] == nil {
		t.deleted[accountID] = make(map[string]bool)
	}
	t.deleted[accountID][symbol] = true
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if err := t.store.fault(OpAppendTransaction); err != nil {
		return err
	}
	if rec.Shares == 0 {
		return fmt.Errorf("zero-share history record for %s: %w", rec.Symbol, ports.ErrUpdateFailed)
	}
	if _, ok := t.store.accounts[rec.AccountID]; !ok {
		return fmt.Errorf("history for unknown account %s: %w", rec.AccountID, ports.ErrUpdateFailed)
	}
	rec.Seq = t.nextSeq
	t.nextSeq++
	t.appended = append(t.appended, *rec)
	return nil
}

// apply publishes the journal. Called with the store lock held.
func (t *memTx) apply() {
	s := t.store
	for id, cash := range t.cash {
		acc := s.accounts[id]
		acc.Cash = cash
		s.accounts[id] = acc
	}
	for accountID, symbols := range t.deleted {
		for sym := range symbols {
			delete(s.holdings[accountID], sym)
		}
	}
	for accountID, symbols := range t.saved {
		if s.holdings[accountID] == nil {
			s.holdings[accountID] = make(map[string]domain.Holding)
		}
		for sym, h := range symbols {
			s.holdings[accountID][sym] = h
		}
	}
	s.history = append(s.history, t.appended...)
	s.nextSeq = t.nextSeq
}
