package app

import "sync"

// accountLocks hands out one mutex per account id. An entry lives only while
// some caller holds or waits for it, so ids that never match an account leave
// nothing behind.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	sync.Mutex
	refs int // holders plus waiters; guarded by accountLocks.mu
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*accountLock)}
}

// lock acquires the account's mutex and returns its release func.
func (l *accountLocks) lock(accountID string) func() {
	l.mu.Lock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &accountLock{}
		l.locks[accountID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		l.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(l.locks, accountID)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live entries.
func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
