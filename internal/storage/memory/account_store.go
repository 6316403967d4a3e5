package memory

import (
	"context"
	"sync"

	"listing-protocol/internal/domain"
	"listing-protocol/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
// Transactions buffer their writes in an overlay and apply them only on
// commit, under the store's write lock.
type AccountStore struct {
	mu   sync.RWMutex
	data map[domain.Address][]byte
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[domain.Address][]byte),
	}
}

// Update runs fn inside a transaction. The write lock is held for the whole
// transaction, so fn sees a consistent snapshot and commits atomically.
func (s *AccountStore) Update(_ context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		base:    s.data,
		writes:  make(map[domain.Address][]byte),
		deletes: make(map[domain.Address]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for addr := range tx.deletes {
		delete(s.data, addr)
	}
	for addr, data := range tx.writes {
		s.data[addr] = data
	}
	return nil
}

// Get retrieves the account data at addr. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, addr domain.Address) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// ForEach visits every stored account under the read lock.
func (s *AccountStore) ForEach(_ context.Context, fn func(addr domain.Address, data []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for addr, data := range s.data {
		out := make([]byte, len(data))
		copy(out, data)
		if err := fn(addr, out); err != nil {
			return err
		}
	}
	return nil
}

// memTx overlays uncommitted writes and deletes on top of the store map.
type memTx struct {
	base    map[domain.Address][]byte
	writes  map[domain.Address][]byte
	deletes map[domain.Address]bool
}

func (tx *memTx) exists(addr domain.Address) bool {
	if tx.deletes[addr] {
		return false
	}
	if _, ok := tx.writes[addr]; ok {
		return true
	}
	_, ok := tx.base[addr]
	return ok
}

// Get returns the account data visible inside the transaction.
func (tx *memTx) Get(_ context.Context, addr domain.Address) ([]byte, error) {
	if tx.deletes[addr] {
		return nil, storage.ErrNotFound
	}
	data, ok := tx.writes[addr]
	if !ok {
		data, ok = tx.base[addr]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Insert creates a new account. Returns ErrDuplicateKey if occupied.
func (tx *memTx) Insert(_ context.Context, addr domain.Address, data []byte) error {
	if len(data) == 0 {
		return storage.ErrInvalidInput
	}
	if tx.exists(addr) {
		return storage.ErrDuplicateKey
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	tx.writes[addr] = buf
	delete(tx.deletes, addr)
	return nil
}

// Put overwrites an existing account. Returns ErrNotFound if not exists.
func (tx *memTx) Put(_ context.Context, addr domain.Address, data []byte) error {
	if len(data) == 0 {
		return storage.ErrInvalidInput
	}
	if !tx.exists(addr) {
		return storage.ErrNotFound
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	tx.writes[addr] = buf
	return nil
}

// Delete removes an account. Returns ErrNotFound if not exists.
func (tx *memTx) Delete(_ context.Context, addr domain.Address) error {
	if !tx.exists(addr) {
		return storage.ErrNotFound
	}
	delete(tx.writes, addr)
	tx.deletes[addr] = true
	return nil
}

// Verify interface compliance at compile time.
var (
	_ storage.AccountStore = (*AccountStore)(nil)
	_ storage.Tx           = (*memTx)(nil)
)
