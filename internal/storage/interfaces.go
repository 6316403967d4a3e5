// Package storage defines the account store contract. Accounts are opaque
// binary records keyed by derived address; interpreting the bytes is the
// codec's job, not the store's.
package storage

import (
	"context"

	"listing-protocol/internal/domain"
)

// Tx is one atomic batch of account reads and writes. Writes made through a
// Tx become visible to other readers only if the enclosing Update commits.
type Tx interface {
	// Get returns the account data at addr. Returns ErrNotFound if the
	// account does not exist.
	Get(ctx context.Context, addr domain.Address) ([]byte, error)

	// Insert creates a new account. Returns ErrDuplicateKey if the
	// address is already occupied.
	Insert(ctx context.Context, addr domain.Address, data []byte) error

	// Put overwrites an existing account. Returns ErrNotFound if the
	// account does not exist.
	Put(ctx context.Context, addr domain.Address, data []byte) error

	// Delete removes an account. Returns ErrNotFound if the account does
	// not exist.
	Delete(ctx context.Context, addr domain.Address) error
}

// AccountStore is the durable account map. All mutation goes through Update
// so that each protocol instruction is applied atomically.
type AccountStore interface {
	// Update runs fn inside a transaction. If fn returns an error the
	// transaction rolls back and none of its writes are visible.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Get returns the account data at addr outside any transaction.
	Get(ctx context.Context, addr domain.Address) ([]byte, error)

	// ForEach visits every stored account. Iteration stops on the first
	// error from fn.
	ForEach(ctx context.Context, fn func(addr domain.Address, data []byte) error) error
}
