package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listing-protocol/internal/domain"
	"listing-protocol/internal/storage"
)

// AccountStore is a PostgreSQL implementation of storage.AccountStore backed
// by a single accounts table keyed by the 32-byte derived address.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new PostgreSQL account store.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Update runs fn inside a database transaction. Reads through the Tx lock
// the rows they touch, so concurrent instructions on the same accounts
// serialize instead of clobbering each other.
func (s *AccountStore) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Get retrieves the account data at addr. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(ctx context.Context, addr domain.Address) ([]byte, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT data FROM accounts WHERE address = $1
	`, addr[:])

	var data []byte
	if err := row.Scan(&data); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// ForEach visits every stored account.
func (s *AccountStore) ForEach(ctx context.Context, fn func(addr domain.Address, data []byte) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT address, data FROM accounts ORDER BY address
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw, data []byte
		if err := rows.Scan(&raw, &data); err != nil {
			return err
		}
		var addr domain.Address
		copy(addr[:], raw)
		if err := fn(addr, data); err != nil {
			return err
		}
	}
	return rows.Err()
}

// pgTx adapts a pgx transaction to storage.Tx.
type pgTx struct {
	tx pgx.Tx
}

// Get reads an account inside the transaction, locking the row.
func (t *pgTx) Get(ctx context.Context, addr domain.Address) ([]byte, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT data FROM accounts WHERE address = $1 FOR UPDATE
	`, addr[:])

	var data []byte
	if err := row.Scan(&data); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Insert creates a new account. Returns ErrDuplicateKey if occupied.
func (t *pgTx) Insert(ctx context.Context, addr domain.Address, data []byte) error {
	if len(data) == 0 {
		return storage.ErrInvalidInput
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (address, data, updated_at)
		VALUES ($1, $2, NOW())
	`, addr[:], data)
	if isDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	return err
}

// Put overwrites an existing account. Returns ErrNotFound if not exists.
func (t *pgTx) Put(ctx context.Context, addr domain.Address, data []byte) error {
	if len(data) == 0 {
		return storage.ErrInvalidInput
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET data = $2, updated_at = NOW() WHERE address = $1
	`, addr[:], data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes an account. Returns ErrNotFound if not exists.
func (t *pgTx) Delete(ctx context.Context, addr domain.Address) error {
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM accounts WHERE address = $1
	`, addr[:])
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Verify interface compliance at compile time.
var (
	_ storage.AccountStore = (*AccountStore)(nil)
	_ storage.Tx           = (*pgTx)(nil)
)
