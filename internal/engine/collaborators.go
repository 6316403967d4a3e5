package engine

import (
	"context"
	"fmt"
	"sync"

	"listing-protocol/internal/domain"
)

// External collaborator subsystems. The protocol invokes them inside the
// same instruction as the state change they accompany; any failure aborts
// the instruction. Their internals are out of scope here.

// Custody moves funds between external accounts and the treasury.
type Custody interface {
	// Debit withdraws amount from the holder's custody balance.
	Debit(ctx context.Context, holder domain.Address, amount uint64) error

	// Credit deposits amount into the holder's custody balance.
	Credit(ctx context.Context, holder domain.Address, amount uint64) error
}

// Fund is the fee and insurance fund subsystem.
type Fund interface {
	// DepositInsurance seeds the insurance fund for a newly listed perp
	// market.
	DepositInsurance(ctx context.Context, marketIndex uint16, amount uint64) error
}

// PositionLedger is the perpetual position-ledger subsystem.
type PositionLedger interface {
	// RegisterMarket announces a newly approved perp market so positions
	// can be opened against it.
	RegisterMarket(ctx context.Context, market *domain.PerpMarket) error
}

// MemoryCustody is an in-memory custody ledger used by tests and the
// standalone daemon mode. Balances start at zero; Deposit seeds them.
type MemoryCustody struct {
	mu       sync.Mutex
	balances map[domain.Address]uint64
}

// NewMemoryCustody creates an empty in-memory custody ledger.
func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{balances: make(map[domain.Address]uint64)}
}

// Deposit seeds a holder's balance.
func (c *MemoryCustody) Deposit(holder domain.Address, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[holder] += amount
}

// Balance returns a holder's current balance.
func (c *MemoryCustody) Balance(holder domain.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[holder]
}

// Debit withdraws from a holder, failing on insufficient funds.
func (c *MemoryCustody) Debit(_ context.Context, holder domain.Address, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances[holder] < amount {
		return fmt.Errorf("custody: insufficient balance for %s", holder)
	}
	c.balances[holder] -= amount
	return nil
}

// Credit deposits into a holder.
func (c *MemoryCustody) Credit(_ context.Context, holder domain.Address, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[holder] += amount
	return nil
}

// NoopFund accepts every insurance deposit. Used when the fund subsystem is
// not wired.
type NoopFund struct{}

// DepositInsurance implements Fund.
func (NoopFund) DepositInsurance(context.Context, uint16, uint64) error { return nil }

// NoopLedger accepts every market registration. Used when the position
// ledger is not wired.
type NoopLedger struct{}

// RegisterMarket implements PositionLedger.
func (NoopLedger) RegisterMarket(context.Context, *domain.PerpMarket) error { return nil }

// Verify interface compliance at compile time.
var (
	_ Custody        = (*MemoryCustody)(nil)
	_ Fund           = NoopFund{}
	_ PositionLedger = NoopLedger{}
)
