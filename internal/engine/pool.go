package engine

import (
	"context"
	"errors"
	"fmt"

	"listing-protocol/internal/codec"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/storage"
)

// marketRef resolves a pool instruction's market reference to the market's
// derived address, operational status and original proposer.
type marketRef struct {
	addr     domain.Address
	status   domain.RegistryStatus
	proposer domain.Address
}

func (e *Engine) resolveMarket(ctx context.Context, tx storage.Tx, mt domain.MarketType, index uint16) (marketRef, error) {
	if mt == domain.MarketPerp {
		m, err := e.loadPerpMarket(ctx, tx, index)
		if err != nil {
			return marketRef{}, err
		}
		return marketRef{
			addr:     keys.Registry(domain.TrackPerp, index),
			status:   m.Status,
			proposer: m.Proposer,
		}, nil
	}
	m, err := e.loadSpotMarket(ctx, tx, index)
	if err != nil {
		return marketRef{}, err
	}
	return marketRef{
		addr:     keys.Registry(domain.TrackSpot, index),
		status:   m.Status,
		proposer: m.Proposer,
	}, nil
}

func (e *Engine) loadPool(ctx context.Context, tx storage.Tx, market domain.Address) (*domain.LiquidityPool, error) {
	data, err := tx.Get(ctx, keys.Pool(market))
	if err != nil {
		return nil, err
	}
	return codec.DecodePool(data)
}

func (e *Engine) savePool(ctx context.Context, tx storage.Tx, p *domain.LiquidityPool) error {
	return tx.Put(ctx, keys.Pool(p.Market), codec.EncodePool(p))
}

func validatePoolParams(lower, upper uint64, density uint16, spread uint64) error {
	if lower == 0 || upper <= lower {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidPriceRange, lower, upper)
	}
	if density < domain.MinOrderDensity || density > domain.MaxOrderDensity {
		return fmt.Errorf("%w: %d", ErrInvalidOrderDensity, density)
	}
	if spread == 0 || spread > domain.MaxSpreadBps {
		return fmt.Errorf("%w: %d bps", ErrInvalidSpread, spread)
	}
	return nil
}

// initializePool creates the liquidity pool for an approved, active market.
// Only the admin or the market's original proposer may bootstrap it.
func (e *Engine) initializePool(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.InitializePool) error {
	cfg, err := e.loadConfig(ctx, tx)
	if err != nil {
		return err
	}
	ref, err := e.resolveMarket(ctx, tx, in.MarketType, in.MarketIndex)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: market %s/%d does not exist", ErrInvalidReference, in.MarketType, in.MarketIndex)
		}
		return err
	}
	if signer != cfg.Admin && signer != ref.proposer {
		return ErrUnauthorized
	}
	if ref.status != domain.RegistryActive {
		return fmt.Errorf("%w: market is %s", ErrInvalidReference, ref.status)
	}
	if err := validatePoolParams(in.PriceLowerE6, in.PriceUpperE6, in.OrderDensity, in.SpreadBps); err != nil {
		return err
	}
	if in.Relayer.IsZero() {
		return ErrUnauthorized
	}

	pool := &domain.LiquidityPool{
		Version:      codec.CurrentVersion,
		MarketType:   in.MarketType,
		MarketIndex:  in.MarketIndex,
		Market:       ref.addr,
		Creator:      signer,
		Relayer:      in.Relayer,
		PriceLowerE6: in.PriceLowerE6,
		PriceUpperE6: in.PriceUpperE6,
		OrderDensity: in.OrderDensity,
		SpreadBps:    in.SpreadBps,
		Active:       true,
		CreatedAt:    e.clock.Now(),
	}
	return tx.Insert(ctx, keys.Pool(ref.addr), codec.EncodePool(pool))
}

// fundPool deposits into an active pool. The deposit is a one-way seed; the
// funder gets no withdrawal rights.
func (e *Engine) fundPool(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.FundPool) error {
	if in.AmountE6 == 0 {
		return ErrInvalidAmount
	}
	ref, err := e.resolveMarket(ctx, tx, in.MarketType, in.MarketIndex)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(ctx, tx, ref.addr)
	if err != nil {
		return err
	}
	if !pool.Active {
		return ErrPoolNotActive
	}

	pool.BalanceE6 += in.AmountE6
	pool.PrincipalE6 += in.AmountE6
	if err := e.savePool(ctx, tx, pool); err != nil {
		return err
	}

	// The pool's derived address is its custody holder identity. The deposit
	// runs after the record write so a custody failure rolls everything back.
	if err := e.transferCustody(ctx, signer, keys.Pool(ref.addr), in.AmountE6); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.PoolBalance.WithLabelValues(poolLabel(pool)).Set(float64(pool.BalanceE6))
	}
	return nil
}

// adjustPoolParams patches quoting parameters. Balance is untouched.
func (e *Engine) adjustPoolParams(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.AdjustPoolParams) error {
	if _, err := e.requireAdmin(ctx, tx, signer); err != nil {
		return err
	}
	ref, err := e.resolveMarket(ctx, tx, in.MarketType, in.MarketIndex)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(ctx, tx, ref.addr)
	if err != nil {
		return err
	}
	if !pool.Active {
		return ErrPoolNotActive
	}

	if in.PriceLowerE6 != nil {
		pool.PriceLowerE6 = *in.PriceLowerE6
	}
	if in.PriceUpperE6 != nil {
		pool.PriceUpperE6 = *in.PriceUpperE6
	}
	if in.OrderDensity != nil {
		pool.OrderDensity = *in.OrderDensity
	}
	if in.SpreadBps != nil {
		pool.SpreadBps = *in.SpreadBps
	}
	if in.Relayer != nil {
		if in.Relayer.IsZero() {
			return ErrUnauthorized
		}
		pool.Relayer = *in.Relayer
	}
	if err := validatePoolParams(pool.PriceLowerE6, pool.PriceUpperE6, pool.OrderDensity, pool.SpreadBps); err != nil {
		return err
	}
	return e.savePool(ctx, tx, pool)
}

// refreshPoolOrders re-posts quoting orders at a new price. Only the
// designated relayer may call it. Sequence numbers start at 1; a repeated or
// stale sequence is a successful no-op, so a relayer retrying before the
// next tick cannot double-post.
func (e *Engine) refreshPoolOrders(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.RefreshPoolOrders) error {
	ref, err := e.resolveMarket(ctx, tx, in.MarketType, in.MarketIndex)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(ctx, tx, ref.addr)
	if err != nil {
		return err
	}
	if signer != pool.Relayer {
		return ErrUnauthorized
	}
	if !pool.Active {
		return ErrPoolNotActive
	}
	if in.PriceSeq == 0 {
		return ErrInvalidPriceSeq
	}
	if in.PriceSeq <= pool.LastPriceSeq {
		if e.metrics != nil {
			e.metrics.OrderRefreshes.WithLabelValues(poolLabel(pool), "duplicate").Inc()
		}
		return nil
	}

	// Realized profit is settled into the pool's custody account by the
	// venue; here it only becomes withdrawable.
	pool.AccruedProfitE6 += in.RealizedProfitE6
	pool.DeployedE6 = deployedAmount(pool, in.PriceE6)
	pool.LastPriceSeq = in.PriceSeq
	pool.LastPriceE6 = in.PriceE6
	if err := e.savePool(ctx, tx, pool); err != nil {
		return err
	}

	if e.metrics != nil {
		label := poolLabel(pool)
		e.metrics.OrderRefreshes.WithLabelValues(label, "ok").Inc()
		e.metrics.PoolBalance.WithLabelValues(label).Set(float64(pool.BalanceE6))
		if in.RealizedProfitE6 > 0 {
			e.metrics.PoolProfitAccrued.WithLabelValues(label).Add(float64(in.RealizedProfitE6))
		}
	}
	return nil
}

// deployedAmount computes how much of the balance is committed as resting
// orders at the given price: nothing outside the price band, otherwise the
// balance minus a spread-proportional reserve.
func deployedAmount(pool *domain.LiquidityPool, priceE6 uint64) uint64 {
	if priceE6 < pool.PriceLowerE6 || priceE6 > pool.PriceUpperE6 {
		return 0
	}
	reserve := pool.BalanceE6 * pool.SpreadBps / domain.MaxSpreadBps
	return pool.BalanceE6 - reserve
}

// withdrawPoolProfit withdraws accrued profit, never principal.
func (e *Engine) withdrawPoolProfit(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.WithdrawPoolProfit) error {
	if _, err := e.requireAdmin(ctx, tx, signer); err != nil {
		return err
	}
	if in.AmountE6 == 0 {
		return ErrInvalidAmount
	}
	ref, err := e.resolveMarket(ctx, tx, in.MarketType, in.MarketIndex)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(ctx, tx, ref.addr)
	if err != nil {
		return err
	}
	if !pool.Active {
		return ErrPoolNotActive
	}
	if in.AmountE6 > pool.AccruedProfitE6 || in.AmountE6 > pool.BalanceE6 {
		return ErrInsufficientProfit
	}

	pool.BalanceE6 -= in.AmountE6
	pool.AccruedProfitE6 -= in.AmountE6
	if err := e.savePool(ctx, tx, pool); err != nil {
		return err
	}
	return e.transferCustody(ctx, keys.Pool(ref.addr), in.Recipient, in.AmountE6)
}

// retirePool terminates a pool and releases its remaining balance to the
// recipient. Terminal; every later pool operation fails.
func (e *Engine) retirePool(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.RetirePool) error {
	if _, err := e.requireAdmin(ctx, tx, signer); err != nil {
		return err
	}
	ref, err := e.resolveMarket(ctx, tx, in.MarketType, in.MarketIndex)
	if err != nil {
		return err
	}
	pool, err := e.loadPool(ctx, tx, ref.addr)
	if err != nil {
		return err
	}
	if !pool.Active {
		return ErrPoolNotActive
	}

	released := pool.BalanceE6
	pool.BalanceE6 = 0
	pool.DeployedE6 = 0
	pool.AccruedProfitE6 = 0
	pool.Active = false
	pool.RetiredAt = e.clock.Now()
	if err := e.savePool(ctx, tx, pool); err != nil {
		return err
	}

	if released > 0 {
		if err := e.transferCustody(ctx, keys.Pool(ref.addr), in.Recipient, released); err != nil {
			return err
		}
	}

	if e.metrics != nil {
		e.metrics.PoolBalance.WithLabelValues(poolLabel(pool)).Set(0)
	}
	return nil
}

func poolLabel(p *domain.LiquidityPool) string {
	return fmt.Sprintf("%s/%d", p.MarketType, p.MarketIndex)
}
