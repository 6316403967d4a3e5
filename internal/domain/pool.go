package domain

// Liquidity pool quoting parameter bounds.
const (
	MinOrderDensity = 1
	MaxOrderDensity = 100
	MaxSpreadBps    = 10_000
)

// LiquidityPool bootstraps initial liquidity for one approved market.
// Lifecycle: Active from initialization until Retire, which is terminal.
// Funding is a one-way seed: funders receive no withdrawal rights.
type LiquidityPool struct {
	Version     uint8
	MarketType  MarketType
	MarketIndex uint16
	Market      Address // derived address of the bound market record
	Creator     Address
	Relayer     Address // only signer allowed to refresh orders

	// Balance accounting, in quote units e6. Principal tracks cumulative
	// deposits so profit can never be confused with seed capital.
	BalanceE6       uint64
	PrincipalE6     uint64
	DeployedE6      uint64
	AccruedProfitE6 uint64

	// Quoting parameters.
	PriceLowerE6 uint64
	PriceUpperE6 uint64
	OrderDensity uint16 // orders per price level, 1-100
	SpreadBps    uint64 // 1-10000

	// LastPriceSeq is the price-feed sequence of the most recent order
	// refresh. A refresh carrying the same sequence is a no-op.
	LastPriceSeq uint64
	LastPriceE6  uint64

	Active    bool
	CreatedAt int64
	RetiredAt int64 // zero while active
}

// IdleE6 returns the portion of the balance not currently deployed as
// resting orders.
func (p *LiquidityPool) IdleE6() uint64 {
	if p.DeployedE6 > p.BalanceE6 {
		return 0
	}
	return p.BalanceE6 - p.DeployedE6
}
