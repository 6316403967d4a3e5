package instruction

import "listing-protocol/internal/domain"

// Instruction is one operation variant with its operands. The set is closed:
// the engine dispatches exhaustively over the concrete types.
type Instruction interface {
	Opcode() Op
}

func trackBase(t domain.Track) Op {
	switch t {
	case domain.TrackSpot:
		return spotBase
	case domain.TrackPerp:
		return perpBase
	default:
		return tokenBase
	}
}

// Initialize creates the protocol configuration and treasury. The signer
// becomes the admin.
type Initialize struct {
	CustodyProgram domain.Address
	FundProgram    domain.Address
	LedgerProgram  domain.Address
}

func (Initialize) Opcode() Op { return OpInitialize }

// UpdateAdmin transfers admin authority.
type UpdateAdmin struct {
	NewAdmin domain.Address
}

func (UpdateAdmin) Opcode() Op { return OpUpdateAdmin }

// UpdateStakeConfig patches per-track stake amounts. Nil fields are left
// unchanged.
type UpdateStakeConfig struct {
	TokenStakeAmount *uint64
	SpotStakeAmount  *uint64
	PerpStakeAmount  *uint64
}

func (UpdateStakeConfig) Opcode() Op { return OpUpdateStakeConfig }

// UpdateReviewPeriods patches per-track review periods and the stake lock
// period, in seconds. Nil fields are left unchanged.
type UpdateReviewPeriods struct {
	TokenReviewPeriod *uint32
	SpotReviewPeriod  *uint32
	PerpReviewPeriod  *uint32
	StakeLockPeriod   *uint32
}

func (UpdateReviewPeriods) Opcode() Op { return OpUpdateReviewPeriods }

// SetPaused sets the protocol pause flag.
type SetPaused struct {
	Paused bool
}

func (SetPaused) Opcode() Op { return OpSetPaused }

// Propose submits a new listing proposal. The track is carried by the
// payload type; StakeAmount is the amount the signer transfers, which must
// equal the track's configured stake.
type Propose struct {
	Nonce       uint64
	Payload     domain.Payload
	StakeAmount uint64
}

func (p Propose) Opcode() Op { return trackBase(p.Payload.PayloadTrack()) + offsetPropose }

// Object records an advisory objection against a pending proposal.
type Object struct {
	Track    domain.Track
	Proposer domain.Address
	Nonce    uint64
}

func (o Object) Opcode() Op { return trackBase(o.Track) + offsetObject }

// Approve resolves a pending proposal as approved and mints its registry
// entry. Admin only.
type Approve struct {
	Track    domain.Track
	Proposer domain.Address
	Nonce    uint64
}

func (a Approve) Opcode() Op { return trackBase(a.Track) + offsetApprove }

// Reject resolves a pending proposal as rejected, slashing the stake by the
// severity's fraction. Admin only.
type Reject struct {
	Track    domain.Track
	Proposer domain.Address
	Nonce    uint64
	Severity domain.Severity
}

func (r Reject) Opcode() Op { return trackBase(r.Track) + offsetReject }

// Cancel withdraws the signer's own pending proposal at the self-cancel
// slash rate.
type Cancel struct {
	Track domain.Track
	Nonce uint64
}

func (c Cancel) Opcode() Op { return trackBase(c.Track) + offsetCancel }

// Finalize auto-approves a pending proposal whose review period has
// elapsed. Callable by anyone.
type Finalize struct {
	Track    domain.Track
	Proposer domain.Address
	Nonce    uint64
}

func (f Finalize) Opcode() Op { return trackBase(f.Track) + offsetFinalize }

// ClaimStake returns the refundable stake remainder of the signer's
// resolved proposal after the lock period.
type ClaimStake struct {
	Track domain.Track
	Nonce uint64
}

func (c ClaimStake) Opcode() Op { return trackBase(c.Track) + offsetClaimStake }

// UpdateRegistryStatus sets the operational status of an approved registry
// entry. Admin only.
type UpdateRegistryStatus struct {
	Track  domain.Track
	Index  uint16
	Status domain.RegistryStatus
}

func (u UpdateRegistryStatus) Opcode() Op { return trackBase(u.Track) + offsetStatus }

// UpdateSpotMarketParams patches trading parameters of a spot market.
// Admin only; nil fields are left unchanged.
type UpdateSpotMarketParams struct {
	Index          uint16
	TakerFeeBps    *uint16
	MakerFeeBps    *int16
	MinOrderSizeE6 *uint64
	MaxOrderSizeE6 *uint64
}

func (UpdateSpotMarketParams) Opcode() Op { return OpUpdateSpotMarketParams }

// UpdatePerpMarketParams patches trading parameters of a perp market.
// Admin only; nil fields are left unchanged.
type UpdatePerpMarketParams struct {
	Index                   uint16
	TakerFeeBps             *uint16
	MakerFeeBps             *int16
	MinOrderSizeE6          *uint64
	MaxOrderSizeE6          *uint64
	MaxLeverage             *uint8
	InitialMarginRateE6     *uint32
	MaintenanceMarginRateE6 *uint32
	MaxOpenInterestE6       *uint64
}

func (UpdatePerpMarketParams) Opcode() Op { return OpUpdatePerpMarketParams }

// InitializePool creates the liquidity pool for an approved market.
// Admin or the market's original proposer.
type InitializePool struct {
	MarketType   domain.MarketType
	MarketIndex  uint16
	Relayer      domain.Address
	PriceLowerE6 uint64
	PriceUpperE6 uint64
	OrderDensity uint16
	SpreadBps    uint64
}

func (InitializePool) Opcode() Op { return OpInitializePool }

// FundPool deposits into an active pool. Anyone may fund; deposits carry no
// withdrawal rights.
type FundPool struct {
	MarketType  domain.MarketType
	MarketIndex uint16
	AmountE6    uint64
}

func (FundPool) Opcode() Op { return OpFundPool }

// AdjustPoolParams patches pool quoting parameters. Admin only; nil fields
// are left unchanged.
type AdjustPoolParams struct {
	MarketType   domain.MarketType
	MarketIndex  uint16
	PriceLowerE6 *uint64
	PriceUpperE6 *uint64
	OrderDensity *uint16
	SpreadBps    *uint64
	Relayer      *domain.Address
}

func (AdjustPoolParams) Opcode() Op { return OpAdjustPoolParams }

// RefreshPoolOrders re-posts quoting orders at a new price. Relayer only.
// PriceSeq is the price-feed sequence number, starting at 1; a repeated
// sequence is a no-op. RealizedProfitE6 is profit realized since the previous refresh and
// is accrued as withdrawable profit.
type RefreshPoolOrders struct {
	MarketType       domain.MarketType
	MarketIndex      uint16
	PriceE6          uint64
	PriceSeq         uint64
	RealizedProfitE6 uint64
}

func (RefreshPoolOrders) Opcode() Op { return OpRefreshPoolOrders }

// WithdrawPoolProfit withdraws accrued profit, never principal. Admin only.
type WithdrawPoolProfit struct {
	MarketType  domain.MarketType
	MarketIndex uint16
	AmountE6    uint64
	Recipient   domain.Address
}

func (WithdrawPoolProfit) Opcode() Op { return OpWithdrawPoolProfit }

// RetirePool terminates a pool, releasing its remaining balance to the
// recipient. Admin only; irreversible.
type RetirePool struct {
	MarketType  domain.MarketType
	MarketIndex uint16
	Recipient   domain.Address
}

func (RetirePool) Opcode() Op { return OpRetirePool }
