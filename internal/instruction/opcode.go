// Package instruction defines the wire instruction surface: a closed set of
// operation variants, their canonical opcodes and a compact binary operand
// format. Opcode values are load-bearing wire format and are assigned
// densely: admin ops first, then one block per track in a fixed operation
// order, then the liquidity-pool ops.
package instruction

// Op is a wire opcode.
type Op uint8

const (
	OpInitialize Op = iota
	OpUpdateAdmin
	OpUpdateStakeConfig
	OpUpdateReviewPeriods
	OpSetPaused

	OpProposeToken
	OpObjectToken
	OpApproveToken
	OpRejectToken
	OpCancelToken
	OpFinalizeToken
	OpClaimTokenStake
	OpUpdateTokenStatus

	OpProposeSpotMarket
	OpObjectSpotMarket
	OpApproveSpotMarket
	OpRejectSpotMarket
	OpCancelSpotMarket
	OpFinalizeSpotMarket
	OpClaimSpotMarketStake
	OpUpdateSpotMarketStatus
	OpUpdateSpotMarketParams

	OpProposePerpMarket
	OpObjectPerpMarket
	OpApprovePerpMarket
	OpRejectPerpMarket
	OpCancelPerpMarket
	OpFinalizePerpMarket
	OpClaimPerpMarketStake
	OpUpdatePerpMarketStatus
	OpUpdatePerpMarketParams

	OpInitializePool
	OpFundPool
	OpAdjustPoolParams
	OpRefreshPoolOrders
	OpWithdrawPoolProfit
	OpRetirePool

	opCount
)

var opNames = map[Op]string{
	OpInitialize:             "Initialize",
	OpUpdateAdmin:            "UpdateAdmin",
	OpUpdateStakeConfig:      "UpdateStakeConfig",
	OpUpdateReviewPeriods:    "UpdateReviewPeriods",
	OpSetPaused:              "SetPaused",
	OpProposeToken:           "ProposeToken",
	OpObjectToken:            "ObjectToken",
	OpApproveToken:           "ApproveToken",
	OpRejectToken:            "RejectToken",
	OpCancelToken:            "CancelToken",
	OpFinalizeToken:          "FinalizeToken",
	OpClaimTokenStake:        "ClaimTokenStake",
	OpUpdateTokenStatus:      "UpdateTokenStatus",
	OpProposeSpotMarket:      "ProposeSpotMarket",
	OpObjectSpotMarket:       "ObjectSpotMarket",
	OpApproveSpotMarket:      "ApproveSpotMarket",
	OpRejectSpotMarket:       "RejectSpotMarket",
	OpCancelSpotMarket:       "CancelSpotMarket",
	OpFinalizeSpotMarket:     "FinalizeSpotMarket",
	OpClaimSpotMarketStake:   "ClaimSpotMarketStake",
	OpUpdateSpotMarketStatus: "UpdateSpotMarketStatus",
	OpUpdateSpotMarketParams: "UpdateSpotMarketParams",
	OpProposePerpMarket:      "ProposePerpMarket",
	OpObjectPerpMarket:       "ObjectPerpMarket",
	OpApprovePerpMarket:      "ApprovePerpMarket",
	OpRejectPerpMarket:       "RejectPerpMarket",
	OpCancelPerpMarket:       "CancelPerpMarket",
	OpFinalizePerpMarket:     "FinalizePerpMarket",
	OpClaimPerpMarketStake:   "ClaimPerpMarketStake",
	OpUpdatePerpMarketStatus: "UpdatePerpMarketStatus",
	OpUpdatePerpMarketParams: "UpdatePerpMarketParams",
	OpInitializePool:         "InitializePool",
	OpFundPool:               "FundPool",
	OpAdjustPoolParams:       "AdjustPoolParams",
	OpRefreshPoolOrders:      "RefreshPoolOrders",
	OpWithdrawPoolProfit:     "WithdrawPoolProfit",
	OpRetirePool:             "RetirePool",
}

// String returns the operation name for an opcode.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "Unknown"
}

// Track-block opcode arithmetic. Each track block lays out its operations in
// the same fixed order.
const (
	tokenBase Op = OpProposeToken
	spotBase  Op = OpProposeSpotMarket
	perpBase  Op = OpProposePerpMarket

	offsetPropose    = 0
	offsetObject     = 1
	offsetApprove    = 2
	offsetReject     = 3
	offsetCancel     = 4
	offsetFinalize   = 5
	offsetClaimStake = 6
	offsetStatus     = 7
	offsetParams     = 8
)
