package engine

import "errors"

// Instruction failure taxonomy. Every error aborts the whole instruction;
// nothing is committed. Timing errors (ErrStakeLocked,
// ErrReviewPeriodNotElapsed) are transient and resolve by waiting; the rest
// are permanent for the given inputs.
var (
	ErrUnauthorized           = errors.New("unauthorized signer")
	ErrInvalidProposalState   = errors.New("operation not allowed in current proposal state")
	ErrDuplicateProposal      = errors.New("proposal nonce already in use")
	ErrInsufficientStake      = errors.New("stake amount does not match configuration")
	ErrStakeLocked            = errors.New("stake lock period has not elapsed")
	ErrReviewPeriodNotElapsed = errors.New("review period has not elapsed")
	ErrAlreadyClaimed         = errors.New("stake already claimed")
	ErrProtocolPaused         = errors.New("protocol is paused")
	ErrInvalidReference       = errors.New("referenced token is not active")
	ErrCollaboratorCallFailed = errors.New("collaborator subsystem call failed")

	ErrNotInitialized     = errors.New("protocol not initialized")
	ErrAlreadyInitialized = errors.New("protocol already initialized")

	// Payload validation.
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrInvalidDecimals   = errors.New("invalid decimals")
	ErrInvalidTickSize   = errors.New("invalid tick size")
	ErrInvalidLotSize    = errors.New("invalid lot size")
	ErrInvalidFeeRate    = errors.New("invalid fee rate")
	ErrInvalidOrderSize  = errors.New("invalid order size bounds")
	ErrInvalidLeverage   = errors.New("invalid leverage")
	ErrInvalidMarginRate = errors.New("invalid margin rate")
	ErrInvalidOracle     = errors.New("invalid oracle")

	// Liquidity pool.
	ErrInvalidPriceRange   = errors.New("invalid price range")
	ErrInvalidOrderDensity = errors.New("invalid order density")
	ErrInvalidSpread       = errors.New("invalid spread")
	ErrPoolNotActive       = errors.New("pool is not active")
	ErrInvalidPriceSeq     = errors.New("price sequence must be positive")
	ErrInsufficientProfit  = errors.New("amount exceeds accrued profit")
	ErrInvalidAmount       = errors.New("invalid amount")
)
