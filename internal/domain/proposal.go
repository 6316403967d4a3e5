package domain

// Symbol field widths on the wire, ASCII null-padded.
const (
	TokenSymbolLen  = 8
	MarketSymbolLen = 16
)

// Proposal is one listing proposal on any track. (Proposer, Nonce) is the
// proposal's unique identity; reusing a nonce while the record exists fails.
// The record is immutable once terminal except for the claim flag, and is
// deleted only after the stake has been claimed.
type Proposal struct {
	Version  uint8
	Track    Track
	Proposer Address
	Nonce    uint64

	Payload Payload

	StakeAmount    uint64
	SlashedAmount  uint64 // portion forfeited to the treasury at resolution
	Status         ProposalStatus
	CreatedAt      int64 // unix seconds
	ReviewDeadline int64 // CreatedAt + track review period
	ResolvedAt     int64 // set on any terminal transition

	ObjectionCount uint16
	StakeClaimed   bool
}

// Refundable returns the stake remainder owed to the proposer after
// resolution.
func (p *Proposal) Refundable() uint64 {
	return p.StakeAmount - p.SlashedAmount
}

// Payload is the track-specific declared content of a proposal.
type Payload interface {
	PayloadTrack() Track
}

// TokenPayload declares a token for registration.
type TokenPayload struct {
	Symbol   string // 2-8 ASCII characters
	Mint     Address
	Decimals uint8
	Oracle   Address // optional; zero when absent
}

// PayloadTrack implements Payload.
func (TokenPayload) PayloadTrack() Track { return TrackToken }

// SpotPayload declares a spot market listing.
type SpotPayload struct {
	Symbol          string // e.g. "BTC/USDC", up to 16 ASCII characters
	BaseTokenIndex  uint16
	QuoteTokenIndex uint16
	TickSizeE6      uint64
	LotSizeE6       uint64
	TakerFeeBps     uint16
	MakerFeeBps     int16 // negative means rebate
	MinOrderSizeE6  uint64
	MaxOrderSizeE6  uint64
}

// PayloadTrack implements Payload.
func (SpotPayload) PayloadTrack() Track { return TrackSpot }

// PerpPayload declares a perpetual-futures market listing.
type PerpPayload struct {
	Symbol                  string // e.g. "BTC-USDC", up to 16 ASCII characters
	BaseTokenIndex          uint16
	QuoteTokenIndex         uint16
	Oracle                  Address // required
	TickSizeE6              uint64
	LotSizeE6               uint64
	MaxLeverage             uint8 // 1-100
	InitialMarginRateE6     uint32
	MaintenanceMarginRateE6 uint32
	TakerFeeBps             uint16
	MakerFeeBps             int16
	MinOrderSizeE6          uint64
	MaxOrderSizeE6          uint64
	MaxOpenInterestE6       uint64
	InsuranceFundDepositE6  uint64
}

// PayloadTrack implements Payload.
func (PerpPayload) PayloadTrack() Track { return TrackPerp }
