package domain

// TokenEntry is an approved token registration. Indices are dense and
// zero-based: entry N was the (N+1)th approval on the token track.
type TokenEntry struct {
	Version    uint8
	TokenIndex uint16
	Symbol     string
	Mint       Address
	Decimals   uint8
	Oracle     Address // optional; zero when absent
	Status     RegistryStatus
	Proposer   Address
	ApprovedAt int64
}

// SpotMarket is an approved spot market listing.
type SpotMarket struct {
	Version         uint8
	MarketIndex     uint16
	Symbol          string
	BaseTokenIndex  uint16
	QuoteTokenIndex uint16
	TickSizeE6      uint64
	LotSizeE6       uint64
	TakerFeeBps     uint16
	MakerFeeBps     int16
	MinOrderSizeE6  uint64
	MaxOrderSizeE6  uint64
	Status          RegistryStatus
	Proposer        Address
	ApprovedAt      int64
}

// PerpMarket is an approved perpetual-futures market listing. The open
// interest and funding fields are maintained by the position-ledger
// collaborator and only seeded here.
type PerpMarket struct {
	Version                    uint8
	MarketIndex                uint16
	Symbol                     string
	BaseTokenIndex             uint16
	QuoteTokenIndex            uint16
	Oracle                     Address
	TickSizeE6                 uint64
	LotSizeE6                  uint64
	MaxLeverage                uint8
	InitialMarginRateE6        uint32
	MaintenanceMarginRateE6    uint32
	TakerFeeBps                uint16
	MakerFeeBps                int16
	MinOrderSizeE6             uint64
	MaxOrderSizeE6             uint64
	MaxOpenInterestE6          uint64
	CurrentOpenInterestLongE6  uint64
	CurrentOpenInterestShortE6 uint64
	InsuranceFundDepositE6     uint64
	FundingRateE9              int64
	LastFundingTS              int64
	Status                     RegistryStatus
	Proposer                   Address
	ApprovedAt                 int64
}
