package domain

// Default protocol parameters. Stake amounts are expressed in base units of
// the native staking token (9 decimals), so 1,000 units = 1e12.
const (
	DefaultTokenStake = 1_000_000_000_000 // 1,000 units
	DefaultSpotStake  = 2_000_000_000_000 // 2,000 units
	DefaultPerpStake  = 5_000_000_000_000 // 5,000 units

	DefaultTokenReviewPeriod = 7 * 24 * 60 * 60  // seconds
	DefaultSpotReviewPeriod  = 7 * 24 * 60 * 60  // seconds
	DefaultPerpReviewPeriod  = 14 * 24 * 60 * 60 // seconds
	DefaultStakeLockPeriod   = 30 * 24 * 60 * 60 // seconds
)

// GlobalConfig is the singleton protocol configuration record. The track
// counters are the only source of registry indices: they increase by exactly
// one on each successful Approve or Finalize and are never reused.
type GlobalConfig struct {
	Version  uint8
	Admin    Address
	Treasury Address

	// Collaborator subsystems, referenced but not owned.
	CustodyProgram Address // balance custody for spot trading balances
	FundProgram    Address // fee / insurance fund
	LedgerProgram  Address // perp position ledger

	TokenStakeAmount uint64
	SpotStakeAmount  uint64
	PerpStakeAmount  uint64

	TokenReviewPeriod uint32 // seconds
	SpotReviewPeriod  uint32 // seconds
	PerpReviewPeriod  uint32 // seconds
	StakeLockPeriod   uint32 // seconds

	TotalTokens      uint16
	TotalSpotMarkets uint16
	TotalPerpMarkets uint16

	// TotalStaked is the aggregate stake currently held by the treasury,
	// including slashed amounts not yet swept.
	TotalStaked uint64

	Paused bool

	// Pending proposals per track. Incremented on Propose, decremented on
	// any resolution; not the approved-index counters.
	PendingTokens      uint16
	PendingSpotMarkets uint16
	PendingPerpMarkets uint16
}

// StakeAmount returns the configured stake for a track.
func (c *GlobalConfig) StakeAmount(t Track) uint64 {
	switch t {
	case TrackSpot:
		return c.SpotStakeAmount
	case TrackPerp:
		return c.PerpStakeAmount
	default:
		return c.TokenStakeAmount
	}
}

// ReviewPeriod returns the configured review period in seconds for a track.
func (c *GlobalConfig) ReviewPeriod(t Track) uint32 {
	switch t {
	case TrackSpot:
		return c.SpotReviewPeriod
	case TrackPerp:
		return c.PerpReviewPeriod
	default:
		return c.TokenReviewPeriod
	}
}

// Counter returns the approved-entry counter for a track.
func (c *GlobalConfig) Counter(t Track) uint16 {
	switch t {
	case TrackSpot:
		return c.TotalSpotMarkets
	case TrackPerp:
		return c.TotalPerpMarkets
	default:
		return c.TotalTokens
	}
}

// BumpCounter increments the approved-entry counter for a track and returns
// the index assigned to the new entry.
func (c *GlobalConfig) BumpCounter(t Track) uint16 {
	switch t {
	case TrackSpot:
		idx := c.TotalSpotMarkets
		c.TotalSpotMarkets++
		return idx
	case TrackPerp:
		idx := c.TotalPerpMarkets
		c.TotalPerpMarkets++
		return idx
	default:
		idx := c.TotalTokens
		c.TotalTokens++
		return idx
	}
}

// AddPending adjusts the pending-proposal counter for a track by delta.
func (c *GlobalConfig) AddPending(t Track, delta int) {
	d := uint16(delta)
	switch t {
	case TrackSpot:
		c.PendingSpotMarkets += d
	case TrackPerp:
		c.PendingPerpMarkets += d
	default:
		c.PendingTokens += d
	}
}
