package domain

// Track identifies one of the three listing categories. Each track is an
// instance of the same proposal lifecycle with its own stake amount, review
// period and registry counter.
type Track uint8

const (
	TrackToken Track = iota
	TrackSpot
	TrackPerp
)

// String returns a human-readable track name.
func (t Track) String() string {
	switch t {
	case TrackToken:
		return "token"
	case TrackSpot:
		return "spot"
	case TrackPerp:
		return "perp"
	default:
		return "unknown"
	}
}

// ProposalStatus is the lifecycle state of a proposal.
// Pending is the only non-terminal state.
type ProposalStatus uint8

const (
	StatusPending ProposalStatus = iota
	StatusApproved
	StatusRejected
	StatusCancelled
)

// Terminal reports whether the status is a terminal outcome.
func (s ProposalStatus) Terminal() bool {
	return s != StatusPending
}

// String returns a human-readable status name.
func (s ProposalStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RegistryStatus is the operational state of an approved registry entry,
// mutable by the admin after approval.
type RegistryStatus uint8

const (
	RegistryActive RegistryStatus = iota
	RegistrySuspended
	RegistryDelisted
)

// String returns a human-readable registry status name.
func (s RegistryStatus) String() string {
	switch s {
	case RegistryActive:
		return "active"
	case RegistrySuspended:
		return "suspended"
	case RegistryDelisted:
		return "delisted"
	default:
		return "unknown"
	}
}

// Severity classifies an admin rejection and fixes the slash fraction.
type Severity uint8

const (
	SeverityMinor Severity = iota
	SeverityMalicious
	SeverityFraud
)

// SlashPercent returns the stake percentage forfeited to the treasury for
// this rejection severity.
func (s Severity) SlashPercent() uint64 {
	switch s {
	case SeverityMinor:
		return 10
	case SeverityMalicious:
		return 50
	case SeverityFraud:
		return 100
	default:
		return 100
	}
}

// CancelSlashPercent is the stake percentage forfeited on proposer self-cancel.
const CancelSlashPercent = 5

// MarketType distinguishes spot and perp markets for liquidity pools.
type MarketType uint8

const (
	MarketSpot MarketType = iota
	MarketPerp
)

// String returns a human-readable market type name.
func (m MarketType) String() string {
	if m == MarketPerp {
		return "perp"
	}
	return "spot"
}
