// Package keys derives deterministic record addresses from seed tuples.
// An address is the first SHA-256 digest of seeds plus a bump byte that does
// not decode as a curve point, searching bumps downward from 255. Off-curve
// addresses cannot collide with signer public keys.
package keys

import (
	"crypto/sha256"
	"encoding/binary"

	"filippo.io/edwards25519"

	"listing-protocol/internal/domain"
)

// Seed prefixes for every record kind.
const (
	ConfigSeed        = "listing_config"
	TreasurySeed      = "listing_treasury"
	TokenSeed         = "token"
	TokenProposalSeed = "token_proposal"
	SpotMarketSeed    = "spot_market"
	SpotProposalSeed  = "spot_proposal"
	PerpMarketSeed    = "perp_market"
	PerpProposalSeed  = "perp_proposal"
	PoolSeed          = "plp4_pool"
)

// Derive hashes the seed tuple with a bump byte into an off-curve address.
// Derivation always succeeds: on average half the bump values are off-curve.
func Derive(seeds ...[]byte) domain.Address {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		var addr domain.Address
		h.Sum(addr[:0])
		if _, err := new(edwards25519.Point).SetBytes(addr[:]); err != nil {
			return addr
		}
	}
	// Unreachable in practice.
	panic("keys: no off-curve bump found")
}

// Config returns the address of the singleton protocol configuration.
func Config() domain.Address {
	return Derive([]byte(ConfigSeed))
}

// Treasury returns the address of the stake treasury.
func Treasury() domain.Address {
	return Derive([]byte(TreasurySeed))
}

// Proposal returns the address of a proposal record identified by
// (track, proposer, nonce).
func Proposal(track domain.Track, proposer domain.Address, nonce uint64) domain.Address {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	return Derive([]byte(proposalSeed(track)), proposer[:], n[:])
}

// Registry returns the address of an approved registry entry by track and
// dense index.
func Registry(track domain.Track, index uint16) domain.Address {
	var i [2]byte
	binary.LittleEndian.PutUint16(i[:], index)
	return Derive([]byte(registrySeed(track)), i[:])
}

// Pool returns the address of the liquidity pool bound to a market record.
func Pool(market domain.Address) domain.Address {
	return Derive([]byte(PoolSeed), market[:])
}

func proposalSeed(track domain.Track) string {
	switch track {
	case domain.TrackSpot:
		return SpotProposalSeed
	case domain.TrackPerp:
		return PerpProposalSeed
	default:
		return TokenProposalSeed
	}
}

func registrySeed(track domain.Track) string {
	switch track {
	case domain.TrackSpot:
		return SpotMarketSeed
	case domain.TrackPerp:
		return PerpMarketSeed
	default:
		return TokenSeed
	}
}
