package codec

import "listing-protocol/internal/domain"

// Config layout: disc(8) ver(1) admin(32) treasury(32) custody(32) fund(32)
// ledger(32) stake_amounts(8x3) review_periods(4x3) lock(4) totals(2x3)
// total_staked(8) is_paused(1) pending(2x3) reserved(64).

// EncodeConfig serializes the protocol configuration.
func EncodeConfig(c *domain.GlobalConfig) []byte {
	w := newWriter(ConfigDiscriminator, c.Version)
	w.address(c.Admin)
	w.address(c.Treasury)
	w.address(c.CustodyProgram)
	w.address(c.FundProgram)
	w.address(c.LedgerProgram)
	w.u64(c.TokenStakeAmount)
	w.u64(c.SpotStakeAmount)
	w.u64(c.PerpStakeAmount)
	w.u32(c.TokenReviewPeriod)
	w.u32(c.SpotReviewPeriod)
	w.u32(c.PerpReviewPeriod)
	w.u32(c.StakeLockPeriod)
	w.u16(c.TotalTokens)
	w.u16(c.TotalSpotMarkets)
	w.u16(c.TotalPerpMarkets)
	w.u64(c.TotalStaked)
	w.boolean(c.Paused)
	w.u16(c.PendingTokens)
	w.u16(c.PendingSpotMarkets)
	w.u16(c.PendingPerpMarkets)
	w.reserved()
	return w.bytes()
}

// DecodeConfig deserializes a protocol configuration record.
func DecodeConfig(data []byte) (*domain.GlobalConfig, error) {
	r := newReader(data, ConfigDiscriminator)
	c := &domain.GlobalConfig{Version: CurrentVersion}
	c.Admin = r.address()
	c.Treasury = r.address()
	c.CustodyProgram = r.address()
	c.FundProgram = r.address()
	c.LedgerProgram = r.address()
	c.TokenStakeAmount = r.u64()
	c.SpotStakeAmount = r.u64()
	c.PerpStakeAmount = r.u64()
	c.TokenReviewPeriod = r.u32()
	c.SpotReviewPeriod = r.u32()
	c.PerpReviewPeriod = r.u32()
	c.StakeLockPeriod = r.u32()
	c.TotalTokens = r.u16()
	c.TotalSpotMarkets = r.u16()
	c.TotalPerpMarkets = r.u16()
	c.TotalStaked = r.u64()
	c.Paused = r.boolean()
	c.PendingTokens = r.u16()
	c.PendingSpotMarkets = r.u16()
	c.PendingPerpMarkets = r.u16()
	r.reserved()
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}
