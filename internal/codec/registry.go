package codec

import "listing-protocol/internal/domain"

// TokenEntry layout: disc(8) ver(1) index(2) symbol(8) mint(32) decimals(1)
// oracle(33, optional) status(1) proposer(32) approved_at(8) reserved(64).

// EncodeTokenEntry serializes a token registry entry.
func EncodeTokenEntry(e *domain.TokenEntry) []byte {
	w := newWriter(TokenEntryDiscriminator, e.Version)
	w.u16(e.TokenIndex)
	w.symbol(e.Symbol, domain.TokenSymbolLen)
	w.address(e.Mint)
	w.u8(e.Decimals)
	w.optAddress(e.Oracle)
	w.u8(uint8(e.Status))
	w.address(e.Proposer)
	w.i64(e.ApprovedAt)
	w.reserved()
	return w.bytes()
}

// DecodeTokenEntry deserializes a token registry entry.
func DecodeTokenEntry(data []byte) (*domain.TokenEntry, error) {
	r := newReader(data, TokenEntryDiscriminator)
	e := &domain.TokenEntry{Version: CurrentVersion}
	e.TokenIndex = r.u16()
	e.Symbol = r.symbol(domain.TokenSymbolLen)
	e.Mint = r.address()
	e.Decimals = r.u8()
	e.Oracle = r.optAddress()
	e.Status = domain.RegistryStatus(r.u8())
	e.Proposer = r.address()
	e.ApprovedAt = r.i64()
	r.reserved()
	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

// SpotMarket layout: disc(8) ver(1) index(2) symbol(16) base(2) quote(2)
// tick(8) lot(8) taker(2) maker(2) min(8) max(8) status(1) proposer(32)
// approved_at(8) reserved(64).

// EncodeSpotMarket serializes a spot market record.
func EncodeSpotMarket(m *domain.SpotMarket) []byte {
	w := newWriter(SpotMarketDiscriminator, m.Version)
	w.u16(m.MarketIndex)
	w.symbol(m.Symbol, domain.MarketSymbolLen)
	w.u16(m.BaseTokenIndex)
	w.u16(m.QuoteTokenIndex)
	w.u64(m.TickSizeE6)
	w.u64(m.LotSizeE6)
	w.u16(m.TakerFeeBps)
	w.i16(m.MakerFeeBps)
	w.u64(m.MinOrderSizeE6)
	w.u64(m.MaxOrderSizeE6)
	w.u8(uint8(m.Status))
	w.address(m.Proposer)
	w.i64(m.ApprovedAt)
	w.reserved()
	return w.bytes()
}

// DecodeSpotMarket deserializes a spot market record.
func DecodeSpotMarket(data []byte) (*domain.SpotMarket, error) {
	r := newReader(data, SpotMarketDiscriminator)
	m := &domain.SpotMarket{Version: CurrentVersion}
	m.MarketIndex = r.u16()
	m.Symbol = r.symbol(domain.MarketSymbolLen)
	m.BaseTokenIndex = r.u16()
	m.QuoteTokenIndex = r.u16()
	m.TickSizeE6 = r.u64()
	m.LotSizeE6 = r.u64()
	m.TakerFeeBps = r.u16()
	m.MakerFeeBps = r.i16()
	m.MinOrderSizeE6 = r.u64()
	m.MaxOrderSizeE6 = r.u64()
	m.Status = domain.RegistryStatus(r.u8())
	m.Proposer = r.address()
	m.ApprovedAt = r.i64()
	r.reserved()
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// PerpMarket layout extends the spot layout with oracle(32) max_leverage(1)
// margin rates(4+4) max_oi(8) oi_long(8) oi_short(8) insurance(8)
// funding_rate(8) last_funding(8) before status.

// EncodePerpMarket serializes a perp market record.
func EncodePerpMarket(m *domain.PerpMarket) []byte {
	w := newWriter(PerpMarketDiscriminator, m.Version)
	w.u16(m.MarketIndex)
	w.symbol(m.Symbol, domain.MarketSymbolLen)
	w.u16(m.BaseTokenIndex)
	w.u16(m.QuoteTokenIndex)
	w.address(m.Oracle)
	w.u64(m.TickSizeE6)
	w.u64(m.LotSizeE6)
	w.u8(m.MaxLeverage)
	w.u32(m.InitialMarginRateE6)
	w.u32(m.MaintenanceMarginRateE6)
	w.u16(m.TakerFeeBps)
	w.i16(m.MakerFeeBps)
	w.u64(m.MinOrderSizeE6)
	w.u64(m.MaxOrderSizeE6)
	w.u64(m.MaxOpenInterestE6)
	w.u64(m.CurrentOpenInterestLongE6)
	w.u64(m.CurrentOpenInterestShortE6)
	w.u64(m.InsuranceFundDepositE6)
	w.i64(m.FundingRateE9)
	w.i64(m.LastFundingTS)
	w.u8(uint8(m.Status))
	w.address(m.Proposer)
	w.i64(m.ApprovedAt)
	w.reserved()
	return w.bytes()
}

// DecodePerpMarket deserializes a perp market record.
func DecodePerpMarket(data []byte) (*domain.PerpMarket, error) {
	r := newReader(data, PerpMarketDiscriminator)
	m := &domain.PerpMarket{Version: CurrentVersion}
	m.MarketIndex = r.u16()
	m.Symbol = r.symbol(domain.MarketSymbolLen)
	m.BaseTokenIndex = r.u16()
	m.QuoteTokenIndex = r.u16()
	m.Oracle = r.address()
	m.TickSizeE6 = r.u64()
	m.LotSizeE6 = r.u64()
	m.MaxLeverage = r.u8()
	m.InitialMarginRateE6 = r.u32()
	m.MaintenanceMarginRateE6 = r.u32()
	m.TakerFeeBps = r.u16()
	m.MakerFeeBps = r.i16()
	m.MinOrderSizeE6 = r.u64()
	m.MaxOrderSizeE6 = r.u64()
	m.MaxOpenInterestE6 = r.u64()
	m.CurrentOpenInterestLongE6 = r.u64()
	m.CurrentOpenInterestShortE6 = r.u64()
	m.InsuranceFundDepositE6 = r.u64()
	m.FundingRateE9 = r.i64()
	m.LastFundingTS = r.i64()
	m.Status = domain.RegistryStatus(r.u8())
	m.Proposer = r.address()
	m.ApprovedAt = r.i64()
	r.reserved()
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}
