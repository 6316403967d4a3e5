package codec

import "listing-protocol/internal/domain"

// Pool layout: disc(8) ver(1) market_type(1) market_index(2) market(32)
// creator(32) relayer(32) balance(8) principal(8) deployed(8) profit(8)
// price_lower(8) price_upper(8) density(2) spread(8) last_seq(8)
// last_price(8) active(1) created(8) retired(8) reserved(64).

// EncodePool serializes a liquidity pool record.
func EncodePool(p *domain.LiquidityPool) []byte {
	w := newWriter(PoolDiscriminator, p.Version)
	w.u8(uint8(p.MarketType))
	w.u16(p.MarketIndex)
	w.address(p.Market)
	w.address(p.Creator)
	w.address(p.Relayer)
	w.u64(p.BalanceE6)
	w.u64(p.PrincipalE6)
	w.u64(p.DeployedE6)
	w.u64(p.AccruedProfitE6)
	w.u64(p.PriceLowerE6)
	w.u64(p.PriceUpperE6)
	w.u16(p.OrderDensity)
	w.u64(p.SpreadBps)
	w.u64(p.LastPriceSeq)
	w.u64(p.LastPriceE6)
	w.boolean(p.Active)
	w.i64(p.CreatedAt)
	w.i64(p.RetiredAt)
	w.reserved()
	return w.bytes()
}

// DecodePool deserializes a liquidity pool record.
func DecodePool(data []byte) (*domain.LiquidityPool, error) {
	r := newReader(data, PoolDiscriminator)
	p := &domain.LiquidityPool{Version: CurrentVersion}
	p.MarketType = domain.MarketType(r.u8())
	p.MarketIndex = r.u16()
	p.Market = r.address()
	p.Creator = r.address()
	p.Relayer = r.address()
	p.BalanceE6 = r.u64()
	p.PrincipalE6 = r.u64()
	p.DeployedE6 = r.u64()
	p.AccruedProfitE6 = r.u64()
	p.PriceLowerE6 = r.u64()
	p.PriceUpperE6 = r.u64()
	p.OrderDensity = r.u16()
	p.SpreadBps = r.u64()
	p.LastPriceSeq = r.u64()
	p.LastPriceE6 = r.u64()
	p.Active = r.boolean()
	p.CreatedAt = r.i64()
	p.RetiredAt = r.i64()
	r.reserved()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}
