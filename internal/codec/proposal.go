package codec

import (
	"fmt"

	"listing-protocol/internal/domain"
)

// Proposal layout, common to all tracks:
// disc(8) ver(1) proposer(32) nonce(8) <payload fields> stake(8) slashed(8)
// status(1) created(8) deadline(8) resolved(8) objection_count(2)
// objection_stake(8) claimed(1) reserved(64).

// EncodeProposal serializes a proposal record under its track's
// discriminator.
func EncodeProposal(p *domain.Proposal) ([]byte, error) {
	var w *writer
	switch payload := p.Payload.(type) {
	case domain.TokenPayload:
		w = newWriter(TokenProposalDiscriminator, p.Version)
		w.address(p.Proposer)
		w.u64(p.Nonce)
		w.symbol(payload.Symbol, domain.TokenSymbolLen)
		w.address(payload.Mint)
		w.u8(payload.Decimals)
		w.optAddress(payload.Oracle)
	case domain.SpotPayload:
		w = newWriter(SpotProposalDiscriminator, p.Version)
		w.address(p.Proposer)
		w.u64(p.Nonce)
		w.symbol(payload.Symbol, domain.MarketSymbolLen)
		w.u16(payload.BaseTokenIndex)
		w.u16(payload.QuoteTokenIndex)
		w.u64(payload.TickSizeE6)
		w.u64(payload.LotSizeE6)
		w.u16(payload.TakerFeeBps)
		w.i16(payload.MakerFeeBps)
		w.u64(payload.MinOrderSizeE6)
		w.u64(payload.MaxOrderSizeE6)
	case domain.PerpPayload:
		w = newWriter(PerpProposalDiscriminator, p.Version)
		w.address(p.Proposer)
		w.u64(p.Nonce)
		w.symbol(payload.Symbol, domain.MarketSymbolLen)
		w.u16(payload.BaseTokenIndex)
		w.u16(payload.QuoteTokenIndex)
		w.address(payload.Oracle)
		w.u64(payload.TickSizeE6)
		w.u64(payload.LotSizeE6)
		w.u8(payload.MaxLeverage)
		w.u32(payload.InitialMarginRateE6)
		w.u32(payload.MaintenanceMarginRateE6)
		w.u16(payload.TakerFeeBps)
		w.i16(payload.MakerFeeBps)
		w.u64(payload.MinOrderSizeE6)
		w.u64(payload.MaxOrderSizeE6)
		w.u64(payload.MaxOpenInterestE6)
		w.u64(payload.InsuranceFundDepositE6)
	default:
		return nil, fmt.Errorf("codec: unknown payload type %T", p.Payload)
	}
	w.u64(p.StakeAmount)
	w.u64(p.SlashedAmount)
	w.u8(uint8(p.Status))
	w.i64(p.CreatedAt)
	w.i64(p.ReviewDeadline)
	w.i64(p.ResolvedAt)
	w.u16(p.ObjectionCount)
	w.u64(0) // objection stake, carried for layout compatibility
	w.boolean(p.StakeClaimed)
	w.reserved()
	return w.bytes(), nil
}

// DecodeProposal deserializes a proposal record for the given track.
func DecodeProposal(track domain.Track, data []byte) (*domain.Proposal, error) {
	p := &domain.Proposal{Version: CurrentVersion, Track: track}
	var r *reader
	switch track {
	case domain.TrackToken:
		r = newReader(data, TokenProposalDiscriminator)
		p.Proposer = r.address()
		p.Nonce = r.u64()
		p.Payload = domain.TokenPayload{
			Symbol:   r.symbol(domain.TokenSymbolLen),
			Mint:     r.address(),
			Decimals: r.u8(),
			Oracle:   r.optAddress(),
		}
	case domain.TrackSpot:
		r = newReader(data, SpotProposalDiscriminator)
		p.Proposer = r.address()
		p.Nonce = r.u64()
		p.Payload = domain.SpotPayload{
			Symbol:          r.symbol(domain.MarketSymbolLen),
			BaseTokenIndex:  r.u16(),
			QuoteTokenIndex: r.u16(),
			TickSizeE6:      r.u64(),
			LotSizeE6:       r.u64(),
			TakerFeeBps:     r.u16(),
			MakerFeeBps:     r.i16(),
			MinOrderSizeE6:  r.u64(),
			MaxOrderSizeE6:  r.u64(),
		}
	case domain.TrackPerp:
		r = newReader(data, PerpProposalDiscriminator)
		p.Proposer = r.address()
		p.Nonce = r.u64()
		p.Payload = domain.PerpPayload{
			Symbol:                  r.symbol(domain.MarketSymbolLen),
			BaseTokenIndex:          r.u16(),
			QuoteTokenIndex:         r.u16(),
			Oracle:                  r.address(),
			TickSizeE6:              r.u64(),
			LotSizeE6:               r.u64(),
			MaxLeverage:             r.u8(),
			InitialMarginRateE6:     r.u32(),
			MaintenanceMarginRateE6: r.u32(),
			TakerFeeBps:             r.u16(),
			MakerFeeBps:             r.i16(),
			MinOrderSizeE6:          r.u64(),
			MaxOrderSizeE6:          r.u64(),
			MaxOpenInterestE6:       r.u64(),
			InsuranceFundDepositE6:  r.u64(),
		}
	default:
		return nil, fmt.Errorf("codec: unknown track %d", track)
	}
	p.StakeAmount = r.u64()
	p.SlashedAmount = r.u64()
	p.Status = domain.ProposalStatus(r.u8())
	p.CreatedAt = r.i64()
	p.ReviewDeadline = r.i64()
	p.ResolvedAt = r.i64()
	p.ObjectionCount = r.u16()
	r.u64() // objection stake, unused
	p.StakeClaimed = r.boolean()
	r.reserved()
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}
