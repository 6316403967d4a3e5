package instruction

import (
	"encoding/binary"
	"errors"
	"fmt"

	"listing-protocol/internal/domain"
)

// Wire format: opcode byte followed by fixed-order little-endian operands.
// Optional operands are a presence byte followed by the value.

var (
	ErrUnknownOpcode = errors.New("instruction: unknown opcode")
	ErrShort         = errors.New("instruction: truncated")
	ErrTrailing      = errors.New("instruction: trailing bytes")
)

// Encode serializes an instruction to its wire form.
func Encode(in Instruction) ([]byte, error) {
	w := &wireWriter{buf: []byte{byte(in.Opcode())}}

	switch v := in.(type) {
	case Initialize:
		w.address(v.CustodyProgram)
		w.address(v.FundProgram)
		w.address(v.LedgerProgram)
	case UpdateAdmin:
		w.address(v.NewAdmin)
	case UpdateStakeConfig:
		w.optU64(v.TokenStakeAmount)
		w.optU64(v.SpotStakeAmount)
		w.optU64(v.PerpStakeAmount)
	case UpdateReviewPeriods:
		w.optU32(v.TokenReviewPeriod)
		w.optU32(v.SpotReviewPeriod)
		w.optU32(v.PerpReviewPeriod)
		w.optU32(v.StakeLockPeriod)
	case SetPaused:
		w.boolean(v.Paused)
	case Propose:
		w.u64(v.Nonce)
		if err := w.payload(v.Payload); err != nil {
			return nil, err
		}
		w.u64(v.StakeAmount)
	case Object:
		w.address(v.Proposer)
		w.u64(v.Nonce)
	case Approve:
		w.address(v.Proposer)
		w.u64(v.Nonce)
	case Reject:
		w.address(v.Proposer)
		w.u64(v.Nonce)
		w.u8(uint8(v.Severity))
	case Cancel:
		w.u64(v.Nonce)
	case Finalize:
		w.address(v.Proposer)
		w.u64(v.Nonce)
	case ClaimStake:
		w.u64(v.Nonce)
	case UpdateRegistryStatus:
		w.u16(v.Index)
		w.u8(uint8(v.Status))
	case UpdateSpotMarketParams:
		w.u16(v.Index)
		w.optU16(v.TakerFeeBps)
		w.optI16(v.MakerFeeBps)
		w.optU64(v.MinOrderSizeE6)
		w.optU64(v.MaxOrderSizeE6)
	case UpdatePerpMarketParams:
		w.u16(v.Index)
		w.optU16(v.TakerFeeBps)
		w.optI16(v.MakerFeeBps)
		w.optU64(v.MinOrderSizeE6)
		w.optU64(v.MaxOrderSizeE6)
		w.optU8(v.MaxLeverage)
		w.optU32(v.InitialMarginRateE6)
		w.optU32(v.MaintenanceMarginRateE6)
		w.optU64(v.MaxOpenInterestE6)
	case InitializePool:
		w.u8(uint8(v.MarketType))
		w.u16(v.MarketIndex)
		w.address(v.Relayer)
		w.u64(v.PriceLowerE6)
		w.u64(v.PriceUpperE6)
		w.u16(v.OrderDensity)
		w.u64(v.SpreadBps)
	case FundPool:
		w.u8(uint8(v.MarketType))
		w.u16(v.MarketIndex)
		w.u64(v.AmountE6)
	case AdjustPoolParams:
		w.u8(uint8(v.MarketType))
		w.u16(v.MarketIndex)
		w.optU64(v.PriceLowerE6)
		w.optU64(v.PriceUpperE6)
		w.optU16(v.OrderDensity)
		w.optU64(v.SpreadBps)
		w.optAddress(v.Relayer)
	case RefreshPoolOrders:
		w.u8(uint8(v.MarketType))
		w.u16(v.MarketIndex)
		w.u64(v.PriceE6)
		w.u64(v.PriceSeq)
		w.u64(v.RealizedProfitE6)
	case WithdrawPoolProfit:
		w.u8(uint8(v.MarketType))
		w.u16(v.MarketIndex)
		w.u64(v.AmountE6)
		w.address(v.Recipient)
	case RetirePool:
		w.u8(uint8(v.MarketType))
		w.u16(v.MarketIndex)
		w.address(v.Recipient)
	default:
		return nil, fmt.Errorf("instruction: unknown variant %T", in)
	}
	return w.buf, nil
}

// Decode parses a wire instruction. The whole buffer must be consumed.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, ErrShort
	}
	op := Op(data[0])
	r := &wireReader{buf: data[1:]}

	var in Instruction
	switch op {
	case OpInitialize:
		in = Initialize{
			CustodyProgram: r.address(),
			FundProgram:    r.address(),
			LedgerProgram:  r.address(),
		}
	case OpUpdateAdmin:
		in = UpdateAdmin{NewAdmin: r.address()}
	case OpUpdateStakeConfig:
		in = UpdateStakeConfig{
			TokenStakeAmount: r.optU64(),
			SpotStakeAmount:  r.optU64(),
			PerpStakeAmount:  r.optU64(),
		}
	case OpUpdateReviewPeriods:
		in = UpdateReviewPeriods{
			TokenReviewPeriod: r.optU32(),
			SpotReviewPeriod:  r.optU32(),
			PerpReviewPeriod:  r.optU32(),
			StakeLockPeriod:   r.optU32(),
		}
	case OpSetPaused:
		in = SetPaused{Paused: r.boolean()}
	case OpProposeToken, OpProposeSpotMarket, OpProposePerpMarket:
		track := opTrack(op)
		nonce := r.u64()
		payload := r.payload(track)
		in = Propose{Nonce: nonce, Payload: payload, StakeAmount: r.u64()}
	case OpObjectToken, OpObjectSpotMarket, OpObjectPerpMarket:
		in = Object{Track: opTrack(op), Proposer: r.address(), Nonce: r.u64()}
	case OpApproveToken, OpApproveSpotMarket, OpApprovePerpMarket:
		in = Approve{Track: opTrack(op), Proposer: r.address(), Nonce: r.u64()}
	case OpRejectToken, OpRejectSpotMarket, OpRejectPerpMarket:
		in = Reject{
			Track:    opTrack(op),
			Proposer: r.address(),
			Nonce:    r.u64(),
			Severity: domain.Severity(r.u8()),
		}
	case OpCancelToken, OpCancelSpotMarket, OpCancelPerpMarket:
		in = Cancel{Track: opTrack(op), Nonce: r.u64()}
	case OpFinalizeToken, OpFinalizeSpotMarket, OpFinalizePerpMarket:
		in = Finalize{Track: opTrack(op), Proposer: r.address(), Nonce: r.u64()}
	case OpClaimTokenStake, OpClaimSpotMarketStake, OpClaimPerpMarketStake:
		in = ClaimStake{Track: opTrack(op), Nonce: r.u64()}
	case OpUpdateTokenStatus, OpUpdateSpotMarketStatus, OpUpdatePerpMarketStatus:
		in = UpdateRegistryStatus{
			Track:  opTrack(op),
			Index:  r.u16(),
			Status: domain.RegistryStatus(r.u8()),
		}
	case OpUpdateSpotMarketParams:
		in = UpdateSpotMarketParams{
			Index:          r.u16(),
			TakerFeeBps:    r.optU16(),
			MakerFeeBps:    r.optI16(),
			MinOrderSizeE6: r.optU64(),
			MaxOrderSizeE6: r.optU64(),
		}
	case OpUpdatePerpMarketParams:
		in = UpdatePerpMarketParams{
			Index:                   r.u16(),
			TakerFeeBps:             r.optU16(),
			MakerFeeBps:             r.optI16(),
			MinOrderSizeE6:          r.optU64(),
			MaxOrderSizeE6:          r.optU64(),
			MaxLeverage:             r.optU8(),
			InitialMarginRateE6:     r.optU32(),
			MaintenanceMarginRateE6: r.optU32(),
			MaxOpenInterestE6:       r.optU64(),
		}
	case OpInitializePool:
		in = InitializePool{
			MarketType:   domain.MarketType(r.u8()),
			MarketIndex:  r.u16(),
			Relayer:      r.address(),
			PriceLowerE6: r.u64(),
			PriceUpperE6: r.u64(),
			OrderDensity: r.u16(),
			SpreadBps:    r.u64(),
		}
	case OpFundPool:
		in = FundPool{
			MarketType:  domain.MarketType(r.u8()),
			MarketIndex: r.u16(),
			AmountE6:    r.u64(),
		}
	case OpAdjustPoolParams:
		in = AdjustPoolParams{
			MarketType:   domain.MarketType(r.u8()),
			MarketIndex:  r.u16(),
			PriceLowerE6: r.optU64(),
			PriceUpperE6: r.optU64(),
			OrderDensity: r.optU16(),
			SpreadBps:    r.optU64(),
			Relayer:      r.optAddress(),
		}
	case OpRefreshPoolOrders:
		in = RefreshPoolOrders{
			MarketType:       domain.MarketType(r.u8()),
			MarketIndex:      r.u16(),
			PriceE6:          r.u64(),
			PriceSeq:         r.u64(),
			RealizedProfitE6: r.u64(),
		}
	case OpWithdrawPoolProfit:
		in = WithdrawPoolProfit{
			MarketType:  domain.MarketType(r.u8()),
			MarketIndex: r.u16(),
			AmountE6:    r.u64(),
			Recipient:   r.address(),
		}
	case OpRetirePool:
		in = RetirePool{
			MarketType:  domain.MarketType(r.u8()),
			MarketIndex: r.u16(),
			Recipient:   r.address(),
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, op)
	}

	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, ErrTrailing
	}
	return in, nil
}

// opTrack maps a track-block opcode to its track. Only valid for opcodes in
// the track blocks.
func opTrack(op Op) domain.Track {
	switch {
	case op >= perpBase:
		return domain.TrackPerp
	case op >= spotBase:
		return domain.TrackSpot
	default:
		return domain.TrackToken
	}
}

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *wireWriter) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *wireWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *wireWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *wireWriter) i16(v int16)  { w.u16(uint16(v)) }

func (w *wireWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *wireWriter) address(a domain.Address) { w.buf = append(w.buf, a[:]...) }

func (w *wireWriter) symbol(s string, width int) {
	b := make([]byte, width)
	copy(b, s)
	w.buf = append(w.buf, b...)
}

func (w *wireWriter) optU8(v *uint8) {
	w.boolean(v != nil)
	if v != nil {
		w.u8(*v)
	}
}

func (w *wireWriter) optU16(v *uint16) {
	w.boolean(v != nil)
	if v != nil {
		w.u16(*v)
	}
}

func (w *wireWriter) optI16(v *int16) {
	w.boolean(v != nil)
	if v != nil {
		w.i16(*v)
	}
}

func (w *wireWriter) optU32(v *uint32) {
	w.boolean(v != nil)
	if v != nil {
		w.u32(*v)
	}
}

func (w *wireWriter) optU64(v *uint64) {
	w.boolean(v != nil)
	if v != nil {
		w.u64(*v)
	}
}

func (w *wireWriter) optAddress(a *domain.Address) {
	w.boolean(a != nil)
	if a != nil {
		w.address(*a)
	}
}

func (w *wireWriter) payload(p domain.Payload) error {
	switch v := p.(type) {
	case domain.TokenPayload:
		w.symbol(v.Symbol, domain.TokenSymbolLen)
		w.address(v.Mint)
		w.u8(v.Decimals)
		w.boolean(!v.Oracle.IsZero())
		w.address(v.Oracle)
	case domain.SpotPayload:
		w.symbol(v.Symbol, domain.MarketSymbolLen)
		w.u16(v.BaseTokenIndex)
		w.u16(v.QuoteTokenIndex)
		w.u64(v.TickSizeE6)
		w.u64(v.LotSizeE6)
		w.u16(v.TakerFeeBps)
		w.i16(v.MakerFeeBps)
		w.u64(v.MinOrderSizeE6)
		w.u64(v.MaxOrderSizeE6)
	case domain.PerpPayload:
		w.symbol(v.Symbol, domain.MarketSymbolLen)
		w.u16(v.BaseTokenIndex)
		w.u16(v.QuoteTokenIndex)
		w.address(v.Oracle)
		w.u64(v.TickSizeE6)
		w.u64(v.LotSizeE6)
		w.u8(v.MaxLeverage)
		w.u32(v.InitialMarginRateE6)
		w.u32(v.MaintenanceMarginRateE6)
		w.u16(v.TakerFeeBps)
		w.i16(v.MakerFeeBps)
		w.u64(v.MinOrderSizeE6)
		w.u64(v.MaxOrderSizeE6)
		w.u64(v.MaxOpenInterestE6)
		w.u64(v.InsuranceFundDepositE6)
	default:
		return fmt.Errorf("instruction: unknown payload type %T", p)
	}
	return nil
}

type wireReader struct {
	buf []byte
	err error
}

func (r *wireReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = ErrShort
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *wireReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *wireReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *wireReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *wireReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *wireReader) i16() int16 { return int16(r.u16()) }

func (r *wireReader) boolean() bool { return r.u8() != 0 }

func (r *wireReader) address() domain.Address {
	var a domain.Address
	copy(a[:], r.take(32))
	return a
}

func (r *wireReader) symbol(width int) string {
	b := r.take(width)
	if b == nil {
		return ""
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (r *wireReader) optU8() *uint8 {
	if !r.boolean() {
		return nil
	}
	v := r.u8()
	return &v
}

func (r *wireReader) optU16() *uint16 {
	if !r.boolean() {
		return nil
	}
	v := r.u16()
	return &v
}

func (r *wireReader) optI16() *int16 {
	if !r.boolean() {
		return nil
	}
	v := r.i16()
	return &v
}

func (r *wireReader) optU32() *uint32 {
	if !r.boolean() {
		return nil
	}
	v := r.u32()
	return &v
}

func (r *wireReader) optU64() *uint64 {
	if !r.boolean() {
		return nil
	}
	v := r.u64()
	return &v
}

func (r *wireReader) optAddress() *domain.Address {
	if !r.boolean() {
		return nil
	}
	a := r.address()
	return &a
}

func (r *wireReader) payload(track domain.Track) domain.Payload {
	switch track {
	case domain.TrackSpot:
		return domain.SpotPayload{
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
		return domain.PerpPayload{
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
		p := domain.TokenPayload{
			Symbol:   r.symbol(domain.TokenSymbolLen),
			Mint:     r.address(),
			Decimals: r.u8(),
		}
		present := r.boolean()
		oracle := r.address()
		if present {
			p.Oracle = oracle
		}
		return p
	}
}
