package engine

import (
	"context"
	"errors"
	"fmt"

	"listing-protocol/internal/codec"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/storage"
)

const maxTokenDecimals = 18

// validatePayload checks the declared content of a proposal. Rules are
// structural only; whether the listing is desirable is the review window's
// problem.
func (e *Engine) validatePayload(p domain.Payload) error {
	switch v := p.(type) {
	case domain.TokenPayload:
		if err := codec.ValidateSymbol(v.Symbol, domain.TokenSymbolLen); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSymbol, err)
		}
		if v.Decimals > maxTokenDecimals {
			return fmt.Errorf("%w: %d", ErrInvalidDecimals, v.Decimals)
		}
		if v.Mint.IsZero() {
			return fmt.Errorf("%w: zero mint", ErrInvalidReference)
		}
		return nil
	case domain.SpotPayload:
		if err := codec.ValidateSymbol(v.Symbol, domain.MarketSymbolLen); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSymbol, err)
		}
		return validateMarketParams(v.TickSizeE6, v.LotSizeE6, v.TakerFeeBps, v.MakerFeeBps, v.MinOrderSizeE6, v.MaxOrderSizeE6)
	case domain.PerpPayload:
		if err := codec.ValidateSymbol(v.Symbol, domain.MarketSymbolLen); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSymbol, err)
		}
		if err := validateMarketParams(v.TickSizeE6, v.LotSizeE6, v.TakerFeeBps, v.MakerFeeBps, v.MinOrderSizeE6, v.MaxOrderSizeE6); err != nil {
			return err
		}
		if v.Oracle.IsZero() {
			return fmt.Errorf("%w: perp market requires an oracle", ErrInvalidOracle)
		}
		if err := validateLeverage(v.MaxLeverage); err != nil {
			return err
		}
		return validateMarginRates(v.InitialMarginRateE6, v.MaintenanceMarginRateE6)
	default:
		return fmt.Errorf("engine: unknown payload type %T", p)
	}
}

func validateMarketParams(tick, lot uint64, taker uint16, maker int16, minSize, maxSize uint64) error {
	if tick == 0 {
		return ErrInvalidTickSize
	}
	if lot == 0 {
		return ErrInvalidLotSize
	}
	if taker > 10_000 {
		return fmt.Errorf("%w: taker %d bps", ErrInvalidFeeRate, taker)
	}
	// A maker rebate cannot exceed the taker fee that funds it.
	if maker < 0 && uint16(-maker) > taker {
		return fmt.Errorf("%w: maker rebate %d exceeds taker fee %d", ErrInvalidFeeRate, -maker, taker)
	}
	if maker > 10_000 {
		return fmt.Errorf("%w: maker %d bps", ErrInvalidFeeRate, maker)
	}
	if minSize == 0 || maxSize < minSize {
		return ErrInvalidOrderSize
	}
	return nil
}

func validateLeverage(lev uint8) error {
	if lev < 1 || lev > 100 {
		return fmt.Errorf("%w: %dx", ErrInvalidLeverage, lev)
	}
	return nil
}

func validateMarginRates(initial, maintenance uint32) error {
	// Rates are e6 fractions of notional: 1_000_000 = 100%.
	if initial == 0 || initial > 1_000_000 {
		return fmt.Errorf("%w: initial %d", ErrInvalidMarginRate, initial)
	}
	if maintenance == 0 || maintenance >= initial {
		return fmt.Errorf("%w: maintenance %d vs initial %d", ErrInvalidMarginRate, maintenance, initial)
	}
	return nil
}

// validateReferences checks that a market payload's base and quote resolve
// to existing Active token entries. Run at propose time and again at
// approval, since a referenced token may be delisted during review.
func (e *Engine) validateReferences(ctx context.Context, tx storage.Tx, p domain.Payload) error {
	var base, quote uint16
	switch v := p.(type) {
	case domain.TokenPayload:
		return nil
	case domain.SpotPayload:
		base, quote = v.BaseTokenIndex, v.QuoteTokenIndex
	case domain.PerpPayload:
		base, quote = v.BaseTokenIndex, v.QuoteTokenIndex
	}

	if base == quote {
		return fmt.Errorf("%w: base and quote are the same token", ErrInvalidReference)
	}
	for _, idx := range []uint16{base, quote} {
		entry, err := e.loadTokenEntry(ctx, tx, idx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: token index %d does not exist", ErrInvalidReference, idx)
			}
			return err
		}
		if entry.Status != domain.RegistryActive {
			return fmt.Errorf("%w: token index %d is %s", ErrInvalidReference, idx, entry.Status)
		}
	}
	return nil
}

func (e *Engine) loadTokenEntry(ctx context.Context, tx storage.Tx, index uint16) (*domain.TokenEntry, error) {
	data, err := tx.Get(ctx, keys.Registry(domain.TrackToken, index))
	if err != nil {
		return nil, err
	}
	return codec.DecodeTokenEntry(data)
}

func (e *Engine) loadSpotMarket(ctx context.Context, tx storage.Tx, index uint16) (*domain.SpotMarket, error) {
	data, err := tx.Get(ctx, keys.Registry(domain.TrackSpot, index))
	if err != nil {
		return nil, err
	}
	return codec.DecodeSpotMarket(data)
}

func (e *Engine) loadPerpMarket(ctx context.Context, tx storage.Tx, index uint16) (*domain.PerpMarket, error) {
	data, err := tx.Get(ctx, keys.Registry(domain.TrackPerp, index))
	if err != nil {
		return nil, err
	}
	return codec.DecodePerpMarket(data)
}
