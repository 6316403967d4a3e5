package engine

import (
	"context"

	"listing-protocol/internal/codec"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/storage"
)

// updateRegistryStatus sets the operational status of an approved entry.
func (e *Engine) updateRegistryStatus(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.UpdateRegistryStatus) error {
	if _, err := e.requireAdmin(ctx, tx, signer); err != nil {
		return err
	}

	addr := keys.Registry(in.Track, in.Index)
	switch in.Track {
	case domain.TrackToken:
		entry, err := e.loadTokenEntry(ctx, tx, in.Index)
		if err != nil {
			return err
		}
		entry.Status = in.Status
		return tx.Put(ctx, addr, codec.EncodeTokenEntry(entry))
	case domain.TrackSpot:
		m, err := e.loadSpotMarket(ctx, tx, in.Index)
		if err != nil {
			return err
		}
		m.Status = in.Status
		return tx.Put(ctx, addr, codec.EncodeSpotMarket(m))
	default:
		m, err := e.loadPerpMarket(ctx, tx, in.Index)
		if err != nil {
			return err
		}
		m.Status = in.Status
		return tx.Put(ctx, addr, codec.EncodePerpMarket(m))
	}
}

// updateSpotMarketParams patches trading parameters without touching the
// market's identity or index.
func (e *Engine) updateSpotMarketParams(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.UpdateSpotMarketParams) error {
	if _, err := e.requireAdmin(ctx, tx, signer); err != nil {
		return err
	}
	m, err := e.loadSpotMarket(ctx, tx, in.Index)
	if err != nil {
		return err
	}

	if in.TakerFeeBps != nil {
		m.TakerFeeBps = *in.TakerFeeBps
	}
	if in.MakerFeeBps != nil {
		m.MakerFeeBps = *in.MakerFeeBps
	}
	if in.MinOrderSizeE6 != nil {
		m.MinOrderSizeE6 = *in.MinOrderSizeE6
	}
	if in.MaxOrderSizeE6 != nil {
		m.MaxOrderSizeE6 = *in.MaxOrderSizeE6
	}
	if err := validateMarketParams(m.TickSizeE6, m.LotSizeE6, m.TakerFeeBps, m.MakerFeeBps, m.MinOrderSizeE6, m.MaxOrderSizeE6); err != nil {
		return err
	}
	return tx.Put(ctx, keys.Registry(domain.TrackSpot, in.Index), codec.EncodeSpotMarket(m))
}

// updatePerpMarketParams patches trading and risk parameters of a perp
// market.
func (e *Engine) updatePerpMarketParams(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.UpdatePerpMarketParams) error {
	if _, err := e.requireAdmin(ctx, tx, signer); err != nil {
		return err
	}
	m, err := e.loadPerpMarket(ctx, tx, in.Index)
	if err != nil {
		return err
	}

	if in.TakerFeeBps != nil {
		m.TakerFeeBps = *in.TakerFeeBps
	}
	if in.MakerFeeBps != nil {
		m.MakerFeeBps = *in.MakerFeeBps
	}
	if in.MinOrderSizeE6 != nil {
		m.MinOrderSizeE6 = *in.MinOrderSizeE6
	}
	if in.MaxOrderSizeE6 != nil {
		m.MaxOrderSizeE6 = *in.MaxOrderSizeE6
	}
	if in.MaxLeverage != nil {
		m.MaxLeverage = *in.MaxLeverage
	}
	if in.InitialMarginRateE6 != nil {
		m.InitialMarginRateE6 = *in.InitialMarginRateE6
	}
	if in.MaintenanceMarginRateE6 != nil {
		m.MaintenanceMarginRateE6 = *in.MaintenanceMarginRateE6
	}
	if in.MaxOpenInterestE6 != nil {
		m.MaxOpenInterestE6 = *in.MaxOpenInterestE6
	}

	if err := validateMarketParams(m.TickSizeE6, m.LotSizeE6, m.TakerFeeBps, m.MakerFeeBps, m.MinOrderSizeE6, m.MaxOrderSizeE6); err != nil {
		return err
	}
	if err := validateLeverage(m.MaxLeverage); err != nil {
		return err
	}
	if err := validateMarginRates(m.InitialMarginRateE6, m.MaintenanceMarginRateE6); err != nil {
		return err
	}
	return tx.Put(ctx, keys.Registry(domain.TrackPerp, in.Index), codec.EncodePerpMarket(m))
}
