package engine

import (
	"context"
	"errors"

	"listing-protocol/internal/codec"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/storage"
)

// initialize creates the singleton configuration with default parameters.
// The signer becomes the admin.
func (e *Engine) initialize(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.Initialize) error {
	cfg := &domain.GlobalConfig{
		Version:           codec.CurrentVersion,
		Admin:             signer,
		Treasury:          keys.Treasury(),
		CustodyProgram:    in.CustodyProgram,
		FundProgram:       in.FundProgram,
		LedgerProgram:     in.LedgerProgram,
		TokenStakeAmount:  domain.DefaultTokenStake,
		SpotStakeAmount:   domain.DefaultSpotStake,
		PerpStakeAmount:   domain.DefaultPerpStake,
		TokenReviewPeriod: domain.DefaultTokenReviewPeriod,
		SpotReviewPeriod:  domain.DefaultSpotReviewPeriod,
		PerpReviewPeriod:  domain.DefaultPerpReviewPeriod,
		StakeLockPeriod:   domain.DefaultStakeLockPeriod,
	}

	if err := tx.Insert(ctx, keys.Config(), codec.EncodeConfig(cfg)); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return ErrAlreadyInitialized
		}
		return err
	}

	e.logger.Printf("initialized: admin=%s treasury=%s", signer, cfg.Treasury)
	return nil
}

// updateAdmin transfers admin authority.
func (e *Engine) updateAdmin(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.UpdateAdmin) error {
	cfg, err := e.requireAdmin(ctx, tx, signer)
	if err != nil {
		return err
	}
	cfg.Admin = in.NewAdmin
	return e.saveConfig(ctx, tx, cfg)
}

// updateStakeConfig patches per-track stake amounts.
func (e *Engine) updateStakeConfig(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.UpdateStakeConfig) error {
	cfg, err := e.requireAdmin(ctx, tx, signer)
	if err != nil {
		return err
	}
	if in.TokenStakeAmount != nil {
		if *in.TokenStakeAmount == 0 {
			return ErrInvalidAmount
		}
		cfg.TokenStakeAmount = *in.TokenStakeAmount
	}
	if in.SpotStakeAmount != nil {
		if *in.SpotStakeAmount == 0 {
			return ErrInvalidAmount
		}
		cfg.SpotStakeAmount = *in.SpotStakeAmount
	}
	if in.PerpStakeAmount != nil {
		if *in.PerpStakeAmount == 0 {
			return ErrInvalidAmount
		}
		cfg.PerpStakeAmount = *in.PerpStakeAmount
	}
	return e.saveConfig(ctx, tx, cfg)
}

// updateReviewPeriods patches review periods and the stake lock period.
func (e *Engine) updateReviewPeriods(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.UpdateReviewPeriods) error {
	cfg, err := e.requireAdmin(ctx, tx, signer)
	if err != nil {
		return err
	}
	if in.TokenReviewPeriod != nil {
		cfg.TokenReviewPeriod = *in.TokenReviewPeriod
	}
	if in.SpotReviewPeriod != nil {
		cfg.SpotReviewPeriod = *in.SpotReviewPeriod
	}
	if in.PerpReviewPeriod != nil {
		cfg.PerpReviewPeriod = *in.PerpReviewPeriod
	}
	if in.StakeLockPeriod != nil {
		cfg.StakeLockPeriod = *in.StakeLockPeriod
	}
	return e.saveConfig(ctx, tx, cfg)
}

// setPaused sets the protocol pause flag. Pausing blocks new proposals only;
// resolution and claims keep working so funds are never trapped.
func (e *Engine) setPaused(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.SetPaused) error {
	cfg, err := e.requireAdmin(ctx, tx, signer)
	if err != nil {
		return err
	}
	cfg.Paused = in.Paused
	return e.saveConfig(ctx, tx, cfg)
}
