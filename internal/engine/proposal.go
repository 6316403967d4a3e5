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

// loadProposal reads a proposal by its (track, proposer, nonce) identity.
func (e *Engine) loadProposal(ctx context.Context, tx storage.Tx, track domain.Track, proposer domain.Address, nonce uint64) (*domain.Proposal, error) {
	data, err := tx.Get(ctx, keys.Proposal(track, proposer, nonce))
	if err != nil {
		return nil, err
	}
	return codec.DecodeProposal(track, data)
}

func (e *Engine) saveProposal(ctx context.Context, tx storage.Tx, p *domain.Proposal) error {
	data, err := codec.EncodeProposal(p)
	if err != nil {
		return err
	}
	return tx.Put(ctx, keys.Proposal(p.Track, p.Proposer, p.Nonce), data)
}

// propose creates a pending proposal and moves the stake into the treasury.
func (e *Engine) propose(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.Propose) error {
	cfg, err := e.loadConfig(ctx, tx)
	if err != nil {
		return err
	}
	if cfg.Paused {
		return ErrProtocolPaused
	}

	track := in.Payload.PayloadTrack()
	if err := e.validatePayload(in.Payload); err != nil {
		return err
	}
	if err := e.validateReferences(ctx, tx, in.Payload); err != nil {
		return err
	}
	if in.StakeAmount != cfg.StakeAmount(track) {
		return ErrInsufficientStake
	}

	addr := keys.Proposal(track, signer, in.Nonce)
	if _, err := tx.Get(ctx, addr); err == nil {
		return ErrDuplicateProposal
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	now := e.clock.Now()
	p := &domain.Proposal{
		Version:        codec.CurrentVersion,
		Track:          track,
		Proposer:       signer,
		Nonce:          in.Nonce,
		Payload:        in.Payload,
		StakeAmount:    in.StakeAmount,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		ReviewDeadline: now + int64(cfg.ReviewPeriod(track)),
	}
	data, err := codec.EncodeProposal(p)
	if err != nil {
		return err
	}
	if err := tx.Insert(ctx, addr, data); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return ErrDuplicateProposal
		}
		return err
	}

	cfg.TotalStaked += in.StakeAmount
	cfg.AddPending(track, 1)
	if err := e.saveConfig(ctx, tx, cfg); err != nil {
		return err
	}

	// Stake moves last. A custody failure here aborts the transaction with
	// no record written; a storage failure above never reaches the transfer.
	if err := e.transferCustody(ctx, signer, cfg.Treasury, in.StakeAmount); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.ProposalsCreated.WithLabelValues(track.String()).Inc()
	}
	return nil
}

// object records an advisory objection. It never blocks resolution; the
// count is an audit signal for the admin during review.
func (e *Engine) object(ctx context.Context, tx storage.Tx, _ domain.Address, in instruction.Object) error {
	p, err := e.loadProposal(ctx, tx, in.Track, in.Proposer, in.Nonce)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusPending {
		return ErrInvalidProposalState
	}
	if e.clock.Now() >= p.ReviewDeadline {
		return ErrInvalidProposalState
	}
	p.ObjectionCount++
	return e.saveProposal(ctx, tx, p)
}

// approve resolves a pending proposal as approved. Admin only.
func (e *Engine) approve(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.Approve) error {
	cfg, err := e.requireAdmin(ctx, tx, signer)
	if err != nil {
		return err
	}
	p, err := e.loadProposal(ctx, tx, in.Track, in.Proposer, in.Nonce)
	if err != nil {
		return err
	}
	return e.resolveApproved(ctx, tx, cfg, p)
}

// finalize auto-approves once the review period has elapsed. Absence of
// admin action within the window counts as approval.
func (e *Engine) finalize(ctx context.Context, tx storage.Tx, _ domain.Address, in instruction.Finalize) error {
	cfg, err := e.loadConfig(ctx, tx)
	if err != nil {
		return err
	}
	p, err := e.loadProposal(ctx, tx, in.Track, in.Proposer, in.Nonce)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusPending {
		return ErrInvalidProposalState
	}
	if e.clock.Now() < p.ReviewDeadline {
		return ErrReviewPeriodNotElapsed
	}
	return e.resolveApproved(ctx, tx, cfg, p)
}

// resolveApproved is the shared approval path: index assignment, registry
// minting, collaborator hooks, proposal settlement. The whole sequence is
// inside the caller's transaction.
func (e *Engine) resolveApproved(ctx context.Context, tx storage.Tx, cfg *domain.GlobalConfig, p *domain.Proposal) error {
	if p.Status != domain.StatusPending {
		return ErrInvalidProposalState
	}
	// Referenced tokens may have been delisted during the review window.
	if err := e.validateReferences(ctx, tx, p.Payload); err != nil {
		return err
	}

	now := e.clock.Now()
	index := cfg.BumpCounter(p.Track)
	cfg.AddPending(p.Track, -1)

	p.Status = domain.StatusApproved
	p.ResolvedAt = now
	if err := e.saveProposal(ctx, tx, p); err != nil {
		return err
	}
	if err := e.saveConfig(ctx, tx, cfg); err != nil {
		return err
	}

	// Runs last: the collaborator calls inside cannot roll back with the
	// transaction, so no fallible storage write may follow them.
	if err := e.mintRegistryEntry(ctx, tx, p, index, now); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.ProposalsResolved.WithLabelValues(p.Track.String(), domain.StatusApproved.String()).Inc()
		e.metrics.RegistryEntries.WithLabelValues(p.Track.String()).Set(float64(cfg.Counter(p.Track)))
	}
	return nil
}

// mintRegistryEntry creates the registry record for an approved proposal
// and invokes the track's collaborator hooks.
func (e *Engine) mintRegistryEntry(ctx context.Context, tx storage.Tx, p *domain.Proposal, index uint16, now int64) error {
	addr := keys.Registry(p.Track, index)

	switch payload := p.Payload.(type) {
	case domain.TokenPayload:
		entry := &domain.TokenEntry{
			Version:    codec.CurrentVersion,
			TokenIndex: index,
			Symbol:     payload.Symbol,
			Mint:       payload.Mint,
			Decimals:   payload.Decimals,
			Oracle:     payload.Oracle,
			Status:     domain.RegistryActive,
			Proposer:   p.Proposer,
			ApprovedAt: now,
		}
		return tx.Insert(ctx, addr, codec.EncodeTokenEntry(entry))
	case domain.SpotPayload:
		m := &domain.SpotMarket{
			Version:         codec.CurrentVersion,
			MarketIndex:     index,
			Symbol:          payload.Symbol,
			BaseTokenIndex:  payload.BaseTokenIndex,
			QuoteTokenIndex: payload.QuoteTokenIndex,
			TickSizeE6:      payload.TickSizeE6,
			LotSizeE6:       payload.LotSizeE6,
			TakerFeeBps:     payload.TakerFeeBps,
			MakerFeeBps:     payload.MakerFeeBps,
			MinOrderSizeE6:  payload.MinOrderSizeE6,
			MaxOrderSizeE6:  payload.MaxOrderSizeE6,
			Status:          domain.RegistryActive,
			Proposer:        p.Proposer,
			ApprovedAt:      now,
		}
		return tx.Insert(ctx, addr, codec.EncodeSpotMarket(m))
	case domain.PerpPayload:
		m := &domain.PerpMarket{
			Version:                 codec.CurrentVersion,
			MarketIndex:             index,
			Symbol:                  payload.Symbol,
			BaseTokenIndex:          payload.BaseTokenIndex,
			QuoteTokenIndex:         payload.QuoteTokenIndex,
			Oracle:                  payload.Oracle,
			TickSizeE6:              payload.TickSizeE6,
			LotSizeE6:               payload.LotSizeE6,
			MaxLeverage:             payload.MaxLeverage,
			InitialMarginRateE6:     payload.InitialMarginRateE6,
			MaintenanceMarginRateE6: payload.MaintenanceMarginRateE6,
			TakerFeeBps:             payload.TakerFeeBps,
			MakerFeeBps:             payload.MakerFeeBps,
			MinOrderSizeE6:          payload.MinOrderSizeE6,
			MaxOrderSizeE6:          payload.MaxOrderSizeE6,
			MaxOpenInterestE6:       payload.MaxOpenInterestE6,
			InsuranceFundDepositE6:  payload.InsuranceFundDepositE6,
			Status:                  domain.RegistryActive,
			Proposer:                p.Proposer,
			ApprovedAt:              now,
		}
		// A perp listing seeds its insurance fund and registers with the
		// position ledger in the same atomic step as the registry write.
		// The registry write and ledger registration come before any money
		// moves; the insurance debit is credited back if the fund deposit
		// half fails.
		if err := tx.Insert(ctx, addr, codec.EncodePerpMarket(m)); err != nil {
			return err
		}
		if err := e.ledger.RegisterMarket(ctx, m); err != nil {
			return collaboratorErr(err)
		}
		if payload.InsuranceFundDepositE6 > 0 {
			if err := e.custody.Debit(ctx, p.Proposer, payload.InsuranceFundDepositE6); err != nil {
				return collaboratorErr(err)
			}
			if err := e.fund.DepositInsurance(ctx, index, payload.InsuranceFundDepositE6); err != nil {
				e.refundCustody(ctx, p.Proposer, payload.InsuranceFundDepositE6)
				return collaboratorErr(err)
			}
		}
		return nil
	default:
		return ErrInvalidProposalState
	}
}

// reject resolves a pending proposal as rejected, slashing by severity.
func (e *Engine) reject(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.Reject) error {
	cfg, err := e.requireAdmin(ctx, tx, signer)
	if err != nil {
		return err
	}
	p, err := e.loadProposal(ctx, tx, in.Track, in.Proposer, in.Nonce)
	if err != nil {
		return err
	}
	if p.Status != domain.StatusPending {
		return ErrInvalidProposalState
	}

	slashed := p.StakeAmount * in.Severity.SlashPercent() / 100
	p.SlashedAmount = slashed
	p.Status = domain.StatusRejected
	p.ResolvedAt = e.clock.Now()
	if err := e.saveProposal(ctx, tx, p); err != nil {
		return err
	}

	// The slashed portion becomes treasury revenue immediately; only the
	// remainder stays accounted as stake until claimed.
	cfg.TotalStaked -= slashed
	cfg.AddPending(p.Track, -1)
	if err := e.saveConfig(ctx, tx, cfg); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.ProposalsResolved.WithLabelValues(p.Track.String(), domain.StatusRejected.String()).Inc()
		e.metrics.StakeSlashedTotal.WithLabelValues("reject").Add(float64(slashed))
	}
	return nil
}

// cancel withdraws the signer's own pending proposal at the self-cancel
// slash rate. The remainder stays locked like any other resolution.
func (e *Engine) cancel(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.Cancel) error {
	cfg, err := e.loadConfig(ctx, tx)
	if err != nil {
		return err
	}
	p, err := e.loadProposal(ctx, tx, in.Track, signer, in.Nonce)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if p.Status != domain.StatusPending {
		return ErrInvalidProposalState
	}

	slashed := p.StakeAmount * domain.CancelSlashPercent / 100
	p.SlashedAmount = slashed
	p.Status = domain.StatusCancelled
	p.ResolvedAt = e.clock.Now()
	if err := e.saveProposal(ctx, tx, p); err != nil {
		return err
	}

	cfg.TotalStaked -= slashed
	cfg.AddPending(p.Track, -1)
	if err := e.saveConfig(ctx, tx, cfg); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.ProposalsResolved.WithLabelValues(p.Track.String(), domain.StatusCancelled.String()).Inc()
		e.metrics.StakeSlashedTotal.WithLabelValues("cancel").Add(float64(slashed))
	}
	return nil
}

// claimStake refunds the stake remainder after the lock period.
func (e *Engine) claimStake(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.ClaimStake) error {
	cfg, err := e.loadConfig(ctx, tx)
	if err != nil {
		return err
	}
	p, err := e.loadProposal(ctx, tx, in.Track, signer, in.Nonce)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !p.Status.Terminal() {
		return ErrInvalidProposalState
	}
	if p.StakeClaimed {
		return ErrAlreadyClaimed
	}
	if e.clock.Now() < p.ResolvedAt+int64(cfg.StakeLockPeriod) {
		return ErrStakeLocked
	}

	refund := p.Refundable()
	p.StakeClaimed = true
	cfg.TotalStaked -= refund
	if err := e.saveProposal(ctx, tx, p); err != nil {
		return err
	}
	if err := e.saveConfig(ctx, tx, cfg); err != nil {
		return err
	}

	// Paid out last so a failed transfer rolls the claim back instead of
	// leaving a refund recorded as claimed.
	if refund > 0 {
		if err := e.transferCustody(ctx, cfg.Treasury, signer, refund); err != nil {
			return err
		}
	}

	if e.metrics != nil {
		e.metrics.StakeRefunded.Add(float64(refund))
		e.metrics.TreasuryStaked.Set(float64(cfg.TotalStaked))
	}
	return nil
}

// PruneClaimed deletes proposal records whose stake has been claimed,
// freeing their (proposer, nonce) identity. Run periodically by the daemon;
// the rent-reclaim analogue.
func (e *Engine) PruneClaimed(ctx context.Context) (int, error) {
	var victims []domain.Address

	err := e.store.ForEach(ctx, func(addr domain.Address, data []byte) error {
		disc, err := codec.Discriminator(data)
		if err != nil {
			return nil
		}
		var track domain.Track
		switch disc {
		case codec.TokenProposalDiscriminator:
			track = domain.TrackToken
		case codec.SpotProposalDiscriminator:
			track = domain.TrackSpot
		case codec.PerpProposalDiscriminator:
			track = domain.TrackPerp
		default:
			return nil
		}
		p, err := codec.DecodeProposal(track, data)
		if err != nil {
			return nil
		}
		if p.StakeClaimed {
			victims = append(victims, addr)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, addr := range victims {
		addr := addr
		err := e.store.Update(ctx, func(tx storage.Tx) error {
			return tx.Delete(ctx, addr)
		})
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return pruned, err
		}
		if err == nil {
			pruned++
		}
	}
	if pruned > 0 {
		e.logger.Printf("pruned %d claimed proposals", pruned)
	}
	return pruned, nil
}
