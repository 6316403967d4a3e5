package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/storage"
)

func spotPayload(base, quote uint16) domain.SpotPayload {
	return domain.SpotPayload{
		Symbol:          "AAA/BBB",
		BaseTokenIndex:  base,
		QuoteTokenIndex: quote,
		TickSizeE6:      100,
		LotSizeE6:       1000,
		TakerFeeBps:     10,
		MakerFeeBps:     -5,
		MinOrderSizeE6:  1_000_000,
		MaxOrderSizeE6:  1_000_000_000,
	}
}

func perpPayload(base, quote uint16, insurance uint64) domain.PerpPayload {
	return domain.PerpPayload{
		Symbol:                  "AAA-BBB",
		BaseTokenIndex:          base,
		QuoteTokenIndex:         quote,
		Oracle:                  addrOf(0x0A),
		TickSizeE6:              100,
		LotSizeE6:               1000,
		MaxLeverage:             20,
		InitialMarginRateE6:     50_000,
		MaintenanceMarginRateE6: 25_000,
		TakerFeeBps:             10,
		MakerFeeBps:             -5,
		MinOrderSizeE6:          1_000_000,
		MaxOrderSizeE6:          1_000_000_000,
		MaxOpenInterestE6:       10_000_000_000,
		InsuranceFundDepositE6:  insurance,
	}
}

func TestPropose_CreatesPending(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)

	env.proposeToken(t, proposer, 1, "AAA")

	p := env.proposal(t, domain.TrackToken, proposer, 1)
	if p.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.CreatedAt != testEpoch {
		t.Errorf("created_at = %d, want %d", p.CreatedAt, testEpoch)
	}
	if want := int64(testEpoch + domain.DefaultTokenReviewPeriod); p.ReviewDeadline != want {
		t.Errorf("review_deadline = %d, want %d", p.ReviewDeadline, want)
	}
	if p.StakeAmount != domain.DefaultTokenStake {
		t.Errorf("stake = %d, want %d", p.StakeAmount, domain.DefaultTokenStake)
	}

	cfg := env.config(t)
	if cfg.PendingTokens != 1 {
		t.Errorf("pending tokens = %d, want 1", cfg.PendingTokens)
	}
	if cfg.TotalStaked != domain.DefaultTokenStake {
		t.Errorf("total staked = %d, want %d", cfg.TotalStaked, domain.DefaultTokenStake)
	}
	if got := env.custody.Balance(keys.Treasury()); got != domain.DefaultTokenStake {
		t.Errorf("treasury balance = %d, want %d", got, domain.DefaultTokenStake)
	}
	if got := env.custody.Balance(proposer); got != 0 {
		t.Errorf("proposer balance = %d, want 0", got)
	}
}

func TestPropose_DuplicateNonce(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)

	env.proposeToken(t, proposer, 1, "AAA")

	env.custody.Deposit(proposer, domain.DefaultTokenStake)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       1,
		Payload:     tokenPayload("BBB", 9),
		StakeAmount: domain.DefaultTokenStake,
	})
	if !errors.Is(err, ErrDuplicateProposal) {
		t.Errorf("Expected ErrDuplicateProposal, got %v", err)
	}
}

func TestPropose_WrongStake(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.custody.Deposit(proposer, domain.DefaultTokenStake)

	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       1,
		Payload:     tokenPayload("AAA", 2),
		StakeAmount: domain.DefaultTokenStake - 1,
	})
	if !errors.Is(err, ErrInsufficientStake) {
		t.Errorf("Expected ErrInsufficientStake, got %v", err)
	}
}

func TestPropose_InvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.custody.Deposit(proposer, domain.DefaultTokenStake)

	cases := []struct {
		name    string
		payload domain.Payload
		want    error
	}{
		{"short symbol", tokenPayload("A", 2), ErrInvalidSymbol},
		{"long symbol", tokenPayload("TOOLONGSYM", 2), ErrInvalidSymbol},
		{"decimals", domain.TokenPayload{Symbol: "AAA", Mint: addrOf(2), Decimals: 19}, ErrInvalidDecimals},
		{"perp without oracle", func() domain.Payload {
			p := perpPayload(0, 1, 0)
			p.Oracle = domain.ZeroAddress
			return p
		}(), ErrInvalidOracle},
		{"leverage", func() domain.Payload {
			p := perpPayload(0, 1, 0)
			p.MaxLeverage = 101
			return p
		}(), ErrInvalidLeverage},
		{"margin ordering", func() domain.Payload {
			p := perpPayload(0, 1, 0)
			p.MaintenanceMarginRateE6 = p.InitialMarginRateE6
			return p
		}(), ErrInvalidMarginRate},
	}
	for _, c := range cases {
		err := env.e.Execute(env.ctx, proposer, instruction.Propose{
			Nonce:       1,
			Payload:     c.payload,
			StakeAmount: domain.DefaultTokenStake,
		})
		if !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestPropose_CustodyFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	// No custody deposit: the stake debit fails.

	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       1,
		Payload:     tokenPayload("AAA", 2),
		StakeAmount: domain.DefaultTokenStake,
	})
	if !errors.Is(err, ErrCollaboratorCallFailed) {
		t.Fatalf("Expected ErrCollaboratorCallFailed, got %v", err)
	}

	// Nothing committed.
	if _, err := env.store.Get(env.ctx, keys.Proposal(domain.TrackToken, proposer, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("proposal record exists after failed propose")
	}
	cfg := env.config(t)
	if cfg.PendingTokens != 0 || cfg.TotalStaked != 0 {
		t.Errorf("config mutated after failed propose: pending=%d staked=%d", cfg.PendingTokens, cfg.TotalStaked)
	}
}

func TestApprove_AssignsDenseIndices(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)

	symbols := []string{"AAA", "BBB", "CCC"}
	for i, sym := range symbols {
		idx := env.registerToken(t, proposer, uint64(i+1), sym)
		if idx != uint16(i) {
			t.Errorf("token %s assigned index %d, want %d", sym, idx, i)
		}
	}

	cfg := env.config(t)
	if cfg.TotalTokens != 3 {
		t.Errorf("total tokens = %d, want 3", cfg.TotalTokens)
	}
	if cfg.PendingTokens != 0 {
		t.Errorf("pending tokens = %d, want 0", cfg.PendingTokens)
	}

	// Indices 0..N-1 all resolve, N does not.
	for i := uint16(0); i < 3; i++ {
		data, err := env.store.Get(env.ctx, keys.Registry(domain.TrackToken, i))
		if err != nil {
			t.Fatalf("registry index %d missing: %v", i, err)
		}
		if len(data) == 0 {
			t.Fatalf("registry index %d empty", i)
		}
	}
	if _, err := env.store.Get(env.ctx, keys.Registry(domain.TrackToken, 3)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("registry index 3 should not exist")
	}
}

func TestApprove_NonAdmin(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.proposeToken(t, proposer, 1, "AAA")

	err := env.e.Execute(env.ctx, proposer, instruction.Approve{
		Track:    domain.TrackToken,
		Proposer: proposer,
		Nonce:    1,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestTerminalStatus_Exclusive(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.registerToken(t, proposer, 1, "AAA")

	// Every further transition on the approved proposal fails.
	transitions := []instruction.Instruction{
		instruction.Approve{Track: domain.TrackToken, Proposer: proposer, Nonce: 1},
		instruction.Reject{Track: domain.TrackToken, Proposer: proposer, Nonce: 1, Severity: domain.SeverityMinor},
		instruction.Finalize{Track: domain.TrackToken, Proposer: proposer, Nonce: 1},
	}
	for _, in := range transitions {
		signer := env.admin
		if _, ok := in.(instruction.Finalize); ok {
			signer = addrOf(0x33)
		}
		if err := env.e.Execute(env.ctx, signer, in); !errors.Is(err, ErrInvalidProposalState) {
			t.Errorf("%T on terminal proposal: expected ErrInvalidProposalState, got %v", in, err)
		}
	}
	err := env.e.Execute(env.ctx, proposer, instruction.Cancel{Track: domain.TrackToken, Nonce: 1})
	if !errors.Is(err, ErrInvalidProposalState) {
		t.Errorf("Cancel on terminal proposal: expected ErrInvalidProposalState, got %v", err)
	}

	// The counter moved exactly once.
	if got := env.config(t).TotalTokens; got != 1 {
		t.Errorf("total tokens = %d, want 1", got)
	}
}

func TestReject_SlashFractions(t *testing.T) {
	cases := []struct {
		severity domain.Severity
		percent  uint64
	}{
		{domain.SeverityMinor, 10},
		{domain.SeverityMalicious, 50},
		{domain.SeverityFraud, 100},
	}
	for _, c := range cases {
		env := newTestEnv(t)
		proposer := addrOf(0x01)
		env.proposeToken(t, proposer, 1, "AAA")

		err := env.e.Execute(env.ctx, env.admin, instruction.Reject{
			Track:    domain.TrackToken,
			Proposer: proposer,
			Nonce:    1,
			Severity: c.severity,
		})
		if err != nil {
			t.Fatalf("Reject(%d) failed: %v", c.severity, err)
		}

		p := env.proposal(t, domain.TrackToken, proposer, 1)
		wantSlashed := domain.DefaultTokenStake * c.percent / 100
		if p.SlashedAmount != wantSlashed {
			t.Errorf("severity %d: slashed = %d, want %d", c.severity, p.SlashedAmount, wantSlashed)
		}
		if want := domain.DefaultTokenStake - wantSlashed; p.Refundable() != want {
			t.Errorf("severity %d: refundable = %d, want %d", c.severity, p.Refundable(), want)
		}
		// Slashed stake becomes treasury revenue, off the stake ledger.
		if got := env.config(t).TotalStaked; got != domain.DefaultTokenStake-wantSlashed {
			t.Errorf("severity %d: total staked = %d, want %d", c.severity, got, domain.DefaultTokenStake-wantSlashed)
		}
	}
}

func TestCancel_ThenClaim(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.proposeToken(t, proposer, 1, "AAA")

	if err := env.e.Execute(env.ctx, proposer, instruction.Cancel{Track: domain.TrackToken, Nonce: 1}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	stake := uint64(domain.DefaultTokenStake)
	slashed := stake * domain.CancelSlashPercent / 100
	p := env.proposal(t, domain.TrackToken, proposer, 1)
	if p.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want cancelled", p.Status)
	}
	if p.SlashedAmount != slashed {
		t.Errorf("slashed = %d, want %d", p.SlashedAmount, slashed)
	}

	// Claim is locked for 30 days from resolution.
	env.clock.Advance(domain.DefaultStakeLockPeriod - 1)
	err := env.e.Execute(env.ctx, proposer, instruction.ClaimStake{Track: domain.TrackToken, Nonce: 1})
	if !errors.Is(err, ErrStakeLocked) {
		t.Fatalf("Expected ErrStakeLocked, got %v", err)
	}

	env.clock.Advance(1)
	if err := env.e.Execute(env.ctx, proposer, instruction.ClaimStake{Track: domain.TrackToken, Nonce: 1}); err != nil {
		t.Fatalf("ClaimStake failed: %v", err)
	}

	if got := env.custody.Balance(proposer); got != stake-slashed {
		t.Errorf("proposer balance = %d, want %d", got, stake-slashed)
	}
	// The treasury keeps exactly the slashed portion.
	if got := env.custody.Balance(keys.Treasury()); got != slashed {
		t.Errorf("treasury balance = %d, want %d", got, slashed)
	}
	if got := env.config(t).TotalStaked; got != 0 {
		t.Errorf("total staked = %d, want 0", got)
	}

	err = env.e.Execute(env.ctx, proposer, instruction.ClaimStake{Track: domain.TrackToken, Nonce: 1})
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestCancel_OnlyProposer(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.proposeToken(t, proposer, 1, "AAA")

	err := env.e.Execute(env.ctx, addrOf(0x02), instruction.Cancel{Track: domain.TrackToken, Nonce: 1})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestFinalize_Boundary(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	anyone := addrOf(0x42)
	env.proposeToken(t, proposer, 1, "AAA")

	in := instruction.Finalize{Track: domain.TrackToken, Proposer: proposer, Nonce: 1}

	env.clock.Advance(domain.DefaultTokenReviewPeriod - 1)
	if err := env.e.Execute(env.ctx, anyone, in); !errors.Is(err, ErrReviewPeriodNotElapsed) {
		t.Fatalf("1s before deadline: expected ErrReviewPeriodNotElapsed, got %v", err)
	}

	env.clock.Advance(1)
	if err := env.e.Execute(env.ctx, anyone, in); err != nil {
		t.Fatalf("at deadline: Finalize failed: %v", err)
	}

	p := env.proposal(t, domain.TrackToken, proposer, 1)
	if p.Status != domain.StatusApproved {
		t.Errorf("status = %s, want approved", p.Status)
	}
	if p.SlashedAmount != 0 {
		t.Errorf("slashed = %d, want 0 on approval", p.SlashedAmount)
	}
	if got := env.config(t).TotalTokens; got != 1 {
		t.Errorf("total tokens = %d, want 1", got)
	}
}

func TestObject_AdvisoryOnly(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	objector := addrOf(0x42)
	env.proposeToken(t, proposer, 1, "AAA")

	in := instruction.Object{Track: domain.TrackToken, Proposer: proposer, Nonce: 1}
	for i := 0; i < 3; i++ {
		if err := env.e.Execute(env.ctx, objector, in); err != nil {
			t.Fatalf("Object failed: %v", err)
		}
	}
	if got := env.proposal(t, domain.TrackToken, proposer, 1).ObjectionCount; got != 3 {
		t.Errorf("objection count = %d, want 3", got)
	}

	// Objections never block the timeout approval.
	env.clock.Advance(domain.DefaultTokenReviewPeriod)
	err := env.e.Execute(env.ctx, objector, instruction.Finalize{Track: domain.TrackToken, Proposer: proposer, Nonce: 1})
	if err != nil {
		t.Fatalf("Finalize with objections pending failed: %v", err)
	}

	// No objections after the review window or on terminal proposals.
	if err := env.e.Execute(env.ctx, objector, in); !errors.Is(err, ErrInvalidProposalState) {
		t.Errorf("Expected ErrInvalidProposalState, got %v", err)
	}
}

func TestSpotPropose_ReferenceValidation(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	base := env.registerToken(t, proposer, 1, "AAA")
	quote := env.registerToken(t, proposer, 2, "BBB")

	fund := func() { env.custody.Deposit(proposer, domain.DefaultSpotStake) }

	fund()
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       3,
		Payload:     spotPayload(base, quote),
		StakeAmount: domain.DefaultSpotStake,
	})
	if err != nil {
		t.Fatalf("valid spot propose failed: %v", err)
	}

	// Unknown base index.
	err = env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       4,
		Payload:     spotPayload(7, quote),
		StakeAmount: domain.DefaultSpotStake,
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown base: expected ErrInvalidReference, got %v", err)
	}

	// Base equals quote.
	err = env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       5,
		Payload:     spotPayload(base, base),
		StakeAmount: domain.DefaultSpotStake,
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("base==quote: expected ErrInvalidReference, got %v", err)
	}

	// Delisted base.
	err = env.e.Execute(env.ctx, env.admin, instruction.UpdateRegistryStatus{
		Track:  domain.TrackToken,
		Index:  base,
		Status: domain.RegistryDelisted,
	})
	if err != nil {
		t.Fatalf("UpdateRegistryStatus failed: %v", err)
	}
	err = env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       6,
		Payload:     spotPayload(base, quote),
		StakeAmount: domain.DefaultSpotStake,
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("delisted base: expected ErrInvalidReference, got %v", err)
	}
}

func TestApprove_RevalidatesReferences(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	base := env.registerToken(t, proposer, 1, "AAA")
	quote := env.registerToken(t, proposer, 2, "BBB")

	env.custody.Deposit(proposer, domain.DefaultSpotStake)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       3,
		Payload:     spotPayload(base, quote),
		StakeAmount: domain.DefaultSpotStake,
	})
	if err != nil {
		t.Fatalf("spot propose failed: %v", err)
	}

	// The base token is suspended during the review window.
	err = env.e.Execute(env.ctx, env.admin, instruction.UpdateRegistryStatus{
		Track:  domain.TrackToken,
		Index:  base,
		Status: domain.RegistrySuspended,
	})
	if err != nil {
		t.Fatalf("UpdateRegistryStatus failed: %v", err)
	}

	err = env.e.Execute(env.ctx, env.admin, instruction.Approve{
		Track:    domain.TrackSpot,
		Proposer: proposer,
		Nonce:    3,
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("Expected ErrInvalidReference at approval, got %v", err)
	}
}

func TestPerp_FinalizeAtDeadline(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	base := env.registerToken(t, proposer, 1, "AAA")
	quote := env.registerToken(t, proposer, 2, "BBB")

	insurance := uint64(500_000_000)
	env.custody.Deposit(proposer, domain.DefaultPerpStake+insurance)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       3,
		Payload:     perpPayload(base, quote, insurance),
		StakeAmount: domain.DefaultPerpStake,
	})
	if err != nil {
		t.Fatalf("perp propose failed: %v", err)
	}

	// Exactly submitted_at + 14 days.
	env.clock.Advance(domain.DefaultPerpReviewPeriod)
	err = env.e.Execute(env.ctx, addrOf(0x42), instruction.Finalize{
		Track:    domain.TrackPerp,
		Proposer: proposer,
		Nonce:    3,
	})
	if err != nil {
		t.Fatalf("perp finalize at deadline failed: %v", err)
	}

	// The insurance seed left the proposer at approval.
	if got := env.custody.Balance(proposer); got != 0 {
		t.Errorf("proposer balance = %d, want 0", got)
	}

	p := env.proposal(t, domain.TrackPerp, proposer, 3)
	if p.Refundable() != domain.DefaultPerpStake {
		t.Errorf("refundable = %d, want full stake %d", p.Refundable(), uint64(domain.DefaultPerpStake))
	}

	// Full stake claimable 30 days after resolution.
	env.clock.Advance(domain.DefaultStakeLockPeriod)
	if err := env.e.Execute(env.ctx, proposer, instruction.ClaimStake{Track: domain.TrackPerp, Nonce: 3}); err != nil {
		t.Fatalf("perp claim failed: %v", err)
	}
	if got := env.custody.Balance(proposer); got != domain.DefaultPerpStake {
		t.Errorf("proposer balance = %d, want %d", got, uint64(domain.DefaultPerpStake))
	}
}

type failLedger struct{}

func (failLedger) RegisterMarket(context.Context, *domain.PerpMarket) error {
	return errors.New("ledger unavailable")
}

func TestPerp_LedgerFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	base := env.registerToken(t, proposer, 1, "AAA")
	quote := env.registerToken(t, proposer, 2, "BBB")

	insurance := uint64(500_000_000)
	env.custody.Deposit(proposer, domain.DefaultPerpStake+insurance)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       3,
		Payload:     perpPayload(base, quote, insurance),
		StakeAmount: domain.DefaultPerpStake,
	})
	if err != nil {
		t.Fatalf("perp propose failed: %v", err)
	}

	// Same store and custody, position ledger down.
	broken := New(env.store, env.custody, NoopFund{}, failLedger{},
		WithClock(env.clock),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	err = broken.Execute(env.ctx, env.admin, instruction.Approve{
		Track:    domain.TrackPerp,
		Proposer: proposer,
		Nonce:    3,
	})
	if !errors.Is(err, ErrCollaboratorCallFailed) {
		t.Fatalf("Expected ErrCollaboratorCallFailed, got %v", err)
	}

	// The proposal stayed pending and the counter did not move.
	p := env.proposal(t, domain.TrackPerp, proposer, 3)
	if p.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending after rollback", p.Status)
	}
	if got := env.config(t).TotalPerpMarkets; got != 0 {
		t.Errorf("total perp markets = %d, want 0", got)
	}
	// The insurance seed never left the proposer.
	if got := env.custody.Balance(proposer); got != insurance {
		t.Errorf("proposer balance = %d, want %d", got, insurance)
	}
}

type failFund struct{}

func (failFund) DepositInsurance(context.Context, uint16, uint64) error {
	return errors.New("fund unavailable")
}

func TestPerp_FundFailureRefundsDebit(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	base := env.registerToken(t, proposer, 1, "AAA")
	quote := env.registerToken(t, proposer, 2, "BBB")

	insurance := uint64(500_000_000)
	env.custody.Deposit(proposer, domain.DefaultPerpStake+insurance)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       3,
		Payload:     perpPayload(base, quote, insurance),
		StakeAmount: domain.DefaultPerpStake,
	})
	if err != nil {
		t.Fatalf("perp propose failed: %v", err)
	}

	broken := New(env.store, env.custody, failFund{}, NoopLedger{},
		WithClock(env.clock),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	err = broken.Execute(env.ctx, env.admin, instruction.Approve{
		Track:    domain.TrackPerp,
		Proposer: proposer,
		Nonce:    3,
	})
	if !errors.Is(err, ErrCollaboratorCallFailed) {
		t.Fatalf("Expected ErrCollaboratorCallFailed, got %v", err)
	}

	// The debit that preceded the failed fund deposit was credited back;
	// the aborted approve left the proposer whole.
	if got := env.custody.Balance(proposer); got != insurance {
		t.Errorf("proposer balance = %d, want %d", got, insurance)
	}
	p := env.proposal(t, domain.TrackPerp, proposer, 3)
	if p.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending after rollback", p.Status)
	}
	if got := env.config(t).TotalPerpMarkets; got != 0 {
		t.Errorf("total perp markets = %d, want 0", got)
	}
}

func TestClaim_RequiresTerminal(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.proposeToken(t, proposer, 1, "AAA")

	err := env.e.Execute(env.ctx, proposer, instruction.ClaimStake{Track: domain.TrackToken, Nonce: 1})
	if !errors.Is(err, ErrInvalidProposalState) {
		t.Errorf("Expected ErrInvalidProposalState, got %v", err)
	}
}

func TestPruneClaimed(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)
	env.proposeToken(t, proposer, 1, "AAA")
	env.proposeToken(t, proposer, 2, "BBB")

	if err := env.e.Execute(env.ctx, proposer, instruction.Cancel{Track: domain.TrackToken, Nonce: 1}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	env.clock.Advance(domain.DefaultStakeLockPeriod)
	if err := env.e.Execute(env.ctx, proposer, instruction.ClaimStake{Track: domain.TrackToken, Nonce: 1}); err != nil {
		t.Fatalf("ClaimStake failed: %v", err)
	}

	pruned, err := env.e.PruneClaimed(env.ctx)
	if err != nil {
		t.Fatalf("PruneClaimed failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	// The claimed record is gone, freeing its nonce; the pending one stays.
	if _, err := env.store.Get(env.ctx, keys.Proposal(domain.TrackToken, proposer, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("claimed proposal still present")
	}
	if _, err := env.store.Get(env.ctx, keys.Proposal(domain.TrackToken, proposer, 2)); err != nil {
		t.Errorf("pending proposal missing: %v", err)
	}

	env.proposeToken(t, proposer, 1, "CCC")
}
