package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"listing-protocol/internal/codec"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/storage/memory"
)

const testEpoch = 1_700_000_000

type testEnv struct {
	ctx     context.Context
	e       *Engine
	store   *memory.AccountStore
	custody *MemoryCustody
	clock   *FixedClock
	admin   domain.Address
}

func addrOf(b byte) domain.Address {
	var a domain.Address
	a[0] = b
	return a
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ctx:     context.Background(),
		store:   memory.NewAccountStore(),
		custody: NewMemoryCustody(),
		clock:   &FixedClock{Time: testEpoch},
		admin:   addrOf(0xAD),
	}
	env.e = New(env.store, env.custody, NoopFund{}, NoopLedger{},
		WithClock(env.clock),
		WithLogger(log.New(io.Discard, "", 0)),
	)

	err := env.e.Execute(env.ctx, env.admin, instruction.Initialize{
		CustodyProgram: addrOf(0xC1),
		FundProgram:    addrOf(0xC2),
		LedgerProgram:  addrOf(0xC3),
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return env
}

func (env *testEnv) config(t *testing.T) *domain.GlobalConfig {
	t.Helper()
	data, err := env.store.Get(env.ctx, keys.Config())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg, err := codec.DecodeConfig(data)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg
}

func (env *testEnv) proposal(t *testing.T, track domain.Track, proposer domain.Address, nonce uint64) *domain.Proposal {
	t.Helper()
	data, err := env.store.Get(env.ctx, keys.Proposal(track, proposer, nonce))
	if err != nil {
		t.Fatalf("load proposal: %v", err)
	}
	p, err := codec.DecodeProposal(track, data)
	if err != nil {
		t.Fatalf("decode proposal: %v", err)
	}
	return p
}

func tokenPayload(symbol string, mint byte) domain.TokenPayload {
	return domain.TokenPayload{Symbol: symbol, Mint: addrOf(mint), Decimals: 9}
}

// proposeToken funds the proposer and submits a token proposal.
func (env *testEnv) proposeToken(t *testing.T, proposer domain.Address, nonce uint64, symbol string) {
	t.Helper()
	env.custody.Deposit(proposer, domain.DefaultTokenStake)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       nonce,
		Payload:     tokenPayload(symbol, byte(nonce)+1),
		StakeAmount: domain.DefaultTokenStake,
	})
	if err != nil {
		t.Fatalf("ProposeToken(%s) failed: %v", symbol, err)
	}
}

// registerToken proposes and approves a token, returning its dense index.
func (env *testEnv) registerToken(t *testing.T, proposer domain.Address, nonce uint64, symbol string) uint16 {
	t.Helper()
	env.proposeToken(t, proposer, nonce, symbol)
	err := env.e.Execute(env.ctx, env.admin, instruction.Approve{
		Track:    domain.TrackToken,
		Proposer: proposer,
		Nonce:    nonce,
	})
	if err != nil {
		t.Fatalf("ApproveToken(%s) failed: %v", symbol, err)
	}
	return env.config(t).TotalTokens - 1
}

func TestInitialize_Defaults(t *testing.T) {
	env := newTestEnv(t)

	cfg := env.config(t)
	if cfg.Admin != env.admin {
		t.Errorf("admin = %s, want %s", cfg.Admin, env.admin)
	}
	if cfg.Treasury != keys.Treasury() {
		t.Errorf("treasury = %s, want derived treasury", cfg.Treasury)
	}
	if cfg.TokenStakeAmount != domain.DefaultTokenStake ||
		cfg.SpotStakeAmount != domain.DefaultSpotStake ||
		cfg.PerpStakeAmount != domain.DefaultPerpStake {
		t.Errorf("stake amounts = %d/%d/%d, want defaults", cfg.TokenStakeAmount, cfg.SpotStakeAmount, cfg.PerpStakeAmount)
	}
	if cfg.PerpReviewPeriod != domain.DefaultPerpReviewPeriod {
		t.Errorf("perp review period = %d, want %d", cfg.PerpReviewPeriod, domain.DefaultPerpReviewPeriod)
	}
	if cfg.StakeLockPeriod != domain.DefaultStakeLockPeriod {
		t.Errorf("lock period = %d, want %d", cfg.StakeLockPeriod, domain.DefaultStakeLockPeriod)
	}
}

func TestInitialize_Twice(t *testing.T) {
	env := newTestEnv(t)

	err := env.e.Execute(env.ctx, env.admin, instruction.Initialize{})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("Expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestUpdateAdmin(t *testing.T) {
	env := newTestEnv(t)
	successor := addrOf(0xBB)

	// Non-admin cannot transfer authority.
	err := env.e.Execute(env.ctx, successor, instruction.UpdateAdmin{NewAdmin: successor})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	if err := env.e.Execute(env.ctx, env.admin, instruction.UpdateAdmin{NewAdmin: successor}); err != nil {
		t.Fatalf("UpdateAdmin failed: %v", err)
	}
	if got := env.config(t).Admin; got != successor {
		t.Errorf("admin = %s, want %s", got, successor)
	}

	// The old admin lost its authority.
	err = env.e.Execute(env.ctx, env.admin, instruction.SetPaused{Paused: true})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized for old admin, got %v", err)
	}
}

func TestUpdateStakeConfig_Patch(t *testing.T) {
	env := newTestEnv(t)
	spot := uint64(3_000_000_000_000)

	err := env.e.Execute(env.ctx, env.admin, instruction.UpdateStakeConfig{SpotStakeAmount: &spot})
	if err != nil {
		t.Fatalf("UpdateStakeConfig failed: %v", err)
	}

	cfg := env.config(t)
	if cfg.SpotStakeAmount != spot {
		t.Errorf("spot stake = %d, want %d", cfg.SpotStakeAmount, spot)
	}
	// Unpatched fields keep their values.
	if cfg.TokenStakeAmount != domain.DefaultTokenStake || cfg.PerpStakeAmount != domain.DefaultPerpStake {
		t.Errorf("unpatched stakes changed: %d/%d", cfg.TokenStakeAmount, cfg.PerpStakeAmount)
	}

	zero := uint64(0)
	err = env.e.Execute(env.ctx, env.admin, instruction.UpdateStakeConfig{TokenStakeAmount: &zero})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for zero stake, got %v", err)
	}
}

func TestSetPaused_BlocksProposeOnly(t *testing.T) {
	env := newTestEnv(t)
	proposer := addrOf(0x01)

	env.proposeToken(t, proposer, 1, "AAA")

	if err := env.e.Execute(env.ctx, env.admin, instruction.SetPaused{Paused: true}); err != nil {
		t.Fatalf("SetPaused failed: %v", err)
	}

	env.custody.Deposit(proposer, domain.DefaultTokenStake)
	err := env.e.Execute(env.ctx, proposer, instruction.Propose{
		Nonce:       2,
		Payload:     tokenPayload("BBB", 9),
		StakeAmount: domain.DefaultTokenStake,
	})
	if !errors.Is(err, ErrProtocolPaused) {
		t.Fatalf("Expected ErrProtocolPaused, got %v", err)
	}

	// Resolution still works while paused; funds are never trapped.
	err = env.e.Execute(env.ctx, env.admin, instruction.Approve{
		Track:    domain.TrackToken,
		Proposer: proposer,
		Nonce:    1,
	})
	if err != nil {
		t.Errorf("Approve while paused failed: %v", err)
	}
}

func TestExecute_NotInitialized(t *testing.T) {
	store := memory.NewAccountStore()
	e := New(store, NewMemoryCustody(), NoopFund{}, NoopLedger{},
		WithLogger(log.New(io.Discard, "", 0)),
	)

	err := e.Execute(context.Background(), addrOf(1), instruction.SetPaused{Paused: true})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}
