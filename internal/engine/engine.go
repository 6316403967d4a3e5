// Package engine implements the protocol core: the proposal lifecycle and
// stake ledger shared by the three listing tracks, the registries, and the
// liquidity-pool bootstrap. Every instruction executes inside one storage
// transaction; stake movement, counter increments, record writes and
// collaborator calls commit together or not at all.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"listing-protocol/internal/auditlog"
	"listing-protocol/internal/codec"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/keys"
	"listing-protocol/internal/observability"
	"listing-protocol/internal/storage"
)

// Engine executes wire instructions against the account store.
type Engine struct {
	store   storage.AccountStore
	custody Custody
	fund    Fund
	ledger  PositionLedger
	clock   Clock
	logger  *log.Logger
	metrics *observability.Metrics
	audit   auditlog.Sink
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the ledger clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger overrides the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAuditSink enables the audit trail. Events are recorded after the
// instruction's transaction has settled, success or failure.
func WithAuditSink(s auditlog.Sink) Option {
	return func(e *Engine) { e.audit = s }
}

// New creates an engine over the given store and collaborator subsystems.
func New(store storage.AccountStore, custody Custody, fund Fund, ledger PositionLedger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		custody: custody,
		fund:    fund,
		ledger:  ledger,
		clock:   SystemClock{},
		logger:  log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile),
		audit:   auditlog.NopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one signed instruction atomically. The signer has been
// authenticated by the caller; Execute decides whether it is authorized.
func (e *Engine) Execute(ctx context.Context, signer domain.Address, in instruction.Instruction) error {
	start := time.Now()
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		return e.dispatch(ctx, tx, signer, in)
	})

	op := in.Opcode()
	if e.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.metrics.InstructionsTotal.WithLabelValues(op.String(), outcome).Inc()
		e.metrics.InstructionLatency.WithLabelValues(op.String()).Observe(time.Since(start).Seconds())
	}
	e.recordAudit(ctx, signer, in, err)
	if err != nil {
		e.logger.Printf("%s by %s failed: %v", op, signer, err)
	}
	return err
}

// dispatch maps each instruction variant to its handler. The variant set is
// closed; an unknown type is a programming error.
func (e *Engine) dispatch(ctx context.Context, tx storage.Tx, signer domain.Address, in instruction.Instruction) error {
	switch v := in.(type) {
	case instruction.Initialize:
		return e.initialize(ctx, tx, signer, v)
	case instruction.UpdateAdmin:
		return e.updateAdmin(ctx, tx, signer, v)
	case instruction.UpdateStakeConfig:
		return e.updateStakeConfig(ctx, tx, signer, v)
	case instruction.UpdateReviewPeriods:
		return e.updateReviewPeriods(ctx, tx, signer, v)
	case instruction.SetPaused:
		return e.setPaused(ctx, tx, signer, v)
	case instruction.Propose:
		return e.propose(ctx, tx, signer, v)
	case instruction.Object:
		return e.object(ctx, tx, signer, v)
	case instruction.Approve:
		return e.approve(ctx, tx, signer, v)
	case instruction.Reject:
		return e.reject(ctx, tx, signer, v)
	case instruction.Cancel:
		return e.cancel(ctx, tx, signer, v)
	case instruction.Finalize:
		return e.finalize(ctx, tx, signer, v)
	case instruction.ClaimStake:
		return e.claimStake(ctx, tx, signer, v)
	case instruction.UpdateRegistryStatus:
		return e.updateRegistryStatus(ctx, tx, signer, v)
	case instruction.UpdateSpotMarketParams:
		return e.updateSpotMarketParams(ctx, tx, signer, v)
	case instruction.UpdatePerpMarketParams:
		return e.updatePerpMarketParams(ctx, tx, signer, v)
	case instruction.InitializePool:
		return e.initializePool(ctx, tx, signer, v)
	case instruction.FundPool:
		return e.fundPool(ctx, tx, signer, v)
	case instruction.AdjustPoolParams:
		return e.adjustPoolParams(ctx, tx, signer, v)
	case instruction.RefreshPoolOrders:
		return e.refreshPoolOrders(ctx, tx, signer, v)
	case instruction.WithdrawPoolProfit:
		return e.withdrawPoolProfit(ctx, tx, signer, v)
	case instruction.RetirePool:
		return e.retirePool(ctx, tx, signer, v)
	default:
		return fmt.Errorf("engine: unknown instruction %T", in)
	}
}

// recordAudit emits the post-settlement audit event.
func (e *Engine) recordAudit(ctx context.Context, signer domain.Address, in instruction.Instruction, execErr error) {
	op := in.Opcode()
	event := auditlog.Event{
		Time:      time.Unix(e.clock.Now(), 0).UTC(),
		Opcode:    uint8(op),
		Operation: op.String(),
		Signer:    signer.String(),
		Success:   execErr == nil,
	}
	if execErr != nil {
		event.Error = execErr.Error()
	}

	switch v := in.(type) {
	case instruction.Propose:
		track := v.Payload.PayloadTrack()
		event.Track = track.String()
		event.Target = keys.Proposal(track, signer, v.Nonce).String()
		event.Amount = v.StakeAmount
	case instruction.Object:
		event.Track = v.Track.String()
		event.Target = keys.Proposal(v.Track, v.Proposer, v.Nonce).String()
	case instruction.Approve:
		event.Track = v.Track.String()
		event.Target = keys.Proposal(v.Track, v.Proposer, v.Nonce).String()
	case instruction.Reject:
		event.Track = v.Track.String()
		event.Target = keys.Proposal(v.Track, v.Proposer, v.Nonce).String()
	case instruction.Cancel:
		event.Track = v.Track.String()
		event.Target = keys.Proposal(v.Track, signer, v.Nonce).String()
	case instruction.Finalize:
		event.Track = v.Track.String()
		event.Target = keys.Proposal(v.Track, v.Proposer, v.Nonce).String()
	case instruction.ClaimStake:
		event.Track = v.Track.String()
		event.Target = keys.Proposal(v.Track, signer, v.Nonce).String()
	case instruction.UpdateRegistryStatus:
		event.Track = v.Track.String()
		event.Target = keys.Registry(v.Track, v.Index).String()
	case instruction.FundPool:
		event.Amount = v.AmountE6
	case instruction.WithdrawPoolProfit:
		event.Amount = v.AmountE6
	}

	if err := e.audit.Record(ctx, event); err != nil {
		e.logger.Printf("audit record failed: %v", err)
	}
}

// loadConfig reads the protocol configuration inside a transaction.
func (e *Engine) loadConfig(ctx context.Context, tx storage.Tx) (*domain.GlobalConfig, error) {
	data, err := tx.Get(ctx, keys.Config())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	return codec.DecodeConfig(data)
}

func (e *Engine) saveConfig(ctx context.Context, tx storage.Tx, cfg *domain.GlobalConfig) error {
	return tx.Put(ctx, keys.Config(), codec.EncodeConfig(cfg))
}

// requireAdmin loads the configuration and checks the signer against it.
func (e *Engine) requireAdmin(ctx context.Context, tx storage.Tx, signer domain.Address) (*domain.GlobalConfig, error) {
	cfg, err := e.loadConfig(ctx, tx)
	if err != nil {
		return nil, err
	}
	if cfg.Admin != signer {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

func collaboratorErr(err error) error {
	return fmt.Errorf("%w: %v", ErrCollaboratorCallFailed, err)
}

// transferCustody moves amount between custody holders. Custody lives outside
// the storage transaction and cannot roll back with it, so handlers call this
// only after every fallible storage write; if the credit half fails, the
// debit is returned to the source.
func (e *Engine) transferCustody(ctx context.Context, from, to domain.Address, amount uint64) error {
	if err := e.custody.Debit(ctx, from, amount); err != nil {
		return collaboratorErr(err)
	}
	if err := e.custody.Credit(ctx, to, amount); err != nil {
		e.refundCustody(ctx, from, amount)
		return collaboratorErr(err)
	}
	return nil
}

// refundCustody returns a debited amount when the instruction aborts after
// the debit succeeded. A failed refund is logged for manual reconciliation.
func (e *Engine) refundCustody(ctx context.Context, holder domain.Address, amount uint64) {
	if err := e.custody.Credit(ctx, holder, amount); err != nil {
		e.logger.Printf("custody refund failed: holder=%s amount=%d: %v", holder, amount, err)
	}
}
