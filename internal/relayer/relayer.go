// Package relayer consumes a price feed over WebSocket and turns each tick
// into an order refresh for the market's liquidity pool.
package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"listing-protocol/internal/domain"
	"listing-protocol/internal/instruction"
)

// Executor runs instructions against the protocol state. Satisfied by
// *engine.Engine.
type Executor interface {
	Execute(ctx context.Context, signer domain.Address, in instruction.Instruction) error
}

// Config configures feed connection behavior.
type Config struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading ticks.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default feed configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// PriceTick is one feed message. Seq starts at 1 and must be strictly
// increasing per market; the refresh path treats repeats as no-ops, so
// redelivery after a reconnect is harmless.
type PriceTick struct {
	MarketType       string `json:"market_type"` // "spot" or "perp"
	MarketIndex      uint16 `json:"market_index"`
	PriceE6          uint64 `json:"price_e6"`
	Seq              uint64 `json:"seq"`
	RealizedProfitE6 uint64 `json:"realized_profit_e6"`
}

// Relayer maintains the feed connection and submits RefreshPoolOrders for
// every tick, signing as the configured relayer identity.
type Relayer struct {
	endpoint string
	signer   domain.Address
	exec     Executor
	config   Config
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	reconnecting atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New connects to the feed endpoint and starts consuming ticks.
func New(ctx context.Context, endpoint string, signer domain.Address, exec Executor, config *Config, logger *log.Logger) (*Relayer, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[relayer] ", log.LstdFlags|log.Lshortfile)
	}

	r := &Relayer{
		endpoint: endpoint,
		signer:   signer,
		exec:     exec,
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	r.wg.Add(1)
	go r.readLoop()

	r.wg.Add(1)
	go r.pingLoop()

	return r, nil
}

func (r *Relayer) connect(ctx context.Context) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, r.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	r.conn = conn
	return nil
}

// Close closes the feed connection and stops the loops.
func (r *Relayer) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	close(r.done)

	r.connMu.Lock()
	if r.conn != nil {
		r.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		r.conn.Close()
	}
	r.connMu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Relayer) readLoop() {
	defer r.wg.Done()

	reconnectDelay := r.config.ReconnectDelay

	for !r.closed.Load() {
		r.connMu.Lock()
		conn := r.conn
		r.connMu.Unlock()

		if conn == nil {
			select {
			case <-r.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(r.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if r.closed.Load() {
				return
			}

			if !r.reconnecting.Swap(true) {
				go r.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > r.config.MaxReconnectDelay {
				reconnectDelay = r.config.MaxReconnectDelay
			}

			select {
			case <-r.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = r.config.ReconnectDelay

		r.handleTick(message)
	}
}

func (r *Relayer) reconnect(delay time.Duration) {
	defer r.reconnecting.Store(false)

	if r.closed.Load() {
		return
	}

	select {
	case <-r.done:
		return
	case <-time.After(delay):
	}

	r.connMu.Lock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	r.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.connect(ctx); err != nil {
		r.logger.Printf("reconnect failed: %v", err)
		return
	}
	r.logger.Printf("reconnected to %s", r.endpoint)
}

func (r *Relayer) handleTick(message []byte) {
	var tick PriceTick
	if err := json.Unmarshal(message, &tick); err != nil {
		r.logger.Printf("malformed tick: %v", err)
		return
	}

	var mt domain.MarketType
	switch tick.MarketType {
	case "spot":
		mt = domain.MarketSpot
	case "perp":
		mt = domain.MarketPerp
	default:
		r.logger.Printf("tick with unknown market type %q", tick.MarketType)
		return
	}
	if tick.PriceE6 == 0 {
		r.logger.Printf("tick with zero price for %s/%d", tick.MarketType, tick.MarketIndex)
		return
	}
	if tick.Seq == 0 {
		r.logger.Printf("tick with zero seq for %s/%d", tick.MarketType, tick.MarketIndex)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := r.exec.Execute(ctx, r.signer, instruction.RefreshPoolOrders{
		MarketType:       mt,
		MarketIndex:      tick.MarketIndex,
		PriceE6:          tick.PriceE6,
		PriceSeq:         tick.Seq,
		RealizedProfitE6: tick.RealizedProfitE6,
	})
	if err != nil {
		r.logger.Printf("refresh %s/%d seq %d: %v", tick.MarketType, tick.MarketIndex, tick.Seq, err)
	}
}

func (r *Relayer) pingLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.connMu.Lock()
			if r.conn != nil {
				r.conn.SetWriteDeadline(time.Now().Add(r.config.WriteTimeout))
				if err := r.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect.
				}
			}
			r.connMu.Unlock()
		}
	}
}
