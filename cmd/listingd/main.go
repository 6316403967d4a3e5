// Package main runs the listing protocol daemon:
// - Instruction endpoint: signed instructions over HTTP
// - Relayer (optional): price feed consumption driving pool order refreshes
// - Maintenance (scheduled): pruning of claimed proposal records
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"listing-protocol/internal/auditlog"
	"listing-protocol/internal/domain"
	"listing-protocol/internal/engine"
	"listing-protocol/internal/instruction"
	"listing-protocol/internal/observability"
	"listing-protocol/internal/relayer"
	"listing-protocol/internal/storage"
	"listing-protocol/internal/storage/memory"
	"listing-protocol/internal/storage/migrations"
	pgstore "listing-protocol/internal/storage/postgres"
)

// Server holds all components of the daemon.
type Server struct {
	httpAddr      string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	feedEndpoint  string
	relayerID     string
	pruneInterval time.Duration

	store  storage.AccountStore
	eng    *engine.Engine
	logger *log.Logger

	mu           sync.Mutex
	started      time.Time
	lastPruneRun time.Time
	pruneRuns    int
	prunedTotal  int
}

func main() {
	loadEnvFile()

	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the audit trail (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("FEED_ENDPOINT"), "Price feed WebSocket endpoint (optional)")
	relayerID := flag.String("relayer-id", os.Getenv("RELAYER_ID"), "Base58 relayer identity for feed-driven order refreshes")
	pruneInterval := flag.Duration("prune-interval", 1*time.Hour, "Claimed-proposal pruning interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[listingd] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if *feedEndpoint != "" && *relayerID == "" {
		logger.Fatal("--relayer-id is required when --feed-endpoint is set")
	}

	ctx, cancel := context.WithCancel(context.Background())

	store, cleanup, err := createStore(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	sink, sinkCleanup, err := createAuditSink(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create audit sink: %v", err)
	}
	defer sinkCleanup()

	// The custody, fund and ledger subsystems are external services; the
	// standalone daemon runs in-memory stand-ins. Custody balances do not
	// survive a restart even when protocol state is in Postgres.
	eng := engine.New(store,
		engine.NewMemoryCustody(),
		engine.NoopFund{},
		engine.NoopLedger{},
		engine.WithMetrics(metrics),
		engine.WithAuditSink(sink),
	)

	server := &Server{
		httpAddr:      *httpAddr,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		feedEndpoint:  *feedEndpoint,
		relayerID:     *relayerID,
		pruneInterval: *pruneInterval,
		store:         store,
		eng:           eng,
		logger:        logger,
		started:       time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStore creates the account store, running migrations for postgres.
func createStore(ctx context.Context, postgresDSN string, useMemory bool) (storage.AccountStore, func(), error) {
	if useMemory {
		return memory.NewAccountStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	return pgstore.NewAccountStore(pool), pool.Close, nil
}

// createAuditSink creates the ClickHouse audit sink, or a no-op sink when no
// DSN is configured.
func createAuditSink(ctx context.Context, clickhouseDSN string) (auditlog.Sink, func(), error) {
	if clickhouseDSN == "" {
		return auditlog.NopSink{}, func() {}, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}
	sink := auditlog.NewClickhouseSink(conn)
	return sink, func() { sink.Close() }, nil
}

// Run starts all components and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting listing daemon...")

	errCh := make(chan error, 3)

	httpServer := &http.Server{
		Addr:    s.httpAddr,
		Handler: s.routes(),
	}
	go func() {
		s.logger.Printf("HTTP server listening on %s", s.httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.feedEndpoint != "" {
		signer, err := domain.ParseAddress(s.relayerID)
		if err != nil {
			return fmt.Errorf("parse relayer identity: %w", err)
		}
		feedLogger := log.New(os.Stdout, "[relayer] ", log.LstdFlags|log.Lshortfile)
		r, err := relayer.New(ctx, s.feedEndpoint, signer, s.eng, nil, feedLogger)
		if err != nil {
			return fmt.Errorf("connect to price feed: %w", err)
		}
		defer r.Close()
		s.logger.Printf("Relayer consuming %s as %s", s.feedEndpoint, signer)
	}

	go s.runPruneScheduler(ctx, errCh)

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	return err
}

// runPruneScheduler deletes claimed proposal records on schedule.
func (s *Server) runPruneScheduler(ctx context.Context, errCh chan<- error) {
	s.logger.Printf("Starting prune scheduler (interval: %v)...", s.pruneInterval)

	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := s.eng.PruneClaimed(ctx)
			if err != nil {
				s.logger.Printf("Prune error: %v", err)
				continue
			}
			s.mu.Lock()
			s.lastPruneRun = time.Now()
			s.pruneRuns++
			s.prunedTotal += pruned
			s.mu.Unlock()
		}
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/instruction", s.handleInstruction)
	mux.HandleFunc("/account", s.handleAccount)

	return mux
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	Storage      string    `json:"storage"`
	FeedEndpoint string    `json:"feed_endpoint,omitempty"`
	LastPruneRun time.Time `json:"last_prune_run,omitempty"`
	PruneRuns    int       `json:"prune_runs"`
	PrunedTotal  int       `json:"pruned_total"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storageKind := "postgres"
	if s.useMemory {
		storageKind = "memory"
	}
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		Storage:      storageKind,
		FeedEndpoint: s.feedEndpoint,
		LastPruneRun: s.lastPruneRun,
		PruneRuns:    s.pruneRuns,
		PrunedTotal:  s.prunedTotal,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// InstructionRequest carries one signed instruction. The signer is an
// ed25519 public key in base58; the signature covers the raw instruction
// bytes.
type InstructionRequest struct {
	Signer      string `json:"signer"`
	Signature   string `json:"signature"`
	Instruction string `json:"instruction"` // base64 wire encoding
}

// InstructionResponse reports the execution outcome.
type InstructionResponse struct {
	Operation string `json:"operation"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req InstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	signer, err := domain.ParseAddress(req.Signer)
	if err != nil {
		http.Error(w, "malformed signer", http.StatusBadRequest)
		return
	}
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		http.Error(w, "malformed signature", http.StatusBadRequest)
		return
	}
	wire, err := base64.StdEncoding.DecodeString(req.Instruction)
	if err != nil {
		http.Error(w, "malformed instruction", http.StatusBadRequest)
		return
	}

	if !ed25519.Verify(ed25519.PublicKey(signer[:]), wire, sig) {
		http.Error(w, "signature verification failed", http.StatusUnauthorized)
		return
	}

	in, err := instruction.Decode(wire)
	if err != nil {
		http.Error(w, fmt.Sprintf("decode instruction: %v", err), http.StatusBadRequest)
		return
	}

	execErr := s.eng.Execute(r.Context(), signer, in)

	resp := InstructionResponse{Operation: in.Opcode().String()}
	status := http.StatusOK
	if execErr != nil {
		resp.Error = execErr.Error()
		status = executionStatus(execErr)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// executionStatus maps engine errors to HTTP status codes.
func executionStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrCollaboratorCallFailed):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// AccountResponse is the JSON response for the /account endpoint.
type AccountResponse struct {
	Address string `json:"address"`
	Data    string `json:"data"` // base64 canonical record bytes
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	addr, err := domain.ParseAddress(r.URL.Query().Get("address"))
	if err != nil {
		http.Error(w, "malformed address", http.StatusBadRequest)
		return
	}

	data, err := s.store.Get(r.Context(), addr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AccountResponse{
		Address: addr.String(),
		Data:    base64.StdEncoding.EncodeToString(data),
	})
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
