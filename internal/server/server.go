// Package server exposes the committed reward tree and per-holder proofs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"incentiveScope/internal/ledger"
	"incentiveScope/internal/model"
)

const currentKey = "current"

// Config controls the proof server.
type Config struct {
	Addr     string
	CacheTTL time.Duration
	Token    common.Address
}

// Server answers commitment and proof queries from the on-chain tree.
type Server struct {
	cfg    Config
	sink   ledger.CommitmentReader
	store  ledger.ContentStore
	router *mux.Router
	cache  *cache.Cache
	logger *zap.Logger

	mu sync.Mutex
}

type snapshot struct {
	Commitment model.Commitment
	Ledger     ledger.Ledger
	Tree       *ledger.Tree
}

// New builds a Server and its routes.
func New(cfg Config, sink ledger.CommitmentReader, store ledger.ContentStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	s := &Server{
		cfg:    cfg,
		sink:   sink,
		store:  store,
		router: mux.NewRouter(),
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/commitment", s.handleCommitment).Methods(http.MethodGet)
	s.router.HandleFunc("/proof/{address}", s.handleProof).Methods(http.MethodGet)
	s.router.Use(s.loggingMiddleware)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("proof server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// current returns the committed tree, rebuilding it only when the cached
// snapshot has expired and the on-chain root moved.
func (s *Server) current(ctx context.Context) (*snapshot, error) {
	if v, ok := s.cache.Get(currentKey); ok {
		return v.(*snapshot), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(currentKey); ok {
		return v.(*snapshot), nil
	}

	commitment, err := s.sink.CurrentTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current tree: %w", err)
	}
	if v, ok := s.cache.Get(commitment.MerkleRoot.Hex()); ok {
		snap := v.(*snapshot)
		s.cache.SetDefault(currentKey, snap)
		return snap, nil
	}

	l, commitment, err := ledger.LoadCommitted(ctx, fixedReader(commitment), s.store, s.cfg.Token)
	if err != nil {
		return nil, err
	}
	tree, err := ledger.BuildTree(l, s.cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}

	snap := &snapshot{Commitment: commitment, Ledger: l, Tree: tree}
	s.cache.Set(commitment.MerkleRoot.Hex(), snap, cache.NoExpiration)
	s.cache.SetDefault(currentKey, snap)
	s.logger.Info("tree loaded",
		zap.String("root", commitment.MerkleRoot.Hex()),
		zap.Int("holders", len(l)),
	)
	return snap, nil
}

type fixedReader model.Commitment

func (f fixedReader) CurrentTree(context.Context) (model.Commitment, error) {
	return model.Commitment(f), nil
}

type commitmentResponse struct {
	MerkleRoot  string `json:"merkle_root"`
	ContentHash string `json:"content_hash"`
	Token       string `json:"token"`
	Holders     int    `json:"holders"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCommitment(w http.ResponseWriter, r *http.Request) {
	snap, err := s.current(r.Context())
	if err != nil {
		s.logger.Error("load commitment", zap.Error(err))
		writeError(w, http.StatusBadGateway, "commitment unavailable")
		return
	}
	writeJSON(w, http.StatusOK, commitmentResponse{
		MerkleRoot:  snap.Commitment.MerkleRoot.Hex(),
		ContentHash: snap.Commitment.ContentHash.Hex(),
		Token:       s.cfg.Token.Hex(),
		Holders:     len(snap.Ledger),
	})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	holder := common.HexToAddress(raw)

	snap, err := s.current(r.Context())
	if err != nil {
		s.logger.Error("load commitment", zap.Error(err))
		writeError(w, http.StatusBadGateway, "commitment unavailable")
		return
	}
	if _, ok := snap.Tree.Amount(holder); !ok {
		writeError(w, http.StatusNotFound, "no rewards for holder")
		return
	}
	claim, err := ledger.ClaimFor(snap.Ledger, snap.Tree, holder)
	if err != nil {
		s.logger.Error("build proof", zap.String("holder", holder.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "proof unavailable")
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
