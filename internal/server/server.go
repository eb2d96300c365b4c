// Package server hosts the authenticated file transfer endpoints: streaming
// upload with digest verification and atomic commit, and streaming download
// with the stored payload signature attached out of band.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DezzK/private-cloud/internal/config"
	"github.com/DezzK/private-cloud/internal/platform/ratelimiter"
	"github.com/DezzK/private-cloud/internal/request"
	"github.com/DezzK/private-cloud/internal/wire"
)

type Server struct {
	logger      *slog.Logger
	verifier    *request.Verifier
	limiter     *ratelimiter.PerKey
	storageRoot string
	scratchDir  string
	maxUpload   int64
	httpServer  *http.Server
}

// New validates the configuration, prepares the storage tree and wires the
// HTTP surface. Errors here are unrecoverable startup errors.
func New(cfg config.Server, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o700); err != nil {
		return nil, err
	}
	storageRoot, err := filepath.Abs(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	scratchDir, err := filepath.Abs(cfg.EffectiveScratchDir())
	if err != nil {
		return nil, err
	}

	s := &Server{
		logger:      logger,
		verifier:    request.NewVerifier(),
		limiter:     ratelimiter.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute),
		storageRoot: storageRoot,
		scratchDir:  scratchDir,
		maxUpload:   cfg.MaxUploadBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc(wire.UploadPath, s.handleUpload)
	mux.HandleFunc(wire.DownloadPath, s.handleDownload)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler exposes the routed handler for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully. In-flight
// transfers get a bounded drain window.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	s.logger.Info("server listening", "addr", s.httpServer.Addr, "storage_root", s.storageRoot)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
