package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/gorilla/websocket"

	"sipc/internal/config"
	"sipc/internal/events"
	"sipc/internal/jobs"
	"sipc/internal/logging"
	"sipc/internal/store"
)

// LockFileName is the storage-directory lock held while serving.
const LockFileName = "sipc.lock"

// Server is the HTTP front end.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	registry *events.Registry
	runner   *jobs.Runner
	logger   *slog.Logger
	upgrader websocket.Upgrader

	lock     *flock.Flock
	listener net.Listener
	server   *http.Server

	// connCtx ends when the server shuts down; websocket loops watch it
	// because hijacked connections outlive http.Server.Shutdown.
	connCtx    context.Context
	cancelConn context.CancelFunc
	stopOnce   sync.Once
}

// New wires a server over the given components.
func New(cfg *config.Config, st *store.Store, registry *events.Registry, runner *jobs.Runner, logger *slog.Logger) (*Server, error) {
	if cfg == nil || st == nil || registry == nil || runner == nil {
		return nil, errors.New("server requires config, store, registry, and runner")
	}
	connCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		store:      st,
		registry:   registry,
		runner:     runner,
		logger:     logging.NewComponentLogger(logger, "server"),
		lock:       flock.New(filepath.Join(cfg.Paths.StorageDir, LockFileName)),
		connCtx:    connCtx,
		cancelConn: cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server.RegisterOnShutdown(cancel)
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/compress", s.handleCompress)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/download/{hash}", s.handleDownload)
	mux.HandleFunc("/api/status", s.handleStatus)
	return s.withRequestID(s.withCORS(mux))
}

// Start locks the storage directory, begins listening, and runs the session
// sweeper. The server shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire storage lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another sipc server is using %s", s.cfg.Paths.StorageDir)
	}

	listener, err := net.Listen("tcp", strings.TrimSpace(s.cfg.Server.Bind))
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()
	go events.NewSweeper(s.registry, s.cfg.SweepInterval(), s.cfg.SessionTTL(), s.logger).Run(s.connCtx)
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.connCtx.Done():
		}
	}()

	s.logger.Info("server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("storage_dir", s.cfg.Paths.StorageDir),
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, closes websocket streams, and releases the
// storage lock. Running jobs are not interrupted; callers wait on the runner.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown incomplete", logging.Error(err))
		}
		s.cancelConn()
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release storage lock", logging.Error(err))
		}
		s.logger.Info("server stopped")
	})
}
