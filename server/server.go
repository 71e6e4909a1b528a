package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/user/mcp-chat-backend/bridge"
)

const (
	DefaultListenAddr = ":3000"

	shutdownTimeout = 30 * time.Second
)

var ErrServerStarted = errors.New("server already started")

type Config struct {
	ListenAddr     string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *bridge.Logger

	mu       sync.RWMutex
	started  bool
	listener net.Listener
	ready    chan struct{}

	conversationSchema *jsonschema.Schema
}

func NewServer(config Config) *Server {
	return NewServerWithLogger(config, bridge.NewLogger(config.LogLevel))
}

func NewServerWithLogger(config Config, logger *bridge.Logger) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config: config,
		logger: logger,
		ready:  make(chan struct{}),

		conversationSchema: conversationListValidator,
	}
	s.router = s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  durationOr(config.ReadTimeout, 15*time.Second),
		WriteTimeout: durationOr(config.WriteTimeout, 15*time.Second),
		IdleTimeout:  durationOr(config.IdleTimeout, 60*time.Second),
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe binds the listen address and serves until ctx is
// cancelled, then shuts down gracefully. A Server serves at most once;
// later calls return ErrServerStarted.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrServerStarted
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}

	s.started = true
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("server listening on %s", listener.Addr().String())
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) GetListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddr
}

func (s *Server) Close() error {
	return s.httpServer.Close()
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
