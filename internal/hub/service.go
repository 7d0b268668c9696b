package hub

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/presence"
	"github.com/danmuck/relayctl/internal/proposal"
	"github.com/danmuck/relayctl/internal/relay"
)

// Relay endpoint configuration.
type ServiceConfig struct {
	ListenAddr      string
	RegistryTTL     time.Duration // zero disables registry expiry
	ProposalTTL     time.Duration
	ReapInterval    time.Duration
	CounterPolicy   proposal.CounterPolicy
	CloseReplaced   bool
	AllowedOrigins  []string
	MaxMessageBytes int64
	ShutdownTimeout time.Duration
}

// Relay service defaults matching the deployed knock plane.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:      ":10000",
		RegistryTTL:     72 * time.Hour,
		ProposalTTL:     72 * time.Hour,
		ReapInterval:    5 * time.Minute,
		CounterPolicy:   proposal.CounterTerminal,
		CloseReplaced:   false,
		AllowedOrigins:  nil,
		MaxMessageBytes: 64 * 1024,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Service runs the presence directory, proposal tracker, and relay behind one
// serving surface.
type Service struct {
	cfg ServiceConfig
	log zerolog.Logger

	registry *presence.Registry
	tracker  *proposal.Tracker
	engine   *relay.Engine

	handlers map[string]handlerFunc

	connsMu sync.Mutex
	conns   map[string]*wsConn
}

// NewService constructs a service with default configuration.
func NewService(log zerolog.Logger) *Service {
	return NewServiceWithConfig(DefaultServiceConfig(), log)
}

// NewServiceWithConfig constructs a service with explicit configuration.
func NewServiceWithConfig(cfg ServiceConfig, log zerolog.Logger) *Service {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = DefaultServiceConfig().ProposalTTL
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultServiceConfig().ReapInterval
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultServiceConfig().MaxMessageBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultServiceConfig().ShutdownTimeout
	}
	if !cfg.CounterPolicy.Valid() {
		cfg.CounterPolicy = proposal.CounterTerminal
	}

	observability.RegisterMetrics()

	svc := &Service{
		cfg:      cfg,
		log:      log,
		registry: presence.NewRegistry(cfg.RegistryTTL, cfg.CloseReplaced),
		tracker:  proposal.NewTracker(cfg.ProposalTTL, cfg.CounterPolicy),
		conns:    make(map[string]*wsConn),
	}
	svc.engine = relay.NewEngine(svc.registry, log)
	svc.tracker.SetExpiryHook(func(id string) {
		observability.RecordProposalEvent("expired")
		log.Debug().Str("prop_id", id).Msg("proposal expired")
	})
	svc.handlers = svc.dispatchTable()
	return svc
}

// Registry exposes the presence directory for tests and admin surfaces.
func (s *Service) Registry() *presence.Registry {
	return s.registry
}

// Tracker exposes pending proposal state for tests and admin surfaces.
func (s *Service) Tracker() *proposal.Tracker {
	return s.tracker
}

// Run blocks until signal-driven shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.log.Info().Str("addr", ln.Addr().String()).Msg("relay listening")
	return s.Serve(ctx, ln)
}

// Serve accepts connections on an existing listener until ctx is done.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.routes()}

	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go s.runReaper(reapCtx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeAllConns()
		s.tracker.Stop()
	}()

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Service) trackConn(c *wsConn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[c.ID()] = c
}

func (s *Service) untrackConn(c *wsConn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, c.ID())
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for id, c := range s.conns {
		_ = c.Close()
		delete(s.conns, id)
	}
}
