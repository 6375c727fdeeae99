package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/zeusync/mathcraft/internal/cache"
	"github.com/zeusync/mathcraft/internal/config"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
)

// Server exposes the collision engine over HTTP and WebSocket
type Server struct {
	config *config.Config
	logger log.Log
	cache  *cache.SimulationCache

	httpServer *http.Server
	listener   net.Listener

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	// Active animation streams; streamMu orders registration against Stop
	streamMu    sync.Mutex
	stopping    bool
	streams     sync.Map // map[string]context.CancelFunc
	streamCount int64    // atomic
	streamGroup sync.WaitGroup
}

// NewServer creates a new collider server
func NewServer(cfg *config.Config, logger log.Log, simCache *cache.SimulationCache) *Server {
	if simCache == nil {
		simCache = cache.New(cfg.Cache.Shards, cfg.Cache.EntriesPerShard)
	}

	s := &Server{
		config: cfg,
		logger: logger.With(log.String("component", "server")),
		cache:  simCache,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: 0, // streams outlive any fixed write deadline
	}

	s.logger.Info("Server created",
		log.String("listen_addr", cfg.Server.ListenAddr),
		log.Int("max_frames", cfg.Engine.MaxFrames))

	return s
}

// Handler returns the HTTP routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/collision", s.handleCollision)
	mux.HandleFunc("POST /api/frames", s.handleFrames)
	mux.HandleFunc("POST /api/batch", s.handleBatch)
	mux.HandleFunc("GET /api/log", s.handleLog)
	mux.HandleFunc("GET /api/exp", s.handleExp)
	mux.HandleFunc("GET /api/decay", s.handleDecay)
	mux.HandleFunc("GET /api/notation", s.handleNotation)
	mux.HandleFunc("GET /api/lesson", s.handleLesson)
	mux.HandleFunc("GET /ws/animate", s.handleAnimate)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.recoverer(s.requestLogger(mux))
}

// Start listens on the configured address and serves in the background
func (s *Server) Start(_ context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}

	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	s.logger.Info("Starting server")

	s.streamMu.Lock()
	s.stopping = false
	s.streamMu.Unlock()

	listener, err := net.Listen("tcp", s.config.Server.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return err
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop cancels active streams and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	s.streamMu.Lock()
	s.stopping = true
	s.streams.Range(func(_, value any) bool {
		if cancel, ok := value.(context.CancelFunc); ok {
			cancel()
		}
		return true
	})
	s.streamMu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	s.streamGroup.Wait()

	s.logger.Info("Server stopped")
	return err
}

// Close stops the server if needed and marks it unusable
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil // Already closed
	}

	if atomic.LoadInt32(&s.running) == 1 {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout.Std())
		defer cancel()
		_ = s.Stop(ctx)
	}

	s.logger.Info("Server closed")
	_ = s.logger.Sync()
	return nil
}

// Stats contains server statistics
type Stats struct {
	Running       bool        `json:"running"`
	ActiveStreams int64       `json:"active_streams"`
	Cache         cache.Stats `json:"cache"`
}

// GetStats returns server statistics
func (s *Server) GetStats() Stats {
	return Stats{
		Running:       atomic.LoadInt32(&s.running) == 1,
		ActiveStreams: atomic.LoadInt64(&s.streamCount),
		Cache:         s.cache.Stats(),
	}
}

// registerStream tracks a stream unless Stop has begun.
func (s *Server) registerStream(session string, cancel context.CancelFunc) bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.stopping {
		return false
	}
	s.streams.Store(session, cancel)
	atomic.AddInt64(&s.streamCount, 1)
	s.streamGroup.Add(1)
	return true
}

func (s *Server) isStopping() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.stopping
}
