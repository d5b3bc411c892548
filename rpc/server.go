package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"refchain/core"
	"refchain/indexer"
	"refchain/observability/logging"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	shutdownTimeout = 10 * time.Second
)

const requestIDHeader = "X-Request-ID"

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Auth           AuthConfig
	RateLimit      RateLimit
	OriginPatterns []string
	Logger         *slog.Logger
}

// Server exposes the node over JSON-RPC, a committed-event websocket stream,
// health and Prometheus endpoints.
type Server struct {
	node           *core.Node
	index          *indexer.Store
	hub            *Hub
	auth           *Authenticator
	limiter        *RateLimiter
	originPatterns []string
	log            *slog.Logger

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds a server for node. index may be nil, in which case event
// history queries are unavailable. The server subscribes its websocket hub to
// the node's committed events.
func NewServer(node *core.Node, index *indexer.Store, cfg ServerConfig) (*Server, error) {
	if node == nil {
		return nil, fmt.Errorf("rpc: node required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	origins := cfg.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"localhost:*", "127.0.0.1:*"}
	}
	limiter, err := NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rpc: %w", err)
	}
	s := &Server{
		node:           node,
		index:          index,
		hub:            NewHub(),
		auth:           NewAuthenticator(cfg.Auth),
		limiter:        limiter,
		originPatterns: origins,
		log:            log.With(slog.String("component", "rpc")),
	}
	node.Subscribe(s.hub)
	return s, nil
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Group(func(gr chi.Router) {
		gr.Use(s.limiter.Middleware)
		gr.Post("/rpc", s.handleRPC)
		gr.Post("/", s.handleRPC)
	})
	return r
}

// Serve runs the HTTP server on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           otelhttp.NewHandler(s.Handler(), "referrald"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("rpc listening", slog.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		if auth := r.Header.Get("Authorization"); auth != "" {
			s.log.Debug("authenticated request",
				logging.MaskField("request_id", id),
				slog.String("authorization", logging.MaskBearer(auth)))
		}
		next.ServeHTTP(w, r)
	})
}
