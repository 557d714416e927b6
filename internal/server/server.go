// Package server exposes the TwinMind recording pipeline over HTTP.
//
// All /v1 routes require a bearer token; the resolved owner scopes every
// session operation. Answer streams are delivered as server-sent events and
// transcript updates over a websocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/armanbance/TwinMind/internal/answer"
	"github.com/armanbance/TwinMind/internal/auth"
	"github.com/armanbance/TwinMind/internal/blob"
	"github.com/armanbance/TwinMind/internal/health"
	"github.com/armanbance/TwinMind/internal/observe"
	"github.com/armanbance/TwinMind/internal/session"
	"github.com/armanbance/TwinMind/internal/store"
)

const (
	// maxSegmentBytes caps a single uploaded audio segment.
	maxSegmentBytes = 32 << 20 // 32 MiB

	shutdownTimeout = 10 * time.Second
)

// Server wires the session controller and answer engine into an HTTP API.
type Server struct {
	controller *session.Controller
	answers    *answer.Engine
	resolver   auth.Resolver
	metrics    *observe.Metrics

	searcher store.Searcher
	blobs    blob.Store
	health   *health.Handler
	mcp      http.Handler
	logger   *slog.Logger

	addr string
	tls  struct{ certFile, keyFile string }
}

// Option configures a [Server].
type Option func(*Server)

// WithSearcher enables the /v1/search endpoint.
func WithSearcher(s store.Searcher) Option {
	return func(srv *Server) { srv.searcher = s }
}

// WithBlobStore enables staged segment uploads via /v1/blobs.
func WithBlobStore(b blob.Store) Option {
	return func(srv *Server) { srv.blobs = b }
}

// WithHealth mounts the given health handler's /healthz and /readyz routes.
func WithHealth(h *health.Handler) Option {
	return func(srv *Server) { srv.health = h }
}

// WithMCPHandler mounts an MCP streamable HTTP handler under /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(srv *Server) { srv.mcp = h }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// WithTLS serves HTTPS using the given certificate pair.
func WithTLS(certFile, keyFile string) Option {
	return func(srv *Server) {
		srv.tls.certFile = certFile
		srv.tls.keyFile = keyFile
	}
}

// New creates a Server listening on addr once [Server.Run] is called.
func New(addr string, controller *session.Controller, answers *answer.Engine, resolver auth.Resolver, metrics *observe.Metrics, opts ...Option) (*Server, error) {
	if controller == nil {
		return nil, errors.New("server: controller must not be nil")
	}
	if resolver == nil {
		return nil, errors.New("server: auth resolver must not be nil")
	}
	srv := &Server{
		addr:       addr,
		controller: controller,
		answers:    answers,
		resolver:   resolver,
		metrics:    metrics,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(srv)
	}
	return srv, nil
}

// Handler assembles the full route table. Exposed separately from Run so
// tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /v1/sessions", s.requireAuth(s.handleCreateSession))
	mux.Handle("GET /v1/sessions", s.requireAuth(s.handleListSessions))
	mux.Handle("GET /v1/sessions/{id}", s.requireAuth(s.handleGetSession))
	mux.Handle("POST /v1/sessions/{id}/segments", s.requireAuth(s.handleSubmitSegment))
	mux.Handle("POST /v1/sessions/{id}/end", s.requireAuth(s.handleEndSession))
	mux.Handle("GET /v1/sessions/{id}/transcript", s.requireAuth(s.handleTranscript))
	mux.Handle("GET /v1/sessions/{id}/watch", s.requireAuth(s.handleWatch))
	mux.Handle("POST /v1/sessions/{id}/ask", s.requireAuth(s.handleAsk(answer.ModeFrozen)))
	mux.Handle("POST /v1/sessions/{id}/ask-live", s.requireAuth(s.handleAsk(answer.ModeLive)))

	if s.searcher != nil {
		mux.Handle("GET /v1/search", s.requireAuth(s.handleSearch))
	}
	if s.blobs != nil {
		mux.Handle("POST /v1/blobs", s.requireAuth(s.handleUploadBlob))
	}
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.mcp != nil {
		// MCP clients authenticate with the same bearer tokens; tool
		// handlers read the owner from the request context.
		mux.Handle("/mcp", s.requireAuth(s.mcp.ServeHTTP))
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.addr, "tls", s.tls.certFile != "")
		var err error
		if s.tls.certFile != "" {
			err = httpSrv.ListenAndServeTLS(s.tls.certFile, s.tls.keyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return httpSrv.Close()
		}
		return nil
	})

	return g.Wait()
}
