// Package app wires all TwinMind subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API, and Shutdown tears everything down in
// order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithNormalizer, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/armanbance/TwinMind/internal/answer"
	"github.com/armanbance/TwinMind/internal/auth"
	"github.com/armanbance/TwinMind/internal/blob"
	"github.com/armanbance/TwinMind/internal/config"
	"github.com/armanbance/TwinMind/internal/health"
	"github.com/armanbance/TwinMind/internal/mcpserver"
	"github.com/armanbance/TwinMind/internal/observe"
	"github.com/armanbance/TwinMind/internal/resilience"
	"github.com/armanbance/TwinMind/internal/server"
	"github.com/armanbance/TwinMind/internal/session"
	"github.com/armanbance/TwinMind/internal/store"
	"github.com/armanbance/TwinMind/internal/store/postgres"
	"github.com/armanbance/TwinMind/pkg/audio"
	"github.com/armanbance/TwinMind/pkg/provider/embeddings"
	"github.com/armanbance/TwinMind/pkg/provider/llm"
	"github.com/armanbance/TwinMind/pkg/provider/stt"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	STT        stt.Transcriber
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and serves the TwinMind transcript API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	store      store.Store
	searcher   store.Searcher
	blobs      blob.Store
	normalizer audio.Normalizer
	resolver   auth.Resolver
	metrics    *observe.Metrics
	stt        *resilience.STTFallback
	llm        *resilience.LLMFallback
	controller *session.Controller
	answers    *answer.Engine
	srv        *server.Server

	// closers are called in reverse order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a session store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithSearcher injects a transcript searcher. Defaults to the store when the
// store implements [store.Searcher].
func WithSearcher(s store.Searcher) Option {
	return func(a *App) { a.searcher = s }
}

// WithNormalizer injects an audio normalizer instead of the ffmpeg one.
func WithNormalizer(n audio.Normalizer) Option {
	return func(a *App) { a.normalizer = n }
}

// WithBlobStore injects a blob store instead of creating one from config.
func WithBlobStore(b blob.Store) Option {
	return func(a *App) { a.blobs = b }
}

// WithResolver injects a token resolver instead of building a static one
// from config. main.go uses this to keep a handle for token hot-reload.
func WithResolver(r auth.Resolver) Option {
	return func(a *App) { a.resolver = r }
}

// WithMetrics injects pre-built metrics and skips global telemetry
// initialisation. Tests use this with a noop meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	if providers.STT == nil {
		return nil, errors.New("app: an STT provider is required to transcribe segments")
	}
	if providers.LLM == nil {
		return nil, errors.New("app: an LLM provider is required for summaries and answers")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// Telemetry first so every later subsystem records against the real
	// meter provider.
	if a.metrics == nil {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "twinmind"})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.closers = append(a.closers, shutdown)
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	if err := a.initBlobs(); err != nil {
		return nil, fmt.Errorf("app: init blob store: %w", err)
	}
	a.initNormalizer()

	if a.resolver == nil {
		a.resolver = auth.NewStaticResolver(cfg.Auth.Tokens)
	}

	// Both provider slots go through a circuit breaker wrapper so an outage
	// turns into fast failures instead of piling up requests. main.go can
	// register additional fallback backends on these via [App.STTFallback]
	// and [App.LLMFallback].
	a.stt = resilience.NewSTTFallback(providers.STT, providerName(cfg.Providers.STT, "stt"), resilience.FallbackConfig{})
	a.llm = resilience.NewLLMFallback(providers.LLM, providerName(cfg.Providers.LLM, "llm"), resilience.FallbackConfig{})

	a.controller = session.NewController(a.store, a.normalizer, a.stt, a.metrics,
		session.WithSummarizer(session.NewLLMSummarizer(a.llm)),
	)
	a.answers = answer.NewEngine(a.llm, a.controller, a.metrics)

	if err := a.initServer(); err != nil {
		return nil, err
	}
	return a, nil
}

// initStore sets up the PostgreSQL store, or the in-memory fallback when no
// DSN is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		if a.searcher == nil {
			a.searcher, _ = a.store.(store.Searcher)
		}
		return nil
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		mem := store.NewMemStore()
		a.store = mem
		a.searcher = mem
		return nil
	}

	var opts []postgres.Option
	if a.providers.Embeddings != nil {
		opts = append(opts, postgres.WithEmbedder(a.providers.Embeddings))
	}
	pg, err := postgres.New(ctx, dsn, opts...)
	if err != nil {
		return err
	}
	a.store = pg
	a.searcher = pg
	a.closers = append(a.closers, func(context.Context) error {
		pg.Close()
		return nil
	})
	return nil
}

// initBlobs creates the staging blob store when a directory is configured.
func (a *App) initBlobs() error {
	if a.blobs != nil || a.cfg.Storage.BlobDir == "" {
		return nil
	}
	fs, err := blob.NewFSStore(a.cfg.Storage.BlobDir)
	if err != nil {
		return err
	}
	a.blobs = fs
	return nil
}

// initNormalizer creates the ffmpeg normalizer if one wasn't injected.
func (a *App) initNormalizer() {
	if a.normalizer != nil {
		return
	}
	var opts []audio.FFmpegOption
	if a.cfg.Audio.FFmpegPath != "" {
		opts = append(opts, audio.WithBinary(a.cfg.Audio.FFmpegPath))
	}
	if a.cfg.Audio.TempDir != "" {
		opts = append(opts, audio.WithTempDir(a.cfg.Audio.TempDir))
	}
	a.normalizer = audio.NewFFmpegNormalizer(opts...)
}

// initServer assembles the health checks and the HTTP server.
func (a *App) initServer() error {
	var checkers []health.Checker
	if pinger, ok := a.store.(health.Pinger); ok {
		checkers = append(checkers, health.PingChecker("database", pinger))
	}

	srvOpts := []server.Option{
		server.WithHealth(health.New(checkers...)),
	}
	if a.searcher != nil {
		srvOpts = append(srvOpts, server.WithSearcher(a.searcher))
	}
	if a.blobs != nil {
		srvOpts = append(srvOpts, server.WithBlobStore(a.blobs))
	}
	if a.cfg.MCP.Enabled {
		host := mcpserver.New(a.controller, a.answers, a.metrics)
		srvOpts = append(srvOpts, server.WithMCPHandler(host.Handler()))
	}
	if a.cfg.Server.TLS != nil {
		srvOpts = append(srvOpts, server.WithTLS(a.cfg.Server.TLS.CertFile, a.cfg.Server.TLS.KeyFile))
	}

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	srv, err := server.New(addr, a.controller, a.answers, a.resolver, a.metrics, srvOpts...)
	if err != nil {
		return fmt.Errorf("app: init server: %w", err)
	}
	a.srv = srv
	return nil
}

// Controller exposes the session controller, mainly for tests.
func (a *App) Controller() *session.Controller {
	return a.controller
}

// STTFallback exposes the transcription failover chain so main.go can register
// additional backends before Run.
func (a *App) STTFallback() *resilience.STTFallback {
	return a.stt
}

// LLMFallback exposes the LLM failover chain so main.go can register
// additional backends before Run.
func (a *App) LLMFallback() *resilience.LLMFallback {
	return a.llm
}

// providerName labels a circuit breaker after the configured provider, falling
// back to the slot kind when the entry is unset.
func providerName(entry config.ProviderEntry, kind string) string {
	if entry.Name == "" {
		return kind
	}
	return entry.Name
}

// Handler exposes the assembled HTTP routes, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run serves the HTTP API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.srv.Run(ctx)
}

// Shutdown tears down all subsystems in reverse initialisation order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("app: shutdown: %w", errors.Join(errs...))
	}
	slog.Info("all subsystems stopped")
	return nil
}
