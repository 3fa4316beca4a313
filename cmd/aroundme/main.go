// Command aroundme is the main entry point for the aroundme search server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/aroundmehq/aroundme/internal/api"
	"github.com/aroundmehq/aroundme/internal/config"
	"github.com/aroundmehq/aroundme/internal/fusion"
	"github.com/aroundmehq/aroundme/internal/health"
	"github.com/aroundmehq/aroundme/internal/intent"
	"github.com/aroundmehq/aroundme/internal/observe"
	"github.com/aroundmehq/aroundme/internal/plan"
	"github.com/aroundmehq/aroundme/internal/rank"
	"github.com/aroundmehq/aroundme/internal/refine"
	"github.com/aroundmehq/aroundme/internal/resilience"
	"github.com/aroundmehq/aroundme/internal/search"
	"github.com/aroundmehq/aroundme/internal/session"
	"github.com/aroundmehq/aroundme/pkg/provider/embeddings"
	ollamaembed "github.com/aroundmehq/aroundme/pkg/provider/embeddings/ollama"
	oaembed "github.com/aroundmehq/aroundme/pkg/provider/embeddings/openai"
	"github.com/aroundmehq/aroundme/pkg/provider/embeddings/pgcache"
	"github.com/aroundmehq/aroundme/pkg/provider/llm"
	"github.com/aroundmehq/aroundme/pkg/provider/llm/anyllm"
	oallm "github.com/aroundmehq/aroundme/pkg/provider/llm/openai"
	"github.com/aroundmehq/aroundme/pkg/provider/places"
	"github.com/aroundmehq/aroundme/pkg/provider/places/google"
	"github.com/aroundmehq/aroundme/pkg/provider/places/yelp"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "aroundme: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "aroundme: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("aroundme starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "aroundme"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	completer, err := buildCompleter(cfg, reg)
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}
	embedder, err := buildEmbedder(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build embeddings provider", "err", err)
		return 1
	}

	// ── Place providers ───────────────────────────────────────────────────────
	providers, err := buildPlaceProviders(cfg)
	if err != nil {
		slog.Error("failed to build place providers", "err", err)
		return 1
	}
	providerNames := make([]string, 0, len(providers))
	for _, p := range providers {
		providerNames = append(providerNames, p.Name())
	}

	// ── Session and cache store ───────────────────────────────────────────────
	var store session.Store
	var redisStore *session.RedisStore
	if cfg.Redis.Addr != "" {
		redisStore, err = session.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "err", err)
			return 1
		}
		defer redisStore.Close()
		store = redisStore
		slog.Info("session store ready", "backend", "redis", "addr", cfg.Redis.Addr)
	} else {
		store = session.NewMemoryStore()
		slog.Info("session store ready", "backend", "memory")
	}
	sessions := session.NewSessions(store, time.Duration(cfg.Search.SessionTTLSeconds)*time.Second)

	// ── Pipeline components ───────────────────────────────────────────────────
	var extractorOpts []intent.ExtractorOption
	var plannerOpts []plan.Option
	var followupOpts []intent.FollowupOption
	if completer != nil {
		extractorOpts = append(extractorOpts, intent.WithCompleter(completer))
		plannerOpts = append(plannerOpts, plan.WithCompleter(completer))
		followupOpts = append(followupOpts, intent.WithFollowupCompleter(completer))
	}
	extractor := intent.NewExtractor(extractorOpts...)
	planner := plan.NewPlanner(providerNames, plannerOpts...)
	parser := intent.NewFollowupParser(followupOpts...)

	var deduperOpts []fusion.DeduperOption
	if cfg.Search.NameThreshold > 0 {
		deduperOpts = append(deduperOpts, fusion.WithNameThreshold(cfg.Search.NameThreshold))
	}
	if cfg.Search.GeoThresholdM > 0 {
		deduperOpts = append(deduperOpts, fusion.WithGeoThreshold(cfg.Search.GeoThresholdM))
	}
	deduperOpts = append(deduperOpts, fusion.WithProviderPreference(providerNames))
	deduper := fusion.NewDeduper(deduperOpts...)

	var matcherOpts []rank.MatcherOption
	if embedder != nil {
		matcherOpts = append(matcherOpts, rank.WithEmbedder(embedder))
	}
	if cfg.Search.SemanticThreshold > 0 {
		matcherOpts = append(matcherOpts, rank.WithSemanticThreshold(cfg.Search.SemanticThreshold))
	}
	ranker := rank.NewRanker(rank.NewMatcher(matcherOpts...))

	refiner := refine.NewRefiner(sessions, parser, logger)

	svc := search.NewService(search.Config{
		Providers:      providers,
		Extractor:      extractor,
		Planner:        planner,
		Deduper:        deduper,
		Ranker:         ranker,
		Sessions:       sessions,
		Refiner:        refiner,
		Cache:          store,
		CacheTTL:       time.Duration(cfg.Search.CacheTTLSeconds) * time.Second,
		Metrics:        metrics,
		Logger:         logger,
		CallTimeout:    time.Duration(cfg.Search.ProviderTimeoutSeconds) * time.Second,
		MaxPerProvider: cfg.Search.MaxPerProvider,
		NearDistanceM:  cfg.Search.NearDistanceM,
		DefaultTopK:    cfg.Search.DefaultTopK,
	})

	// ── HTTP server ───────────────────────────────────────────────────────────
	checkers := []health.Checker{
		{Name: "session_store", Check: func(ctx context.Context) error {
			_, err := store.Get(ctx, "health:probe")
			if err != nil && !errors.Is(err, session.ErrNotFound) {
				return err
			}
			return nil
		}},
	}
	server := api.NewServer(api.Config{
		Search:         svc,
		Sessions:       sessions,
		Health:         health.New(checkers...),
		Metrics:        metrics,
		Logger:         logger,
		DefaultRadiusM: cfg.Search.DefaultRadiusM,
		DefaultPreset:  string(cfg.Search.RankingPreset),
	})

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.RankingPresetChanged || d.SearchChanged {
			slog.Warn("search settings changed on disk; restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	printStartupSummary(cfg, providerNames)

	errCh := make(chan error, 1)
	go func() {
		if cfg.Server.TLS != nil {
			errCh <- httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai goes through the native SDK client.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Completer, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining hosted providers share the any-llm pattern:
	// optional APIKey + optional BaseURL.
	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Completer, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Completer, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Embedder, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Embedder, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})
}

// buildCompleter constructs the LLM completer named in cfg, wrapped in the
// failover chain when a fallback is configured. Returns nil when no LLM is
// configured; the pipeline then runs in rule-based mode.
func buildCompleter(cfg *config.Config, reg *config.Registry) (llm.Completer, error) {
	name := cfg.Providers.LLM.Name
	if name == "" {
		return nil, nil
	}
	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)

	fbName := cfg.Providers.LLMFallback.Name
	if fbName == "" {
		return primary, nil
	}
	fb, err := reg.CreateLLM(cfg.Providers.LLMFallback)
	if err != nil {
		return nil, fmt.Errorf("create llm fallback %q: %w", fbName, err)
	}
	chain := resilience.NewCompleterFallback(primary, name, resilience.FallbackConfig{})
	chain.AddFallback(fbName, fb)
	slog.Info("provider created", "kind", "llm_fallback", "name", fbName, "model", cfg.Providers.LLMFallback.Model)
	return chain, nil
}

// buildEmbedder constructs the embedder named in cfg behind a circuit breaker
// and an embedding cache. Returns nil when no embedder is configured; the
// matcher then stops at keyword matching.
func buildEmbedder(ctx context.Context, cfg *config.Config, reg *config.Registry) (embeddings.Embedder, error) {
	name := cfg.Providers.Embeddings.Name
	if name == "" {
		return nil, nil
	}
	inner, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "embeddings", "name", name, "model", cfg.Providers.Embeddings.Model)

	guarded := resilience.NewGuardedEmbedder(inner, resilience.CircuitBreakerConfig{Name: "embeddings/" + name})

	if cfg.Postgres.DSN != "" {
		cached, err := pgcache.New(ctx, cfg.Postgres.DSN, guarded, cfg.Providers.Embeddings.Model)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
		slog.Info("embedding cache ready", "backend", "pgvector")
		return cached, nil
	}
	return embeddings.NewCache(guarded), nil
}

// buildPlaceProviders constructs the configured place provider adapters in
// preference order.
func buildPlaceProviders(cfg *config.Config) ([]places.Provider, error) {
	var providers []places.Provider
	timeout := time.Duration(cfg.Search.ProviderTimeoutSeconds) * time.Second

	if cfg.Providers.Google.APIKey != "" {
		var opts []google.Option
		if cfg.Providers.Google.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(cfg.Providers.Google.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, google.WithTimeout(timeout))
		}
		p, err := google.New(cfg.Providers.Google.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create google provider: %w", err)
		}
		providers = append(providers, p)
		slog.Info("provider created", "kind", "places", "name", "google")
	}

	if cfg.Providers.Yelp.APIKey != "" {
		var opts []yelp.Option
		if cfg.Providers.Yelp.BaseURL != "" {
			opts = append(opts, yelp.WithBaseURL(cfg.Providers.Yelp.BaseURL))
		}
		if timeout > 0 {
			opts = append(opts, yelp.WithTimeout(timeout))
		}
		p, err := yelp.New(cfg.Providers.Yelp.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create yelp provider: %w", err)
		}
		providers = append(providers, p)
		slog.Info("provider created", "kind", "places", "name", "yelp")
	}

	if len(providers) == 0 {
		slog.Warn("no place providers configured; searches will return empty result sets")
	}
	return providers, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, providerNames []string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         aroundme — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEntry("Places", joinOr(providerNames, "(none)"))
	printEntry("LLM", providerOr(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model))
	printEntry("LLM fallback", providerOr(cfg.Providers.LLMFallback.Name, cfg.Providers.LLMFallback.Model))
	printEntry("Embeddings", providerOr(cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model))
	if cfg.Redis.Addr != "" {
		printEntry("Sessions", "redis")
	} else {
		printEntry("Sessions", "memory")
	}
	if cfg.Postgres.DSN != "" {
		printEntry("Embed cache", "pgvector")
	} else {
		printEntry("Embed cache", "memory")
	}
	if cfg.Server.ListenAddr != "" {
		printEntry("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printEntry(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func providerOr(name, model string) string {
	if name == "" {
		return "(not configured)"
	}
	if model != "" {
		return name + " / " + model
	}
	return name
}

func joinOr(names []string, empty string) string {
	if len(names) == 0 {
		return empty
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
