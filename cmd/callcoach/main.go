// Command callcoach is the call-coaching pipeline server: it accepts call
// recordings, transcribes them via a speech-to-text provider, analyzes the
// transcripts with an LLM, and generates per-agent coaching plans.
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

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxmetrics/callcoach/internal/api"
	"github.com/voxmetrics/callcoach/internal/config"
	"github.com/voxmetrics/callcoach/internal/health"
	"github.com/voxmetrics/callcoach/internal/observe"
	"github.com/voxmetrics/callcoach/internal/pipeline"
	"github.com/voxmetrics/callcoach/internal/storage"
	"github.com/voxmetrics/callcoach/pkg/provider/llm"
	"github.com/voxmetrics/callcoach/pkg/provider/llm/anyllm"
	oaillm "github.com/voxmetrics/callcoach/pkg/provider/llm/openai"
	"github.com/voxmetrics/callcoach/pkg/provider/stt"
	"github.com/voxmetrics/callcoach/pkg/provider/stt/whisper"
	"github.com/voxmetrics/callcoach/pkg/store/postgres"
)

// connectTimeout bounds the total startup retry window for the database.
const connectTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// A .env next to the binary is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "callcoach: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "callcoach: %v\n", err)
		}
		return 1
	}
	applyEnvOverrides(cfg)

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("callcoach starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers first so everything below records into them.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "callcoach"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// Database, with a bounded retry so the server survives a slower
	// Postgres container during orchestrated startup.
	db, err := connectStore(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		return 1
	}
	defer db.Close()
	slog.Info("database connected")

	// Providers.
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	sttProvider, llmProvider, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	pipe := pipeline.New(pipeline.Config{
		AudioFiles:    db.AudioFiles(),
		Transcripts:   db.Transcripts(),
		Analyses:      db.Analyses(),
		CoachingPlans: db.CoachingPlans(),
		STT:           sttProvider,
		STTName:       cfg.Providers.STT.Name,
		LLM:           llmProvider,
		LLMName:       cfg.Providers.LLM.Name,
	})

	server := api.New(api.Config{
		AudioFiles:     db.AudioFiles(),
		Transcripts:    db.Transcripts(),
		Analyses:       db.Analyses(),
		CoachingPlans:  db.CoachingPlans(),
		Pipeline:       pipe,
		Files:          storage.NewDisk(cfg.Storage.Root),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		STTName:        cfg.Providers.STT.Name,
		LLMName:        cfg.Providers.LLM.Name,
		STTCheck:       reachabilityCheck("stt", cfg.Providers.STT.BaseURL),
		LLMCheck:       reachabilityCheck("llm", cfg.Providers.LLM.BaseURL),
	})

	mux := http.NewServeMux()
	server.Register(mux)
	health.New(
		health.Database(db.Ping),
		health.StorageRoot(cfg.Storage.Root),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: observe.Middleware(observe.DefaultMetrics())(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "addr", cfg.Server.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, draining…")
	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyEnvOverrides lets secrets come from the environment (or a .env file)
// instead of the config file.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("CALLCOACH_POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if cfg.Providers.LLM.APIKey == "" {
		cfg.Providers.LLM.APIKey = os.Getenv("CALLCOACH_LLM_API_KEY")
	}
	if cfg.Providers.STT.APIKey == "" {
		cfg.Providers.STT.APIKey = os.Getenv("CALLCOACH_STT_API_KEY")
	}
}

// connectStore opens the Postgres store, retrying with exponential backoff
// until the connect window closes. Pipeline provider calls are never retried;
// this applies to startup only.
func connectStore(ctx context.Context, dsn string) (*postgres.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var db *postgres.Store
	op := func() error {
		var err error
		db, err = postgres.New(ctx, dsn)
		if err != nil {
			slog.Warn("database not ready, retrying", "err", err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, err
	}
	return db, nil
}

// registerBuiltinProviders wires the provider factories that ship with
// callcoach into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// STT: a whisper.cpp server spoken to over HTTP.
	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if langs := optStrings(entry.Options, "languages"); len(langs) > 0 {
			opts = append(opts, whisper.WithLanguages(langs))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	// LLM: openai uses the official SDK; the other backends go through the
	// any-llm multiplexer.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
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
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)
	})
}

// buildProviders instantiates the providers named in cfg. Both are optional:
// the server starts without them and the affected endpoints report the gap.
func buildProviders(cfg *config.Config, reg *config.Registry) (stt.Provider, llm.Provider, error) {
	var sttProvider stt.Provider
	var llmProvider llm.Provider

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		sttProvider = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		llmProvider = p
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	return sttProvider, llmProvider, nil
}

// reachabilityCheck returns a health check that HEADs the given base URL,
// or a zero Checker when no URL is configured (hosted APIs are assumed
// reachable, and the status endpoint reports configuration only).
func reachabilityCheck(name, baseURL string) health.Checker {
	if baseURL == "" {
		return health.Checker{}
	}
	return health.Checker{Name: name, Check: func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// optString extracts a string value from a provider Options map.
func optString(opts map[string]any, key string) string {
	if v, ok := opts[key].(string); ok {
		return v
	}
	return ""
}

// optStrings extracts a string list from a provider Options map. YAML lists
// decode as []any, so each element is asserted individually.
func optStrings(opts map[string]any, key string) []string {
	raw, ok := opts[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
