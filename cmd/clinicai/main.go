package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/cpsu-health/clinicai/internal/adapter/inbound/httpapi"
	"github.com/cpsu-health/clinicai/internal/adapter/inbound/slackbot"
	"github.com/cpsu-health/clinicai/internal/adapter/outbound/llm/cohere"
	"github.com/cpsu-health/clinicai/internal/adapter/outbound/llm/gemini"
	"github.com/cpsu-health/clinicai/internal/adapter/outbound/llm/openaicompat"
	"github.com/cpsu-health/clinicai/internal/adapter/outbound/llm/transport"
	"github.com/cpsu-health/clinicai/internal/adapter/outbound/notification"
	slacknotifier "github.com/cpsu-health/clinicai/internal/adapter/outbound/notification/slack"
	"github.com/cpsu-health/clinicai/internal/adapter/outbound/persistence/sqlite"
	"github.com/cpsu-health/clinicai/internal/config"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
	"github.com/cpsu-health/clinicai/internal/domain/prompt"
	"github.com/cpsu-health/clinicai/internal/domain/service"
	"github.com/cpsu-health/clinicai/internal/telemetry"
	"github.com/cpsu-health/clinicai/pkg/health"
	"github.com/cpsu-health/clinicai/pkg/version"
)

func main() {
	configPath := flag.String("config", envOr("CLINICAI_CONFIG", "configs/config.yaml"), "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Existing environment variables win over the dotenv file.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Error("clinicai exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("clinicai stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := telemetry.InitTracer(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
		PrettyPrint: cfg.Telemetry.PrettyPrint,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// --- Database ---
	store, err := sqlite.NewStore(sqlite.Config{
		Path:              cfg.Database.SQLite.Path,
		MaxOpenConns:      cfg.Database.SQLite.MaxOpenConns,
		PragmaJournalMode: cfg.Database.SQLite.PragmaJournalMode,
		PragmaBusyTimeout: cfg.Database.SQLite.PragmaBusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer store.Close()

	// --- Repositories ---
	usageRepo := sqlite.NewUsageRepo(store)
	repos := service.ChatRepositories{
		Sessions:   sqlite.NewSessionRepo(store),
		TurnStates: sqlite.NewTurnStateRepo(store),
		Records:    sqlite.NewRecordRepo(store),
	}

	// --- LLM providers ---
	clients, err := buildProviders(cfg.LLM, logger)
	if err != nil {
		return err
	}
	providers, err := service.NewProviders(clients...)
	if err != nil {
		return fmt.Errorf("register providers: %w", err)
	}
	prompts, err := prompt.NewBuilder()
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}
	assistant := service.NewAssistant(providers, prompts, service.AssistantConfig{
		CallTimeout: cfg.LLM.CallTimeout,
		Priority:    service.Priority(cfg.LLM.PriorityOverrides()),
	}, usageRepo, logger)

	// --- Notifier ---
	var notifier outbound.Notifier = notification.NewNoopNotifier(logger)
	if cfg.Slack.Enabled {
		notifier = slacknotifier.NewNotifier(slacknotifier.Config{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Slack.Channel,
		})
		logger.Info("slack notifications enabled", "channel", cfg.Slack.Channel)
	}

	chat := service.NewChatService(assistant, repos, notifier, logger)

	// --- HTTP API ---
	handler := httpapi.NewHandler(chat, assistant, assistant, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		APIKey:            cfg.Server.APIKey,
		RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
		TrustProxy:        cfg.Server.TrustProxy,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
	}, handler, logger)

	// --- Health checker ---
	checker := health.NewChecker()
	checker.Register("database", store.Ping)
	checker.Register("providers", func(context.Context) error {
		for _, p := range assistant.Providers() {
			if p.Available {
				return nil
			}
		}
		return errors.New("no language model provider available")
	})

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	if cfg.Server.MetricsPort != 0 {
		probes := httpapi.NewProbeServer(cfg.Server.MetricsPort, checker.LivenessHandler(), checker.ReadinessHandler())
		g.Go(func() error {
			return httpapi.ServeProbes(gCtx, probes, logger)
		})
	}

	if cfg.Slack.CommandsEnabled() {
		bot := slackbot.NewBot(slackbot.Config{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
		}, assistant, logger)
		g.Go(func() error {
			return bot.Start(gCtx)
		})
	} else {
		logger.Info("slack slash command disabled or app token not configured")
	}

	logger.Info("clinicai started",
		"version", version.String(),
		"port", cfg.Server.Port,
		"providers", len(clients),
	)

	return g.Wait()
}

// buildProviders creates a completion client for every provider with an API
// key. All clients share one instrumented HTTP client.
func buildProviders(cfg config.LLMConfig, logger *slog.Logger) ([]outbound.CompletionClient, error) {
	httpClient := transport.NewHTTPClient(cfg.CallTimeout)
	var clients []outbound.CompletionClient

	if cfg.Cohere.Configured() {
		c, err := cohere.NewClient(cohere.Config{
			BaseURL: cfg.Cohere.BaseURL,
			APIKey:  cfg.Cohere.APIKey,
			Model:   cfg.Cohere.Model,
		}, httpClient)
		if err != nil {
			return nil, fmt.Errorf("cohere client: %w", err)
		}
		clients = append(clients, c)
	}

	if cfg.OpenRouter.Configured() {
		orCfg := openaicompat.OpenRouterConfig(cfg.OpenRouter.APIKey)
		orCfg.BaseURL = cfg.OpenRouter.BaseURL
		orCfg.Model = cfg.OpenRouter.Model
		c, err := openaicompat.NewClient(orCfg, httpClient)
		if err != nil {
			return nil, fmt.Errorf("openrouter client: %w", err)
		}
		clients = append(clients, c)
	}

	if cfg.Groq.Configured() {
		groqCfg := openaicompat.GroqConfig(cfg.Groq.APIKey)
		groqCfg.BaseURL = cfg.Groq.BaseURL
		groqCfg.Model = cfg.Groq.Model
		c, err := openaicompat.NewClient(groqCfg, httpClient)
		if err != nil {
			return nil, fmt.Errorf("groq client: %w", err)
		}
		clients = append(clients, c)
	}

	switch {
	case !cfg.Gemini.Configured():
	case cfg.GeminiExcluded():
		logger.Warn("gemini not registered on this platform", "probe_env", cfg.PlatformProbeEnv)
	default:
		c, err := gemini.NewClient(gemini.Config{
			BaseURL: cfg.Gemini.BaseURL,
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
		}, httpClient)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		clients = append(clients, c)
	}

	names := make([]string, len(clients))
	for i, c := range clients {
		names[i] = string(c.ID())
	}
	if len(clients) == 0 {
		logger.Warn("no language model provider configured; every operation will use its fallback")
	} else {
		logger.Info("language model providers registered", "providers", strings.Join(names, ","))
	}
	return clients, nil
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
