package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Slack     SlackConfig     `yaml:"slack"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	MetricsPort     int             `yaml:"metricsPort"`
	APIKey          string          `yaml:"apiKey"`
	MaxBodyBytes    int64           `yaml:"maxBodyBytes"`
	TrustProxy      bool            `yaml:"trustProxy"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

type LLMConfig struct {
	// CallTimeout bounds each individual provider call.
	CallTimeout time.Duration `yaml:"callTimeout"`
	// Priority overrides the provider order per operation, e.g.
	// chat: [groq, cohere].
	Priority map[string][]string `yaml:"priority"`
	// PlatformProbeEnv names an environment variable whose presence marks a
	// hosting region where Gemini refuses service.
	PlatformProbeEnv string `yaml:"platformProbeEnv"`

	Cohere     ProviderConfig `yaml:"cohere"`
	OpenRouter ProviderConfig `yaml:"openrouter"`
	Groq       ProviderConfig `yaml:"groq"`
	Gemini     ProviderConfig `yaml:"gemini"`
}

// ProviderConfig configures one provider. A provider without an API key, or
// whose key references an unset environment variable, is not registered.
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

func (p ProviderConfig) Configured() bool {
	return p.APIKey != "" && !strings.HasPrefix(p.APIKey, "${")
}

type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	Channel  string `yaml:"channel"`
	// AppToken enables the /clinicai slash command over Socket Mode.
	AppToken string `yaml:"appToken"`
}

// CommandsEnabled reports whether the staff slash command should run.
func (s SlackConfig) CommandsEnabled() bool {
	return s.Enabled && s.BotToken != "" && s.AppToken != "" && !strings.HasPrefix(s.AppToken, "${")
}

type DatabaseConfig struct {
	Driver string       `yaml:"driver"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"serviceName"`
	SampleRatio float64 `yaml:"sampleRatio"`
	PrettyPrint bool    `yaml:"prettyPrint"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults. Provider keys are
// left empty; deployments supply them through ${VAR} references.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			MaxBodyBytes:    1 << 20,
			RateLimit:       RateLimitConfig{RequestsPerMinute: 30},
		},
		LLM: LLMConfig{
			CallTimeout:      30 * time.Second,
			PlatformProbeEnv: "WEBSITE_SITE_NAME",
			Cohere: ProviderConfig{
				BaseURL: "https://api.cohere.com",
				Model:   "command-r-08-2024",
			},
			OpenRouter: ProviderConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "meta-llama/llama-3.2-3b-instruct:free",
			},
			Groq: ProviderConfig{
				BaseURL: "https://api.groq.com/openai/v1",
				Model:   "llama-3.1-8b-instant",
			},
			Gemini: ProviderConfig{
				BaseURL: "https://generativelanguage.googleapis.com",
				Model:   "gemini-2.5-flash-lite",
			},
		},
		Slack: SlackConfig{
			Enabled: false,
			Channel: "#clinic-alerts",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:              "/data/clinicai.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "clinicai",
			SampleRatio: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}

// PriorityOverrides converts the configured priority lists into typed form.
// Call Validate first; unknown names are passed through unchanged.
func (c *LLMConfig) PriorityOverrides() map[model.Operation][]model.ProviderID {
	out := make(map[model.Operation][]model.ProviderID, len(c.Priority))
	for op, names := range c.Priority {
		order := make([]model.ProviderID, len(names))
		for i, n := range names {
			order[i] = model.ProviderID(n)
		}
		out[model.Operation(op)] = order
	}
	return out
}

// GeminiExcluded reports whether the platform probe variable is set, meaning
// Gemini must not be registered on this host.
func (c *LLMConfig) GeminiExcluded() bool {
	if c.PlatformProbeEnv == "" {
		return false
	}
	_, set := os.LookupEnv(c.PlatformProbeEnv)
	return set
}
