package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("expected server.port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected server.shutdownTimeout 15s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("expected rateLimit 30, got %d", cfg.Server.RateLimit.RequestsPerMinute)
	}

	// LLM defaults
	if cfg.LLM.CallTimeout != 30*time.Second {
		t.Errorf("expected llm.callTimeout 30s, got %v", cfg.LLM.CallTimeout)
	}
	if cfg.LLM.PlatformProbeEnv != "WEBSITE_SITE_NAME" {
		t.Errorf("expected platformProbeEnv WEBSITE_SITE_NAME, got %q", cfg.LLM.PlatformProbeEnv)
	}
	if cfg.LLM.Gemini.Model != "gemini-2.5-flash-lite" {
		t.Errorf("expected gemini model gemini-2.5-flash-lite, got %q", cfg.LLM.Gemini.Model)
	}
	if cfg.LLM.Cohere.Configured() {
		t.Error("expected no provider configured by default")
	}

	// Database defaults
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected database.driver sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Database.SQLite.PragmaJournalMode != "wal" {
		t.Errorf("expected journal mode wal, got %q", cfg.Database.SQLite.PragmaJournalMode)
	}

	if cfg.Slack.Enabled {
		t.Error("expected slack.enabled false")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected logging.format json, got %q", cfg.Logging.Format)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	yaml := `
server:
  port: 9000
  metricsPort: 9091
  apiKey: staff-secret
llm:
  callTimeout: 10s
  priority:
    chat: [groq, cohere]
  groq:
    apiKey: gsk-test
database:
  driver: sqlite
  sqlite:
    path: "/tmp/test.db"
`
	f := writeTempYAML(t, yaml)

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "staff-secret" {
		t.Errorf("expected apiKey staff-secret, got %q", cfg.Server.APIKey)
	}
	if cfg.LLM.CallTimeout != 10*time.Second {
		t.Errorf("expected callTimeout 10s, got %v", cfg.LLM.CallTimeout)
	}
	if !cfg.LLM.Groq.Configured() {
		t.Error("expected groq to be configured")
	}
	// Defaults still apply to unset provider fields.
	if cfg.LLM.Groq.Model != "llama-3.1-8b-instant" {
		t.Errorf("expected default groq model, got %q", cfg.LLM.Groq.Model)
	}

	overrides := cfg.LLM.PriorityOverrides()
	chat := overrides[model.OperationChat]
	if len(chat) != 2 || chat[0] != model.ProviderGroq || chat[1] != model.ProviderCohere {
		t.Errorf("unexpected chat priority: %v", chat)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	f := writeTempYAML(t, ":::invalid yaml:::")
	_, err := Load(f)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_TOKEN", "secret-token-123")
	t.Setenv("TEST_PORT", "9999")

	input := "token: ${TEST_TOKEN}\nport: ${TEST_PORT}\nmissing: ${MISSING_VAR}"
	result := expandEnvVars(input)

	if result != "token: secret-token-123\nport: 9999\nmissing: ${MISSING_VAR}" {
		t.Errorf("unexpected expansion result:\n%s", result)
	}
}

func TestExpandEnvVars_InLoad(t *testing.T) {
	t.Setenv("CLINICAI_COHERE_KEY", "co-from-env")

	yaml := `
llm:
  cohere:
    apiKey: "${CLINICAI_COHERE_KEY}"
  gemini:
    apiKey: "${CLINICAI_UNSET_GEMINI_KEY}"
`
	f := writeTempYAML(t, yaml)

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LLM.Cohere.APIKey != "co-from-env" {
		t.Errorf("expected env-expanded key, got %q", cfg.LLM.Cohere.APIKey)
	}
	if cfg.LLM.Gemini.Configured() {
		t.Error("an unresolved key reference must not configure the provider")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, 70000} {
		cfg := DefaultConfig()
		cfg.Server.Port = port
		if err := Validate(cfg); err == nil {
			t.Errorf("expected validation error for port %d", port)
		}
	}
}

func TestValidate_MetricsPortCollision(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.MetricsPort = cfg.Server.Port
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for shared ports")
	}
}

func TestValidate_Priority(t *testing.T) {
	tests := []struct {
		name     string
		priority map[string][]string
		wantErr  string
	}{
		{"valid", map[string][]string{"validate": {"gemini", "groq"}}, ""},
		{"unknown operation", map[string][]string{"triage": {"groq"}}, "not a known operation"},
		{"unknown provider", map[string][]string{"chat": {"mistral"}}, `unknown provider "mistral"`},
		{"duplicate provider", map[string][]string{"chat": {"groq", "groq"}}, "listed twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LLM.Priority = tt.priority
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ProviderRequiresModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.OpenRouter.APIKey = "or-key"
	cfg.LLM.OpenRouter.Model = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for provider without model")
	}
}

func TestValidate_InvalidDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "postgres"
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for unsupported driver")
	}
}

func TestValidate_SlackRequiresToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Slack.Enabled = true
	cfg.Slack.BotToken = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for slack without token")
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "logging.level") || !strings.Contains(err.Error(), "logging.format") {
		t.Errorf("expected both logging errors collected, got %v", err)
	}
}

func TestValidate_TelemetrySampleRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRatio = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for zero sample ratio")
	}
}

func TestGeminiExcluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.PlatformProbeEnv = "CLINICAI_TEST_PROBE"
	if cfg.LLM.GeminiExcluded() {
		t.Error("expected gemini allowed when probe unset")
	}
	t.Setenv("CLINICAI_TEST_PROBE", "clinic-prod")
	if !cfg.LLM.GeminiExcluded() {
		t.Error("expected gemini excluded when probe set")
	}
	cfg.LLM.PlatformProbeEnv = ""
	if cfg.LLM.GeminiExcluded() {
		t.Error("empty probe name must never exclude gemini")
	}
}

// writeTempYAML writes content to a temp file and returns its path.
func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	f := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(f, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp yaml: %v", err)
	}
	return f
}

func TestSlackCommandsEnabled(t *testing.T) {
	s := SlackConfig{Enabled: true, BotToken: "xoxb-1", AppToken: "xapp-1"}
	if !s.CommandsEnabled() {
		t.Error("expected commands enabled with both tokens")
	}
	s.AppToken = "${SLACK_APP_TOKEN}"
	if s.CommandsEnabled() {
		t.Error("unresolved app token must disable commands")
	}
	s.AppToken = "xapp-1"
	s.Enabled = false
	if s.CommandsEnabled() {
		t.Error("disabled slack must disable commands")
	}
}

func TestValidate_UnresolvedAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.APIKey = "${CLINICAI_API_KEY}"
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for unresolved server api key")
	}
}
