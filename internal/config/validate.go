package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cpsu-health/clinicai/internal/domain/model"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}
	if strings.HasPrefix(cfg.Server.APIKey, "${") {
		errs = append(errs, "server.apiKey references an unset environment variable")
	}
	if cfg.Server.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, "server.rateLimit.requestsPerMinute must not be negative")
	}

	if cfg.LLM.CallTimeout <= 0 {
		errs = append(errs, "llm.callTimeout must be positive")
	}
	errs = append(errs, validatePriority(cfg.LLM.Priority)...)

	providers := map[string]ProviderConfig{
		"cohere":     cfg.LLM.Cohere,
		"openrouter": cfg.LLM.OpenRouter,
		"groq":       cfg.LLM.Groq,
		"gemini":     cfg.LLM.Gemini,
	}
	for _, name := range sortedKeys(providers) {
		p := providers[name]
		if p.Configured() && (p.BaseURL == "" || p.Model == "") {
			errs = append(errs, fmt.Sprintf("llm.%s.baseURL and llm.%s.model are required when an apiKey is set", name, name))
		}
	}

	if cfg.Database.Driver != "sqlite" {
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite (got %q)", cfg.Database.Driver))
	}
	if cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.Channel == "" {
			errs = append(errs, "slack.channel is required when slack is enabled")
		}
	}

	if cfg.Telemetry.Enabled && (cfg.Telemetry.SampleRatio <= 0 || cfg.Telemetry.SampleRatio > 1) {
		errs = append(errs, "telemetry.sampleRatio must be in (0, 1]")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn, or error (got %q)", cfg.Logging.Level))
	}
	if f := strings.ToLower(cfg.Logging.Format); f != "json" && f != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validatePriority checks that every override names a known operation and
// lists known providers at most once each.
func validatePriority(priority map[string][]string) []string {
	var errs []string
	for _, op := range sortedKeys(priority) {
		if !knownOperation(model.Operation(op)) {
			errs = append(errs, fmt.Sprintf("llm.priority.%s is not a known operation", op))
			continue
		}
		seen := make(map[string]bool)
		for _, name := range priority[op] {
			if !model.ProviderID(name).Known() {
				errs = append(errs, fmt.Sprintf("llm.priority.%s: unknown provider %q", op, name))
			} else if seen[name] {
				errs = append(errs, fmt.Sprintf("llm.priority.%s: provider %q listed twice", op, name))
			}
			seen[name] = true
		}
	}
	return errs
}

func knownOperation(op model.Operation) bool {
	for _, known := range model.AllOperations {
		if op == known {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
