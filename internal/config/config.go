// Package config loads and validates the gateway's static configuration.
// Configuration is established once at startup and read-only afterwards;
// request handling never mutates it.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/modelrelay/modelrelay/internal/relay"
)

// envPrefix namespaces the gateway's own environment variables, e.g.
// MODELRELAY_SERVER__LISTEN. A handful of legacy unprefixed names
// (BIG_MODEL, OPENAI_API_KEY, ...) are also honored for drop-in
// compatibility with existing deployments.
const envPrefix = "MODELRELAY_"

// Server holds the HTTP listener settings.
type Server struct {
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	// MaxBodyBytes bounds inbound request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gt=0"`
}

// Log holds logging settings.
type Log struct {
	Level  string `koanf:"level" validate:"required"`
	Format string `koanf:"format" validate:"oneof=text json pretty"`
}

// Routing holds the model alias tables.
type Routing struct {
	PreferredProvider string   `koanf:"preferred_provider" validate:"oneof=openai google"`
	BigModel          string   `koanf:"big_model" validate:"required"`
	SmallModel        string   `koanf:"small_model" validate:"required"`
	OpenAIModels      []string `koanf:"openai_models"`
	GeminiModels      []string `koanf:"gemini_models"`
	GitHubModels      []string `koanf:"github_models"`
}

// Provider holds one upstream provider's connection settings.
type Provider struct {
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	APIKey  string `koanf:"api_key"`
}

// Config is the root configuration.
type Config struct {
	Server    Server              `koanf:"server"`
	Log       Log                 `koanf:"log"`
	Routing   Routing             `koanf:"routing"`
	Providers map[string]Provider `koanf:"providers" validate:"required"`
}

// RoutingTable maps the configuration onto the router's read-only table.
func (c *Config) RoutingTable() relay.Routing {
	return relay.Routing{
		PreferredProvider: c.Routing.PreferredProvider,
		BigModel:          c.Routing.BigModel,
		SmallModel:        c.Routing.SmallModel,
		OpenAIModels:      c.Routing.OpenAIModels,
		GeminiModels:      c.Routing.GeminiModels,
		GitHubModels:      c.Routing.GitHubModels,
	}
}

// defaults mirror the upstream model lists the gateway ships with; a config
// file or environment overrides any of them.
func defaults() map[string]any {
	return map[string]any{
		"server.listen":              "127.0.0.1:8082",
		"server.max_body_bytes":      int64(10 << 20),
		"log.level":                  "info",
		"log.format":                 "text",
		"routing.preferred_provider": "openai",
		"routing.big_model":          "gpt-4.1",
		"routing.small_model":        "gpt-4.1-mini",
		"routing.openai_models": []string{
			"o3-mini", "o1", "o1-mini", "o1-pro",
			"gpt-4.5-preview", "gpt-4o", "gpt-4o-audio-preview",
			"chatgpt-4o-latest", "gpt-4o-mini", "gpt-4o-mini-audio-preview",
			"gpt-4.1", "gpt-4.1-mini",
		},
		"routing.gemini_models": []string{
			"gemini-2.5-pro-preview-03-25", "gemini-2.0-flash",
		},
		"routing.github_models": []string{
			"copilot-gpt-4", "copilot-gpt-3.5-turbo",
		},
		"providers.openai.base_url":    "https://api.openai.com/v1",
		"providers.gemini.base_url":    "https://generativelanguage.googleapis.com/v1beta/openai",
		"providers.github.base_url":    "https://api.githubcopilot.com",
		"providers.anthropic.base_url": "https://api.anthropic.com/v1",
	}
}

// legacyEnvKeys maps unprefixed environment names to config keys.
var legacyEnvKeys = map[string]string{
	"PREFERRED_PROVIDER": "routing.preferred_provider",
	"BIG_MODEL":          "routing.big_model",
	"SMALL_MODEL":        "routing.small_model",
	"OPENAI_API_KEY":     "providers.openai.api_key",
	"GEMINI_API_KEY":     "providers.gemini.api_key",
	"ANTHROPIC_API_KEY":  "providers.anthropic.api_key",
	"GITHUB_TOKEN":       "providers.github.api_key",
}

// Load reads configuration in precedence order: defaults, optional TOML file,
// legacy environment names, prefixed environment names. The result is
// validated before being returned.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if mapped, ok := legacyEnvKeys[key]; ok {
				return mapped, value
			}
			return "", nil
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load legacy environment: %w", err)
	}

	// Double underscore separates nesting levels so that keys containing
	// underscores survive, e.g. MODELRELAY_SERVER__MAX_BODY_BYTES.
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
