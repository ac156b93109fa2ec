package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
	SynthesisKeyVar    = "ELEVENLABS_API_KEY"
)

// ProviderConfig is the single active provider of the process. For ollama the
// credential in APIKey is the host URL.
type ProviderConfig struct {
	ProviderID  string  `json:"provider_id"`
	APIKey      string  `json:"-"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	BaseURL     string  `json:"base_url,omitempty"`
}

// CredentialSource is one entry of the precedence list. Prefix names the
// optional <PREFIX>_MODEL, <PREFIX>_MAX_TOKENS and <PREFIX>_TEMPERATURE vars.
type CredentialSource struct {
	ProviderID   string
	KeyVar       string
	Prefix       string
	DefaultModel string
	BaseURL      string
}

// Precedence is checked top to bottom and the first present credential wins.
// Reordering it changes which backend a deployment talks to.
var Precedence = []CredentialSource{
	{ProviderID: "openai", KeyVar: "OPENAI_API_KEY", Prefix: "OPENAI", DefaultModel: "gpt-4o-mini"},
	{ProviderID: "anthropic", KeyVar: "ANTHROPIC_API_KEY", Prefix: "ANTHROPIC", DefaultModel: "claude-3-5-haiku-latest"},
	{ProviderID: "gemini", KeyVar: "GEMINI_API_KEY", Prefix: "GEMINI", DefaultModel: "gemini-1.5-flash"},
	{ProviderID: "groq", KeyVar: "GROQ_API_KEY", Prefix: "GROQ", DefaultModel: "llama-3.1-8b-instant", BaseURL: "https://api.groq.com/openai/v1/"},
	{ProviderID: "cerebras", KeyVar: "CEREBRAS_API_KEY", Prefix: "CEREBRAS", DefaultModel: "llama3.1-8b", BaseURL: "https://api.cerebras.ai/v1/"},
	{ProviderID: "ollama", KeyVar: "OLLAMA_HOST", Prefix: "OLLAMA", DefaultModel: "llama3.1:8b"},
}

type Environment interface {
	Lookup(key string) (string, bool)
}

// MapEnv is an in-memory Environment.
type MapEnv map[string]string

func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ViperEnv reads through viper, so .env files, config keys and real
// environment variables all count.
type ViperEnv struct {
	V *viper.Viper
}

func (e ViperEnv) Lookup(key string) (string, bool) {
	if !e.V.IsSet(key) {
		return "", false
	}
	return e.V.GetString(key), true
}

type Resolver struct {
	mu      sync.RWMutex
	sources []CredentialSource
	logger  *Logger.Logger
	active  *ProviderConfig
}

func NewResolver(logger *Logger.Logger, sources ...CredentialSource) *Resolver {
	if len(sources) == 0 {
		sources = Precedence
	}
	return &Resolver{sources: sources, logger: Logger.OrNop(logger)}
}

// Resolve picks the first source with a present, non-empty credential and
// makes it active. It returns nil when none is found.
func (r *Resolver) Resolve(env Environment) *ProviderConfig {
	for _, src := range r.sources {
		key, ok := env.Lookup(src.KeyVar)
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		cfg := ProviderConfig{
			ProviderID:  src.ProviderID,
			APIKey:      strings.TrimSpace(key),
			Model:       src.DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			BaseURL:     src.BaseURL,
		}
		if m, ok := env.Lookup(src.Prefix + "_MODEL"); ok && strings.TrimSpace(m) != "" {
			cfg.Model = strings.TrimSpace(m)
		}
		if raw, ok := env.Lookup(src.Prefix + "_MAX_TOKENS"); ok && raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				cfg.MaxTokens = n
			} else {
				r.logger.Warnf("config: ignoring %s_MAX_TOKENS=%q", src.Prefix, raw)
			}
		}
		if raw, ok := env.Lookup(src.Prefix + "_TEMPERATURE"); ok && raw != "" {
			if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 {
				cfg.Temperature = f
			} else {
				r.logger.Warnf("config: ignoring %s_TEMPERATURE=%q", src.Prefix, raw)
			}
		}

		r.mu.Lock()
		r.active = &cfg
		r.mu.Unlock()
		r.logger.Infof("config: using provider %s (model %s)", cfg.ProviderID, cfg.Model)
		out := cfg
		return &out
	}

	r.logger.Warnf("config: no provider credentials found, answers will use fallback rules")
	return nil
}

// Current returns a copy of the active config, or nil.
func (r *Resolver) Current() *ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil
	}
	out := *r.active
	return &out
}

// Update is the only way to change the active config after Resolve.
func (r *Resolver) Update(cfg ProviderConfig) error {
	var src *CredentialSource
	for i := range r.sources {
		if r.sources[i].ProviderID == cfg.ProviderID {
			src = &r.sources[i]
			break
		}
	}
	if src == nil {
		return fmt.Errorf("config: unknown provider %q", cfg.ProviderID)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("config: provider %s has no credential", cfg.ProviderID)
	}
	if cfg.Model == "" {
		cfg.Model = src.DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = src.BaseURL
	}

	r.mu.Lock()
	r.active = &cfg
	r.mu.Unlock()
	r.logger.Infof("config: provider updated to %s (model %s)", cfg.ProviderID, cfg.Model)
	return nil
}
