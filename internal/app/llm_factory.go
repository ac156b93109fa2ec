package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xpanvictor/chemtalk/internal/config"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters/anthropic"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters/gemini"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters/ollama"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters/openai"
	gmp "github.com/xpanvictor/chemtalk/pkg/assistant/providers/gemini"
	olp "github.com/xpanvictor/chemtalk/pkg/assistant/providers/ollama"
	"github.com/xpanvictor/chemtalk/pkg/assistant/router"
)

const defaultHTTPTimeout = 60 * time.Second

// LLMRouterFactory registers an adapter for every provider that has a
// credential and activates the one the resolver picked.
type LLMRouterFactory struct {
	env      config.Environment
	resolver *config.Resolver
	settings *config.Settings
	logger   *Logger.Logger
}

func NewLLMRouterFactory(
	env config.Environment,
	resolver *config.Resolver,
	settings *config.Settings,
	logger *Logger.Logger,
) *LLMRouterFactory {
	return &LLMRouterFactory{
		env:      env,
		resolver: resolver,
		settings: settings,
		logger:   Logger.OrNop(logger).Named("llm"),
	}
}

// CreateRouter never fails for lack of providers: an empty router leaves the
// orchestrator on fallback answers.
func (f *LLMRouterFactory) CreateRouter(ctx context.Context) (*router.Mux, error) {
	mux := router.New()

	for _, src := range config.Precedence {
		key, ok := f.env.Lookup(src.KeyVar)
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		pc := config.ProviderConfig{
			ProviderID:  src.ProviderID,
			APIKey:      strings.TrimSpace(key),
			Model:       src.DefaultModel,
			MaxTokens:   config.DefaultMaxTokens,
			Temperature: config.DefaultTemperature,
			BaseURL:     src.BaseURL,
		}
		if err := f.register(ctx, mux, pc); err != nil {
			f.logger.Warnf("skipping %s: %v", src.ProviderID, err)
		}
	}

	// configured ollama hosts are available even without OLLAMA_HOST
	if _, ok := mux.Get("ollama"); !ok && len(f.settings.Ollama.URLs) > 0 {
		pc := config.ProviderConfig{ProviderID: "ollama", Model: "llama3.1:8b", Temperature: config.DefaultTemperature}
		if err := f.register(ctx, mux, pc); err != nil {
			f.logger.Warnf("skipping ollama farm: %v", err)
		}
	}

	if active := f.resolver.Current(); active != nil {
		if err := f.Apply(ctx, mux, *active); err != nil {
			return nil, err
		}
	}

	f.logger.Infof("LLM router created with adapters %v", mux.Names())
	return mux, nil
}

// Apply makes cfg the active provider config and points the router at an
// adapter built from it.
func (f *LLMRouterFactory) Apply(ctx context.Context, mux *router.Mux, cfg config.ProviderConfig) error {
	if err := f.resolver.Update(cfg); err != nil {
		return err
	}
	active := f.resolver.Current()
	if err := f.register(ctx, mux, *active); err != nil {
		return fmt.Errorf("failed to create %s adapter: %w", active.ProviderID, err)
	}
	return mux.Activate(active.ProviderID)
}

func (f *LLMRouterFactory) register(ctx context.Context, mux *router.Mux, pc config.ProviderConfig) error {
	ad, err := f.build(ctx, pc)
	if err != nil {
		return err
	}
	mux.Register(pc.ProviderID, ad, pc.Model)
	return nil
}

func (f *LLMRouterFactory) build(ctx context.Context, pc config.ProviderConfig) (adapters.ContractAdapter, error) {
	switch pc.ProviderID {
	case "openai", "groq", "cerebras":
		return openai.New(openai.Config{
			Name:        pc.ProviderID,
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Temperature: pc.Temperature,
		}), nil
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Temperature: pc.Temperature,
		}), nil
	case "gemini":
		provider, err := gmp.New(ctx, pc.APIKey)
		if err != nil {
			return nil, err
		}
		return gemini.New(provider, adapters.ContractLLMCfg{
			Temperature: pc.Temperature,
			HTTPTimeout: defaultHTTPTimeout,
		}), nil
	case "ollama":
		var hosts []string
		if pc.APIKey != "" {
			hosts = append(hosts, pc.APIKey)
		}
		hosts = append(hosts, f.settings.Ollama.URLs...)
		return ollama.New(olp.New(hosts, f.logger), adapters.ContractLLMCfg{
			Temperature: pc.Temperature,
			HTTPTimeout: defaultHTTPTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", pc.ProviderID)
	}
}
