package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// The messages API has no listing call we rely on; the catalog is static.
var catalog = []string{
	"claude-3-5-haiku-latest",
	"claude-3-5-sonnet-latest",
	"claude-3-7-sonnet-latest",
	"claude-3-opus-latest",
}

type Config struct {
	APIKey      string
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

type anthropicAdapter struct {
	cfg  Config
	http *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func New(cfg Config) adapters.ContractAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &anthropicAdapter{cfg: cfg, http: client}
}

func (a *anthropicAdapter) Name() string { return "anthropic" }

func (a *anthropicAdapter) Generate(
	ctx context.Context,
	msgs []adapters.ContractMessage,
	model string,
	maxTokens int,
) (adapters.Result, error) {
	if a.cfg.APIKey == "" {
		return adapters.Result{}, fmt.Errorf("anthropic: %w", adapters.ErrMissingCredentials)
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	system, rest := adapters.SplitSystem(msgs)
	payload := request{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: a.cfg.Temperature,
	}
	for _, m := range rest {
		payload.Messages = append(payload.Messages, message{Role: string(m.Role), Content: m.Content})
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return adapters.Result{}, fmt.Errorf("anthropic: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(a.cfg.BaseURL, "/")+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return adapters.Result{}, err
	}
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return adapters.Result{}, adapters.NewProviderError("anthropic", 0, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapters.Result{}, adapters.NewProviderError("anthropic", resp.StatusCode, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		msg := strings.TrimSpace(string(raw))
		if sonic.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		return adapters.Result{}, adapters.NewProviderError("anthropic", resp.StatusCode, msg)
	}

	var decoded response
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return adapters.Result{}, adapters.Malformed("anthropic", err.Error())
	}
	var text strings.Builder
	for _, c := range decoded.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if len(decoded.Content) == 0 {
		return adapters.Result{}, adapters.Malformed("anthropic", "empty content")
	}

	return adapters.Result{
		Content: text.String(),
		Model:   decoded.Model,
		Usage: adapters.TotalOf(adapters.Usage{
			PromptTokens:     decoded.Usage.InputTokens,
			CompletionTokens: decoded.Usage.OutputTokens,
		}),
	}, nil
}

func (a *anthropicAdapter) ListModels(context.Context) ([]string, error) {
	if a.cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", adapters.ErrMissingCredentials)
	}
	return append([]string(nil), catalog...), nil
}
