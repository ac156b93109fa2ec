package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

// Base URLs of the OpenAI-compatible backends served by this adapter.
const (
	GroqBaseURL     = "https://api.groq.com/openai/v1/"
	CerebrasBaseURL = "https://api.cerebras.ai/v1/"
)

type Config struct {
	// Name reported in errors and by Name(); defaults to "openai".
	Name        string
	APIKey      string
	BaseURL     string
	Temperature float64
	HTTPClient  *http.Client
}

type openAIAdapter struct {
	name   string
	key    string
	temp   float64
	client openai.Client
}

func New(cfg Config) adapters.ContractAdapter {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retry policy belongs to callers, not the adapter
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &openAIAdapter{
		name:   name,
		key:    cfg.APIKey,
		temp:   cfg.Temperature,
		client: openai.NewClient(opts...),
	}
}

func (o *openAIAdapter) Name() string { return o.name }

func (o *openAIAdapter) Generate(
	ctx context.Context,
	msgs []adapters.ContractMessage,
	model string,
	maxTokens int,
) (adapters.Result, error) {
	if o.key == "" {
		return adapters.Result{}, fmt.Errorf("%s: %w", o.name, adapters.ErrMissingCredentials)
	}

	params := openai.ChatCompletionNewParams{
		Messages:    convertMsgs(msgs),
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(o.temp),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return adapters.Result{}, o.translateErr(err)
	}
	if len(completion.Choices) == 0 {
		return adapters.Result{}, adapters.Malformed(o.name, "no choices")
	}

	return adapters.Result{
		Content: completion.Choices[0].Message.Content,
		Model:   completion.Model,
		Usage: adapters.TotalOf(adapters.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		}),
	}, nil
}

func (o *openAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	if o.key == "" {
		return nil, fmt.Errorf("%s: %w", o.name, adapters.ErrMissingCredentials)
	}
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, o.translateErr(err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func (o *openAIAdapter) translateErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return adapters.NewProviderError(o.name, apiErr.StatusCode, msg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return adapters.NewProviderError(o.name, 0, err.Error())
}

func convertMsgs(msgs []adapters.ContractMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case adapters.ASSISTANT:
			out = append(out, openai.AssistantMessage(msg.Content))
		case adapters.SYSTEM:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
