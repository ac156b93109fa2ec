package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ollama/ollama/api"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"github.com/xpanvictor/chemtalk/pkg/assistant/providers/ollama"
)

type ollamaAdapter struct {
	src ollama.ClientSource
	cfg adapters.ContractLLMCfg
}

// New returns an adapter over src; a nil source means no host is configured.
func New(src ollama.ClientSource, cfg adapters.ContractLLMCfg) adapters.ContractAdapter {
	return &ollamaAdapter{src: src, cfg: cfg}
}

func (o *ollamaAdapter) Name() string { return "ollama" }

func (o *ollamaAdapter) ConvertMsgs(msgs []adapters.ContractMessage) []api.Message {
	converted := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		converted = append(converted, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return converted
}

func (o *ollamaAdapter) client() (*api.Client, error) {
	if o.src == nil {
		return nil, fmt.Errorf("ollama: %w", adapters.ErrMissingCredentials)
	}
	c, err := o.src.Client()
	if err != nil {
		return nil, adapters.NewProviderError("ollama", 0, err.Error())
	}
	return c, nil
}

func (o *ollamaAdapter) Generate(
	ctx context.Context,
	msgs []adapters.ContractMessage,
	model string,
	maxTokens int,
) (adapters.Result, error) {
	c, err := o.client()
	if err != nil {
		return adapters.Result{}, err
	}

	stream := false
	options := map[string]interface{}{"temperature": o.cfg.Temperature}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	req := api.ChatRequest{
		Model:    model,
		Messages: o.ConvertMsgs(msgs),
		Stream:   &stream,
		Options:  options,
	}

	var (
		last   *api.ChatResponse
		status int
	)
	err = c.Chat(ollama.WithStatus(ctx, &status), &req, func(cr api.ChatResponse) error {
		last = &cr
		return nil
	})
	if err != nil {
		return adapters.Result{}, translateErr(err, status)
	}
	if last == nil {
		return adapters.Result{}, adapters.Malformed("ollama", "empty response")
	}

	return adapters.Result{
		Content: last.Message.Content,
		Model:   last.Model,
		Usage: adapters.TotalOf(adapters.Usage{
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
		}),
	}, nil
}

func (o *ollamaAdapter) ListModels(ctx context.Context) ([]string, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	var status int
	list, err := c.List(ollama.WithStatus(ctx, &status))
	if err != nil {
		return nil, translateErr(err, status)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// translateErr keeps the HTTP status even when the client only surfaced the
// body's error text.
func translateErr(err error, status int) error {
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return adapters.NewProviderError("ollama", se.StatusCode, msg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if status < http.StatusBadRequest {
		status = 0
	}
	return adapters.NewProviderError("ollama", status, err.Error())
}
