package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"github.com/xpanvictor/chemtalk/pkg/assistant/providers/gemini"
	"google.golang.org/api/googleapi"
)

type geminiAdapter struct {
	gp  *gemini.GeminiProvider
	cfg adapters.ContractLLMCfg
}

// New wraps a provider; a nil provider means no key was configured.
func New(provider *gemini.GeminiProvider, cfg adapters.ContractLLMCfg) adapters.ContractAdapter {
	return &geminiAdapter{gp: provider, cfg: cfg}
}

func (g *geminiAdapter) Name() string { return "gemini" }

func (g *geminiAdapter) Generate(
	ctx context.Context,
	msgs []adapters.ContractMessage,
	model string,
	maxTokens int,
) (adapters.Result, error) {
	if g.gp == nil {
		return adapters.Result{}, fmt.Errorf("gemini: %w", adapters.ErrMissingCredentials)
	}

	system, rest := adapters.SplitSystem(msgs)
	if len(rest) == 0 {
		return adapters.Result{}, fmt.Errorf("gemini: no message to send")
	}

	gm := g.gp.GetModel(model)
	if maxTokens > 0 {
		gm.SetMaxOutputTokens(int32(maxTokens))
	}
	gm.SetTemperature(float32(g.cfg.Temperature))
	if system != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	cs := gm.StartChat()
	cs.History = ToHistory(rest[:len(rest)-1])
	resp, err := cs.SendMessage(ctx, genai.Text(rest[len(rest)-1].Content))
	if err != nil {
		return adapters.Result{}, translateErr(err)
	}

	text := extractText(resp)
	if text == "" {
		return adapters.Result{}, adapters.Malformed("gemini", "no text candidates")
	}

	out := adapters.Result{Content: text, Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = adapters.TotalOf(adapters.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		})
	}
	return out, nil
}

func (g *geminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	if g.gp == nil {
		return nil, fmt.Errorf("gemini: %w", adapters.ErrMissingCredentials)
	}
	names, err := g.gp.ListModels(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	return names, nil
}

// ToHistory maps turns to genai contents; the assistant role is "model" there.
func ToHistory(msgs []adapters.ContractMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == adapters.ASSISTANT {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}

func translateErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return adapters.NewProviderError("gemini", gerr.Code, gerr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return adapters.NewProviderError("gemini", 0, err.Error())
}
