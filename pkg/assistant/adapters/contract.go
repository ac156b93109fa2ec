package adapters

import (
	"context"
	"strings"
)

// ContractAdapter is the request/response contract over one text-generation
// backend. msgs starts with the system prompt.
type ContractAdapter interface {
	Name() string
	Generate(ctx context.Context, msgs []ContractMessage, model string, maxTokens int) (Result, error)
	ListModels(ctx context.Context) ([]string, error)
}

// SplitSystem lifts system messages out of msgs for backends that take the
// system prompt as a separate field.
func SplitSystem(msgs []ContractMessage) (string, []ContractMessage) {
	var sys []string
	rest := make([]ContractMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == SYSTEM {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n"), rest
}

func TotalOf(u Usage) Usage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}
