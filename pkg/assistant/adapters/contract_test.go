package adapters

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSystem(t *testing.T) {
	sys, rest := SplitSystem([]ContractMessage{
		{Role: SYSTEM, Content: "be brief"},
		{Role: USER, Content: "hi"},
		{Role: ASSISTANT, Content: "hello"},
	})
	assert.Equal(t, "be brief", sys)
	assert.Len(t, rest, 2)
	assert.Equal(t, USER, rest[0].Role)
}

func TestProviderErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("generate: %w", NewProviderError("openai", 429, "rate limited"))

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, 429, pe.StatusCode)
	assert.Equal(t, "openai: http 429: rate limited", pe.Error())
	assert.True(t, IsProviderError(err))
	assert.False(t, IsProviderError(ErrMissingCredentials))
}

func TestTotalOf(t *testing.T) {
	assert.Equal(t, 7, TotalOf(Usage{PromptTokens: 3, CompletionTokens: 4}).TotalTokens)
	assert.Equal(t, 9, TotalOf(Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 9}).TotalTokens)
}
