package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

func TestCurrentPromptIsSystemMessage(t *testing.T) {
	msg := DEFAULT_PROMPT.GetCurrentPrompt().ToMessage()
	assert.Equal(t, adapters.SYSTEM, msg.Role)
	assert.Contains(t, msg.Content, "ChemTalk")

	_, ok := DEFAULT_PROMPT.GetVersion(0.1)
	assert.True(t, ok)
}
