package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

func TestGenerateLiftsSystemPrompt(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"claude-3-5-haiku-latest",
			"content":[{"type":"text","text":"Sodium chloride is ionic."}],
			"usage":{"input_tokens":20,"output_tokens":5}}`))
	}))
	defer srv.Close()

	ad := New(Config{APIKey: "k", BaseURL: srv.URL, Temperature: 0.2})
	res, err := ad.Generate(context.Background(), []adapters.ContractMessage{
		{Role: adapters.SYSTEM, Content: "tutor"},
		{Role: adapters.USER, Content: "NaCl?"},
	}, "claude-3-5-haiku-latest", 300)
	require.NoError(t, err)

	assert.Equal(t, "tutor", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, "Sodium chloride is ionic.", res.Content)
	assert.Equal(t, adapters.Usage{PromptTokens: 20, CompletionTokens: 5, TotalTokens: 25}, res.Usage)
}

func TestGenerateErrorCarriesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := New(Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), nil, "m", 10)
	var pe *adapters.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, "slow down", pe.Message)
}

func TestMissingKey(t *testing.T) {
	_, err := New(Config{}).Generate(context.Background(), nil, "m", 10)
	assert.ErrorIs(t, err, adapters.ErrMissingCredentials)
}
