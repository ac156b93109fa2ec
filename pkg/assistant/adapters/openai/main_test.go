package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

var msgs = []adapters.ContractMessage{
	{Role: adapters.SYSTEM, Content: "You are a chemistry tutor."},
	{Role: adapters.USER, Content: "What is water?"},
}

func TestGenerateTranslatesResponse(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Water is a polar molecule."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18}
		}`))
	}))
	defer srv.Close()

	ad := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Temperature: 0.7})
	res, err := ad.Generate(context.Background(), msgs, "gpt-4o-mini", 1000)
	require.NoError(t, err)

	assert.Equal(t, "Water is a polar molecule.", res.Content)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, adapters.Usage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18}, res.Usage)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 1000, body["max_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestGenerateSurfacesHTTPFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	ad := New(Config{Name: "groq", APIKey: "bad", BaseURL: srv.URL + "/v1/"})
	_, err := ad.Generate(context.Background(), msgs, "llama-3.1-8b-instant", 100)
	require.Error(t, err)

	var pe *adapters.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "groq", pe.Provider)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.NotEmpty(t, pe.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "retries must be disabled")
}

func TestGenerateWithoutKey(t *testing.T) {
	ad := New(Config{})
	_, err := ad.Generate(context.Background(), msgs, "gpt-4o-mini", 10)
	assert.ErrorIs(t, err, adapters.ErrMissingCredentials)

	_, err = ad.ListModels(context.Background())
	assert.ErrorIs(t, err, adapters.ErrMissingCredentials)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/models"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": [
			{"id": "gpt-4o-mini", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "gpt-4o", "object": "model", "created": 1, "owned_by": "openai"}]}`))
	}))
	defer srv.Close()

	ad := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	names, err := ad.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o"}, names)
}
