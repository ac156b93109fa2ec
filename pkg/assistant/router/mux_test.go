package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

type stubAdapter struct {
	name      string
	models    []string
	listErr   error
	lastModel string
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Generate(_ context.Context, _ []adapters.ContractMessage, model string, _ int) (adapters.Result, error) {
	s.lastModel = model
	return adapters.Result{Content: s.name, Model: model}, nil
}

func (s *stubAdapter) ListModels(context.Context) ([]string, error) {
	return s.models, s.listErr
}

func TestGenerateNeedsActive(t *testing.T) {
	m := New()
	m.Register("openai", &stubAdapter{name: "openai"}, "gpt-4o-mini")

	_, err := m.Generate(context.Background(), nil, "", 10)
	assert.ErrorIs(t, err, ErrNoActive)

	assert.ErrorIs(t, m.Activate("nope"), ErrUnknownAdapter)
	require.NoError(t, m.Activate("openai"))

	res, err := m.Generate(context.Background(), nil, "", 10)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestCatalogReportsPerAdapterErrors(t *testing.T) {
	m := New()
	m.Register("ollama", &stubAdapter{name: "ollama", models: []string{"llama3.1:8b"}}, "")
	m.Register("gemini", &stubAdapter{name: "gemini", listErr: errors.New("boom")}, "")

	cat := m.Catalog(context.Background())
	require.Len(t, cat, 2)
	assert.Equal(t, "gemini", cat[0].Provider)
	assert.Equal(t, "boom", cat[0].Err)
	assert.Equal(t, []string{"llama3.1:8b"}, cat[1].Models)
	assert.Equal(t, []string{"gemini", "ollama"}, m.Names())
}
