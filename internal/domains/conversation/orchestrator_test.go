package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/internal/config"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"github.com/xpanvictor/chemtalk/pkg/cache"
)

type fakeGen struct {
	mu    sync.Mutex
	calls int
	last  []adapters.ContractMessage
	err   error
	reply string
}

func (f *fakeGen) Generate(_ context.Context, msgs []adapters.ContractMessage, model string, _ int) (adapters.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = msgs
	if f.err != nil {
		return adapters.Result{}, f.err
	}
	reply := f.reply
	if reply == "" {
		reply = fmt.Sprintf("answer %d", f.calls)
	}
	return adapters.Result{Content: reply, Model: model, Usage: adapters.Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8}}, nil
}

type staticProvider struct{ cfg *config.ProviderConfig }

func (s staticProvider) Current() *config.ProviderConfig { return s.cfg }

var openaiCfg = &config.ProviderConfig{ProviderID: "openai", APIKey: "k", Model: "gpt-4o-mini", MaxTokens: 1000}

func newOrch(gen Generator, pc *config.ProviderConfig, opts OrchestratorOptions) *Orchestrator {
	return NewOrchestrator(gen, staticProvider{pc}, NewWindow(20), cache.NewFIFO[types.AnswerResult](100), NewFallback(), nil, opts)
}

func TestAnswerSecondCallIsCached(t *testing.T) {
	gen := &fakeGen{}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	ctx := context.Background()

	first := o.Answer(ctx, "What is benzene?", &types.ChatContext{Topic: "aromatics"}, "c1")
	second := o.Answer(ctx, "What is benzene?", &types.ChatContext{Topic: "aromatics"}, "c1")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, types.OriginProvider, first.Origin)
	assert.Equal(t, ProviderConfidence, first.Confidence)
	require.NotNil(t, first.Usage)
	assert.Equal(t, 8, first.Usage.TotalTokens)
	assert.Len(t, o.Window().Get("c1"), 2, "a cache hit adds no turns")
}

func TestAnswerWithoutProviderFallsBack(t *testing.T) {
	var path []string
	o := newOrch(nil, nil, OrchestratorOptions{OnTransition: func(_, to string) { path = append(path, to) }})

	res := o.Answer(context.Background(), "What is water?", &types.ChatContext{Subject: "H2O"}, "c1")
	assert.Equal(t, types.OriginFallback, res.Origin)
	assert.Contains(t, res.Text, "polar")
	assert.Equal(t, 0.8, res.Confidence)
	assert.Equal(t, []string{StateFallbackAttempt, StateHistoryUpdate, StateReturned}, path)
	assert.Empty(t, o.Window().Get("c1"), "fallback turns stay out of the window by default")
}

func TestAnswerProviderErrorFallsBackAndIsCached(t *testing.T) {
	gen := &fakeGen{err: adapters.NewProviderError("openai", 500, "upstream down")}
	var path []string
	o := newOrch(gen, openaiCfg, OrchestratorOptions{OnTransition: func(_, to string) { path = append(path, to) }})

	res := o.Answer(context.Background(), "hello", nil, "c1")
	assert.Equal(t, types.OriginFallback, res.Origin)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, []string{StateProviderAttempt, StateFailure, StateFallbackAttempt, StateHistoryUpdate, StateReturned}, path)

	again := o.Answer(context.Background(), "hello", nil, "c1")
	assert.Equal(t, res, again)
	assert.Equal(t, 1, gen.calls, "fallback answers are cached too")
}

func TestAnswerMissingCredentialsFallsBack(t *testing.T) {
	gen := &fakeGen{err: fmt.Errorf("openai: %w", adapters.ErrMissingCredentials)}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	res := o.Answer(context.Background(), "", nil, "")
	assert.Equal(t, types.OriginFallback, res.Origin)
}

func TestAnswerEmptyContentIsFailure(t *testing.T) {
	gen := &fakeGen{reply: "   "}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	res := o.Answer(context.Background(), "help", nil, "c1")
	assert.Equal(t, types.OriginFallback, res.Origin)
}

func TestAnswerRecordsFallbackWhenAsked(t *testing.T) {
	o := newOrch(nil, nil, OrchestratorOptions{RecordFallbackTurns: true})
	o.Answer(context.Background(), "hi", nil, "c1")
	assert.Len(t, o.Window().Get("c1"), 2)
}

func TestAnswerBuildsPromptFromWindow(t *testing.T) {
	gen := &fakeGen{}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{PromptTurns: 10})
	for i := 0; i < 8; i++ {
		o.Window().Append("c1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	o.Answer(context.Background(), "and methane?", &types.ChatContext{Subject: "CH4", Topic: "alkanes"}, "c1")

	require.Len(t, gen.last, 12)
	assert.Equal(t, adapters.SYSTEM, gen.last[0].Role)
	assert.Equal(t, "q3", gen.last[1].Content, "last 10 turns only")
	assert.Equal(t, "a7", gen.last[10].Content)
	assert.Equal(t, adapters.USER, gen.last[11].Role)
	assert.Equal(t, "[Context: subject=CH4, topic=alkanes]\nand methane?", gen.last[11].Content)

	h := o.Window().Get("c1")
	assert.Equal(t, "and methane?", h[len(h)-2].Content, "window stores the raw utterance")
}

func TestAnswerCacheKeyIgnoresConversation(t *testing.T) {
	gen := &fakeGen{}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	o.Answer(context.Background(), "what is ozone", nil, "c1")
	o.Answer(context.Background(), "What is  ozone", &types.ChatContext{}, "c2")
	assert.Equal(t, 1, gen.calls)
}

func TestAnswerCacheKeyTrimsContext(t *testing.T) {
	gen := &fakeGen{}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	o.Answer(context.Background(), "melting point", &types.ChatContext{Subject: " H2O", Topic: "phase  changes "}, "")
	o.Answer(context.Background(), "melting point", &types.ChatContext{Subject: "H2O", Topic: "phase changes"}, "")
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "[Context: subject=H2O, topic=phase changes]\nmelting point", gen.last[len(gen.last)-1].Content)

	o.Answer(context.Background(), "melting point", &types.ChatContext{Subject: "h2o", Topic: "phase changes"}, "")
	assert.Equal(t, 2, gen.calls)
}

func TestAnswerCacheEviction(t *testing.T) {
	gen := &fakeGen{}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	for i := 0; i <= 100; i++ {
		o.Answer(context.Background(), fmt.Sprintf("q%d", i), nil, "")
	}
	assert.Equal(t, 101, gen.calls)

	o.Answer(context.Background(), "q0", nil, "")
	assert.Equal(t, 102, gen.calls, "first inserted entry was evicted")
	o.Answer(context.Background(), "q100", nil, "")
	assert.Equal(t, 102, gen.calls)
}

func TestAnswerConcurrentCalls(t *testing.T) {
	gen := &fakeGen{}
	o := newOrch(gen, openaiCfg, OrchestratorOptions{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o.Answer(context.Background(), fmt.Sprintf("q%d", i), nil, "shared")
		}(i)
	}
	wg.Wait()
	assert.Len(t, o.Window().Get("shared"), 20)
}
