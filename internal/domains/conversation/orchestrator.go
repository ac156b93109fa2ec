package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/looplab/fsm"
	"github.com/xpanvictor/chemtalk/internal/config"
	"github.com/xpanvictor/chemtalk/internal/constants/prompts"
	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
	"github.com/xpanvictor/chemtalk/pkg/cache"
)

// Call states. Every Answer walks
// cache_lookup -> provider_attempt -> success|failure -> fallback_attempt -> history_update -> returned
// skipping what does not apply.
const (
	StateCacheLookup     = "cache_lookup"
	StateProviderAttempt = "provider_attempt"
	StateSuccess         = "success"
	StateFailure         = "failure"
	StateFallbackAttempt = "fallback_attempt"
	StateHistoryUpdate   = "history_update"
	StateReturned        = "returned"
)

const (
	evHit        = "hit"
	evMiss       = "miss"
	evNoProvider = "no_provider"
	evSucceed    = "succeed"
	evFail       = "fail"
	evFallBack   = "fall_back"
	evRecord     = "record"
	evReturn     = "return"
)

// ProviderConfidence is reported for every provider-origin answer.
const ProviderConfidence = 0.95

var callEvents = fsm.Events{
	{Name: evHit, Src: []string{StateCacheLookup}, Dst: StateReturned},
	{Name: evMiss, Src: []string{StateCacheLookup}, Dst: StateProviderAttempt},
	{Name: evNoProvider, Src: []string{StateCacheLookup}, Dst: StateFallbackAttempt},
	{Name: evSucceed, Src: []string{StateProviderAttempt}, Dst: StateSuccess},
	{Name: evFail, Src: []string{StateProviderAttempt}, Dst: StateFailure},
	{Name: evFallBack, Src: []string{StateFailure}, Dst: StateFallbackAttempt},
	{Name: evRecord, Src: []string{StateSuccess, StateFallbackAttempt}, Dst: StateHistoryUpdate},
	{Name: evReturn, Src: []string{StateHistoryUpdate}, Dst: StateReturned},
}

// Generator is the provider registry seen from here; router.Mux satisfies it.
type Generator interface {
	Generate(ctx context.Context, msgs []adapters.ContractMessage, model string, maxTokens int) (adapters.Result, error)
}

// ProviderSource reports the active provider config, nil when none.
type ProviderSource interface {
	Current() *config.ProviderConfig
}

type OrchestratorOptions struct {
	// PromptTurns is how many window turns go into each request.
	PromptTurns         int
	RecordFallbackTurns bool
	SystemPrompt        *prompts.SYS_PROMPT
	// OnTransition observes every state change of a call.
	OnTransition func(from, to string)
}

type Orchestrator struct {
	gen      Generator
	provider ProviderSource
	window   *Window
	cache    cache.Cache[types.AnswerResult]
	fallback *Fallback
	logger   *Logger.Logger
	opts     OrchestratorOptions
	system   adapters.ContractMessage
}

func NewOrchestrator(
	gen Generator,
	provider ProviderSource,
	window *Window,
	answers cache.Cache[types.AnswerResult],
	fallback *Fallback,
	logger *Logger.Logger,
	opts OrchestratorOptions,
) *Orchestrator {
	if opts.PromptTurns <= 0 {
		opts.PromptTurns = 10
	}
	if opts.SystemPrompt == nil {
		opts.SystemPrompt = &prompts.DEFAULT_PROMPT
	}
	if fallback == nil {
		fallback = NewFallback()
	}
	return &Orchestrator{
		gen:      gen,
		provider: provider,
		window:   window,
		cache:    answers,
		fallback: fallback,
		logger:   Logger.OrNop(logger).Named("orchestrator"),
		opts:     opts,
		system:   opts.SystemPrompt.GetCurrentPrompt().ToMessage(),
	}
}

func (o *Orchestrator) Window() *Window { return o.window }

// Answer never fails: provider errors are logged and replaced by a fallback.
func (o *Orchestrator) Answer(
	ctx context.Context,
	utterance string,
	chatCtx *types.ChatContext,
	conversationID string,
) types.AnswerResult {
	chatCtx = chatCtx.Normalized()
	call := o.newCall()
	key := cache.Fingerprint(utterance, chatCtx)

	if hit, ok := o.cache.Get(key); ok {
		o.step(ctx, call, evHit)
		return hit
	}

	var (
		result  types.AnswerResult
		fromLLM bool
	)
	pc := o.currentProvider()
	if pc == nil {
		o.step(ctx, call, evNoProvider)
		result = o.fallback.Respond(utterance, chatCtx)
	} else {
		o.step(ctx, call, evMiss)
		res, err := o.gen.Generate(ctx, o.buildMessages(utterance, chatCtx, conversationID), pc.Model, pc.MaxTokens)
		if err == nil && strings.TrimSpace(res.Content) == "" {
			err = adapters.Malformed(pc.ProviderID, "empty content")
		}
		if err != nil {
			o.step(ctx, call, evFail)
			o.logProviderErr(pc.ProviderID, err)
			o.step(ctx, call, evFallBack)
			result = o.fallback.Respond(utterance, chatCtx)
		} else {
			o.step(ctx, call, evSucceed)
			usage := res.Usage
			result = types.AnswerResult{
				Text:       res.Content,
				Confidence: ProviderConfidence,
				Origin:     types.OriginProvider,
				Usage:      &usage,
			}
			fromLLM = true
		}
	}

	// a caller that went away is not a provider failure worth remembering
	if fromLLM || ctx.Err() == nil {
		o.cache.Set(key, result)
	}

	o.step(ctx, call, evRecord)
	if conversationID != "" && (fromLLM || o.opts.RecordFallbackTurns) {
		o.window.Append(conversationID, utterance, result.Text)
	}
	o.step(ctx, call, evReturn)
	return result
}

func (o *Orchestrator) currentProvider() *config.ProviderConfig {
	if o.provider == nil || o.gen == nil {
		return nil
	}
	return o.provider.Current()
}

// BuildPrompt prefixes the utterance with the context annotation, if any.
func BuildPrompt(utterance string, chatCtx *types.ChatContext) string {
	if a := chatCtx.Annotation(); a != "" {
		return a + "\n" + utterance
	}
	return utterance
}

func (o *Orchestrator) buildMessages(utterance string, chatCtx *types.ChatContext, conversationID string) []adapters.ContractMessage {
	var history []types.Turn
	if conversationID != "" {
		history = o.window.Last(conversationID, o.opts.PromptTurns)
	}
	msgs := make([]adapters.ContractMessage, 0, len(history)+2)
	msgs = append(msgs, o.system)
	for _, t := range history {
		msgs = append(msgs, t.ToContractMessage())
	}
	return append(msgs, adapters.ContractMessage{Role: adapters.USER, Content: BuildPrompt(utterance, chatCtx)})
}

func (o *Orchestrator) logProviderErr(provider string, err error) {
	var pe *adapters.ProviderError
	switch {
	case errors.As(err, &pe):
		o.logger.Warnw("provider failed, using fallback", "provider", pe.Provider, "status", pe.StatusCode, "error", pe.Message)
	case errors.Is(err, adapters.ErrMissingCredentials):
		o.logger.Warnw("provider has no credentials, using fallback", "provider", provider)
	default:
		o.logger.Warnw("provider call failed, using fallback", "provider", provider, "error", err)
	}
}

func (o *Orchestrator) newCall() *fsm.FSM {
	return fsm.NewFSM(StateCacheLookup, callEvents, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			if o.opts.OnTransition != nil {
				o.opts.OnTransition(e.Src, e.Dst)
			}
		},
	})
}

// step fires a transition; the table above is fixed, so a refused one is a bug.
func (o *Orchestrator) step(ctx context.Context, call *fsm.FSM, ev string) {
	if err := call.Event(context.WithoutCancel(ctx), ev); err != nil {
		panic(fmt.Sprintf("conversation: %s from %s: %v", ev, call.Current(), err))
	}
}
