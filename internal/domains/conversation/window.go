package conversation

import (
	"sync"

	"github.com/xpanvictor/chemtalk/internal/types"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

const DefaultWindowTurns = 20

// Window keeps the most recent turns of each conversation in memory.
// Turns land in the order Append is called; older ones are dropped from the head.
type Window struct {
	mu    sync.Mutex
	max   int
	turns map[string][]types.Turn
}

func NewWindow(maxTurns int) *Window {
	if maxTurns <= 0 {
		maxTurns = DefaultWindowTurns
	}
	return &Window{max: maxTurns, turns: make(map[string][]types.Turn)}
}

func (w *Window) Append(conversationID, userText, assistantText string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := append(w.turns[conversationID],
		types.Turn{Role: adapters.USER, Content: userText},
		types.Turn{Role: adapters.ASSISTANT, Content: assistantText},
	)
	w.turns[conversationID] = w.trim(h)
}

// Get returns a copy; unknown ids yield an empty slice.
func (w *Window) Get(conversationID string) []types.Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.turns[conversationID]
	out := make([]types.Turn, len(h))
	copy(out, h)
	return out
}

// Last returns at most n of the most recent turns.
func (w *Window) Last(conversationID string, n int) []types.Turn {
	h := w.Get(conversationID)
	if n >= 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	return h
}

func (w *Window) Has(conversationID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.turns[conversationID]
	return ok
}

// Rebuild replaces a conversation's window with stored messages. msgs must be
// in timestamp order. An empty replay still marks the id as loaded.
func (w *Window) Rebuild(conversationID string, msgs []types.Message) {
	h := turnsOf(msgs)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns[conversationID] = w.trim(h)
}

// Load is Rebuild for an id that is not loaded yet. It reports false and
// leaves the window alone when another caller got there first.
func (w *Window) Load(conversationID string, msgs []types.Message) bool {
	h := turnsOf(msgs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.turns[conversationID]; ok {
		return false
	}
	w.turns[conversationID] = w.trim(h)
	return true
}

func turnsOf(msgs []types.Message) []types.Turn {
	h := make([]types.Turn, 0, len(msgs))
	for i := range msgs {
		if msgs[i].MsgRole != adapters.USER && msgs[i].MsgRole != adapters.ASSISTANT {
			continue
		}
		h = append(h, msgs[i].ToTurn())
	}
	return h
}

func (w *Window) Forget(conversationID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.turns, conversationID)
}

func (w *Window) trim(h []types.Turn) []types.Turn {
	if len(h) <= w.max {
		return h
	}
	out := make([]types.Turn, w.max)
	copy(out, h[len(h)-w.max:])
	return out
}
