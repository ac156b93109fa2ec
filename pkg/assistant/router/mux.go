package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

var (
	ErrUnknownAdapter = errors.New("unknown adapter")
	ErrNoActive       = errors.New("no active adapter")
)

func New() *Mux {
	return &Mux{AdapterMap: make(map[string]AdapterPack)}
}

// Register adds or replaces an adapter under name.
func (m *Mux) Register(name string, ad adapters.ContractAdapter, defaultModel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdapterMap[name] = AdapterPack{Adapter: ad, Name: name, DefaultModel: defaultModel}
}

func (m *Mux) Get(name string) (AdapterPack, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.AdapterMap[name]
	return p, ok
}

func (m *Mux) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.AdapterMap))
	for n := range m.AdapterMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Activate selects the adapter Generate dispatches to. Requests never switch
// adapters on their own.
func (m *Mux) Activate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.AdapterMap[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAdapter, name)
	}
	m.active = name
	return nil
}

func (m *Mux) Active() (AdapterPack, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return AdapterPack{}, false
	}
	p, ok := m.AdapterMap[m.active]
	return p, ok
}

// Generate calls the active adapter; an empty model uses its default.
func (m *Mux) Generate(
	ctx context.Context,
	msgs []adapters.ContractMessage,
	model string,
	maxTokens int,
) (adapters.Result, error) {
	p, ok := m.Active()
	if !ok {
		return adapters.Result{}, ErrNoActive
	}
	if model == "" {
		model = p.DefaultModel
	}
	return p.Adapter.Generate(ctx, msgs, model, maxTokens)
}

// Catalog lists the models of every registered adapter concurrently. A failing
// adapter is reported in its entry and does not fail the others.
func (m *Mux) Catalog(ctx context.Context) []Catalog {
	m.mu.RLock()
	packs := make([]AdapterPack, 0, len(m.AdapterMap))
	for _, p := range m.AdapterMap {
		packs = append(packs, p)
	}
	m.mu.RUnlock()

	var (
		mu  sync.Mutex
		out = make([]Catalog, 0, len(packs))
	)
	p := pool.New().WithMaxGoroutines(4)
	for _, pack := range packs {
		pack := pack
		p.Go(func() {
			entry := Catalog{Provider: pack.Name}
			models, err := pack.Adapter.ListModels(ctx)
			if err != nil {
				entry.Err = err.Error()
			} else {
				entry.Models = models
			}
			mu.Lock()
			out = append(out, entry)
			mu.Unlock()
		})
	}
	p.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
