package router

import (
	"sync"

	"github.com/xpanvictor/chemtalk/pkg/assistant/adapters"
)

type AdapterPack struct {
	Adapter      adapters.ContractAdapter
	Name         string
	DefaultModel string
}

// Mux holds every registered adapter and the single active one.
type Mux struct {
	mu         sync.RWMutex
	AdapterMap map[string]AdapterPack
	active     string
}

// Catalog is one adapter's model listing; Err is set when listing failed.
type Catalog struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
	Err      string   `json:"error,omitempty"`
}
