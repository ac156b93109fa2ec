package memoryregistry

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/io/device"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
)

type mmrRegistry struct {
	mu    sync.RWMutex
	epMap map[uuid.UUID]map[device.EndpointID]device.Endpoint
}

// AttachEndpoint implements registry.Registry.
func (m *mmrRegistry) AttachEndpoint(userID uuid.UUID, ep device.Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epMap[userID] == nil {
		m.epMap[userID] = make(map[device.EndpointID]device.Endpoint)
	}
	// can reinstantiate anyways
	m.epMap[userID][ep.ID()] = ep
}

// DetachEndpoint implements registry.Registry.
func (m *mmrRegistry) DetachEndpoint(userID uuid.UUID, id device.EndpointID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	eps := m.epMap[userID]
	if _, ok := eps[id]; !ok {
		return false
	}
	delete(eps, id)
	if len(eps) == 0 {
		delete(m.epMap, userID)
	}
	return true
}

// ListUserEndpoints implements registry.Registry.
// Only live endpoints are returned, most recently active first.
func (m *mmrRegistry) ListUserEndpoints(userID uuid.UUID) []device.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]device.Endpoint, 0, len(m.epMap[userID]))
	for _, ep := range m.epMap[userID] {
		if ep.IsAlive() {
			out = append(out, ep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive().After(out[j].LastActive())
	})
	return out
}

func (m *mmrRegistry) selectMRU(userID uuid.UUID, want func(device.Capabilities) bool) (device.Endpoint, bool) {
	for _, ep := range m.ListUserEndpoints(userID) {
		if want(ep.Caps()) {
			return ep, true
		}
	}
	return nil, false
}

// SelectAudioSinkMRU implements registry.Registry.
func (m *mmrRegistry) SelectAudioSinkMRU(userID uuid.UUID) (device.Endpoint, bool) {
	return m.selectMRU(userID, func(c device.Capabilities) bool { return c.AudioSink })
}

// SelectAudioSourceMRU implements registry.Registry.
func (m *mmrRegistry) SelectAudioSourceMRU(userID uuid.UUID) (device.Endpoint, bool) {
	return m.selectMRU(userID, func(c device.Capabilities) bool { return c.AudioSource })
}

// FetchTextFanoutEndpoints implements registry.Registry.
func (m *mmrRegistry) FetchTextFanoutEndpoints(userID uuid.UUID) ([]device.Endpoint, bool) {
	var out []device.Endpoint
	for _, ep := range m.ListUserEndpoints(userID) {
		if ep.Caps().TextSink {
			out = append(out, ep)
		}
	}
	return out, len(out) > 0
}

func New() registry.Registry {
	return &mmrRegistry{
		epMap: make(map[uuid.UUID]map[device.EndpointID]device.Endpoint),
	}
}
