package registry

import (
	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/io/device"
)

type Registry interface {
	// endpoint lifecycle
	AttachEndpoint(userID uuid.UUID, ep device.Endpoint)
	DetachEndpoint(userID uuid.UUID, id device.EndpointID) bool
	// queries
	ListUserEndpoints(userID uuid.UUID) []device.Endpoint
	// selection
	SelectAudioSinkMRU(userID uuid.UUID) (device.Endpoint, bool)
	SelectAudioSourceMRU(userID uuid.UUID) (device.Endpoint, bool)
	FetchTextFanoutEndpoints(userID uuid.UUID) ([]device.Endpoint, bool)
}
