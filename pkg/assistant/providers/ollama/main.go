package ollama

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/presbrey/ollamafarm"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
)

// ClientSource hands out an api client for the next request.
type ClientSource interface {
	Client() (*api.Client, error)
}

// OllamaProvider picks the first online server out of a farm of hosts.
type OllamaProvider struct {
	farm *ollamafarm.Farm
}

func New(hosts []string, logger *Logger.Logger) *OllamaProvider {
	logger = Logger.OrNop(logger)
	farm := ollamafarm.New()
	hc := recording(http.DefaultClient)

	for _, h := range hosts {
		u, err := url.Parse(normalizeHost(h))
		if err != nil {
			logger.Warnf("ollama: register %s: %v", h, err)
			continue
		}
		farm.RegisterClient(u.String(), api.NewClient(u, hc), nil)
	}

	return &OllamaProvider{farm: farm}
}

func (o *OllamaProvider) Client() (*api.Client, error) {
	node := o.farm.First(&ollamafarm.Where{Offline: false})
	if node == nil {
		return nil, fmt.Errorf("ollama: no online host")
	}
	return node.Client(), nil
}

// HostSource talks to exactly one host and skips farm health tracking.
type HostSource struct {
	client *api.Client
}

func NewHost(host string, hc *http.Client) (*HostSource, error) {
	u, err := url.Parse(normalizeHost(host))
	if err != nil {
		return nil, fmt.Errorf("ollama: bad host %q: %w", host, err)
	}
	return &HostSource{client: api.NewClient(u, recording(hc))}, nil
}

func (h *HostSource) Client() (*api.Client, error) {
	return h.client, nil
}

func normalizeHost(h string) string {
	h = strings.TrimSpace(h)
	if !strings.Contains(h, "://") {
		h = "http://" + h
	}
	return strings.TrimRight(h, "/")
}
