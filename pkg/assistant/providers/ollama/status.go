package ollama

import (
	"context"
	"net/http"
)

type statusKey struct{}

// WithStatus returns a context whose ollama requests store their HTTP
// status code into code.
func WithStatus(ctx context.Context, code *int) context.Context {
	return context.WithValue(ctx, statusKey{}, code)
}

type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil {
		if code, ok := req.Context().Value(statusKey{}).(*int); ok && code != nil {
			*code = resp.StatusCode
		}
	}
	return resp, err
}

// recording wraps hc so responses report their status through WithStatus.
func recording(hc *http.Client) *http.Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	wrapped := *hc
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = statusTransport{base: base}
	return &wrapped
}
