// Package tts holds the speech synthesis backends.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrEmptyText = errors.New("tts: empty text")

type Options struct {
	// Voice overrides the backend's default voice.
	Voice string
}

type Synthesizer interface {
	Name() string
	// Configured is false when the backend lacks a credential or address.
	Configured() bool
	// Synthesize opens a streamed audio body. The caller closes it.
	Synthesize(ctx context.Context, text string, opts Options) (io.ReadCloser, string, error)
}

// HTTPError is a non-2xx answer from a synthesis backend.
type HTTPError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Backend, e.StatusCode, e.Body)
}

// First picks the first configured backend, nil if none is.
func First(candidates ...Synthesizer) Synthesizer {
	for _, s := range candidates {
		if s != nil && s.Configured() {
			return s
		}
	}
	return nil
}
