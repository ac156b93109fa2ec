package adapters

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned before any network call when the adapter
// has no key (or host) to talk to its backend with.
var ErrMissingCredentials = errors.New("missing provider credentials")

// ProviderError is a non-2xx or malformed backend response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
}

func NewProviderError(provider string, status int, msg string) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: status, Message: msg}
}

// Malformed reports a 2xx response that could not be translated.
func Malformed(provider, msg string) *ProviderError {
	return &ProviderError{Provider: provider, Message: "malformed response: " + msg}
}

func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
