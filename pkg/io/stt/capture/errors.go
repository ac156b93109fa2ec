package capture

import (
	"errors"
	"fmt"
)

var (
	ErrBusy        = errors.New("capture: a listening session is already active")
	ErrCanceled    = errors.New("capture: listening canceled")
	ErrUnsupported = errors.New("capture: no microphone or recognizer available")
	ErrNoSpeech    = errors.New("capture: no speech detected")
	ErrMicClosed   = errors.New("capture: microphone stream ended")
)

// RecognitionError is a microphone, detection or backend failure. The caller
// may retry.
type RecognitionError struct {
	Stage string // microphone | vad | recognizer
	Err   error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed at %s: %v", e.Stage, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

func (e *RecognitionError) Retryable() bool { return true }
