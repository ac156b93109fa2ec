package stt

import (
	"context"

	"github.com/xpanvictor/chemtalk/pkg/io/audio"
)

type Transcript struct {
	Text     string
	Language string
	// Confidence is only meaningful when HasConfidence is set.
	Confidence    float64
	HasConfidence bool
}

// Recognizer turns one finished utterance into text.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm audio.PCM) (Transcript, error)
}
