package vad

import (
	"context"

	audioring "github.com/xpanvictor/chemtalk/pkg/io/stt/audioRing"
)

type Result struct {
	HasVoice   bool    `json:"hasVoice"`
	Confidence float32 `json:"confidence"`
}

// Detector decides whether a window of PCM16 contains speech.
type Detector interface {
	DetectVoice(ctx context.Context, window audioring.Frame) (Result, error)
	Close() error
}

type Config struct {
	SampleRate int32 `json:"sampleRate"`
	// Threshold is the speech probability the silero service must report.
	Threshold float32 `json:"threshold"`
	// EnergyThreshold is the RMS level (0..1) the energy detector needs.
	EnergyThreshold float64 `json:"energyThreshold"`
	MinSpeechMs     int     `json:"minSpeechMs"`
	MinSilenceMs    int     `json:"minSilenceMs"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		Threshold:       0.5,
		EnergyThreshold: 0.02,
		MinSpeechMs:     100,
		MinSilenceMs:    200,
	}
}
