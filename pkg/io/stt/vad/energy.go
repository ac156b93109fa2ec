package vad

import (
	"context"

	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	audioring "github.com/xpanvictor/chemtalk/pkg/io/stt/audioRing"
)

// Energy is a plain RMS gate. It needs no service and never fails.
type Energy struct {
	cfg Config
}

func NewEnergy(cfg Config) *Energy {
	return &Energy{cfg: cfg}
}

func (e *Energy) DetectVoice(_ context.Context, window audioring.Frame) (Result, error) {
	level := audio.Level(window.Data)
	if e.cfg.EnergyThreshold <= 0 {
		return Result{HasVoice: level > 0, Confidence: 1}, nil
	}
	conf := level / e.cfg.EnergyThreshold
	if conf > 1 {
		conf = 1
	}
	return Result{
		HasVoice:   level > e.cfg.EnergyThreshold,
		Confidence: float32(conf),
	}, nil
}

func (e *Energy) Close() error { return nil }
