package capture

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
)

var ErrNoSource = errors.New("capture: no microphone endpoint attached")

// closer is implemented by endpoints that can report their disconnection.
type closer interface {
	Done() <-chan struct{}
}

// DeviceMicrophone borrows the microphone of the user's most recently active
// endpoint. The endpoint is told to start and stop streaming via events.
type DeviceMicrophone struct {
	reg    registry.Registry
	userID uuid.UUID
	format audio.Format
}

func NewDeviceMicrophone(reg registry.Registry, userID uuid.UUID) *DeviceMicrophone {
	return &DeviceMicrophone{reg: reg, userID: userID, format: audio.DefaultSpeechFormat}
}

func (m *DeviceMicrophone) Available() bool {
	_, ok := m.reg.SelectAudioSourceMRU(m.userID)
	return ok
}

func (m *DeviceMicrophone) Open(ctx context.Context) (MicStream, error) {
	ep, ok := m.reg.SelectAudioSourceMRU(m.userID)
	if !ok || ep.AudioFrames() == nil {
		return MicStream{}, ErrNoSource
	}
	frames := ep.AudioFrames()
	// throw away whatever arrived before we asked
	for drained := false; !drained; {
		select {
		case <-frames:
		default:
			drained = true
		}
	}
	if err := ep.SendEvent("mic.start", map[string]int{
		"sample_rate": m.format.SampleRate,
		"channels":    m.format.Channels,
	}); err != nil {
		return MicStream{}, err
	}
	var done <-chan struct{}
	if c, ok := ep.(closer); ok {
		done = c.Done()
	}
	return MicStream{
		Frames: frames,
		Done:   done,
		Format: m.format,
		Release: func() {
			_ = ep.SendEvent("mic.stop", nil)
		},
	}, nil
}
