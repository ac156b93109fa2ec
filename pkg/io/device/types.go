package device

import (
	"time"

	"github.com/google/uuid"
)

type Transport string

const (
	TransportWS Transport = "ws"
)

type Capabilities struct {
	AudioSink   bool `json:"audio_sink"`   // can play audio
	AudioSource bool `json:"audio_source"` // can stream microphone frames
	TextSink    bool `json:"text_sink"`    // can show events and notifications
}

type EndpointID uuid.UUID

func (id EndpointID) String() string { return uuid.UUID(id).String() }

// AudioFormat describes PCM frames sent to or received from an endpoint.
type AudioFormat struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	// BitDepth is always 16 today.
	BitDepth int `json:"bit_depth"`
}

type Endpoint interface {
	// Identity
	ID() EndpointID
	Caps() Capabilities
	Transport() Transport
	// output
	SendAudioFrame(seq int, frame []byte) error
	SendEvent(name string, payload any) error
	// input; nil when the endpoint has no microphone
	AudioFrames() <-chan []byte
	Touch()
	// lifecyle
	IsAlive() bool
	Close() error
	LastActive() time.Time
}
