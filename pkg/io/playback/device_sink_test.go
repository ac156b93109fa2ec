package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	"github.com/xpanvictor/chemtalk/pkg/io/device"
	memoryregistry "github.com/xpanvictor/chemtalk/pkg/io/registry/memoryRegistry"
)

type speakerEP struct {
	id device.EndpointID

	mu     sync.Mutex
	frames [][]byte
	events []string
}

func (e *speakerEP) ID() device.EndpointID { return e.id }
func (e *speakerEP) Caps() device.Capabilities {
	return device.Capabilities{AudioSink: true}
}
func (e *speakerEP) Transport() device.Transport { return device.TransportWS }
func (e *speakerEP) SendAudioFrame(_ int, frame []byte) error {
	e.mu.Lock()
	e.frames = append(e.frames, frame)
	e.mu.Unlock()
	return nil
}
func (e *speakerEP) SendEvent(name string, _ any) error {
	e.mu.Lock()
	e.events = append(e.events, name)
	e.mu.Unlock()
	return nil
}
func (e *speakerEP) AudioFrames() <-chan []byte { return nil }
func (e *speakerEP) Touch()                     {}
func (e *speakerEP) IsAlive() bool              { return true }
func (e *speakerEP) Close() error               { return nil }
func (e *speakerEP) LastActive() time.Time      { return time.Now() }

func (e *speakerEP) counts() (int, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.frames), append([]string(nil), e.events...)
}

func TestDeviceSinkPlaysToEndpoint(t *testing.T) {
	reg := memoryregistry.New()
	user := uuid.New()
	sink := NewDeviceSink(reg, user, nil)

	pcm := audio.PCM{Data: make([]byte, 3200), Format: audio.DefaultSpeechFormat}
	assert.ErrorIs(t, sink.Play(context.Background(), pcm), ErrNoOutput)

	ep := &speakerEP{id: device.EndpointID(uuid.New())}
	reg.AttachEndpoint(user, ep)
	require.NoError(t, sink.Play(context.Background(), pcm))

	frames, events := ep.counts()
	assert.Equal(t, 5, frames)
	assert.Equal(t, []string{"audio.start", "audio.end"}, events)
}

func TestDeviceSinkStopsOnCancel(t *testing.T) {
	reg := memoryregistry.New()
	user := uuid.New()
	ep := &speakerEP{id: device.EndpointID(uuid.New())}
	reg.AttachEndpoint(user, ep)
	sink := NewDeviceSink(reg, user, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	// two seconds of audio
	err := sink.Play(ctx, audio.PCM{Data: make([]byte, 64000), Format: audio.DefaultSpeechFormat})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	frames, events := ep.counts()
	assert.Less(t, frames, 50)
	assert.Equal(t, "audio.stop", events[len(events)-1])
}
