package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	pkgio "github.com/xpanvictor/chemtalk/pkg/io"
	"github.com/xpanvictor/chemtalk/pkg/io/device"
	memoryregistry "github.com/xpanvictor/chemtalk/pkg/io/registry/memoryRegistry"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/capture"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
	"github.com/xpanvictor/chemtalk/pkg/io/tts/stream"
)

type speaker struct {
	id   device.EndpointID
	caps device.Capabilities

	mu     sync.Mutex
	frames int
	notes  []pkgio.Notification
}

func (e *speaker) ID() device.EndpointID       { return e.id }
func (e *speaker) Caps() device.Capabilities   { return e.caps }
func (e *speaker) Transport() device.Transport { return device.TransportWS }
func (e *speaker) SendAudioFrame(int, []byte) error {
	e.mu.Lock()
	e.frames++
	e.mu.Unlock()
	return nil
}
func (e *speaker) SendEvent(_ string, payload any) error {
	if n, ok := payload.(pkgio.Notification); ok {
		e.mu.Lock()
		e.notes = append(e.notes, n)
		e.mu.Unlock()
	}
	return nil
}
func (e *speaker) AudioFrames() <-chan []byte { return nil }
func (e *speaker) Touch()                     {}
func (e *speaker) IsAlive() bool              { return true }
func (e *speaker) Close() error               { return nil }
func (e *speaker) LastActive() time.Time      { return time.Now() }

func (e *speaker) snapshot() (int, []pkgio.Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames, append([]pkgio.Notification(nil), e.notes...)
}

type pcmSynth struct{ err error }

func (p pcmSynth) Name() string     { return "pcm" }
func (p pcmSynth) Configured() bool { return true }
func (p pcmSynth) Synthesize(context.Context, string, tts.Options) (io.ReadCloser, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	// 60ms of silence
	return io.NopCloser(bytes.NewReader(make([]byte, 1920))), "audio/pcm;rate=16000", nil
}

func setup(t *testing.T, synth tts.Synthesizer) (*Service, *speaker, uuid.UUID) {
	t.Helper()
	reg := memoryregistry.New()
	user := uuid.New()
	ep := &speaker{
		id:   device.EndpointID(uuid.New()),
		caps: device.Capabilities{AudioSink: true, TextSink: true},
	}
	reg.AttachEndpoint(user, ep)
	svc := NewService(Deps{
		Synth:     synth,
		Registry:  reg,
		Publisher: pkgio.New(reg, Logger.NewNop()),
	}, Logger.NewNop())
	t.Cleanup(svc.Close)
	return svc, ep, user
}

func TestSpeakPlaysOnEndpoint(t *testing.T) {
	svc, ep, user := setup(t, pcmSynth{})

	res := <-svc.For(user).Speak(context.Background(), "Water is polar.", stream.Options{})
	require.NoError(t, res.Err)
	assert.Len(t, res.Audio, 1920)

	require.Eventually(t, func() bool {
		frames, _ := ep.snapshot()
		return frames == 3
	}, time.Second, time.Millisecond)
	assert.Same(t, svc.For(user), svc.For(user))
}

func TestSpeakFailureNotifies(t *testing.T) {
	svc, ep, user := setup(t, pcmSynth{err: errors.New("dial tcp: refused")})

	res := <-svc.For(user).Speak(context.Background(), "salt", stream.Options{})
	require.Error(t, res.Err)

	require.Eventually(t, func() bool {
		_, notes := ep.snapshot()
		return len(notes) == 1
	}, time.Second, time.Millisecond)
	_, notes := ep.snapshot()
	assert.Equal(t, pkgio.KindError, notes[0].Kind)
	assert.Contains(t, notes[0].Message, "refused")
}

func TestListenWithoutMicrophone(t *testing.T) {
	svc, ep, user := setup(t, nil)
	sess := svc.For(user)
	assert.False(t, sess.CanListen())

	_, err := sess.Listen(context.Background())
	assert.ErrorIs(t, err, capture.ErrUnsupported)
	require.Eventually(t, func() bool {
		_, notes := ep.snapshot()
		return len(notes) == 1
	}, time.Second, time.Millisecond)

	// no-ops when idle
	sess.CancelListening()
	sess.StopSpeaking()
}

func TestReapIdleSessions(t *testing.T) {
	svc, _, user := setup(t, pcmSynth{})
	svc.For(user)
	assert.Equal(t, 0, svc.Reap(time.Hour))
	assert.Equal(t, 1, svc.Sessions())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 1, svc.Reap(time.Millisecond))
	assert.Equal(t, 0, svc.Sessions())
}

func TestForKeepsSessionFromReaper(t *testing.T) {
	svc, ep, user := setup(t, pcmSynth{})
	sess := svc.For(user)

	sess.mu.Lock()
	sess.lastUsed = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	again := svc.For(user)
	require.Same(t, sess, again)
	assert.Equal(t, 0, svc.Reap(time.Minute))
	assert.Equal(t, 0, svc.Reap(0))

	res := <-again.Speak(context.Background(), "still here", stream.Options{})
	require.NoError(t, res.Err)
	require.Eventually(t, func() bool {
		frames, _ := ep.snapshot()
		return frames == 3
	}, time.Second, time.Millisecond)
}
