package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
)

const pcmType = "audio/pcm;rate=16000"

// recSink plays instantly unless the first byte is listed in hold, in which
// case it plays until canceled.
type recSink struct {
	hold map[byte]bool

	mu      sync.Mutex
	started []byte
	played  []byte
}

func (s *recSink) Play(ctx context.Context, pcm audio.PCM) error {
	id := pcm.Data[0]
	s.mu.Lock()
	s.started = append(s.started, id)
	s.mu.Unlock()
	if s.hold[id] {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	s.played = append(s.played, id)
	s.mu.Unlock()
	return nil
}

func (s *recSink) snapshot() (started, played []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.started...), append([]byte(nil), s.played...)
}

func item(id byte) []byte { return []byte{id, 0, 0, 0} }

func TestQueuePlaysInOrder(t *testing.T) {
	sink := &recSink{}
	q := NewQueue(nil, sink, Logger.NewNop())
	defer q.Close()

	for id := byte(1); id <= 3; id++ {
		require.NoError(t, q.Enqueue(item(id), pcmType))
	}
	require.Eventually(t, q.Idle, time.Second, time.Millisecond)
	_, played := sink.snapshot()
	assert.Equal(t, []byte{1, 2, 3}, played)
}

func TestStopDuringSecondItem(t *testing.T) {
	sink := &recSink{hold: map[byte]bool{2: true}}
	q := NewQueue(nil, sink, Logger.NewNop())
	defer q.Close()

	for id := byte(1); id <= 3; id++ {
		require.NoError(t, q.Enqueue(item(id), pcmType))
	}
	require.Eventually(t, func() bool {
		started, _ := sink.snapshot()
		return len(started) == 2
	}, time.Second, time.Millisecond)

	q.Stop()
	assert.True(t, q.Idle())
	time.Sleep(20 * time.Millisecond)

	started, played := sink.snapshot()
	assert.Equal(t, []byte{1, 2}, started)
	assert.Equal(t, []byte{1}, played)

	// stopping again is harmless and the queue keeps working
	q.Stop()
	require.NoError(t, q.Enqueue(item(4), pcmType))
	require.Eventually(t, func() bool {
		_, played := sink.snapshot()
		return len(played) == 2
	}, time.Second, time.Millisecond)
	_, played = sink.snapshot()
	assert.Equal(t, []byte{1, 4}, played)
}

func TestDecodeFailureSkipsItem(t *testing.T) {
	sink := &recSink{}
	q := NewQueue(nil, sink, Logger.NewNop())
	defer q.Close()

	require.NoError(t, q.Enqueue([]byte("ID3 not really mp3"), "audio/mpeg"))
	require.NoError(t, q.Enqueue(item(7), pcmType))

	require.Eventually(t, q.Idle, time.Second, time.Millisecond)
	started, played := sink.snapshot()
	assert.Equal(t, []byte{7}, started)
	assert.Equal(t, []byte{7}, played)
}

func TestClosedQueueRejects(t *testing.T) {
	q := NewQueue(nil, &recSink{}, nil)
	q.Close()
	assert.ErrorIs(t, q.Enqueue(item(1), pcmType), ErrQueueClosed)
	q.Stop()
}

func TestPCMDecoder(t *testing.T) {
	var d PCMDecoder

	pcm, err := d.Decode(Item{Data: make([]byte, 8), ContentType: "audio/pcm; rate=22050; channels=2"})
	require.NoError(t, err)
	assert.Equal(t, 22050, pcm.SampleRate)
	assert.Equal(t, 2, pcm.Channels)

	wav := audio.EncodeWAV(make([]byte, 64), audio.Format{SampleRate: 24000, Channels: 1})
	pcm, err = d.Decode(Item{Data: wav, ContentType: "application/octet-stream"})
	require.NoError(t, err)
	assert.Equal(t, 24000, pcm.SampleRate)
	assert.Len(t, pcm.Data, 64)

	_, err = d.Decode(Item{Data: []byte{1, 2}, ContentType: "audio/mpeg"})
	assert.ErrorIs(t, err, ErrUnsupportedContent)

	_, err = d.Decode(Item{Data: []byte{1, 2, 3}, ContentType: pcmType})
	assert.Error(t, err)
}
