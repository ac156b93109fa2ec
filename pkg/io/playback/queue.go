package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
)

var ErrQueueClosed = errors.New("playback: queue closed")

// Sink is the audio output device. Play blocks until the buffer has been
// played or ctx is canceled.
type Sink interface {
	Play(ctx context.Context, pcm audio.PCM) error
}

// Queue plays items strictly in enqueue order, one at a time.
type Queue struct {
	dec    Decoder
	sink   Sink
	logger *Logger.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []Item
	playing  bool
	stopCur  context.CancelFunc
	curDone  chan struct{}
	closed   bool
	finished chan struct{}
}

func NewQueue(dec Decoder, sink Sink, logger *Logger.Logger) *Queue {
	if dec == nil {
		dec = PCMDecoder{}
	}
	q := &Queue{
		dec:      dec,
		sink:     sink,
		logger:   Logger.OrNop(logger).Named("playback"),
		finished: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.consume()
	return q
}

// Enqueue starts playback right away when idle, otherwise appends.
func (q *Queue) Enqueue(data []byte, contentType string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.pending = append(q.pending, Item{Data: data, ContentType: contentType})
	q.cond.Signal()
	return nil
}

func (q *Queue) consume() {
	defer close(q.finished)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		it := q.pending[0]
		q.pending[0] = Item{}
		q.pending = q.pending[1:]
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		q.playing, q.stopCur, q.curDone = true, cancel, done
		q.mu.Unlock()

		q.play(ctx, it)
		cancel()

		q.mu.Lock()
		q.playing, q.stopCur, q.curDone = false, nil, nil
		q.mu.Unlock()
		close(done)
	}
}

func (q *Queue) play(ctx context.Context, it Item) {
	pcm, err := q.dec.Decode(it)
	if err != nil {
		q.logger.Errorf("skipping undecodable item (%d bytes, %q): %v", len(it.Data), it.ContentType, err)
		return
	}
	if err := q.sink.Play(ctx, pcm); err != nil {
		if ctx.Err() != nil {
			q.logger.Debugf("playback stopped")
			return
		}
		q.logger.Errorf("sink failed: %v", err)
	}
}

// Stop halts the current item and drops everything pending. It returns once
// the sink has let go of the output. Safe to call at any time.
func (q *Queue) Stop() {
	q.mu.Lock()
	for i := range q.pending {
		q.pending[i] = Item{}
	}
	q.pending = nil
	stop, done := q.stopCur, q.curDone
	q.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// Close stops playback and ends the consumer. Later Enqueue calls fail.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.Stop()
	<-q.finished
}

func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.playing && len(q.pending) == 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
