// Package stream turns answer text into one playable audio buffer.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/playback"
	"github.com/xpanvictor/chemtalk/pkg/io/tts"
)

var ErrNotConfigured = errors.New("synthesis: no backend configured")

// StreamError is a network or decode failure while assembling audio.
type StreamError struct {
	Stage string // request | read | decode | enqueue
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("synthesis %s failed: %v", e.Stage, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Enqueuer receives complete buffers; playback.Queue satisfies it.
type Enqueuer interface {
	Enqueue(data []byte, contentType string) error
}

type Options struct {
	Voice string
	// OnChunk sees every raw chunk as it arrives, on the streaming goroutine.
	OnChunk func(chunk []byte)
}

// Result is sent exactly once per Stream call. Err is nil on completion.
type Result struct {
	Audio       []byte
	ContentType string
	Err         error
}

type Streamer struct {
	tts       tts.Synthesizer
	queue     Enqueuer
	dec       playback.Decoder
	logger    *Logger.Logger
	chunkSize int
}

func New(synth tts.Synthesizer, queue Enqueuer, logger *Logger.Logger) *Streamer {
	return &Streamer{
		tts:       synth,
		queue:     queue,
		dec:       playback.PCMDecoder{},
		logger:    Logger.OrNop(logger).Named("synthesis"),
		chunkSize: 4096,
	}
}

func (s *Streamer) Configured() bool {
	return s.tts != nil && s.tts.Configured()
}

// Stream synthesizes text in the background. The returned channel yields one
// Result and is then closed. Audio is enqueued for playback only after the
// whole body has arrived and decodes.
func (s *Streamer) Stream(ctx context.Context, text string, opts Options) <-chan Result {
	out := make(chan Result, 1)
	if !s.Configured() {
		out <- Result{Err: ErrNotConfigured}
		close(out)
		return out
	}
	go func() {
		defer close(out)
		res := s.run(ctx, text, opts)
		if res.Err != nil {
			s.logger.Warnf("%v", res.Err)
		}
		out <- res
	}()
	return out
}

func (s *Streamer) run(ctx context.Context, text string, opts Options) Result {
	body, ct, err := s.tts.Synthesize(ctx, text, tts.Options{Voice: opts.Voice})
	if err != nil {
		return Result{Err: &StreamError{Stage: "request", Err: err}}
	}
	defer body.Close()

	var (
		buf   bytes.Buffer
		chunk = make([]byte, s.chunkSize)
	)
	for {
		n, rerr := body.Read(chunk)
		if n > 0 {
			if opts.OnChunk != nil {
				opts.OnChunk(append([]byte(nil), chunk[:n]...))
			}
			buf.Write(chunk[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return Result{Err: &StreamError{Stage: "read", Err: rerr}}
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{Err: &StreamError{Stage: "read", Err: err}}
	}

	if buf.Len() == 0 {
		s.logger.Debugf("%s returned no audio", s.tts.Name())
		return Result{ContentType: ct}
	}
	data := buf.Bytes()
	if _, err := s.dec.Decode(playback.Item{Data: data, ContentType: ct}); err != nil {
		return Result{Err: &StreamError{Stage: "decode", Err: err}}
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(data, ct); err != nil {
			return Result{Err: &StreamError{Stage: "enqueue", Err: err}}
		}
	}
	s.logger.Debugf("%s: %d bytes queued", s.tts.Name(), len(data))
	return Result{Audio: data, ContentType: ct}
}
