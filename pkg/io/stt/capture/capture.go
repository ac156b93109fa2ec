package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/audio"
	"github.com/xpanvictor/chemtalk/pkg/io/stt"
	audioring "github.com/xpanvictor/chemtalk/pkg/io/stt/audioRing"
	"github.com/xpanvictor/chemtalk/pkg/io/stt/vad"
)

// DefaultConfidence is reported when the recognizer gives no score.
const DefaultConfidence = 0.5

const (
	StateIdle        = "idle"
	StateListening   = "listening"
	StateRecognizing = "recognizing"
)

var sessionEvents = fsm.Events{
	{Name: "start", Src: []string{StateIdle}, Dst: StateListening},
	{Name: "recognize", Src: []string{StateListening}, Dst: StateRecognizing},
	{Name: "reset", Src: []string{StateListening, StateRecognizing}, Dst: StateIdle},
}

type RecognitionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// MicStream is an open microphone. Release gives the device back. Done, when
// set, closes once the device is gone.
type MicStream struct {
	Frames  <-chan []byte
	Done    <-chan struct{}
	Format  audio.Format
	Release func()
}

type Microphone interface {
	Available() bool
	Open(ctx context.Context) (MicStream, error)
}

type Config struct {
	MaxListen   time.Duration
	SilenceHold time.Duration
	// Window is how much audio each voice detection looks at.
	Window        time.Duration
	MeterInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxListen:     15 * time.Second,
		SilenceHold:   800 * time.Millisecond,
		Window:        200 * time.Millisecond,
		MeterInterval: 50 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxListen <= 0 {
		c.MaxListen = d.MaxListen
	}
	if c.SilenceHold <= 0 {
		c.SilenceHold = d.SilenceHold
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MeterInterval <= 0 {
		c.MeterInterval = d.MeterInterval
	}
	return c
}

// Capture runs one microphone session at a time and turns it into text.
type Capture struct {
	mic    Microphone
	vad    vad.Detector
	rec    stt.Recognizer
	cfg    Config
	logger *Logger.Logger

	// OnLevel receives the input level (0..1) while listening.
	OnLevel func(level float64)

	mu      sync.Mutex
	state   *fsm.FSM
	cancel  context.CancelCauseFunc
	settled chan struct{}
}

func New(mic Microphone, detector vad.Detector, rec stt.Recognizer, cfg Config, logger *Logger.Logger) *Capture {
	if detector == nil {
		detector = vad.NewEnergy(vad.DefaultConfig())
	}
	return &Capture{
		mic:    mic,
		vad:    detector,
		rec:    rec,
		cfg:    cfg.withDefaults(),
		logger: Logger.OrNop(logger).Named("capture"),
		state:  fsm.NewFSM(StateIdle, sessionEvents, fsm.Callbacks{}),
	}
}

// IsSupported reports whether a microphone and a recognizer are present.
// Callers check it before Listen.
func (c *Capture) IsSupported() bool {
	return c.mic != nil && c.rec != nil && c.mic.Available()
}

func (c *Capture) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Current()
}

// must be called with mu held
func (c *Capture) fire(ev string) {
	if err := c.state.Event(context.Background(), ev); err != nil {
		panic(fmt.Sprintf("capture: %s from %s: %v", ev, c.state.Current(), err))
	}
}

// Listen records until the speaker goes quiet and returns the first final
// transcript. A second call while a session is live fails with ErrBusy.
func (c *Capture) Listen(ctx context.Context) (RecognitionResult, error) {
	if !c.IsSupported() {
		return RecognitionResult{}, ErrUnsupported
	}

	c.mu.Lock()
	if c.state.Current() != StateIdle {
		c.mu.Unlock()
		return RecognitionResult{}, ErrBusy
	}
	sctx, cancel := context.WithCancelCause(ctx)
	settled := make(chan struct{})
	c.cancel, c.settled = cancel, settled
	c.fire("start")
	c.mu.Unlock()

	c.logger.Infof("session started")
	defer func() {
		cancel(nil)
		c.mu.Lock()
		c.fire("reset")
		c.cancel, c.settled = nil, nil
		c.mu.Unlock()
		close(settled)
		c.logger.Infof("session ended")
	}()

	res, err := c.run(sctx)
	if err != nil {
		if sctx.Err() != nil {
			return RecognitionResult{}, canceled(sctx)
		}
		return RecognitionResult{}, err
	}
	return res, nil
}

func canceled(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrCanceled) {
		return ErrCanceled
	}
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}

func (c *Capture) run(ctx context.Context) (RecognitionResult, error) {
	stream, err := c.mic.Open(ctx)
	if err != nil {
		return RecognitionResult{}, &RecognitionError{Stage: "microphone", Err: err}
	}
	pcm, err := c.record(ctx, stream)
	if stream.Release != nil {
		stream.Release()
	}
	if err != nil {
		return RecognitionResult{}, err
	}

	c.mu.Lock()
	c.fire("recognize")
	c.mu.Unlock()

	t, err := c.rec.Transcribe(ctx, pcm)
	if err != nil {
		return RecognitionResult{}, &RecognitionError{Stage: "recognizer", Err: err}
	}
	if t.Text == "" {
		return RecognitionResult{}, &RecognitionError{Stage: "recognizer", Err: ErrNoSpeech}
	}
	conf := DefaultConfidence
	if t.HasConfidence {
		conf = t.Confidence
	}
	return RecognitionResult{Transcript: t.Text, Confidence: conf}, nil
}

// record buffers frames until voice is followed by SilenceHold of quiet, or
// MaxListen of audio has arrived. Both are measured in audio time.
func (c *Capture) record(ctx context.Context, s MicStream) (audio.PCM, error) {
	format := s.Format
	if format.SampleRate == 0 {
		format = audio.DefaultSpeechFormat
	}
	bps := format.BytesPerSecond()
	perSec := func(d time.Duration) int { return int(int64(bps) * int64(d) / int64(time.Second)) }

	maxBytes := perSec(c.cfg.MaxListen)
	holdBytes := perSec(c.cfg.SilenceHold)
	windowBytes := perSec(c.cfg.Window)
	// frame headers cost a little on top of the audio itself
	ring := audioring.New(maxBytes + maxBytes/4 + 4096)

	var (
		window       []byte
		total        int
		silentBytes  int
		heard        bool
		level        float64
		levelUpdated bool
	)

	meter := time.NewTicker(c.cfg.MeterInterval)
	defer meter.Stop()
	wall := time.NewTimer(c.cfg.MaxListen + c.cfg.SilenceHold)
	defer wall.Stop()

	finish := func() (audio.PCM, error) {
		if !heard {
			return audio.PCM{}, &RecognitionError{Stage: "vad", Err: ErrNoSpeech}
		}
		var data []byte
		for _, f := range ring.Drain() {
			data = append(data, f.Data...)
		}
		return audio.PCM{Data: data, Format: format}, nil
	}

	for {
		select {
		case <-ctx.Done():
			return audio.PCM{}, context.Cause(ctx)
		case <-wall.C:
			return finish()
		case <-s.Done:
			return audio.PCM{}, &RecognitionError{Stage: "microphone", Err: ErrMicClosed}
		case <-meter.C:
			if levelUpdated && c.OnLevel != nil {
				c.OnLevel(level)
				levelUpdated = false
			}
		case data, ok := <-s.Frames:
			if !ok {
				if heard {
					return finish()
				}
				return audio.PCM{}, &RecognitionError{Stage: "microphone", Err: ErrMicClosed}
			}
			level, levelUpdated = audio.Level(data), true
			if err := ring.Push(audioring.Frame{
				Data:       data,
				Timestamp:  time.Now(),
				SampleRate: int32(format.SampleRate),
				Channels:   int16(format.Channels),
			}); err != nil {
				c.logger.Warnf("dropping frame: %v", err)
			}
			total += len(data)
			window = append(window, data...)
			if len(window) >= windowBytes {
				res, err := c.vad.DetectVoice(ctx, audioring.Frame{
					Data:       window,
					SampleRate: int32(format.SampleRate),
					Channels:   int16(format.Channels),
				})
				if err != nil {
					return audio.PCM{}, &RecognitionError{Stage: "vad", Err: err}
				}
				if res.HasVoice {
					heard, silentBytes = true, 0
				} else if heard {
					silentBytes += len(window)
				}
				window = window[:0]
				if heard && silentBytes >= holdBytes {
					return finish()
				}
			}
			if total >= maxBytes {
				return finish()
			}
		}
	}
}

// Cancel aborts the live session, if any, and returns once the microphone is
// released and metering has stopped. The pending Listen fails with
// ErrCanceled.
func (c *Capture) Cancel() {
	c.mu.Lock()
	cancel, settled := c.cancel, c.settled
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel(ErrCanceled)
	<-settled
}
